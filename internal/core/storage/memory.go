package storage

import (
	"context"
	"encoding/json"
	"sync"

	"recipe-importer/internal/pkg/common"
)

// MemoryStore 記憶體持久層，提供與 RedisStore 相同的語義，供測試與單機模式使用
type MemoryStore struct {
	mu            sync.RWMutex
	uploads       map[string]*common.Upload
	analyses      map[string]*common.Analysis
	recipes       map[string]*common.Recipe
	uploadClaims  map[string]string
	recipeClaims  map[string]string
	analysisOrder []string
	recipeOrder   []string
}

// NewMemoryStore 創建記憶體持久層
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		uploads:      make(map[string]*common.Upload),
		analyses:     make(map[string]*common.Analysis),
		recipes:      make(map[string]*common.Recipe),
		uploadClaims: make(map[string]string),
		recipeClaims: make(map[string]string),
	}
}

// CreateUpload 儲存上傳文件記錄
func (s *MemoryStore) CreateUpload(ctx context.Context, upload *common.Upload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploads[upload.ID] = cloneUpload(upload)
	return nil
}

// GetUpload 讀取上傳文件記錄
func (s *MemoryStore) GetUpload(ctx context.Context, id string) (*common.Upload, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	upload, ok := s.uploads[id]
	if !ok {
		return nil, common.ErrUploadNotFound
	}
	return cloneUpload(upload), nil
}

// CreateAnalysis 儲存分析任務
func (s *MemoryStore) CreateAnalysis(ctx context.Context, analysis *common.Analysis) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.analyses[analysis.ID]; !ok {
		s.analysisOrder = append(s.analysisOrder, analysis.ID)
	}
	s.analyses[analysis.ID] = cloneAnalysis(analysis)
	return nil
}

// GetAnalysis 讀取分析任務
func (s *MemoryStore) GetAnalysis(ctx context.Context, id string) (*common.Analysis, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	analysis, ok := s.analyses[id]
	if !ok {
		return nil, common.ErrAnalysisNotFound
	}
	return cloneAnalysis(analysis), nil
}

// ListAnalyses 依創建順序列出所有分析任務
func (s *MemoryStore) ListAnalyses(ctx context.Context) ([]*common.Analysis, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	analyses := make([]*common.Analysis, 0, len(s.analysisOrder))
	for _, id := range s.analysisOrder {
		if analysis, ok := s.analyses[id]; ok {
			analyses = append(analyses, cloneAnalysis(analysis))
		}
	}
	return analyses, nil
}

// UpdateAnalysis 在鎖內執行讀取-修改-寫入
func (s *MemoryStore) UpdateAnalysis(ctx context.Context, id string, mutate func(*common.Analysis) error) (*common.Analysis, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	analysis, ok := s.analyses[id]
	if !ok {
		return nil, common.ErrAnalysisNotFound
	}

	updated := cloneAnalysis(analysis)
	if err := mutate(updated); err != nil {
		return nil, err
	}
	s.analyses[id] = updated
	return cloneAnalysis(updated), nil
}

// ClaimUploadAnalysis 為上傳搶佔分析綁定
func (s *MemoryStore) ClaimUploadAnalysis(ctx context.Context, uploadID, analysisID string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.uploadClaims[uploadID]; ok {
		return existing, false, nil
	}
	s.uploadClaims[uploadID] = analysisID
	return analysisID, true, nil
}

// ReleaseUploadAnalysis 解除上傳的分析綁定
func (s *MemoryStore) ReleaseUploadAnalysis(ctx context.Context, uploadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.uploadClaims, uploadID)
	return nil
}

// SetAnalysisRecipe 記錄分析對應的食譜
func (s *MemoryStore) SetAnalysisRecipe(ctx context.Context, analysisID, recipeID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.recipeClaims[analysisID]; ok {
		return false, nil
	}
	s.recipeClaims[analysisID] = recipeID
	return true, nil
}

// CreateRecipe 儲存食譜
func (s *MemoryStore) CreateRecipe(ctx context.Context, recipe *common.Recipe) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.recipes[recipe.ID]; !ok {
		s.recipeOrder = append(s.recipeOrder, recipe.ID)
	}
	s.recipes[recipe.ID] = cloneRecipe(recipe)
	return nil
}

// GetRecipe 讀取食譜
func (s *MemoryStore) GetRecipe(ctx context.Context, id string) (*common.Recipe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	recipe, ok := s.recipes[id]
	if !ok {
		return nil, common.ErrRecipeNotFound
	}
	return cloneRecipe(recipe), nil
}

// ListRecipes 依創建順序列出所有食譜
func (s *MemoryStore) ListRecipes(ctx context.Context) ([]*common.Recipe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	recipes := make([]*common.Recipe, 0, len(s.recipeOrder))
	for _, id := range s.recipeOrder {
		if recipe, ok := s.recipes[id]; ok {
			recipes = append(recipes, cloneRecipe(recipe))
		}
	}
	return recipes, nil
}

// UpdateRecipe 在鎖內執行讀取-修改-寫入
func (s *MemoryStore) UpdateRecipe(ctx context.Context, id string, mutate func(*common.Recipe) error) (*common.Recipe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	recipe, ok := s.recipes[id]
	if !ok {
		return nil, common.ErrRecipeNotFound
	}

	updated := cloneRecipe(recipe)
	if err := mutate(updated); err != nil {
		return nil, err
	}
	s.recipes[id] = updated
	return cloneRecipe(updated), nil
}

// DeleteRecipe 刪除食譜
func (s *MemoryStore) DeleteRecipe(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.recipes[id]; !ok {
		return common.ErrRecipeNotFound
	}
	delete(s.recipes, id)
	for i, rid := range s.recipeOrder {
		if rid == id {
			s.recipeOrder = append(s.recipeOrder[:i], s.recipeOrder[i+1:]...)
			break
		}
	}
	return nil
}

// Close 記憶體持久層無需釋放資源
func (s *MemoryStore) Close() error {
	return nil
}

// 以 JSON 往返複製，與 Redis 序列化語義一致
func cloneUpload(u *common.Upload) *common.Upload {
	var out common.Upload
	cloneJSON(u, &out)
	return &out
}

func cloneAnalysis(a *common.Analysis) *common.Analysis {
	var out common.Analysis
	cloneJSON(a, &out)
	return &out
}

func cloneRecipe(r *common.Recipe) *common.Recipe {
	var out common.Recipe
	cloneJSON(r, &out)
	return &out
}

func cloneJSON(in, out interface{}) {
	data, err := json.Marshal(in)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		panic(err)
	}
}
