package recipe

import (
	"context"
	"time"

	"recipe-importer/internal/core/parse"
	"recipe-importer/internal/core/storage"
	"recipe-importer/internal/infrastructure/config"
	"recipe-importer/internal/pkg/common"

	"go.uber.org/zap"
)

// CreateRequest 使用者直接建立食譜的請求
type CreateRequest struct {
	Title        string          `json:"title" binding:"required"`
	MealType     common.MealType `json:"mealType,omitempty"`
	CookTime     string          `json:"cookTime,omitempty"`
	Author       string          `json:"author,omitempty"`
	ImageURL     string          `json:"imageUrl,omitempty"`
	Ingredients  []string        `json:"ingredients,omitempty"`
	Instructions []string        `json:"instructions,omitempty"`
}

// UpdateRequest 欄位更新請求，nil 欄位不變動
type UpdateRequest struct {
	Title        *string          `json:"title,omitempty"`
	MealType     *common.MealType `json:"mealType,omitempty"`
	CookTime     *string          `json:"cookTime,omitempty"`
	Author       *string          `json:"author,omitempty"`
	ImageURL     *string          `json:"imageUrl,omitempty"`
	Ingredients  []string         `json:"ingredients,omitempty"`
	Instructions []string         `json:"instructions,omitempty"`
}

// ListFilter 列表過濾條件
type ListFilter struct {
	MealType      common.MealType
	FavoritesOnly bool
}

// Service 食譜服務
type Service struct {
	config *config.Config
	store  storage.Store
}

// NewService 創建食譜服務
func NewService(cfg *config.Config, store storage.Store) *Service {
	return &Service{
		config: cfg,
		store:  store,
	}
}

// Create 直接建立食譜，欄位映射規則與自動建檔一致
func (s *Service) Create(ctx context.Context, req *CreateRequest) (*common.Recipe, error) {
	if req.Title == "" {
		return nil, common.NewValidationError("title is required")
	}
	if req.MealType != "" && !req.MealType.IsValid() {
		return nil, common.NewValidationError("invalid meal type")
	}

	cookTime := req.CookTime
	if cookTime == "" {
		cookTime = defaultCookTime
	}

	mealType := req.MealType
	if !mealType.IsValid() {
		mealType = parse.InferMealType(req.Title, req.Ingredients)
	}
	if !mealType.IsValid() {
		mealType = defaultMealType
	}

	imageURL := req.ImageURL
	if imageURL == "" {
		imageURL = s.config.Upload.DefaultImageURL
	}

	var instructions []string
	if len(req.Instructions) > 0 {
		instructions = req.Instructions
	}

	recipe := &common.Recipe{
		ID:              common.GenerateUUID(),
		Title:           req.Title,
		MealType:        mealType,
		CookTime:        cookTime,
		CookTimeMinutes: parse.ParseDuration(cookTime),
		Author:          req.Author,
		ImageURL:        imageURL,
		CreatedAt:       time.Now(),
		Ingredients:     parse.ParseIngredients(req.Ingredients),
		Instructions:    instructions,
	}

	if err := s.store.CreateRecipe(ctx, recipe); err != nil {
		return nil, err
	}

	common.LogInfo("Recipe created",
		zap.String("recipe_id", recipe.ID),
		zap.String("title", recipe.Title),
	)
	return recipe, nil
}

// Get 讀取單筆食譜
func (s *Service) Get(ctx context.Context, id string) (*common.Recipe, error) {
	return s.store.GetRecipe(ctx, id)
}

// List 依條件列出食譜
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*common.Recipe, error) {
	recipes, err := s.store.ListRecipes(ctx)
	if err != nil {
		return nil, err
	}

	filtered := make([]*common.Recipe, 0, len(recipes))
	for _, recipe := range recipes {
		if filter.MealType != "" && recipe.MealType != filter.MealType {
			continue
		}
		if filter.FavoritesOnly && !recipe.IsFavorite {
			continue
		}
		filtered = append(filtered, recipe)
	}
	return filtered, nil
}

// Search 以搜尋字串過濾食譜
func (s *Service) Search(ctx context.Context, query string) ([]*common.Recipe, error) {
	recipes, err := s.store.ListRecipes(ctx)
	if err != nil {
		return nil, err
	}

	matched := make([]*common.Recipe, 0, len(recipes))
	for _, recipe := range recipes {
		if MatchesSearchQuery(recipe, query) {
			matched = append(matched, recipe)
		}
	}
	return matched, nil
}

// Update 部分欄位更新；cookTime 變動時同步重算分鐘數
func (s *Service) Update(ctx context.Context, id string, req *UpdateRequest) (*common.Recipe, error) {
	if req.MealType != nil && !req.MealType.IsValid() {
		return nil, common.NewValidationError("invalid meal type")
	}

	return s.store.UpdateRecipe(ctx, id, func(r *common.Recipe) error {
		if req.Title != nil {
			r.Title = *req.Title
		}
		if req.MealType != nil {
			r.MealType = *req.MealType
		}
		if req.CookTime != nil {
			r.CookTime = *req.CookTime
			r.CookTimeMinutes = parse.ParseDuration(*req.CookTime)
		}
		if req.Author != nil {
			r.Author = *req.Author
		}
		if req.ImageURL != nil {
			r.ImageURL = *req.ImageURL
		}
		if req.Ingredients != nil {
			r.Ingredients = parse.ParseIngredients(req.Ingredients)
		}
		if req.Instructions != nil {
			r.Instructions = req.Instructions
		}
		return nil
	})
}

// ToggleFavorite 切換收藏狀態
func (s *Service) ToggleFavorite(ctx context.Context, id string) (*common.Recipe, error) {
	return s.store.UpdateRecipe(ctx, id, func(r *common.Recipe) error {
		r.IsFavorite = !r.IsFavorite
		return nil
	})
}

// Delete 刪除食譜
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteRecipe(ctx, id); err != nil {
		return err
	}
	common.LogInfo("Recipe deleted", zap.String("recipe_id", id))
	return nil
}
