package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"recipe-importer/internal/infrastructure/config"
	"recipe-importer/internal/pkg/common"

	"github.com/go-redis/redis/v8"
)

const (
	uploadKeyPrefix   = "upload:"
	analysisKeyPrefix = "analysis:"
	recipeKeyPrefix   = "recipe:"
	analysisIndexKey  = "analysis:ids"
	recipeIndexKey    = "recipe:ids"
	uploadClaimPrefix = "upload_analysis:"
	recipeClaimPrefix = "analysis_recipe:"

	// UpdateAnalysis 樂觀鎖衝突時的最大重試次數
	maxTxRetries = 5
)

// RedisStore Redis 持久層實作
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore 創建 Redis 持久層並測試連接
func NewRedisStore(cfg *config.RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStore{client: client}, nil
}

// CreateUpload 儲存上傳文件記錄
func (s *RedisStore) CreateUpload(ctx context.Context, upload *common.Upload) error {
	return s.setJSON(ctx, uploadKeyPrefix+upload.ID, upload)
}

// GetUpload 讀取上傳文件記錄
func (s *RedisStore) GetUpload(ctx context.Context, id string) (*common.Upload, error) {
	var upload common.Upload
	if err := s.getJSON(ctx, uploadKeyPrefix+id, &upload); err != nil {
		if err == redis.Nil {
			return nil, common.ErrUploadNotFound
		}
		return nil, err
	}
	return &upload, nil
}

// CreateAnalysis 儲存分析任務並加入索引
func (s *RedisStore) CreateAnalysis(ctx context.Context, analysis *common.Analysis) error {
	if err := s.setJSON(ctx, analysisKeyPrefix+analysis.ID, analysis); err != nil {
		return err
	}
	return s.client.SAdd(ctx, analysisIndexKey, analysis.ID).Err()
}

// GetAnalysis 讀取分析任務
func (s *RedisStore) GetAnalysis(ctx context.Context, id string) (*common.Analysis, error) {
	var analysis common.Analysis
	if err := s.getJSON(ctx, analysisKeyPrefix+id, &analysis); err != nil {
		if err == redis.Nil {
			return nil, common.ErrAnalysisNotFound
		}
		return nil, err
	}
	return &analysis, nil
}

// ListAnalyses 列出所有分析任務
func (s *RedisStore) ListAnalyses(ctx context.Context) ([]*common.Analysis, error) {
	ids, err := s.client.SMembers(ctx, analysisIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}

	analyses := make([]*common.Analysis, 0, len(ids))
	for _, id := range ids {
		analysis, err := s.GetAnalysis(ctx, id)
		if err != nil {
			// 索引可能落後於刪除，略過即可
			continue
		}
		analyses = append(analyses, analysis)
	}
	return analyses, nil
}

// UpdateAnalysis 以 WATCH 樂觀鎖執行讀取-修改-寫入
func (s *RedisStore) UpdateAnalysis(ctx context.Context, id string, mutate func(*common.Analysis) error) (*common.Analysis, error) {
	key := analysisKeyPrefix + id
	var updated *common.Analysis

	txn := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if err == redis.Nil {
				return common.ErrAnalysisNotFound
			}
			return err
		}

		var analysis common.Analysis
		if err := json.Unmarshal(data, &analysis); err != nil {
			return fmt.Errorf("failed to unmarshal analysis: %w", err)
		}

		if err := mutate(&analysis); err != nil {
			return err
		}

		out, err := json.Marshal(&analysis)
		if err != nil {
			return fmt.Errorf("failed to marshal analysis: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, 0)
			return nil
		})
		if err == nil {
			updated = &analysis
		}
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := s.client.Watch(ctx, txn, key)
		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			return nil, err
		}
		return updated, nil
	}
	return nil, fmt.Errorf("failed to update analysis %s: too many conflicts", id)
}

// ClaimUploadAnalysis 以 SETNX 為上傳搶佔分析綁定
func (s *RedisStore) ClaimUploadAnalysis(ctx context.Context, uploadID, analysisID string) (string, bool, error) {
	key := uploadClaimPrefix + uploadID
	created, err := s.client.SetNX(ctx, key, analysisID, 0).Result()
	if err != nil {
		return "", false, fmt.Errorf("failed to claim upload analysis: %w", err)
	}
	if created {
		return analysisID, true, nil
	}

	existing, err := s.client.Get(ctx, key).Result()
	if err != nil {
		return "", false, fmt.Errorf("failed to read upload analysis claim: %w", err)
	}
	return existing, false, nil
}

// ReleaseUploadAnalysis 刪除上傳的分析綁定
func (s *RedisStore) ReleaseUploadAnalysis(ctx context.Context, uploadID string) error {
	if err := s.client.Del(ctx, uploadClaimPrefix+uploadID).Err(); err != nil {
		return fmt.Errorf("failed to release upload analysis claim: %w", err)
	}
	return nil
}

// SetAnalysisRecipe 以 SETNX 記錄分析對應的食譜
func (s *RedisStore) SetAnalysisRecipe(ctx context.Context, analysisID, recipeID string) (bool, error) {
	created, err := s.client.SetNX(ctx, recipeClaimPrefix+analysisID, recipeID, 0).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim analysis recipe: %w", err)
	}
	return created, nil
}

// CreateRecipe 儲存食譜並加入索引
func (s *RedisStore) CreateRecipe(ctx context.Context, recipe *common.Recipe) error {
	if err := s.setJSON(ctx, recipeKeyPrefix+recipe.ID, recipe); err != nil {
		return err
	}
	return s.client.SAdd(ctx, recipeIndexKey, recipe.ID).Err()
}

// GetRecipe 讀取食譜
func (s *RedisStore) GetRecipe(ctx context.Context, id string) (*common.Recipe, error) {
	var recipe common.Recipe
	if err := s.getJSON(ctx, recipeKeyPrefix+id, &recipe); err != nil {
		if err == redis.Nil {
			return nil, common.ErrRecipeNotFound
		}
		return nil, err
	}
	return &recipe, nil
}

// ListRecipes 列出所有食譜
func (s *RedisStore) ListRecipes(ctx context.Context) ([]*common.Recipe, error) {
	ids, err := s.client.SMembers(ctx, recipeIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list recipes: %w", err)
	}

	recipes := make([]*common.Recipe, 0, len(ids))
	for _, id := range ids {
		recipe, err := s.GetRecipe(ctx, id)
		if err != nil {
			continue
		}
		recipes = append(recipes, recipe)
	}
	return recipes, nil
}

// UpdateRecipe 以 WATCH 樂觀鎖更新食譜
func (s *RedisStore) UpdateRecipe(ctx context.Context, id string, mutate func(*common.Recipe) error) (*common.Recipe, error) {
	key := recipeKeyPrefix + id
	var updated *common.Recipe

	txn := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if err == redis.Nil {
				return common.ErrRecipeNotFound
			}
			return err
		}

		var recipe common.Recipe
		if err := json.Unmarshal(data, &recipe); err != nil {
			return fmt.Errorf("failed to unmarshal recipe: %w", err)
		}

		if err := mutate(&recipe); err != nil {
			return err
		}

		out, err := json.Marshal(&recipe)
		if err != nil {
			return fmt.Errorf("failed to marshal recipe: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, 0)
			return nil
		})
		if err == nil {
			updated = &recipe
		}
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := s.client.Watch(ctx, txn, key)
		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			return nil, err
		}
		return updated, nil
	}
	return nil, fmt.Errorf("failed to update recipe %s: too many conflicts", id)
}

// DeleteRecipe 刪除食譜並移出索引
func (s *RedisStore) DeleteRecipe(ctx context.Context, id string) error {
	removed, err := s.client.Del(ctx, recipeKeyPrefix+id).Result()
	if err != nil {
		return fmt.Errorf("failed to delete recipe: %w", err)
	}
	if removed == 0 {
		return common.ErrRecipeNotFound
	}
	return s.client.SRem(ctx, recipeIndexKey, id).Err()
}

// Close 關閉 Redis 連接
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) setJSON(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	if err := s.client.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) getJSON(ctx context.Context, key string, out interface{}) error {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}
