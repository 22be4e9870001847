package storage

import (
	"context"

	"recipe-importer/internal/pkg/common"
)

// Store 上傳、分析與食譜的持久層介面
type Store interface {
	// 上傳文件
	CreateUpload(ctx context.Context, upload *common.Upload) error
	GetUpload(ctx context.Context, id string) (*common.Upload, error)

	// 分析任務
	CreateAnalysis(ctx context.Context, analysis *common.Analysis) error
	GetAnalysis(ctx context.Context, id string) (*common.Analysis, error)
	ListAnalyses(ctx context.Context) ([]*common.Analysis, error)
	// UpdateAnalysis 以讀取-修改-寫入的方式原子更新單筆分析
	UpdateAnalysis(ctx context.Context, id string, mutate func(*common.Analysis) error) (*common.Analysis, error)
	// ClaimUploadAnalysis 為上傳綁定分析，同一上傳只會成功一次；
	// 回傳實際綁定的分析 ID 與本次是否搶佔成功
	ClaimUploadAnalysis(ctx context.Context, uploadID, analysisID string) (string, bool, error)
	// ReleaseUploadAnalysis 解除上傳的分析綁定，供搶佔後建檔失敗時回滾
	ReleaseUploadAnalysis(ctx context.Context, uploadID string) error
	// SetAnalysisRecipe 記錄分析產生的食譜，已記錄過則不覆寫
	SetAnalysisRecipe(ctx context.Context, analysisID, recipeID string) (bool, error)

	// 食譜
	CreateRecipe(ctx context.Context, recipe *common.Recipe) error
	GetRecipe(ctx context.Context, id string) (*common.Recipe, error)
	ListRecipes(ctx context.Context) ([]*common.Recipe, error)
	UpdateRecipe(ctx context.Context, id string, mutate func(*common.Recipe) error) (*common.Recipe, error)
	DeleteRecipe(ctx context.Context, id string) error

	Close() error
}
