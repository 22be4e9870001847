package recipe

import (
	"context"
	"fmt"
	"time"

	"recipe-importer/internal/core/parse"
	"recipe-importer/internal/core/scheduler"
	"recipe-importer/internal/core/storage"
	"recipe-importer/internal/infrastructure/config"
	"recipe-importer/internal/pkg/common"

	"go.uber.org/zap"
)

const (
	defaultTitle    = "Untitled Recipe"
	defaultCookTime = "Unknown"
	defaultMealType = common.MealTypeLunch
	defaultSource   = "Vision Analysis"
)

// Overrides 手動建檔時的使用者覆寫欄位
type Overrides struct {
	Title    string          `json:"title,omitempty"`
	MealType common.MealType `json:"mealType,omitempty"`
}

// BackfillReport 批次補建的結果統計
type BackfillReport struct {
	Scanned    int      `json:"scanned"`
	Created    int      `json:"created"`
	Skipped    int      `json:"skipped"`
	Recreated  int      `json:"recreated"`
	Ineligible int      `json:"ineligible"`
	Errors     []string `json:"errors,omitempty"`
}

// Builder 從完成的分析結果建立食譜
type Builder struct {
	config    *config.Config
	store     storage.Store
	scheduler scheduler.Scheduler
}

// NewBuilder 創建食譜建構器
func NewBuilder(cfg *config.Config, store storage.Store, sched scheduler.Scheduler) *Builder {
	return &Builder{
		config:    cfg,
		store:     store,
		scheduler: sched,
	}
}

// ScheduleProcessing 將自動建檔排入排程器，供分析服務在完成時掛接
func (b *Builder) ScheduleProcessing(ctx context.Context, analysisID string) {
	err := b.scheduler.Enqueue(fmt.Sprintf("recipe:%s", analysisID), func(ctx context.Context) {
		if _, err := b.ProcessCompletedAnalysis(ctx, analysisID); err != nil {
			common.LogError("Failed to process completed analysis",
				zap.String("analysis_id", analysisID),
				zap.Error(err),
			)
		}
	})
	if err != nil {
		common.LogError("Failed to schedule recipe creation",
			zap.String("analysis_id", analysisID),
			zap.Error(err),
		)
	}
}

// ProcessCompletedAnalysis 自動建檔：只處理信心值達到建檔門檻的完成分析
// 已建檔的分析直接回傳 nil 食譜，不會重複建立
func (b *Builder) ProcessCompletedAnalysis(ctx context.Context, analysisID string) (*common.Recipe, error) {
	analysis, err := b.store.GetAnalysis(ctx, analysisID)
	if err != nil {
		return nil, err
	}

	if !b.eligible(analysis, b.config.Analysis.CreationThreshold) {
		common.LogInfo("Analysis not eligible for automatic recipe creation",
			zap.String("analysis_id", analysisID),
			zap.String("status", string(analysis.Status)),
		)
		return nil, nil
	}
	if analysis.RecipeID != "" {
		return nil, nil
	}

	return b.create(ctx, analysis, Overrides{}, false)
}

// ManuallyCreateRecipe 手動建檔：接受低於建檔門檻的分析與使用者覆寫
// 已建檔的分析回傳既有食譜與 created=false，不視為錯誤
func (b *Builder) ManuallyCreateRecipe(ctx context.Context, analysisID string, overrides Overrides) (*common.Recipe, bool, error) {
	analysis, err := b.store.GetAnalysis(ctx, analysisID)
	if err != nil {
		return nil, false, err
	}

	if analysis.Status != common.AnalysisStatusCompleted ||
		analysis.AnalysisResult == nil || analysis.AnalysisResult.RecipeData == nil {
		return nil, false, common.NewValidationError("analysis has no recipe data to convert")
	}
	if analysis.RecipeID != "" {
		common.LogInfo("Analysis already processed",
			zap.String("analysis_id", analysisID),
			zap.String("recipe_id", analysis.RecipeID),
		)
		existing, err := b.store.GetRecipe(ctx, analysis.RecipeID)
		if err != nil {
			// 食譜已被刪除，懸空的 recipeRef 留給補建流程處理
			return nil, false, nil
		}
		return existing, false, nil
	}

	created, err := b.create(ctx, analysis, overrides, false)
	if err != nil {
		return nil, false, err
	}
	if created == nil {
		// 併發搶佔輸掉，視同已建檔
		return nil, false, nil
	}
	return created, true, nil
}

// BackfillRecipes 掃描所有完成的分析並補建缺漏的食譜
// 指向已刪除食譜的分析視為可重新建檔
func (b *Builder) BackfillRecipes(ctx context.Context) (*BackfillReport, error) {
	analyses, err := b.store.ListAnalyses(ctx)
	if err != nil {
		return nil, err
	}

	report := &BackfillReport{}
	for _, analysis := range analyses {
		report.Scanned++

		if !b.eligible(analysis, b.config.Analysis.CreationThreshold) {
			report.Ineligible++
			continue
		}

		if analysis.RecipeID != "" {
			if _, err := b.store.GetRecipe(ctx, analysis.RecipeID); err == nil {
				report.Skipped++
				continue
			}
			// 食譜已被刪除，重新建檔
			if _, err := b.create(ctx, analysis, Overrides{}, true); err != nil {
				report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", analysis.ID, err))
				continue
			}
			report.Recreated++
			continue
		}

		if _, err := b.create(ctx, analysis, Overrides{}, false); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", analysis.ID, err))
			continue
		}
		report.Created++
	}

	common.LogInfo("Recipe backfill finished",
		zap.Int("scanned", report.Scanned),
		zap.Int("created", report.Created),
		zap.Int("recreated", report.Recreated),
		zap.Int("skipped", report.Skipped),
		zap.Int("ineligible", report.Ineligible),
		zap.Int("errors", len(report.Errors)),
	)
	return report, nil
}

// eligible 檢查分析是否帶有可建檔的結果
func (b *Builder) eligible(analysis *common.Analysis, threshold float64) bool {
	return analysis.Status == common.AnalysisStatusCompleted &&
		analysis.AnalysisResult != nil &&
		analysis.AnalysisResult.RecipeData != nil &&
		analysis.AnalysisResult.Confidence >= threshold
}

// create 建立食譜並回寫分析記錄
// force 表示略過建檔搶佔（補建已刪除食譜時使用）
func (b *Builder) create(ctx context.Context, analysis *common.Analysis, overrides Overrides, force bool) (*common.Recipe, error) {
	recipe := b.buildRecipe(ctx, analysis, overrides)

	if !force {
		claimed, err := b.store.SetAnalysisRecipe(ctx, analysis.ID, recipe.ID)
		if err != nil {
			return nil, err
		}
		if !claimed {
			common.LogInfo("Analysis already processed", zap.String("analysis_id", analysis.ID))
			return nil, nil
		}
	}

	if err := b.store.CreateRecipe(ctx, recipe); err != nil {
		return nil, err
	}

	now := time.Now()
	if _, err := b.store.UpdateAnalysis(ctx, analysis.ID, func(a *common.Analysis) error {
		a.RecipeID = recipe.ID
		a.RecipeCreatedAt = &now
		a.UpdatedAt = now
		return nil
	}); err != nil {
		return nil, err
	}

	common.LogInfo("Recipe created from analysis",
		zap.String("analysis_id", analysis.ID),
		zap.String("recipe_id", recipe.ID),
		zap.String("title", recipe.Title),
	)
	return recipe, nil
}

// buildRecipe 將抽取出的原始欄位映射成結構化食譜
func (b *Builder) buildRecipe(ctx context.Context, analysis *common.Analysis, overrides Overrides) *common.Recipe {
	data := analysis.AnalysisResult.RecipeData

	title := overrides.Title
	if title == "" {
		title = data.Title
	}
	if title == "" {
		title = defaultTitle
	}

	cookTime := data.CookTime
	if cookTime == "" {
		cookTime = defaultCookTime
	}

	ingredients := parse.ParseIngredients(data.Ingredients)

	// 餐別一律從抽取出的欄位推斷，不受標題覆寫影響
	mealType := overrides.MealType
	if !mealType.IsValid() {
		mealType = parse.InferMealType(data.Title, data.Ingredients)
	}
	if !mealType.IsValid() {
		mealType = defaultMealType
	}

	var instructions []string
	if len(data.Instructions) > 0 {
		instructions = data.Instructions
	}

	return &common.Recipe{
		ID:              common.GenerateUUID(),
		Title:           title,
		MealType:        mealType,
		CookTime:        cookTime,
		CookTimeMinutes: parse.ParseDuration(cookTime),
		ImageURL:        b.resolveImageURL(ctx, analysis),
		Source:          b.resolveSource(ctx, analysis),
		CreatedAt:       time.Now(),
		Ingredients:     ingredients,
		Instructions:    instructions,
	}
}

// resolveSource 網址匯入保留原始出處，照片上傳使用固定字面值
func (b *Builder) resolveSource(ctx context.Context, analysis *common.Analysis) string {
	upload, err := b.store.GetUpload(ctx, analysis.UploadID)
	if err == nil && upload.SourceURL != "" {
		return upload.SourceURL
	}
	return defaultSource
}

// resolveImageURL 取得文件的可讀取路徑，取不到時退回預設佔位圖，不中斷建檔
func (b *Builder) resolveImageURL(ctx context.Context, analysis *common.Analysis) string {
	if analysis.StorageURL != "" {
		return analysis.StorageURL
	}
	upload, err := b.store.GetUpload(ctx, analysis.UploadID)
	if err == nil && upload.IsImage() && upload.StorageURL != "" {
		return upload.StorageURL
	}
	return b.config.Upload.DefaultImageURL
}
