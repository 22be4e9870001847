package analysis

import (
	"context"
	"fmt"
	"time"

	"recipe-importer/internal/core/scheduler"
	"recipe-importer/internal/core/storage"
	"recipe-importer/internal/core/vision"
	"recipe-importer/internal/infrastructure/config"
	"recipe-importer/internal/pkg/common"

	"go.uber.org/zap"
)

// CompletionHook 分析完成後的回呼，由食譜服務註冊以接手自動建檔
type CompletionHook func(ctx context.Context, analysisID string)

// Service 文件抽取任務服務，負責 pending → processing → completed/failed 的狀態推進
type Service struct {
	config      *config.Config
	store       storage.Store
	analyzer    vision.Analyzer
	scheduler   scheduler.Scheduler
	onCompleted CompletionHook
}

// NewService 創建分析任務服務
func NewService(cfg *config.Config, store storage.Store, analyzer vision.Analyzer, sched scheduler.Scheduler) *Service {
	return &Service{
		config:    cfg,
		store:     store,
		analyzer:  analyzer,
		scheduler: sched,
	}
}

// SetCompletionHook 註冊分析完成回呼
func (s *Service) SetCompletionHook(hook CompletionHook) {
	s.onCompleted = hook
}

// Submit 為上傳建立分析任務並排入執行
// 同一上傳重複提交時回傳已綁定的分析，不會重複執行
func (s *Service) Submit(ctx context.Context, uploadID string) (*common.Analysis, error) {
	upload, err := s.store.GetUpload(ctx, uploadID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	analysis := &common.Analysis{
		ID:         common.GenerateUUID(),
		UploadID:   upload.ID,
		StorageURL: upload.StorageURL,
		Status:     common.AnalysisStatusPending,
		MaxRetries: s.config.Analysis.MaxRetries,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	boundID, claimed, err := s.store.ClaimUploadAnalysis(ctx, upload.ID, analysis.ID)
	if err != nil {
		return nil, err
	}
	if !claimed {
		common.LogInfo("Upload already has an analysis",
			zap.String("upload_id", upload.ID),
			zap.String("analysis_id", boundID),
		)
		return s.store.GetAnalysis(ctx, boundID)
	}

	if err := s.store.CreateAnalysis(ctx, analysis); err != nil {
		// 記錄建立失敗時釋放綁定，避免上傳永久指向不存在的分析
		if relErr := s.store.ReleaseUploadAnalysis(ctx, upload.ID); relErr != nil {
			common.LogError("Failed to release upload analysis claim",
				zap.String("upload_id", upload.ID),
				zap.Error(relErr),
			)
		}
		return nil, err
	}

	common.LogInfo("Analysis submitted",
		zap.String("analysis_id", analysis.ID),
		zap.String("upload_id", upload.ID),
	)

	if err := s.enqueueRun(analysis.ID); err != nil {
		return nil, err
	}
	return analysis, nil
}

// Get 讀取分析任務
func (s *Service) Get(ctx context.Context, id string) (*common.Analysis, error) {
	return s.store.GetAnalysis(ctx, id)
}

// ResumePending 服務重啟後將停留在 pending/processing 的任務重新排入
func (s *Service) ResumePending(ctx context.Context) error {
	analyses, err := s.store.ListAnalyses(ctx)
	if err != nil {
		return err
	}

	resumed := 0
	for _, analysis := range analyses {
		if analysis.Status != common.AnalysisStatusPending && analysis.Status != common.AnalysisStatusProcessing {
			continue
		}
		// 上次停機時卡在 processing 的任務退回 pending 再執行
		if analysis.Status == common.AnalysisStatusProcessing {
			if _, err := s.store.UpdateAnalysis(ctx, analysis.ID, func(a *common.Analysis) error {
				a.Status = common.AnalysisStatusPending
				a.UpdatedAt = time.Now()
				return nil
			}); err != nil {
				common.LogError("Failed to reset stale analysis", zap.String("analysis_id", analysis.ID), zap.Error(err))
				continue
			}
		}
		if err := s.enqueueRun(analysis.ID); err != nil {
			common.LogError("Failed to resume analysis", zap.String("analysis_id", analysis.ID), zap.Error(err))
			continue
		}
		resumed++
	}

	if resumed > 0 {
		common.LogInfo("Resumed pending analyses", zap.Int("count", resumed))
	}
	return nil
}

func (s *Service) enqueueRun(analysisID string) error {
	return s.scheduler.Enqueue(fmt.Sprintf("analysis:%s", analysisID), func(ctx context.Context) {
		s.run(ctx, analysisID)
	})
}

// run 執行一次抽取嘗試
func (s *Service) run(ctx context.Context, analysisID string) {
	analysis, err := s.markProcessing(ctx, analysisID)
	if err != nil {
		common.LogError("Failed to start analysis", zap.String("analysis_id", analysisID), zap.Error(err))
		return
	}
	if analysis == nil {
		// 非 pending 狀態（已完成或並發執行中），不做事
		return
	}

	// 每次執行都重新讀取上傳記錄，重試時以最新的 content type 決定路徑
	upload, err := s.store.GetUpload(ctx, analysis.UploadID)
	if err != nil {
		s.markFailed(ctx, analysisID, &common.AnalysisError{
			Code:      vision.ErrCodeUnknown,
			Message:   fmt.Sprintf("upload not found: %v", err),
			Retryable: false,
		})
		return
	}

	result, err := s.analyze(ctx, upload)
	if err != nil {
		s.markFailed(ctx, analysisID, vision.Classify(err))
		return
	}

	s.saveResult(ctx, analysisID, result)
}

// analyze 依文件類型選擇抽取路徑
func (s *Service) analyze(ctx context.Context, upload *common.Upload) (*common.AnalysisResult, error) {
	switch {
	case upload.IsImage():
		return s.analyzer.AnalyzeImage(ctx, upload.StorageURL)
	case upload.IsHTML():
		prepared := vision.PrepareHTML(upload.HTMLBody, s.config.HTML.MaxInputChars)
		return s.analyzer.AnalyzeHTML(ctx, prepared)
	default:
		return nil, vision.NewExtractionError(vision.ErrCodeInvalidFormat,
			fmt.Sprintf("unsupported content type: %s", upload.ContentType), false)
	}
}

// markProcessing 將 pending 任務推進為 processing，非 pending 時回傳 nil
func (s *Service) markProcessing(ctx context.Context, analysisID string) (*common.Analysis, error) {
	skipped := false
	analysis, err := s.store.UpdateAnalysis(ctx, analysisID, func(a *common.Analysis) error {
		if a.Status != common.AnalysisStatusPending {
			skipped = true
			return nil
		}
		a.Status = common.AnalysisStatusProcessing
		a.UpdatedAt = time.Now()
		return nil
	})
	if err != nil {
		return nil, err
	}
	if skipped {
		common.LogInfo("Analysis not pending, skipping run",
			zap.String("analysis_id", analysisID),
			zap.String("status", string(analysis.Status)),
		)
		return nil, nil
	}

	common.LogAnalysisTransition(analysisID, string(common.AnalysisStatusPending), string(common.AnalysisStatusProcessing))
	return analysis, nil
}

// saveResult 保存抽取結果並結束任務
// 信心值低於保留門檻時丟棄 recipeData，只留描述性結果
func (s *Service) saveResult(ctx context.Context, analysisID string, result *common.AnalysisResult) {
	if result.Confidence < s.config.Analysis.ConfidenceThreshold {
		result.RecipeData = nil
	}

	now := time.Now()
	_, err := s.store.UpdateAnalysis(ctx, analysisID, func(a *common.Analysis) error {
		a.Status = common.AnalysisStatusCompleted
		a.AnalysisResult = result
		a.Error = nil
		a.CompletedAt = &now
		a.UpdatedAt = now
		return nil
	})
	if err != nil {
		common.LogError("Failed to save analysis result", zap.String("analysis_id", analysisID), zap.Error(err))
		return
	}

	common.LogAnalysisTransition(analysisID, string(common.AnalysisStatusProcessing), string(common.AnalysisStatusCompleted),
		zap.Float64("confidence", result.Confidence),
		zap.Bool("has_recipe_data", result.RecipeData != nil),
	)

	if s.onCompleted != nil {
		s.onCompleted(ctx, analysisID)
	}
}

// markFailed 記錄失敗；可重試的錯誤在額度內退回 pending 並按退避時間表重排
func (s *Service) markFailed(ctx context.Context, analysisID string, analysisErr *common.AnalysisError) {
	var retryScheduled bool
	var delay time.Duration

	analysis, err := s.store.UpdateAnalysis(ctx, analysisID, func(a *common.Analysis) error {
		a.RetryCount++
		a.Error = analysisErr
		a.UpdatedAt = time.Now()

		if analysisErr.Retryable && a.RetryCount <= a.MaxRetries {
			a.Status = common.AnalysisStatusPending
			delays := s.config.Analysis.RetryDelays
			idx := a.RetryCount - 1
			if idx >= len(delays) {
				idx = len(delays) - 1
			}
			delay = delays[idx]
			retryScheduled = true
		} else {
			a.Status = common.AnalysisStatusFailed
			retryScheduled = false
		}
		return nil
	})
	if err != nil {
		common.LogError("Failed to mark analysis failed", zap.String("analysis_id", analysisID), zap.Error(err))
		return
	}

	if retryScheduled {
		common.LogAnalysisTransition(analysisID, string(common.AnalysisStatusProcessing), string(common.AnalysisStatusPending),
			zap.String("error_code", analysisErr.Code),
			zap.Int("retry_count", analysis.RetryCount),
			zap.Duration("retry_delay", delay),
		)
		if err := s.scheduler.EnqueueAfter(delay, fmt.Sprintf("analysis:%s", analysisID), func(ctx context.Context) {
			s.run(ctx, analysisID)
		}); err != nil {
			common.LogError("Failed to schedule retry", zap.String("analysis_id", analysisID), zap.Error(err))
		}
		return
	}

	common.LogAnalysisTransition(analysisID, string(common.AnalysisStatusProcessing), string(common.AnalysisStatusFailed),
		zap.String("error_code", analysisErr.Code),
		zap.String("error_message", analysisErr.Message),
		zap.Int("retry_count", analysis.RetryCount),
	)
}
