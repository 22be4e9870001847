package analysis

import (
	"context"
	"errors"
	"testing"
	"time"

	"recipe-importer/internal/core/scheduler"
	"recipe-importer/internal/core/storage"
	"recipe-importer/internal/core/vision"
	"recipe-importer/internal/infrastructure/config"
	"recipe-importer/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syncScheduler 同步執行任務的排程器替身，延遲任務立即執行並記錄延遲值
type syncScheduler struct {
	delays []time.Duration
}

func (s *syncScheduler) Enqueue(name string, task scheduler.Task) error {
	task(context.Background())
	return nil
}

func (s *syncScheduler) EnqueueAfter(delay time.Duration, name string, task scheduler.Task) error {
	s.delays = append(s.delays, delay)
	task(context.Background())
	return nil
}

func (s *syncScheduler) Status() *scheduler.Status {
	return &scheduler.Status{}
}

type outcome struct {
	result *common.AnalysisResult
	err    error
}

// stubAnalyzer 依序回放預設結果的抽取服務替身
type stubAnalyzer struct {
	outcomes []outcome
	calls    int
	lastHTML string
}

func (s *stubAnalyzer) next() (*common.AnalysisResult, error) {
	i := s.calls
	s.calls++
	if i >= len(s.outcomes) {
		i = len(s.outcomes) - 1
	}
	o := s.outcomes[i]
	return o.result, o.err
}

func (s *stubAnalyzer) AnalyzeImage(ctx context.Context, imageURL string) (*common.AnalysisResult, error) {
	return s.next()
}

func (s *stubAnalyzer) AnalyzeHTML(ctx context.Context, html string) (*common.AnalysisResult, error) {
	s.lastHTML = html
	return s.next()
}

func testConfig() *config.Config {
	return &config.Config{
		Analysis: config.AnalysisConfig{
			MaxRetries:          3,
			RetryDelays:         []time.Duration{5 * time.Second, 30 * time.Second, 2 * time.Minute},
			ConfidenceThreshold: 0.7,
			CreationThreshold:   0.8,
		},
		HTML: config.HTMLConfig{MaxInputChars: 120000},
	}
}

func seedImageUpload(t *testing.T, store storage.Store) *common.Upload {
	t.Helper()
	up := &common.Upload{
		ID:          common.GenerateUUID(),
		StorageURL:  "https://files.test/pancakes.jpg",
		Filename:    "pancakes.jpg",
		Size:        2048,
		ContentType: "image/jpeg",
		UploadDate:  time.Now(),
	}
	require.NoError(t, store.CreateUpload(context.Background(), up))
	return up
}

func goodResult(confidence float64) *common.AnalysisResult {
	return &common.AnalysisResult{
		RawText:     "Pancakes\n2 cups flour",
		Description: "A pancake recipe",
		Confidence:  confidence,
		ContentType: "recipe",
		RecipeData: &common.RecipeData{
			Title:       "Pancakes",
			Ingredients: []string{"2 cups flour", "3 eggs"},
			CookTime:    "20 min",
		},
	}
}

func TestSubmitCompletesAnalysis(t *testing.T) {
	store := storage.NewMemoryStore()
	analyzer := &stubAnalyzer{outcomes: []outcome{{result: goodResult(0.92)}}}
	svc := NewService(testConfig(), store, analyzer, &syncScheduler{})
	up := seedImageUpload(t, store)

	submitted, err := svc.Submit(context.Background(), up.ID)
	require.NoError(t, err)

	final, err := svc.Get(context.Background(), submitted.ID)
	require.NoError(t, err)
	assert.Equal(t, common.AnalysisStatusCompleted, final.Status)
	require.NotNil(t, final.AnalysisResult)
	assert.Equal(t, 0.92, final.AnalysisResult.Confidence)
	require.NotNil(t, final.AnalysisResult.RecipeData)
	assert.NotNil(t, final.CompletedAt)
	assert.Equal(t, 0, final.RetryCount)
	assert.Equal(t, 1, analyzer.calls)
}

func TestSubmitIsIdempotentPerUpload(t *testing.T) {
	store := storage.NewMemoryStore()
	analyzer := &stubAnalyzer{outcomes: []outcome{{result: goodResult(0.92)}}}
	svc := NewService(testConfig(), store, analyzer, &syncScheduler{})
	up := seedImageUpload(t, store)

	first, err := svc.Submit(context.Background(), up.ID)
	require.NoError(t, err)
	second, err := svc.Submit(context.Background(), up.ID)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, analyzer.calls)
}

// failingCreateStore 前 N 次 CreateAnalysis 失敗，其後正常
type failingCreateStore struct {
	storage.Store
	failures int
}

func (s *failingCreateStore) CreateAnalysis(ctx context.Context, analysis *common.Analysis) error {
	if s.failures > 0 {
		s.failures--
		return errors.New("store unavailable")
	}
	return s.Store.CreateAnalysis(ctx, analysis)
}

// 記錄建立失敗時釋放上傳綁定，重新提交可以成功
func TestSubmitReleasesClaimOnCreateFailure(t *testing.T) {
	store := &failingCreateStore{Store: storage.NewMemoryStore(), failures: 1}
	analyzer := &stubAnalyzer{outcomes: []outcome{{result: goodResult(0.92)}}}
	svc := NewService(testConfig(), store, analyzer, &syncScheduler{})
	up := seedImageUpload(t, store)

	_, err := svc.Submit(context.Background(), up.ID)
	require.Error(t, err)

	retried, err := svc.Submit(context.Background(), up.ID)
	require.NoError(t, err)

	final, err := svc.Get(context.Background(), retried.ID)
	require.NoError(t, err)
	assert.Equal(t, common.AnalysisStatusCompleted, final.Status)
	assert.Equal(t, 1, analyzer.calls)
}

// 信心值低於保留門檻時丟棄 recipeData，任務仍算完成
func TestLowConfidenceStripsRecipeData(t *testing.T) {
	store := storage.NewMemoryStore()
	analyzer := &stubAnalyzer{outcomes: []outcome{{result: goodResult(0.5)}}}
	svc := NewService(testConfig(), store, analyzer, &syncScheduler{})
	up := seedImageUpload(t, store)

	submitted, err := svc.Submit(context.Background(), up.ID)
	require.NoError(t, err)

	final, err := svc.Get(context.Background(), submitted.ID)
	require.NoError(t, err)
	assert.Equal(t, common.AnalysisStatusCompleted, final.Status)
	require.NotNil(t, final.AnalysisResult)
	assert.Nil(t, final.AnalysisResult.RecipeData)
}

func TestRetryableFailureThenSuccess(t *testing.T) {
	store := storage.NewMemoryStore()
	analyzer := &stubAnalyzer{outcomes: []outcome{
		{err: vision.NewExtractionError(vision.ErrCodeRateLimit, "429", true)},
		{result: goodResult(0.9)},
	}}
	sched := &syncScheduler{}
	svc := NewService(testConfig(), store, analyzer, sched)
	up := seedImageUpload(t, store)

	submitted, err := svc.Submit(context.Background(), up.ID)
	require.NoError(t, err)

	final, err := svc.Get(context.Background(), submitted.ID)
	require.NoError(t, err)
	assert.Equal(t, common.AnalysisStatusCompleted, final.Status)
	assert.Equal(t, 1, final.RetryCount)
	assert.Equal(t, 2, analyzer.calls)
	assert.Equal(t, []time.Duration{5 * time.Second}, sched.delays)
}

// 重試耗盡：初次執行加三次重試，退避時間依序取 5s/30s/2m
func TestRetriesExhaust(t *testing.T) {
	store := storage.NewMemoryStore()
	analyzer := &stubAnalyzer{outcomes: []outcome{
		{err: vision.NewExtractionError(vision.ErrCodeServerError, "boom", true)},
	}}
	sched := &syncScheduler{}
	svc := NewService(testConfig(), store, analyzer, sched)
	up := seedImageUpload(t, store)

	submitted, err := svc.Submit(context.Background(), up.ID)
	require.NoError(t, err)

	final, err := svc.Get(context.Background(), submitted.ID)
	require.NoError(t, err)
	assert.Equal(t, common.AnalysisStatusFailed, final.Status)
	assert.Equal(t, 4, final.RetryCount)
	assert.Equal(t, 4, analyzer.calls)
	assert.Equal(t, []time.Duration{5 * time.Second, 30 * time.Second, 2 * time.Minute}, sched.delays)
	require.NotNil(t, final.Error)
	assert.Equal(t, vision.ErrCodeServerError, final.Error.Code)
}

func TestNonRetryableFailsImmediately(t *testing.T) {
	store := storage.NewMemoryStore()
	analyzer := &stubAnalyzer{outcomes: []outcome{
		{err: vision.NewExtractionError(vision.ErrCodeContentPolicy, "rejected", false)},
	}}
	sched := &syncScheduler{}
	svc := NewService(testConfig(), store, analyzer, sched)
	up := seedImageUpload(t, store)

	submitted, err := svc.Submit(context.Background(), up.ID)
	require.NoError(t, err)

	final, err := svc.Get(context.Background(), submitted.ID)
	require.NoError(t, err)
	assert.Equal(t, common.AnalysisStatusFailed, final.Status)
	assert.Equal(t, 1, final.RetryCount)
	assert.Empty(t, sched.delays)
	assert.Equal(t, 1, analyzer.calls)
}

// HTML 上傳走網頁抽取路徑，送入前先剝除 script 區塊
func TestHTMLUploadUsesHTMLPath(t *testing.T) {
	store := storage.NewMemoryStore()
	analyzer := &stubAnalyzer{outcomes: []outcome{{result: goodResult(0.9)}}}
	svc := NewService(testConfig(), store, analyzer, &syncScheduler{})

	up := &common.Upload{
		ID:          common.GenerateUUID(),
		Filename:    "example.com-tacos.html",
		ContentType: "text/html",
		SourceURL:   "https://example.com/tacos",
		HTMLBody:    "<script>var x=1;</script><h1>Tacos</h1>",
		UploadDate:  time.Now(),
	}
	require.NoError(t, store.CreateUpload(context.Background(), up))

	submitted, err := svc.Submit(context.Background(), up.ID)
	require.NoError(t, err)

	final, err := svc.Get(context.Background(), submitted.ID)
	require.NoError(t, err)
	assert.Equal(t, common.AnalysisStatusCompleted, final.Status)
	assert.Equal(t, "<h1>Tacos</h1>", analyzer.lastHTML)
}

func TestUnsupportedContentTypeFails(t *testing.T) {
	store := storage.NewMemoryStore()
	analyzer := &stubAnalyzer{outcomes: []outcome{{result: goodResult(0.9)}}}
	svc := NewService(testConfig(), store, analyzer, &syncScheduler{})

	up := &common.Upload{
		ID:          common.GenerateUUID(),
		Filename:    "notes.pdf",
		ContentType: "application/pdf",
		UploadDate:  time.Now(),
	}
	require.NoError(t, store.CreateUpload(context.Background(), up))

	submitted, err := svc.Submit(context.Background(), up.ID)
	require.NoError(t, err)

	final, err := svc.Get(context.Background(), submitted.ID)
	require.NoError(t, err)
	assert.Equal(t, common.AnalysisStatusFailed, final.Status)
	require.NotNil(t, final.Error)
	assert.Equal(t, vision.ErrCodeInvalidFormat, final.Error.Code)
	assert.Equal(t, 0, analyzer.calls)
}

// 分析完成後觸發建檔回呼
func TestCompletionHookFires(t *testing.T) {
	store := storage.NewMemoryStore()
	analyzer := &stubAnalyzer{outcomes: []outcome{{result: goodResult(0.9)}}}
	svc := NewService(testConfig(), store, analyzer, &syncScheduler{})
	up := seedImageUpload(t, store)

	var hookedID string
	svc.SetCompletionHook(func(ctx context.Context, analysisID string) {
		hookedID = analysisID
	})

	submitted, err := svc.Submit(context.Background(), up.ID)
	require.NoError(t, err)
	assert.Equal(t, submitted.ID, hookedID)
}

// 重啟後 pending 與 processing 的任務重新排入執行
func TestResumePending(t *testing.T) {
	store := storage.NewMemoryStore()
	analyzer := &stubAnalyzer{outcomes: []outcome{{result: goodResult(0.9)}}}
	svc := NewService(testConfig(), store, analyzer, &syncScheduler{})
	up := seedImageUpload(t, store)

	stale := &common.Analysis{
		ID:         common.GenerateUUID(),
		UploadID:   up.ID,
		StorageURL: up.StorageURL,
		Status:     common.AnalysisStatusProcessing,
		MaxRetries: 3,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	require.NoError(t, store.CreateAnalysis(context.Background(), stale))

	require.NoError(t, svc.ResumePending(context.Background()))

	final, err := svc.Get(context.Background(), stale.ID)
	require.NoError(t, err)
	assert.Equal(t, common.AnalysisStatusCompleted, final.Status)
	assert.Equal(t, 1, analyzer.calls)
}
