package upload

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"recipe-importer/internal/core/storage"
	"recipe-importer/internal/infrastructure/config"
	"recipe-importer/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubSubmitter 記錄被觸發的上傳 ID
type stubSubmitter struct {
	uploadIDs []string
}

func (s *stubSubmitter) Submit(ctx context.Context, uploadID string) (*common.Analysis, error) {
	s.uploadIDs = append(s.uploadIDs, uploadID)
	return &common.Analysis{
		ID:       common.GenerateUUID(),
		UploadID: uploadID,
		Status:   common.AnalysisStatusPending,
	}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Upload: config.UploadConfig{
			MaxSizeBytes: 10 * 1024 * 1024,
			AllowedTypes: []string{"image/jpeg", "image/png", "text/html"},
		},
	}
}

func TestRegisterTriggersAnalysis(t *testing.T) {
	store := storage.NewMemoryStore()
	submitter := &stubSubmitter{}
	svc := NewService(testConfig(), store, submitter)

	result, err := svc.Register(context.Background(), &RegisterRequest{
		StorageURL:  "https://files.test/card.jpg",
		Filename:    "card.jpg",
		Size:        2048,
		ContentType: "image/jpeg",
	})
	require.NoError(t, err)
	require.NotNil(t, result.Analysis)
	assert.Equal(t, result.Upload.ID, result.Analysis.UploadID)
	assert.Equal(t, []string{result.Upload.ID}, submitter.uploadIDs)

	stored, err := store.GetUpload(context.Background(), result.Upload.ID)
	require.NoError(t, err)
	assert.Equal(t, "card.jpg", stored.Filename)
	assert.WithinDuration(t, time.Now(), stored.UploadDate, time.Minute)
}

func TestRegisterRejectsContentType(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := NewService(testConfig(), store, &stubSubmitter{})

	_, err := svc.Register(context.Background(), &RegisterRequest{
		StorageURL:  "https://files.test/notes.pdf",
		Filename:    "notes.pdf",
		Size:        2048,
		ContentType: "application/pdf",
	})
	assert.Equal(t, common.ErrInvalidContentType, err)
}

func TestRegisterRejectsOversizedFile(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := NewService(testConfig(), store, &stubSubmitter{})

	_, err := svc.Register(context.Background(), &RegisterRequest{
		StorageURL:  "https://files.test/huge.jpg",
		Filename:    "huge.jpg",
		Size:        20 * 1024 * 1024,
		ContentType: "image/jpeg",
	})
	assert.Equal(t, common.ErrFileTooLarge, err)
}

func TestImportFromURL(t *testing.T) {
	page := "<html><body><h1>Simple Breakfast</h1></body></html>"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(page))
	}))
	defer server.Close()

	store := storage.NewMemoryStore()
	submitter := &stubSubmitter{}
	svc := NewService(testConfig(), store, submitter)

	result, err := svc.ImportFromURL(context.Background(), server.URL+"/recipes/simple-breakfast")
	require.NoError(t, err)

	up := result.Upload
	assert.Equal(t, "text/html", up.ContentType)
	assert.Equal(t, server.URL+"/recipes/simple-breakfast", up.SourceURL)
	assert.Equal(t, page, up.HTMLBody)
	assert.Equal(t, int64(len(page)), up.Size)
	assert.Contains(t, up.Filename, "simple-breakfast.html")
	assert.Equal(t, []string{up.ID}, submitter.uploadIDs)
}

func TestImportFromURLInvalid(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := NewService(testConfig(), store, &stubSubmitter{})

	for _, raw := range []string{"", "not a url", "ftp://example.com/recipe"} {
		_, err := svc.ImportFromURL(context.Background(), raw)
		assert.Error(t, err, "url %q", raw)
	}
}

func TestImportFromURLUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	store := storage.NewMemoryStore()
	svc := NewService(testConfig(), store, &stubSubmitter{})

	_, err := svc.ImportFromURL(context.Background(), server.URL+"/missing")
	require.Error(t, err)

	custom, ok := err.(*common.CustomError)
	require.True(t, ok)
	assert.Equal(t, "URL_FETCH_FAILED", custom.Code)
}
