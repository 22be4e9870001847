package vision

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"recipe-importer/internal/infrastructure/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClientConfig(baseURL string) *config.Config {
	return &config.Config{
		Vision: config.VisionConfig{
			APIKey:    "test-key",
			Model:     "gpt-4o",
			BaseURL:   baseURL,
			MaxTokens: 4096,
			Timeout:   5 * time.Second,
		},
		HTML: config.HTMLConfig{MaxInputChars: 120000},
	}
}

func chatCompletion(content string) map[string]interface{} {
	return map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]interface{}{"content": content}},
		},
	}
}

func TestAnalyzeImageSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o", req["model"])

		_ = json.NewEncoder(w).Encode(chatCompletion(
			`{"rawText":"Pancakes","description":"a card","confidence":0.9,"contentType":"recipe"}`,
		))
	}))
	defer server.Close()

	client := NewClient(testClientConfig(server.URL))
	result, err := client.AnalyzeImage(context.Background(), "https://files.test/card.jpg")
	require.NoError(t, err)
	assert.Equal(t, 0.9, result.Confidence)
	assert.Equal(t, "Pancakes", result.RawText)
}

func TestAnalyzeImageStatusClassification(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		wantCode      string
		wantRetryable bool
	}{
		{"限流", http.StatusTooManyRequests, ErrCodeRateLimit, true},
		{"伺服器錯誤", http.StatusInternalServerError, ErrCodeServerError, true},
		{"壞網關", http.StatusBadGateway, ErrCodeServerError, true},
		{"未授權", http.StatusUnauthorized, ErrCodeAPIKeyInvalid, false},
		{"禁止訪問", http.StatusForbidden, ErrCodeAPIKeyInvalid, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_ = json.NewEncoder(w).Encode(map[string]interface{}{
					"error": map[string]interface{}{"message": "upstream says no"},
				})
			}))
			defer server.Close()

			client := NewClient(testClientConfig(server.URL))
			_, err := client.AnalyzeImage(context.Background(), "https://files.test/card.jpg")
			require.Error(t, err)

			extractionErr, ok := err.(*ExtractionError)
			require.True(t, ok)
			assert.Equal(t, tt.wantCode, extractionErr.Code)
			assert.Equal(t, tt.wantRetryable, extractionErr.Retryable)
		})
	}
}

func TestAnalyzeImageContentPolicy(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]interface{}{
				"message": "rejected by moderation",
				"code":    "content_policy_violation",
			},
		})
	}))
	defer server.Close()

	client := NewClient(testClientConfig(server.URL))
	_, err := client.AnalyzeImage(context.Background(), "https://files.test/card.jpg")
	require.Error(t, err)

	extractionErr, ok := err.(*ExtractionError)
	require.True(t, ok)
	assert.Equal(t, ErrCodeContentPolicy, extractionErr.Code)
	assert.False(t, extractionErr.Retryable)
}

func TestAnalyzeImageEmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"choices": []interface{}{}})
	}))
	defer server.Close()

	client := NewClient(testClientConfig(server.URL))
	_, err := client.AnalyzeImage(context.Background(), "https://files.test/card.jpg")
	require.Error(t, err)

	extractionErr, ok := err.(*ExtractionError)
	require.True(t, ok)
	assert.Equal(t, ErrCodeParseError, extractionErr.Code)
	assert.True(t, extractionErr.Retryable)
}

func TestAnalyzeImageMissingAPIKey(t *testing.T) {
	cfg := testClientConfig("https://api.test")
	cfg.Vision.APIKey = ""

	client := NewClient(cfg)
	_, err := client.AnalyzeImage(context.Background(), "https://files.test/card.jpg")
	require.Error(t, err)

	extractionErr, ok := err.(*ExtractionError)
	require.True(t, ok)
	assert.Equal(t, ErrCodeAPIKeyInvalid, extractionErr.Code)
	assert.False(t, extractionErr.Retryable)
}
