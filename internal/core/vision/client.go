package vision

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"recipe-importer/internal/infrastructure/config"
	"recipe-importer/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Analyzer 視覺抽取服務的介面，測試時以替身實作
type Analyzer interface {
	AnalyzeImage(ctx context.Context, imageURL string) (*common.AnalysisResult, error)
	AnalyzeHTML(ctx context.Context, html string) (*common.AnalysisResult, error)
}

// Client 視覺模型 API 客戶端
type Client struct {
	config *config.Config
	client *resty.Client
}

// NewClient 創建視覺模型客戶端
func NewClient(cfg *config.Config) *Client {
	client := resty.New().
		SetBaseURL(cfg.Vision.BaseURL).
		SetTimeout(cfg.Vision.Timeout).
		SetHeader("Authorization", fmt.Sprintf("Bearer %s", cfg.Vision.APIKey)).
		SetHeader("Content-Type", "application/json")

	return &Client{
		config: cfg,
		client: client,
	}
}

// AnalyzeImage 以圖片路徑執行食譜抽取，imageURL 必須是模型可存取的文件網址
func (c *Client) AnalyzeImage(ctx context.Context, imageURL string) (*common.AnalysisResult, error) {
	content := []map[string]interface{}{
		{
			"type": "text",
			"text": RecipeAnalysisPrompt.Content,
		},
		{
			"type": "image_url",
			"image_url": map[string]string{
				"url":    imageURL,
				"detail": "high",
			},
		},
	}

	text, err := c.generate(ctx, content)
	if err != nil {
		return nil, err
	}
	return ParseAnalysisResponse(text)
}

// AnalyzeHTML 以網頁路徑執行食譜抽取，html 應已經過 PrepareHTML 整理
func (c *Client) AnalyzeHTML(ctx context.Context, html string) (*common.AnalysisResult, error) {
	content := []map[string]interface{}{
		{
			"type": "text",
			"text": RecipeHTMLAnalysisPrompt.Content + "\n\nHTML:\n" + html,
		},
	}

	text, err := c.generate(ctx, content)
	if err != nil {
		return nil, err
	}
	return ParseAnalysisResponse(text)
}

// generate 發送 chat completions 請求並取回文本回應
func (c *Client) generate(ctx context.Context, content []map[string]interface{}) (string, error) {
	if c.config.Vision.APIKey == "" {
		return "", NewExtractionError(ErrCodeAPIKeyInvalid, "vision API key not configured", false)
	}

	req := map[string]interface{}{
		"model": c.config.Vision.Model,
		"messages": []map[string]interface{}{
			{
				"role":    "user",
				"content": content,
			},
		},
		"max_tokens": c.config.Vision.MaxTokens,
	}

	start := time.Now()
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(req).
		Post("/chat/completions")
	common.LogVisionCall(c.config.Vision.Model, time.Since(start), err)

	if err != nil {
		if strings.Contains(err.Error(), "timeout") || strings.Contains(err.Error(), "deadline exceeded") {
			return "", NewExtractionError(ErrCodeTimeout, err.Error(), true)
		}
		return "", NewExtractionError(ErrCodeUnknown, fmt.Sprintf("failed to send request: %v", err), false)
	}

	if resp.StatusCode() != http.StatusOK {
		return "", c.classifyStatus(resp)
	}

	// 解析回應
	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := common.ParseJSONBytes(resp.Body(), &result); err != nil {
		return "", NewExtractionError(ErrCodeParseError, fmt.Sprintf("failed to parse API response: %v", err), true)
	}

	if len(result.Choices) == 0 || result.Choices[0].Message.Content == "" {
		return "", NewExtractionError(ErrCodeParseError, "no content in API response", true)
	}

	return result.Choices[0].Message.Content, nil
}

// classifyStatus 將非 200 的 HTTP 狀態碼歸入抽取錯誤分類
func (c *Client) classifyStatus(resp *resty.Response) *ExtractionError {
	status := resp.StatusCode()
	message := apiErrorMessage(resp)

	common.LogError("Vision API returned error status",
		zap.Int("status_code", status),
		zap.String("model", c.config.Vision.Model),
		zap.String("message", message),
	)

	switch {
	case status == http.StatusTooManyRequests:
		return NewExtractionError(ErrCodeRateLimit, message, true)
	case status >= http.StatusInternalServerError:
		return NewExtractionError(ErrCodeServerError, message, true)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return NewExtractionError(ErrCodeAPIKeyInvalid, message, false)
	case strings.Contains(message, "content_policy"):
		return NewExtractionError(ErrCodeContentPolicy, message, false)
	default:
		return NewExtractionError(ErrCodeUnknown, message, false)
	}
}

// apiErrorMessage 從錯誤回應體中取出訊息，取不到時退回整個回應文字
func apiErrorMessage(resp *resty.Response) string {
	var apiErr struct {
		Error struct {
			Message string `json:"message"`
			Code    string `json:"code"`
		} `json:"error"`
	}
	if err := common.ParseJSONBytes(resp.Body(), &apiErr); err == nil && apiErr.Error.Message != "" {
		if apiErr.Error.Code != "" {
			return fmt.Sprintf("%s (%s)", apiErr.Error.Message, apiErr.Error.Code)
		}
		return apiErr.Error.Message
	}
	return fmt.Sprintf("API error (status %d): %s", resp.StatusCode(), resp.String())
}
