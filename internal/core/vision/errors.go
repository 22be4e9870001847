package vision

import (
	"context"
	"errors"
	"strings"

	"recipe-importer/internal/pkg/common"
)

// 抽取失敗的錯誤代碼分類
const (
	ErrCodeRateLimit     = "rate_limit"
	ErrCodeServerError   = "server_error"
	ErrCodeInvalidFormat = "invalid_format"
	ErrCodeAPIKeyInvalid = "api_key_invalid"
	ErrCodeContentPolicy = "content_policy"
	ErrCodeTimeout       = "timeout"
	ErrCodeParseError    = "parse_error"
	ErrCodeUnknown       = "unknown"
)

// ExtractionError 帶分類與可重試標記的抽取錯誤
type ExtractionError struct {
	Code      string
	Message   string
	Retryable bool
}

// Error 實現 error 介面
func (e *ExtractionError) Error() string {
	return e.Message
}

// NewExtractionError 創建分類後的抽取錯誤
func NewExtractionError(code, message string, retryable bool) *ExtractionError {
	return &ExtractionError{
		Code:      code,
		Message:   message,
		Retryable: retryable,
	}
}

// Classify 將任意錯誤歸入固定分類
// 已分類的錯誤原樣保留；超時視為可重試；其餘落入 unknown（不可重試）
func Classify(err error) *common.AnalysisError {
	var extractionErr *ExtractionError
	if errors.As(err, &extractionErr) {
		return &common.AnalysisError{
			Code:      extractionErr.Code,
			Message:   extractionErr.Message,
			Retryable: extractionErr.Retryable,
		}
	}

	if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "timeout") {
		return &common.AnalysisError{
			Code:      ErrCodeTimeout,
			Message:   err.Error(),
			Retryable: true,
		}
	}

	return &common.AnalysisError{
		Code:      ErrCodeUnknown,
		Message:   err.Error(),
		Retryable: false,
	}
}
