package upload

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"recipe-importer/internal/core/vision"
	"recipe-importer/internal/infrastructure/config"
	"recipe-importer/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Submitter 分析任務的提交介面，由分析服務實作
type Submitter interface {
	Submit(ctx context.Context, uploadID string) (*common.Analysis, error)
}

// RegisterRequest 上傳登記請求
type RegisterRequest struct {
	StorageURL  string `json:"storageUrl" binding:"required"`
	Filename    string `json:"filename" binding:"required"`
	Size        int64  `json:"size"`
	ContentType string `json:"contentType" binding:"required"`
}

// Result 登記或匯入的結果，帶回上傳記錄與觸發的分析
type Result struct {
	Upload   *common.Upload   `json:"upload"`
	Analysis *common.Analysis `json:"analysis"`
}

// Service 上傳服務，負責登記文件並觸發抽取
type Service struct {
	config    *config.Config
	store     Store
	submitter Submitter
	fetcher   *resty.Client
}

// Store 上傳服務需要的持久層子集
type Store interface {
	CreateUpload(ctx context.Context, upload *common.Upload) error
	GetUpload(ctx context.Context, id string) (*common.Upload, error)
}

// NewService 創建上傳服務
func NewService(cfg *config.Config, store Store, submitter Submitter) *Service {
	fetcher := resty.New().
		SetTimeout(30 * time.Second).
		SetHeader("User-Agent", "recipe-importer/1.0")

	return &Service{
		config:    cfg,
		store:     store,
		submitter: submitter,
		fetcher:   fetcher,
	}
}

// Register 登記已上傳的文件並觸發分析
func (s *Service) Register(ctx context.Context, req *RegisterRequest) (*Result, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}

	up := &common.Upload{
		ID:          common.GenerateUUID(),
		StorageURL:  req.StorageURL,
		Filename:    req.Filename,
		Size:        req.Size,
		ContentType: req.ContentType,
		UploadDate:  time.Now(),
	}

	if err := s.store.CreateUpload(ctx, up); err != nil {
		return nil, err
	}

	common.LogInfo("Upload registered",
		zap.String("upload_id", up.ID),
		zap.String("filename", up.Filename),
		zap.String("content_type", up.ContentType),
		zap.Int64("size", up.Size),
	)

	analysis, err := s.submitter.Submit(ctx, up.ID)
	if err != nil {
		return nil, err
	}
	return &Result{Upload: up, Analysis: analysis}, nil
}

// ImportFromURL 抓取網頁並作為 HTML 上傳觸發抽取
// 檔名由網址推導，出處記錄在 SourceURL 供建檔時保留
func (s *Service) ImportFromURL(ctx context.Context, rawURL string) (*Result, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, common.NewValidationError("invalid url")
	}

	resp, err := s.fetcher.R().SetContext(ctx).Get(rawURL)
	if err != nil {
		return nil, common.NewError("URL_FETCH_FAILED",
			fmt.Sprintf("無法抓取網頁: %v", err), http.StatusBadGateway, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, common.NewError("URL_FETCH_FAILED",
			fmt.Sprintf("網頁回應狀態 %d", resp.StatusCode()), http.StatusBadGateway, nil)
	}

	body := resp.String()
	up := &common.Upload{
		ID:          common.GenerateUUID(),
		Filename:    vision.BuildHTMLFilename(parsed),
		Size:        int64(len(body)),
		ContentType: "text/html",
		SourceURL:   rawURL,
		HTMLBody:    body,
		UploadDate:  time.Now(),
	}

	if err := s.store.CreateUpload(ctx, up); err != nil {
		return nil, err
	}

	common.LogInfo("URL imported",
		zap.String("upload_id", up.ID),
		zap.String("filename", up.Filename),
		zap.String("source_url", rawURL),
		zap.Int64("size", up.Size),
	)

	analysis, err := s.submitter.Submit(ctx, up.ID)
	if err != nil {
		return nil, err
	}
	return &Result{Upload: up, Analysis: analysis}, nil
}

// Get 讀取上傳記錄
func (s *Service) Get(ctx context.Context, id string) (*common.Upload, error) {
	return s.store.GetUpload(ctx, id)
}

// validate 檢查文件類型與大小
func (s *Service) validate(req *RegisterRequest) error {
	allowed := false
	for _, t := range s.config.Upload.AllowedTypes {
		if req.ContentType == t {
			allowed = true
			break
		}
	}
	if !allowed {
		return common.ErrInvalidContentType
	}

	if req.Size > s.config.Upload.MaxSizeBytes {
		return common.ErrFileTooLarge
	}
	return nil
}
