package pipeline

import (
	"net/http"

	"recipe-importer/internal/core/upload"
	"recipe-importer/internal/pkg/common"

	"github.com/gin-gonic/gin"
)

// UploadHandler 上傳與網址匯入處理器
type UploadHandler struct {
	uploads *upload.Service
}

// NewUploadHandler 創建上傳處理器
func NewUploadHandler(uploads *upload.Service) *UploadHandler {
	return &UploadHandler{uploads: uploads}
}

// Register 登記上傳文件並觸發抽取
func (h *UploadHandler) Register(c *gin.Context) {
	var req upload.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, common.ErrorResponse{
			Code:    common.ErrCodeInvalidRequest,
			Message: err.Error(),
		})
		return
	}

	result, err := h.uploads.Register(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// importURLRequest 網址匯入請求
type importURLRequest struct {
	URL string `json:"url" binding:"required"`
}

// ImportURL 抓取網頁並觸發抽取
func (h *UploadHandler) ImportURL(c *gin.Context) {
	var req importURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, common.ErrorResponse{
			Code:    common.ErrCodeInvalidRequest,
			Message: err.Error(),
		})
		return
	}

	result, err := h.uploads.ImportFromURL(c.Request.Context(), req.URL)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// Get 讀取上傳記錄
func (h *UploadHandler) Get(c *gin.Context) {
	up, err := h.uploads.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, up)
}
