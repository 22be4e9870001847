package pipeline

import (
	"net/http"

	"recipe-importer/internal/core/analysis"
	"recipe-importer/internal/core/recipe"
	"recipe-importer/internal/pkg/common"

	"github.com/gin-gonic/gin"
)

// AnalysisHandler 分析任務處理器
type AnalysisHandler struct {
	analyses *analysis.Service
	builder  *recipe.Builder
}

// NewAnalysisHandler 創建分析任務處理器
func NewAnalysisHandler(analyses *analysis.Service, builder *recipe.Builder) *AnalysisHandler {
	return &AnalysisHandler{
		analyses: analyses,
		builder:  builder,
	}
}

// Get 讀取分析任務狀態
func (h *AnalysisHandler) Get(c *gin.Context) {
	a, err := h.analyses.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, a)
}

// CreateRecipe 手動將低信心值的分析轉成食譜
func (h *AnalysisHandler) CreateRecipe(c *gin.Context) {
	var overrides recipe.Overrides
	if err := c.ShouldBindJSON(&overrides); err != nil {
		c.JSON(http.StatusBadRequest, common.ErrorResponse{
			Code:    common.ErrCodeInvalidRequest,
			Message: err.Error(),
		})
		return
	}

	created, isNew, err := h.builder.ManuallyCreateRecipe(c.Request.Context(), c.Param("id"), overrides)
	if err != nil {
		respondError(c, err)
		return
	}
	if !isNew {
		// 已建檔過，回傳既有食譜
		c.JSON(http.StatusOK, gin.H{
			"exists": true,
			"recipe": created,
		})
		return
	}

	c.JSON(http.StatusCreated, created)
}

// Backfill 批次補建缺漏的食譜
func (h *AnalysisHandler) Backfill(c *gin.Context) {
	report, err := h.builder.BackfillRecipes(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}
