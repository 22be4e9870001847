package pipeline

import (
	"net/http"

	"recipe-importer/internal/core/recipe"
	"recipe-importer/internal/pkg/common"

	"github.com/gin-gonic/gin"
)

// RecipeHandler 食譜處理器
type RecipeHandler struct {
	recipes *recipe.Service
}

// NewRecipeHandler 創建食譜處理器
func NewRecipeHandler(recipes *recipe.Service) *RecipeHandler {
	return &RecipeHandler{recipes: recipes}
}

// Create 直接建立食譜
func (h *RecipeHandler) Create(c *gin.Context) {
	var req recipe.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, common.ErrorResponse{
			Code:    common.ErrCodeInvalidRequest,
			Message: err.Error(),
		})
		return
	}

	created, err := h.recipes.Create(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, created)
}

// List 列出食譜，支援餐別與收藏過濾
func (h *RecipeHandler) List(c *gin.Context) {
	filter := recipe.ListFilter{
		MealType:      common.MealType(c.Query("mealType")),
		FavoritesOnly: c.Query("favorites") == "true",
	}
	if filter.MealType != "" && !filter.MealType.IsValid() {
		c.JSON(http.StatusBadRequest, common.ErrorResponse{
			Code:    common.ErrCodeInvalidRequest,
			Message: "無效的餐別",
		})
		return
	}

	recipes, err := h.recipes.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"recipes": recipes,
		"count":   len(recipes),
	})
}

// Search 搜尋食譜
func (h *RecipeHandler) Search(c *gin.Context) {
	recipes, err := h.recipes.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"recipes": recipes,
		"count":   len(recipes),
	})
}

// Get 讀取單筆食譜
func (h *RecipeHandler) Get(c *gin.Context) {
	r, err := h.recipes.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, r)
}

// Update 部分欄位更新
func (h *RecipeHandler) Update(c *gin.Context) {
	var req recipe.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, common.ErrorResponse{
			Code:    common.ErrCodeInvalidRequest,
			Message: err.Error(),
		})
		return
	}

	updated, err := h.recipes.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}

// ToggleFavorite 切換收藏狀態
func (h *RecipeHandler) ToggleFavorite(c *gin.Context) {
	updated, err := h.recipes.ToggleFavorite(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}

// Delete 刪除食譜
func (h *RecipeHandler) Delete(c *gin.Context) {
	if err := h.recipes.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"deleted": true,
	})
}
