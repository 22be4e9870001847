package pipeline

import (
	"net/http"

	"recipe-importer/internal/pkg/common"

	"github.com/gin-gonic/gin"
)

// respondError 將服務層錯誤映射為 API 錯誤響應
func respondError(c *gin.Context, err error) {
	if custom, ok := err.(*common.CustomError); ok {
		c.JSON(custom.Status, common.ErrorResponse{
			Code:    custom.Code,
			Message: custom.Message,
		})
		return
	}

	if common.IsValidationError(err) {
		c.JSON(http.StatusBadRequest, common.ErrorResponse{
			Code:    common.ErrCodeInvalidRequest,
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusInternalServerError, common.ErrorResponse{
		Code:    common.ErrCodeInternalError,
		Message: err.Error(),
	})
}
