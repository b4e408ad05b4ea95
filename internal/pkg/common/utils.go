package common

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// GenerateUUID 生成 UUID
func GenerateUUID() string {
	return uuid.New().String()
}

// WriteError 寫入錯誤響應，只對外暴露通用訊息
func WriteError(c *gin.Context, err error) {
	status := StatusOf(err)
	resp := ErrorResponse{Success: false, Message: ErrInternalError.Message}

	var ce *CustomError
	if errors.As(err, &ce) {
		resp.Code = ce.Code
		resp.Message = ce.Message
	} else if IsValidationError(err) {
		resp.Code = ErrCodeInvalidRequest
		resp.Message = err.Error()
	}

	c.AbortWithStatusJSON(status, resp)
}
