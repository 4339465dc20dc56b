package handler

import (
	"errors"
	"net/http"

	"github.com/blues/qfround/internal/logger"
	"github.com/blues/qfround/internal/model"
	"github.com/gin-gonic/gin"
)

// SuccessResponse 成功响应
func SuccessResponse(c *gin.Context, statusCode int, message string, data interface{}) {
	c.JSON(statusCode, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// ErrorResponse 错误响应
func ErrorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, Response{
		Success: false,
		Message: message,
		Data:    nil,
	})
}

// writeError 按错误类型选择状态码
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, model.ErrRoundNotFound):
		status = http.StatusNotFound
	case errors.Is(err, model.ErrSchemaUnavailable):
		status = http.StatusBadGateway
	case errors.Is(err, model.ErrLedgerUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, model.ErrInvalidEvent):
		status = http.StatusBadGateway
	}

	if status == http.StatusInternalServerError {
		logger.Error("Request %s failed: %v", c.Request.URL.Path, err)
	} else {
		logger.Warn("Request %s failed: %v", c.Request.URL.Path, err)
	}
	ErrorResponse(c, status, err.Error())
}
