package handler

import (
	"context"
	"net/http"

	"github.com/blues/qfround/internal/chain"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
)

// HealthReporter 链连接健康状态
type HealthReporter interface {
	GetHealthStatus(ctx context.Context) map[string]interface{}
}

type SystemHandler struct {
	factory common.Address
	health  HealthReporter
}

func NewSystemHandler(factory common.Address, health HealthReporter) *SystemHandler {
	return &SystemHandler{factory: factory, health: health}
}

// Health 健康检查
func (h *SystemHandler) Health(c *gin.Context) {
	body := gin.H{
		"status":  "ok",
		"service": "qfround-service",
	}
	if h.health != nil {
		body["chain"] = h.health.GetHealthStatus(c.Request.Context())
	}
	c.JSON(http.StatusOK, body)
}

// LoginMessage 获取钱包登录签名消息
func (h *SystemHandler) LoginMessage(c *gin.Context) {
	SuccessResponse(c, http.StatusOK, "ok", gin.H{
		"message": chain.LoginMessage(h.factory),
	})
}
