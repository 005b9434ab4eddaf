package handler

import (
	"ent-messaging-go/internal/realtime"

	"github.com/gin-gonic/gin"
)

// HealthHandler 提供存活检查。
type HealthHandler struct {
	registry realtime.Registry
}

// NewHealthHandler 创建一个新的 HealthHandler。
func NewHealthHandler(registry realtime.Registry) *HealthHandler {
	return &HealthHandler{registry: registry}
}

// Healthz 返回服务状态与本实例的在线连接数。
func (h *HealthHandler) Healthz(c *gin.Context) {
	respondOK(c, "ok", gin.H{"status": "ok", "connections": h.registry.Count()})
}
