package controllers

import (
	"time"

	"dues-http-service/internal/domain/services/container"
	"dues-http-service/internal/error/code"
	"dues-http-service/internal/error/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HealthController 健康检查控制器
type HealthController struct {
	Ctx       *gin.Context
	Container *container.ServiceContainer
}

// NewHealthController 创建健康检查控制器实例
func NewHealthController(ctx *gin.Context, container *container.ServiceContainer) *HealthController {
	return &HealthController{Ctx: ctx, Container: container}
}

// HandleHealthFunc 返回健康检查处理函数
func HandleHealthFunc(container *container.ServiceContainer, method string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		controller := NewHealthController(ctx, container)

		switch method {
		case "ping":
			controller.Ping()
		case "status":
			controller.Status()
		default:
			response.FailWithMessage(ctx, code.ErrBind, "invalid method", nil)
		}
	}
}

// Ping 检查数据库连接
// @Summary      Health check
// @Description  检查数据库连接
// @Tags         Health
// @Produce      json
// @Success      200  {object}  response.Response
// @Failure      503  {object}  response.Response
// @Router       /ping [get]
func (h *HealthController) Ping() {
	if err := h.Container.GetPool().HealthCheck(h.Ctx.Request.Context()); err != nil {
		h.Container.GetLogger().Error("database health check failed", zap.Error(err))
		response.Fail(h.Ctx, code.ErrDatabaseUnavailable, gin.H{"status": "unhealthy"})
		return
	}
	response.Success(h.Ctx, gin.H{
		"status":  "healthy",
		"message": "pong",
	})
}

// Status 服务状态及连接池统计
// @Summary      Service status
// @Description  返回服务信息和连接池统计
// @Tags         Health
// @Produce      json
// @Success      200  {object}  response.Response
// @Router       /v1/status [get]
func (h *HealthController) Status() {
	data := gin.H{
		"service":   "dues-http-service",
		"message":   "dues API is up",
		"endpoints": "/api/v1/dues",
		"time":      time.Now().UTC().Format(time.RFC3339),
	}
	if stats, err := h.Container.GetPool().Stats(); err == nil {
		data["database"] = stats
	}
	response.Success(h.Ctx, data)
}
