package routes

import (
	"dues-http-service/internal/app/controllers"
	"dues-http-service/internal/app/middleware"
	"dues-http-service/internal/domain/services"
	"dues-http-service/internal/domain/services/container"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化并返回配置好的路由
func SetupRouter(serviceContainer *container.ServiceContainer) *gin.Engine {
	cfg := serviceContainer.GetConfig()
	log := serviceContainer.GetLogger()

	r := gin.New()
	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestLogger(log.Named("http")))
	r.Use(middleware.CORS(cfg.CORSAllowedOrigin))

	registerRoutes(r, serviceContainer)
	return r
}

// registerRoutes 配置所有API路由
func registerRoutes(r *gin.Engine, container *container.ServiceContainer) {
	cfg := container.GetConfig()
	api := r.Group("/api")
	// RATE_LIMIT_RPS <= 0 时关闭全局限流
	if cfg.RateLimitRPS > 0 {
		api.Use(middleware.IPRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst))
	}

	registerPublicRoutes(api, container)
	registerAuthenticatedRoutes(api, container)
}

// registerPublicRoutes 注册公共路由
func registerPublicRoutes(api *gin.RouterGroup, container *container.ServiceContainer) {
	// 健康检查路由
	api.GET("/ping", controllers.HandleHealthFunc(container, "ping"))
	api.GET("/health", controllers.HandleHealthFunc(container, "ping"))
	api.GET("/v1/status", controllers.HandleHealthFunc(container, "status"))

	// 认证路由，按IP和路径限流
	api.POST("/auth/login", middleware.CombinedRateLimiter(1, 5), controllers.HandleJWTFunc(container, "login"))

	// 住户路由
	duesGroup := api.Group("/v1/dues")
	duesGroup.GET("/summary/:residentId", controllers.HandleDuesFunc(container, "getSummary"))
	duesGroup.POST("/request-reference", controllers.HandleDuesFunc(container, "requestReference"))
	duesGroup.GET("/history/:residentId", controllers.HandleDuesFunc(container, "getHistory"))
	duesGroup.GET("/history/:residentId/export", middleware.PathRateLimiter(2, 5), controllers.HandleDuesFunc(container, "exportHistory"))
}

// registerAuthenticatedRoutes 注册需要认证的路由
func registerAuthenticatedRoutes(api *gin.RouterGroup, container *container.ServiceContainer) {
	jwtService := container.GetService("jwt").(*services.JWTService)
	staffService := container.GetService("staff").(*services.StaffService)

	adminGroup := api.Group("/v1/admin")

	// 收银员路由
	cashier := adminGroup.Group("")
	cashier.Use(middleware.AuthenticateCashier(jwtService, staffService))
	cashier.GET("/search-pending-payment/:reference", controllers.HandleCashierFunc(container, "searchPendingPayment"))
	cashier.POST("/register-cash-payment", controllers.HandleCashierFunc(container, "registerCashPayment"))

	// 管理员路由
	admin := adminGroup.Group("")
	admin.Use(middleware.AuthenticateAdmin(jwtService, staffService))
	admin.POST("/register-resident", controllers.HandleAdminFunc(container, "registerResident"))
	admin.POST("/generate-monthly-dues", controllers.HandleAdminFunc(container, "generateMonthlyDues"))

	// 员工账号管理
	admin.GET("/staff", controllers.HandleStaffFunc(container, "getStaffs"))
	admin.POST("/staff", controllers.HandleStaffFunc(container, "createStaff"))
	admin.POST("/staff/:id/deactivate", controllers.HandleStaffFunc(container, "deactivateStaff"))
	admin.POST("/staff/:id/activate", controllers.HandleStaffFunc(container, "activateStaff"))
}
