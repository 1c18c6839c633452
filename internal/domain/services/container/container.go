package container

import (
	"context"
	"sync"
	"time"

	"dues-http-service/internal/domain/services"
	"dues-http-service/internal/infrastructure/config"
	"dues-http-service/internal/infrastructure/database"
	"dues-http-service/internal/infrastructure/events"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ServiceContainer 管理所有服务的依赖注入
type ServiceContainer struct {
	pool      *database.ConnectionPool
	config    *config.Config
	log       *zap.Logger
	publisher events.Publisher

	// 基础服务
	jwtService   *services.JWTService
	redisService *services.RedisService // 未启用 Redis 时为 nil

	// 业务服务
	paymentService      *services.PaymentService
	settlementService   *services.SettlementService
	ledgerService       *services.LedgerService
	registrationService *services.RegistrationService
	billingService      *services.BillingService
	staffService        *services.StaffService

	mu sync.RWMutex
}

// NewServiceContainer 创建新的服务容器。redisService 与 publisher 可为 nil
func NewServiceContainer(pool *database.ConnectionPool, cfg *config.Config, log *zap.Logger,
	redisService *services.RedisService, publisher events.Publisher) *ServiceContainer {
	if pool == nil {
		panic("数据库连接为空")
	}
	if cfg == nil {
		panic("配置为空")
	}
	if log == nil {
		log = zap.NewNop()
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}

	// 测试Redis连接，失败时不启用限流
	if redisService != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := redisService.Ping(ctx); err != nil {
			log.Warn("redis ping failed, issuance throttle disabled", zap.Error(err))
			redisService = nil
		}
	}

	c := &ServiceContainer{
		pool:         pool,
		config:       cfg,
		log:          log,
		publisher:    publisher,
		redisService: redisService,
	}
	c.initializeServices()
	return c
}

// initializeServices 初始化所有服务
func (c *ServiceContainer) initializeServices() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.jwtService = services.NewJWTService(c.config.JWTSecretKey, c.pool, c.log.Named("jwt"))

	var throttle services.IssuanceThrottle
	if c.redisService != nil {
		throttle = c.redisService
	}
	c.paymentService = services.NewPaymentService(c.pool, throttle, c.log.Named("payment"))
	c.settlementService = services.NewSettlementService(c.pool, c.publisher, c.log.Named("settlement"))
	c.ledgerService = services.NewLedgerService(c.pool, c.config.MonthlyFee, c.log.Named("ledger"))
	c.registrationService = services.NewRegistrationService(c.pool, c.log.Named("registration"))
	c.billingService = services.NewBillingService(c.pool, c.log.Named("billing"))
	c.staffService = services.NewStaffService(c.pool, c.log.Named("staff"))
}

// GetService 获取指定名称的服务
func (c *ServiceContainer) GetService(name string) interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	switch name {
	case "config":
		return c.config
	case "db":
		return c.pool.DB
	case "pool":
		return c.pool
	case "jwt":
		return c.jwtService
	case "redis":
		return c.redisService
	case "payment":
		return c.paymentService
	case "settlement":
		return c.settlementService
	case "ledger":
		return c.ledgerService
	case "registration":
		return c.registrationService
	case "billing":
		return c.billingService
	case "staff":
		return c.staffService
	default:
		return nil
	}
}

// GetDB 获取数据库连接
func (c *ServiceContainer) GetDB() *gorm.DB {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pool.DB
}

// GetPool 获取连接池
func (c *ServiceContainer) GetPool() *database.ConnectionPool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pool
}

// GetConfig 获取配置
func (c *ServiceContainer) GetConfig() *config.Config {
	return c.config
}

// GetLogger 获取日志
func (c *ServiceContainer) GetLogger() *zap.Logger {
	return c.log
}

// Close 释放外部连接
func (c *ServiceContainer) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.redisService != nil {
		if err := c.redisService.Close(); err != nil {
			c.log.Warn("failed to close redis client", zap.Error(err))
		}
	}
	if err := c.publisher.Close(); err != nil {
		c.log.Warn("failed to close event publisher", zap.Error(err))
	}
	return c.pool.Close()
}
