package services

import (
	"context"
	"fmt"
	"time"

	"dues-http-service/internal/infrastructure/config"

	"github.com/go-redis/redis/v8"
)

// InterfaceRedisService defines the Redis service interface
type InterfaceRedisService interface {
	Ping(ctx context.Context) error
	AllowIssuance(ctx context.Context, residentID uint) (bool, error)
	Close() error
}

// RedisService handles Redis operations
type RedisService struct {
	Client *redis.Client
	// 每个住户每小时允许生成的参考号数量，<=0 表示不限制
	Limit  int
	Window time.Duration
	now    func() time.Time
}

var _ InterfaceRedisService = (*RedisService)(nil)

// NewRedisService creates a new Redis service
func NewRedisService(cfg *config.Config) *RedisService {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.GetRedisAddr(),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	return NewRedisServiceWithClient(client, cfg.IssuanceLimitPerHour)
}

// NewRedisServiceWithClient 使用已有客户端
func NewRedisServiceWithClient(client *redis.Client, limit int) *RedisService {
	return &RedisService{
		Client: client,
		Limit:  limit,
		Window: time.Hour,
		now:    time.Now,
	}
}

// Ping checks the connection
func (s *RedisService) Ping(ctx context.Context) error {
	return s.Client.Ping(ctx).Err()
}

// AllowIssuance 固定窗口计数：窗口内第 Limit+1 次起拒绝
func (s *RedisService) AllowIssuance(ctx context.Context, residentID uint) (bool, error) {
	if s.Limit <= 0 {
		return true, nil
	}

	// 窗口按整秒分桶，不足一秒时按一小时计
	window := s.Window
	if window < time.Second {
		window = time.Hour
	}
	bucket := s.now().Unix() / int64(window/time.Second)
	key := fmt.Sprintf("dues:issuance:%d:%d", residentID, bucket)

	pipe := s.Client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	return incr.Val() <= int64(s.Limit), nil
}

// Close closes the client
func (s *RedisService) Close() error {
	return s.Client.Close()
}
