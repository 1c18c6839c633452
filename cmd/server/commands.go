package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"dues-http-service/internal/app/routes"
	"dues-http-service/internal/domain/services"
	"dues-http-service/internal/domain/services/container"
	"dues-http-service/internal/infrastructure/config"
	"dues-http-service/internal/infrastructure/database"
	"dues-http-service/internal/infrastructure/events"
	"dues-http-service/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// bootstrap 加载配置、日志并连接数据库
func bootstrap() (*config.Config, *zap.Logger, *database.ConnectionPool, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	log, err := logger.NewLogger(cfg.LogLevel, cfg.LogFormat, "dues-http-service")
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init logger: %w", err)
	}

	pool, err := database.NewConnectionPool(cfg, log.Named("database"))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect database: %w", err)
	}
	return cfg, log, pool, nil
}

// MigrateCmd 只执行数据库迁移
func MigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations and ensure the admin account",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, pool, err := bootstrap()
			if err != nil {
				return err
			}
			defer log.Sync()
			defer pool.Close()

			mode, _ := cmd.Flags().GetString("mode")
			if mode == "" {
				mode = cfg.DBMigrationMode
			}
			if err := database.Migrate(pool.DB, mode, log); err != nil {
				return err
			}
			return database.EnsureAdminExists(pool.DB, cfg.DefaultAdminPassword, log)
		},
	}

	cmd.Flags().String("mode", "", "Migration mode: auto, drop or none (default DB_MIGRATION_MODE)")
	return cmd
}

// ServeCmd 启动HTTP服务
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, pool, err := bootstrap()
			if err != nil {
				return err
			}
			defer log.Sync()

			if err := database.Migrate(pool.DB, cfg.DBMigrationMode, log); err != nil {
				return err
			}
			// 确保系统中有管理员账户
			if err := database.EnsureAdminExists(pool.DB, cfg.DefaultAdminPassword, log); err != nil {
				return err
			}

			var redisService *services.RedisService
			if cfg.RedisEnabled {
				redisService = services.NewRedisService(cfg)
			}

			var publisher events.Publisher = events.NopPublisher{}
			if cfg.KafkaEnabled() {
				kafka, err := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaSettlementTopic, log.Named("events"))
				if err != nil {
					// 事件发布为尽力而为，Kafka 不可用时不阻止启动
					log.Warn("kafka unavailable, settlement events disabled", zap.Error(err))
				} else {
					publisher = kafka
				}
			}

			serviceContainer := container.NewServiceContainer(pool, cfg, log, redisService, publisher)
			defer serviceContainer.Close()

			if cfg.LogLevel != "debug" {
				gin.SetMode(gin.ReleaseMode)
			}
			router := routes.SetupRouter(serviceContainer)

			printSystemInfo(log, pool)

			return runServer(cmd.Context(), log, router, "0.0.0.0:"+cfg.ServerPort)
		},
	}
	return cmd
}

// runServer 运行直到收到退出信号，然后优雅关闭
func runServer(ctx context.Context, log *zap.Logger, handler http.Handler, addr string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// printSystemInfo 打印系统信息
func printSystemInfo(log *zap.Logger, pool *database.ConnectionPool) {
	if stats, err := pool.Stats(); err == nil {
		log.Info("database pool", zap.Any("stats", stats))
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	log.Info("system info",
		zap.Int("cpus", runtime.NumCPU()),
		zap.Int("goroutines", runtime.NumGoroutine()),
		zap.Uint64("alloc_mib", m.Alloc/1024/1024),
		zap.Uint64("sys_mib", m.Sys/1024/1024))
}
