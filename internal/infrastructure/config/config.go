package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Config stores all configuration of the application
type Config struct {
	// Environment type
	EnvType string

	// Database
	DBDriver        string // postgres(默认) 或 mysql
	DBHost          string
	DBUser          string
	DBPassword      string
	DBName          string
	DBPort          string
	DBSSLMode       string
	DBMigrationMode string // 数据库迁移模式: "auto"(默认), "drop"(删除重建), "none"(不迁移)
	DBMaxIdleConns  int
	DBMaxOpenConns  int

	// Server
	ServerPort        string
	CORSAllowedOrigin string
	RateLimitRPS      float64 // 每个IP每秒请求数，<=0 关闭
	RateLimitBurst    int

	// Redis（可选，用于限制参考号生成频率）
	RedisEnabled         bool
	RedisHost            string
	RedisPort            string
	RedisPassword        string
	RedisDB              int
	IssuanceLimitPerHour int

	// Kafka（可选，结算事件）
	KafkaBrokers         []string
	KafkaSettlementTopic string

	// JWT Authentication
	JWTSecretKey string

	// Admin
	DefaultAdminPassword string

	// Billing
	MonthlyFee decimal.Decimal

	// Logging
	LogLevel  string
	LogFormat string
}

// LoadConfig loads config from environment variables based on ENV_TYPE
func LoadConfig() (*Config, error) {
	envType := strings.ToUpper(getEnv("ENV_TYPE", "LOCAL"))
	var prefix string
	switch envType {
	case "LOCAL":
		prefix = "LOCAL_"
	case "SERVER":
		prefix = "SERVER_"
	default:
		fmt.Printf("Warning: Unknown ENV_TYPE '%s', defaulting to LOCAL environment\n", envType)
		prefix = "LOCAL_"
		envType = "LOCAL"
	}

	monthlyFee, err := decimal.NewFromString(getEnv("MONTHLY_FEE", "50.00"))
	if err != nil {
		return nil, fmt.Errorf("invalid MONTHLY_FEE: %w", err)
	}

	cfg := &Config{
		EnvType: envType,

		// Database config - 优先使用带环境前缀的变量
		DBDriver:        strings.ToLower(getPrefixed(prefix, "DB_DRIVER", "postgres")),
		DBHost:          getPrefixed(prefix, "DB_HOST", "localhost"),
		DBUser:          getPrefixed(prefix, "DB_USER", "postgres"),
		DBPassword:      getPrefixed(prefix, "DB_PASSWORD", ""),
		DBName:          getPrefixed(prefix, "DB_NAME", "postgres"),
		DBPort:          getPrefixed(prefix, "DB_PORT", "5432"),
		DBSSLMode:       getPrefixed(prefix, "DB_SSLMODE", "disable"),
		DBMigrationMode: getPrefixed(prefix, "DB_MIGRATION_MODE", "auto"),
		DBMaxIdleConns:  getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
		DBMaxOpenConns:  getEnvAsInt("DB_MAX_OPEN_CONNS", 100),

		// Server config
		ServerPort:        getPrefixed(prefix, "SERVER_PORT", "5001"),
		CORSAllowedOrigin: getEnv("CORS_ALLOWED_ORIGIN", "http://localhost:5173"),
		RateLimitRPS:      getEnvAsFloat("RATE_LIMIT_RPS", 10),
		RateLimitBurst:    getEnvAsInt("RATE_LIMIT_BURST", 20),

		// Redis config
		RedisEnabled:         getEnvAsBool("REDIS_ENABLED", false),
		RedisHost:            getPrefixed(prefix, "REDIS_HOST", "localhost"),
		RedisPort:            getPrefixed(prefix, "REDIS_PORT", "6379"),
		RedisPassword:        getEnv("REDIS_PASSWORD", ""),
		RedisDB:              getEnvAsInt("REDIS_DB", 0),
		IssuanceLimitPerHour: getEnvAsInt("ISSUANCE_LIMIT_PER_HOUR", 10),

		// Kafka config
		KafkaBrokers:         splitList(getEnv("KAFKA_BROKERS", "")),
		KafkaSettlementTopic: getEnv("KAFKA_SETTLEMENT_TOPIC", "payment.settled"),

		// JWT Config
		JWTSecretKey: getEnv("JWT_SECRET_KEY", "dues-secret-key-change-in-production"),

		// Admin Config
		DefaultAdminPassword: getEnv("DEFAULT_ADMIN_PASSWORD", ""),

		MonthlyFee: monthlyFee,

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 检查配置是否可用
func (c *Config) Validate() error {
	switch c.DBDriver {
	case "postgres", "mysql":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.DBHost == "" || c.DBName == "" {
		return fmt.Errorf("database host and name are required")
	}
	if !c.MonthlyFee.IsPositive() {
		return fmt.Errorf("MONTHLY_FEE must be positive")
	}
	return nil
}

// GetDSN returns the database connection string
func (c *Config) GetDSN() string {
	if c.DBDriver == "mysql" {
		return c.DBUser + ":" + c.DBPassword + "@tcp(" + c.DBHost + ":" + c.DBPort + ")/" + c.DBName + "?charset=utf8mb4&parseTime=True&loc=Local"
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBSSLMode)
}

// GetRedisAddr returns the Redis address
func (c *Config) GetRedisAddr() string {
	return c.RedisHost + ":" + c.RedisPort
}

// KafkaEnabled 是否配置了 Kafka
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// getPrefixed 先读带前缀的变量，再读无前缀的变量
func getPrefixed(prefix, key, defaultValue string) string {
	return getEnv(prefix+key, getEnv(key, defaultValue))
}

// Helper function to get environment variable with default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// Helper function to get environment variable as integer with default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// Helper function to get environment variable as float with default value
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// Helper function to get environment variable as boolean with default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
