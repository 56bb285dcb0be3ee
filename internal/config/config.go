package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // gateway timezone in minimal containers

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	NewRelic NewRelicConfig
	Gateway  GatewayConfig
	Billing  BillingConfig
	Sweeper  SweeperConfig
	Kafka    KafkaConfig
	Storage  StorageConfig
	Worker   WorkerConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	Env            string
	AllowedOrigins []string
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	DBName       string
	SSLMode      string
	AutoMigrate  bool
	MaxOpenConns int
	MaxIdleConns int
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Enabled  bool
}

// NewRelicConfig holds New Relic configuration.
type NewRelicConfig struct {
	AppName    string
	LicenseKey string
	Enabled    bool
}

// GatewayConfig holds the VNPay merchant settings handed to the gateway adapter.
type GatewayConfig struct {
	TmnCode    string        `validate:"required"`
	HashSecret string        `validate:"required,min=8"`
	PayURL     string        `validate:"required,url"`
	ReturnURL  string        `validate:"required,url"`
	Version    string        `validate:"required"`
	Command    string        `validate:"required"`
	CurrCode   string        `validate:"required,len=3"`
	Locale     string        `validate:"required,oneof=vn en"`
	OrderType  string        `validate:"required"`
	Timezone   string        `validate:"required"`
	ExpireIn   time.Duration `validate:"gt=0"`
}

// BillingConfig holds invoice and pricing settings.
type BillingConfig struct {
	TaxRate           string // decimal fraction, e.g. "0.1"
	InvoicePrefix     string
	CertificatePrefix string
}

// SweeperConfig holds the combo expiration job schedule.
type SweeperConfig struct {
	Enabled bool
	Spec    string
	Timeout time.Duration
	LockTTL time.Duration
}

// KafkaConfig holds the payment event producer settings.
type KafkaConfig struct {
	Brokers []string
	Topic   string
	Enabled bool
}

// StorageConfig holds S3 settings for invoice documents.
type StorageConfig struct {
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	Endpoint  string
	Enabled   bool
}

// WorkerConfig holds background job settings.
type WorkerConfig struct {
	Enabled      bool
	Queue        string
	MaxRetries   int
	RetryBackoff time.Duration
}

// Load loads configuration from environment variables. A .env file in the
// working directory is read first when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port:           getEnv("SERVER_PORT", "8080"),
			ReadTimeout:    getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:   getDurationEnv("SERVER_WRITE_TIMEOUT", 10*time.Second),
			Env:            getEnv("APP_ENV", "development"),
			AllowedOrigins: getListEnv("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", "postgres"),
			DBName:       getEnv("DB_NAME", "lms"),
			SSLMode:      getEnv("DB_SSLMODE", "disable"),
			AutoMigrate:  getBoolEnv("DB_AUTO_MIGRATE", true),
			MaxOpenConns: getIntEnv("DB_MAX_OPEN_CONNS", 50),
			MaxIdleConns: getIntEnv("DB_MAX_IDLE_CONNS", 25),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
			Enabled:  getBoolEnv("REDIS_ENABLED", true),
		},
		NewRelic: NewRelicConfig{
			AppName:    getEnv("NEW_RELIC_APP_NAME", "lms-payments"),
			LicenseKey: getEnv("NEW_RELIC_LICENSE_KEY", ""),
			Enabled:    getBoolEnv("NEW_RELIC_ENABLED", false),
		},
		Gateway: GatewayConfig{
			TmnCode:    getEnv("VNPAY_TMN_CODE", ""),
			HashSecret: getEnv("VNPAY_HASH_SECRET", ""),
			PayURL:     getEnv("VNPAY_PAY_URL", "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html"),
			ReturnURL:  getEnv("VNPAY_RETURN_URL", "http://localhost:8080/v1/payments/vnpay/return"),
			Version:    getEnv("VNPAY_VERSION", "2.1.0"),
			Command:    getEnv("VNPAY_COMMAND", "pay"),
			CurrCode:   getEnv("VNPAY_CURR_CODE", "VND"),
			Locale:     getEnv("VNPAY_LOCALE", "vn"),
			OrderType:  getEnv("VNPAY_ORDER_TYPE", "other"),
			Timezone:   getEnv("VNPAY_TIMEZONE", "Asia/Ho_Chi_Minh"),
			ExpireIn:   getDurationEnv("VNPAY_EXPIRE_IN", 15*time.Minute),
		},
		Billing: BillingConfig{
			TaxRate:           getEnv("BILLING_TAX_RATE", "0"),
			InvoicePrefix:     getEnv("BILLING_INVOICE_PREFIX", "INV"),
			CertificatePrefix: getEnv("BILLING_CERTIFICATE_PREFIX", "CERT"),
		},
		Sweeper: SweeperConfig{
			Enabled: getBoolEnv("SWEEPER_ENABLED", true),
			Spec:    getEnv("SWEEPER_SPEC", "@every 1h"),
			Timeout: getDurationEnv("SWEEPER_TIMEOUT", 2*time.Minute),
			LockTTL: getDurationEnv("SWEEPER_LOCK_TTL", 5*time.Minute),
		},
		Kafka: KafkaConfig{
			Brokers: getListEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
			Topic:   getEnv("KAFKA_PAYMENT_TOPIC", "lms.payments"),
			Enabled: getBoolEnv("KAFKA_ENABLED", false),
		},
		Storage: StorageConfig{
			Region:    getEnv("S3_REGION", "ap-southeast-1"),
			Bucket:    getEnv("S3_BUCKET", ""),
			AccessKey: getEnv("S3_ACCESS_KEY", ""),
			SecretKey: getEnv("S3_SECRET_KEY", ""),
			Endpoint:  getEnv("S3_ENDPOINT", ""),
			Enabled:   getBoolEnv("S3_ENABLED", false),
		},
		Worker: WorkerConfig{
			Enabled:      getBoolEnv("WORKER_ENABLED", true),
			Queue:        getEnv("WORKER_QUEUE", "lms:jobs:invoice_document"),
			MaxRetries:   getIntEnv("WORKER_MAX_RETRIES", 3),
			RetryBackoff: getDurationEnv("WORKER_RETRY_BACKOFF", 10*time.Second),
		},
	}
}

// Validate checks the sections the service cannot start without.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := time.LoadLocation(c.Gateway.Timezone); err != nil {
		return fmt.Errorf("invalid config: gateway timezone %q: %w", c.Gateway.Timezone, err)
	}
	if c.Storage.Enabled && c.Storage.Bucket == "" {
		return fmt.Errorf("invalid config: S3_BUCKET is required when storage is enabled")
	}
	return nil
}

// DSN returns the lib/pq connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
