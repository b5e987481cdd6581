package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the sync engine process (both cmd/api
// and cmd/worker load the same struct; the worker simply never touches the
// HTTP-only fields).
type Config struct {
	Environment string
	Version     string
	Port        string
	BaseURL     string

	AllowedOrigins []string

	LogLevel string
	LogFile  string

	Database struct {
		Host         string
		Port         int
		User         string
		Password     string
		Name         string
		SSLMode      string
		MaxOpenConns int
		MaxIdleConns int
		MaxLifetime  time.Duration
	}

	Redis struct {
		Addr     string
		Password string
		DB       int
	}

	// Worker holds the asynq worker runtime's tunables (C4).
	Worker struct {
		Concurrency         int
		ScanWeight          int64
		ReconciliationWeight int64
		PushWeight          int64
		WebhookWeight       int64
	}

	// Vault holds the credential vault's (D1) key-derivation material.
	Vault struct {
		Passphrase string
		Salt       string
	}

	// Reconciliation holds the scheduled sweep's (D4) cron tunables.
	Reconciliation struct {
		CronSpec     string
		SweepAfter   time.Duration
	}

	Monitoring struct {
		MetricsEnabled   bool
		MetricsNamespace string
	}

	OTel struct {
		Enabled        bool
		Endpoint       string
		Username       string
		Password       string
		ServiceName    string
		ServiceVersion string
	}
}

var AppConfig Config

// LoadConfig initializes the application configuration from the environment
// (and a .env file, if present).
func LoadConfig() error {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

	AppConfig.Environment = getEnvWithDefault("APP_ENV", "development")
	AppConfig.Version = getEnvWithDefault("APP_VERSION", "1.0.0")
	AppConfig.Port = getEnvWithDefault("PORT", "8080")

	AppConfig.BaseURL = getEnvWithDefault("BASE_URL", "http://localhost:"+AppConfig.Port)

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		AppConfig.AllowedOrigins = []string{"http://localhost:3000"}
	} else {
		AppConfig.AllowedOrigins = strings.Split(allowedOrigins, ",")
	}

	AppConfig.LogLevel = getEnvWithDefault("LOG_LEVEL", "info")
	AppConfig.LogFile = getEnvWithDefault("LOG_FILE", "")

	AppConfig.Database.Host = getEnvWithDefault("DB_HOST", "localhost")
	AppConfig.Database.Port = getEnvAsInt("DB_PORT", 5432)
	AppConfig.Database.User = getEnvWithDefault("DB_USER", "postgres")
	AppConfig.Database.Password = os.Getenv("DB_PASSWORD")
	AppConfig.Database.Name = getEnvWithDefault("DB_NAME", "catalog_sync")
	AppConfig.Database.SSLMode = getEnvWithDefault("DB_SSL_MODE", "disable")
	AppConfig.Database.MaxOpenConns = getEnvAsInt("DB_MAX_OPEN_CONNS", 25)
	AppConfig.Database.MaxIdleConns = getEnvAsInt("DB_MAX_IDLE_CONNS", 25)
	AppConfig.Database.MaxLifetime = getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute)

	AppConfig.Redis.Addr = getEnvWithDefault("REDIS_ADDR", "localhost:6379")
	AppConfig.Redis.Password = os.Getenv("REDIS_PASSWORD")
	AppConfig.Redis.DB = getEnvAsInt("REDIS_DB", 0)

	AppConfig.Worker.Concurrency = getEnvAsInt("WORKER_CONCURRENCY", 10)
	AppConfig.Worker.ScanWeight = int64(getEnvAsInt("WORKER_SCAN_WEIGHT", 4))
	AppConfig.Worker.ReconciliationWeight = int64(getEnvAsInt("WORKER_RECONCILIATION_WEIGHT", 4))
	AppConfig.Worker.PushWeight = int64(getEnvAsInt("WORKER_PUSH_WEIGHT", 8))
	AppConfig.Worker.WebhookWeight = int64(getEnvAsInt("WORKER_WEBHOOK_WEIGHT", 16))

	AppConfig.Vault.Passphrase = os.Getenv("VAULT_PASSPHRASE")
	AppConfig.Vault.Salt = getEnvWithDefault("VAULT_SALT", "catalog-sync-engine-vault")
	if AppConfig.Environment == "production" && AppConfig.Vault.Passphrase == "" {
		return fmt.Errorf("VAULT_PASSPHRASE is required in production")
	}

	AppConfig.Reconciliation.CronSpec = getEnvWithDefault("RECONCILIATION_CRON", "0 0 * * * *")
	AppConfig.Reconciliation.SweepAfter = getEnvAsDuration("RECONCILIATION_SWEEP_AFTER", 6*time.Hour)

	AppConfig.Monitoring.MetricsEnabled = getEnvAsBool("METRICS_ENABLED", true)
	AppConfig.Monitoring.MetricsNamespace = getEnvWithDefault("METRICS_NAMESPACE", "catalog_sync")

	AppConfig.OTel.Enabled = getEnvAsBool("OTEL_ENABLED", false)
	AppConfig.OTel.Endpoint = os.Getenv("OTEL_ENDPOINT")
	AppConfig.OTel.Username = os.Getenv("OTEL_USERNAME")
	AppConfig.OTel.Password = os.Getenv("OTEL_PASSWORD")
	AppConfig.OTel.ServiceName = getEnvWithDefault("OTEL_SERVICE_NAME", "catalog-sync-engine")
	AppConfig.OTel.ServiceVersion = AppConfig.Version

	return nil
}

func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host, c.Database.Port, c.Database.User, c.Database.Password,
		c.Database.Name, c.Database.SSLMode)
}

func getEnvAsInt(key string, defaultVal int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvWithDefault(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}
