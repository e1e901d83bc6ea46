package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Module provides the application configuration.
var Module = fx.Provide(Load)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPPort    string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int

	RedisAddr     string
	RedisPassword string

	PropertyData PropertyDataConfig

	Scheduler SchedulerConfig
}

// PropertyDataConfig configures the external valuation provider client.
type PropertyDataConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration

	// Outbound throttle against the provider's own rate limit.
	RateLimitPerSecond float64
	RateLimitBurst     int
}

// SchedulerConfig controls background jobs.
type SchedulerConfig struct {
	TickInterval time.Duration
	JobTimeout   time.Duration
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:     getenv("APP_SERVICE", "propsight"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),
		HTTPPort:    getenv("HTTP_PORT", "8080"),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "propsight"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 25),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),

		RedisAddr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
		RedisPassword: getenv("REDIS_PASSWORD", ""),

		PropertyData: PropertyDataConfig{
			BaseURL: getenv("PROPERTYDATA_BASE_URL", "https://api.propertydata.co.uk"),
			APIKey:  strings.TrimSpace(getenv("PROPERTYDATA_API_KEY", "")),
			Timeout: time.Duration(getenvInt("PROPERTYDATA_TIMEOUT_SECONDS", 10)) * time.Second,

			RateLimitPerSecond: getenvFloat("PROPERTYDATA_RATE_LIMIT_PER_SECOND", 4),
			RateLimitBurst:     getenvInt("PROPERTYDATA_RATE_LIMIT_BURST", 8),
		},

		Scheduler: SchedulerConfig{
			TickInterval: time.Duration(getenvInt("SCHEDULER_TICK_SECONDS", 3600)) * time.Second,
			JobTimeout:   time.Duration(getenvInt("SCHEDULER_JOB_TIMEOUT_SECONDS", 120)) * time.Second,
		},
	}
}

func getenv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return fallback
}

func getenvFloat(key string, fallback float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
	}
	return fallback
}
