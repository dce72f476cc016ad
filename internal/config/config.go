package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// LoadEnv loads variables from a .env file if present.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file found: %v", err)
	}
}

// GetEnv returns an environment variable or a default value.
func GetEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return defaultVal
}

// GetIntEnv returns an int environment variable or a default value.
func GetIntEnv(key string, defaultVal int) int {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

// GetDurationEnv returns a duration environment variable or a default value.
func GetDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

// GetDecimalEnv returns a decimal environment variable or a default value.
func GetDecimalEnv(key string, defaultVal decimal.Decimal) decimal.Decimal {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := decimal.NewFromString(val); err == nil {
			return d
		}
	}
	return defaultVal
}

// IsProduction checks if the app runs in production mode.
func IsProduction() bool {
	return GetEnv("ENV", "development") == "production"
}

type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// LedgerConfig holds the business limits injected into the wallet services.
type LedgerConfig struct {
	DailyLimit          decimal.Decimal
	MediumRiskThreshold int
	HighRiskThreshold   int
	ProcessingTimeout   time.Duration
	DefaultCurrency     string
	RateRefreshInterval time.Duration
}

type Config struct {
	Port         string
	Env          string
	StoreDriver  string
	LogLevel     string
	JWTSecret    string
	KafkaBrokers string
	Database     DatabaseConfig
	Redis        RedisConfig
	Ledger       LedgerConfig
}

// Load builds the application configuration from the environment.
func Load() *Config {
	return &Config{
		Port:         GetEnv("PORT", "3000"),
		Env:          GetEnv("ENV", "development"),
		StoreDriver:  GetEnv("STORE_DRIVER", "postgres"),
		LogLevel:     GetEnv("LOG_LEVEL", "info"),
		JWTSecret:    GetEnv("JWT_SECRET", "fxwallet"),
		KafkaBrokers: GetEnv("KAFKA_BROKERS", ""),
		Database: DatabaseConfig{
			Host:            GetEnv("DB_HOST", "localhost"),
			Port:            GetEnv("DB_PORT", "5432"),
			User:            GetEnv("DB_USER", "postgres"),
			Password:        GetEnv("DB_PASSWORD", "postgres"),
			Name:            GetEnv("DB_NAME", "fxwallet"),
			MaxIdleConns:    GetIntEnv("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns:    GetIntEnv("DB_MAX_OPEN_CONNS", 100),
			ConnMaxLifetime: GetDurationEnv("DB_CONN_MAX_LIFETIME", time.Hour),
			ConnMaxIdleTime: GetDurationEnv("DB_CONN_MAX_IDLE_TIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			Host:     GetEnv("REDIS_HOST", "localhost"),
			Port:     GetEnv("REDIS_PORT", "6379"),
			Password: GetEnv("REDIS_PASSWORD", ""),
			DB:       GetIntEnv("REDIS_DB", 0),
		},
		Ledger: LedgerConfig{
			DailyLimit:          GetDecimalEnv("MAX_DAILY_TRANSACTION_AMOUNT", decimal.NewFromInt(10000)),
			MediumRiskThreshold: GetIntEnv("RISK_MEDIUM_THRESHOLD", 5),
			HighRiskThreshold:   GetIntEnv("RISK_HIGH_THRESHOLD", 10),
			ProcessingTimeout:   GetDurationEnv("PROCESSING_TIMEOUT", 30*time.Second),
			DefaultCurrency:     GetEnv("DEFAULT_CURRENCY", "USD"),
			RateRefreshInterval: GetDurationEnv("RATE_REFRESH_INTERVAL", 0),
		},
	}
}
