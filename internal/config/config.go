package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all service configuration.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Import    ImportConfig
	Quotation QuotationConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
}

type JWTConfig struct {
	Secret      string
	Issuer      string
	ExpiryHours int
}

// ImportConfig controls legacy workbook uploads.
type ImportConfig struct {
	MaxFileSize  int64 // bytes
	TempDir      string
	AllowedTypes []string
}

// QuotationConfig controls the live UCS quotation cache.
type QuotationConfig struct {
	CacheTTL time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 60*time.Second),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "impactbalance"),
			Password: getEnv("DB_PASSWORD", "impactbalance_dev_password"),
			DBName:   getEnv("DB_NAME", "impactbalance"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: getIntEnv("DB_MAX_CONNS", 20),
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", "dev-secret-change-in-production"),
			Issuer:      getEnv("JWT_ISSUER", "impact-balance"),
			ExpiryHours: getIntEnv("JWT_EXPIRY_HOURS", 24),
		},
		Import: ImportConfig{
			MaxFileSize: int64(getIntEnv("IMPORT_MAX_SIZE_MB", 25)) * 1024 * 1024,
			TempDir:     getEnv("IMPORT_TEMP_DIR", "/tmp/impact-balance-imports"),
			AllowedTypes: []string{
				"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
				"text/csv",
			},
		},
		Quotation: QuotationConfig{
			CacheTTL: getDurationEnv("QUOTATION_CACHE_TTL", 5*time.Minute),
		},
	}
}

// DSN returns the Postgres connection string.
func (d *DatabaseConfig) DSN() string {
	return "postgres://" + d.User + ":" + d.Password +
		"@" + d.Host + ":" + d.Port +
		"/" + d.DBName + "?sslmode=" + d.SSLMode
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
