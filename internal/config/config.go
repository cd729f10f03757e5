// Package config loads application configuration from environment
// variables with sensible defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/welldanyogia/mime-sentry/internal/mime"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig
	SMTP       SMTPConfig
	Database   DatabaseConfig
	Quarantine QuarantineConfig
	Scan       ScanConfig
	Auth       AuthConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `validate:"required"`
	Port string `validate:"required,numeric"`
}

// SMTPConfig holds SMTP ingress configuration
type SMTPConfig struct {
	Port              int           `validate:"required,min=1,max=65535"`
	Hostname          string        `validate:"required,hostname"`
	MaxMessageSize    int64         `validate:"min=1024"`
	MaxRecipients     int           `validate:"min=1"`
	ConnectionTimeout time.Duration `validate:"min=1s"`
}

// DatabaseConfig holds PostgreSQL connection configuration
type DatabaseConfig struct {
	Host     string `validate:"required"`
	Port     string `validate:"required,numeric"`
	User     string `validate:"required"`
	Password string
	DBName   string `validate:"required"`
	SSLMode  string `validate:"oneof=disable require verify-ca verify-full"`
}

// QuarantineConfig holds S3-compatible quarantine storage configuration
type QuarantineConfig struct {
	Enabled   bool
	Endpoint  string
	Region    string `validate:"required_with=Enabled"`
	Bucket    string
	AccessKey string
	SecretKey string
}

// ScanConfig holds the MIME processor knobs
type ScanConfig struct {
	HeaderLimit    int  `validate:"min=64"`
	MaxDepth       int  `validate:"min=1,max=1000"`
	MaxBoundaryLen int  `validate:"min=1"`
	MaxLineLength  int  `validate:"min=64"`
	Downgrade      bool // rewrite 8-bit leaf bodies to quoted-printable
}

// AuthConfig holds the API authentication configuration. TokenHash is a
// bcrypt hash of the single service token; an empty hash disables auth.
type AuthConfig struct {
	TokenHash string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnv("SERVER_PORT", "8080"),
		},
		SMTP: SMTPConfig{
			Port:              getIntEnv("SMTP_PORT", 2525),
			Hostname:          getEnv("SMTP_HOSTNAME", "localhost"),
			MaxMessageSize:    int64(getIntEnv("SMTP_MAX_MESSAGE_SIZE", 26214400)),
			MaxRecipients:     getIntEnv("SMTP_MAX_RECIPIENTS", 100),
			ConnectionTimeout: getDurationEnv("SMTP_CONNECTION_TIMEOUT", 5*time.Minute),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "mime_sentry"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Quarantine: QuarantineConfig{
			Enabled:   getBoolEnv("QUARANTINE_ENABLED", false),
			Endpoint:  getEnv("QUARANTINE_S3_ENDPOINT", ""),
			Region:    getEnv("QUARANTINE_S3_REGION", "us-east-1"),
			Bucket:    getEnv("QUARANTINE_S3_BUCKET", "mime-sentry-quarantine"),
			AccessKey: getEnv("QUARANTINE_S3_ACCESS_KEY", ""),
			SecretKey: getEnv("QUARANTINE_S3_SECRET_KEY", ""),
		},
		Scan: ScanConfig{
			HeaderLimit:    getIntEnv("SCAN_HEADER_LIMIT", mime.DefaultLimits().HeaderLimit),
			MaxDepth:       getIntEnv("SCAN_MAX_DEPTH", mime.DefaultLimits().MaxDepth),
			MaxBoundaryLen: getIntEnv("SCAN_MAX_BOUNDARY_LEN", mime.DefaultLimits().MaxBoundaryLen),
			MaxLineLength:  getIntEnv("SCAN_MAX_LINE_LENGTH", 1024),
			Downgrade:      getBoolEnv("SCAN_DOWNGRADE", false),
		},
		Auth: AuthConfig{
			TokenHash: getEnv("API_TOKEN_BCRYPT", ""),
		},
	}
}

// Validate checks the configuration against its struct tags.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Limits returns the MIME processor limits from the scan section.
func (c *ScanConfig) Limits() mime.Limits {
	return mime.Limits{
		HeaderLimit:    c.HeaderLimit,
		MaxDepth:       c.MaxDepth,
		MaxBoundaryLen: c.MaxBoundaryLen,
	}
}

// DSN returns the PostgreSQL connection string
func (d *DatabaseConfig) DSN() string {
	return "host=" + d.Host +
		" port=" + d.Port +
		" user=" + d.User +
		" password=" + d.Password +
		" dbname=" + d.DBName +
		" sslmode=" + d.SSLMode
}

// URL returns the PostgreSQL connection URL used by the migration tool
func (d *DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode)
}

// getEnv returns environment variable value or default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnv returns integer from environment variable or default
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

// getBoolEnv returns boolean from environment variable or default
func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		switch value {
		case "true", "1", "yes":
			return true
		case "false", "0", "no":
			return false
		}
	}
	return defaultValue
}

// getDurationEnv returns duration from environment variable or default
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
