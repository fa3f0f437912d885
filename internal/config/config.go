package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Environment
	GoEnv string `env:"GO_ENV" default:"development"`

	// Service Ports
	HTTPPort int `env:"HTTP_PORT" default:"8080"`

	// Database
	DatabaseURL string `env:"DATABASE_URL" required:"true"`
	DBMaxConns  int    `env:"DB_MAX_CONNS" default:"10"`

	// Authentication (REST surface only, sockets identify by principal id)
	JWTSecret string `env:"JWT_SECRET" required:"true"`

	// Redis intent bridge
	RedisURL      string `env:"REDIS_URL" default:"redis://redis:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	NotifyChannel string `env:"NOTIFY_CHANNEL" default:"imis:notify:intents"`

	// Dispatcher
	NotifyWorkers   int           `env:"NOTIFY_WORKERS" default:"4"`
	NotifyQueueSize int           `env:"NOTIFY_QUEUE_SIZE" default:"256"`
	EmailBatchSize  int           `env:"EMAIL_BATCH_SIZE" default:"10"`
	EmailBatchDelay time.Duration `env:"EMAIL_BATCH_DELAY" default:"2s"`

	// Mail
	SMTPHost          string        `env:"SMTP_HOST"`
	SMTPPort          int           `env:"SMTP_PORT" default:"587"`
	SMTPUsername      string        `env:"SMTP_USERNAME"`
	SMTPPassword      string        `env:"SMTP_PASSWORD"`
	SMTPTimeout       time.Duration `env:"SMTP_TIMEOUT" default:"30s"`
	MailFrom          string        `env:"MAIL_FROM" default:"itdevelopers@imis.local"`
	MailSubjectPrefix string        `env:"MAIL_SUBJECT_PREFIX" default:"[Imis]"`
	AppURL            string        `env:"APP_URL" default:"http://localhost:3000"`

	// Websocket
	WSMaxMessageSize int64         `env:"WS_MAX_MESSAGE_SIZE" default:"65536"`
	WSRateLimit      float64       `env:"WS_RATE_LIMIT" default:"10"`
	WSRateBurst      int           `env:"WS_RATE_BURST" default:"20"`
	WSHandlerTimeout time.Duration `env:"WS_HANDLER_TIMEOUT" default:"10s"`
	LikeLockTimeout  time.Duration `env:"LIKE_LOCK_TIMEOUT" default:"3s"`

	// Development
	LogLevel    string   `env:"LOG_LEVEL" default:"debug"`
	LogFormat   string   `env:"LOG_FORMAT" default:"text"`
	CORSOrigins []string `env:"CORS_ORIGINS" default:"http://localhost:3000"`
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	// A missing .env is fine, system env vars still apply
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	config := &Config{}

	loadEnvString(&config.GoEnv, "GO_ENV", "development")

	if err := loadEnvInt(&config.HTTPPort, "HTTP_PORT", 8080); err != nil {
		return nil, err
	}

	// Database
	if err := loadEnvStringRequired(&config.DatabaseURL, "DATABASE_URL"); err != nil {
		return nil, err
	}
	if err := loadEnvInt(&config.DBMaxConns, "DB_MAX_CONNS", 10); err != nil {
		return nil, err
	}

	// Authentication
	if err := loadEnvStringRequired(&config.JWTSecret, "JWT_SECRET"); err != nil {
		return nil, err
	}

	// Redis
	loadEnvString(&config.RedisURL, "REDIS_URL", "redis://redis:6379")
	loadEnvString(&config.RedisPassword, "REDIS_PASSWORD", "")
	loadEnvString(&config.NotifyChannel, "NOTIFY_CHANNEL", "imis:notify:intents")

	// Dispatcher
	if err := loadEnvInt(&config.NotifyWorkers, "NOTIFY_WORKERS", 4); err != nil {
		return nil, err
	}
	if err := loadEnvInt(&config.NotifyQueueSize, "NOTIFY_QUEUE_SIZE", 256); err != nil {
		return nil, err
	}
	if err := loadEnvInt(&config.EmailBatchSize, "EMAIL_BATCH_SIZE", 10); err != nil {
		return nil, err
	}
	if err := loadEnvDuration(&config.EmailBatchDelay, "EMAIL_BATCH_DELAY", 2*time.Second); err != nil {
		return nil, err
	}

	// Mail
	loadEnvString(&config.SMTPHost, "SMTP_HOST", "")
	if err := loadEnvInt(&config.SMTPPort, "SMTP_PORT", 587); err != nil {
		return nil, err
	}
	loadEnvString(&config.SMTPUsername, "SMTP_USERNAME", "")
	loadEnvString(&config.SMTPPassword, "SMTP_PASSWORD", "")
	if err := loadEnvDuration(&config.SMTPTimeout, "SMTP_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	loadEnvString(&config.MailFrom, "MAIL_FROM", "itdevelopers@imis.local")
	loadEnvString(&config.MailSubjectPrefix, "MAIL_SUBJECT_PREFIX", "[Imis]")
	loadEnvString(&config.AppURL, "APP_URL", "http://localhost:3000")

	// Websocket
	if err := loadEnvInt64(&config.WSMaxMessageSize, "WS_MAX_MESSAGE_SIZE", 64*1024); err != nil {
		return nil, err
	}
	if err := loadEnvFloat(&config.WSRateLimit, "WS_RATE_LIMIT", 10); err != nil {
		return nil, err
	}
	if err := loadEnvInt(&config.WSRateBurst, "WS_RATE_BURST", 20); err != nil {
		return nil, err
	}
	if err := loadEnvDuration(&config.WSHandlerTimeout, "WS_HANDLER_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if err := loadEnvDuration(&config.LikeLockTimeout, "LIKE_LOCK_TIMEOUT", 3*time.Second); err != nil {
		return nil, err
	}

	// Development
	loadEnvString(&config.LogLevel, "LOG_LEVEL", "debug")
	loadEnvString(&config.LogFormat, "LOG_FORMAT", "text")
	loadEnvStringSlice(&config.CORSOrigins, "CORS_ORIGINS", []string{"http://localhost:3000"})

	return config, nil
}

// Helper functions for type conversion and validation
func loadEnvString(target *string, key, defaultValue string) {
	if value := os.Getenv(key); value != "" {
		*target = value
	} else {
		*target = defaultValue
	}
}

func loadEnvStringRequired(target *string, key string) error {
	value := os.Getenv(key)
	if value == "" {
		return fmt.Errorf("required environment variable %s is not set", key)
	}
	*target = value
	return nil
}

func loadEnvInt(target *int, key string, defaultValue int) error {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer value for %s: %v", key, err)
		}
		*target = parsed
	} else {
		*target = defaultValue
	}
	return nil
}

func loadEnvInt64(target *int64, key string, defaultValue int64) error {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer value for %s: %v", key, err)
		}
		*target = parsed
	} else {
		*target = defaultValue
	}
	return nil
}

func loadEnvFloat(target *float64, key string, defaultValue float64) error {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid float value for %s: %v", key, err)
		}
		*target = parsed
	} else {
		*target = defaultValue
	}
	return nil
}

func loadEnvDuration(target *time.Duration, key string, defaultValue time.Duration) error {
	if value := os.Getenv(key); value != "" {
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration value for %s: %v", key, err)
		}
		*target = parsed
	} else {
		*target = defaultValue
	}
	return nil
}

func loadEnvStringSlice(target *[]string, key string, defaultValue []string) {
	if value := os.Getenv(key); value != "" {
		*target = strings.Split(value, ",")
		// Trim whitespace from each element
		for i, v := range *target {
			(*target)[i] = strings.TrimSpace(v)
		}
	} else {
		*target = defaultValue
	}
}

// Validate performs validation on the loaded configuration
func (c *Config) Validate() error {
	var errors []string

	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		errors = append(errors, "HTTP_PORT must be between 1 and 65535")
	}
	if c.SMTPHost != "" && (c.SMTPPort < 1 || c.SMTPPort > 65535) {
		errors = append(errors, "SMTP_PORT must be between 1 and 65535")
	}
	if c.SMTPHost != "" && c.SMTPTimeout <= 0 {
		errors = append(errors, "SMTP_TIMEOUT must be positive")
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, c.LogLevel) {
		errors = append(errors, fmt.Sprintf("LOG_LEVEL must be one of: %s", strings.Join(validLogLevels, ", ")))
	}

	validLogFormats := []string{"text", "json"}
	if !contains(validLogFormats, c.LogFormat) {
		errors = append(errors, fmt.Sprintf("LOG_FORMAT must be one of: %s", strings.Join(validLogFormats, ", ")))
	}

	// Validate JWT secret length (should be at least 32 characters for security)
	if len(c.JWTSecret) < 32 {
		errors = append(errors, "JWT_SECRET should be at least 32 characters long")
	}

	if c.NotifyWorkers < 1 {
		errors = append(errors, "NOTIFY_WORKERS must be at least 1")
	}
	if c.EmailBatchSize < 1 {
		errors = append(errors, "EMAIL_BATCH_SIZE must be at least 1")
	}
	if c.EmailBatchDelay < 0 {
		errors = append(errors, "EMAIL_BATCH_DELAY must not be negative")
	}
	if c.WSRateLimit <= 0 || c.WSRateBurst < 1 {
		errors = append(errors, "WS_RATE_LIMIT and WS_RATE_BURST must be positive")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errors, "; "))
	}

	return nil
}

// IsDevelopment returns true if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.GoEnv == "development"
}

// IsProduction returns true if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.GoEnv == "production"
}

// SMTPAddr returns host:port of the mail relay, empty when mail is disabled
func (c *Config) SMTPAddr() string {
	if c.SMTPHost == "" {
		return ""
	}
	return fmt.Sprintf("%s:%d", c.SMTPHost, c.SMTPPort)
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
