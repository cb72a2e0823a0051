package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the service configuration, loaded from environment variables.
type Config struct {
	// Database
	DBUser     string
	DBPassword string
	DBHost     string
	DBPort     string
	DBName     string

	// Server
	Port           string
	TrustedProxies []string

	// Security
	JWTSecret string

	// Notifications
	AMQPURL        string
	NotifyExchange string
	NotifyRouting  string
	SendGridAPIKey string
	EmailFromName  string
	EmailFromAddr  string

	// Workflow engine
	BulkWorkers      int
	RetryMaxAttempts int
	RetryBaseDelay   time.Duration
	RetryMaxDelay    time.Duration

	// Rate limiting
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// Load reads the configuration from the environment, applying defaults.
func Load() *Config {
	cfg := &Config{
		DBUser:     getEnv("DB_USER", "root"),
		DBPassword: getEnv("DB_PASSWORD", "password"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBName:     getEnv("DB_NAME", "report_portal"),

		Port: getEnv("PORT", "8084"),

		JWTSecret: getEnv("JWT_SECRET", "your-secret-key-here"),

		AMQPURL:        getEnv("AMQP_URL", ""),
		NotifyExchange: getEnv("NOTIFY_EXCHANGE", "report-events"),
		NotifyRouting:  getEnv("NOTIFY_ROUTING_KEY", "report.status"),
		SendGridAPIKey: getEnv("SENDGRID_API_KEY", ""),
		EmailFromName:  getEnv("EMAIL_FROM_NAME", "City Report Portal"),
		EmailFromAddr:  getEnv("EMAIL_FROM_ADDR", "no-reply@reportportal.example"),

		BulkWorkers:      getEnvInt("BULK_WORKERS", 8),
		RetryMaxAttempts: getEnvInt("RETRY_MAX_ATTEMPTS", 3),
		RetryBaseDelay:   getEnvDuration("RETRY_BASE_DELAY", 500*time.Millisecond),
		RetryMaxDelay:    getEnvDuration("RETRY_MAX_DELAY", 10*time.Second),

		RateLimitRequests: getEnvInt("RATE_LIMIT_REQUESTS", 120),
		RateLimitWindow:   getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
	}

	if proxies := os.Getenv("TRUSTED_PROXIES"); proxies != "" {
		cfg.TrustedProxies = strings.Split(proxies, ",")
		for i, proxy := range cfg.TrustedProxies {
			cfg.TrustedProxies[i] = strings.TrimSpace(proxy)
		}
	}

	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}
