// Package config loads application configuration from the environment.
package config

import (
	"os"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port       string
	Env        string
	LogLevel   string
	ConfigPath string

	// APIKey guards the booking endpoints. Empty disables the check.
	APIKey             string
	AdminJWTSecret     string
	CORSAllowedOrigins []string

	ShopmonkeyAPIToken   string
	ShopmonkeyBaseURL    string
	ShopmonkeyLocationID string
	ShopUTCOffset        string

	GoogleSheetsID        string
	GoogleCredentialsPath string
	QualificationCacheTTL time.Duration

	RedisAddr     string
	RedisPassword string

	DatabaseURL string

	// Email: SendGrid when an API key is set, SES when a from address is
	// configured without one, stub otherwise.
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string
	SESFromEmail      string
	AWSRegion         string
	NotificationEmail string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:       getEnv("PORT", "8080"),
		Env:        getEnv("ENVIRONMENT", "development"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		ConfigPath: getEnv("CONFIG_PATH", "config.yaml"),

		APIKey:             getEnv("API_KEY", ""),
		AdminJWTSecret:     getEnv("ADMIN_JWT_SECRET", ""),
		CORSAllowedOrigins: splitOrigins(getEnv("ALLOWED_ORIGINS", "")),

		ShopmonkeyAPIToken:   getEnv("SHOPMONKEY_API_TOKEN", ""),
		ShopmonkeyBaseURL:    getEnv("SHOPMONKEY_API_BASE_URL", ""),
		ShopmonkeyLocationID: getEnv("SHOPMONKEY_LOCATION_ID", ""),
		ShopUTCOffset:        getEnv("SHOP_UTC_OFFSET", "-06:00"),

		GoogleSheetsID:        getEnv("GOOGLE_SHEETS_ID", ""),
		GoogleCredentialsPath: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
		QualificationCacheTTL: getEnvAsDuration("QUALIFICATION_CACHE_TTL", 5*time.Minute),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "Ridgeline Auto Scheduling"),
		SESFromEmail:      getEnv("SES_FROM_EMAIL", ""),
		AWSRegion:         getEnv("AWS_REGION", "us-east-1"),
		NotificationEmail: getEnv("NOTIFICATION_EMAIL", ""),
	}
}

// splitOrigins parses a comma-separated origin list. "*" allows everything.
func splitOrigins(v string) []string {
	if v == "" {
		return nil
	}
	if v == "*" {
		return []string{"*"}
	}
	parts := strings.Split(v, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
