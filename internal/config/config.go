package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	ServerPort     string
	Env            string
	DatabaseType   string
	DatabasePath   string
	DatabaseURL    string
	MigrationsPath string

	// TrustProxy takes the client IP from X-Forwarded-For or X-Real-IP.
	// Only enable it behind a reverse proxy that sets those headers.
	TrustProxy bool

	// Notification links
	AppBaseURL         string
	DefaultCountryCode string

	// Site access gate
	SitePassword     string
	SitePasswordHash string
	SessionSecret    string
	SessionDuration  time.Duration

	// Amazon SES
	AWSRegion       string
	SESFromEmail    string
	SESFromName     string
	EmailDebug      bool
	AssignmentEmail bool
}

// Load reads configuration from a .env file (if any) and environment variables with sensible defaults
func Load() *Config {
	// A missing .env file is fine, the environment wins anyway
	_ = godotenv.Load()

	return &Config{
		ServerPort:         getEnv("PORT", "8080"),
		Env:                getEnv("ENV", "development"),
		DatabaseType:       getEnv("DB_TYPE", "sqlite"),
		DatabasePath:       getEnv("DB_PATH", "./impactfamilies.db"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		MigrationsPath:     getEnv("MIGRATIONS_PATH", ""),
		TrustProxy:         getBool("TRUST_PROXY", false),
		AppBaseURL:         getEnv("APP_BASE_URL", "http://localhost:3000"),
		DefaultCountryCode: getEnv("DEFAULT_COUNTRY_CODE", "33"),
		SitePassword:       getEnv("SITE_PASSWORD", ""),
		SitePasswordHash:   getEnv("SITE_PASSWORD_HASH", ""),
		SessionSecret:      getEnv("SESSION_SECRET", ""),
		SessionDuration:    getDuration("SESSION_DURATION", 24*time.Hour),
		AWSRegion:          getEnv("AWS_REGION", "eu-west-3"),
		SESFromEmail:       getEnv("SES_FROM_EMAIL", ""),
		SESFromName:        getEnv("SES_FROM_NAME", "Integration"),
		EmailDebug:         getBool("EMAIL_DEBUG", false),
		AssignmentEmail:    getBool("ASSIGNMENT_EMAIL", true),
	}
}

// IsDev reports whether the app runs in development mode
func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	value, err := time.ParseDuration(os.Getenv(key))
	if err != nil || value <= 0 {
		return defaultValue
	}
	return value
}
