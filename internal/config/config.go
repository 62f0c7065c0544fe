package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	ServerPort       string
	Env              string
	LogLevel         string
	DatabaseType     string
	DatabaseURL      string
	DatabasePath     string
	MigrationsPath   string
	SessionDuration  time.Duration
	RememberDuration time.Duration
	RememberSecret   string
	SweepInterval    time.Duration
}

// Load reads configuration from the environment (and an optional .env
// file) with sensible defaults.
func Load() *Config {
	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	return &Config{
		ServerPort:       getEnv("PORT", "8080"),
		Env:              getEnv("APP_ENV", "dev"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		DatabaseType:     getEnv("DB_TYPE", "sqlite"),
		DatabaseURL:      getEnv("DB_URL", ""),
		DatabasePath:     getEnv("DB_PATH", "./eduportal.db"),
		MigrationsPath:   getEnv("MIGRATIONS_PATH", "./migrations"),
		SessionDuration:  getDuration("SESSION_DURATION", 24*time.Hour),
		RememberDuration: getDuration("REMEMBER_DURATION", 30*24*time.Hour),
		RememberSecret:   getEnv("REMEMBER_SECRET", ""),
		SweepInterval:    getDuration("SWEEP_INTERVAL", 6*time.Hour),
	}
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getDuration reads a duration environment variable or returns a default value
func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}
