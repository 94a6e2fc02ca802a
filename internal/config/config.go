// package config loads application configuration from environment variables.
package config

import (
	"os"
	"strconv"
)

// Config holds all application configuration.
type Config struct {
	// telegram
	TGApiID     int
	TGApiHash   string
	SessionsDir string
	TGRateLimit float64 // requests per second, shared by all tasks of one session

	// scanning
	MessageLimit    int
	MaxChannels     int
	MinParticipants int
	ScanConcurrency int // 0 runs every task at once

	// database (empty disables report persistence)
	DatabaseURL string

	// nats (empty disables event publishing)
	NatsURL string

	// server
	HTTPPort int

	// logging
	LogLevel string
	LogFile  string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg := &Config{
		TGApiID:         getEnvInt("TG_API_ID", 0),
		TGApiHash:       getEnv("TG_API_HASH", ""),
		SessionsDir:     getEnv("SESSIONS_DIR", "./sessions"),
		TGRateLimit:     getEnvFloat("TG_RPS", 2.0),
		MessageLimit:    getEnvInt("MESSAGE_LIMIT", 100),
		MaxChannels:     getEnvInt("MAX_CHANNELS", 50),
		MinParticipants: getEnvInt("MIN_PARTICIPANTS", 1500),
		ScanConcurrency: getEnvInt("SCAN_CONCURRENCY", 0),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		NatsURL:         getEnv("NATS_URL", ""),
		HTTPPort:        getEnvInt("HTTP_PORT", 3100),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFile:         getEnv("LOG_FILE", ""),
	}

	return cfg, nil
}

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// getEnvInt returns the integer value of an environment variable or a default.
func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}
