// Package config loads server settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Defaults applied when the environment leaves a setting unset.
const (
	DefaultAddr          = ":8080"
	DefaultDBPath        = "./data/cardtidy.db"
	DefaultStaticPath    = "./web/static"
	DefaultLogLevel      = "info"
	DefaultMaxUploadSize = 10 << 20 // 10 MiB
	DefaultSessionTTL    = 24 * time.Hour
)

// Config holds the server settings.
type Config struct {
	Addr          string
	DBPath        string
	StaticPath    string
	SessionSecret string
	LogLevel      string
	MaxUploadSize int64
	SessionTTL    time.Duration
}

// Load reads the configuration from the environment. SESSION_SECRET is the
// only required setting; everything else has a default.
func Load() (*Config, error) {
	cfg := &Config{
		Addr:          getEnv("ADDR", DefaultAddr),
		DBPath:        getEnv("DB_PATH", DefaultDBPath),
		StaticPath:    getEnv("STATIC_PATH", DefaultStaticPath),
		SessionSecret: os.Getenv("SESSION_SECRET"),
		LogLevel:      getEnv("LOG_LEVEL", DefaultLogLevel),
		MaxUploadSize: DefaultMaxUploadSize,
		SessionTTL:    DefaultSessionTTL,
	}

	if cfg.SessionSecret == "" {
		return nil, fmt.Errorf("SESSION_SECRET must be set")
	}

	if v := os.Getenv("MAX_UPLOAD_SIZE"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid MAX_UPLOAD_SIZE %q", v)
		}
		cfg.MaxUploadSize = n
	}

	if v := os.Getenv("SESSION_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("invalid SESSION_TTL %q", v)
		}
		cfg.SessionTTL = d
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
