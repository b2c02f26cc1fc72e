// Package config resolves service settings from the environment and .env files.
package config

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the service configuration
type Config struct {
	Port                string
	GinMode             string
	DatabaseURL         string
	DataPath            string
	JWTSecret           string
	APIMasterSecret     string
	AdminUsername       string
	AdminPassword       string
	LogLevel            string
	LogFormat           string
	RedisAddr           string
	MaxAvailabilitySets int
	DefaultRateLimit    int
	RateLimitRPS        float64
	RateLimitBurst      int
	PublicBaseURL       string
}

// LoadEnv loads the first .env found in the working directory or its parents
func LoadEnv() {
	for _, p := range []string{".env", "../.env", "../../.env"} {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
			return
		}
	}
}

// Load reads the configuration from environment variables with defaults
func Load() *Config {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("DATA_PATH", "api_keys.db")
	v.SetDefault("ADMIN_USERNAME", "admin")
	v.SetDefault("ADMIN_PASSWORD", "admin123")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("MAX_AVAILABILITY_SETS", 5)
	v.SetDefault("DEFAULT_RATE_LIMIT", 10000)
	v.SetDefault("RATE_LIMIT_RPS", 5.0)
	v.SetDefault("RATE_LIMIT_BURST", 20)
	v.SetDefault("PUBLIC_BASE_URL", "http://localhost:8000")

	return &Config{
		Port:                v.GetString("PORT"),
		GinMode:             v.GetString("GIN_MODE"),
		DatabaseURL:         v.GetString("DATABASE_URL"),
		DataPath:            v.GetString("DATA_PATH"),
		JWTSecret:           v.GetString("JWT_SECRET"),
		APIMasterSecret:     v.GetString("API_MASTER_SECRET"),
		AdminUsername:       v.GetString("ADMIN_USERNAME"),
		AdminPassword:       v.GetString("ADMIN_PASSWORD"),
		LogLevel:            v.GetString("LOG_LEVEL"),
		LogFormat:           v.GetString("LOG_FORMAT"),
		RedisAddr:           v.GetString("REDIS_ADDR"),
		MaxAvailabilitySets: v.GetInt("MAX_AVAILABILITY_SETS"),
		DefaultRateLimit:    v.GetInt("DEFAULT_RATE_LIMIT"),
		RateLimitRPS:        v.GetFloat64("RATE_LIMIT_RPS"),
		RateLimitBurst:      v.GetInt("RATE_LIMIT_BURST"),
		PublicBaseURL:       strings.TrimRight(v.GetString("PUBLIC_BASE_URL"), "/"),
	}
}

// NewLogger builds a structured logger writing to w at the configured level and format
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(c.LogFormat) == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
