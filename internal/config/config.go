package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds everything the service needs at startup. Values come from
// the environment, optionally overlaid by a yaml file named by
// ELDERCARE_CONFIG.
type Config struct {
	DatabaseURL     string        `yaml:"database_url"`
	HTTPAddr        string        `yaml:"http_addr"`
	JWTSecret       string        `yaml:"jwt_secret"`
	RedisAddr       string        `yaml:"redis_addr"`
	RedisPassword   string        `yaml:"redis_password"`
	DeviceCacheTTL  time.Duration `yaml:"device_cache_ttl"`
	AlertWebhookURL string        `yaml:"alert_webhook_url"`
	WebhookTimeout  time.Duration `yaml:"webhook_timeout"`
	ShutdownGrace   time.Duration `yaml:"shutdown_grace"`
}

// Load builds the configuration. The yaml overlay, when present, wins over
// the environment. DATABASE_URL and AUTH_JWT_SECRET are required.
func Load() (Config, error) {
	cfg := Config{
		DatabaseURL:     getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
		HTTPAddr:        getenvDefault("HTTP_ADDR", ":8080"),
		JWTSecret:       getenvDefault("AUTH_JWT_SECRET", getenvDefault("JWT_SECRET", "")),
		RedisAddr:       getenvDefault("REDIS_ADDR", ""),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		DeviceCacheTTL:  getenvDuration("DEVICE_CACHE_TTL", 5*time.Minute),
		AlertWebhookURL: getenvDefault("ALERT_WEBHOOK_URL", ""),
		WebhookTimeout:  getenvDuration("ALERT_WEBHOOK_TIMEOUT", 5*time.Second),
		ShutdownGrace:   getenvDuration("SHUTDOWN_GRACE", 10*time.Second),
	}

	if path := os.Getenv("ELDERCARE_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}

	if cfg.DatabaseURL == "" {
		return cfg, errors.New("config: DATABASE_URL or PG_DSN is required")
	}
	if cfg.JWTSecret == "" {
		return cfg, errors.New("config: AUTH_JWT_SECRET is required")
	}
	return cfg, nil
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	if parsed, err := time.ParseDuration(value); err == nil {
		return parsed
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}
	return fallback
}
