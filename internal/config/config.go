package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime settings. Values come from the environment (with a
// .env file loaded by the composition roots) and fall back to defaults that
// match the tuned production behavior.
type Config struct {
	Port        string
	DatabaseURL string // Postgres; when empty the server falls back to SQLite
	DBPath      string
	RedisAddr   string // when empty the server uses in-process bus/guard

	ProviderBaseURL string
	ProviderAPIKey  string

	// Behavioral tunables. The defaults are load-bearing: changing them
	// changes replanning and grouping behavior for every driver.
	DeviationThresholdKm         float64       // replan when further than this from the next stop
	SubscriptionPickupToleranceM float64       // bulk-pickup clustering grid size
	SmartPathToleranceM          float64       // smart-path pickup grouping radius
	IdempotencyTTL               time.Duration // dedup window for retried ingestions
	HeartbeatInterval            time.Duration // SSE keep-alive cadence

	LogLevel  string
	LogFormat string
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{
		Port:        Get("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		DBPath:      Get("DB_PATH", "data/tracking.db"),
		RedisAddr:   os.Getenv("REDIS_ADDR"),

		ProviderBaseURL: Get("ROUTE_PROVIDER_URL", ""),
		ProviderAPIKey:  os.Getenv("ROUTE_PROVIDER_API_KEY"),

		LogLevel:  Get("LOG_LEVEL", "info"),
		LogFormat: Get("LOG_FORMAT", "console"),
	}

	var err error
	if cfg.DeviationThresholdKm, err = getFloat("DEVIATION_THRESHOLD_KM", 0.5); err != nil {
		return nil, err
	}
	if cfg.SubscriptionPickupToleranceM, err = getFloat("SUBSCRIPTION_PICKUP_TOLERANCE_M", 10); err != nil {
		return nil, err
	}
	if cfg.SmartPathToleranceM, err = getFloat("SMART_PATH_TOLERANCE_M", 100); err != nil {
		return nil, err
	}
	if cfg.IdempotencyTTL, err = getSeconds("IDEMPOTENCY_TTL_SECONDS", 60*time.Second); err != nil {
		return nil, err
	}
	if cfg.HeartbeatInterval, err = getSeconds("HEARTBEAT_INTERVAL_SECONDS", 15*time.Second); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Get returns the environment value for key, or fallback when unset.
func Get(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}

	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("config: parse %s=%q: %w", key, v, err)
	}
	return f, nil
}

func getSeconds(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: parse %s=%q: %w", key, v, err)
	}
	return time.Duration(n) * time.Second, nil
}
