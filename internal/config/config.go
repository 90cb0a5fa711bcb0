package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates application configuration values loaded from environment
// variables. It also acts as the fee/cutoff collaborator for the pricing and
// booking services.
type Config struct {
	Env                string
	HTTPAddr           string
	StorageMode        string
	MongoURI           string
	MongoDB            string
	KafkaBrokers       []string
	KafkaTopicPrefix   string
	PlatformFeePercent float64
	CancellationCutoff time.Duration
	AllocateAttempts   int
	AllocateBackoff    time.Duration
	OutboxPollInterval time.Duration
	OutboxRetryBackoff []time.Duration
	SweepInterval      time.Duration
}

// FeePercent satisfies the pricing fee-source collaborator.
func (c Config) FeePercent() float64 {
	return c.PlatformFeePercent
}

// Load parses configuration from .env (when present) and the environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Env:              getEnv("APP_ENV", "dev"),
		HTTPAddr:         getEnv("HTTP_ADDR", ":8080"),
		StorageMode:      strings.ToLower(getEnv("STORAGE_MODE", "memory")),
		MongoURI:         os.Getenv("MONGO_URI"),
		MongoDB:          getEnv("MONGO_DB", "storeshare"),
		KafkaTopicPrefix: getEnv("KAFKA_TOPIC_PREFIX", ""),
	}
	if brokers := getEnv("KAFKA_BROKERS", ""); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}

	fee, err := parseFloatEnv("PLATFORM_FEE_PERCENT", 10.0)
	if err != nil {
		return Config{}, err
	}
	cfg.PlatformFeePercent = fee

	cutoff, err := parseDurationEnv("CANCELLATION_CUTOFF", 12*time.Hour)
	if err != nil {
		return Config{}, err
	}
	cfg.CancellationCutoff = cutoff

	attempts, err := parseIntEnv("ALLOCATE_MAX_ATTEMPTS", 5)
	if err != nil {
		return Config{}, err
	}
	cfg.AllocateAttempts = attempts

	backoff, err := parseDurationEnv("ALLOCATE_BACKOFF_BASE", 20*time.Millisecond)
	if err != nil {
		return Config{}, err
	}
	cfg.AllocateBackoff = backoff

	poll, err := parseDurationEnv("OUTBOX_POLL_INTERVAL", 500*time.Millisecond)
	if err != nil {
		return Config{}, err
	}
	cfg.OutboxPollInterval = poll

	sweep, err := parseDurationEnv("SWEEP_INTERVAL", time.Minute)
	if err != nil {
		return Config{}, err
	}
	cfg.SweepInterval = sweep

	retryStr := getEnv("OUTBOX_RETRY_BACKOFF", "1s,5s,30s")
	for _, raw := range strings.Split(retryStr, ",") {
		val := strings.TrimSpace(raw)
		if val == "" {
			continue
		}
		d, err := time.ParseDuration(val)
		if err != nil {
			return Config{}, fmt.Errorf("invalid OUTBOX_RETRY_BACKOFF component %q: %w", raw, err)
		}
		cfg.OutboxRetryBackoff = append(cfg.OutboxRetryBackoff, d)
	}

	if cfg.StorageMode == "mongo" && cfg.MongoURI == "" {
		return Config{}, fmt.Errorf("MONGO_URI is required when STORAGE_MODE=mongo")
	}
	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s duration: %w", key, err)
	}
	return d, nil
}

func parseIntEnv(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s integer: %w", key, err)
	}
	return n, nil
}

func parseFloatEnv(key string, def float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s number: %w", key, err)
	}
	return f, nil
}
