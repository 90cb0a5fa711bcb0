package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "memory", cfg.StorageMode)
	assert.Equal(t, 10.0, cfg.PlatformFeePercent)
	assert.Equal(t, 12*time.Hour, cfg.CancellationCutoff)
	assert.Equal(t, 5, cfg.AllocateAttempts)
	assert.Equal(t, 20*time.Millisecond, cfg.AllocateBackoff)
	assert.Equal(t, []time.Duration{time.Second, 5 * time.Second, 30 * time.Second}, cfg.OutboxRetryBackoff)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PLATFORM_FEE_PERCENT", "12.5")
	t.Setenv("CANCELLATION_CUTOFF", "24h")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 12.5, cfg.PlatformFeePercent)
	assert.Equal(t, 24*time.Hour, cfg.CancellationCutoff)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 12.5, cfg.FeePercent())
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("PLATFORM_FEE_PERCENT", "lots")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadMongoModeRequiresURI(t *testing.T) {
	t.Setenv("STORAGE_MODE", "mongo")
	t.Setenv("MONGO_URI", "")
	_, err := Load()
	assert.Error(t, err)
}
