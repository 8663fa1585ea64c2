package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, "eventfeed", cfg.App.Name)
	assert.Equal(t, "8080", cfg.HTTP.Port)
	assert.Equal(t, "9091", cfg.HTTP.MetricsPort)

	assert.Equal(t, 100, cfg.Feed.BatchSize)
	assert.Equal(t, time.Second, cfg.Feed.TickInterval)
	assert.Equal(t, 10, cfg.Feed.BackoffTableLength)
	assert.Equal(t, 16, cfg.Feed.SweepLimit)
	assert.Equal(t, "eventfeed", cfg.Feed.NotifyChannel)
	assert.Equal(t, []string{"order-audit", "kafka-mirror"}, cfg.Feed.Consumers)

	assert.Equal(t, "localhost", cfg.Postgres.Host)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
}

func TestNewEnvOverrides(t *testing.T) {
	t.Setenv("FEED_BATCH_SIZE", "25")
	t.Setenv("FEED_TICK_INTERVAL", "250ms")
	t.Setenv("FEED_CONSUMERS", "audit,mirror,search-index")
	t.Setenv("POSTGRES_HOST", "db.internal")

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, 25, cfg.Feed.BatchSize)
	assert.Equal(t, 250*time.Millisecond, cfg.Feed.TickInterval)
	assert.Equal(t, []string{"audit", "mirror", "search-index"}, cfg.Feed.Consumers)
	assert.Equal(t, "db.internal", cfg.Postgres.Host)
}
