package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnv(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg := FromEnv()
		assert.Equal(t, ":8080", cfg.Server.Addr)
		assert.Equal(t, 5*time.Second, cfg.Database.TxTimeout)
		assert.Empty(t, cfg.Kafka.Brokers)
		assert.Equal(t, 5*time.Minute, cfg.Jobs.LeaseTTL)
	})

	t.Run("overrides", func(t *testing.T) {
		t.Setenv("TRS_ADDR", ":9090")
		t.Setenv("KAFKA_BROKERS", "a:9092, b:9092,,")
		t.Setenv("IMPORT_LEASE_TTL", "90s")
		t.Setenv("DATABASE_MAX_OPEN_CONNS", "7")

		cfg := FromEnv()
		assert.Equal(t, ":9090", cfg.Server.Addr)
		assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
		assert.Equal(t, 90*time.Second, cfg.Jobs.LeaseTTL)
		assert.Equal(t, 7, cfg.Database.MaxOpenConns)
	})

	t.Run("unparseable values fall back", func(t *testing.T) {
		t.Setenv("IMPORT_POLL_INTERVAL", "soon")
		t.Setenv("REDIS_POOL_SIZE", "many")

		cfg := FromEnv()
		assert.Equal(t, time.Minute, cfg.Jobs.PollInterval)
		assert.Equal(t, 10, cfg.Redis.PoolSize)
	})
}
