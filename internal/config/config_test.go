package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "rosterwatch", cfg.Database.Database)
	assert.Equal(t, "disable", cfg.Database.SSLMode)

	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)

	assert.Equal(t, time.Hour, cfg.Scheduler.Interval)
	assert.Equal(t, 2, cfg.Scheduler.Workers)

	assert.Equal(t, 100, cfg.Persist.BatchSize)
	assert.Equal(t, time.Hour, cfg.Persist.TouchThreshold)

	assert.Equal(t, "custody:events:stream", cfg.Notify.EventStream)
	assert.Equal(t, ":8080", cfg.HTTP.ListenAddr)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "5433")
	t.Setenv("CYCLE_INTERVAL", "15m")
	t.Setenv("CYCLE_WORKERS", "8")
	t.Setenv("PERSIST_BATCH_SIZE", "25")
	t.Setenv("EVENT_STREAM", "custody:test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 5433, cfg.Database.Port)
	assert.Equal(t, 15*time.Minute, cfg.Scheduler.Interval)
	assert.Equal(t, 8, cfg.Scheduler.Workers)
	assert.Equal(t, 25, cfg.Persist.BatchSize)
	assert.Equal(t, "custody:test", cfg.Notify.EventStream)
}

func TestLoad_InvalidIntervalRejected(t *testing.T) {
	t.Setenv("CYCLE_INTERVAL", "whenever")

	_, err := Load()
	assert.Error(t, err)
}

func TestDSN(t *testing.T) {
	cfg := &DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "secret",
		Database: "rosterwatch",
		SSLMode:  "disable",
	}
	assert.Equal(t,
		"host=localhost port=5432 user=postgres password=secret dbname=rosterwatch sslmode=disable",
		cfg.DSN(),
	)
}
