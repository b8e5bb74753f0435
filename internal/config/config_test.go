package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, DriverPostgres, cfg.StorageDriver)
	assert.Equal(t, 3*time.Second, cfg.LockTimeout)
	assert.Contains(t, cfg.GetDBConnectionString(), "dbname=banking_ledger")
	assert.Contains(t, cfg.GetDBConnectionString(), "sslmode=disable")
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("LOCK_TIMEOUT_MS", "500")

	cfg := Load()

	assert.Equal(t, "9090", cfg.ServerPort)
	assert.Equal(t, DriverMemory, cfg.StorageDriver)
	assert.Equal(t, "db.internal", cfg.DBHost)
	assert.Equal(t, 500*time.Millisecond, cfg.LockTimeout)
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "cassandra")

	cfg := Load()
	assert.Equal(t, DriverPostgres, cfg.StorageDriver)
}
