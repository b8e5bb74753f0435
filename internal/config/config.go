// Package config loads application configuration from environment
// variables, with defaults suitable for local development.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	ServerPort string

	// StorageDriver selects the backing store: "postgres" or "memory".
	StorageDriver string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// LockTimeout bounds how long a unit of work may wait for an
	// exclusive account lock before it is aborted.
	LockTimeout time.Duration
}

// Load reads configuration from the environment. Every field has a
// default, so Load never fails; invalid values fall back to defaults.
func Load() *Config {
	v := viper.New()

	v.SetDefault("server_port", "8080")
	v.SetDefault("storage_driver", DriverPostgres)
	v.SetDefault("db_host", "localhost")
	v.SetDefault("db_port", "5432")
	v.SetDefault("db_user", "postgres")
	v.SetDefault("db_password", "password")
	v.SetDefault("db_name", "banking_ledger")
	v.SetDefault("db_sslmode", "disable")
	v.SetDefault("lock_timeout_ms", 3000)

	v.AutomaticEnv()

	cfg := &Config{
		ServerPort:    v.GetString("server_port"),
		StorageDriver: v.GetString("storage_driver"),
		DBHost:        v.GetString("db_host"),
		DBPort:        v.GetString("db_port"),
		DBUser:        v.GetString("db_user"),
		DBPassword:    v.GetString("db_password"),
		DBName:        v.GetString("db_name"),
		DBSSLMode:     v.GetString("db_sslmode"),
		LockTimeout:   time.Duration(v.GetInt("lock_timeout_ms")) * time.Millisecond,
	}

	if cfg.StorageDriver != DriverPostgres && cfg.StorageDriver != DriverMemory {
		cfg.StorageDriver = DriverPostgres
	}
	if cfg.LockTimeout <= 0 {
		cfg.LockTimeout = 3 * time.Second
	}

	return cfg
}

// GetDBConnectionString builds the lib/pq connection string.
func (c *Config) GetDBConnectionString() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}
