// Package config loads engine configuration from defaults, a YAML file,
// environment variables and command-line overrides, in that precedence
// order.
package config

import (
	"time"

	"flowforge/engine/internal/resilience"
	"flowforge/engine/internal/scheduler"
	"flowforge/engine/internal/store"
	"flowforge/engine/pkg/logger"
)

// Config is the complete engine configuration.
type Config struct {
	Server     ServerConfig           `yaml:"server"`
	Database   store.DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig            `yaml:"redis"`
	Queue      QueueConfig            `yaml:"queue"`
	Scheduler  SchedulerConfig        `yaml:"scheduler"`
	Resilience resilience.GuardConfig `yaml:"resilience"`
	Security   SecurityConfig         `yaml:"security"`
	Logging    logger.Config          `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address      string        `yaml:"address" env:"FF_SERVER_ADDRESS"`
	ReadTimeout  time.Duration `yaml:"read_timeout" env:"FF_SERVER_READ_TIMEOUT"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"FF_SERVER_WRITE_TIMEOUT"`
	EnableCORS   bool          `yaml:"enable_cors" env:"FF_SERVER_ENABLE_CORS"`
}

// RedisConfig holds the durable queue backend settings. An empty host means
// no Redis is configured and the queue runs in its direct degraded mode.
type RedisConfig struct {
	Host     string `yaml:"host" env:"FF_REDIS_HOST"`
	Port     int    `yaml:"port" env:"FF_REDIS_PORT"`
	Password string `yaml:"password" env:"FF_REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"FF_REDIS_DB"`
}

// Enabled reports whether a Redis backend is configured.
func (c RedisConfig) Enabled() bool { return c.Host != "" }

// QueueConfig holds run dispatch settings.
type QueueConfig struct {
	// Workers caps simultaneous workflow executions.
	Workers int `yaml:"workers" env:"FF_QUEUE_WORKERS"`
	// Key overrides the Redis list key.
	Key string `yaml:"key" env:"FF_QUEUE_KEY"`
}

// SchedulerConfig holds cron scheduler settings.
type SchedulerConfig struct {
	Enabled      bool          `yaml:"enabled" env:"FF_SCHEDULER_ENABLED"`
	TickInterval time.Duration `yaml:"tick_interval" env:"FF_SCHEDULER_TICK_INTERVAL"`
}

// SecurityConfig holds secret material settings.
type SecurityConfig struct {
	// EncryptionKey is the AES key protecting stored credentials.
	// Must be 16, 24 or 32 bytes.
	EncryptionKey string `yaml:"encryption_key" env:"FF_ENCRYPTION_KEY"`
}

// DefaultConfig returns a Config with default values. The defaults favour
// development: few workers, no Redis, no database (in-memory stores), console
// logging. Setting database.host is enough to switch to relational storage;
// the remaining connection values default to a local MySQL.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Address:      ":8080",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			EnableCORS:   true,
		},
		Database: store.DatabaseConfig{
			Driver:          "mysql",
			Port:            3306,
			Username:        "flowforge",
			Database:        "flowforge",
			Charset:         "utf8mb4",
			MaxIdleConns:    10,
			MaxOpenConns:    100,
			ConnMaxLifetime: 3600,
		},
		Redis: RedisConfig{
			Port: 6379,
		},
		Queue: QueueConfig{
			Workers: 2,
		},
		Scheduler: SchedulerConfig{
			Enabled:      true,
			TickInterval: scheduler.DefaultTickInterval,
		},
		Resilience: resilience.DefaultGuardConfig(),
		Logging: logger.Config{
			Level:      "info",
			Format:     "console",
			Output:     "stdout",
			FilePath:   "logs/engine.log",
			MaxSize:    100,
			MaxBackups: 5,
			MaxAge:     30,
		},
	}
}
