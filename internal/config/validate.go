package config

import "fmt"

// Validate checks the configuration for values that would make the engine
// misbehave at runtime rather than fail at startup.
func (c *Config) Validate() error {
	if c.Server.Address == "" {
		return fmt.Errorf("server.address must not be empty")
	}
	if c.Queue.Workers < 1 {
		return fmt.Errorf("queue.workers must be at least 1, got %d", c.Queue.Workers)
	}
	if c.Scheduler.Enabled && c.Scheduler.TickInterval <= 0 {
		return fmt.Errorf("scheduler.tick_interval must be positive")
	}
	if key := len(c.Security.EncryptionKey); key != 0 && key != 16 && key != 24 && key != 32 {
		return fmt.Errorf("security.encryption_key must be 16, 24 or 32 bytes, got %d", key)
	}
	if c.Redis.Enabled() && (c.Redis.Port < 1 || c.Redis.Port > 65535) {
		return fmt.Errorf("redis.port out of range: %d", c.Redis.Port)
	}
	switch c.Database.Driver {
	case "", "mysql", "postgres":
	default:
		return fmt.Errorf("unsupported database.driver: %s", c.Database.Driver)
	}
	return nil
}
