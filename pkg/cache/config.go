package cache

import (
	"fmt"
	"time"
)

// RedisOption configures Redis cache.
type RedisOption func(*RedisConfig)

// RedisConfig holds Redis connection settings. Every key is stored as
// "<Prefix>:<key>".
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
	Prefix   string
}

// WithRedisAddr sets host and port.
func WithRedisAddr(host string, port int) RedisOption {
	return func(c *RedisConfig) {
		c.Addr = fmt.Sprintf("%s:%d", host, port)
	}
}

// WithRedisAuth selects the database and sets its password.
func WithRedisAuth(password string, db int) RedisOption {
	return func(c *RedisConfig) {
		c.Password = password
		c.DB = db
	}
}

// WithRedisPool sets the connection pool size; half of it is kept idle.
func WithRedisPool(size int) RedisOption {
	return func(c *RedisConfig) {
		if size > 0 {
			c.PoolSize = size
		}
	}
}

// WithRedisPrefix sets the key namespace.
func WithRedisPrefix(prefix string) RedisOption {
	return func(c *RedisConfig) { c.Prefix = prefix }
}

// MemoryOption configures Memory cache.
type MemoryOption func(*memoryConfig)

type memoryConfig struct {
	maxSize         int
	cleanupInterval time.Duration
}

// WithMemoryMaxSize caps the number of entries; the least recently used
// entry is evicted first.
func WithMemoryMaxSize(size int) MemoryOption {
	return func(c *memoryConfig) {
		if size > 0 {
			c.maxSize = size
		}
	}
}
