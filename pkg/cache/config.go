package cache

import "time"

// StoreOption configures Store.
type StoreOption func(*StoreConfig)

// StoreConfig holds Store configuration.
type StoreConfig struct {
	Now      func() time.Time
	Observer Observer
}

// WithClock overrides the clock used for freshness checks.
func WithClock(now func() time.Time) StoreOption {
	return func(c *StoreConfig) {
		if now != nil {
			c.Now = now
		}
	}
}

// WithObserver sets a lookup observer.
func WithObserver(o Observer) StoreOption {
	return func(c *StoreConfig) {
		c.Observer = o
	}
}

// RedisOption configures Redis cache.
type RedisOption func(*RedisConfig)

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Host         string
	Port         int
	Password     string
	DB           int
	PoolSize     int
	PoolTimeout  time.Duration
	MinIdleConns int
	Prefix       string
	// Retention bounds how long Redis keeps an entry. Zero keeps it until replaced.
	Retention time.Duration
}

// WithRedisHost sets Redis host.
func WithRedisHost(host string) RedisOption {
	return func(c *RedisConfig) {
		c.Host = host
	}
}

// WithRedisPort sets Redis port.
func WithRedisPort(port int) RedisOption {
	return func(c *RedisConfig) {
		c.Port = port
	}
}

// WithRedisPassword sets Redis password.
func WithRedisPassword(password string) RedisOption {
	return func(c *RedisConfig) {
		c.Password = password
	}
}

// WithRedisDB sets Redis database number.
func WithRedisDB(db int) RedisOption {
	return func(c *RedisConfig) {
		c.DB = db
	}
}

// WithRedisPool sets connection pool settings.
func WithRedisPool(poolSize, minIdleConns int, timeout time.Duration) RedisOption {
	return func(c *RedisConfig) {
		c.PoolSize = poolSize
		c.MinIdleConns = minIdleConns
		c.PoolTimeout = timeout
	}
}

// WithRedisPrefix sets key prefix.
func WithRedisPrefix(prefix string) RedisOption {
	return func(c *RedisConfig) {
		c.Prefix = prefix
	}
}

// WithRedisRetention sets the Redis key expiry.
func WithRedisRetention(d time.Duration) RedisOption {
	return func(c *RedisConfig) {
		c.Retention = d
	}
}

// MemoryOption configures Memory cache.
type MemoryOption func(*MemoryConfig)

// MemoryConfig holds memory cache configuration.
type MemoryConfig struct {
	// MaxSize bounds the number of keys; zero means unbounded.
	MaxSize int
}

// WithMemoryMaxSize sets max cache size.
func WithMemoryMaxSize(size int) MemoryOption {
	return func(c *MemoryConfig) {
		c.MaxSize = size
	}
}
