package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache implements a Redis-backed cache.
type RedisCache struct {
	client *redis.Client
	config *Config
	logger *slog.Logger
}

// RedisConfig holds Redis-specific configuration.
type RedisConfig struct {
	*Config

	// Addr is the Redis connection address.
	Addr string

	// Password for the Redis instance (empty = no auth).
	Password string

	// DB is the Redis database number.
	DB int

	// MaxRetries bounds per-command retries.
	MaxRetries int

	// PoolSize limits the connection pool.
	PoolSize int

	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Logger for structured logging.
	Logger *slog.Logger
}

// DefaultRedisConfig returns a default Redis configuration.
func DefaultRedisConfig() *RedisConfig {
	return &RedisConfig{
		Config:       DefaultConfig(),
		Addr:         "localhost:6379",
		MaxRetries:   3,
		PoolSize:     10,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// NewRedisCache connects to Redis and verifies the connection.
func NewRedisCache(config *RedisConfig) (*RedisCache, error) {
	if config == nil {
		config = DefaultRedisConfig()
	}
	if config.Config == nil {
		config.Config = DefaultConfig()
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	client := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		MaxRetries:   config.MaxRetries,
		PoolSize:     config.PoolSize,
		DialTimeout:  config.DialTimeout,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Error("redis connection failed", "error", err, "addr", config.Addr)
		return nil, &CacheError{Op: "connect", Err: err}
	}

	logger.Info("redis cache initialized", "addr", config.Addr, "db", config.DB)

	return &RedisCache{
		client: client,
		config: config.Config,
		logger: logger,
	}, nil
}

// Get retrieves a value from Redis.
func (rc *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	key = rc.config.prefixKey(key)

	result, err := rc.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheNotFound
		}
		rc.logger.Error("redis get failed", "error", err, "key", key)
		return nil, &CacheError{Op: "get", Key: key, Err: err}
	}

	return result, nil
}

// Set stores a value in Redis with the given TTL (0 = default TTL).
func (rc *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	key = rc.config.prefixKey(key)

	if ttl == 0 {
		ttl = rc.config.DefaultTTL
	}
	if ttl < 0 {
		ttl = 0 // redis: 0 means no expiry
	}

	if err := rc.client.Set(ctx, key, value, ttl).Err(); err != nil {
		rc.logger.Error("redis set failed", "error", err, "key", key)
		return &CacheError{Op: "set", Key: key, Err: err}
	}
	return nil
}

// Delete removes a value from Redis.
func (rc *RedisCache) Delete(ctx context.Context, key string) error {
	key = rc.config.prefixKey(key)

	if err := rc.client.Del(ctx, key).Err(); err != nil {
		return &CacheError{Op: "delete", Key: key, Err: err}
	}
	return nil
}

// Exists checks if a key exists in Redis.
func (rc *RedisCache) Exists(ctx context.Context, key string) (bool, error) {
	key = rc.config.prefixKey(key)

	n, err := rc.client.Exists(ctx, key).Result()
	if err != nil {
		return false, &CacheError{Op: "exists", Key: key, Err: err}
	}
	return n > 0, nil
}

// Increment adds delta to a numeric value.
func (rc *RedisCache) Increment(ctx context.Context, key string, delta int64) (int64, error) {
	key = rc.config.prefixKey(key)

	n, err := rc.client.IncrBy(ctx, key, delta).Result()
	if err != nil {
		return 0, &CacheError{Op: "increment", Key: key, Err: err}
	}
	return n, nil
}

// Expire sets a new TTL for an existing key.
func (rc *RedisCache) Expire(ctx context.Context, key string, ttl time.Duration) error {
	key = rc.config.prefixKey(key)

	ok, err := rc.client.Expire(ctx, key, ttl).Result()
	if err != nil {
		return &CacheError{Op: "expire", Key: key, Err: err}
	}
	if !ok {
		return ErrCacheNotFound
	}
	return nil
}

// Ping checks the Redis connection.
func (rc *RedisCache) Ping(ctx context.Context) error {
	if err := rc.client.Ping(ctx).Err(); err != nil {
		return &CacheError{Op: "ping", Err: err}
	}
	return nil
}

// Close closes the Redis client.
func (rc *RedisCache) Close() error {
	return rc.client.Close()
}
