// Package cache provides the small cache abstraction shared by the tenant
// directory and the login rate limiter, with Redis and in-memory
// implementations.
package cache

import (
	"context"
	"time"
)

// Cache is the interface all implementations satisfy.
type Cache interface {
	// Get retrieves a value; ErrCacheNotFound on miss.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with a TTL (0 = default TTL).
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value.
	Delete(ctx context.Context, key string) error

	// Exists checks whether a key is present.
	Exists(ctx context.Context, key string) (bool, error)

	// Increment adds delta to a numeric value and returns the result.
	Increment(ctx context.Context, key string, delta int64) (int64, error)

	// Expire sets a new TTL for an existing key.
	Expire(ctx context.Context, key string, ttl time.Duration) error

	// Ping checks if the cache is reachable.
	Ping(ctx context.Context) error

	// Close releases the underlying resources.
	Close() error
}

// Config holds common cache configuration.
type Config struct {
	// DefaultTTL applies when Set is called with ttl 0.
	DefaultTTL time.Duration

	// Prefix namespaces all keys.
	Prefix string
}

// DefaultConfig returns a default cache configuration.
func DefaultConfig() *Config {
	return &Config{
		DefaultTTL: 5 * time.Minute,
		Prefix:     "edge:",
	}
}

func (c *Config) prefixKey(key string) string {
	return c.Prefix + key
}

// CacheError wraps a failed cache operation with its context.
type CacheError struct {
	Op  string
	Key string
	Err error
}

func (e *CacheError) Error() string {
	if e.Key != "" {
		return "cache " + e.Op + " " + e.Key + ": " + e.Err.Error()
	}
	return "cache " + e.Op + ": " + e.Err.Error()
}

func (e *CacheError) Unwrap() error {
	return e.Err
}

// ErrCacheNotFound is returned on cache misses.
var ErrCacheNotFound = &CacheError{Op: "get", Err: errKeyNotFound}

var errKeyNotFound = cacheErrString("key not found")

type cacheErrString string

func (e cacheErrString) Error() string {
	return string(e)
}
