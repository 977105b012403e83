package cache

import (
	"context"
	"strconv"
	"sync"
	"time"
)

// MemoryCache implements an in-memory cache with TTL support. Suitable for
// single-instance and development deployments; distributed deployments
// should use RedisCache.
type MemoryCache struct {
	config *Config
	items  map[string]*memoryItem
	mu     sync.RWMutex
	stopCh chan struct{}
	once   sync.Once
}

type memoryItem struct {
	value      []byte
	expiration time.Time
	hasExpiry  bool
}

func (it *memoryItem) expired(now time.Time) bool {
	return it.hasExpiry && now.After(it.expiration)
}

// NewMemoryCache creates a new in-memory cache and starts its cleanup
// goroutine; call Close to stop it.
func NewMemoryCache(config *Config) *MemoryCache {
	if config == nil {
		config = DefaultConfig()
	}

	mc := &MemoryCache{
		config: config,
		items:  make(map[string]*memoryItem),
		stopCh: make(chan struct{}),
	}

	go mc.cleanupExpired()

	return mc
}

// Get retrieves a value from the cache.
func (mc *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	key = mc.config.prefixKey(key)

	mc.mu.RLock()
	item, exists := mc.items[key]
	mc.mu.RUnlock()

	if !exists || item.expired(time.Now()) {
		return nil, ErrCacheNotFound
	}

	return item.value, nil
}

// Set stores a value with the given TTL (0 = default TTL, negative = no
// expiry).
func (mc *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	key = mc.config.prefixKey(key)

	if ttl == 0 {
		ttl = mc.config.DefaultTTL
	}

	item := &memoryItem{
		value:     value,
		hasExpiry: ttl > 0,
	}
	if item.hasExpiry {
		item.expiration = time.Now().Add(ttl)
	}

	mc.mu.Lock()
	mc.items[key] = item
	mc.mu.Unlock()

	return nil
}

// Delete removes a value from the cache.
func (mc *MemoryCache) Delete(ctx context.Context, key string) error {
	key = mc.config.prefixKey(key)

	mc.mu.Lock()
	delete(mc.items, key)
	mc.mu.Unlock()

	return nil
}

// Exists checks if a key exists in the cache.
func (mc *MemoryCache) Exists(ctx context.Context, key string) (bool, error) {
	key = mc.config.prefixKey(key)

	mc.mu.RLock()
	item, exists := mc.items[key]
	mc.mu.RUnlock()

	return exists && !item.expired(time.Now()), nil
}

// Increment adds delta to a numeric value, creating it at delta when
// absent. Non-numeric existing values error.
func (mc *MemoryCache) Increment(ctx context.Context, key string, delta int64) (int64, error) {
	prefixed := mc.config.prefixKey(key)

	mc.mu.Lock()
	defer mc.mu.Unlock()

	now := time.Now()
	var current int64
	if item, exists := mc.items[prefixed]; exists && !item.expired(now) {
		parsed, err := strconv.ParseInt(string(item.value), 10, 64)
		if err != nil {
			return 0, &CacheError{Op: "increment", Key: key, Err: err}
		}
		current = parsed
	}

	current += delta
	item := &memoryItem{value: []byte(strconv.FormatInt(current, 10))}
	if mc.config.DefaultTTL > 0 {
		item.hasExpiry = true
		item.expiration = now.Add(mc.config.DefaultTTL)
	}
	mc.items[prefixed] = item

	return current, nil
}

// Expire sets a new TTL for an existing key.
func (mc *MemoryCache) Expire(ctx context.Context, key string, ttl time.Duration) error {
	key = mc.config.prefixKey(key)

	mc.mu.Lock()
	defer mc.mu.Unlock()

	item, exists := mc.items[key]
	if !exists || item.expired(time.Now()) {
		return ErrCacheNotFound
	}

	item.hasExpiry = ttl > 0
	if item.hasExpiry {
		item.expiration = time.Now().Add(ttl)
	}
	return nil
}

// Ping always succeeds for the in-memory cache.
func (mc *MemoryCache) Ping(ctx context.Context) error {
	return nil
}

// Close stops the cleanup goroutine.
func (mc *MemoryCache) Close() error {
	mc.once.Do(func() { close(mc.stopCh) })
	return nil
}

// cleanupExpired periodically removes expired entries.
func (mc *MemoryCache) cleanupExpired() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-mc.stopCh:
			return
		case <-ticker.C:
			now := time.Now()
			mc.mu.Lock()
			for key, item := range mc.items {
				if item.expired(now) {
					delete(mc.items, key)
				}
			}
			mc.mu.Unlock()
		}
	}
}
