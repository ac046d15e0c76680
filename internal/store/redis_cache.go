package store

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rzzdr/credit-risk-engine/pkg/utils/logger"
)

// RedisCache implements ResultCache on a Redis instance
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *logger.Logger
}

// NewRedisCache creates a Redis-backed result cache. Entries expire after
// ttl; a zero ttl keeps them indefinitely.
func NewRedisCache(addr string, ttl time.Duration) *RedisCache {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	return &RedisCache{
		client: client,
		ttl:    ttl,
		log:    logger.GetLogger("store.redis"),
	}
}

// Get fetches a value, reporting false on a miss or connection failure
func (r *RedisCache) Get(key string) (string, bool) {
	val, err := r.client.Get(context.Background(), key).Result()
	if err != nil {
		if err != redis.Nil {
			r.log.Warnf("Redis get failed for %s: %v", key, err)
		}
		return "", false
	}
	return val, true
}

// Set stores a value under the configured TTL
func (r *RedisCache) Set(key string, value string) error {
	return r.client.Set(context.Background(), key, value, r.ttl).Err()
}

// Close releases the underlying client
func (r *RedisCache) Close() error {
	return r.client.Close()
}

// MemoryCache is a map-backed ResultCache for tests and cache-less runs
type MemoryCache struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemoryCache creates an empty in-process cache
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		data: make(map[string]string),
	}
}

// Get fetches a value from the map
func (m *MemoryCache) Get(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	val, ok := m.data[key]
	return val, ok
}

// Set stores a value in the map
func (m *MemoryCache) Set(key string, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}
