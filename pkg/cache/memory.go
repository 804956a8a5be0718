package cache

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// defaultTTL caps how long entries without an explicit expiration live.
const defaultTTL = 7 * 24 * time.Hour

type memEntry struct {
	val      interface{}
	expireAt time.Time
	lastUsed time.Time
}

func (e *memEntry) expired(now time.Time) bool { return now.After(e.expireAt) }

// MemoryCache implements Service in process memory with LRU eviction,
// serving as L1 for the layered cache and as the whole cache when
// Redis is disabled.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]*memEntry
	maxSize int
	ticker  *time.Ticker
}

// NewMemoryCache creates an in-memory cache and starts its janitor.
func NewMemoryCache(opts ...MemoryOption) *MemoryCache {
	cfg := &MemoryConfig{
		MaxSize:         1000,
		CleanupInterval: 5 * time.Minute,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	mc := &MemoryCache{
		entries: make(map[string]*memEntry),
		maxSize: cfg.MaxSize,
		ticker:  time.NewTicker(cfg.CleanupInterval),
	}
	go mc.janitor()
	return mc
}

func (mc *MemoryCache) put(key string, val interface{}, ttl time.Duration) {
	if len(mc.entries) >= mc.maxSize {
		mc.evictOldest()
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	now := time.Now()
	mc.entries[key] = &memEntry{val: val, expireAt: now.Add(ttl), lastUsed: now}
}

func (mc *MemoryCache) Set(_ context.Context, key string, value interface{}, expiration time.Duration) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.put(key, value, expiration)
	return nil
}

func (mc *MemoryCache) Get(_ context.Context, key string, dest interface{}) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	e, ok := mc.entries[key]
	if !ok {
		return ErrCacheMiss
	}
	if e.expired(time.Now()) {
		delete(mc.entries, key)
		return ErrCacheMiss
	}
	e.lastUsed = time.Now()

	switch d := dest.(type) {
	case *string:
		if s, ok := e.val.(string); ok {
			*d = s
			return nil
		}
	case *interface{}:
		*d = e.val
		return nil
	}
	return fmt.Errorf("unsupported destination type %T", dest)
}

func (mc *MemoryCache) Delete(_ context.Context, keys ...string) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	for _, key := range keys {
		delete(mc.entries, key)
	}
	return nil
}

// DeleteByPattern drops everything; the memory tier has no key scan.
func (mc *MemoryCache) DeleteByPattern(_ context.Context, _ string) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.entries = make(map[string]*memEntry)
	return nil
}

func (mc *MemoryCache) Exists(_ context.Context, keys ...string) (bool, error) {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	now := time.Now()
	for _, key := range keys {
		if e, ok := mc.entries[key]; ok && !e.expired(now) {
			return true, nil
		}
	}
	return false, nil
}

func (mc *MemoryCache) Increment(_ context.Context, key string) (int64, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	e, ok := mc.entries[key]
	if !ok || e.expired(time.Now()) {
		mc.put(key, int64(1), 0)
		return 1, nil
	}
	n, ok := e.val.(int64)
	if !ok {
		return 0, fmt.Errorf("value at %s is not a counter", key)
	}
	e.val = n + 1
	return n + 1, nil
}

func (mc *MemoryCache) Expire(_ context.Context, key string, expiration time.Duration) (bool, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	if e, ok := mc.entries[key]; ok {
		e.expireAt = time.Now().Add(expiration)
		return true, nil
	}
	return false, nil
}

func (mc *MemoryCache) MSet(_ context.Context, values map[string]interface{}, expiration time.Duration) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	for key, value := range values {
		mc.put(key, value, expiration)
	}
	return nil
}

func (mc *MemoryCache) MGet(_ context.Context, keys ...string) (map[string]string, error) {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	now := time.Now()
	out := make(map[string]string, len(keys))
	for _, key := range keys {
		if e, ok := mc.entries[key]; ok && !e.expired(now) {
			if s, ok := e.val.(string); ok {
				out[key] = s
			}
		}
	}
	return out, nil
}

func (mc *MemoryCache) TryLock(_ context.Context, key string, ttl time.Duration) (bool, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	if e, ok := mc.entries[key]; ok && !e.expired(time.Now()) {
		return false, nil
	}
	mc.put(key, "locked", ttl)
	return true, nil
}

func (mc *MemoryCache) Unlock(ctx context.Context, key string) error {
	return mc.Delete(ctx, key)
}

func (mc *MemoryCache) evictOldest() {
	var victim string
	var oldest time.Time
	for key, e := range mc.entries {
		if victim == "" || e.lastUsed.Before(oldest) {
			victim, oldest = key, e.lastUsed
		}
	}
	if victim != "" {
		delete(mc.entries, victim)
	}
}

func (mc *MemoryCache) janitor() {
	for range mc.ticker.C {
		now := time.Now()
		mc.mu.Lock()
		for key, e := range mc.entries {
			if e.expired(now) {
				delete(mc.entries, key)
			}
		}
		mc.mu.Unlock()
	}
}

// Close stops the janitor.
func (mc *MemoryCache) Close() error {
	mc.ticker.Stop()
	return nil
}
