package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryCache is an in-process Backend. Entries are kept until replaced,
// deleted, or evicted by the optional size bound (least recently used first).
type MemoryCache struct {
	data    map[string]Entry
	access  map[string]time.Time
	mutex   sync.RWMutex
	maxSize int
}

// NewMemoryCache creates an in-memory cache.
func NewMemoryCache(opts ...MemoryOption) *MemoryCache {
	cfg := &MemoryConfig{}

	for _, opt := range opts {
		opt(cfg)
	}

	return &MemoryCache{
		data:    make(map[string]Entry),
		access:  make(map[string]time.Time),
		maxSize: cfg.MaxSize,
	}
}

func (mc *MemoryCache) Load(_ context.Context, key string) (Entry, error) {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	e, ok := mc.data[key]
	if !ok {
		return Entry{}, ErrCacheMiss
	}
	mc.access[key] = time.Now()
	return e, nil
}

func (mc *MemoryCache) Save(_ context.Context, key string, e Entry) error {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	if _, exists := mc.data[key]; !exists && mc.maxSize > 0 && len(mc.data) >= mc.maxSize {
		mc.evictLRU()
	}

	// copy so later mutation of the caller's buffer cannot leak in
	data := make([]byte, len(e.Data))
	copy(data, e.Data)
	e.Data = data

	mc.data[key] = e
	mc.access[key] = time.Now()
	return nil
}

func (mc *MemoryCache) Delete(_ context.Context, keys ...string) error {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	for _, key := range keys {
		delete(mc.data, key)
		delete(mc.access, key)
	}
	return nil
}

// Len returns the number of stored keys.
func (mc *MemoryCache) Len() int {
	mc.mutex.RLock()
	defer mc.mutex.RUnlock()
	return len(mc.data)
}

func (mc *MemoryCache) Close() error { return nil }

func (mc *MemoryCache) evictLRU() {
	var oldestKey string
	var oldest time.Time
	for key, at := range mc.access {
		if oldestKey == "" || at.Before(oldest) {
			oldestKey = key
			oldest = at
		}
	}
	if oldestKey != "" {
		delete(mc.data, oldestKey)
		delete(mc.access, oldestKey)
	}
}
