package cache

import (
	"sync"
	"time"
)

// LocalStore is an in-memory TTL cache with LRU eviction at capacity.
type LocalStore struct {
	mu      sync.Mutex
	items   map[string]*localItem
	maxSize int
	metrics *Metrics
	stopCh  chan struct{}
	once    sync.Once
}

type localItem struct {
	value      []byte
	expiresAt  time.Time
	accessedAt time.Time
}

// LocalConfig configures a LocalStore. Zero values select sane defaults.
type LocalConfig struct {
	MaxSize         int
	CleanupInterval time.Duration
}

// NewLocalStore creates an in-memory store and starts its janitor.
func NewLocalStore(config LocalConfig, metrics *Metrics) *LocalStore {
	if config.MaxSize <= 0 {
		config.MaxSize = 10000
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = 5 * time.Minute
	}

	ls := &LocalStore{
		items:   make(map[string]*localItem),
		maxSize: config.MaxSize,
		metrics: metrics,
		stopCh:  make(chan struct{}),
	}
	go ls.cleanupLoop(config.CleanupInterval)
	return ls
}

// Get returns the cached value for key if present and unexpired.
func (ls *LocalStore) Get(key string) ([]byte, bool) {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	item, ok := ls.items[key]
	if !ok || time.Now().After(item.expiresAt) {
		if ls.metrics != nil {
			ls.metrics.misses.Inc()
		}
		return nil, false
	}

	item.accessedAt = time.Now()
	if ls.metrics != nil {
		ls.metrics.hits.Inc()
	}
	return item.value, true
}

// Set stores value under key for ttl.
func (ls *LocalStore) Set(key string, value []byte, ttl time.Duration) {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	if len(ls.items) >= ls.maxSize {
		ls.evictLRU()
	}

	ls.items[key] = &localItem{
		value:      value,
		expiresAt:  time.Now().Add(ttl),
		accessedAt: time.Now(),
	}
	if ls.metrics != nil {
		ls.metrics.sets.Inc()
	}
}

// Delete removes key from the store.
func (ls *LocalStore) Delete(key string) {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	delete(ls.items, key)
}

// Clear drops every cached item.
func (ls *LocalStore) Clear() {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	ls.items = make(map[string]*localItem)
}

// Stop halts the janitor goroutine.
func (ls *LocalStore) Stop() {
	ls.once.Do(func() { close(ls.stopCh) })
}

// evictLRU removes the least recently used item. Caller holds the lock.
func (ls *LocalStore) evictLRU() {
	var oldestKey string
	var oldestTime time.Time
	for key, item := range ls.items {
		if oldestKey == "" || item.accessedAt.Before(oldestTime) {
			oldestKey = key
			oldestTime = item.accessedAt
		}
	}
	if oldestKey != "" {
		delete(ls.items, oldestKey)
	}
}

func (ls *LocalStore) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ls.cleanup()
		case <-ls.stopCh:
			return
		}
	}
}

func (ls *LocalStore) cleanup() {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	now := time.Now()
	for key, item := range ls.items {
		if now.After(item.expiresAt) {
			delete(ls.items, key)
		}
	}
}
