package cache

import (
	"container/list"
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// MemoryCache is an in-process LRU cache with expiry.
type MemoryCache struct {
	mu         sync.Mutex
	items      map[string]*list.Element
	order      *list.List // front is most recently used
	defaultTTL time.Duration
	maxEntries int

	hits   atomic.Int64
	misses atomic.Int64

	closed atomic.Bool
	stopCh chan struct{}
	wg     sync.WaitGroup
}

type memoryEntry struct {
	key       string
	value     []byte
	expiresAt time.Time
}

func (e *memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// NewMemoryCache creates a MemoryCache and starts its cleanup loop.
func NewMemoryCache(opts *Options) *MemoryCache {
	if opts == nil {
		opts = DefaultOptions()
	}

	maxEntries := opts.MaxEntries
	if maxEntries <= 0 {
		maxEntries = 10000
	}
	interval := opts.CleanupInterval
	if interval <= 0 {
		interval = time.Minute
	}

	c := &MemoryCache{
		items:      make(map[string]*list.Element),
		order:      list.New(),
		defaultTTL: opts.DefaultTTL,
		maxEntries: maxEntries,
		stopCh:     make(chan struct{}),
	}

	c.wg.Add(1)
	go c.cleanupLoop(interval)

	return c
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	if c.closed.Load() {
		return nil, ErrCacheClosed
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		c.misses.Add(1)
		return nil, ErrKeyNotFound
	}
	entry := el.Value.(*memoryEntry)
	if entry.expired(time.Now()) {
		c.remove(el)
		c.misses.Add(1)
		return nil, ErrKeyNotFound
	}

	c.hits.Add(1)
	c.order.MoveToFront(el)
	return append([]byte(nil), entry.value...), nil
}

func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if c.closed.Load() {
		return ErrCacheClosed
	}
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}
	entry := &memoryEntry{key: key, value: append([]byte(nil), value...), expiresAt: expiresAt}

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		el.Value = entry
		c.order.MoveToFront(el)
		return nil
	}
	for c.order.Len() >= c.maxEntries {
		c.remove(c.order.Back())
	}
	c.items[key] = c.order.PushFront(entry)
	return nil
}

func (c *MemoryCache) Delete(_ context.Context, key string) error {
	if c.closed.Load() {
		return ErrCacheClosed
	}

	c.mu.Lock()
	if el, ok := c.items[key]; ok {
		c.remove(el)
	}
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) Exists(_ context.Context, key string) (bool, error) {
	if c.closed.Load() {
		return false, ErrCacheClosed
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[key]
	return ok && !el.Value.(*memoryEntry).expired(time.Now()), nil
}

func (c *MemoryCache) Keys(_ context.Context, pattern string) ([]string, error) {
	if c.closed.Load() {
		return nil, ErrCacheClosed
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	var keys []string
	for key, el := range c.items {
		if !el.Value.(*memoryEntry).expired(now) && matchPattern(pattern, key) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func (c *MemoryCache) DeleteByPattern(_ context.Context, pattern string) (int64, error) {
	if c.closed.Load() {
		return 0, ErrCacheClosed
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var count int64
	for key, el := range c.items {
		if matchPattern(pattern, key) {
			c.remove(el)
			count++
		}
	}
	return count, nil
}

func (c *MemoryCache) Stats(_ context.Context) (*Stats, error) {
	if c.closed.Load() {
		return nil, ErrCacheClosed
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	stats := &Stats{
		Hits:         c.hits.Load(),
		Misses:       c.misses.Load(),
		KeysByPrefix: make(map[string]int64),
		Backend:      BackendMemory,
	}
	stats.HitRate = hitRate(stats.Hits, stats.Misses)

	now := time.Now()
	for key, el := range c.items {
		entry := el.Value.(*memoryEntry)
		if entry.expired(now) {
			continue
		}
		stats.TotalKeys++
		stats.MemoryBytes += int64(len(entry.value))
		stats.KeysByPrefix[extractPrefix(key)]++
	}
	return stats, nil
}

func (c *MemoryCache) Clear(_ context.Context) error {
	if c.closed.Load() {
		return ErrCacheClosed
	}

	c.mu.Lock()
	c.items = make(map[string]*list.Element)
	c.order.Init()
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) Close() error {
	if c.closed.Swap(true) {
		return nil
	}

	close(c.stopCh)
	c.wg.Wait()

	c.mu.Lock()
	c.items = nil
	c.order.Init()
	c.mu.Unlock()
	return nil
}

// remove requires c.mu.
func (c *MemoryCache) remove(el *list.Element) {
	c.order.Remove(el)
	delete(c.items, el.Value.(*memoryEntry).key)
}

func (c *MemoryCache) cleanupLoop(interval time.Duration) {
	defer c.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.purgeExpired()
		}
	}
}

func (c *MemoryCache) purgeExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for _, el := range c.items {
		if el.Value.(*memoryEntry).expired(now) {
			c.remove(el)
		}
	}
}

func hitRate(hits, misses int64) float64 {
	if total := hits + misses; total > 0 {
		return float64(hits) / float64(total)
	}
	return 0
}

// matchPattern matches key against a glob with at most one '*'.
func matchPattern(pattern, key string) bool {
	if pattern == "*" {
		return true
	}
	prefix, suffix, ok := strings.Cut(pattern, "*")
	if !ok {
		return pattern == key
	}
	return len(key) >= len(prefix)+len(suffix) &&
		strings.HasPrefix(key, prefix) && strings.HasSuffix(key, suffix)
}

func extractPrefix(key string) string {
	if idx := strings.Index(key, ":"); idx > 0 {
		return key[:idx]
	}
	return "other"
}
