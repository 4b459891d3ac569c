// Package cache stores solve results keyed by a hash of the input network.
// Backends: in-memory LRU, Redis and a local bbolt file.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jimmyskull/goblin.2.8b18-sub000/pkg/config"
)

// Backend types for cache implementations.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendBolt   = "bolt"
)

// Standard errors returned by cache operations.
var (
	// ErrKeyNotFound is returned when a requested key does not exist in the cache.
	ErrKeyNotFound = errors.New("key not found")
	// ErrCacheClosed is returned when an operation is attempted on a closed cache.
	ErrCacheClosed = errors.New("cache is closed")
)

// Cache is a byte-oriented key/value store with expiry.
type Cache interface {
	// Get returns ErrKeyNotFound if the key does not exist or has expired.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value for key. A non-positive ttl falls back to the default
	// TTL; a zero default means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete is a no-op for missing keys.
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)

	// Keys returns the keys matching a glob with at most one '*'.
	Keys(ctx context.Context, pattern string) ([]string, error)
	// DeleteByPattern returns the number of deleted keys.
	DeleteByPattern(ctx context.Context, pattern string) (int64, error)

	Stats(ctx context.Context) (*Stats, error)
	Clear(ctx context.Context) error
	Close() error
}

// Stats describes the state of a cache.
type Stats struct {
	TotalKeys    int64
	Hits         int64
	Misses       int64
	HitRate      float64
	MemoryBytes  int64
	KeysByPrefix map[string]int64
	Backend      string
}

// Options configures New.
type Options struct {
	Backend    string
	DefaultTTL time.Duration

	// Memory
	MaxEntries      int
	CleanupInterval time.Duration

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPoolSize int

	// Bolt
	BoltPath string
}

// DefaultOptions returns options for an in-memory cache.
func DefaultOptions() *Options {
	return &Options{
		Backend:         BackendMemory,
		DefaultTTL:      5 * time.Minute,
		MaxEntries:      10000,
		CleanupInterval: time.Minute,
		RedisAddr:       "localhost:6379",
		RedisPoolSize:   10,
		BoltPath:        "balflow-cache.db",
	}
}

// FromConfig builds options from the cache configuration section.
func FromConfig(cfg *config.CacheConfig) *Options {
	opts := DefaultOptions()
	opts.Backend = cfg.Driver
	opts.DefaultTTL = cfg.DefaultTTL
	if cfg.MaxEntries > 0 {
		opts.MaxEntries = cfg.MaxEntries
	}
	opts.RedisAddr = cfg.Address()
	opts.RedisPassword = cfg.Password
	opts.RedisDB = cfg.DB
	if cfg.BoltPath != "" {
		opts.BoltPath = cfg.BoltPath
	}
	return opts
}

// New creates the cache selected by opts.Backend.
func New(opts *Options) (Cache, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	switch opts.Backend {
	case BackendMemory, "":
		return NewMemoryCache(opts), nil
	case BackendRedis:
		return NewRedisCache(opts)
	case BackendBolt:
		return NewBoltCache(opts)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", opts.Backend)
	}
}

// MustNew is like New but panics on error.
func MustNew(opts *Options) Cache {
	c, err := New(opts)
	if err != nil {
		panic(err)
	}
	return c
}
