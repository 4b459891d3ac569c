package cache

import (
	"context"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jimmyskull/goblin.2.8b18-sub000/pkg/config"
)

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()

	assert.Equal(t, BackendMemory, opts.Backend)
	assert.Equal(t, 5*time.Minute, opts.DefaultTTL)
	assert.Equal(t, 10000, opts.MaxEntries)
	assert.Equal(t, "localhost:6379", opts.RedisAddr)
	assert.Equal(t, "balflow-cache.db", opts.BoltPath)
}

func TestFromConfig(t *testing.T) {
	cfg := &config.CacheConfig{
		Driver:     "redis",
		Host:       "redis.local",
		Port:       6380,
		Password:   "secret",
		DB:         1,
		DefaultTTL: 10 * time.Minute,
		MaxEntries: 50000,
		BoltPath:   "/var/lib/balflow/cache.db",
	}

	opts := FromConfig(cfg)

	assert.Equal(t, "redis", opts.Backend)
	assert.Equal(t, 10*time.Minute, opts.DefaultTTL)
	assert.Equal(t, "redis.local:6380", opts.RedisAddr)
	assert.Equal(t, "secret", opts.RedisPassword)
	assert.Equal(t, 1, opts.RedisDB)
	assert.Equal(t, 50000, opts.MaxEntries)
	assert.Equal(t, "/var/lib/balflow/cache.db", opts.BoltPath)
}

func TestNew(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		c, err := New(&Options{Backend: BackendMemory})
		require.NoError(t, err)
		defer c.Close()
		assert.IsType(t, &MemoryCache{}, c)
	})

	t.Run("bolt", func(t *testing.T) {
		c, err := New(&Options{Backend: BackendBolt, BoltPath: filepath.Join(t.TempDir(), "c.db")})
		require.NoError(t, err)
		defer c.Close()
		assert.IsType(t, &BoltCache{}, c)
	})

	t.Run("nil options", func(t *testing.T) {
		c, err := New(nil)
		require.NoError(t, err)
		defer c.Close()
		assert.IsType(t, &MemoryCache{}, c)
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, err := New(&Options{Backend: "memcached"})
		assert.Error(t, err)
		assert.Panics(t, func() { MustNew(&Options{Backend: "memcached"}) })
	})
}

// backends returns a fresh cache per backend available in the test
// environment.
func backends(t *testing.T) map[string]func(t *testing.T) Cache {
	t.Helper()
	return map[string]func(t *testing.T) Cache{
		BackendMemory: func(t *testing.T) Cache {
			return NewMemoryCache(&Options{DefaultTTL: time.Minute, MaxEntries: 100})
		},
		BackendBolt: func(t *testing.T) Cache {
			c, err := NewBoltCache(&Options{DefaultTTL: time.Minute, BoltPath: filepath.Join(t.TempDir(), "cache.db")})
			require.NoError(t, err)
			return c
		},
	}
}

func TestBackends(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			testBackend(t, open, true)
		})
	}
}

// testBackend runs the behaviour shared by every backend. localStats is false
// for backends whose counters are server-wide.
func testBackend(t *testing.T, open func(t *testing.T) Cache, localStats bool) {
	ctx := context.Background()

	t.Run("set get", func(t *testing.T) {
		c := open(t)
		defer c.Close()

		require.NoError(t, c.Set(ctx, "k", []byte("v"), 0))
		got, err := c.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, []byte("v"), got)

		ok, err := c.Exists(ctx, "k")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("not found", func(t *testing.T) {
		c := open(t)
		defer c.Close()

		_, err := c.Get(ctx, "missing")
		assert.ErrorIs(t, err, ErrKeyNotFound)
		ok, err := c.Exists(ctx, "missing")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("overwrite", func(t *testing.T) {
		c := open(t)
		defer c.Close()

		require.NoError(t, c.Set(ctx, "k", []byte("a"), 0))
		require.NoError(t, c.Set(ctx, "k", []byte("b"), 0))
		got, err := c.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, []byte("b"), got)
	})

	t.Run("returned value is a copy", func(t *testing.T) {
		c := open(t)
		defer c.Close()

		require.NoError(t, c.Set(ctx, "k", []byte("abc"), 0))
		got, err := c.Get(ctx, "k")
		require.NoError(t, err)
		got[0] = 'x'
		again, err := c.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, []byte("abc"), again)
	})

	t.Run("expiry", func(t *testing.T) {
		c := open(t)
		defer c.Close()

		require.NoError(t, c.Set(ctx, "short", []byte("v"), 20*time.Millisecond))
		time.Sleep(40 * time.Millisecond)
		_, err := c.Get(ctx, "short")
		assert.ErrorIs(t, err, ErrKeyNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		c := open(t)
		defer c.Close()

		require.NoError(t, c.Set(ctx, "k", []byte("v"), 0))
		require.NoError(t, c.Delete(ctx, "k"))
		require.NoError(t, c.Delete(ctx, "k"))
		_, err := c.Get(ctx, "k")
		assert.ErrorIs(t, err, ErrKeyNotFound)
	})

	t.Run("patterns", func(t *testing.T) {
		c := open(t)
		defer c.Close()

		for _, k := range []string{"solve:bns:a", "solve:phase:a", "solve:bns:b", "other"} {
			require.NoError(t, c.Set(ctx, k, []byte(k), 0))
		}

		keys, err := c.Keys(ctx, "solve:*:a")
		require.NoError(t, err)
		sort.Strings(keys)
		assert.Equal(t, []string{"solve:bns:a", "solve:phase:a"}, keys)

		n, err := c.DeleteByPattern(ctx, "solve:*")
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)

		keys, err = c.Keys(ctx, "*")
		require.NoError(t, err)
		assert.Equal(t, []string{"other"}, keys)
	})

	t.Run("stats", func(t *testing.T) {
		c := open(t)
		defer c.Close()

		require.NoError(t, c.Set(ctx, "solve:x", []byte("1234"), 0))
		_, _ = c.Get(ctx, "solve:x")
		_, _ = c.Get(ctx, "missing")

		stats, err := c.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), stats.TotalKeys)
		if !localStats {
			return
		}
		assert.Equal(t, int64(1), stats.Hits)
		assert.Equal(t, int64(1), stats.Misses)
		assert.InDelta(t, 0.5, stats.HitRate, 1e-9)
		assert.Equal(t, int64(4), stats.MemoryBytes)
		assert.Equal(t, int64(1), stats.KeysByPrefix["solve"])
	})

	t.Run("clear", func(t *testing.T) {
		c := open(t)
		defer c.Close()

		require.NoError(t, c.Set(ctx, "a", []byte("1"), 0))
		require.NoError(t, c.Set(ctx, "b", []byte("2"), 0))
		require.NoError(t, c.Clear(ctx))
		keys, err := c.Keys(ctx, "*")
		require.NoError(t, err)
		assert.Empty(t, keys)
	})

	t.Run("closed", func(t *testing.T) {
		c := open(t)
		require.NoError(t, c.Close())
		_, err := c.Get(ctx, "k")
		assert.ErrorIs(t, err, ErrCacheClosed)
		assert.ErrorIs(t, c.Set(ctx, "k", nil, 0), ErrCacheClosed)
	})
}

func TestMemoryCache_EvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(&Options{MaxEntries: 2})
	defer c.Close()

	require.NoError(t, c.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, c.Set(ctx, "b", []byte("2"), 0))
	_, err := c.Get(ctx, "a")
	require.NoError(t, err)
	require.NoError(t, c.Set(ctx, "c", []byte("3"), 0))

	_, err = c.Get(ctx, "b")
	assert.ErrorIs(t, err, ErrKeyNotFound, "b was least recently used")
	for _, k := range []string{"a", "c"} {
		ok, err := c.Exists(ctx, k)
		require.NoError(t, err)
		assert.True(t, ok, k)
	}
}

func TestMemoryCache_CleanupLoop(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(&Options{CleanupInterval: 10 * time.Millisecond})
	defer c.Close()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 5*time.Millisecond))
	assert.Eventually(t, func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		return len(c.items) == 0
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, c.Close(), "double close is a no-op")
}

func TestBoltCache_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache.db")

	c, err := NewBoltCache(&Options{BoltPath: path})
	require.NoError(t, err)
	require.NoError(t, c.Set(ctx, "k", []byte("v"), 0))
	require.NoError(t, c.Set(ctx, "gone", []byte("v"), 10*time.Millisecond))
	assert.Equal(t, path, c.Path())
	require.NoError(t, c.Close())

	time.Sleep(20 * time.Millisecond)

	c, err = NewBoltCache(&Options{BoltPath: path})
	require.NoError(t, err)
	defer c.Close()

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	n, err := c.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestMatchPattern(t *testing.T) {
	tests := []struct {
		pattern string
		key     string
		want    bool
	}{
		{"*", "anything", true},
		{"solve:*", "solve:bns:x", true},
		{"solve:*", "probe:x", false},
		{"*:x", "solve:bns:x", true},
		{"solve:*:x", "solve:bns:x", true},
		{"solve:*:x", "solve:x", false},
		{"exact", "exact", true},
		{"exact", "exactly", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, matchPattern(tt.pattern, tt.key), "%s ~ %s", tt.pattern, tt.key)
	}
}
