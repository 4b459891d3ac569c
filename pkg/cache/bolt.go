package cache

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	bolt "go.etcd.io/bbolt"
)

var boltBucket = []byte("results")

// BoltCache stores entries in a local bbolt file. Each value is prefixed
// with its expiry in Unix nanoseconds, zero meaning none.
type BoltCache struct {
	db         *bolt.DB
	defaultTTL time.Duration

	hits   atomic.Int64
	misses atomic.Int64
}

// NewBoltCache opens or creates the file at opts.BoltPath.
func NewBoltCache(opts *Options) (*BoltCache, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	db, err := bolt.Open(opts.BoltPath, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt cache %s: %w", opts.BoltPath, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(boltBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create bolt bucket: %w", err)
	}

	c := &BoltCache{db: db, defaultTTL: opts.DefaultTTL}
	// entries of earlier processes may have expired while the file was closed
	if _, err := c.Purge(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return c, nil
}

func encodeBoltValue(value []byte, expiresAt time.Time) []byte {
	buf := make([]byte, 8+len(value))
	if !expiresAt.IsZero() {
		binary.BigEndian.PutUint64(buf, uint64(expiresAt.UnixNano()))
	}
	copy(buf[8:], value)
	return buf
}

// decodeBoltValue copies the payload out of a bbolt-owned slice.
func decodeBoltValue(raw []byte, now time.Time) ([]byte, bool) {
	if len(raw) < 8 {
		return nil, false
	}
	if exp := int64(binary.BigEndian.Uint64(raw)); exp != 0 && now.UnixNano() > exp {
		return nil, false
	}
	return append([]byte(nil), raw[8:]...), true
}

func (c *BoltCache) Get(_ context.Context, key string) ([]byte, error) {
	var value []byte
	var found bool
	err := c.db.View(func(tx *bolt.Tx) error {
		value, found = decodeBoltValue(tx.Bucket(boltBucket).Get([]byte(key)), time.Now())
		return nil
	})
	if err != nil {
		return nil, c.wrap(err)
	}
	if !found {
		c.misses.Add(1)
		return nil, ErrKeyNotFound
	}
	c.hits.Add(1)
	return value, nil
}

func (c *BoltCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}
	return c.wrap(c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(boltBucket).Put([]byte(key), encodeBoltValue(value, expiresAt))
	}))
}

func (c *BoltCache) Delete(_ context.Context, key string) error {
	return c.wrap(c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(boltBucket).Delete([]byte(key))
	}))
}

func (c *BoltCache) Exists(_ context.Context, key string) (bool, error) {
	var found bool
	err := c.db.View(func(tx *bolt.Tx) error {
		_, found = decodeBoltValue(tx.Bucket(boltBucket).Get([]byte(key)), time.Now())
		return nil
	})
	return found, c.wrap(err)
}

func (c *BoltCache) Keys(_ context.Context, pattern string) ([]string, error) {
	var keys []string
	now := time.Now()
	err := c.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(boltBucket).ForEach(func(k, v []byte) error {
			if _, ok := decodeBoltValue(v, now); ok && matchPattern(pattern, string(k)) {
				keys = append(keys, string(k))
			}
			return nil
		})
	})
	return keys, c.wrap(err)
}

func (c *BoltCache) DeleteByPattern(_ context.Context, pattern string) (int64, error) {
	var count int64
	err := c.db.Update(func(tx *bolt.Tx) error {
		n, err := deleteWhere(tx.Bucket(boltBucket), func(k, _ []byte) bool {
			return matchPattern(pattern, string(k))
		})
		count = n
		return err
	})
	return count, c.wrap(err)
}

// deleteWhere collects the matching keys before deleting them; deleting
// under a live cursor skips entries.
func deleteWhere(b *bolt.Bucket, match func(k, v []byte) bool) (int64, error) {
	var doomed [][]byte
	err := b.ForEach(func(k, v []byte) error {
		if match(k, v) {
			doomed = append(doomed, append([]byte(nil), k...))
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	for _, k := range doomed {
		if err := b.Delete(k); err != nil {
			return 0, err
		}
	}
	return int64(len(doomed)), nil
}

func (c *BoltCache) Stats(_ context.Context) (*Stats, error) {
	stats := &Stats{
		Hits:         c.hits.Load(),
		Misses:       c.misses.Load(),
		KeysByPrefix: make(map[string]int64),
		Backend:      BackendBolt,
	}
	stats.HitRate = hitRate(stats.Hits, stats.Misses)

	now := time.Now()
	err := c.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(boltBucket).ForEach(func(k, v []byte) error {
			if _, ok := decodeBoltValue(v, now); !ok {
				return nil
			}
			stats.TotalKeys++
			stats.MemoryBytes += int64(len(v) - 8)
			stats.KeysByPrefix[extractPrefix(string(k))]++
			return nil
		})
	})
	if err != nil {
		return nil, c.wrap(err)
	}
	return stats, nil
}

// Purge removes expired entries and returns how many were dropped.
func (c *BoltCache) Purge(_ context.Context) (int64, error) {
	var count int64
	now := time.Now()
	err := c.db.Update(func(tx *bolt.Tx) error {
		n, err := deleteWhere(tx.Bucket(boltBucket), func(_, v []byte) bool {
			_, live := decodeBoltValue(v, now)
			return !live
		})
		count = n
		return err
	})
	return count, c.wrap(err)
}

func (c *BoltCache) Clear(_ context.Context) error {
	return c.wrap(c.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(boltBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucket(boltBucket)
		return err
	}))
}

func (c *BoltCache) Close() error {
	return c.db.Close()
}

// Path returns the file backing the cache.
func (c *BoltCache) Path() string {
	return c.db.Path()
}

func (c *BoltCache) wrap(err error) error {
	if errors.Is(err, bolt.ErrDatabaseNotOpen) {
		return ErrCacheClosed
	}
	return err
}
