package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ResultCache stores solve results by network and algorithm.
type ResultCache struct {
	cache      Cache
	defaultTTL time.Duration
}

// CachedResult is a stored solve result.
type CachedResult struct {
	RunID         string    `json:"run_id,omitempty"`
	Algorithm     string    `json:"algorithm"`
	Status        string    `json:"status"`
	Value         int64     `json:"value"`
	Increase      int64     `json:"increase"`
	Augmentations int       `json:"augmentations"`
	Phases        int       `json:"phases"`
	Blossoms      int       `json:"blossoms"`
	Flows         []int64   `json:"flows"`
	DurationMs    float64   `json:"duration_ms"`
	ComputedAt    time.Time `json:"computed_at"`
}

// NewResultCache wraps c. A non-positive ttl means ten minutes.
func NewResultCache(c Cache, defaultTTL time.Duration) *ResultCache {
	if defaultTTL <= 0 {
		defaultTTL = 10 * time.Minute
	}
	return &ResultCache{
		cache:      c,
		defaultTTL: defaultTTL,
	}
}

// Get looks up the result for the network. A corrupt entry is dropped and
// reported as a miss.
func (rc *ResultCache) Get(ctx context.Context, n Network, algorithm, variant string) (*CachedResult, bool, error) {
	key := BuildSolveKey(NetworkHash(n), algorithm, variant)

	data, err := rc.cache.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var result CachedResult
	if err := json.Unmarshal(data, &result); err != nil {
		_ = rc.cache.Delete(ctx, key) //nolint:errcheck // best effort cleanup
		return nil, false, nil
	}
	if len(result.Flows) != len(n.Arcs) {
		_ = rc.cache.Delete(ctx, key) //nolint:errcheck // best effort cleanup
		return nil, false, nil
	}

	return &result, true, nil
}

// Set stores result for the network. A non-positive ttl uses the default.
func (rc *ResultCache) Set(ctx context.Context, n Network, algorithm, variant string, result *CachedResult, ttl time.Duration) error {
	if result == nil {
		return nil
	}
	if len(result.Flows) != len(n.Arcs) {
		return fmt.Errorf("cached result has %d flows for %d arcs", len(result.Flows), len(n.Arcs))
	}
	if ttl <= 0 {
		ttl = rc.defaultTTL
	}

	key := BuildSolveKey(NetworkHash(n), algorithm, variant)
	if result.ComputedAt.IsZero() {
		result.ComputedAt = time.Now()
	}

	data, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return rc.cache.Set(ctx, key, data, ttl)
}

// Invalidate drops every cached result for the network.
func (rc *ResultCache) Invalidate(ctx context.Context, n Network) (int64, error) {
	return rc.cache.DeleteByPattern(ctx, "solve:*"+NetworkHash(n))
}

// InvalidateAll drops every cached result.
func (rc *ResultCache) InvalidateAll(ctx context.Context) (int64, error) {
	return rc.cache.DeleteByPattern(ctx, "solve:*")
}

// Stats returns the statistics of the underlying cache.
func (rc *ResultCache) Stats(ctx context.Context) (*Stats, error) {
	return rc.cache.Stats(ctx)
}

// Close closes the underlying cache.
func (rc *ResultCache) Close() error {
	return rc.cache.Close()
}
