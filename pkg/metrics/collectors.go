package metrics

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jimmyskull/goblin.2.8b18-sub000/pkg/cache"
)

// CacheStatser reports the statistics of a result cache.
type CacheStatser interface {
	Stats(ctx context.Context) (*cache.Stats, error)
}

// CacheCollector exports result cache statistics at scrape time.
type CacheCollector struct {
	source  CacheStatser
	timeout time.Duration

	keys     *prometheus.Desc
	prefix   *prometheus.Desc
	hits     *prometheus.Desc
	misses   *prometheus.Desc
	hitRate  *prometheus.Desc
	memBytes *prometheus.Desc
	up       *prometheus.Desc
}

// NewCacheCollector creates a CacheCollector reading from source.
func NewCacheCollector(namespace, subsystem string, source CacheStatser) *CacheCollector {
	desc := func(name, help string, labels ...string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, subsystem, name), help, labels, nil)
	}
	return &CacheCollector{
		source:   source,
		timeout:  2 * time.Second,
		keys:     desc("keys", "Cached solve results", "backend"),
		prefix:   desc("keys_by_prefix", "Cached entries per key prefix", "backend", "prefix"),
		hits:     desc("hits_total", "Cache hits reported by the backend", "backend"),
		misses:   desc("misses_total", "Cache misses reported by the backend", "backend"),
		hitRate:  desc("hit_ratio", "Hits over lookups reported by the backend", "backend"),
		memBytes: desc("memory_bytes", "Memory used by the backend", "backend"),
		up:       desc("up", "Whether the last stats read succeeded"),
	}
}

// Describe implements prometheus.Collector
func (c *CacheCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.keys
	ch <- c.prefix
	ch <- c.hits
	ch <- c.misses
	ch <- c.hitRate
	ch <- c.memBytes
	ch <- c.up
}

// Collect implements prometheus.Collector
func (c *CacheCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	stats, err := c.source.Stats(ctx)
	if err != nil || stats == nil {
		ch <- prometheus.MustNewConstMetric(c.up, prometheus.GaugeValue, 0)
		return
	}
	ch <- prometheus.MustNewConstMetric(c.up, prometheus.GaugeValue, 1)

	b := stats.Backend
	ch <- prometheus.MustNewConstMetric(c.keys, prometheus.GaugeValue, float64(stats.TotalKeys), b)
	ch <- prometheus.MustNewConstMetric(c.hits, prometheus.CounterValue, float64(stats.Hits), b)
	ch <- prometheus.MustNewConstMetric(c.misses, prometheus.CounterValue, float64(stats.Misses), b)
	ch <- prometheus.MustNewConstMetric(c.hitRate, prometheus.GaugeValue, stats.HitRate, b)
	if stats.MemoryBytes > 0 {
		ch <- prometheus.MustNewConstMetric(c.memBytes, prometheus.GaugeValue, float64(stats.MemoryBytes), b)
	}
	for prefix, n := range stats.KeysByPrefix {
		ch <- prometheus.MustNewConstMetric(c.prefix, prometheus.GaugeValue, float64(n), b, prefix)
	}
}

// SolveTracker tracks solves in flight per algorithm.
type SolveTracker struct {
	mu       sync.Mutex
	active   map[string]int
	inFlight prometheus.Gauge
}

// Active returns the number of solves in flight for algorithm.
func (t *SolveTracker) Active(algorithm string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active[algorithm]
}

// NewSolveTracker creates a SolveTracker reporting to inFlight.
func NewSolveTracker(inFlight prometheus.Gauge) *SolveTracker {
	return &SolveTracker{
		active:   make(map[string]int),
		inFlight: inFlight,
	}
}

// Start marks the beginning of a solve.
func (t *SolveTracker) Start(algorithm string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.active[algorithm]++
	t.inFlight.Inc()
}

// End marks the end of a solve.
func (t *SolveTracker) End(algorithm string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.active[algorithm] > 0 {
		t.active[algorithm]--
		t.inFlight.Dec()
	}
}
