package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the solver collectors.
type Metrics struct {
	// Solve metrics
	SolvesTotal    *prometheus.CounterVec
	SolveDuration  *prometheus.HistogramVec
	SolvesInFlight prometheus.Gauge
	FlowValue      *prometheus.GaugeVec

	// Search metrics
	Augmentations *prometheus.HistogramVec
	Phases        *prometheus.HistogramVec
	Blossoms      *prometheus.HistogramVec
	Rejected      *prometheus.CounterVec

	// Input metrics
	NetworkNodes *prometheus.HistogramVec
	NetworkArcs  *prometheus.HistogramVec

	// Cache metrics
	CacheLookups *prometheus.CounterVec

	// Service information
	ServiceInfo *prometheus.GaugeVec

	registry prometheus.Registerer
	gatherer prometheus.Gatherer
}

var defaultMetrics *Metrics

// InitMetrics registers the collectors with the default registry.
func InitMetrics(namespace, subsystem string) *Metrics {
	m := NewMetrics(namespace, subsystem, prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
	defaultMetrics = m
	return m
}

// NewMetrics registers the collectors with reg and serves them from gather.
func NewMetrics(namespace, subsystem string, reg prometheus.Registerer, gather prometheus.Gatherer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		SolvesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "solves_total",
				Help:      "Total number of balanced flow solves",
			},
			[]string{"algorithm", "status"},
		),

		SolveDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "solve_duration_seconds",
				Help:      "Duration of balanced flow solves",
				Buckets:   []float64{.0001, .001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"algorithm"},
		),

		SolvesInFlight: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "solves_in_flight",
				Help:      "Current number of solves being processed",
			},
		),

		FlowValue: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "flow_value",
				Help:      "Last computed balanced flow value",
			},
			[]string{"algorithm"},
		),

		Augmentations: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "augmentations",
				Help:      "Augmentations per solve",
				Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
			},
			[]string{"algorithm"},
		),

		Phases: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "phases",
				Help:      "Search phases per solve",
				Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
			},
			[]string{"algorithm"},
		),

		Blossoms: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "blossoms",
				Help:      "Blossoms shrunk per solve",
				Buckets:   []float64{0, 1, 5, 10, 50, 100, 500, 1000, 10000},
			},
			[]string{"algorithm"},
		),

		Rejected: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "rejected_paths_total",
				Help:      "Candidate paths rejected for lack of balanced capacity",
			},
			[]string{"algorithm"},
		),

		NetworkNodes: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "network_nodes",
				Help:      "Number of nodes in processed networks",
				Buckets:   []float64{10, 50, 100, 500, 1000, 5000, 10000, 50000},
			},
			[]string{"operation"},
		),

		NetworkArcs: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "network_arcs",
				Help:      "Number of arcs in processed networks",
				Buckets:   []float64{20, 100, 500, 1000, 5000, 10000, 50000, 100000},
			},
			[]string{"operation"},
		),

		CacheLookups: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cache_lookups_total",
				Help:      "Result cache lookups",
			},
			[]string{"result"},
		),

		ServiceInfo: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "service_info",
				Help:      "Service information",
			},
			[]string{"version", "environment"},
		),

		registry: reg,
		gatherer: gather,
	}
}

// Get returns the default metrics, initialising them on first use.
func Get() *Metrics {
	if defaultMetrics == nil {
		return InitMetrics("balflow", "")
	}
	return defaultMetrics
}

// SolveStats carries the counters of one finished solve.
type SolveStats struct {
	Algorithm     string
	Status        string
	Duration      time.Duration
	Value         int64
	Augmentations int
	Phases        int
	Blossoms      int
	Rejected      int
}

// RecordSolve records a finished solve.
func (m *Metrics) RecordSolve(s SolveStats) {
	m.SolvesTotal.WithLabelValues(s.Algorithm, s.Status).Inc()
	m.SolveDuration.WithLabelValues(s.Algorithm).Observe(s.Duration.Seconds())
	m.FlowValue.WithLabelValues(s.Algorithm).Set(float64(s.Value))
	m.Augmentations.WithLabelValues(s.Algorithm).Observe(float64(s.Augmentations))
	m.Phases.WithLabelValues(s.Algorithm).Observe(float64(s.Phases))
	m.Blossoms.WithLabelValues(s.Algorithm).Observe(float64(s.Blossoms))
	if s.Rejected > 0 {
		m.Rejected.WithLabelValues(s.Algorithm).Add(float64(s.Rejected))
	}
}

// RecordNetworkSize records the size of an input network.
func (m *Metrics) RecordNetworkSize(operation string, nodes, arcs int) {
	m.NetworkNodes.WithLabelValues(operation).Observe(float64(nodes))
	m.NetworkArcs.WithLabelValues(operation).Observe(float64(arcs))
}

// RecordCacheLookup counts a cache hit or miss.
func (m *Metrics) RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

// SetServiceInfo sets the service information gauge.
func (m *Metrics) SetServiceInfo(version, environment string) {
	m.ServiceInfo.WithLabelValues(version, environment).Set(1)
}

// RegisterCacheCollector exports the statistics of source on every scrape.
func (m *Metrics) RegisterCacheCollector(namespace, subsystem string, source CacheStatser) error {
	return m.registry.Register(NewCacheCollector(namespace, subsystem, source))
}

// Handler returns the HTTP handler for these metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Handler returns the HTTP handler for /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// NewServer builds the metrics HTTP server.
func (m *Metrics) NewServer(port int, path string) *http.Server {
	if path == "" {
		path = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle(path, m.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK")) //nolint:errcheck // health endpoint
	})

	return &http.Server{
		Addr:         ":" + strconv.Itoa(port),
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}
