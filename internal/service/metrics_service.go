package service

import (
	"net/http"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation.
type MetricsService struct {
	registry          *prometheus.Registry
	handler           http.Handler
	requestDuration   *prometheus.HistogramVec
	requestTotal      *prometheus.CounterVec
	cacheLatency      *prometheus.HistogramVec
	cacheWrite        *prometheus.HistogramVec
	cacheHitRatio     *prometheus.GaugeVec
	cacheHits         *prometheus.CounterVec
	cacheMisses       *prometheus.CounterVec
	cacheEvictions    *prometheus.CounterVec
	earningsDuration  *prometheus.HistogramVec
	earningsTotal     *prometheus.CounterVec
	earningsScheduled prometheus.Counter

	cacheMu     sync.Mutex
	cacheTotals map[string]*cacheTally
}

type cacheTally struct {
	hits   uint64
	misses uint64
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache lookups by namespace",
		Buckets: prometheus.DefBuckets,
	}, []string{"namespace"})

	cacheWrite := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache writes by namespace",
		Buckets: prometheus.DefBuckets,
	}, []string{"namespace"})

	cacheHitRatio := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to lookups by namespace",
	}, []string{"namespace"})

	cacheHits := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Cache hits by namespace",
	}, []string{"namespace"})

	cacheMisses := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Cache misses by namespace",
	}, []string{"namespace"})

	cacheEvictions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cache_evictions_total",
		Help: "Cache invalidations by namespace",
	}, []string{"namespace"})

	earningsDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "earnings_recompute_duration_seconds",
		Help:    "Duration of teacher earnings recomputation",
		Buckets: prometheus.DefBuckets,
	}, []string{"trigger"})

	earningsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "earnings_recompute_total",
		Help: "Teacher earnings recomputations by trigger and result",
	}, []string{"trigger", "result"})

	earningsScheduled := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "earnings_recompute_scheduled_total",
		Help: "Asynchronous earnings recomputations accepted by the queue",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		cacheEvictions, earningsDuration, earningsTotal, earningsScheduled, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:          registry,
		handler:           handler,
		requestDuration:   requestDuration,
		requestTotal:      requestTotal,
		cacheLatency:      cacheLatency,
		cacheWrite:        cacheWrite,
		cacheHitRatio:     cacheHitRatio,
		cacheHits:         cacheHits,
		cacheMisses:       cacheMisses,
		cacheEvictions:    cacheEvictions,
		cacheTotals:       map[string]*cacheTally{},
		earningsDuration:  earningsDuration,
		earningsTotal:     earningsTotal,
		earningsScheduled: earningsScheduled,
	}
}

// Registry exposes the underlying registry, mostly for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records a lookup in namespace and refreshes that
// namespace's hit ratio.
func (m *MetricsService) RecordCacheOperation(namespace string, hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.WithLabelValues(namespace).Observe(duration.Seconds())
	if hit {
		m.cacheHits.WithLabelValues(namespace).Inc()
	} else {
		m.cacheMisses.WithLabelValues(namespace).Inc()
	}

	m.cacheMu.Lock()
	defer m.cacheMu.Unlock()
	tally, ok := m.cacheTotals[namespace]
	if !ok {
		tally = &cacheTally{}
		m.cacheTotals[namespace] = tally
	}
	if hit {
		tally.hits++
	} else {
		tally.misses++
	}
	m.cacheHitRatio.WithLabelValues(namespace).Set(float64(tally.hits) / float64(tally.hits+tally.misses))
}

// ObserveCacheWrite tracks the duration of a cache write in namespace.
func (m *MetricsService) ObserveCacheWrite(namespace string, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.WithLabelValues(namespace).Observe(duration.Seconds())
}

// RecordCacheEviction counts an invalidation in namespace.
func (m *MetricsService) RecordCacheEviction(namespace string) {
	if m == nil {
		return
	}
	m.cacheEvictions.WithLabelValues(namespace).Inc()
}

// ObserveEarningsRecompute records one teacher recomputation. trigger is
// "list" for the read path and "queue" for background jobs.
func (m *MetricsService) ObserveEarningsRecompute(trigger string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.earningsDuration.WithLabelValues(trigger).Observe(duration.Seconds())
	m.earningsTotal.WithLabelValues(trigger, result).Inc()
}

// RecordEarningsScheduled counts recompute jobs accepted by the queue.
func (m *MetricsService) RecordEarningsScheduled() {
	if m == nil {
		return
	}
	m.earningsScheduled.Inc()
}
