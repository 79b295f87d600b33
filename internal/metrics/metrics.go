package metrics

import (
	"math"
	"sync"
	"sync/atomic"
	"time"
)

// Metric names shared by the HTTP and store layers
const (
	HTTPRequests      = "http_requests"
	HTTPLatency       = "http_latency"
	HTTPErrors        = "http"
	StoreQueryLatency = "store_query"
	StoreQueries      = "store"
	RidesCreated      = "rides_created"
	CacheHits         = "cache_hits"
	CacheMisses       = "cache_misses"
	RidesIndexed      = "rides_indexed"
	EventsPublished   = "events_published"
)

// TimerMetric captures timing information
type TimerMetric struct {
	Count         int64   `json:"count"`
	TotalTimeMs   int64   `json:"total_time_ms"`
	AverageTimeMs float64 `json:"average_time_ms"`
	MinTimeMs     int64   `json:"min_time_ms"`
	MaxTimeMs     int64   `json:"max_time_ms"`
}

// ErrorRateMetric captures error rates
type ErrorRateMetric struct {
	Total     int64   `json:"total"`
	Errors    int64   `json:"errors"`
	ErrorRate float64 `json:"error_rate"`
}

type timer struct {
	count   int64
	totalMs int64
	minMs   int64
	maxMs   int64
}

type errorRate struct {
	total  int64
	errors int64
}

// Metrics is an in-process collector safe for concurrent use
type Metrics struct {
	mu           sync.RWMutex
	counters     map[string]*int64
	gauges       map[string]*int64
	timers       map[string]*timer
	errorRates   map[string]*errorRate
	healthChecks map[string]*int64
	startTime    time.Time
}

// NewMetrics creates a new metrics collector
func NewMetrics() *Metrics {
	return &Metrics{
		counters:     make(map[string]*int64),
		gauges:       make(map[string]*int64),
		timers:       make(map[string]*timer),
		errorRates:   make(map[string]*errorRate),
		healthChecks: make(map[string]*int64),
		startTime:    time.Now(),
	}
}

// lookup returns the entry for name, creating it with create on first use
func lookup[T any](m *Metrics, entries map[string]*T, name string, create func() *T) *T {
	m.mu.RLock()
	entry, ok := entries[name]
	m.mu.RUnlock()
	if ok {
		return entry
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if entry, ok = entries[name]; !ok {
		entry = create()
		entries[name] = entry
	}
	return entry
}

func newInt64() *int64 { return new(int64) }

// IncrementCounter increments a counter by 1
func (m *Metrics) IncrementCounter(name string) {
	m.IncrementCounterBy(name, 1)
}

// IncrementCounterBy increments a counter by the specified value
func (m *Metrics) IncrementCounterBy(name string, value int64) {
	atomic.AddInt64(lookup(m, m.counters, name, newInt64), value)
}

// SetGauge sets a gauge to a specific value
func (m *Metrics) SetGauge(name string, value int64) {
	atomic.StoreInt64(lookup(m, m.gauges, name, newInt64), value)
}

// RecordDuration records a timing measurement
func (m *Metrics) RecordDuration(name string, d time.Duration) {
	ms := d.Milliseconds()
	t := lookup(m, m.timers, name, func() *timer {
		return &timer{minMs: math.MaxInt64}
	})

	atomic.AddInt64(&t.count, 1)
	atomic.AddInt64(&t.totalMs, ms)

	for {
		current := atomic.LoadInt64(&t.minMs)
		if ms >= current || atomic.CompareAndSwapInt64(&t.minMs, current, ms) {
			break
		}
	}
	for {
		current := atomic.LoadInt64(&t.maxMs)
		if ms <= current || atomic.CompareAndSwapInt64(&t.maxMs, current, ms) {
			break
		}
	}
}

// RecordOutcome records one operation for error rate tracking
func (m *Metrics) RecordOutcome(name string, failed bool) {
	er := lookup(m, m.errorRates, name, func() *errorRate { return &errorRate{} })
	atomic.AddInt64(&er.total, 1)
	if failed {
		atomic.AddInt64(&er.errors, 1)
	}
}

// SetHealth sets the health status of a component
func (m *Metrics) SetHealth(component string, healthy bool) {
	var value int64
	if healthy {
		value = 1
	}
	atomic.StoreInt64(lookup(m, m.healthChecks, component, newInt64), value)
}

// Counter returns the current value of a counter
func (m *Metrics) Counter(name string) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if c, ok := m.counters[name]; ok {
		return atomic.LoadInt64(c)
	}
	return 0
}

// GetCounters returns all counters
func (m *Metrics) GetCounters() map[string]int64 {
	return snapshot(m, m.counters, func(v *int64) int64 { return atomic.LoadInt64(v) })
}

// GetGauges returns all gauges
func (m *Metrics) GetGauges() map[string]int64 {
	return snapshot(m, m.gauges, func(v *int64) int64 { return atomic.LoadInt64(v) })
}

// GetTimers returns all timers
func (m *Metrics) GetTimers() map[string]TimerMetric {
	return snapshot(m, m.timers, func(t *timer) TimerMetric {
		count := atomic.LoadInt64(&t.count)
		total := atomic.LoadInt64(&t.totalMs)
		var avg float64
		if count > 0 {
			avg = float64(total) / float64(count)
		}
		return TimerMetric{
			Count:         count,
			TotalTimeMs:   total,
			AverageTimeMs: avg,
			MinTimeMs:     atomic.LoadInt64(&t.minMs),
			MaxTimeMs:     atomic.LoadInt64(&t.maxMs),
		}
	})
}

// GetErrorRates returns all error rates as percentages
func (m *Metrics) GetErrorRates() map[string]ErrorRateMetric {
	return snapshot(m, m.errorRates, func(er *errorRate) ErrorRateMetric {
		total := atomic.LoadInt64(&er.total)
		errs := atomic.LoadInt64(&er.errors)
		var rate float64
		if total > 0 {
			rate = float64(errs) / float64(total) * 100.0
		}
		return ErrorRateMetric{Total: total, Errors: errs, ErrorRate: rate}
	})
}

// GetHealthChecks returns all health checks
func (m *Metrics) GetHealthChecks() map[string]bool {
	return snapshot(m, m.healthChecks, func(v *int64) bool { return atomic.LoadInt64(v) > 0 })
}

// Healthy reports whether every registered component is healthy
func (m *Metrics) Healthy() bool {
	for _, ok := range m.GetHealthChecks() {
		if !ok {
			return false
		}
	}
	return true
}

func snapshot[T, V any](m *Metrics, entries map[string]*T, read func(*T) V) map[string]V {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]V, len(entries))
	for name, entry := range entries {
		out[name] = read(entry)
	}
	return out
}

// GetUptimeSeconds returns the service uptime in seconds
func (m *Metrics) GetUptimeSeconds() int64 {
	return int64(time.Since(m.startTime).Seconds())
}

// GetAllMetrics returns all metrics in a structured format
func (m *Metrics) GetAllMetrics() map[string]interface{} {
	return map[string]interface{}{
		"uptime_seconds": m.GetUptimeSeconds(),
		"counters":       m.GetCounters(),
		"gauges":         m.GetGauges(),
		"timers":         m.GetTimers(),
		"error_rates":    m.GetErrorRates(),
		"health_checks":  m.GetHealthChecks(),
	}
}
