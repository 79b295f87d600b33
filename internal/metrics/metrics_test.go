package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountersConcurrent(t *testing.T) {
	m := NewMetrics()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.IncrementCounter(HTTPRequests)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(50), m.Counter(HTTPRequests))
	assert.Equal(t, int64(50), m.GetCounters()[HTTPRequests])
	assert.Zero(t, m.Counter("unknown"))
}

func TestTimers(t *testing.T) {
	m := NewMetrics()
	m.RecordDuration(StoreQueryLatency, 10*time.Millisecond)
	m.RecordDuration(StoreQueryLatency, 30*time.Millisecond)

	timer, ok := m.GetTimers()[StoreQueryLatency]
	require.True(t, ok)
	assert.Equal(t, int64(2), timer.Count)
	assert.Equal(t, int64(40), timer.TotalTimeMs)
	assert.Equal(t, 20.0, timer.AverageTimeMs)
	assert.Equal(t, int64(10), timer.MinTimeMs)
	assert.Equal(t, int64(30), timer.MaxTimeMs)
}

func TestErrorRates(t *testing.T) {
	m := NewMetrics()
	m.RecordOutcome(StoreQueries, false)
	m.RecordOutcome(StoreQueries, false)
	m.RecordOutcome(StoreQueries, false)
	m.RecordOutcome(StoreQueries, true)

	rate := m.GetErrorRates()[StoreQueries]
	assert.Equal(t, int64(4), rate.Total)
	assert.Equal(t, int64(1), rate.Errors)
	assert.Equal(t, 25.0, rate.ErrorRate)
}

func TestHealth(t *testing.T) {
	m := NewMetrics()
	assert.True(t, m.Healthy())

	m.SetHealth("database", true)
	m.SetHealth("redis", false)
	assert.False(t, m.Healthy())
	assert.Equal(t, map[string]bool{"database": true, "redis": false}, m.GetHealthChecks())

	m.SetHealth("redis", true)
	assert.True(t, m.Healthy())
}

func TestGetAllMetrics(t *testing.T) {
	m := NewMetrics()
	m.SetGauge("goroutines", 4)

	all := m.GetAllMetrics()
	for _, key := range []string{"uptime_seconds", "counters", "gauges", "timers", "error_rates", "health_checks"} {
		assert.Contains(t, all, key)
	}
	assert.Equal(t, int64(4), all["gauges"].(map[string]int64)["goroutines"])
}
