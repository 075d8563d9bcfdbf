package prometheus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeL71221ibpm/iBPM-sub012/internal/infrastructure/monitoring/logging"
)

func newTestCollector(t *testing.T) MetricsCollector {
	t.Helper()
	c, err := NewMetricsCollector(CollectorConfig{Namespace: "ibpm", Subsystem: "test"}, logging.NewNopLogger())
	require.NoError(t, err)
	return c
}

func TestNewMetricsCollectorRequiresNamespace(t *testing.T) {
	_, err := NewMetricsCollector(CollectorConfig{}, logging.NewNopLogger())
	require.Error(t, err)
}

func TestRegisterCounterIsIdempotent(t *testing.T) {
	c := newTestCollector(t)

	first := c.RegisterCounter("extractions_total", "help", "status")
	second := c.RegisterCounter("extractions_total", "help", "status")

	first.WithLabelValues("ok").Inc()
	second.WithLabelValues("ok").Inc()
	// No panic from double registration is the contract under test.
	assert.NotNil(t, first)
	assert.NotNil(t, second)
}

func TestRegisterGaugeAndHistogram(t *testing.T) {
	c := newTestCollector(t)

	g := c.RegisterGauge("workers", "help", "pool")
	g.WithLabelValues("extract").Set(4)
	g.WithLabelValues("extract").Inc()
	g.WithLabelValues("extract").Dec()

	h := c.RegisterHistogram("latency_seconds", "help", nil, "op")
	h.WithLabelValues("pivot").Observe(0.05)
}

func TestHandlerServesRegistry(t *testing.T) {
	c := newTestCollector(t)
	assert.NotNil(t, c.Handler())
}

func TestTimerObservesElapsed(t *testing.T) {
	c := newTestCollector(t)
	h := c.RegisterHistogram("timed_seconds", "help", nil, "op")

	timer := NewTimer(h.WithLabelValues("load"))
	time.Sleep(time.Millisecond)
	timer.ObserveDuration()

	// Nil histogram must be a safe no-op.
	(&Timer{}).ObserveDuration()
}

func TestNewAppMetricsRegistersEverything(t *testing.T) {
	m := NewAppMetrics(newTestCollector(t))

	require.NotNil(t, m)
	assert.NotNil(t, m.HTTPRequestsTotal)
	assert.NotNil(t, m.NotesProcessedTotal)
	assert.NotNil(t, m.PivotRequestsTotal)
	assert.NotNil(t, m.CacheHitsTotal)
	assert.NotNil(t, m.DeadLetteredTotal)
	assert.NotNil(t, m.ErrorsTotal)

	RecordHTTPRequest(m, "GET", "/api/v1/pivot", 200, 10*time.Millisecond)
	RecordExtraction(m, "api", 10, 1, 20, 3, time.Second)
	RecordPivot(m, "diagnosis", "cold", 42, 5*time.Millisecond)
	RecordCacheAccess(m, "pivot", true)
	RecordCacheAccess(m, "pivot", false)
	RecordError(m, "extraction", "NOTE_001")
}
