package prometheus

import (
	"strconv"
	"time"
)

// AppMetrics holds every metric the symptom analytics pipeline records.
type AppMetrics struct {
	// HTTP layer
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec

	// Extraction layer
	NotesProcessedTotal     CounterVec
	NotesSkippedTotal       CounterVec
	EventsExtractedTotal    CounterVec
	ExtractionDuration      HistogramVec
	ExtractionActiveWorkers GaugeVec

	// Aggregation layer
	PivotRequestsTotal CounterVec
	PivotDuration      HistogramVec
	PivotMatrixSize    HistogramVec

	// Library
	LibraryRecordsLoaded GaugeVec
	LibraryReloadsTotal  CounterVec

	// Cache
	CacheHitsTotal     CounterVec
	CacheMissesTotal   CounterVec
	CacheInvalidations CounterVec

	// Messaging
	MessagesConsumedTotal  CounterVec
	MessageProcessDuration HistogramVec
	MessageRetriesTotal    CounterVec
	DeadLetteredTotal      CounterVec

	// System health
	HealthCheckStatus GaugeVec
	ErrorsTotal       CounterVec
}

var (
	DefaultHTTPDurationBuckets    = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	DefaultExtractDurationBuckets = []float64{.01, .05, .1, .5, 1, 5, 15, 60, 300}
	DefaultMatrixSizeBuckets      = []float64{1, 10, 50, 100, 500, 1000, 5000}
)

// NewAppMetrics registers the full metric set against the collector.
func NewAppMetrics(collector MetricsCollector) *AppMetrics {
	m := &AppMetrics{}

	m.HTTPRequestsTotal = collector.RegisterCounter("http_requests_total", "Total HTTP requests", "method", "path", "status_code")
	m.HTTPRequestDuration = collector.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", DefaultHTTPDurationBuckets, "method", "path")

	m.NotesProcessedTotal = collector.RegisterCounter("notes_processed_total", "Clinical notes run through the matcher", "status")
	m.NotesSkippedTotal = collector.RegisterCounter("notes_skipped_total", "Notes skipped during extraction", "reason")
	m.EventsExtractedTotal = collector.RegisterCounter("events_extracted_total", "Symptom events extracted", "negated")
	m.ExtractionDuration = collector.RegisterHistogram("extraction_duration_seconds", "Corpus extraction duration", DefaultExtractDurationBuckets, "trigger")
	m.ExtractionActiveWorkers = collector.RegisterGauge("extraction_active_workers", "Active extraction workers", "pool")

	m.PivotRequestsTotal = collector.RegisterCounter("pivot_requests_total", "Pivot aggregation requests", "dimension", "source")
	m.PivotDuration = collector.RegisterHistogram("pivot_duration_seconds", "Pivot aggregation duration", DefaultHTTPDurationBuckets, "dimension")
	m.PivotMatrixSize = collector.RegisterHistogram("pivot_matrix_cells", "Cells in produced pivot matrices", DefaultMatrixSizeBuckets, "dimension")

	m.LibraryRecordsLoaded = collector.RegisterGauge("library_records_loaded", "Symptom master records in the active library", "source")
	m.LibraryReloadsTotal = collector.RegisterCounter("library_reloads_total", "Library reload attempts", "status")

	m.CacheHitsTotal = collector.RegisterCounter("cache_hits_total", "Cache hits", "cache")
	m.CacheMissesTotal = collector.RegisterCounter("cache_misses_total", "Cache misses", "cache")
	m.CacheInvalidations = collector.RegisterCounter("cache_invalidations_total", "Cache invalidation sweeps", "cache")

	m.MessagesConsumedTotal = collector.RegisterCounter("mq_messages_consumed_total", "Messages consumed", "topic", "status")
	m.MessageProcessDuration = collector.RegisterHistogram("mq_process_duration_seconds", "Message processing duration", DefaultHTTPDurationBuckets, "topic")
	m.MessageRetriesTotal = collector.RegisterCounter("mq_retries_total", "Message handler retries", "topic")
	m.DeadLetteredTotal = collector.RegisterCounter("mq_dead_lettered_total", "Messages routed to the dead letter topic", "topic")

	m.HealthCheckStatus = collector.RegisterGauge("health_check_status", "Health check status (1=up, 0=down)", "component")
	m.ErrorsTotal = collector.RegisterCounter("errors_total", "Total errors", "component", "code")

	return m
}

// Helpers keep label formatting in one place.

func RecordHTTPRequest(m *AppMetrics, method, path string, statusCode int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func RecordExtraction(m *AppMetrics, trigger string, processed, skipped, affirmed, negated int, duration time.Duration) {
	m.NotesProcessedTotal.WithLabelValues("ok").Add(float64(processed - skipped))
	m.NotesProcessedTotal.WithLabelValues("skipped").Add(float64(skipped))
	m.EventsExtractedTotal.WithLabelValues("false").Add(float64(affirmed))
	m.EventsExtractedTotal.WithLabelValues("true").Add(float64(negated))
	m.ExtractionDuration.WithLabelValues(trigger).Observe(duration.Seconds())
}

func RecordPivot(m *AppMetrics, dimension, source string, cells int, duration time.Duration) {
	m.PivotRequestsTotal.WithLabelValues(dimension, source).Inc()
	m.PivotDuration.WithLabelValues(dimension).Observe(duration.Seconds())
	m.PivotMatrixSize.WithLabelValues(dimension).Observe(float64(cells))
}

func RecordCacheAccess(m *AppMetrics, cache string, hit bool) {
	if hit {
		m.CacheHitsTotal.WithLabelValues(cache).Inc()
	} else {
		m.CacheMissesTotal.WithLabelValues(cache).Inc()
	}
}

func RecordError(m *AppMetrics, component, code string) {
	m.ErrorsTotal.WithLabelValues(component, code).Inc()
}
