// Package analytics is the application layer over the extraction and
// aggregation domains: it reads a patient's persisted events, falls back to
// matching their notes when none are stored, pivots the events, and caches
// the finished responses.
package analytics

import (
	"context"
	"fmt"
	"time"

	domain "github.com/MikeL71221ibpm/iBPM-sub012/internal/domain/analytics"
	"github.com/MikeL71221ibpm/iBPM-sub012/internal/domain/extraction"
	"github.com/MikeL71221ibpm/iBPM-sub012/internal/domain/note"
	"github.com/MikeL71221ibpm/iBPM-sub012/internal/infrastructure/database/redis"
	"github.com/MikeL71221ibpm/iBPM-sub012/internal/infrastructure/monitoring/logging"
	"github.com/MikeL71221ibpm/iBPM-sub012/internal/infrastructure/monitoring/prometheus"
	"github.com/MikeL71221ibpm/iBPM-sub012/pkg/errors"
	"github.com/MikeL71221ibpm/iBPM-sub012/pkg/types/common"
	atypes "github.com/MikeL71221ibpm/iBPM-sub012/pkg/types/analytics"
)

// NoteSource supplies a patient's notes.  Implemented by the PostgreSQL note
// repository.
type NoteSource interface {
	ListByPatient(ctx context.Context, patientID common.PatientID, dr common.DateRange) ([]note.ClinicalNote, error)
}

// EventSource supplies a patient's persisted extracted events.  Implemented
// by the PostgreSQL event repository.
type EventSource interface {
	ListByPatient(ctx context.Context, patientID common.PatientID, dr common.DateRange) ([]extraction.ExtractedSymptomEvent, error)
}

// PivotRequest describes one analytics query.
type PivotRequest struct {
	PatientID      common.PatientID
	Dimension      atypes.Dimension
	DateRange      common.DateRange
	IncludeNegated bool
}

// Service answers pivot, heatmap, and bubble queries for one patient at a
// time.  Responses are cached per (patient, dimension, range, negation)
// tuple; ingestion invalidates by patient prefix.
type Service struct {
	notes     NoteSource
	events    EventSource
	extractor *extraction.Service
	cache     redis.Cache
	cacheTTL  time.Duration
	metrics   *prometheus.AppMetrics
	logger    logging.Logger
}

// NewService wires the query path.  events and metrics may be nil; without an
// event source every cold pivot re-matches the patient's notes.
func NewService(notes NoteSource, events EventSource, extractor *extraction.Service, cache redis.Cache, cacheTTL time.Duration, metrics *prometheus.AppMetrics, logger logging.Logger) *Service {
	return &Service{
		notes:     notes,
		events:    events,
		extractor: extractor,
		cache:     cache,
		cacheTTL:  cacheTTL,
		metrics:   metrics,
		logger:    logger.Named("analytics"),
	}
}

// cacheKey is stable for identical requests: identical pivots always hit the
// same cache slot.
func cacheKey(req PivotRequest) string {
	from, to := "", ""
	if !req.DateRange.From.IsZero() {
		from = req.DateRange.From.Format("2006-01-02")
	}
	if !req.DateRange.To.IsZero() {
		to = req.DateRange.To.Format("2006-01-02")
	}
	return fmt.Sprintf("pivot:%s:%s:%s:%s:%t", req.PatientID, req.Dimension, from, to, req.IncludeNegated)
}

// Pivot returns the dense pivot response for the request, from cache when
// fresh.
func (s *Service) Pivot(ctx context.Context, req PivotRequest) (atypes.PivotResponse, error) {
	var resp atypes.PivotResponse
	if !req.Dimension.Valid() {
		return resp, errors.New(errors.CodeDimensionInvalid, "unknown pivot dimension").
			WithDetail(string(req.Dimension))
	}
	if !req.DateRange.Validate() {
		return resp, errors.New(errors.CodeDateRangeInvalid, "date range end precedes start")
	}

	if s.cache == nil {
		matrix, err := s.buildMatrix(ctx, req)
		if err != nil {
			return resp, err
		}
		return matrix.ToResponse(), nil
	}

	hit := true
	err := s.cache.GetOrSet(ctx, cacheKey(req), &resp, s.cacheTTL, func(ctx context.Context) (interface{}, error) {
		hit = false
		matrix, err := s.buildMatrix(ctx, req)
		if err != nil {
			return nil, err
		}
		return matrix.ToResponse(), nil
	})
	if err != nil {
		return resp, err
	}
	if s.metrics != nil {
		prometheus.RecordCacheAccess(s.metrics, "pivot", hit)
	}
	return resp, nil
}

// buildMatrix runs the cold path: persisted events when the worker has
// ingested the patient, otherwise notes plus extraction, then aggregation.
func (s *Service) buildMatrix(ctx context.Context, req PivotRequest) (*domain.PivotMatrix, error) {
	start := time.Now()

	events, source, err := s.loadEvents(ctx, req)
	if err != nil {
		return nil, err
	}

	matrix, err := domain.BuildPivot(events, req.Dimension, domain.PivotOptions{
		DateRange:      req.DateRange,
		IncludeNegated: req.IncludeNegated,
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		prometheus.RecordPivot(s.metrics, string(req.Dimension), source,
			len(matrix.Rows)*len(matrix.Columns), time.Since(start))
	}
	s.logger.Debug("pivot built",
		logging.String("patient_id", string(req.PatientID)),
		logging.String("dimension", string(req.Dimension)),
		logging.String("source", source),
		logging.Int("events", len(events)))
	return matrix, nil
}

// loadEvents prefers the durable event store and re-extracts only when the
// patient has no stored events, so pivots over ingested data never depend on
// the matcher configuration of the serving process.
func (s *Service) loadEvents(ctx context.Context, req PivotRequest) ([]extraction.ExtractedSymptomEvent, string, error) {
	if s.events != nil {
		stored, err := s.events.ListByPatient(ctx, req.PatientID, req.DateRange)
		if err != nil {
			return nil, "", err
		}
		if len(stored) > 0 {
			return stored, "stored", nil
		}
	}

	notes, err := s.notes.ListByPatient(ctx, req.PatientID, req.DateRange)
	if err != nil {
		return nil, "", err
	}
	result, err := s.extractor.ExtractCorpus(ctx, notes)
	if err != nil {
		return nil, "", err
	}
	if len(result.Skipped) > 0 {
		s.logger.Warn("notes skipped during pivot extraction",
			logging.String("patient_id", string(req.PatientID)),
			logging.Int("skipped", len(result.Skipped)))
	}
	return result.Events, "extracted", nil
}

// Heatmap returns one dense series per pivot row.
func (s *Service) Heatmap(ctx context.Context, req PivotRequest) ([]atypes.HeatmapSeries, error) {
	resp, err := s.Pivot(ctx, req)
	if err != nil {
		return nil, err
	}
	return domain.HeatmapSeries(matrixFromResponse(resp)), nil
}

// Bubble returns one point per non-zero pivot cell.
func (s *Service) Bubble(ctx context.Context, req PivotRequest) ([]atypes.BubblePoint, error) {
	resp, err := s.Pivot(ctx, req)
	if err != nil {
		return nil, err
	}
	return domain.BubbleSeries(matrixFromResponse(resp)), nil
}

// Legend returns the shared intensity legend.
func (s *Service) Legend() []atypes.LegendEntry {
	return atypes.Legend()
}

// InvalidatePatient drops every cached pivot for the patient.  Called when
// fresh events land for any of their notes.
func (s *Service) InvalidatePatient(ctx context.Context, patientID common.PatientID) error {
	if s.cache == nil {
		return nil
	}
	deleted, err := s.cache.DeleteByPrefix(ctx, fmt.Sprintf("pivot:%s:", patientID))
	if err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.CacheInvalidations.WithLabelValues("pivot").Inc()
	}
	s.logger.Info("pivot cache invalidated",
		logging.String("patient_id", string(patientID)),
		logging.Int64("keys", deleted))
	return nil
}

// matrixFromResponse rebuilds the matrix shape from a (possibly cached)
// response so series derivation has one input type.
func matrixFromResponse(resp atypes.PivotResponse) *domain.PivotMatrix {
	return &domain.PivotMatrix{
		Dimension: resp.Dimension,
		Rows:      resp.Rows,
		Columns:   resp.Columns,
		Cells:     resp.Data,
		RowTotals: resp.RowTotals,
		MaxValue:  resp.MaxValue,
	}
}
