package analytics

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeL71221ibpm/iBPM-sub012/internal/domain/extraction"
	"github.com/MikeL71221ibpm/iBPM-sub012/internal/domain/library"
	"github.com/MikeL71221ibpm/iBPM-sub012/internal/domain/note"
	"github.com/MikeL71221ibpm/iBPM-sub012/internal/infrastructure/database/redis"
	"github.com/MikeL71221ibpm/iBPM-sub012/internal/infrastructure/monitoring/logging"
	"github.com/MikeL71221ibpm/iBPM-sub012/pkg/errors"
	"github.com/MikeL71221ibpm/iBPM-sub012/pkg/types/common"
	atypes "github.com/MikeL71221ibpm/iBPM-sub012/pkg/types/analytics"
)

// memoryCache implements redis.Cache in memory for tests.
type memoryCache struct {
	mu    sync.Mutex
	items map[string][]byte
	loads int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: make(map[string][]byte)}
}

func (c *memoryCache) Get(_ context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	data, ok := c.items[key]
	c.mu.Unlock()
	if !ok {
		return errors.New(errors.ErrCodeNotFound, "cache miss")
	}
	return json.Unmarshal(data, dest)
}

func (c *memoryCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.items[key] = data
	c.mu.Unlock()
	return nil
}

func (c *memoryCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.items, k)
	}
	return nil
}

func (c *memoryCache) DeleteByPrefix(_ context.Context, prefix string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var deleted int64
	for k := range c.items {
		if strings.HasPrefix(k, prefix) {
			delete(c.items, k)
			deleted++
		}
	}
	return deleted, nil
}

func (c *memoryCache) GetOrSet(ctx context.Context, key string, dest interface{}, ttl time.Duration, loader func(ctx context.Context) (interface{}, error)) error {
	if err := c.Get(ctx, key, dest); err == nil {
		return nil
	}
	c.mu.Lock()
	c.loads++
	c.mu.Unlock()
	v, err := loader(ctx)
	if err != nil {
		return err
	}
	if err := c.Set(ctx, key, v, ttl); err != nil {
		return err
	}
	return c.Get(ctx, key, dest)
}

func (c *memoryCache) Ping(_ context.Context) error { return nil }

func (c *memoryCache) loadCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loads
}

// staticNotes returns a fixed corpus regardless of patient.
type staticNotes struct {
	notes []note.ClinicalNote
	calls int
}

func (s *staticNotes) ListByPatient(_ context.Context, _ common.PatientID, _ common.DateRange) ([]note.ClinicalNote, error) {
	s.calls++
	return s.notes, nil
}

// staticEvents returns a fixed stored-event set regardless of patient.
type staticEvents struct {
	events []extraction.ExtractedSymptomEvent
}

func (s *staticEvents) ListByPatient(_ context.Context, _ common.PatientID, _ common.DateRange) ([]extraction.ExtractedSymptomEvent, error) {
	return s.events, nil
}

func day(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

func fixtureService(t *testing.T, cache *memoryCache) *Service {
	t.Helper()
	lib := library.NewLibrary([]library.SymptomMasterRecord{{
		SymptomID:          "S1",
		SymptomSegment:     "anxiety",
		Diagnosis:          "Anxiety Disorder",
		DiagnosticCategory: "Mood Disorders",
		SymptomOrProblem:   library.TypeSymptom,
	}})
	matcher := extraction.NewMatcher(lib, extraction.DefaultOptions())
	extractor := extraction.NewService(matcher, extraction.ServiceConfig{Workers: 2}, logging.NewNopLogger())

	notes := &staticNotes{notes: []note.ClinicalNote{
		{PatientID: "P1", NoteID: "N1", DateOfService: day("2024-01-01"),
			RawText: "patient reports anxiety and anxiety again"},
		{PatientID: "P1", NoteID: "N2", DateOfService: day("2024-01-02"),
			RawText: "patient denies anxiety"},
	}}

	var c redis.Cache
	if cache != nil {
		c = cache
	}
	return NewService(notes, nil, extractor, c, time.Minute, nil, logging.NewNopLogger())
}

func pivotRequest() PivotRequest {
	return PivotRequest{PatientID: "P1", Dimension: atypes.DimensionDiagnosis}
}

func TestPivotColdPath(t *testing.T) {
	svc := fixtureService(t, nil)

	resp, err := svc.Pivot(context.Background(), pivotRequest())
	require.NoError(t, err)

	assert.Equal(t, []string{"Anxiety Disorder"}, resp.Rows)
	assert.Equal(t, []string{"2024-01-01", "2024-01-02"}, resp.Columns)
	assert.Equal(t, 2, resp.Data["Anxiety Disorder"]["2024-01-01"])
	assert.Equal(t, 0, resp.Data["Anxiety Disorder"]["2024-01-02"])
	assert.Equal(t, 2, resp.MaxValue)
}

func TestPivotPrefersStoredEvents(t *testing.T) {
	notes := &staticNotes{notes: []note.ClinicalNote{{
		PatientID: "P1", NoteID: "N1", DateOfService: day("2024-01-01"),
		RawText: "patient reports anxiety",
	}}}
	stored := &staticEvents{events: []extraction.ExtractedSymptomEvent{
		{PatientID: "P1", NoteID: "N9", DateOfService: day("2024-02-01"),
			SymptomID: "S2", SymptomSegment: "low mood", Diagnosis: "Depressive Disorder"},
		{PatientID: "P1", NoteID: "N9", DateOfService: day("2024-02-01"),
			SymptomID: "S2", SymptomSegment: "low mood", Diagnosis: "Depressive Disorder"},
	}}

	matcher := extraction.NewMatcher(library.NewLibrary(nil), extraction.DefaultOptions())
	extractor := extraction.NewService(matcher, extraction.ServiceConfig{Workers: 1}, logging.NewNopLogger())
	svc := NewService(notes, stored, extractor, nil, time.Minute, nil, logging.NewNopLogger())

	resp, err := svc.Pivot(context.Background(), pivotRequest())
	require.NoError(t, err)

	assert.Equal(t, []string{"Depressive Disorder"}, resp.Rows)
	assert.Equal(t, 2, resp.Data["Depressive Disorder"]["2024-02-01"])
	assert.Zero(t, notes.calls, "stored events short-circuit note loading")
}

func TestPivotFallsBackWhenNoStoredEvents(t *testing.T) {
	lib := library.NewLibrary([]library.SymptomMasterRecord{{
		SymptomID:          "S1",
		SymptomSegment:     "anxiety",
		Diagnosis:          "Anxiety Disorder",
		DiagnosticCategory: "Mood Disorders",
		SymptomOrProblem:   library.TypeSymptom,
	}})
	matcher := extraction.NewMatcher(lib, extraction.DefaultOptions())
	extractor := extraction.NewService(matcher, extraction.ServiceConfig{Workers: 1}, logging.NewNopLogger())
	notes := &staticNotes{notes: []note.ClinicalNote{{
		PatientID: "P1", NoteID: "N1", DateOfService: day("2024-01-01"),
		RawText: "patient reports anxiety",
	}}}
	svc := NewService(notes, &staticEvents{}, extractor, nil, time.Minute, nil, logging.NewNopLogger())

	resp, err := svc.Pivot(context.Background(), pivotRequest())
	require.NoError(t, err)

	assert.Equal(t, []string{"Anxiety Disorder"}, resp.Rows)
	assert.Equal(t, 1, notes.calls, "empty store falls back to extraction")
}

func TestPivotCachesResponses(t *testing.T) {
	cache := newMemoryCache()
	svc := fixtureService(t, cache)

	first, err := svc.Pivot(context.Background(), pivotRequest())
	require.NoError(t, err)
	second, err := svc.Pivot(context.Background(), pivotRequest())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, cache.loadCount(), "second request served from cache")
}

func TestPivotCacheKeyVariesWithRequest(t *testing.T) {
	cache := newMemoryCache()
	svc := fixtureService(t, cache)

	_, err := svc.Pivot(context.Background(), pivotRequest())
	require.NoError(t, err)

	withNegated := pivotRequest()
	withNegated.IncludeNegated = true
	resp, err := svc.Pivot(context.Background(), withNegated)
	require.NoError(t, err)

	assert.Equal(t, 2, cache.loadCount(), "negation toggle is a distinct cache slot")
	assert.Equal(t, 1, resp.Data["Anxiety Disorder"]["2024-01-02"])
}

func TestInvalidatePatientDropsOnlyTheirKeys(t *testing.T) {
	cache := newMemoryCache()
	svc := fixtureService(t, cache)

	_, err := svc.Pivot(context.Background(), pivotRequest())
	require.NoError(t, err)
	other := pivotRequest()
	other.PatientID = "P2"
	_, err = svc.Pivot(context.Background(), other)
	require.NoError(t, err)

	require.NoError(t, svc.InvalidatePatient(context.Background(), "P1"))

	_, err = svc.Pivot(context.Background(), pivotRequest())
	require.NoError(t, err)
	assert.Equal(t, 3, cache.loadCount(), "P1 recomputed, P2 still cached")
}

func TestPivotRejectsBadRequests(t *testing.T) {
	svc := fixtureService(t, nil)

	_, err := svc.Pivot(context.Background(), PivotRequest{PatientID: "P1", Dimension: "mood_ring"})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeDimensionInvalid))

	bad := pivotRequest()
	bad.DateRange = common.DateRange{From: day("2024-02-01"), To: day("2024-01-01")}
	_, err = svc.Pivot(context.Background(), bad)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeDateRangeInvalid))
}

func TestHeatmapAndBubbleDeriveFromPivot(t *testing.T) {
	svc := fixtureService(t, newMemoryCache())

	series, err := svc.Heatmap(context.Background(), pivotRequest())
	require.NoError(t, err)
	require.Len(t, series, 1)
	assert.Equal(t, "Anxiety Disorder", series[0].ID)
	require.Len(t, series[0].Data, 2)

	points, err := svc.Bubble(context.Background(), pivotRequest())
	require.NoError(t, err)
	require.Len(t, points, 1, "only the non-zero cell becomes a point")
	assert.Equal(t, 2, points[0].Size)
	assert.Equal(t, atypes.BucketHighest, points[0].Bucket)
}

func TestLegend(t *testing.T) {
	svc := fixtureService(t, nil)
	legend := svc.Legend()
	require.Len(t, legend, 5)
	assert.Equal(t, atypes.BucketHighest, legend[0].Bucket)
}
