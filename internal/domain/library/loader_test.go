package library

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeL71221ibpm/iBPM-sub012/internal/infrastructure/monitoring/logging"
	"github.com/MikeL71221ibpm/iBPM-sub012/internal/testutil"
	"github.com/MikeL71221ibpm/iBPM-sub012/pkg/errors"
)

// stubSource returns canned rows or a canned error.
type stubSource struct {
	rows []RawRecord
	err  error
}

func (s *stubSource) Fetch(_ context.Context) ([]RawRecord, error) {
	return s.rows, s.err
}

func TestCanonicalizeFieldVariants(t *testing.T) {
	tests := []struct {
		name string
		raw  RawRecord
	}{
		{"snake_case", RawRecord{
			"symptom_id": "S1", "symptom_segment": "anxiety",
			"diagnosis": "Anxiety Disorder", "diagnostic_category": "Mood Disorders",
			"icd10_code": "F41.1", "symptom_or_problem": "Symptom",
		}},
		{"camelCase", RawRecord{
			"symptomId": "S1", "symptomSegment": "anxiety",
			"Diagnosis": "Anxiety Disorder", "diagnosticCategory": "Mood Disorders",
			"icd10Code": "F41.1", "sympProb": "Symptom",
		}},
		{"spaced and mixed", RawRecord{
			"Symptom ID": "S1", "Symptom Segment": "anxiety",
			"DX": "Anxiety Disorder", "DX Category": "Mood Disorders",
			"ICD-10": "F41.1", "Symptom/Problem": ""},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := Canonicalize(tt.raw)
			assert.Equal(t, "S1", rec.SymptomID)
			assert.Equal(t, "anxiety", rec.SymptomSegment)
			assert.Equal(t, "Anxiety Disorder", rec.Diagnosis)
			assert.Equal(t, "Mood Disorders", rec.DiagnosticCategory)
			assert.Equal(t, "F41.1", rec.ICD10Code)
			assert.Equal(t, TypeSymptom, rec.SymptomOrProblem)
		})
	}
}

func TestLoaderSkipsInvalidRows(t *testing.T) {
	log := testutil.NewMockLogger()
	src := &stubSource{rows: []RawRecord{
		{"symptom_id": "S1", "symptom_segment": "anxiety"},
		{"symptom_id": "", "symptom_segment": "orphan segment"}, // no id
		{"symptom_id": "S3"},                                    // no segment
		{"symptom_id": "S4", "symptom_segment": "insomnia"},
	}}

	lib, err := NewLoader(src, log).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, lib.Len())
	assert.Equal(t, 2, log.CountLevel("warn"))
}

func TestLoaderDeduplicatesOnSymptomID(t *testing.T) {
	src := &stubSource{rows: []RawRecord{
		{"symptom_id": "S1", "symptom_segment": "anxiety", "diagnosis": "First"},
		{"symptom_id": "S1", "symptom_segment": "anxiety", "diagnosis": "Second"},
		{"symptom_id": "S2", "symptom_segment": "anxiety", "diagnosis": "Distinct row, same segment"},
	}}

	lib, err := NewLoader(src, logging.NewNopLogger()).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, lib.Len())

	rec, ok := lib.ByID("S1")
	require.True(t, ok)
	assert.Equal(t, "First", rec.Diagnosis, "first registered record wins")
}

func TestLoaderUnreadableSourceIsFatal(t *testing.T) {
	src := &stubSource{err: os.ErrPermission}
	_, err := NewLoader(src, logging.NewNopLogger()).Load(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeLibraryUnavailable))
}

func TestLoaderEmptyLibraryIsFatal(t *testing.T) {
	src := &stubSource{rows: []RawRecord{{"symptom_id": "", "symptom_segment": ""}}}
	_, err := NewLoader(src, logging.NewNopLogger()).Load(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeLibraryEmpty))
}

func TestCSVSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "library.csv")
	content := "Symptom ID,Symptom Segment,Diagnosis,DX Category,ICD-10,Symptom/Problem\n" +
		"S1,anxiety,Anxiety Disorder,Mood Disorders,F41.1,Symptom\n" +
		"S2,food insecurity,Food Insecurity,Food Insecurity,Z59.4,Problem\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	lib, err := NewLoader(NewCSVSource(path), logging.NewNopLogger()).Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, lib.Len())

	rec, ok := lib.ByID("S2")
	require.True(t, ok)
	assert.Equal(t, TypeProblem, rec.SymptomOrProblem)
	assert.Equal(t, "Z59.4", rec.ICD10Code)
}

func TestCSVSourceMissingFile(t *testing.T) {
	_, err := NewCSVSource(filepath.Join(t.TempDir(), "absent.csv")).Fetch(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeLibraryUnavailable))
}

func TestHRSNIndicator(t *testing.T) {
	rec := SymptomMasterRecord{DiagnosticCategory: "Housing Instability"}
	label, ok := rec.HRSNIndicator()
	require.True(t, ok)
	assert.Equal(t, "Housing", label)

	_, ok = SymptomMasterRecord{DiagnosticCategory: "Mood Disorders"}.HRSNIndicator()
	assert.False(t, ok)
}

func TestServiceGetCachesAndReloadSwaps(t *testing.T) {
	src := &stubSource{rows: []RawRecord{
		{"symptom_id": "S1", "symptom_segment": "anxiety"},
	}}
	svc := NewService(NewLoader(src, logging.NewNopLogger()), logging.NewNopLogger())

	lib1, err := svc.Get(context.Background())
	require.NoError(t, err)

	// Source changes do not affect the cached library until Reload.
	src.rows = append(src.rows, RawRecord{"symptom_id": "S2", "symptom_segment": "insomnia"})
	lib2, err := svc.Get(context.Background())
	require.NoError(t, err)
	assert.Same(t, lib1, lib2)

	lib3, err := svc.Reload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, lib3.Len())
}

func TestServiceReloadFailureKeepsPrevious(t *testing.T) {
	src := &stubSource{rows: []RawRecord{{"symptom_id": "S1", "symptom_segment": "anxiety"}}}
	svc := NewService(NewLoader(src, logging.NewNopLogger()), logging.NewNopLogger())

	_, err := svc.Get(context.Background())
	require.NoError(t, err)

	src.err = os.ErrClosed
	_, err = svc.Reload(context.Background())
	require.Error(t, err)

	lib, err := svc.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, lib.Len())
}
