package comparison

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeL71221ibpm/iBPM-sub012/internal/domain/extraction"
	"github.com/MikeL71221ibpm/iBPM-sub012/internal/domain/library"
	"github.com/MikeL71221ibpm/iBPM-sub012/internal/domain/note"
	"github.com/MikeL71221ibpm/iBPM-sub012/internal/infrastructure/monitoring/logging"
	"github.com/MikeL71221ibpm/iBPM-sub012/pkg/errors"
	"github.com/MikeL71221ibpm/iBPM-sub012/pkg/types/common"
)

func cmpRec(id, segment, diagnosis, category string) library.SymptomMasterRecord {
	return library.SymptomMasterRecord{
		SymptomID:          id,
		SymptomSegment:     segment,
		Diagnosis:          diagnosis,
		DiagnosticCategory: category,
		SymptomOrProblem:   library.TypeSymptom,
	}
}

func cmpNote(id, text string) note.ClinicalNote {
	return note.ClinicalNote{
		PatientID:     common.PatientID("P1"),
		NoteID:        common.NoteID(id),
		DateOfService: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		RawText:       text,
	}
}

func engine(name string, preserve bool, records ...library.SymptomMasterRecord) *extraction.Matcher {
	opts := extraction.DefaultOptions()
	opts.Name = name
	opts.PreserveDuplicates = preserve
	return extraction.NewMatcher(library.NewLibrary(records), opts)
}

func TestCompareIdenticalEnginesReportNoDivergence(t *testing.T) {
	records := []library.SymptomMasterRecord{
		cmpRec("S1", "anxiety", "Anxiety Disorder", "Mood Disorders"),
	}
	h := NewHarness(engine("a", true, records...), engine("b", true, records...), 0, logging.NewNopLogger())

	report, err := h.Compare(context.Background(), []note.ClinicalNote{
		cmpNote("N1", "patient reports anxiety"),
		cmpNote("N2", "anxiety again. anxiety persists"),
	})
	require.NoError(t, err)

	assert.Equal(t, 2, report.NotesCompared)
	assert.Equal(t, 0, report.NotesSkipped)
	assert.Equal(t, report.TotalEventsA, report.TotalEventsB)
	assert.Equal(t, 0, report.MissedByA)
	assert.Equal(t, 0, report.MissedByB)
	assert.Empty(t, report.MostDivergent)
	assert.Empty(t, report.CategoriesOnlyA)
	assert.Empty(t, report.DiagnosesOnlyB)
}

func TestCompareLibraryGapShowsUp(t *testing.T) {
	// Engine B carries an extra record, so it alone finds insomnia.
	h := NewHarness(
		engine("narrow", true, cmpRec("S1", "anxiety", "Anxiety Disorder", "Mood Disorders")),
		engine("wide", true,
			cmpRec("S1", "anxiety", "Anxiety Disorder", "Mood Disorders"),
			cmpRec("S2", "insomnia", "Insomnia", "Sleep Disorders")),
		0, logging.NewNopLogger())

	report, err := h.Compare(context.Background(), []note.ClinicalNote{
		cmpNote("N1", "anxiety with insomnia"),
	})
	require.NoError(t, err)

	assert.Equal(t, "narrow", report.EngineA)
	assert.Equal(t, "wide", report.EngineB)
	assert.Equal(t, 1, report.TotalEventsA)
	assert.Equal(t, 2, report.TotalEventsB)
	assert.Equal(t, 1, report.MissedByA, "A never saw insomnia")
	assert.Equal(t, 0, report.MissedByB)
	assert.Equal(t, []string{"Sleep Disorders"}, report.CategoriesOnlyB)
	assert.Equal(t, []string{"Insomnia"}, report.DiagnosesOnlyB)

	require.Len(t, report.MostDivergent, 1)
	diff := report.MostDivergent[0]
	assert.Equal(t, []string{"insomnia"}, diff.OnlyInB)
	assert.Empty(t, diff.OnlyInA)
	assert.Equal(t, 1, diff.DivergenceMag)
}

func TestCompareDuplicateSemantics(t *testing.T) {
	// Same library, but engine B collapses repeats.  The diff shows up as
	// surplus occurrences on A's side plus A's duplicate count.
	records := []library.SymptomMasterRecord{
		cmpRec("S1", "anxiety", "Anxiety Disorder", "Mood Disorders"),
	}
	h := NewHarness(engine("preserve", true, records...), engine("dedupe", false, records...), 0, logging.NewNopLogger())

	report, err := h.Compare(context.Background(), []note.ClinicalNote{
		cmpNote("N1", "anxiety at intake. anxiety mid-session. anxiety at discharge"),
	})
	require.NoError(t, err)

	assert.Equal(t, 3, report.TotalEventsA)
	assert.Equal(t, 1, report.TotalEventsB)
	assert.Equal(t, 2, report.TotalDuplicatesA)
	assert.Equal(t, 0, report.TotalDuplicatesB)
	assert.Equal(t, 2, report.MissedByB, "B collapsed two occurrences A kept")

	require.Len(t, report.MostDivergent, 1)
	assert.Equal(t, []string{"anxiety", "anxiety"}, report.MostDivergent[0].OnlyInA)
}

func TestCompareSkipsBadNotesOnBothSides(t *testing.T) {
	records := []library.SymptomMasterRecord{
		cmpRec("S1", "anxiety", "Anxiety Disorder", "Mood Disorders"),
	}
	h := NewHarness(engine("a", true, records...), engine("b", true, records...), 0, logging.NewNopLogger())

	report, err := h.Compare(context.Background(), []note.ClinicalNote{
		cmpNote("N1", "anxiety"),
		cmpNote("N2", "   "),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, report.NotesCompared)
	assert.Equal(t, 1, report.NotesSkipped)
}

func TestCompareExampleBudgetAndOrdering(t *testing.T) {
	h := NewHarness(
		engine("narrow", true, cmpRec("S1", "anxiety", "Anxiety Disorder", "Mood Disorders")),
		engine("wide", true,
			cmpRec("S1", "anxiety", "Anxiety Disorder", "Mood Disorders"),
			cmpRec("S2", "insomnia", "Insomnia", "Sleep Disorders")),
		3, logging.NewNopLogger())

	// N0 diverges by i+1 occurrences of insomnia; later notes diverge more.
	notes := make([]note.ClinicalNote, 6)
	for i := range notes {
		text := "anxiety"
		for j := 0; j <= i; j++ {
			text += ". insomnia noted"
		}
		notes[i] = cmpNote(fmt.Sprintf("N%d", i), text)
	}

	report, err := h.Compare(context.Background(), notes)
	require.NoError(t, err)

	require.Len(t, report.MostDivergent, 3, "example budget caps the list")
	assert.Equal(t, "N5", report.MostDivergent[0].NoteID)
	assert.Equal(t, 6, report.MostDivergent[0].DivergenceMag)
	assert.Equal(t, "N4", report.MostDivergent[1].NoteID)
	assert.Equal(t, "N3", report.MostDivergent[2].NoteID)
}

func TestCompareCancellation(t *testing.T) {
	records := []library.SymptomMasterRecord{
		cmpRec("S1", "anxiety", "Anxiety Disorder", "Mood Disorders"),
	}
	h := NewHarness(engine("a", true, records...), engine("b", true, records...), 0, logging.NewNopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.Compare(ctx, []note.ClinicalNote{cmpNote("N1", "anxiety")})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeComparisonFailed))
}
