// Package comparison implements the offline harness that runs two matcher
// configurations over the same note corpus and reports where their outputs
// diverge.  The harness is read-only analysis over a corpus snapshot; it
// never feeds events back into the live pipeline.
package comparison

import (
	"context"
	"sort"

	"github.com/MikeL71221ibpm/iBPM-sub012/internal/domain/extraction"
	"github.com/MikeL71221ibpm/iBPM-sub012/internal/domain/note"
	"github.com/MikeL71221ibpm/iBPM-sub012/internal/infrastructure/monitoring/logging"
	"github.com/MikeL71221ibpm/iBPM-sub012/pkg/errors"
	atypes "github.com/MikeL71221ibpm/iBPM-sub012/pkg/types/analytics"
)

// defaultExampleBudget caps how many divergent notes a report carries for
// human review.
const defaultExampleBudget = 10

// Harness compares two matcher engines note by note.
type Harness struct {
	engineA *extraction.Matcher
	engineB *extraction.Matcher
	budget  int
	logger  logging.Logger
}

// NewHarness builds a comparison harness.  exampleBudget bounds the
// MostDivergent section; zero selects the default.
func NewHarness(engineA, engineB *extraction.Matcher, exampleBudget int, logger logging.Logger) *Harness {
	if exampleBudget <= 0 {
		exampleBudget = defaultExampleBudget
	}
	return &Harness{
		engineA: engineA,
		engineB: engineB,
		budget:  exampleBudget,
		logger:  logger.Named("compare"),
	}
}

// Compare runs both engines over the corpus and assembles the divergence
// report.  A note that fails in either engine is skipped for both, so the
// comparison always covers an identical note set on each side.
func (h *Harness) Compare(ctx context.Context, notes []note.ClinicalNote) (*atypes.ComparisonReport, error) {
	report := &atypes.ComparisonReport{
		EngineA: h.engineA.Name(),
		EngineB: h.engineB.Name(),
	}

	categoriesA := make(map[string]bool)
	categoriesB := make(map[string]bool)
	diagnosesA := make(map[string]bool)
	diagnosesB := make(map[string]bool)
	var diffs []atypes.NoteDiff

	for _, n := range notes {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, errors.CodeComparisonFailed, "comparison aborted")
		}

		eventsA, errA := h.engineA.MatchNote(n)
		eventsB, errB := h.engineB.MatchNote(n)
		if errA != nil || errB != nil {
			report.NotesSkipped++
			h.logger.Warn("skipping note in comparison",
				logging.String("note_id", string(n.NoteID)))
			continue
		}
		report.NotesCompared++
		report.TotalEventsA += len(eventsA)
		report.TotalEventsB += len(eventsB)

		collectLabels(eventsA, categoriesA, diagnosesA)
		collectLabels(eventsB, categoriesB, diagnosesB)

		diff := diffNote(n, eventsA, eventsB)
		report.TotalDuplicatesA += diff.DuplicatesA
		report.TotalDuplicatesB += diff.DuplicatesB
		report.MissedByA += len(diff.OnlyInB)
		report.MissedByB += len(diff.OnlyInA)
		if diff.DivergenceMag > 0 {
			diffs = append(diffs, diff)
		}
	}

	report.CategoriesOnlyA = setDifference(categoriesA, categoriesB)
	report.CategoriesOnlyB = setDifference(categoriesB, categoriesA)
	report.DiagnosesOnlyA = setDifference(diagnosesA, diagnosesB)
	report.DiagnosesOnlyB = setDifference(diagnosesB, diagnosesA)

	sort.Slice(diffs, func(i, j int) bool {
		if diffs[i].DivergenceMag != diffs[j].DivergenceMag {
			return diffs[i].DivergenceMag > diffs[j].DivergenceMag
		}
		return diffs[i].NoteID < diffs[j].NoteID
	})
	if len(diffs) > h.budget {
		diffs = diffs[:h.budget]
	}
	report.MostDivergent = diffs

	return report, nil
}

// diffNote compares the two event lists for one note as segment occurrence
// multisets.  Repeats matter: engine A finding "anxiety" twice where B found
// it once is a real divergence, not a wash.
func diffNote(n note.ClinicalNote, eventsA, eventsB []extraction.ExtractedSymptomEvent) atypes.NoteDiff {
	countsA := segmentCounts(eventsA)
	countsB := segmentCounts(eventsB)

	diff := atypes.NoteDiff{
		NoteID:      string(n.NoteID),
		PatientID:   string(n.PatientID),
		EventCountA: len(eventsA),
		EventCountB: len(eventsB),
		DuplicatesA: duplicateCount(eventsA),
		DuplicatesB: duplicateCount(eventsB),
	}

	for segment, ca := range countsA {
		if surplus := ca - countsB[segment]; surplus > 0 {
			for i := 0; i < surplus; i++ {
				diff.OnlyInA = append(diff.OnlyInA, segment)
			}
		}
	}
	for segment, cb := range countsB {
		if surplus := cb - countsA[segment]; surplus > 0 {
			for i := 0; i < surplus; i++ {
				diff.OnlyInB = append(diff.OnlyInB, segment)
			}
		}
	}
	sort.Strings(diff.OnlyInA)
	sort.Strings(diff.OnlyInB)
	diff.DivergenceMag = len(diff.OnlyInA) + len(diff.OnlyInB)

	return diff
}

func segmentCounts(events []extraction.ExtractedSymptomEvent) map[string]int {
	counts := make(map[string]int, len(events))
	for _, ev := range events {
		counts[ev.SymptomSegment]++
	}
	return counts
}

// duplicateCount is the number of events beyond the first per symptom ID.
func duplicateCount(events []extraction.ExtractedSymptomEvent) int {
	seen := make(map[string]int, len(events))
	dups := 0
	for _, ev := range events {
		if seen[ev.SymptomID] > 0 {
			dups++
		}
		seen[ev.SymptomID]++
	}
	return dups
}

func collectLabels(events []extraction.ExtractedSymptomEvent, categories, diagnoses map[string]bool) {
	for _, ev := range events {
		if ev.DiagnosticCategory != "" {
			categories[ev.DiagnosticCategory] = true
		}
		if ev.Diagnosis != "" {
			diagnoses[ev.Diagnosis] = true
		}
	}
}

func setDifference(a, b map[string]bool) []string {
	var only []string
	for label := range a {
		if !b[label] {
			only = append(only, label)
		}
	}
	sort.Strings(only)
	return only
}
