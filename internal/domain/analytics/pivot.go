// Package analytics implements the aggregation half of the pipeline: pivoting
// extracted symptom events into dense per-label/per-date count matrices,
// classifying cell intensity on the shared five-tier scale, and deriving the
// chart-ready series every visualization renders from.
package analytics

import (
	"sort"
	"time"

	"github.com/MikeL71221ibpm/iBPM-sub012/internal/domain/extraction"
	"github.com/MikeL71221ibpm/iBPM-sub012/pkg/errors"
	"github.com/MikeL71221ibpm/iBPM-sub012/pkg/types/common"
	atypes "github.com/MikeL71221ibpm/iBPM-sub012/pkg/types/analytics"
)

// columnLayout is the wire format of pivot column dates.
const columnLayout = "2006-01-02"

// PivotOptions tunes one aggregation request.
type PivotOptions struct {
	// DateRange filters events to an inclusive interval when set.
	DateRange common.DateRange

	// IncludeNegated counts negated events too.  The default view is
	// "affirmed mentions only"; negated events still contribute their date
	// to the column set either way, since the date carries activity.
	IncludeNegated bool
}

// PivotMatrix is the dense row-by-date count table shared by every chart
// type.  A matrix is built fresh on each aggregation request and never
// mutated afterwards; a new matrix replaces the old one atomically from the
// caller's perspective.
type PivotMatrix struct {
	Dimension atypes.Dimension

	// Rows are ordered by total descending, ties alphabetical, so the most
	// clinically salient items appear first in every chart without each
	// chart re-implementing its own sort.
	Rows []string

	// Columns are the sorted distinct dates that actually carry events,
	// never a synthetic full calendar.
	Columns []string

	// Cells is dense: every (row, column) pair has an entry, zero-filled.
	Cells map[string]map[string]int

	// RowTotals sums each row across all columns.
	RowTotals map[string]int

	// MaxValue is the single largest cell, the uniform ceiling for heatmap
	// color scales and bubble sizes.
	MaxValue int
}

// rowLabel selects the event field for the dimension.  An empty label (e.g.,
// a non-HRSN event under the HRSN dimension) excludes the event.
func rowLabel(ev extraction.ExtractedSymptomEvent, dim atypes.Dimension) string {
	switch dim {
	case atypes.DimensionSymptomSegment:
		return ev.SymptomSegment
	case atypes.DimensionDiagnosis:
		return ev.Diagnosis
	case atypes.DimensionDiagnosticCategory:
		return ev.DiagnosticCategory
	case atypes.DimensionHRSNIndicator:
		return ev.HRSNIndicator
	}
	return ""
}

// BuildPivot groups events by (row label, service date) and counts them.
// Zero in-scope events is not an error: the empty matrix renders as
// "no data available", never as a crash.
func BuildPivot(events []extraction.ExtractedSymptomEvent, dim atypes.Dimension, opts PivotOptions) (*PivotMatrix, error) {
	if !dim.Valid() {
		return nil, errors.New(errors.CodeDimensionInvalid, "unknown pivot dimension").
			WithDetail(string(dim))
	}
	if !opts.DateRange.Validate() {
		return nil, errors.New(errors.CodeDateRangeInvalid, "date range end precedes start")
	}

	counts := make(map[string]map[string]int)
	dates := make(map[string]bool)

	for _, ev := range events {
		if ev.DateOfService.IsZero() || !opts.DateRange.Contains(ev.DateOfService) {
			continue
		}
		label := rowLabel(ev, dim)
		if label == "" {
			continue
		}
		date := ev.DateOfService.Format(columnLayout)
		// The date column exists because the event exists; whether the
		// event counts is decided below.
		dates[date] = true

		if ev.Negated && !opts.IncludeNegated {
			continue
		}
		if counts[label] == nil {
			counts[label] = make(map[string]int)
		}
		counts[label][date]++
	}

	return assemble(dim, counts, dates), nil
}

// Merge combines partial pivot matrices built over disjoint note batches.
// Counting is commutative and associative, so partial aggregates computed in
// parallel merge in any order to identical totals.  All inputs must share a
// dimension.
func Merge(parts ...*PivotMatrix) (*PivotMatrix, error) {
	if len(parts) == 0 {
		return assemble("", nil, nil), nil
	}
	dim := parts[0].Dimension
	counts := make(map[string]map[string]int)
	dates := make(map[string]bool)

	for _, p := range parts {
		if p.Dimension != dim {
			return nil, errors.New(errors.CodeDimensionInvalid, "cannot merge pivots across dimensions")
		}
		for _, date := range p.Columns {
			dates[date] = true
		}
		for row, cells := range p.Cells {
			for date, count := range cells {
				if count == 0 {
					continue
				}
				if counts[row] == nil {
					counts[row] = make(map[string]int)
				}
				counts[row][date] += count
			}
		}
	}
	return assemble(dim, counts, dates), nil
}

// assemble densifies the sparse counts and derives ordering and MaxValue.
func assemble(dim atypes.Dimension, counts map[string]map[string]int, dates map[string]bool) *PivotMatrix {
	m := &PivotMatrix{
		Dimension: dim,
		Rows:      []string{},
		Columns:   []string{},
		Cells:     make(map[string]map[string]int, len(counts)),
		RowTotals: make(map[string]int, len(counts)),
	}

	for date := range dates {
		m.Columns = append(m.Columns, date)
	}
	sort.Strings(m.Columns)

	for row, cells := range counts {
		m.Rows = append(m.Rows, row)
		dense := make(map[string]int, len(m.Columns))
		total := 0
		for _, date := range m.Columns {
			count := cells[date]
			dense[date] = count
			total += count
			if count > m.MaxValue {
				m.MaxValue = count
			}
		}
		m.Cells[row] = dense
		m.RowTotals[row] = total
	}

	sort.Slice(m.Rows, func(i, j int) bool {
		ti, tj := m.RowTotals[m.Rows[i]], m.RowTotals[m.Rows[j]]
		if ti != tj {
			return ti > tj
		}
		return m.Rows[i] < m.Rows[j]
	})

	return m
}

// Total sums every cell in the matrix.  Equals the count of in-scope events
// for the dimension, the round-trip property the rest of the system
// depends on.
func (m *PivotMatrix) Total() int {
	total := 0
	for _, t := range m.RowTotals {
		total += t
	}
	return total
}

// ToResponse converts the matrix to its wire shape.
func (m *PivotMatrix) ToResponse() atypes.PivotResponse {
	data := make(map[string]map[string]int, len(m.Cells))
	for row, cells := range m.Cells {
		dense := make(map[string]int, len(cells))
		for date, count := range cells {
			dense[date] = count
		}
		data[row] = dense
	}
	totals := make(map[string]int, len(m.RowTotals))
	for row, t := range m.RowTotals {
		totals[row] = t
	}
	return atypes.PivotResponse{
		Dimension: m.Dimension,
		Rows:      append([]string{}, m.Rows...),
		Columns:   append([]string{}, m.Columns...),
		Data:      data,
		RowTotals: totals,
		MaxValue:  m.MaxValue,
	}
}

// ColumnDate parses a column label back to its service date.
func ColumnDate(column string) (time.Time, error) {
	t, err := time.Parse(columnLayout, column)
	if err != nil {
		return time.Time{}, errors.Wrap(err, errors.CodeDateRangeInvalid, "invalid column date")
	}
	return t, nil
}
