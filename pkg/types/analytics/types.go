// Package analytics defines the presentation data contract for the symptom
// analytics pipeline: pivot responses, chart-ready series, the shared
// five-tier intensity scale, and the matcher comparison report.
//
// Every chart type (heatmap, bubble/scatter, pivot table) renders from these
// shapes; none re-derives thresholds or colors on its own.  That single-source
// rule is what keeps the numbers and colors identical across visualizations.
package analytics

// ─────────────────────────────────────────────────────────────────────────────
// Pivot dimension
// ─────────────────────────────────────────────────────────────────────────────

// Dimension selects which event field becomes the pivot row label.
type Dimension string

const (
	DimensionSymptomSegment     Dimension = "symptom_segment"
	DimensionDiagnosis          Dimension = "diagnosis"
	DimensionDiagnosticCategory Dimension = "diagnostic_category"
	DimensionHRSNIndicator      Dimension = "hrsn_indicator"
)

// Valid reports whether d is one of the supported pivot dimensions.
func (d Dimension) Valid() bool {
	switch d {
	case DimensionSymptomSegment, DimensionDiagnosis, DimensionDiagnosticCategory, DimensionHRSNIndicator:
		return true
	}
	return false
}

// ─────────────────────────────────────────────────────────────────────────────
// Intensity scale — the shared five-tier lookup
// ─────────────────────────────────────────────────────────────────────────────

// Bucket is one of five ordered intensity tiers.  Buckets are derived, never
// persisted: a color legend must be reproducible from the data alone.
type Bucket string

const (
	BucketHighest Bucket = "HIGHEST"
	BucketHigh    Bucket = "HIGH"
	BucketMedium  Bucket = "MEDIUM"
	BucketLow     Bucket = "LOW"
	BucketLowest  Bucket = "LOWEST"
)

// Ordered lists buckets from coolest to hottest tier.
var Ordered = []Bucket{BucketLowest, BucketLow, BucketMedium, BucketHigh, BucketHighest}

// Rank returns the position of b on the cool→hot axis (LOWEST=0 … HIGHEST=4).
// Unknown buckets rank as LOWEST.
func (b Bucket) Rank() int {
	for i, o := range Ordered {
		if o == b {
			return i
		}
	}
	return 0
}

// Threshold ladder applied to the normalized intensity score.  Fixed, not
// configurable per chart: every consumer asks the same ladder.
const (
	ThresholdHighest = 0.80
	ThresholdHigh    = 0.60
	ThresholdMedium  = 0.40
	ThresholdLow     = 0.20
)

// BucketColors maps each tier to the platform heat palette.  Charts derive
// colors only from the bucket, never from a locally recomputed threshold.
var BucketColors = map[Bucket]string{
	BucketHighest: "#b71c1c",
	BucketHigh:    "#e64a19",
	BucketMedium:  "#f9a825",
	BucketLow:     "#9ccc65",
	BucketLowest:  "#e8f5e9",
}

// LegendEntry pairs a bucket with its lower score bound and display color.
type LegendEntry struct {
	Bucket    Bucket  `json:"bucket"`
	Threshold float64 `json:"threshold"`
	Color     string  `json:"color"`
}

// Legend returns the intensity legend hot-to-cold, suitable for direct
// rendering by any front-end.
func Legend() []LegendEntry {
	return []LegendEntry{
		{BucketHighest, ThresholdHighest, BucketColors[BucketHighest]},
		{BucketHigh, ThresholdHigh, BucketColors[BucketHigh]},
		{BucketMedium, ThresholdMedium, BucketColors[BucketMedium]},
		{BucketLow, ThresholdLow, BucketColors[BucketLow]},
		{BucketLowest, 0, BucketColors[BucketLowest]},
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Pivot response
// ─────────────────────────────────────────────────────────────────────────────

// PivotResponse is the wire shape of a pivot matrix.
// Rows are ordered most-frequent-first; columns are the sorted distinct
// service dates that actually carry activity (never a synthetic calendar).
type PivotResponse struct {
	Dimension Dimension                 `json:"dimension"`
	Rows      []string                  `json:"rows"`
	Columns   []string                  `json:"columns"`
	Data      map[string]map[string]int `json:"data"`
	RowTotals map[string]int            `json:"row_totals"`
	MaxValue  int                       `json:"max_value"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Chart-ready series
// ─────────────────────────────────────────────────────────────────────────────

// HeatmapCell is a single (date, count) point within a heatmap row.
type HeatmapCell struct {
	X string `json:"x"`
	Y int    `json:"y"`
}

// HeatmapSeries is one heatmap row: the row label plus one cell per column.
type HeatmapSeries struct {
	ID   string        `json:"id"`
	Data []HeatmapCell `json:"data"`
}

// BubblePoint is one bubble/scatter point per non-zero pivot cell.
// Frequency counts the distinct dates with activity for the row, used by the
// scatter view to size its row-level halo.
type BubblePoint struct {
	X         string `json:"x"`
	Y         string `json:"y"`
	Size      int    `json:"size"`
	Frequency int    `json:"frequency"`
	Bucket    Bucket `json:"bucket"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Comparison report
// ─────────────────────────────────────────────────────────────────────────────

// NoteDiff captures the per-note divergence between two matcher engines.
type NoteDiff struct {
	NoteID        string   `json:"note_id"`
	PatientID     string   `json:"patient_id"`
	OnlyInA       []string `json:"only_in_a,omitempty"`
	OnlyInB       []string `json:"only_in_b,omitempty"`
	EventCountA   int      `json:"event_count_a"`
	EventCountB   int      `json:"event_count_b"`
	DuplicatesA   int      `json:"duplicates_a"`
	DuplicatesB   int      `json:"duplicates_b"`
	DivergenceMag int      `json:"divergence_magnitude"`
}

// ComparisonReport is the structured output of the offline matcher
// comparison harness.  It is read-only analysis over a fixed corpus snapshot.
type ComparisonReport struct {
	EngineA string `json:"engine_a"`
	EngineB string `json:"engine_b"`

	NotesCompared int `json:"notes_compared"`
	NotesSkipped  int `json:"notes_skipped"`

	TotalEventsA     int `json:"total_events_a"`
	TotalEventsB     int `json:"total_events_b"`
	TotalDuplicatesA int `json:"total_duplicates_a"`
	TotalDuplicatesB int `json:"total_duplicates_b"`

	// MissedByA counts segment occurrences engine B found that A did not,
	// and vice versa for MissedByB.
	MissedByA int `json:"missed_by_a"`
	MissedByB int `json:"missed_by_b"`

	CategoriesOnlyA []string `json:"categories_only_a,omitempty"`
	CategoriesOnlyB []string `json:"categories_only_b,omitempty"`
	DiagnosesOnlyA  []string `json:"diagnoses_only_a,omitempty"`
	DiagnosesOnlyB  []string `json:"diagnoses_only_b,omitempty"`

	// MostDivergent holds the top notes by divergence magnitude for human
	// review, capped at the harness's configured example budget.
	MostDivergent []NoteDiff `json:"most_divergent,omitempty"`
}
