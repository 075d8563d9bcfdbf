// Package library implements the symptom reference library bounded context:
// the curated vocabulary of matchable symptom segments, its loader with
// field-name canonicalization, and the read-only Library lookup structure
// shared by every matcher run.
package library

import "strings"

// SymptomType distinguishes symptom rows from problem rows in the master file.
type SymptomType string

const (
	TypeSymptom SymptomType = "Symptom"
	TypeProblem SymptomType = "Problem"
)

// ParseSymptomType canonicalizes the upstream "symptom vs. problem" flag.
// Unrecognised values default to Symptom, matching the master file's bias.
func ParseSymptomType(s string) SymptomType {
	if strings.EqualFold(strings.TrimSpace(s), string(TypeProblem)) {
		return TypeProblem
	}
	return TypeSymptom
}

// SymptomMasterRecord is one immutable row of the reference vocabulary.
// Records are loaded once per process and read-only afterwards; concurrent
// matchers share them without locking.
type SymptomMasterRecord struct {
	// SymptomID is the stable key.  Multiple records may share the same
	// segment text only if they differ in another dimension; the loader
	// de-duplicates on this field alone.
	SymptomID string `json:"symptom_id"`

	// SymptomSegment is the matchable clinical phrase.
	SymptomSegment string `json:"symptom_segment"`

	Diagnosis          string      `json:"diagnosis"`
	DiagnosticCategory string      `json:"diagnostic_category"`
	ICD10Code          string      `json:"icd10_code"`
	SymptomOrProblem   SymptomType `json:"symptom_or_problem"`
}

// Valid reports whether the record carries the two fields matching depends on.
func (r SymptomMasterRecord) Valid() bool {
	return strings.TrimSpace(r.SymptomID) != "" && strings.TrimSpace(r.SymptomSegment) != ""
}

// hrsnCategories maps diagnostic categories that represent health-related
// social needs to their indicator label.  The table is explicit rather than
// heuristic so clinical review can sign off on exactly what counts as HRSN.
var hrsnCategories = map[string]string{
	"housing instability":   "Housing",
	"food insecurity":       "Food",
	"transportation barrier": "Transportation",
	"utility needs":         "Utilities",
	"interpersonal safety":  "Safety",
	"financial strain":      "Finances",
	"social isolation":      "Social Connections",
	"employment needs":      "Employment",
}

// HRSNIndicator returns the social-need label derived from the record's
// diagnostic category, and whether the record is an HRSN row at all.
func (r SymptomMasterRecord) HRSNIndicator() (string, bool) {
	label, ok := hrsnCategories[strings.ToLower(strings.TrimSpace(r.DiagnosticCategory))]
	return label, ok
}

// Library is the in-memory lookup structure produced by the loader.  It
// preserves insertion order, which the matcher uses as the documented
// deterministic tie-break for equal-length phrases.
type Library struct {
	records []SymptomMasterRecord
	byID    map[string]int
}

// NewLibrary builds a Library from already-validated records, dropping
// duplicate symptom IDs (first occurrence wins).
func NewLibrary(records []SymptomMasterRecord) *Library {
	lib := &Library{
		records: make([]SymptomMasterRecord, 0, len(records)),
		byID:    make(map[string]int, len(records)),
	}
	for _, r := range records {
		if _, dup := lib.byID[r.SymptomID]; dup {
			continue
		}
		lib.byID[r.SymptomID] = len(lib.records)
		lib.records = append(lib.records, r)
	}
	return lib
}

// Records returns the de-duplicated records in insertion order.  Callers must
// treat the slice as read-only.
func (l *Library) Records() []SymptomMasterRecord {
	return l.records
}

// ByID looks up a record by its stable symptom ID.
func (l *Library) ByID(id string) (SymptomMasterRecord, bool) {
	idx, ok := l.byID[id]
	if !ok {
		return SymptomMasterRecord{}, false
	}
	return l.records[idx], true
}

// Len returns the number of records in the library.
func (l *Library) Len() int {
	return len(l.records)
}
