// Package extraction implements the matcher engine: scanning normalized note
// text for reference-library phrases, negation detection bounded to clause
// scope, and duplicate-preserving event emission.  One ExtractedSymptomEvent
// per genuine phrase occurrence is the contract every aggregate downstream
// counts against.
package extraction

import (
	"time"

	"github.com/MikeL71221ibpm/iBPM-sub012/pkg/types/common"
)

// ExtractedSymptomEvent is one phrase occurrence in one note.  Repeated
// occurrences of the same phrase are separate events, not increments on a
// stored counter: intensity is derived later by counting events.
type ExtractedSymptomEvent struct {
	PatientID     common.PatientID `json:"patient_id"`
	NoteID        common.NoteID    `json:"note_id"`
	DateOfService time.Time        `json:"date_of_service"`

	// Fields inherited from the matched SymptomMasterRecord.
	SymptomID          string `json:"symptom_id"`
	SymptomSegment     string `json:"symptom_segment"`
	Diagnosis          string `json:"diagnosis"`
	DiagnosticCategory string `json:"diagnostic_category"`
	ICD10Code          string `json:"icd10_code"`

	// HRSNIndicator is the social-need label when the matched record's
	// category is an HRSN category; empty otherwise.
	HRSNIndicator string `json:"hrsn_indicator,omitempty"`

	// Negated marks matches preceded by a negation cue within the same
	// clause.  Negated events are emitted, never discarded, so downstream
	// consumers can exclude them without losing auditability.
	Negated bool `json:"negated"`

	// StartOffset and EndOffset are byte offsets into the normalized text.
	StartOffset int `json:"start_offset"`
	EndOffset   int `json:"end_offset"`

	// Snippet is the matched surface form in the original casing, for audit.
	Snippet string `json:"snippet"`
}
