// Package note implements the clinical note bounded context: the transient
// note entity supplied by upstream collaborators, ingestion canonicalization
// of field-name variants, and the pure text normalizer the matcher scans.
package note

import (
	"strings"
	"time"

	"github.com/MikeL71221ibpm/iBPM-sub012/pkg/errors"
	"github.com/MikeL71221ibpm/iBPM-sub012/pkg/types/common"
)

// ClinicalNote is one input record.  The core does not own notes; they are
// supplied per call by the note source and never persisted here.
type ClinicalNote struct {
	PatientID     common.PatientID `json:"patient_id"`
	NoteID        common.NoteID    `json:"note_id"`
	DateOfService time.Time        `json:"date_of_service"`
	RawText       string           `json:"raw_text"`
}

// Validate reports the per-note recoverable failures: a note with no text is
// malformed, and a note with no parseable service date cannot be placed on
// any pivot column.  Both skip the note, never the batch.
func (n ClinicalNote) Validate() error {
	if strings.TrimSpace(n.RawText) == "" {
		return errors.New(errors.CodeMalformedNote, "note has no text").
			WithDetail("note_id=" + string(n.NoteID))
	}
	if n.DateOfService.IsZero() {
		return errors.New(errors.CodeUnparseableDate, "note has no parseable date of service").
			WithDetail("note_id=" + string(n.NoteID))
	}
	return nil
}

// serviceDateLayouts lists the date formats upstream producers are known to
// emit, most common first.
var serviceDateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"01/02/2006",
	"1/2/2006",
	"01-02-2006",
	"Jan 2, 2006",
}

// ParseServiceDate parses a date-of-service string against the known upstream
// formats.  The time-of-day portion, when present, is discarded: aggregation
// columns are whole service dates.
func ParseServiceDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New(errors.CodeUnparseableDate, "empty date of service")
	}
	for _, layout := range serviceDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, errors.New(errors.CodeUnparseableDate, "unrecognised date of service").
		WithDetail(s)
}

// noteFieldAliases canonicalizes the field-name variants note producers use.
// The single mapping table mirrors the library loader's approach so variant
// handling lives at the ingestion boundary, not in every consumer.
var noteFieldAliases = map[string]string{
	"patientid":     "patient_id",
	"patient":       "patient_id",
	"noteid":        "note_id",
	"documentid":    "note_id",
	"dateofservice": "date_of_service",
	"servicedate":   "date_of_service",
	"dos":           "date_of_service",
	"text":          "text",
	"notetext":      "text",
	"rawtext":       "text",
	"content":       "text",
}

func canonicalNoteKey(raw string) string {
	k := strings.ToLower(strings.TrimSpace(raw))
	k = strings.NewReplacer(" ", "", "-", "", "_", "", "/", "").Replace(k)
	if canon, ok := noteFieldAliases[k]; ok {
		return canon
	}
	return ""
}

// FromRaw canonicalizes one raw note record into a ClinicalNote.  The
// returned note may still fail Validate; callers decide whether to skip it.
func FromRaw(raw map[string]string) ClinicalNote {
	var n ClinicalNote
	for key, val := range raw {
		switch canonicalNoteKey(key) {
		case "patient_id":
			n.PatientID = common.PatientID(strings.TrimSpace(val))
		case "note_id":
			n.NoteID = common.NoteID(strings.TrimSpace(val))
		case "date_of_service":
			if t, err := ParseServiceDate(val); err == nil {
				n.DateOfService = t
			}
		case "text":
			n.RawText = val
		}
	}
	return n
}
