package library

import (
	"context"
	"strings"

	"github.com/MikeL71221ibpm/iBPM-sub012/internal/infrastructure/monitoring/logging"
	"github.com/MikeL71221ibpm/iBPM-sub012/pkg/errors"
)

// RawRecord is one uncanonicalized row from the library source of record.
// Keys arrive in whatever casing or spelling the upstream producer uses.
type RawRecord map[string]string

// Source supplies raw symptom master rows.  Implementations exist for the
// PostgreSQL repository and for CSV snapshots used by the comparison harness.
type Source interface {
	// Fetch returns every raw row, or an error when the source is entirely
	// unreadable.  Partial row problems are not Fetch's concern; the loader
	// canonicalizes and rejects per row.
	Fetch(ctx context.Context) ([]RawRecord, error)
}

// fieldAliases is the explicit field-mapping table that canonicalizes the
// naming variants upstream producers use.  Handled once here, never in
// downstream consumers.  Keys are compared lowercased with spaces, hyphens,
// underscores, and slashes stripped.
var fieldAliases = map[string]string{
	"symptomid":         "symptom_id",
	"symptom":           "symptom_segment",
	"symptomsegment":    "symptom_segment",
	"segment":           "symptom_segment",
	"diagnosis":         "diagnosis",
	"dx":                "diagnosis",
	"diagnosticcategory": "diagnostic_category",
	"dxcategory":        "diagnostic_category",
	"category":          "diagnostic_category",
	"icd10":             "icd10_code",
	"icd10code":         "icd10_code",
	"icdcode":           "icd10_code",
	"sympprob":          "symptom_or_problem",
	"symptomorproblem":  "symptom_or_problem",
	"symptomproblem":    "symptom_or_problem",
}

// canonicalKey reduces a raw field name to its canonical form, or "" when the
// field is not part of the SymptomMasterRecord shape.
func canonicalKey(raw string) string {
	k := strings.ToLower(strings.TrimSpace(raw))
	k = strings.NewReplacer(" ", "", "-", "", "_", "", "/", "").Replace(k)
	if canon, ok := fieldAliases[k]; ok {
		return canon
	}
	return ""
}

// Canonicalize maps a raw row's variant field names onto the canonical
// SymptomMasterRecord shape.  Unknown fields are dropped.
func Canonicalize(raw RawRecord) SymptomMasterRecord {
	var rec SymptomMasterRecord
	for key, val := range raw {
		val = strings.TrimSpace(val)
		switch canonicalKey(key) {
		case "symptom_id":
			rec.SymptomID = val
		case "symptom_segment":
			rec.SymptomSegment = val
		case "diagnosis":
			rec.Diagnosis = val
		case "diagnostic_category":
			rec.DiagnosticCategory = val
		case "icd10_code":
			rec.ICD10Code = val
		case "symptom_or_problem":
			rec.SymptomOrProblem = ParseSymptomType(val)
		}
	}
	if rec.SymptomOrProblem == "" {
		rec.SymptomOrProblem = TypeSymptom
	}
	return rec
}

// Loader turns raw library rows into a validated, de-duplicated Library.
type Loader struct {
	source Source
	logger logging.Logger
}

// NewLoader creates a Loader over the given source.
func NewLoader(source Source, logger logging.Logger) *Loader {
	return &Loader{source: source, logger: logger.Named("library")}
}

// Load fetches, canonicalizes, validates, and de-duplicates the reference
// vocabulary.  Rows missing a symptom ID or segment are logged and skipped;
// an unreadable source is fatal (CodeLibraryUnavailable); a readable but
// empty source yields CodeLibraryEmpty since matching against an empty
// vocabulary can only ever produce silent zero results.
func (l *Loader) Load(ctx context.Context) (*Library, error) {
	raws, err := l.source.Fetch(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeLibraryUnavailable, "symptom library source unreadable")
	}

	records := make([]SymptomMasterRecord, 0, len(raws))
	rejected := 0
	for i, raw := range raws {
		rec := Canonicalize(raw)
		if !rec.Valid() {
			rejected++
			l.logger.Warn("rejecting symptom master row",
				logging.Int("row", i),
				logging.String("symptom_id", rec.SymptomID),
				logging.String("segment", rec.SymptomSegment))
			continue
		}
		records = append(records, rec)
	}

	lib := NewLibrary(records)
	if lib.Len() == 0 {
		return nil, errors.New(errors.CodeLibraryEmpty, "no valid symptom master records")
	}

	l.logger.Info("symptom library loaded",
		logging.Int("records", lib.Len()),
		logging.Int("rejected", rejected),
		logging.Int("duplicates", len(records)-lib.Len()))
	return lib, nil
}
