package library

import (
	"context"
	"encoding/csv"
	"io"
	"os"

	"github.com/MikeL71221ibpm/iBPM-sub012/pkg/errors"
)

// CSVSource reads raw library rows from a CSV snapshot.  The first row is the
// header; header names may be any of the variants the loader's field-mapping
// table understands.  Used by the comparison harness, which runs against
// corpus snapshots rather than the live database.
type CSVSource struct {
	Path string
}

// NewCSVSource returns a Source over the CSV file at path.
func NewCSVSource(path string) *CSVSource {
	return &CSVSource{Path: path}
}

// Fetch implements Source.
func (s *CSVSource) Fetch(ctx context.Context) ([]RawRecord, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeLibraryUnavailable, "cannot open library csv")
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // tolerate ragged rows; validation happens per record

	header, err := r.Read()
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeLibraryUnavailable, "cannot read library csv header")
	}

	var rows []RawRecord
	for {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, errors.CodeExtractionCanceled, "library csv read canceled")
		}
		fields, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeLibraryUnavailable, "library csv read failed")
		}
		row := make(RawRecord, len(header))
		for i, h := range header {
			if i < len(fields) {
				row[h] = fields[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
