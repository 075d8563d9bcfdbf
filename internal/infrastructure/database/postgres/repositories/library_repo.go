// Package repositories implements the PostgreSQL persistence layer: the
// symptom master library, the clinical note corpus, and the extracted event
// store.
package repositories

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MikeL71221ibpm/iBPM-sub012/internal/domain/library"
	"github.com/MikeL71221ibpm/iBPM-sub012/internal/infrastructure/monitoring/logging"
	"github.com/MikeL71221ibpm/iBPM-sub012/pkg/errors"
)

// LibraryRepo reads and writes the symptom master table.  Its Fetch method
// satisfies library.Source, so the loader consumes database rows through the
// same canonicalization path as CSV snapshots.
type LibraryRepo struct {
	pool   *pgxpool.Pool
	logger logging.Logger
}

// NewLibraryRepo creates the repository.
func NewLibraryRepo(pool *pgxpool.Pool, logger logging.Logger) *LibraryRepo {
	return &LibraryRepo{pool: pool, logger: logger.Named("library_repo")}
}

// Fetch returns every symptom master row as a raw record.  Column names
// double as the raw field names; the loader canonicalizes them.
func (r *LibraryRepo) Fetch(ctx context.Context) ([]library.RawRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT symptom_id, symptom_segment, diagnosis, diagnostic_category,
		       icd10_code, symptom_or_problem
		FROM symptom_master
		ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to query symptom master")
	}
	defer rows.Close()

	var raws []library.RawRecord
	for rows.Next() {
		var symptomID, segment, diagnosis, category, icd10, symProb string
		if err := rows.Scan(&symptomID, &segment, &diagnosis, &category, &icd10, &symProb); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan symptom master row")
		}
		raws = append(raws, library.RawRecord{
			"symptom_id":          symptomID,
			"symptom_segment":     segment,
			"diagnosis":           diagnosis,
			"diagnostic_category": category,
			"icd10_code":          icd10,
			"symptom_or_problem":  symProb,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "symptom master iteration failed")
	}
	return raws, nil
}

// ReplaceAll swaps the symptom master table for a new record set in one
// transaction, preserving the record order as insertion order.
func (r *LibraryRepo) ReplaceAll(ctx context.Context, records []library.SymptomMasterRecord) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to begin transaction")
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `TRUNCATE symptom_master RESTART IDENTITY`); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to truncate symptom master")
	}

	copyRows := make([][]interface{}, len(records))
	for i, rec := range records {
		copyRows[i] = []interface{}{
			rec.SymptomID, rec.SymptomSegment, rec.Diagnosis,
			rec.DiagnosticCategory, rec.ICD10Code, string(rec.SymptomOrProblem),
		}
	}
	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"symptom_master"},
		[]string{"symptom_id", "symptom_segment", "diagnosis", "diagnostic_category", "icd10_code", "symptom_or_problem"},
		pgx.CopyFromRows(copyRows))
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to copy symptom master rows")
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to commit symptom master replacement")
	}
	r.logger.Info("symptom master replaced", logging.Int("records", len(records)))
	return nil
}

// Count returns the number of symptom master rows.
func (r *LibraryRepo) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM symptom_master`).Scan(&count); err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to count symptom master rows")
	}
	return count, nil
}
