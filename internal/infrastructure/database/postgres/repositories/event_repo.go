package repositories

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MikeL71221ibpm/iBPM-sub012/internal/domain/extraction"
	"github.com/MikeL71221ibpm/iBPM-sub012/internal/infrastructure/monitoring/logging"
	"github.com/MikeL71221ibpm/iBPM-sub012/pkg/errors"
	"github.com/MikeL71221ibpm/iBPM-sub012/pkg/types/common"
)

// EventRepo persists extracted symptom events.  Events are the durable
// output of extraction; aggregation reads them back instead of re-matching
// the corpus on every pivot request.
type EventRepo struct {
	pool   *pgxpool.Pool
	logger logging.Logger
}

// NewEventRepo creates the repository.
func NewEventRepo(pool *pgxpool.Pool, logger logging.Logger) *EventRepo {
	return &EventRepo{pool: pool, logger: logger.Named("event_repo")}
}

var eventColumns = []string{
	"patient_id", "note_id", "date_of_service", "symptom_id", "symptom_segment",
	"diagnosis", "diagnostic_category", "icd10_code", "hrsn_indicator",
	"negated", "start_offset", "end_offset", "snippet",
}

// ReplaceForNote atomically swaps a note's events for the freshly extracted
// set.  Re-extraction of an updated note never leaves stale events behind.
func (r *EventRepo) ReplaceForNote(ctx context.Context, noteID common.NoteID, events []extraction.ExtractedSymptomEvent) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to begin transaction")
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM extracted_events WHERE note_id = $1`, string(noteID)); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to delete stale events")
	}

	if len(events) > 0 {
		copyRows := make([][]interface{}, len(events))
		for i, ev := range events {
			copyRows[i] = []interface{}{
				string(ev.PatientID), string(ev.NoteID), ev.DateOfService,
				ev.SymptomID, ev.SymptomSegment, ev.Diagnosis, ev.DiagnosticCategory,
				ev.ICD10Code, ev.HRSNIndicator, ev.Negated,
				ev.StartOffset, ev.EndOffset, ev.Snippet,
			}
		}
		if _, err := tx.CopyFrom(ctx, pgx.Identifier{"extracted_events"}, eventColumns, pgx.CopyFromRows(copyRows)); err != nil {
			return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to copy events")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to commit event replacement")
	}
	r.logger.Debug("events replaced",
		logging.String("note_id", string(noteID)),
		logging.Int("events", len(events)))
	return nil
}

// ListByPatient returns a patient's events within the optional date range,
// ordered by service date, note, and text offset for reproducible output.
func (r *EventRepo) ListByPatient(ctx context.Context, patientID common.PatientID, dr common.DateRange) ([]extraction.ExtractedSymptomEvent, error) {
	query := `
		SELECT patient_id, note_id, date_of_service, symptom_id, symptom_segment,
		       diagnosis, diagnostic_category, icd10_code, hrsn_indicator,
		       negated, start_offset, end_offset, snippet
		FROM extracted_events
		WHERE patient_id = $1`
	args := []interface{}{string(patientID)}

	if !dr.From.IsZero() {
		args = append(args, dr.From)
		query += ` AND date_of_service >= $2`
	}
	if !dr.To.IsZero() {
		args = append(args, dr.To)
		if len(args) == 3 {
			query += ` AND date_of_service <= $3`
		} else {
			query += ` AND date_of_service <= $2`
		}
	}
	query += ` ORDER BY date_of_service, note_id, start_offset`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to query events")
	}
	defer rows.Close()

	var events []extraction.ExtractedSymptomEvent
	for rows.Next() {
		var ev extraction.ExtractedSymptomEvent
		var pid, noteID string
		var dos time.Time
		if err := rows.Scan(&pid, &noteID, &dos, &ev.SymptomID, &ev.SymptomSegment,
			&ev.Diagnosis, &ev.DiagnosticCategory, &ev.ICD10Code, &ev.HRSNIndicator,
			&ev.Negated, &ev.StartOffset, &ev.EndOffset, &ev.Snippet); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan event")
		}
		ev.PatientID = common.PatientID(pid)
		ev.NoteID = common.NoteID(noteID)
		ev.DateOfService = dos
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "event iteration failed")
	}
	return events, nil
}

// CountByPatient returns the stored event count for a patient.
func (r *EventRepo) CountByPatient(ctx context.Context, patientID common.PatientID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM extracted_events WHERE patient_id = $1`,
		string(patientID)).Scan(&count)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to count events")
	}
	return count, nil
}
