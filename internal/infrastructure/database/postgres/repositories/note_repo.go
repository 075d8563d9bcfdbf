package repositories

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MikeL71221ibpm/iBPM-sub012/internal/domain/note"
	"github.com/MikeL71221ibpm/iBPM-sub012/internal/infrastructure/monitoring/logging"
	"github.com/MikeL71221ibpm/iBPM-sub012/pkg/errors"
	"github.com/MikeL71221ibpm/iBPM-sub012/pkg/types/common"
)

// NoteRepo persists the clinical note corpus.
type NoteRepo struct {
	pool   *pgxpool.Pool
	logger logging.Logger
}

// NewNoteRepo creates the repository.
func NewNoteRepo(pool *pgxpool.Pool, logger logging.Logger) *NoteRepo {
	return &NoteRepo{pool: pool, logger: logger.Named("note_repo")}
}

// Upsert stores one note, replacing any previous version of the same note ID.
func (r *NoteRepo) Upsert(ctx context.Context, n note.ClinicalNote) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO clinical_notes (note_id, patient_id, date_of_service, raw_text)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (note_id) DO UPDATE
		SET patient_id = EXCLUDED.patient_id,
		    date_of_service = EXCLUDED.date_of_service,
		    raw_text = EXCLUDED.raw_text,
		    updated_at = NOW()`,
		string(n.NoteID), string(n.PatientID), n.DateOfService, n.RawText)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to upsert clinical note")
	}
	return nil
}

// GetByID fetches a single note.
func (r *NoteRepo) GetByID(ctx context.Context, id common.NoteID) (note.ClinicalNote, error) {
	var n note.ClinicalNote
	var noteID, patientID, rawText string
	var dos time.Time

	err := r.pool.QueryRow(ctx, `
		SELECT note_id, patient_id, date_of_service, raw_text
		FROM clinical_notes WHERE note_id = $1`, string(id)).
		Scan(&noteID, &patientID, &dos, &rawText)
	if err == pgx.ErrNoRows {
		return n, errors.New(errors.ErrCodeNoteNotFound, "clinical note not found").
			WithDetail(string(id))
	}
	if err != nil {
		return n, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to query clinical note")
	}
	return note.ClinicalNote{
		NoteID:        common.NoteID(noteID),
		PatientID:     common.PatientID(patientID),
		DateOfService: dos,
		RawText:       rawText,
	}, nil
}

// ListByPatient returns the patient's notes within the optional date range,
// ordered by service date then note ID so downstream extraction output is
// reproducible between calls.
func (r *NoteRepo) ListByPatient(ctx context.Context, patientID common.PatientID, dr common.DateRange) ([]note.ClinicalNote, error) {
	query := `
		SELECT note_id, patient_id, date_of_service, raw_text
		FROM clinical_notes
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
	query += ` ORDER BY date_of_service, note_id`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to query clinical notes")
	}
	defer rows.Close()

	var notes []note.ClinicalNote
	for rows.Next() {
		var noteID, pid, rawText string
		var dos time.Time
		if err := rows.Scan(&noteID, &pid, &dos, &rawText); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan clinical note")
		}
		notes = append(notes, note.ClinicalNote{
			NoteID:        common.NoteID(noteID),
			PatientID:     common.PatientID(pid),
			DateOfService: dos,
			RawText:       rawText,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "clinical note iteration failed")
	}
	return notes, nil
}
