package extraction

import (
	"context"
	"runtime"
	"sync"

	"github.com/MikeL71221ibpm/iBPM-sub012/internal/domain/note"
	"github.com/MikeL71221ibpm/iBPM-sub012/internal/infrastructure/monitoring/logging"
	pkgerrors "github.com/MikeL71221ibpm/iBPM-sub012/pkg/errors"
	"github.com/MikeL71221ibpm/iBPM-sub012/pkg/types/common"
)

// SkippedNote records why a note contributed no events, so partial corpora
// still produce auditable best-effort results.
type SkippedNote struct {
	NoteID    common.NoteID       `json:"note_id"`
	PatientID common.PatientID    `json:"patient_id"`
	Code      pkgerrors.ErrorCode `json:"code"`
	Message   string              `json:"message"`
}

// Result is the outcome of a corpus extraction: events in input order plus
// accumulated per-note warnings.
type Result struct {
	Events  []ExtractedSymptomEvent `json:"events"`
	Skipped []SkippedNote           `json:"skipped,omitempty"`
}

// ServiceConfig tunes the batch extraction service.
type ServiceConfig struct {
	// Workers bounds the pool; 0 means runtime.NumCPU().
	Workers int

	// BatchSize bounds peak memory on very large corpora.  Batching exists
	// purely for memory, not correctness; cancellation is honoured between
	// batches so already-produced results stay valid.
	BatchSize int
}

// Service runs a Matcher over note corpora.  Matching is embarrassingly
// parallel at the note level: each note reads only the shared immutable
// index and writes only its own slot, so no locking is needed beyond the
// WaitGroup.
type Service struct {
	matcher *Matcher
	cfg     ServiceConfig
	logger  logging.Logger
}

// NewService creates a batch extraction Service.
func NewService(matcher *Matcher, cfg ServiceConfig, logger logging.Logger) *Service {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 200
	}
	return &Service{matcher: matcher, cfg: cfg, logger: logger.Named("extract")}
}

// ExtractCorpus matches every note and returns events in note input order:
// identical output for identical input regardless of scheduling.  Recoverable
// per-note failures become Skipped entries and warnings; only cancellation
// aborts, and then the partial Result remains valid for merging.
func (s *Service) ExtractCorpus(ctx context.Context, notes []note.ClinicalNote) (Result, error) {
	var result Result

	perNote := make([][]ExtractedSymptomEvent, len(notes))
	skips := make([]*SkippedNote, len(notes))

	for base := 0; base < len(notes); base += s.cfg.BatchSize {
		if err := ctx.Err(); err != nil {
			s.collect(&result, perNote[:base], skips[:base])
			return result, pkgerrors.Wrap(err, pkgerrors.CodeExtractionCanceled, "extraction aborted between batches")
		}

		end := base + s.cfg.BatchSize
		if end > len(notes) {
			end = len(notes)
		}
		s.runBatch(notes, perNote, skips, base, end)
	}

	s.collect(&result, perNote, skips)
	return result, nil
}

// runBatch fans the batch's notes out over the worker pool.
func (s *Service) runBatch(notes []note.ClinicalNote, perNote [][]ExtractedSymptomEvent, skips []*SkippedNote, base, end int) {
	jobs := make(chan int)
	var wg sync.WaitGroup

	for w := 0; w < s.cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				events, err := s.matcher.MatchNote(notes[i])
				if err != nil {
					skips[i] = &SkippedNote{
						NoteID:    notes[i].NoteID,
						PatientID: notes[i].PatientID,
						Code:      pkgerrors.GetCode(err),
						Message:   err.Error(),
					}
					continue
				}
				perNote[i] = events
			}
		}()
	}

	for i := base; i < end; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
}

// collect flattens per-note output in input order and logs warnings for
// every skip.
func (s *Service) collect(result *Result, perNote [][]ExtractedSymptomEvent, skips []*SkippedNote) {
	for _, events := range perNote {
		result.Events = append(result.Events, events...)
	}
	for _, skip := range skips {
		if skip == nil {
			continue
		}
		result.Skipped = append(result.Skipped, *skip)
		s.logger.Warn("skipping note",
			logging.String("note_id", string(skip.NoteID)),
			logging.String("code", skip.Code.String()),
			logging.String("reason", skip.Message))
	}
}
