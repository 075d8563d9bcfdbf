// Package ingest is the write-side application layer: it accepts raw note
// payloads from the extract topic, persists the note, re-extracts its
// events, and announces cache invalidation.
package ingest

import (
	"context"
	"time"

	"github.com/MikeL71221ibpm/iBPM-sub012/internal/domain/extraction"
	"github.com/MikeL71221ibpm/iBPM-sub012/internal/domain/note"
	"github.com/MikeL71221ibpm/iBPM-sub012/internal/infrastructure/messaging/kafka"
	"github.com/MikeL71221ibpm/iBPM-sub012/internal/infrastructure/monitoring/logging"
	"github.com/MikeL71221ibpm/iBPM-sub012/internal/infrastructure/monitoring/prometheus"
	"github.com/MikeL71221ibpm/iBPM-sub012/pkg/errors"
	"github.com/MikeL71221ibpm/iBPM-sub012/pkg/types/common"
)

// NoteStore persists notes.  Implemented by the PostgreSQL note repository.
type NoteStore interface {
	Upsert(ctx context.Context, n note.ClinicalNote) error
	GetByID(ctx context.Context, id common.NoteID) (note.ClinicalNote, error)
}

// EventStore persists extracted events.  Implemented by the PostgreSQL
// event repository.
type EventStore interface {
	ReplaceForNote(ctx context.Context, noteID common.NoteID, events []extraction.ExtractedSymptomEvent) error
}

// Publisher emits messages.  Implemented by the kafka producer.
type Publisher interface {
	Publish(ctx context.Context, msg common.Message) error
}

// Service handles one note ingestion end to end.
type Service struct {
	notes           NoteStore
	events          EventStore
	matcher         *extraction.Matcher
	publisher       Publisher
	invalidateTopic string
	metrics         *prometheus.AppMetrics
	logger          logging.Logger
}

// NewService wires the ingestion path.  publisher and metrics may be nil;
// without a publisher no invalidation notices are emitted.
func NewService(notes NoteStore, events EventStore, matcher *extraction.Matcher, publisher Publisher, invalidateTopic string, metrics *prometheus.AppMetrics, logger logging.Logger) *Service {
	return &Service{
		notes:           notes,
		events:          events,
		matcher:         matcher,
		publisher:       publisher,
		invalidateTopic: invalidateTopic,
		metrics:         metrics,
		logger:          logger.Named("ingest"),
	}
}

// HandleExtractMessage is the extract-topic handler: decode, ingest, notify.
// A malformed payload or an invalid note returns an error to the consumer,
// whose retry and dead letter policy decides its fate.
func (s *Service) HandleExtractMessage(ctx context.Context, msg common.Message) error {
	var payload kafka.NoteExtractPayload
	if err := kafka.DecodePayload(msg.Value, &payload); err != nil {
		return err
	}

	n := note.FromRaw(map[string]string{
		"patient_id":      payload.PatientID,
		"note_id":         payload.NoteID,
		"date_of_service": payload.DateOfService,
		"text":            payload.Text,
	})
	return s.Ingest(ctx, n)
}

// Ingest persists the note, replaces its extracted events, and publishes a
// pivot invalidation for the patient.
func (s *Service) Ingest(ctx context.Context, n note.ClinicalNote) error {
	start := time.Now()

	events, err := s.matcher.MatchNote(n)
	if err != nil {
		if s.metrics != nil {
			s.metrics.NotesSkippedTotal.WithLabelValues(string(errors.GetCode(err))).Inc()
		}
		return err
	}

	// The extract topic is at-least-once; a redelivered, unchanged note
	// already has durable events and needs no new invalidation.
	if existing, err := s.notes.GetByID(ctx, n.NoteID); err == nil &&
		existing.PatientID == n.PatientID &&
		existing.RawText == n.RawText &&
		existing.DateOfService.Equal(n.DateOfService) {
		s.logger.Debug("note unchanged, skipping redelivery",
			logging.String("note_id", string(n.NoteID)))
		return nil
	}

	if err := s.notes.Upsert(ctx, n); err != nil {
		return err
	}
	if err := s.events.ReplaceForNote(ctx, n.NoteID, events); err != nil {
		return err
	}

	if s.publisher != nil && s.invalidateTopic != "" {
		value, err := kafka.EncodePayload(kafka.PivotInvalidatePayload{
			PatientID: string(n.PatientID),
			Reason:    "note_ingested",
		})
		if err != nil {
			return err
		}
		err = s.publisher.Publish(ctx, common.Message{
			Topic: s.invalidateTopic,
			Key:   []byte(n.PatientID),
			Value: value,
		})
		if err != nil {
			// The events are durable; a lost invalidation only delays cache
			// freshness until the TTL lapses.
			s.logger.Warn("failed to publish invalidation", logging.Err(err))
		}
	}

	if s.metrics != nil {
		affirmed, negated := 0, 0
		for _, ev := range events {
			if ev.Negated {
				negated++
			} else {
				affirmed++
			}
		}
		prometheus.RecordExtraction(s.metrics, "ingest", 1, 0, affirmed, negated, time.Since(start))
	}
	s.logger.Info("note ingested",
		logging.String("note_id", string(n.NoteID)),
		logging.String("patient_id", string(n.PatientID)),
		logging.Int("events", len(events)))
	return nil
}
