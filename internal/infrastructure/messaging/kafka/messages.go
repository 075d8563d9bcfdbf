package kafka

import (
	"encoding/json"

	"github.com/MikeL71221ibpm/iBPM-sub012/pkg/errors"
)

// NoteExtractPayload is the body of a note extraction request.  The date of
// service travels as a string because upstream producers emit several
// formats; the worker canonicalizes it with the note parser.
type NoteExtractPayload struct {
	PatientID     string `json:"patient_id"`
	NoteID        string `json:"note_id"`
	DateOfService string `json:"date_of_service"`
	Text          string `json:"text"`
}

// PivotInvalidatePayload announces that cached pivots for a patient are
// stale.
type PivotInvalidatePayload struct {
	PatientID string `json:"patient_id"`
	Reason    string `json:"reason,omitempty"`
}

// EncodePayload serializes a message payload.
func EncodePayload(v interface{}) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode payload")
	}
	return data, nil
}

// DecodePayload deserializes a message payload.
func DecodePayload(data []byte, v interface{}) error {
	if err := json.Unmarshal(data, v); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode payload")
	}
	return nil
}
