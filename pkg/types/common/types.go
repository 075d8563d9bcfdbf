// Package common holds cross-cutting value types shared by every layer of the
// iBPM platform: identifiers, date ranges, API response envelopes, and the
// messaging handler contract.
package common

import (
	"context"
	"time"
)

// ID is a string alias for UUID v4.
type ID string

// PatientID identifies a patient in the upstream system of record.
type PatientID string

// NoteID identifies a single clinical note.
type NoteID string

// Metadata is an open-ended key-value bag.
type Metadata map[string]interface{}

// DateRange is an inclusive [From, To] interval of service dates.
// A zero From or To leaves that side of the interval unbounded.
type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// IsZero reports whether neither bound is set.
func (r DateRange) IsZero() bool {
	return r.From.IsZero() && r.To.IsZero()
}

// Contains reports whether t falls inside the inclusive interval.
// Unset bounds are treated as open.
func (r DateRange) Contains(t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && t.After(r.To) {
		return false
	}
	return true
}

// Validate reports an ordering violation between the two bounds.
func (r DateRange) Validate() bool {
	if r.From.IsZero() || r.To.IsZero() {
		return true
	}
	return !r.To.Before(r.From)
}

// Pagination defines parameters for paginated requests.
type Pagination struct {
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Total    int64 `json:"total,omitempty"`
}

// ErrorDetail provides structured error information for API responses.
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// APIResponse is the generic wrapper for all API responses.
type APIResponse[T any] struct {
	Success   bool         `json:"success"`
	Data      T            `json:"data,omitempty"`
	Error     *ErrorDetail `json:"error,omitempty"`
	RequestID string       `json:"request_id"`
	Timestamp time.Time    `json:"timestamp"`
}

// HealthStatus indicates the health of a component or service.
type HealthStatus string

const (
	HealthUp       HealthStatus = "up"
	HealthDown     HealthStatus = "down"
	HealthDegraded HealthStatus = "degraded"
)

// ComponentHealth provides health information for a specific component.
type ComponentHealth struct {
	Name    string        `json:"name"`
	Status  HealthStatus  `json:"status"`
	Latency time.Duration `json:"latency"`
	Message string        `json:"message"`
}

// Message is a transport-agnostic envelope for queued work items.
type Message struct {
	Topic     string
	Key       []byte
	Value     []byte
	Timestamp time.Time
	Headers   map[string]string
}

// MessageHandler processes a single queued message.  Returning an error
// triggers the consumer's retry policy; nil commits the offset.
type MessageHandler func(ctx context.Context, msg Message) error
