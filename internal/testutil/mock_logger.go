// Package testutil provides shared test doubles used across package tests.
package testutil

import (
	"sync"

	"github.com/MikeL71221ibpm/iBPM-sub012/internal/infrastructure/monitoring/logging"
)

// LogEntry is a single captured log call.
type LogEntry struct {
	Level   string
	Message string
	Fields  map[string]interface{}
}

type logSink struct {
	mu      sync.Mutex
	entries []LogEntry
}

// MockLogger records every log call for later assertion.  Unlike
// logging.NewNopLogger it lets tests verify that skipped notes and rejected
// library rows were actually warned about.  Child loggers created via With
// share the parent's sink so assertions live in one place.
type MockLogger struct {
	sink *logSink
	with []logging.Field
}

// NewMockLogger returns an empty recording logger.
func NewMockLogger() *MockLogger {
	return &MockLogger{sink: &logSink{}}
}

func (m *MockLogger) record(level, msg string, fields []logging.Field) {
	fm := make(map[string]interface{}, len(fields)+len(m.with))
	for _, f := range m.with {
		fm[f.Key] = f.Value
	}
	for _, f := range fields {
		fm[f.Key] = f.Value
	}
	m.sink.mu.Lock()
	m.sink.entries = append(m.sink.entries, LogEntry{Level: level, Message: msg, Fields: fm})
	m.sink.mu.Unlock()
}

func (m *MockLogger) Debug(msg string, fields ...logging.Field) { m.record("debug", msg, fields) }
func (m *MockLogger) Info(msg string, fields ...logging.Field)  { m.record("info", msg, fields) }
func (m *MockLogger) Warn(msg string, fields ...logging.Field)  { m.record("warn", msg, fields) }
func (m *MockLogger) Error(msg string, fields ...logging.Field) { m.record("error", msg, fields) }
func (m *MockLogger) Fatal(msg string, fields ...logging.Field) { m.record("fatal", msg, fields) }

func (m *MockLogger) With(fields ...logging.Field) logging.Logger {
	return &MockLogger{
		sink: m.sink,
		with: append(append([]logging.Field{}, m.with...), fields...),
	}
}

func (m *MockLogger) Named(_ string) logging.Logger { return m }

// Entries returns a copy of all recorded entries.
func (m *MockLogger) Entries() []LogEntry {
	m.sink.mu.Lock()
	defer m.sink.mu.Unlock()
	out := make([]LogEntry, len(m.sink.entries))
	copy(out, m.sink.entries)
	return out
}

// CountLevel returns how many entries were recorded at the given level.
func (m *MockLogger) CountLevel(level string) int {
	m.sink.mu.Lock()
	defer m.sink.mu.Unlock()
	n := 0
	for _, e := range m.sink.entries {
		if e.Level == level {
			n++
		}
	}
	return n
}
