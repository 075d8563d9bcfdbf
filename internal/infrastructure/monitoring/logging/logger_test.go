package logging

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObserved(level zapcore.Level) (Logger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return NewLoggerFromCore(core), logs
}

func TestLoggerEmitsFields(t *testing.T) {
	log, logs := newObserved(zapcore.DebugLevel)

	log.Info("note skipped",
		String("note_id", "N42"),
		Int("events", 3),
		Bool("negated", true),
		Duration("took", 5*time.Millisecond))

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "note skipped", entry.Message)

	fields := entry.ContextMap()
	assert.Equal(t, "N42", fields["note_id"])
	assert.Equal(t, int64(3), fields["events"])
	assert.Equal(t, true, fields["negated"])
}

func TestLoggerLevelFiltering(t *testing.T) {
	log, logs := newObserved(zapcore.WarnLevel)

	log.Debug("hidden")
	log.Info("hidden too")
	log.Warn("visible")
	log.Error("also visible")

	assert.Equal(t, 2, logs.Len())
}

func TestWithAddsPersistentFields(t *testing.T) {
	log, logs := newObserved(zapcore.InfoLevel)

	child := log.With(String("component", "matcher"))
	child.Info("scan complete")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "matcher", logs.All()[0].ContextMap()["component"])
}

func TestErrField(t *testing.T) {
	assert.Equal(t, "error", Err(nil).Key)
	assert.Equal(t, "<nil>", Err(nil).Value)
}

func TestNewLoggerDefaults(t *testing.T) {
	log, err := NewLogger(LogConfig{})
	require.NoError(t, err)
	require.NotNil(t, log)
}

func TestSetLevelTogglesVerbosity(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")
	log, err := NewLogger(LogConfig{Level: "info", OutputPaths: []string{path}, ErrorOutputPaths: []string{path}})
	require.NoError(t, err)

	log.Debug("before raise")
	require.True(t, SetLevel(log, "debug"))
	log.Debug("after raise")

	// A child created before the level change follows the shared level.
	log.Named("child").Debug("child after raise")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "before raise")
	assert.Contains(t, string(data), "after raise")
	assert.Contains(t, string(data), "child after raise")
}

func TestSetLevelUnsupportedLoggers(t *testing.T) {
	assert.False(t, SetLevel(NewNopLogger(), "debug"))

	core, _ := observer.New(zapcore.InfoLevel)
	assert.False(t, SetLevel(NewLoggerFromCore(core), "debug"))
}

func TestDefaultLogger(t *testing.T) {
	orig := Default()
	defer SetDefault(orig)

	log := NewNopLogger()
	SetDefault(log)
	assert.Equal(t, log, Default())

	// nil must not replace the current default.
	SetDefault(nil)
	assert.Equal(t, log, Default())
}
