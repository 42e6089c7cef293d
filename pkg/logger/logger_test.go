package logger_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/yegors/intel-pipeline/pkg/logger"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := logger.New(logger.Config{Level: "verbose", Format: "json"})
	require.Error(t, err)
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	_, err := logger.New(logger.Config{Level: "info", Format: "xml"})
	require.Error(t, err)
}

func TestAutoFormatFallsBackToJSON(t *testing.T) {
	var buf bytes.Buffer
	log, err := logger.New(logger.Config{Level: "info", Format: "auto", Output: &buf})
	require.NoError(t, err)

	log.Named("generator").Info("wrote raw telemetry", logger.Int("rows", 20))
	require.NoError(t, log.Sync())

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "wrote raw telemetry", entry["msg"])
	assert.Equal(t, "generator", entry["logger"])
	assert.EqualValues(t, 20, entry["rows"])
	assert.NotContains(t, entry, "caller")
}

func TestRunIDFromEnvironment(t *testing.T) {
	t.Setenv(logger.RunIDEnv, "run-123")

	var buf bytes.Buffer
	log, err := logger.New(logger.Config{Level: "info", Format: "json", Output: &buf})
	require.NoError(t, err)

	log.Info("stage started")
	require.NoError(t, log.Sync())
	assert.True(t, strings.Contains(buf.String(), `"run_id":"run-123"`), buf.String())
}

func TestDebugLevelIncludesCaller(t *testing.T) {
	var buf bytes.Buffer
	log, err := logger.New(logger.Config{Level: "debug", Format: "json", Output: &buf})
	require.NoError(t, err)

	log.Debug("debug message")
	require.NoError(t, log.Sync())
	assert.Contains(t, buf.String(), `"caller"`)
}

func TestFromCoreObserver(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := logger.FromCore(core).Named("query").WithRequestID("abc")

	log.Warn("store missing")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "query", entries[0].LoggerName)
	assert.Equal(t, "abc", entries[0].ContextMap()["request_id"])
}
