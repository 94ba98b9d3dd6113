package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/zalepa/vacstat/internal/config"
)

func TestConsoleRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, stop, err := newLogger(config.LogConfig{Level: "warn"}, "run-1", &buf)
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Named("rates").Warn("shown", zap.Int("count", 3))
	stop()

	out := buf.String()
	require.NotContains(t, out, "hidden")
	require.Contains(t, out, "WARN")
	require.Contains(t, out, "rates")
	require.Contains(t, out, "run-1")
}

func TestFileOutputIsJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vacstat.log")
	var console bytes.Buffer
	logger, stop, err := newLogger(config.LogConfig{Level: "debug", File: path, MaxSizeMB: 1}, "run-2", &console)
	require.NoError(t, err)

	logger.Named("pipeline").Debug("partition aggregated")
	stop()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	require.Equal(t, "partition aggregated", entry["msg"])
	require.Equal(t, "pipeline", entry["logger"])
	require.Equal(t, "run-2", entry["run_id"])
	require.Contains(t, console.String(), "partition aggregated")
}

func TestBadLevel(t *testing.T) {
	_, _, err := New(config.LogConfig{Level: "chatty"}, "x")
	require.Error(t, err)
}

func TestNewRunID(t *testing.T) {
	id := NewRunID()
	_, err := uuid.Parse(id)
	require.NoError(t, err)
	require.NotEqual(t, id, NewRunID())
}
