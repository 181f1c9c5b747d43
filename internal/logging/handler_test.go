package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Level: "info", Format: FormatJSON, Output: &buf})

	logger.Debug("hidden")
	logger.Info("contact submitted", "id", "contact-1")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "contact submitted", rec["msg"])
	assert.Equal(t, "contact-1", rec["id"])
}

func TestNew_Pretty(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Level: "debug", Format: FormatPretty, Output: &buf})

	logger.Debug("flush", "events", 3)

	out := buf.String()
	assert.Contains(t, out, "flush")
	assert.Contains(t, out, "events")
	assert.False(t, json.Valid([]byte(strings.TrimSpace(out))))
}

func TestNew_AutoFallsBackToJSONForNonTerminal(t *testing.T) {
	var buf bytes.Buffer
	New(Options{Format: FormatAuto, Output: &buf}).Info("ready")
	assert.True(t, json.Valid(bytes.TrimSpace(buf.Bytes())))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}
