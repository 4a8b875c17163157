package logger_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"taskboard/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSONWithLevel(t *testing.T) {
	var buf bytes.Buffer
	l := logger.New("warn", "json", &buf)

	l.Info().Msg("hidden")
	l.Warn().Str("project_id", "p1").Msg("visible")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "visible", entry["message"])
	assert.Equal(t, "p1", entry["project_id"])
	assert.Contains(t, entry, "time")
}

func TestNew_UnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	l := logger.New("chatty", "json", &buf)

	l.Debug().Msg("dropped")
	l.Info().Msg("kept")

	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), "kept")
}
