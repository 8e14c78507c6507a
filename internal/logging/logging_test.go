package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Level: "warn", Format: "json", Out: &buf})

	logger.Info().Msg("hidden")
	logger.Warn().Str("path", "/blog").Msg("shown")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "shown", entry["message"])
	assert.Equal(t, "/blog", entry["path"])
	assert.Equal(t, "postboard", entry["app"])
}

func TestNewFallsBackToInfo(t *testing.T) {
	logger := New(Options{Level: "loud", Out: &bytes.Buffer{}})
	assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())
}

func TestNewConsole(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Level: "debug", Out: &buf})
	logger.Debug().Msg("hello")

	assert.Contains(t, buf.String(), "hello")
	assert.Contains(t, buf.String(), "DBG")
}
