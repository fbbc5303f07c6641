package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "warn", "production")

	log.Info().Msg("hidden")
	assert.Zero(t, buf.Len())

	log.Warn().Str("tech_id", "t1").Msg("visible")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "visible", entry["message"])
	assert.Equal(t, "techtrack-backend", entry["service"])
	assert.Equal(t, "t1", entry["tech_id"])
	assert.Contains(t, entry, "time")
}

func TestNewWithWriter_DevConsole(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "not-a-level", "dev")

	log.Debug().Msg("below default level")
	assert.Zero(t, buf.Len())

	log.Info().Msg("hello")
	assert.Contains(t, buf.String(), "hello")
	assert.False(t, json.Valid(bytes.TrimSpace(buf.Bytes())))
}
