package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.WarnLevel, parseLevel("production", "WARN"))
	assert.Equal(t, zerolog.InfoLevel, parseLevel("production", ""))
	assert.Equal(t, zerolog.InfoLevel, parseLevel("production", "loud"))
	assert.Equal(t, zerolog.DebugLevel, parseLevel("development", ""))
}

func TestBuildWritesJSONWithServiceField(t *testing.T) {
	var buf bytes.Buffer
	log := build(&buf, "production", "info")

	log.Debug().Msg("hidden")
	log.Info().Str("kode_pengaduan", "ADU-202404-0001").Msg("complaint submitted")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "sipelan", line["service"])
	assert.Equal(t, "ADU-202404-0001", line["kode_pengaduan"])
	assert.NotContains(t, buf.String(), "hidden")
}
