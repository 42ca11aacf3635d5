package logging

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"JSON format to stdout", Config{Level: "info", Format: "json", Output: "stdout"}, false},
		{"Console format to stderr", Config{Level: "debug", Format: "console", Output: "stderr"}, false},
		{"Invalid log level defaults to info", Config{Level: "invalid", Format: "json"}, false},
		{"File output", Config{Level: "warn", Output: filepath.Join(t.TempDir(), "run.log")}, false},
		{"Unwritable file", Config{Output: filepath.Join(t.TempDir(), "missing", "run.log")}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.config)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewWithWriter_JSONFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(Config{Level: "debug", Format: "json"}, &buf)
	logger = WithElementID(WithRunID(logger, "run-1"), "abc123")

	logger.Warn().Str("overlay_url", "https://x/o.webp").Msg("overlay is not a png")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "run-1", entry["run_id"])
	assert.Equal(t, "abc123", entry["element_id"])
	assert.Equal(t, "overlay is not a png", entry["message"])
}

func TestNewWithWriter_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(Config{Level: "error", Format: "json"}, &buf)

	logger.Info().Msg("hidden")
	assert.Zero(t, buf.Len())

	logger.Error().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}
