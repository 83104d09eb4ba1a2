package logging

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"ERROR", slog.LevelError},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, parseLevel(tt.in), "level %q", tt.in)
	}
}

func TestNewFormats(t *testing.T) {
	for _, format := range []string{"text", "json", "pretty", ""} {
		logger := New(Config{Level: "info", Format: format})
		require.NotNil(t, logger, "format %q", format)
	}
}

func TestWithFields(t *testing.T) {
	logger := New(Config{Level: "error", Format: "text"})
	child := logger.WithFields(map[string]any{"conn_id": "c1"})

	require.NotNil(t, child)
	assert.NotSame(t, logger, child)
}
