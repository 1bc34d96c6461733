package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"", zerolog.InfoLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"verbose", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseLevel(tt.in), tt.in)
	}
}

func TestInit_FileWritesJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "tagbox.log")

	require.NoError(t, Init(Config{Output: path, File: path, Level: "info"}))
	zlog.Info().Msg("session: waiting for token...")
	zlog.Debug().Msg("hidden")
	require.NoError(t, Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := bytes.Split(bytes.TrimSpace(data), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "session: waiting for token...", entry["message"])
	assert.Contains(t, entry, "time")
}

func TestNewLogger_ConsoleNoColor(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(&buf, true, zerolog.InfoLevel, true)
	l.Info().Msg("catalog: 3 playlists")

	assert.Contains(t, buf.String(), "INF catalog: 3 playlists")
	assert.NotContains(t, buf.String(), "\x1b[")
}

func TestShortCaller(t *testing.T) {
	got := shortCaller(0, filepath.Join("src", "internal", "app", "playback", "controller.go"), 42)
	assert.Equal(t, filepath.Join("playback", "controller.go")+":42", got)
}
