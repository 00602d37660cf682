package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streamlance.app/internal/config"
)

func TestNew(t *testing.T) {
	dir := t.TempDir()
	jsonFile := filepath.Join(dir, "json.log")
	humanFile := filepath.Join(dir, "human.log")

	l, closer, err := New([]config.Log{
		{LogFile: jsonFile, LogFormat: "json", LogLevel: "debug"},
		{LogFile: humanFile, LogFormat: "human", LogLevel: "warning"},
	})
	require.NoError(t, err)
	require.NotNil(t, l)

	l.Debug("fetching feed", "url", "https://example.org/rss.xml")
	l.Warn("feed unchanged")
	require.NoError(t, closer.Close())

	b, err := os.ReadFile(jsonFile)
	require.NoError(t, err)
	lines := bytes.Split(bytes.TrimSpace(b), []byte("\n"))
	require.Len(t, lines, 2)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &rec))
	assert.Equal(t, "DEBUG", rec["level"])
	assert.Equal(t, "https://example.org/rss.xml", rec["url"])
	assert.NotContains(t, rec, "time")

	b, err = os.ReadFile(humanFile)
	require.NoError(t, err)
	assert.Equal(t, "WARN feed unchanged\n", string(b))
}

func TestNew_invalidFile(t *testing.T) {
	_, _, err := New([]config.Log{
		{
			LogFile:   filepath.Join(t.TempDir(), "missing", "x.log"),
			LogFormat: "text",
			LogLevel:  "info",
		},
	})
	require.ErrorContains(t, err, "unable to open log file")
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		level string
		want  string
	}{
		{"debug", "DEBUG"},
		{"info", "INFO"},
		{"warning", "WARN"},
		{"error", "ERROR"},
		{"", "INFO"},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLogLevel(tt.level).String())
		})
	}
}
