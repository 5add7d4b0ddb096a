package logging

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_LineFormat(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriter(&buf, LevelDebug)

	log.Info("linker", "created link", F("path", "/lib/a.mkv"), F("source", "/src/a.mkv"))

	line := buf.String()
	assert.Contains(t, line, " [INFO] [linker] created link")
	assert.True(t, strings.HasSuffix(line, "| path=/lib/a.mkv | source=/src/a.mkv\n"), line)
}

func TestLogger_ErrorIncludesCause(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriter(&buf, LevelInfo)

	log.Error("resolver", "lookup failed", errors.New("timeout"), F("title", "Heat"))

	assert.Contains(t, buf.String(), "[ERROR] [resolver] lookup failed | error=timeout | title=Heat")
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriter(&buf, LevelWarn)

	log.Debug("x", "debug")
	log.Info("x", "info")
	assert.Empty(t, buf.String())

	log.Warn("x", "warn")
	assert.Contains(t, buf.String(), "[WARN] [x] warn")

	buf.Reset()
	log.SetLevel(LevelDebug)
	log.Debug("x", "now visible")
	assert.Contains(t, buf.String(), "[DEBUG] [x] now visible")
}

func TestNop(t *testing.T) {
	log := Nop()
	log.Error("x", "dropped", errors.New("boom"))
	assert.NoError(t, log.Close())
	assert.Empty(t, log.FilePath())
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"bogus", LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in), tt.in)
	}
}

func TestNew_WritesToFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "logs", "cinesync.log")

	log, err := New(Config{Level: "info", File: path})
	require.NoError(t, err)

	log.Info("scanner", "scan complete", F("files", 3))
	require.NoError(t, log.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[scanner] scan complete | files=3")
	assert.Equal(t, path, log.FilePath())
}

func TestRotatingWriter_Rotates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")

	w, err := newRotatingWriter(path, 16, 2)
	require.NoError(t, err)
	defer w.Close()

	for i := 0; i < 4; i++ {
		_, err := w.Write([]byte("0123456789abcdef"))
		require.NoError(t, err)
	}

	assert.FileExists(t, path)
	assert.FileExists(t, filepath.Join(dir, "app.1.log"))
	assert.FileExists(t, filepath.Join(dir, "app.2.log"))
	assert.NoFileExists(t, filepath.Join(dir, "app.3.log"))
}

func TestFindBackups(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"app.log", "app.1.log", "app.3.log", "app.x.log", "other.1.log"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0644))
	}

	backups, err := findBackups(dir, "app", ".log")
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{1, 3}, backups)
}
