package ui

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRenderTable(t *testing.T) {
	DisableColors()

	out := RenderTable(
		[]string{"Status", "Count"},
		[][]string{{"created", "9"}, {"skipped"}},
		[]Alignment{AlignLeft, AlignRight},
	)

	assert.Contains(t, out, "Status")
	assert.NotContains(t, out, "STATUS", "headers keep their case")
	assert.Contains(t, out, "created")
	assert.Contains(t, out, "skipped")
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 6)

	assert.Empty(t, RenderTable(nil, nil, nil))
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"/watch/movies/Heat.1995.mkv", 12, "....1995.mkv"},
		{"abcdef", 3, "def"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Truncate(tt.in, tt.max))
	}
}

func TestProgressBar_NonTerminal(t *testing.T) {
	var buf bytes.Buffer
	bar := NewProgressBar(3, "Linking")
	bar.SetWriter(&buf)

	bar.Update(1)
	bar.Update(2)
	assert.Empty(t, buf.String())

	bar.Update(5)
	assert.Equal(t, "Linking: 3/3 (100.0%)\n", buf.String())
}

func TestAgo(t *testing.T) {
	assert.Equal(t, "never", Ago(time.Time{}))
	assert.Contains(t, Ago(time.Now().Add(-3*time.Minute)), "minutes ago")
}

func TestStatus_Plain(t *testing.T) {
	DisableColors()
	assert.Equal(t, "failed", Status("failed"))
	assert.Equal(t, "movie", Kind("movie"))
	assert.Equal(t, "12,345", Count(12345))
}
