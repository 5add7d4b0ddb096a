package paths

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestUserHomeDir_NoSudo(t *testing.T) {
	t.Setenv("SUDO_USER", "")

	got, err := UserHomeDir()
	if err != nil {
		t.Fatalf("UserHomeDir() error = %v", err)
	}

	expected, _ := os.UserHomeDir()
	if got != expected {
		t.Errorf("UserHomeDir() = %q, want %q", got, expected)
	}
}

func TestUserHomeDir_SudoUserRoot(t *testing.T) {
	// SUDO_USER=root should be ignored
	t.Setenv("SUDO_USER", "root")

	got, err := UserHomeDir()
	if err != nil {
		t.Fatalf("UserHomeDir() error = %v", err)
	}

	expected, _ := os.UserHomeDir()
	if got != expected {
		t.Errorf("UserHomeDir() = %q, want %q", got, expected)
	}
}

func TestDatabasePath(t *testing.T) {
	got, err := DatabasePath("/srv/cinesync")
	if err != nil {
		t.Fatalf("DatabasePath() error = %v", err)
	}
	if got != filepath.Join("/srv/cinesync", "cinesync.db") {
		t.Errorf("DatabasePath() = %q", got)
	}

	t.Setenv("SUDO_USER", "")
	got, err = DatabasePath("")
	if err != nil {
		t.Fatalf("DatabasePath(\"\") error = %v", err)
	}
	if !strings.HasSuffix(got, filepath.Join(".config", "cinesync", "cinesync.db")) {
		t.Errorf("DatabasePath(\"\") = %q, want it under the app dir", got)
	}
}

func TestLogPath(t *testing.T) {
	got, err := LogPath("/srv/cinesync")
	if err != nil {
		t.Fatalf("LogPath() error = %v", err)
	}
	if got != filepath.Join("/srv/cinesync", "logs", "cinesync.log") {
		t.Errorf("LogPath() = %q", got)
	}
}

func TestExpand(t *testing.T) {
	t.Setenv("SUDO_USER", "")
	home, _ := os.UserHomeDir()

	got, err := Expand("~/media")
	if err != nil {
		t.Fatalf("Expand error: %v", err)
	}
	if got != filepath.Join(home, "media") {
		t.Errorf("Expand(~/media) = %q, want %q", got, filepath.Join(home, "media"))
	}

	got, _ = Expand("/a/b/../c/")
	if got != "/a/c" {
		t.Errorf("Expand(/a/b/../c/) = %q, want /a/c", got)
	}

	got, _ = Expand("")
	if got != "" {
		t.Errorf("Expand(\"\") = %q, want empty", got)
	}
}

func TestWithin(t *testing.T) {
	tests := []struct {
		root string
		path string
		want bool
	}{
		{"/media/movies", "/media/movies", true},
		{"/media/movies", "/media/movies/Heat (1995)/Heat (1995).mkv", true},
		{"/media/movies", "/media/movies2/file.mkv", false},
		{"/media/movies", "/media", false},
		{"/media/movies", "/media/movies/../tv", false},
		{"/media/movies/", "/media/movies/x", true},
		{"", "/media", false},
		{"/media", "", false},
	}

	for _, tt := range tests {
		if got := Within(tt.root, tt.path); got != tt.want {
			t.Errorf("Within(%q, %q) = %v, want %v", tt.root, tt.path, got, tt.want)
		}
	}
}

func TestOverlaps(t *testing.T) {
	if !Overlaps("/media", "/media/library") {
		t.Error("parent and child should overlap")
	}
	if !Overlaps("/media/library", "/media") {
		t.Error("child and parent should overlap")
	}
	if Overlaps("/media/downloads", "/media/library") {
		t.Error("siblings should not overlap")
	}
}
