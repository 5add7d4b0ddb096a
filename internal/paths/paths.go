// Package paths resolves CineSync's own files and answers containment
// questions about library paths.
//
// When running with sudo, the user directories resolve to the original
// user's home (via SUDO_USER) instead of root's.
package paths

import (
	"os"
	"os/user"
	"path/filepath"
	"strings"
)

// UserHomeDir returns the home directory of the actual user.
// If running with sudo, returns the SUDO_USER's home directory, not root's.
func UserHomeDir() (string, error) {
	if sudoUser := os.Getenv("SUDO_USER"); sudoUser != "" && sudoUser != "root" {
		u, err := user.Lookup(sudoUser)
		if err == nil {
			return u.HomeDir, nil
		}
	}
	return os.UserHomeDir()
}

// AppDir returns ~/.config/cinesync for the actual user.
func AppDir() (string, error) {
	homeDir, err := UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", "cinesync"), nil
}

// ConfigPath returns the default config file location.
func ConfigPath() (string, error) {
	dir, err := AppDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// DatabasePath returns the link registry location inside workDir. An
// empty workDir falls back to the app directory.
func DatabasePath(workDir string) (string, error) {
	if workDir == "" {
		dir, err := AppDir()
		if err != nil {
			return "", err
		}
		workDir = dir
	}
	return filepath.Join(workDir, "cinesync.db"), nil
}

// LogPath returns the log file location inside workDir.
func LogPath(workDir string) (string, error) {
	if workDir == "" {
		dir, err := AppDir()
		if err != nil {
			return "", err
		}
		workDir = dir
	}
	return filepath.Join(workDir, "logs", "cinesync.log"), nil
}

// ActualUser returns the actual username (not root when using sudo).
func ActualUser() string {
	if sudoUser := os.Getenv("SUDO_USER"); sudoUser != "" && sudoUser != "root" {
		return sudoUser
	}
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return "unknown"
}

// Expand resolves a leading "~" and returns an absolute, cleaned path.
func Expand(p string) (string, error) {
	if p == "" {
		return "", nil
	}
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := UserHomeDir()
		if err != nil {
			return "", err
		}
		p = filepath.Join(home, strings.TrimPrefix(p, "~"))
	}
	return filepath.Abs(p)
}

// Within reports whether path is root itself or lies underneath it.
// Both paths are compared after cleaning; symlinks are not resolved.
func Within(root, path string) bool {
	if root == "" || path == "" {
		return false
	}
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// Overlaps reports whether either path contains the other.
func Overlaps(a, b string) bool {
	return Within(a, b) || Within(b, a)
}
