package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/Nomadcxx/cinesync/internal/paths"
)

// ErrConfigurationInvalid marks configuration problems that prevent startup.
var ErrConfigurationInvalid = errors.New("configuration invalid")

// ValidationError lists every problem found in a configuration.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrConfigurationInvalid, strings.Join(e.Problems, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrConfigurationInvalid
}

// Validate ensures the configuration is usable. Directories must exist;
// watch directories must be readable and target directories writable.
func (c *Config) Validate() error {
	var problems []string
	add := func(format string, args ...interface{}) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	libs := c.Libraries()
	if len(libs) == 0 {
		add("no library configured: set MOVIES_WATCH_DIRECTORY/MOVIES_TARGET_DIRECTORY or SERIES_WATCH_DIRECTORY/SERIES_TARGET_DIRECTORY")
	}

	for _, lib := range libs {
		if lib.Watch == "" {
			add("%s.watch_directory must be set when %s.target_directory is set", lib.Name, lib.Name)
		} else if err := checkDir(lib.Watch, checkReadable); err != nil {
			add("%s.watch_directory %s: %v", lib.Name, lib.Watch, err)
		}

		if lib.Target == "" {
			add("%s.target_directory must be set when %s.watch_directory is set", lib.Name, lib.Name)
		} else if err := checkDir(lib.Target, checkWritable); err != nil {
			add("%s.target_directory %s: %v", lib.Name, lib.Target, err)
		}

		if lib.Watch != "" && lib.Target != "" && paths.Overlaps(lib.Watch, lib.Target) {
			add("%s: watch and target directories must not contain each other", lib.Name)
		}
	}

	if strings.TrimSpace(c.WorkingDirectory) == "" {
		add("working_directory must be set")
	}

	if c.Daemon.DebounceSeconds < 0 {
		add("daemon.debounce_seconds must not be negative")
	}
	if c.Daemon.QueueSize <= 0 {
		add("daemon.queue_size must be positive")
	}
	if c.TMDb.MaxAttempts < 1 {
		add("tmdb.max_attempts must be at least 1")
	}
	if c.TMDb.RequestsPer10s < 1 {
		add("tmdb.requests_per_10s must be at least 1")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		add("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}

	if raw := strings.TrimSpace(c.Notify.JellyfinURL); raw != "" {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			add("notify.jellyfin_url %q is not an http(s) URL", raw)
		} else if strings.TrimSpace(c.Notify.JellyfinAPIKey) == "" {
			add("notify.jellyfin_api_key must be set when notify.jellyfin_url is set")
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

func checkDir(path string, access func(string) error) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.New("does not exist")
		}
		return fmt.Errorf("stat: %w", err)
	}
	if !info.IsDir() {
		return errors.New("is not a directory")
	}
	if err := access(path); err != nil {
		return fmt.Errorf("insufficient permissions: %w", err)
	}
	return nil
}

// EnsureWorkingDirectory creates the working directory and its logs
// folder.
func (c *Config) EnsureWorkingDirectory() error {
	if err := os.MkdirAll(c.WorkingDirectory, 0755); err != nil {
		return fmt.Errorf("%w: creating working directory: %v", ErrConfigurationInvalid, err)
	}
	return nil
}
