//go:build !windows

package config

import (
	"path/filepath"

	"github.com/Nomadcxx/cinesync/internal/paths"
)

type defaults struct {
	moviesWatch, moviesTarget string
	seriesWatch, seriesTarget string
	workingDir                string
}

func platformDefaults() defaults {
	home, err := paths.UserHomeDir()
	if err != nil {
		home = "."
	}
	workingDir, err := paths.AppDir()
	if err != nil {
		workingDir = filepath.Join(home, ".config", "cinesync")
	}
	return defaults{
		moviesWatch:  filepath.Join(home, "media", "downloads", "movies"),
		moviesTarget: filepath.Join(home, "media", "library", "movies"),
		seriesWatch:  filepath.Join(home, "media", "downloads", "series"),
		seriesTarget: filepath.Join(home, "media", "library", "series"),
		workingDir:   workingDir,
	}
}
