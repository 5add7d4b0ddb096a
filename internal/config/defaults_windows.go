//go:build windows

package config

import (
	"os"
	"path/filepath"
)

type defaults struct {
	moviesWatch, moviesTarget string
	seriesWatch, seriesTarget string
	workingDir                string
}

func platformDefaults() defaults {
	workingDir := `C:\cinesync`
	if dir, err := os.UserConfigDir(); err == nil {
		workingDir = filepath.Join(dir, "cinesync")
	}
	return defaults{
		moviesWatch:  `E:\movies`,
		moviesTarget: `C:\library\movies`,
		seriesWatch:  `E:\shows`,
		seriesTarget: `C:\library\series`,
		workingDir:   workingDir,
	}
}
