package wizard

import (
	"strings"

	"github.com/Nomadcxx/cinesync/internal/config"
	"github.com/Nomadcxx/cinesync/internal/paths"
)

// Answers are the values captured by the setup form.
type Answers struct {
	MoviesWatch      string
	MoviesTarget     string
	SeriesWatch      string
	SeriesTarget     string
	WorkingDirectory string
	TMDbAPIKey       string

	// RunFirstScan requests a one-shot run once the config is saved.
	RunFirstScan bool
}

// FromConfig pre-fills the form from cfg.
func FromConfig(cfg *config.Config) Answers {
	return Answers{
		MoviesWatch:      cfg.Movies.WatchDirectory,
		MoviesTarget:     cfg.Movies.TargetDirectory,
		SeriesWatch:      cfg.Series.WatchDirectory,
		SeriesTarget:     cfg.Series.TargetDirectory,
		WorkingDirectory: cfg.WorkingDirectory,
		TMDbAPIKey:       cfg.TMDb.APIKey,
	}
}

// Problems lists what keeps the answers from forming a usable config. It
// does not touch the filesystem; Config.Validate does that after saving.
func (a Answers) Problems() []string {
	var problems []string
	movies := pair(a.MoviesWatch, a.MoviesTarget)
	series := pair(a.SeriesWatch, a.SeriesTarget)

	if movies == pairPartial {
		problems = append(problems, "movies needs both a watch and a target directory")
	}
	if series == pairPartial {
		problems = append(problems, "series needs both a watch and a target directory")
	}
	if movies == pairEmpty && series == pairEmpty {
		problems = append(problems, "configure at least one library")
	}
	if strings.TrimSpace(a.WorkingDirectory) == "" {
		problems = append(problems, "working directory is required")
	}
	return problems
}

// Apply copies the answers into cfg with "~" expanded.
func (a Answers) Apply(cfg *config.Config) error {
	targets := []struct {
		value string
		dest  *string
	}{
		{a.MoviesWatch, &cfg.Movies.WatchDirectory},
		{a.MoviesTarget, &cfg.Movies.TargetDirectory},
		{a.SeriesWatch, &cfg.Series.WatchDirectory},
		{a.SeriesTarget, &cfg.Series.TargetDirectory},
		{a.WorkingDirectory, &cfg.WorkingDirectory},
	}
	for _, t := range targets {
		expanded, err := paths.Expand(strings.TrimSpace(t.value))
		if err != nil {
			return err
		}
		*t.dest = expanded
	}
	cfg.TMDb.APIKey = strings.TrimSpace(a.TMDbAPIKey)
	return nil
}

type pairState int

const (
	pairEmpty pairState = iota
	pairPartial
	pairComplete
)

func pair(watch, target string) pairState {
	w, t := strings.TrimSpace(watch) != "", strings.TrimSpace(target) != ""
	switch {
	case w && t:
		return pairComplete
	case w || t:
		return pairPartial
	}
	return pairEmpty
}
