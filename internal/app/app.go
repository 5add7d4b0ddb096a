// Package app wires the configured components together. It is shared by
// every command, one-shot and watch mode alike.
package app

import (
	"errors"
	"fmt"

	"github.com/Nomadcxx/cinesync/internal/config"
	"github.com/Nomadcxx/cinesync/internal/database"
	"github.com/Nomadcxx/cinesync/internal/linker"
	"github.com/Nomadcxx/cinesync/internal/logging"
	"github.com/Nomadcxx/cinesync/internal/metadata"
	"github.com/Nomadcxx/cinesync/internal/notify"
	"github.com/Nomadcxx/cinesync/internal/pipeline"
	"github.com/Nomadcxx/cinesync/internal/scanner"
)

// Options are the command-line overrides applied on top of the config.
type Options struct {
	ConfigFile string
	DryRun     bool
	Verbose    bool
	// Progress, when set, is called after every processed candidate.
	Progress func(done, total int, o pipeline.Outcome)
}

// App holds the components built from one configuration
type App struct {
	Config   *config.Config
	Logger   *logging.Logger
	Registry *database.Registry
	Resolver metadata.Resolver
	Links    *linker.Manager
	Notifier *notify.Manager
	Pipeline *pipeline.Pipeline
	Scanner  *scanner.Scanner
}

// LoadConfig loads the configuration, applies opts and validates the
// result. Validation failures wrap config.ErrConfigurationInvalid.
func LoadConfig(opts Options) (*config.Config, error) {
	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		return nil, err
	}
	if opts.DryRun {
		cfg.Options.DryRun = true
	}
	if opts.Verbose {
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.EnsureWorkingDirectory(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// New builds every component for cfg. The caller owns the result and must
// Close it.
func New(cfg *config.Config, opts Options) (*App, error) {
	logger, err := logging.New(logging.Config{
		Level:      cfg.Logging.Level,
		File:       cfg.LogFile(),
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
	})
	if err != nil {
		return nil, fmt.Errorf("unable to create logger: %w", err)
	}

	registry, err := database.OpenPath(cfg.DatabasePath())
	if err != nil {
		logger.Close()
		return nil, fmt.Errorf("failed to open link registry: %w", err)
	}

	resolver, err := metadata.New(cfg.TMDb, logger)
	if err != nil {
		registry.Close()
		logger.Close()
		return nil, fmt.Errorf("failed to create metadata resolver: %w", err)
	}

	libraries := cfg.Libraries()
	links := linker.NewManager(
		linker.WithDryRun(cfg.Options.DryRun),
		linker.WithLogger(logger),
	)

	notifier := notify.FromConfig(cfg.Notify, logger)

	pipelineOptions := []func(*pipeline.Pipeline){pipeline.WithLogger(logger)}
	if notifier.NotifierCount() > 0 {
		pipelineOptions = append(pipelineOptions, pipeline.WithNotifier(notifier))
	}
	if opts.Progress != nil {
		pipelineOptions = append(pipelineOptions, pipeline.WithProgress(opts.Progress))
	}

	a := &App{
		Config:   cfg,
		Logger:   logger,
		Registry: registry,
		Resolver: resolver,
		Links:    links,
		Notifier: notifier,
		Pipeline: pipeline.New(libraries, resolver, links, registry, pipelineOptions...),
		Scanner:  scanner.New(libraries, scanner.WithLogger(logger)),
	}

	logger.Debug("app", "components ready",
		logging.F("libraries", len(libraries)),
		logging.F("notifiers", notifier.NotifierCount()),
		logging.F("registry", registry.Path()),
		logging.F("dry_run", cfg.Options.DryRun))
	return a, nil
}

// Close releases the registry and the log file.
func (a *App) Close() error {
	return errors.Join(a.Registry.Close(), a.Logger.Close())
}
