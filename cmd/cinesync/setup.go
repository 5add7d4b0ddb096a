package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Nomadcxx/cinesync/internal/config"
	"github.com/Nomadcxx/cinesync/internal/ui"
	"github.com/Nomadcxx/cinesync/internal/wizard"
)

func newSetupCmd() *cobra.Command {
	var nonInteractive bool

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Interactive first-run configuration",
		Long: `Ask for the watch and target directories, the working directory and an
optional TMDb API key, then save config.toml in the working directory.
The form starts from the current configuration, so it can be re-run to
change values. At the end it offers to link everything already present.

Examples:
  cinesync setup
  cinesync setup --non-interactive   # save the current environment as config.toml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSetup(cmd, nonInteractive)
		},
	}

	cmd.Flags().BoolVar(&nonInteractive, "non-interactive", false, "save the current values without prompting")

	return cmd
}

func runSetup(cmd *cobra.Command, nonInteractive bool) error {
	// Load without validating: the point of setup is to fix what is missing.
	cfg, err := config.Load(cfgFile)
	if err != nil {
		cfg = config.DefaultConfig()
	}

	answers := wizard.FromConfig(cfg)
	if !nonInteractive {
		answers, err = wizard.Run(answers, banner)
		if errors.Is(err, wizard.ErrAborted) {
			ui.InfoMsg("Setup cancelled, nothing saved.")
			return nil
		}
		if err != nil {
			return err
		}
	} else if problems := answers.Problems(); len(problems) > 0 {
		return fmt.Errorf("%w: %v", config.ErrConfigurationInvalid, problems)
	}

	if err := answers.Apply(cfg); err != nil {
		return err
	}

	path := cfg.File
	if path == "" {
		path = cfg.DefaultPath()
	}
	if err := cfg.Save(path); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	ui.SuccessMsg("Configuration saved to %s", ui.Path(path))

	if err := cfg.Validate(); err != nil {
		ui.WarningMsg("%v", err)
		ui.InfoMsg("Create the missing directories, then run 'cinesync run'.")
		return nil
	}

	if !answers.RunFirstScan {
		ui.InfoMsg("Run 'cinesync run' to link existing files, or 'cinesync watch' to start watching.")
		return nil
	}

	if dryRun {
		cfg.Options.DryRun = true
	}
	if err := cfg.EnsureWorkingDirectory(); err != nil {
		return err
	}
	summary, err := linkAll(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	printSummary(summary)
	return nil
}
