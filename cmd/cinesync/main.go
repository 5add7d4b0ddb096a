package main

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Nomadcxx/cinesync/internal/app"
	"github.com/Nomadcxx/cinesync/internal/config"
	"github.com/Nomadcxx/cinesync/internal/ui"
)

//go:embed assets/banner.txt
var banner string

var (
	version = "dev" // Set by build flags: -ldflags="-X main.version=1.0.0"
	cfgFile string
	dryRun  bool
	verbose bool

	watchFlag   bool
	setupFlag   bool
	serviceFlag bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if errors.Is(err, config.ErrConfigurationInvalid) {
			fmt.Fprintln(os.Stderr, "Run 'cinesync setup' to create a configuration, or fix the values above.")
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "cinesync",
		Short: "Organize downloaded movies and series into a symlinked library",
		Long: `CineSync watches download directories and builds a media-server friendly
library of symbolic links next to them. Source files are never moved.

  Movies:  Title (Year) {imdb-tt...}/Title (Year).ext
  Series:  Title (Year) {imdb-tt...}/Season NN/Title - SxxEyy - Episode.ext

Without a subcommand a one-shot run links everything currently in the
watch directories and removes links whose source is gone.`,
		Version:       version,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case setupFlag:
				return runSetup(cmd, false)
			case serviceFlag:
				return runServiceInstall(cmd, args)
			case watchFlag:
				return runWatch(cmd, args)
			}
			return runOnce(cmd, args)
		},
	}

	originalHelpFunc := rootCmd.HelpFunc()
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		if cmd.Name() == "cinesync" {
			printHeader(version)
		}
		originalHelpFunc(cmd, args)
	})

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: <working dir>/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&dryRun, "dry-run", "n", false, "report what would be linked without touching the target directories")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.Flags().BoolVar(&watchFlag, "watch", false, "same as 'cinesync watch'")
	rootCmd.Flags().BoolVar(&setupFlag, "setup", false, "same as 'cinesync setup'")
	rootCmd.Flags().BoolVar(&serviceFlag, "service", false, "same as 'cinesync service install'")
	rootCmd.MarkFlagsMutuallyExclusive("watch", "setup", "service")

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newWatchCmd())
	rootCmd.AddCommand(newSetupCmd())
	rootCmd.AddCommand(newServiceCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newCleanCmd())

	return rootCmd
}

// options carries the global flags into the app bootstrap.
func options() app.Options {
	return app.Options{
		ConfigFile: cfgFile,
		DryRun:     dryRun,
		Verbose:    verbose,
	}
}

// printHeader displays the ASCII banner with version info
func printHeader(version string) {
	fmt.Println(ui.Title(banner))
	fmt.Printf("Version: %s\n\n", version)
}
