package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/Nomadcxx/cinesync/internal/app"
	"github.com/Nomadcxx/cinesync/internal/config"
	"github.com/Nomadcxx/cinesync/internal/logging"
	"github.com/Nomadcxx/cinesync/internal/paths"
	"github.com/Nomadcxx/cinesync/internal/privilege"
	"github.com/Nomadcxx/cinesync/internal/service"
	"github.com/Nomadcxx/cinesync/internal/ui"
)

func newServiceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Register the watcher to start at boot",
		Long: `Manage the boot-time service that runs 'cinesync --watch'.

Linux:    /etc/systemd/system/cinesync.service, enabled and started with systemctl
Windows:  service "CineSync", created with sc (start= auto)

Registration needs root (Linux, re-run through sudo automatically) or an
elevated prompt (Windows).`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "install",
		Short: "Install and start the service",
		Args:  cobra.NoArgs,
		RunE:  runServiceInstall,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "uninstall",
		Short: "Stop and remove the service",
		Args:  cobra.NoArgs,
		RunE:  runServiceUninstall,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show whether the service is installed and running",
		Args:  cobra.NoArgs,
		RunE:  runServiceStatus,
	})

	return cmd
}

// serviceManager builds the platform manager for the validated config.
func serviceManager() (*service.Manager, *config.Config, error) {
	cfg, err := app.LoadConfig(options())
	if err != nil {
		return nil, nil, err
	}

	executable, err := os.Executable()
	if err != nil {
		return nil, nil, fmt.Errorf("resolve executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(executable); err == nil {
		executable = resolved
	}

	opts := []func(*service.Manager){
		service.WithConfigFile(cfg.File),
	}
	if runtime.GOOS == "linux" {
		// The unit runs as the invoking user so their paths and
		// permissions apply, not root's.
		opts = append(opts, service.WithUser(paths.ActualUser()))
	}
	if verbose {
		opts = append(opts, service.WithLogger(logging.NewWriter(os.Stderr, logging.LevelDebug)))
	}
	return service.New(executable, cfg.WorkingDirectory, opts...), cfg, nil
}

// elevate re-runs the command with administrator rights when needed. It
// returns nil only when the current process already has them.
func elevate(reason string) error {
	if !privilege.NeedsRoot() {
		return nil
	}
	return privilege.Escalate(reason, config.EnvVars(), os.Stdout)
}

func runServiceInstall(cmd *cobra.Command, args []string) error {
	if dryRun {
		m, _, err := serviceManager()
		if err != nil {
			return err
		}
		return previewService(m)
	}
	if err := elevate("register the cinesync service"); err != nil {
		return err
	}

	m, cfg, err := serviceManager()
	if err != nil {
		return err
	}
	if err := m.Install(); err != nil {
		if errors.Is(err, service.ErrUnsupportedPlatform) {
			return fmt.Errorf("%w; run 'cinesync watch' from your own startup mechanism", err)
		}
		return err
	}

	ui.SuccessMsg("Service installed and started")
	fmt.Printf("  Working directory: %s\n", ui.Path(cfg.WorkingDirectory))
	if runtime.GOOS == "linux" {
		fmt.Printf("  Unit: %s\n", ui.Path(m.UnitPath()))
		fmt.Println(ui.Dim("  Logs: journalctl -u " + service.UnitName + " -f"))
	}
	return nil
}

func previewService(m *service.Manager) error {
	ui.InfoMsg("Dry run: the service would be registered as follows.")
	if runtime.GOOS != "linux" {
		fmt.Printf("  sc create %s ... start= auto\n", service.WindowsName)
		return nil
	}
	unit, err := m.Unit()
	if err != nil {
		return err
	}
	fmt.Printf("\n# %s\n%s", m.UnitPath(), unit)
	return nil
}

func runServiceUninstall(cmd *cobra.Command, args []string) error {
	if err := elevate("remove the cinesync service"); err != nil {
		return err
	}
	m, _, err := serviceManager()
	if err != nil {
		return err
	}
	if err := m.Uninstall(); err != nil {
		return err
	}
	ui.SuccessMsg("Service removed")
	return nil
}

func runServiceStatus(cmd *cobra.Command, args []string) error {
	m, _, err := serviceManager()
	if err != nil {
		return err
	}
	status, err := m.Status()
	if err != nil {
		return err
	}
	if !status.Installed {
		ui.InfoMsg("Service not installed. Run 'cinesync service install'.")
		return nil
	}
	switch status.State {
	case "active", "running":
		ui.SuccessMsg("Service %s", status.State)
	default:
		ui.WarningMsg("Service %s", status.State)
	}
	return nil
}
