//go:build !windows

package privilege

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"
)

// NeedsRoot returns true if the current process is not running as root.
func NeedsRoot() bool {
	return os.Geteuid() != 0
}

// Escalate replaces the process with `sudo <binary> <args>`, keeping the
// listed environment variables. It only returns on failure.
func Escalate(reason string, preserve []string, out io.Writer) error {
	sudoPath, err := exec.LookPath("sudo")
	if err != nil {
		return fmt.Errorf("sudo not found in PATH: %w", err)
	}
	executable, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}

	fmt.Fprintf(out, "Root privileges required to %s.\n", reason)
	fmt.Fprintln(out, "Requesting sudo access...")
	fmt.Fprintln(out)

	return syscall.Exec(sudoPath, sudoArgs(executable, os.Args, preserve), os.Environ())
}
