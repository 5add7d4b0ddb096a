//go:build windows

package privilege

import (
	"fmt"
	"io"

	"golang.org/x/sys/windows"
)

// NeedsRoot reports whether the process token lacks elevation.
func NeedsRoot() bool {
	return !windows.GetCurrentProcessToken().IsElevated()
}

// Escalate cannot re-launch in place on Windows; the command has to be
// started again from an elevated prompt.
func Escalate(reason string, preserve []string, out io.Writer) error {
	fmt.Fprintf(out, "Administrator rights are required to %s.\n", reason)
	fmt.Fprintln(out, "Re-run this command from an elevated (Run as administrator) prompt.")
	return ErrNotElevated
}
