// Package privilege re-runs the current command with administrator rights
// when service registration needs them.
package privilege

import (
	"errors"
	"strings"
)

// ErrNotElevated is returned where the platform cannot elevate in place.
var ErrNotElevated = errors.New("administrator rights required")

// sudoArgs builds the sudo command line that re-runs argv with the given
// environment variables preserved.
func sudoArgs(executable string, argv []string, preserve []string) []string {
	args := []string{"sudo"}
	if len(preserve) > 0 {
		args = append(args, "--preserve-env="+strings.Join(preserve, ","))
	}
	args = append(args, executable)
	if len(argv) > 1 {
		args = append(args, argv[1:]...)
	}
	return args
}
