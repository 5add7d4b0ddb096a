//go:build !windows

package service

import "context"

// RunWatcher runs watch in the foreground; systemd supervises the process
// directly.
func RunWatcher(ctx context.Context, watch func(context.Context) error) error {
	return watch(ctx)
}
