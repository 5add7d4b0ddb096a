//go:build windows

package service

import (
	"context"
	"fmt"

	"golang.org/x/sys/windows/svc"
)

// RunWatcher runs watch under the service control manager when the process
// was started by it, and in the foreground otherwise.
func RunWatcher(ctx context.Context, watch func(context.Context) error) error {
	isService, err := svc.IsWindowsService()
	if err != nil {
		return fmt.Errorf("detect service session: %w", err)
	}
	if !isService {
		return watch(ctx)
	}

	h := &handler{ctx: ctx, watch: watch}
	if err := svc.Run(WindowsName, h); err != nil {
		return fmt.Errorf("service %s: %w", WindowsName, err)
	}
	return h.err
}

// handler reports Running once watch has started and cancels it on Stop or
// Shutdown.
type handler struct {
	ctx   context.Context
	watch func(context.Context) error
	err   error
}

func (h *handler) Execute(args []string, requests <-chan svc.ChangeRequest, status chan<- svc.Status) (bool, uint32) {
	const accepted = svc.AcceptStop | svc.AcceptShutdown
	status <- svc.Status{State: svc.StartPending}

	ctx, cancel := context.WithCancel(h.ctx)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- h.watch(ctx) }()

	status <- svc.Status{State: svc.Running, Accepts: accepted}
	for {
		select {
		case err := <-done:
			h.err = err
			status <- svc.Status{State: svc.StopPending}
			if err != nil {
				return true, 1
			}
			return false, 0
		case req := <-requests:
			switch req.Cmd {
			case svc.Interrogate:
				status <- req.CurrentStatus
			case svc.Stop, svc.Shutdown:
				status <- svc.Status{State: svc.StopPending}
				cancel()
				h.err = <-done
				return false, 0
			}
		}
	}
}
