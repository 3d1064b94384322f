// Package dispatch renders a single notification request, choosing between
// the direct foreground path and the background-worker-mediated path.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kanbanflow/herald/internal/domain"
	"github.com/kanbanflow/herald/internal/platform/logger"
	"github.com/kanbanflow/herald/internal/platform/surface"
)

// ErrNotGranted is returned when notification permission is anything other
// than granted. No display is attempted; the caller logs and moves on.
var ErrNotGranted = errors.New("notification permission not granted")

// StatusReader reports the platform's current authorization state. The
// permission manager satisfies this.
type StatusReader interface {
	Status() domain.PermissionState
}

// WorkerClient is the dispatcher's view of the background worker. A
// worker-displayed notification keeps working after every window closes,
// which is why the worker path is preferred when available.
type WorkerClient interface {
	// Active reports whether the worker is running and controlling the
	// current windows.
	Active() bool

	// Show asks the worker to display the notification.
	Show(ctx context.Context, n domain.Notification) error
}

// Dispatcher decides the delivery path for each show call.
type Dispatcher struct {
	status     StatusReader
	foreground surface.Surface
	worker     WorkerClient
	logger     *slog.Logger
}

// New creates a Dispatcher. worker may be nil, in which case every display
// goes through the foreground surface.
func New(status StatusReader, foreground surface.Surface, worker WorkerClient, log *slog.Logger) *Dispatcher {
	if status == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("status reader cannot be nil for Dispatcher")
	}
	if foreground == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("foreground surface cannot be nil for Dispatcher")
	}
	if log == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for Dispatcher")
	}

	return &Dispatcher{
		status:     status,
		foreground: foreground,
		worker:     worker,
		logger:     log.With(slog.String("component", "dispatcher")),
	}
}

// Show displays the notification, or returns an error when it cannot.
//
// The permission gate comes first: anything other than granted is an
// immediate failure with no display attempt. When the worker is active the
// display is delegated to it so the notification outlives the windows; a
// worker-path error (not ready, activation race) falls back to the
// foreground surface rather than failing outright, so delivery is never
// blocked on worker readiness.
func (d *Dispatcher) Show(ctx context.Context, n domain.Notification) error {
	log := logger.FromContextOrDefault(ctx, d.logger)

	if state := d.status.Status(); state != domain.PermissionGranted {
		log.Debug("dispatch refused by permission gate",
			slog.String("state", string(state)),
			slog.String("tag", n.Tag))
		return fmt.Errorf("%w: state is %s", ErrNotGranted, state)
	}

	if d.worker != nil && d.worker.Active() {
		err := d.worker.Show(ctx, n)
		if err == nil {
			return nil
		}
		log.Warn("worker display failed, falling back to foreground",
			slog.String("tag", n.Tag),
			slog.Any("error", err))
	}

	if err := d.foreground.Display(ctx, n); err != nil {
		return fmt.Errorf("failed to display notification: %w", err)
	}
	return nil
}
