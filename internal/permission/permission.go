// Package permission tracks and requests the platform's
// notification-authorization state.
package permission

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kanbanflow/herald/internal/domain"
)

// Authorizer is the platform's authorization facility (external
// collaborator). Status must reflect the platform's current value on every
// call: the user can change the permission outside the application, so
// caching it would go stale.
type Authorizer interface {
	// Status re-reads the platform's current authorization value.
	Status() domain.PermissionState

	// Request triggers the platform's consent prompt and returns the
	// resulting state. The platform will not re-prompt after an explicit
	// denial.
	Request(ctx context.Context) (domain.PermissionState, error)
}

// Presenter displays a notification. The dispatcher satisfies this; the
// indirection exists because the dispatcher also consults the Manager for
// its permission gate.
type Presenter interface {
	Show(ctx context.Context, n domain.Notification) error
}

// Manager mediates between the application and the platform's
// authorization state.
type Manager struct {
	authorizer Authorizer
	presenter  Presenter
	logger     *slog.Logger
}

// NewManager creates a Manager. The presenter is attached later via
// SetPresenter once the dispatcher exists.
func NewManager(authorizer Authorizer, logger *slog.Logger) *Manager {
	if authorizer == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("authorizer cannot be nil for permission Manager")
	}
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for permission Manager")
	}

	return &Manager{
		authorizer: authorizer,
		logger:     logger.With(slog.String("component", "permission_manager")),
	}
}

// SetPresenter attaches the presenter used for the grant confirmation.
func (m *Manager) SetPresenter(p Presenter) {
	m.presenter = p
}

// Status returns the platform's current authorization state. Always a
// fresh read, never cached.
func (m *Manager) Status() domain.PermissionState {
	return m.authorizer.Status()
}

// Request triggers the platform consent prompt. When the state is already
// settled (granted, denied or unsupported) this is a no-op returning the
// current state. On a default → granted transition it immediately shows the
// welcome confirmation so the user gets instant feedback that delivery is
// live; a failure to show it is logged, not returned, because the grant
// itself succeeded.
func (m *Manager) Request(ctx context.Context) (domain.PermissionState, error) {
	current := m.authorizer.Status()
	if current != domain.PermissionDefault {
		m.logger.Debug("permission request is a no-op",
			slog.String("state", string(current)))
		return current, nil
	}

	state, err := m.authorizer.Request(ctx)
	if err != nil {
		return current, fmt.Errorf("failed to request notification permission: %w", err)
	}

	m.logger.Info("permission request resolved", slog.String("state", string(state)))

	if state == domain.PermissionGranted && m.presenter != nil {
		if err := m.presenter.Show(ctx, domain.WelcomeNotification()); err != nil {
			m.logger.Warn("failed to show welcome notification", slog.Any("error", err))
		}
	}

	return state, nil
}
