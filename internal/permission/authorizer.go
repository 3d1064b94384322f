package permission

import (
	"context"
	"sync"

	"github.com/kanbanflow/herald/internal/domain"
)

// StateAuthorizer is an Authorizer holding its state in memory. It backs
// tests and local runs, and is the adapter point where a real platform
// binding would slot in. The transition rules match the platform's: only
// default can move, and only through Request.
type StateAuthorizer struct {
	mu      sync.Mutex
	state   domain.PermissionState
	outcome domain.PermissionState
}

// NewStateAuthorizer creates an authorizer in the given initial state whose
// consent prompt resolves to the given outcome.
func NewStateAuthorizer(initial, outcome domain.PermissionState) *StateAuthorizer {
	return &StateAuthorizer{state: initial, outcome: outcome}
}

// Status returns the current state.
func (a *StateAuthorizer) Status() domain.PermissionState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Request resolves the consent prompt. Outside the default state it leaves
// the state untouched, mirroring the platform's refusal to re-prompt.
func (a *StateAuthorizer) Request(_ context.Context) (domain.PermissionState, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state == domain.PermissionDefault {
		a.state = a.outcome
	}
	return a.state, nil
}

// SetState overrides the current state, modeling the user changing the
// platform permission outside the application.
func (a *StateAuthorizer) SetState(state domain.PermissionState) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state = state
}
