// Package settings manages the per-user notification preferences: which
// categories of notification the user wants delivered.
package settings

import (
	"context"
	"maps"
	"sync"

	"github.com/kanbanflow/herald/internal/domain"
)

// Preferences maps a notification category to whether it is enabled.
// A category absent from the map is enabled; only an explicit false
// disables delivery.
type Preferences map[domain.Category]bool

// Enabled reports whether the given category should be delivered.
func (p Preferences) Enabled(category domain.Category) bool {
	enabled, ok := p[category]
	if !ok {
		return true
	}
	return enabled
}

// Clone returns an independent copy of the preferences.
func (p Preferences) Clone() Preferences {
	out := make(Preferences, len(p))
	maps.Copy(out, p)
	return out
}

// Store persists per-user preferences. Implementations: the Postgres store
// in internal/platform/postgres and the in-memory store below.
type Store interface {
	// Load returns the stored preferences for the user. A user with no
	// stored preferences gets an empty map, meaning everything enabled.
	Load(ctx context.Context, userID string) (Preferences, error)

	// Save replaces the stored preferences for the user.
	Save(ctx context.Context, userID string, prefs Preferences) error
}

// Memory is an in-memory Store. It backs tests and the no-database
// (per-device) mode, where preferences do not survive a restart.
type Memory struct {
	mu    sync.RWMutex
	prefs map[string]Preferences
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{prefs: make(map[string]Preferences)}
}

// Load returns the stored preferences for the user.
func (m *Memory) Load(_ context.Context, userID string) (Preferences, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if stored, ok := m.prefs[userID]; ok {
		return stored.Clone(), nil
	}
	return Preferences{}, nil
}

// Save replaces the stored preferences for the user.
func (m *Memory) Save(_ context.Context, userID string, prefs Preferences) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.prefs[userID] = prefs.Clone()
	return nil
}
