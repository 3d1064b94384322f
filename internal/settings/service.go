package settings

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/kanbanflow/herald/internal/domain"
)

// Service is the read path used by the delivery pipeline and the write path
// used by the settings UI. It keeps an in-memory copy of the current user's
// preferences so that the queue controller's gating lookups never block on
// storage; writes go through to the Store and update the copy.
type Service struct {
	store  Store
	userID string
	logger *slog.Logger

	// writeMu serializes writers; mu only ever guards the snapshot swap, so
	// Enabled never waits on storage I/O.
	writeMu sync.Mutex
	mu      sync.RWMutex
	prefs   Preferences
}

// NewService loads the user's preferences and returns a ready Service.
func NewService(ctx context.Context, store Store, userID string, logger *slog.Logger) (*Service, error) {
	if store == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("store cannot be nil for settings Service")
	}
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for settings Service")
	}

	prefs, err := store.Load(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load notification preferences: %w", err)
	}

	return &Service{
		store:  store,
		userID: userID,
		logger: logger.With(slog.String("component", "settings_service")),
		prefs:  prefs,
	}, nil
}

// Enabled reports whether the category is enabled for the current user.
// Absent categories are enabled. Never blocks.
func (s *Service) Enabled(category domain.Category) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prefs.Enabled(category)
}

// Preferences returns a copy of the current preferences with every known
// category materialized, for rendering the settings UI.
func (s *Service) Preferences() Preferences {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(Preferences, len(domain.Categories))
	for _, category := range domain.Categories {
		out[category] = s.prefs.Enabled(category)
	}
	return out
}

// Update applies the given category toggles, persists the result, and
// refreshes the in-memory copy. Unknown categories are ignored. This is the
// settings UI's write path; the pipeline itself never writes.
func (s *Service) Update(ctx context.Context, updates map[domain.Category]bool) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.RLock()
	next := s.prefs.Clone()
	s.mu.RUnlock()

	for category, enabled := range updates {
		if !category.Valid() {
			s.logger.Debug("ignoring unknown preference category",
				slog.String("category", string(category)))
			continue
		}
		next[category] = enabled
	}

	// The save happens outside mu: a slow store must not stall the
	// pipeline's gating lookups.
	if err := s.store.Save(ctx, s.userID, next); err != nil {
		return fmt.Errorf("failed to save notification preferences: %w", err)
	}

	s.mu.Lock()
	s.prefs = next
	s.mu.Unlock()
	return nil
}
