// Package surface abstracts the platform notification surface: the thing
// that actually renders notifications to the user. The real surface is an
// external collaborator; this package defines the contract the pipeline
// programs against and an in-memory implementation that honors the
// platform's tag-replace semantics for tests and local runs.
package surface

import (
	"context"
	"sync"

	"github.com/kanbanflow/herald/internal/domain"
)

// Surface displays notifications. Both delivery paths (foreground and
// background worker) end at a Surface, which is why tag-replace is the only
// cross-path consistency mechanism the pipeline relies on.
type Surface interface {
	// Display shows the notification. A notification sharing a tag with a
	// currently visible one replaces it rather than stacking beside it.
	Display(ctx context.Context, n domain.Notification) error

	// Close removes the visible notification with the given tag, if any.
	Close(tag string)

	// Supported reports whether the platform can display notifications at
	// all. When false the permission manager reports unsupported and the
	// dispatcher short-circuits.
	Supported() bool
}

// Memory is an in-memory Surface. Visible notifications are keyed by tag,
// and every display call is recorded in order for assertions.
type Memory struct {
	mu        sync.Mutex
	visible   map[string]domain.Notification
	displayed []domain.Notification
}

// NewMemory creates an empty in-memory surface.
func NewMemory() *Memory {
	return &Memory{visible: make(map[string]domain.Notification)}
}

// Display shows the notification, replacing any visible one with the same tag.
func (m *Memory) Display(_ context.Context, n domain.Notification) error {
	if err := n.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.visible[n.Tag] = n
	m.displayed = append(m.displayed, n)
	return nil
}

// Close removes the visible notification with the given tag.
func (m *Memory) Close(tag string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.visible, tag)
}

// Supported always reports true for the in-memory surface.
func (m *Memory) Supported() bool { return true }

// Visible returns the currently visible notification for a tag.
func (m *Memory) Visible(tag string) (domain.Notification, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.visible[tag]
	return n, ok
}

// VisibleCount returns how many notifications are visible right now.
func (m *Memory) VisibleCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.visible)
}

// Displayed returns every display call made so far, in order.
func (m *Memory) Displayed() []domain.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Notification, len(m.displayed))
	copy(out, m.displayed)
	return out
}
