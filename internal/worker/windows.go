package worker

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Window is one open application window.
type Window interface {
	// ID identifies the window for logging.
	ID() string

	// Origin is the window's origin (scheme + host + port).
	Origin() string

	// Focus brings the window to the foreground.
	Focus(ctx context.Context) error

	// PostMessage delivers a protocol message to the window.
	PostMessage(ctx context.Context, msg WindowMessage) error
}

// WindowRegistry is the worker's view of the open application windows.
type WindowRegistry interface {
	// List returns every open window.
	List(ctx context.Context) ([]Window, error)

	// Open opens a new window at the given URL and returns it.
	Open(ctx context.Context, url string) (Window, error)

	// ClaimAll puts every open window under this worker's control
	// immediately, without waiting for the window's next navigation.
	ClaimAll(ctx context.Context) error
}

// MemoryWindow is an in-memory Window recording interactions.
type MemoryWindow struct {
	id     string
	origin string
	url    string

	mu       sync.Mutex
	focused  int
	messages []WindowMessage
	claimed  bool
}

// ID identifies the window.
func (w *MemoryWindow) ID() string { return w.id }

// Origin returns the window's origin.
func (w *MemoryWindow) Origin() string { return w.origin }

// URL returns the URL the window was opened at.
func (w *MemoryWindow) URL() string { return w.url }

// Focus records a focus call.
func (w *MemoryWindow) Focus(context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.focused++
	return nil
}

// Focused returns how often the window was focused.
func (w *MemoryWindow) Focused() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.focused
}

// PostMessage records a delivered protocol message.
func (w *MemoryWindow) PostMessage(_ context.Context, msg WindowMessage) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.messages = append(w.messages, msg)
	return nil
}

// Messages returns the protocol messages delivered so far.
func (w *MemoryWindow) Messages() []WindowMessage {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]WindowMessage, len(w.messages))
	copy(out, w.messages)
	return out
}

// Claimed reports whether the worker has taken control of the window.
func (w *MemoryWindow) Claimed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.claimed
}

// MemoryRegistry is an in-memory WindowRegistry.
type MemoryRegistry struct {
	mu      sync.Mutex
	windows []*MemoryWindow
}

// NewMemoryRegistry creates an empty registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{}
}

// Add registers an already-open window at the given URL.
func (r *MemoryRegistry) Add(url string) *MemoryWindow {
	w := &MemoryWindow{
		id:     uuid.NewString(),
		origin: originOf(url),
		url:    url,
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.windows = append(r.windows, w)
	return w
}

// List returns every open window.
func (r *MemoryRegistry) List(context.Context) ([]Window, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Window, len(r.windows))
	for i, w := range r.windows {
		out[i] = w
	}
	return out, nil
}

// Open opens a new window at the given URL.
func (r *MemoryRegistry) Open(_ context.Context, url string) (Window, error) {
	return r.Add(url), nil
}

// ClaimAll marks every open window as controlled.
func (r *MemoryRegistry) ClaimAll(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, w := range r.windows {
		w.mu.Lock()
		w.claimed = true
		w.mu.Unlock()
	}
	return nil
}

// originOf extracts scheme://host[:port] from a URL string.
func originOf(url string) string {
	rest := url
	scheme := ""
	if i := strings.Index(url, "://"); i >= 0 {
		scheme = url[:i+3]
		rest = url[i+3:]
	}
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		rest = rest[:i]
	}
	return scheme + rest
}
