// Package queue is the central coordination point of the delivery pipeline:
// it accepts raw incoming events, filters them by the user's notification
// preferences, collapses duplicates, and feeds the dispatcher one entry at
// a time with enforced spacing.
package queue

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/kanbanflow/herald/internal/domain"
)

// dedupKeyLimit bounds the dedup bookkeeping map; stale keys are pruned
// once it is crossed.
const dedupKeyLimit = 1024

// Settings is the controller's read-only view of the user's preferences.
// Lookups must not block.
type Settings interface {
	Enabled(category domain.Category) bool
}

// Dispatcher renders one notification. Success and failure are both
// treated as "done" by the drain loop.
type Dispatcher interface {
	Show(ctx context.Context, n domain.Notification) error
}

// Config holds the controller's tuning knobs. The dedup window and spacing
// smooth the user experience during event bursts; they are not correctness
// constants.
type Config struct {
	// DedupWindow is how long a (category, task) pair suppresses repeats.
	DedupWindow time.Duration

	// Spacing is the pause between consecutive dispatches.
	Spacing time.Duration

	// Capacity bounds the pending list. Events beyond it are dropped;
	// delivery is at-most-once and best-effort throughout the pipeline.
	Capacity int
}

// DefaultConfig returns a Config with the standard knob values.
func DefaultConfig() Config {
	return Config{
		DedupWindow: 2000 * time.Millisecond,
		Spacing:     1000 * time.Millisecond,
		Capacity:    100,
	}
}

// entry is one pending event. Entries exist only between enqueue and the
// dispatch attempt; none survives past it.
type entry struct {
	event      domain.NotificationEvent
	enqueuedAt time.Time
}

// Controller is the dedup and queue controller. It moves between exactly
// two states, idle and processing, and never holds more than one in-flight
// dispatch.
type Controller struct {
	settings   Settings
	dispatcher Dispatcher
	cfg        Config
	logger     *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu         sync.Mutex
	pending    []entry
	lastSeen   map[string]time.Time
	processing bool
}

// NewController creates a Controller ready to accept events.
func NewController(settings Settings, dispatcher Dispatcher, cfg Config, log *slog.Logger) *Controller {
	if settings == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("settings cannot be nil for queue Controller")
	}
	if dispatcher == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("dispatcher cannot be nil for queue Controller")
	}
	if log == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for queue Controller")
	}
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultConfig().Capacity
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Controller{
		settings:   settings,
		dispatcher: dispatcher,
		cfg:        cfg,
		logger:     log.With(slog.String("component", "queue_controller")),
		ctx:        ctx,
		cancel:     cancel,
		lastSeen:   make(map[string]time.Time),
	}
}

// Enqueue accepts one event. Events whose category the user has explicitly
// disabled are dropped, as are duplicates of an event enqueued within the
// dedup window (the earlier one wins and keeps its position). Everything
// else joins the FIFO tail, and the drain loop is started if idle.
func (c *Controller) Enqueue(event domain.NotificationEvent) {
	if err := event.Validate(); err != nil {
		c.logger.Warn("dropping invalid event", slog.Any("error", err))
		return
	}

	if !c.settings.Enabled(event.Category) {
		c.logger.Debug("event dropped by user preferences",
			slog.String("category", string(event.Category)),
			slog.String("task_id", event.Task.ID))
		return
	}

	now := time.Now()
	key := event.DedupKey()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ctx.Err() != nil {
		c.logger.Debug("event dropped after controller stop", slog.String("key", key))
		return
	}

	if last, ok := c.lastSeen[key]; ok && now.Sub(last) < c.cfg.DedupWindow {
		c.logger.Debug("duplicate event coalesced",
			slog.String("key", key),
			slog.Duration("since_first", now.Sub(last)))
		return
	}

	if len(c.pending) >= c.cfg.Capacity {
		c.logger.Warn("pending list full, dropping event",
			slog.String("key", key),
			slog.Int("capacity", c.cfg.Capacity))
		return
	}

	// Only an event that actually joins the list suppresses repeats; a
	// capacity drop must not eat a later retry of the same event.
	c.lastSeen[key] = now
	c.pruneLocked(now)

	c.pending = append(c.pending, entry{event: event, enqueuedAt: now})
	c.logger.Debug("event enqueued",
		slog.String("key", key),
		slog.Int("pending", len(c.pending)))

	if !c.processing {
		c.processing = true
		c.wg.Add(1)
		go c.drain()
	}
}

// drain pops and dispatches pending entries one at a time with the
// configured spacing, then returns the controller to idle. A dispatch
// failure is logged and does not halt the loop; the queue is resilient to
// any single bad entry.
func (c *Controller) drain() {
	defer c.wg.Done()

	for {
		c.mu.Lock()
		if c.ctx.Err() != nil || len(c.pending) == 0 {
			c.processing = false
			c.mu.Unlock()
			return
		}
		head := c.pending[0]
		c.pending = c.pending[1:]
		c.mu.Unlock()

		n := domain.NotificationFromEvent(head.event)
		if err := c.dispatcher.Show(c.ctx, n); err != nil {
			c.logger.Warn("dispatch failed",
				slog.String("tag", n.Tag),
				slog.Any("error", err))
		} else {
			c.logger.Debug("dispatched",
				slog.String("tag", n.Tag),
				slog.Duration("queued_for", time.Since(head.enqueuedAt)))
		}

		if !c.sleep(c.cfg.Spacing) {
			c.mu.Lock()
			c.processing = false
			c.mu.Unlock()
			return
		}
	}
}

// sleep waits for the spacing interval. Returns false when the controller
// was stopped during the wait.
func (c *Controller) sleep(d time.Duration) bool {
	if d <= 0 {
		return c.ctx.Err() == nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-c.ctx.Done():
		return false
	}
}

// pruneLocked drops dedup keys that fell out of the window once the map is
// large. Caller holds c.mu.
func (c *Controller) pruneLocked(now time.Time) {
	if len(c.lastSeen) <= dedupKeyLimit {
		return
	}
	for key, seen := range c.lastSeen {
		if now.Sub(seen) >= c.cfg.DedupWindow {
			delete(c.lastSeen, key)
		}
	}
}

// Pending returns the number of queued entries.
func (c *Controller) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Stop cancels the drain loop and waits for it to exit. Pending spacing
// timers abort immediately; no dispatch fires after Stop returns. Entries
// still pending are discarded, consistent with at-most-once delivery.
func (c *Controller) Stop() {
	c.cancel()
	c.wg.Wait()
}
