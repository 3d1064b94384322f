package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/kanbanflow/herald/internal/domain"
	"github.com/kanbanflow/herald/internal/platform/surface"
)

// Errors returned on the worker message paths.
var (
	// ErrNotActive is returned when the worker has not activated yet
	// (first visit, slow activation). The dispatcher treats it as a cue to
	// fall back to foreground display.
	ErrNotActive = errors.New("worker is not active")

	// ErrInboxFull is returned when the worker's message inbox is full.
	ErrInboxFull = errors.New("worker inbox is full")
)

// pushSchema validates raw push payloads before they are trusted. Push
// messages may eventually originate from a server-initiated push path
// independent of the live channel, so the worker assumes nothing about
// their shape.
const pushSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"required": ["title"],
	"properties": {
		"title": {"type": "string", "minLength": 1},
		"body": {"type": "string"},
		"tag": {"type": "string"},
		"data": {
			"type": "object",
			"properties": {
				"type": {"type": "string"},
				"taskId": {"type": "string"}
			}
		}
	}
}`

// pushPayload is the parsed form of a valid push message.
type pushPayload struct {
	Title string                  `json:"title"`
	Body  string                  `json:"body"`
	Tag   string                  `json:"tag"`
	Data  domain.NotificationData `json:"data"`
}

// Config holds the router's settings.
type Config struct {
	// AppOrigin is the application's origin; clicks only ever focus
	// windows of this origin, and new windows open under it.
	AppOrigin string

	// InboxSize is the message inbox buffer.
	InboxSize int
}

// Router is the background worker's message loop. Exactly one goroutine
// consumes the inbox, so handler state needs no locking; the surrounding
// accessors are the only synchronized parts.
type Router struct {
	cfg      Config
	surface  surface.Surface
	registry WindowRegistry
	logger   *slog.Logger
	schema   *jsonschema.Schema

	inbox  chan message
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.RWMutex
	running bool
	active  bool
}

// NewRouter creates a Router. Start launches it in the waiting state;
// Activate or a SKIP_WAITING message moves it to active.
func NewRouter(cfg Config, sfc surface.Surface, registry WindowRegistry, log *slog.Logger) *Router {
	if sfc == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("surface cannot be nil for worker Router")
	}
	if registry == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("registry cannot be nil for worker Router")
	}
	if log == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for worker Router")
	}
	if cfg.InboxSize <= 0 {
		cfg.InboxSize = 32
	}

	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(pushSchema))
	if err != nil {
		// ALLOW-PANIC: compile-time constant schema
		panic(fmt.Sprintf("push schema does not parse: %v", err))
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("push.json", doc); err != nil {
		// ALLOW-PANIC: compile-time constant schema
		panic(fmt.Sprintf("push schema does not load: %v", err))
	}
	schema, err := compiler.Compile("push.json")
	if err != nil {
		// ALLOW-PANIC: compile-time constant schema
		panic(fmt.Sprintf("push schema does not compile: %v", err))
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Router{
		cfg:      cfg,
		surface:  sfc,
		registry: registry,
		logger:   log.With(slog.String("component", "worker_router")),
		schema:   schema,
		inbox:    make(chan message, cfg.InboxSize),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start launches the message loop. The router starts out waiting; display
// requests fail with ErrNotActive until activation.
func (r *Router) Start() {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return
	}
	r.running = true
	r.mu.Unlock()

	r.wg.Add(1)
	go r.loop()
	r.logger.Info("worker started", slog.String("origin", r.cfg.AppOrigin))
}

// Stop shuts the loop down and waits for it to exit.
func (r *Router) Stop() {
	r.cancel()
	r.wg.Wait()

	r.mu.Lock()
	r.running = false
	r.active = false
	r.mu.Unlock()
}

// Activate moves the worker to active and immediately takes control of
// every open window, instead of waiting for each window's next navigation.
func (r *Router) Activate(ctx context.Context) error {
	r.mu.Lock()
	wasActive := r.active
	r.active = true
	r.mu.Unlock()

	if wasActive {
		return nil
	}

	r.logger.Info("worker activated, claiming open windows")
	if err := r.registry.ClaimAll(ctx); err != nil {
		return fmt.Errorf("failed to claim open windows: %w", err)
	}
	return nil
}

// Active reports whether the worker is running and activated, i.e. whether
// it currently controls the application's windows.
func (r *Router) Active() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.running && r.active
}

// Show asks the worker to display a notification and waits for the
// outcome. Part of the dispatcher's WorkerClient contract.
func (r *Router) Show(ctx context.Context, n domain.Notification) error {
	if !r.Active() {
		return ErrNotActive
	}

	req := &showRequest{notification: n, reply: make(chan error, 1)}
	if err := r.post(ctx, message{show: req}); err != nil {
		return err
	}

	select {
	case err := <-req.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-r.ctx.Done():
		return ErrNotActive
	}
}

// Click delivers a notification click to the router.
func (r *Router) Click(ctx context.Context, click Click) error {
	c := click
	return r.post(ctx, message{click: &c})
}

// Push delivers a raw push payload to the router.
func (r *Router) Push(ctx context.Context, payload []byte) error {
	return r.post(ctx, message{push: payload})
}

// SkipWaiting delivers the activate-now lifecycle message.
func (r *Router) SkipWaiting(ctx context.Context) error {
	return r.post(ctx, message{skipWaiting: true})
}

// post is a non-blocking send with cancellation checked first, so a
// cancelled caller never enqueues and never sees ErrInboxFull.
func (r *Router) post(ctx context.Context, msg message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.ctx.Err() != nil {
		return ErrNotActive
	}

	select {
	case r.inbox <- msg:
		return nil
	default:
		return ErrInboxFull
	}
}

func (r *Router) loop() {
	defer r.wg.Done()

	for {
		select {
		case <-r.ctx.Done():
			return
		case msg := <-r.inbox:
			r.handle(msg)
		}
	}
}

func (r *Router) handle(msg message) {
	switch {
	case msg.show != nil:
		msg.show.reply <- r.surface.Display(r.ctx, msg.show.notification)
	case msg.click != nil:
		r.handleClick(*msg.click)
	case msg.push != nil:
		r.handlePush(msg.push)
	case msg.skipWaiting:
		if err := r.Activate(r.ctx); err != nil {
			r.logger.Warn("activation after SKIP_WAITING failed", slog.Any("error", err))
		}
	}
}

// handleClick routes a notification click back into application
// navigation: close the notification, then either focus an existing
// same-origin window and post it the click payload, or open a new window
// deep-linked to the task.
func (r *Router) handleClick(click Click) {
	r.surface.Close(click.Tag)

	if click.Action == domain.ActionClose {
		return
	}

	target := "/"
	if click.Data.TaskID != "" {
		target = "/tasks/" + click.Data.TaskID
	}

	windows, err := r.registry.List(r.ctx)
	if err != nil {
		r.logger.Warn("failed to list windows for click routing", slog.Any("error", err))
		return
	}

	for _, w := range windows {
		if w.Origin() != r.cfg.AppOrigin {
			continue
		}
		if err := w.Focus(r.ctx); err != nil {
			r.logger.Warn("failed to focus window",
				slog.String("window_id", w.ID()),
				slog.Any("error", err))
			continue
		}
		msg := WindowMessage{Type: MessageNotificationClick, Data: click.Data}
		if err := w.PostMessage(r.ctx, msg); err != nil {
			r.logger.Warn("failed to post click message",
				slog.String("window_id", w.ID()),
				slog.Any("error", err))
		}
		return
	}

	if _, err := r.registry.Open(r.ctx, r.cfg.AppOrigin+target); err != nil {
		r.logger.Warn("failed to open window for click",
			slog.String("target", target),
			slog.Any("error", err))
	}
}

// handlePush displays a push-originated notification. The payload is
// parsed defensively: malformed input is dropped with a log line and must
// never crash the worker. Valid payloads display under the same tag and
// action contract as the dispatcher's path, so the two are visually
// indistinguishable.
func (r *Router) handlePush(payload []byte) {
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(payload))
	if err != nil {
		r.logger.Warn("dropping malformed push payload", slog.Any("error", err))
		return
	}
	if err := r.schema.Validate(inst); err != nil {
		r.logger.Warn("dropping invalid push payload", slog.Any("error", err))
		return
	}

	var p pushPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		r.logger.Warn("dropping undecodable push payload", slog.Any("error", err))
		return
	}

	tag := p.Tag
	if tag == "" && p.Data.TaskID != "" && p.Data.Category != "" {
		tag = string(p.Data.Category) + ":" + p.Data.TaskID
	}

	n := domain.Notification{
		Tag:   tag,
		Title: p.Title,
		Body:  p.Body,
		Icon:  "/icons/icon-192.png",
		Badge: "/icons/badge-72.png",
		Data:  p.Data,
		Actions: []domain.NotificationAction{
			{Action: domain.ActionView, Title: "View task"},
			{Action: domain.ActionClose, Title: "Dismiss"},
		},
	}

	if err := r.surface.Display(r.ctx, n); err != nil {
		r.logger.Warn("failed to display push notification",
			slog.String("tag", n.Tag),
			slog.Any("error", err))
	}
}
