package source

import (
	"encoding/json"
	"log/slog"
	"slices"

	"github.com/kanbanflow/herald/internal/domain"
)

// TaskPayload is the task shape carried by channel messages.
type TaskPayload struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	CreatedBy string   `json:"created_by"`
	Assignees []string `json:"assignees"`
}

// Ref reduces the payload to the fields a notification needs.
func (p TaskPayload) Ref() domain.TaskRef {
	return domain.TaskRef{ID: p.ID, Title: p.Title}
}

// notificationPayload is the payload of generic notification:new messages.
type notificationPayload struct {
	Type string      `json:"type"`
	Task TaskPayload `json:"task"`
}

// commentPayload is the payload of comment:added messages.
type commentPayload struct {
	Task      TaskPayload `json:"task"`
	CommentBy string      `json:"comment_by"`
}

// Enqueuer accepts translated events. The queue controller satisfies this.
type Enqueuer interface {
	Enqueue(event domain.NotificationEvent)
}

// Adapter subscribes to the five channel message types and translates each
// into zero or one notification event. It applies the involvement check
// (the current user must be the task's creator or among its assignees)
// where the contract requires it, and suppresses self-notifications for
// comments. It has no side effects beyond forwarding into the queue.
type Adapter struct {
	userID string
	queue  Enqueuer
	logger *slog.Logger
	unsubs []func()
}

// NewAdapter registers the adapter's subscriptions on the channel and
// returns it. Close releases every subscription.
func NewAdapter(channel Channel, queue Enqueuer, userID string, log *slog.Logger) *Adapter {
	if channel == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("channel cannot be nil for Adapter")
	}
	if queue == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("queue cannot be nil for Adapter")
	}
	if log == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for Adapter")
	}

	a := &Adapter{
		userID: userID,
		queue:  queue,
		logger: log.With(slog.String("component", "event_source_adapter")),
	}

	a.unsubs = []func(){
		channel.Subscribe(EventNotificationNew, a.onNotification),
		channel.Subscribe(EventTaskCreated, a.onTaskCreated),
		channel.Subscribe(EventTaskUpdated, a.onTaskUpdated),
		channel.Subscribe(EventTaskAssigned, a.onTaskAssigned),
		channel.Subscribe(EventCommentAdded, a.onCommentAdded),
	}

	return a
}

// Close releases every channel subscription. Deterministic: after Close
// returns, no handler fires again.
func (a *Adapter) Close() {
	for _, unsub := range a.unsubs {
		unsub()
	}
	a.unsubs = nil
}

// involved reports whether the current user is a relevant party to the
// task: its creator or one of its assignees.
func (a *Adapter) involved(task TaskPayload) bool {
	return task.CreatedBy == a.userID || slices.Contains(task.Assignees, a.userID)
}

func (a *Adapter) emit(category domain.Category, task TaskPayload) {
	event, err := domain.NewNotificationEvent(category, task.Ref())
	if err != nil {
		a.logger.Warn("discarding untranslatable channel message",
			slog.String("category", string(category)),
			slog.Any("error", err))
		return
	}
	a.queue.Enqueue(event)
}

func (a *Adapter) onNotification(payload json.RawMessage) {
	var p notificationPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		a.logger.Warn("malformed notification:new payload", slog.Any("error", err))
		return
	}

	switch p.Type {
	case "task_assigned":
		a.emit(domain.CategoryAssigned, p.Task)
	case "status_changed":
		a.emit(domain.CategoryUpdated, p.Task)
	default:
		a.logger.Debug("ignoring notification of unknown type", slog.String("type", p.Type))
	}
}

func (a *Adapter) onTaskCreated(payload json.RawMessage) {
	var task TaskPayload
	if err := json.Unmarshal(payload, &task); err != nil {
		a.logger.Warn("malformed task:created payload", slog.Any("error", err))
		return
	}
	a.emit(domain.CategoryCreated, task)
}

func (a *Adapter) onTaskUpdated(payload json.RawMessage) {
	var task TaskPayload
	if err := json.Unmarshal(payload, &task); err != nil {
		a.logger.Warn("malformed task:updated payload", slog.Any("error", err))
		return
	}
	if !a.involved(task) {
		return
	}
	a.emit(domain.CategoryUpdated, task)
}

// onTaskAssigned handles both payload shapes the channel produces: a bare
// task object or the task wrapped in {"task": ...}.
func (a *Adapter) onTaskAssigned(payload json.RawMessage) {
	var wrapped struct {
		Task *TaskPayload `json:"task"`
	}
	task := TaskPayload{}

	if err := json.Unmarshal(payload, &wrapped); err == nil && wrapped.Task != nil {
		task = *wrapped.Task
	} else if err := json.Unmarshal(payload, &task); err != nil {
		a.logger.Warn("malformed task:assigned payload", slog.Any("error", err))
		return
	}

	if !slices.Contains(task.Assignees, a.userID) {
		return
	}
	a.emit(domain.CategoryAssigned, task)
}

func (a *Adapter) onCommentAdded(payload json.RawMessage) {
	var p commentPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		a.logger.Warn("malformed comment:added payload", slog.Any("error", err))
		return
	}
	// No self-notification for the comment's author, involved or not.
	if p.CommentBy == a.userID {
		return
	}
	if !a.involved(p.Task) {
		return
	}
	a.emit(domain.CategoryComment, p.Task)
}
