package domain

import (
	"errors"
	"time"
)

// Notification-specific validation errors
var (
	// ErrEventCategoryInvalid is returned when an event carries an unknown category.
	ErrEventCategoryInvalid = errors.New("event category is not a known category")

	// ErrEventTaskIDEmpty is returned when an event's task reference has no ID.
	ErrEventTaskIDEmpty = errors.New("event task ID cannot be empty")

	// ErrNotificationTitleEmpty is returned when a notification has no title.
	ErrNotificationTitleEmpty = errors.New("notification title cannot be empty")
)

// Category identifies the kind of domain event a notification describes.
type Category string

// Possible notification categories
const (
	CategoryCreated  Category = "created"
	CategoryUpdated  Category = "updated"
	CategoryAssigned Category = "assigned"
	CategoryComment  Category = "comment"
	CategoryDue      Category = "due"
	CategoryOverdue  Category = "overdue"
)

// Categories lists every known category in a stable order. Used by the
// settings layer to enumerate preference keys.
var Categories = []Category{
	CategoryCreated,
	CategoryUpdated,
	CategoryAssigned,
	CategoryComment,
	CategoryDue,
	CategoryOverdue,
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryCreated, CategoryUpdated, CategoryAssigned,
		CategoryComment, CategoryDue, CategoryOverdue:
		return true
	}
	return false
}

// TaskRef carries the minimal identity and display fields of a task needed
// to render a notification body. It is not the full task entity; the task
// CRUD models live outside this service.
type TaskRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// NotificationEvent is a single domain event eligible for delivery to the
// user. Events are immutable once created: they are produced by the channel
// adapter, consumed by the queue controller, and discarded after their
// dispatch attempt.
type NotificationEvent struct {
	Category   Category  `json:"category"`
	Task       TaskRef   `json:"task"`
	ReceivedAt time.Time `json:"received_at"`
}

// NewNotificationEvent creates a validated NotificationEvent stamped with
// the current time.
func NewNotificationEvent(category Category, task TaskRef) (NotificationEvent, error) {
	event := NotificationEvent{
		Category:   category,
		Task:       task,
		ReceivedAt: time.Now().UTC(),
	}

	if err := event.Validate(); err != nil {
		return NotificationEvent{}, err
	}

	return event, nil
}

// Validate checks if the NotificationEvent has valid data.
func (e NotificationEvent) Validate() error {
	if !e.Category.Valid() {
		return ErrEventCategoryInvalid
	}
	if e.Task.ID == "" {
		return ErrEventTaskIDEmpty
	}
	return nil
}

// DedupKey returns the identity under which duplicate events collapse:
// two events share a key iff they share a category and a task ID.
func (e NotificationEvent) DedupKey() string {
	return string(e.Category) + ":" + e.Task.ID
}
