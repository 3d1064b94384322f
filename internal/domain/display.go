package domain

// WelcomeTag is the fixed tag of the confirmation notification dispatched
// when the user first grants notification permission.
const WelcomeTag = "welcome"

// Action names understood by the click router.
const (
	ActionView  = "view"
	ActionClose = "close"
)

// NotificationAction is a button rendered on a displayed notification.
type NotificationAction struct {
	Action string `json:"action"`
	Title  string `json:"title"`
}

// NotificationData is the payload attached to a displayed notification and
// echoed back on click. TaskID is empty for notifications not tied to a
// task (e.g. the welcome confirmation).
type NotificationData struct {
	Category Category `json:"type"`
	TaskID   string   `json:"taskId"`
}

// Notification is the display call shape handed to the platform
// notification surface. A notification replaces, rather than stacks beside,
// any visible notification sharing its Tag; the platform enforces this, and
// tag derivation relies on it to collapse repeat dispatches for the same
// task.
type Notification struct {
	Tag                string               `json:"tag"`
	Title              string               `json:"title"`
	Body               string               `json:"body"`
	Icon               string               `json:"icon,omitempty"`
	Badge              string               `json:"badge,omitempty"`
	Data               NotificationData     `json:"data"`
	Actions            []NotificationAction `json:"actions,omitempty"`
	RequireInteraction bool                 `json:"requireInteraction"`
	Vibrate            []int                `json:"vibrate,omitempty"`
}

// Validate checks if the Notification has valid data.
func (n Notification) Validate() error {
	if n.Title == "" {
		return ErrNotificationTitleEmpty
	}
	return nil
}

// NotificationFromEvent renders the display form of an event. The tag is
// derived as "<category>:<taskID>" so repeat dispatches for the same task
// and category collapse visually even when both were dispatched.
func NotificationFromEvent(event NotificationEvent) Notification {
	return Notification{
		Tag:   event.DedupKey(),
		Title: titleFor(event.Category),
		Body:  event.Task.Title,
		Icon:  "/icons/icon-192.png",
		Badge: "/icons/badge-72.png",
		Data: NotificationData{
			Category: event.Category,
			TaskID:   event.Task.ID,
		},
		Actions: []NotificationAction{
			{Action: ActionView, Title: "View task"},
			{Action: ActionClose, Title: "Dismiss"},
		},
		RequireInteraction: false,
		Vibrate:            []int{100, 50, 100},
	}
}

// WelcomeNotification is the confirmation shown immediately after the user
// grants permission, so they get instant feedback that delivery is live.
func WelcomeNotification() Notification {
	return Notification{
		Tag:   WelcomeTag,
		Title: "Notifications enabled",
		Body:  "You will now receive updates about your tasks.",
		Icon:  "/icons/icon-192.png",
	}
}

func titleFor(category Category) string {
	switch category {
	case CategoryCreated:
		return "Task created"
	case CategoryUpdated:
		return "Task updated"
	case CategoryAssigned:
		return "Task assigned to you"
	case CategoryComment:
		return "New comment"
	case CategoryDue:
		return "Task due soon"
	case CategoryOverdue:
		return "Task overdue"
	default:
		return "Notification"
	}
}
