package domain

import (
	"testing"
)

func TestNewNotificationEvent(t *testing.T) {
	t.Parallel()

	task := TaskRef{ID: "T1", Title: "Ship release notes"}

	event, err := NewNotificationEvent(CategoryAssigned, task)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if event.Category != CategoryAssigned {
		t.Errorf("Expected category %q, got %q", CategoryAssigned, event.Category)
	}

	if event.Task != task {
		t.Errorf("Expected task %+v, got %+v", task, event.Task)
	}

	if event.ReceivedAt.IsZero() {
		t.Error("Expected non-zero ReceivedAt time")
	}

	// Unknown category
	_, err = NewNotificationEvent(Category("poked"), task)
	if err != ErrEventCategoryInvalid {
		t.Errorf("Expected error %v, got %v", ErrEventCategoryInvalid, err)
	}

	// Missing task ID
	_, err = NewNotificationEvent(CategoryCreated, TaskRef{Title: "no id"})
	if err != ErrEventTaskIDEmpty {
		t.Errorf("Expected error %v, got %v", ErrEventTaskIDEmpty, err)
	}
}

func TestDedupKey(t *testing.T) {
	t.Parallel()

	a, err := NewNotificationEvent(CategoryUpdated, TaskRef{ID: "T1", Title: "one"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	b, err := NewNotificationEvent(CategoryUpdated, TaskRef{ID: "T1", Title: "renamed"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if a.DedupKey() != b.DedupKey() {
		t.Errorf("Expected identical dedup keys, got %q and %q", a.DedupKey(), b.DedupKey())
	}

	c, err := NewNotificationEvent(CategoryComment, TaskRef{ID: "T1"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if a.DedupKey() == c.DedupKey() {
		t.Errorf("Expected distinct dedup keys across categories, both were %q", a.DedupKey())
	}
}

func TestNotificationFromEvent(t *testing.T) {
	t.Parallel()

	event, err := NewNotificationEvent(CategoryUpdated, TaskRef{ID: "T42", Title: "Fix login flow"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	n := NotificationFromEvent(event)

	if n.Tag != "updated:T42" {
		t.Errorf("Expected tag %q, got %q", "updated:T42", n.Tag)
	}

	if n.Body != "Fix login flow" {
		t.Errorf("Expected body %q, got %q", "Fix login flow", n.Body)
	}

	if n.Data.TaskID != "T42" || n.Data.Category != CategoryUpdated {
		t.Errorf("Unexpected notification data: %+v", n.Data)
	}

	if len(n.Actions) != 2 || n.Actions[0].Action != ActionView || n.Actions[1].Action != ActionClose {
		t.Errorf("Unexpected actions: %+v", n.Actions)
	}

	if err := n.Validate(); err != nil {
		t.Errorf("Expected rendered notification to validate, got %v", err)
	}
}

func TestWelcomeNotification(t *testing.T) {
	t.Parallel()

	n := WelcomeNotification()
	if n.Tag != WelcomeTag {
		t.Errorf("Expected tag %q, got %q", WelcomeTag, n.Tag)
	}
	if n.Data.TaskID != "" {
		t.Errorf("Expected welcome notification to carry no task ID, got %q", n.Data.TaskID)
	}
}
