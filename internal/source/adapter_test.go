package source

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kanbanflow/herald/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// scriptedChannel is a Channel fed by tests.
type scriptedChannel struct {
	subs      *subscribers
	connected bool
}

func newScriptedChannel() *scriptedChannel {
	return &scriptedChannel{subs: newSubscribers(), connected: true}
}

func (s *scriptedChannel) Subscribe(event string, h Handler) func() {
	return s.subs.add(event, h)
}

func (s *scriptedChannel) Connected() bool { return s.connected }

func (s *scriptedChannel) deliver(t *testing.T, event string, payload any) {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	s.subs.dispatch(event, raw)
}

func (s *scriptedChannel) deliverRaw(event string, payload []byte) {
	s.subs.dispatch(event, payload)
}

// captureQueue records enqueued events.
type captureQueue struct {
	events []domain.NotificationEvent
}

func (q *captureQueue) Enqueue(e domain.NotificationEvent) {
	q.events = append(q.events, e)
}

const me = "u-me"

func setup(t *testing.T) (*scriptedChannel, *captureQueue, *Adapter) {
	t.Helper()
	ch := newScriptedChannel()
	q := &captureQueue{}
	a := NewAdapter(ch, q, me, testLogger())
	t.Cleanup(a.Close)
	return ch, q, a
}

func TestTaskCreatedEmitsUnconditionally(t *testing.T) {
	t.Parallel()
	ch, q, _ := setup(t)

	ch.deliver(t, EventTaskCreated, TaskPayload{ID: "T1", Title: "New task", CreatedBy: "someone-else"})

	require.Len(t, q.events, 1)
	assert.Equal(t, domain.CategoryCreated, q.events[0].Category)
	assert.Equal(t, "T1", q.events[0].Task.ID)
}

func TestTaskUpdatedInvolvementFilter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		task TaskPayload
		want int
	}{
		{
			name: "neither creator nor assignee",
			task: TaskPayload{ID: "T1", CreatedBy: "u-x", Assignees: []string{"u-y"}},
			want: 0,
		},
		{
			name: "creator",
			task: TaskPayload{ID: "T2", CreatedBy: me},
			want: 1,
		},
		{
			name: "assignee",
			task: TaskPayload{ID: "T3", CreatedBy: "u-x", Assignees: []string{"u-y", me}},
			want: 1,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			ch, q, _ := setup(t)
			ch.deliver(t, EventTaskUpdated, tc.task)
			assert.Len(t, q.events, tc.want)
		})
	}
}

func TestTaskAssignedRequiresMembership(t *testing.T) {
	t.Parallel()
	ch, q, _ := setup(t)

	// Wrapped payload shape, user assigned.
	ch.deliver(t, EventTaskAssigned, map[string]any{
		"task": TaskPayload{ID: "T1", Title: "For me", Assignees: []string{me}},
	})
	// Bare payload shape, user assigned.
	ch.deliver(t, EventTaskAssigned, TaskPayload{ID: "T2", Assignees: []string{"u-x", me}})
	// User not in the assigned set.
	ch.deliver(t, EventTaskAssigned, TaskPayload{ID: "T3", Assignees: []string{"u-x"}})

	require.Len(t, q.events, 2)
	assert.Equal(t, "T1", q.events[0].Task.ID)
	assert.Equal(t, "T2", q.events[1].Task.ID)
	for _, e := range q.events {
		assert.Equal(t, domain.CategoryAssigned, e.Category)
	}
}

func TestSelfCommentSuppressed(t *testing.T) {
	t.Parallel()
	ch, q, _ := setup(t)

	// Authored by the current user: suppressed even though assigned.
	ch.deliver(t, EventCommentAdded, commentPayload{
		Task:      TaskPayload{ID: "T1", Assignees: []string{me}},
		CommentBy: me,
	})
	assert.Empty(t, q.events)

	// Someone else's comment on an involved task passes.
	ch.deliver(t, EventCommentAdded, commentPayload{
		Task:      TaskPayload{ID: "T1", Assignees: []string{me}},
		CommentBy: "u-x",
	})
	require.Len(t, q.events, 1)
	assert.Equal(t, domain.CategoryComment, q.events[0].Category)

	// Someone else's comment on an uninvolved task does not.
	ch.deliver(t, EventCommentAdded, commentPayload{
		Task:      TaskPayload{ID: "T9", CreatedBy: "u-x"},
		CommentBy: "u-x",
	})
	assert.Len(t, q.events, 1)
}

func TestNotificationNewMapping(t *testing.T) {
	t.Parallel()
	ch, q, _ := setup(t)

	ch.deliver(t, EventNotificationNew, notificationPayload{
		Type: "task_assigned",
		Task: TaskPayload{ID: "T1", Title: "a"},
	})
	ch.deliver(t, EventNotificationNew, notificationPayload{
		Type: "status_changed",
		Task: TaskPayload{ID: "T2", Title: "b"},
	})
	ch.deliver(t, EventNotificationNew, notificationPayload{
		Type: "something_else",
		Task: TaskPayload{ID: "T3", Title: "c"},
	})

	require.Len(t, q.events, 2)
	assert.Equal(t, domain.CategoryAssigned, q.events[0].Category)
	assert.Equal(t, domain.CategoryUpdated, q.events[1].Category)
}

func TestMalformedPayloadsDropped(t *testing.T) {
	t.Parallel()
	ch, q, _ := setup(t)

	for _, event := range []string{
		EventNotificationNew,
		EventTaskCreated,
		EventTaskUpdated,
		EventTaskAssigned,
		EventCommentAdded,
	} {
		ch.deliverRaw(event, []byte(`{"broken`))
	}
	// A task without an ID is untranslatable.
	ch.deliver(t, EventTaskCreated, TaskPayload{Title: "no id"})

	assert.Empty(t, q.events)
}

func TestCloseUnsubscribes(t *testing.T) {
	t.Parallel()

	ch := newScriptedChannel()
	q := &captureQueue{}
	a := NewAdapter(ch, q, me, testLogger())

	a.Close()

	ch.deliver(t, EventTaskCreated, TaskPayload{ID: "T1"})
	assert.Empty(t, q.events, "no handler may outlive Close")
}
