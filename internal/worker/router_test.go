package worker

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kanbanflow/herald/internal/domain"
	"github.com/kanbanflow/herald/internal/platform/surface"
)

const appOrigin = "https://tasks.example.com"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startRouter(t *testing.T) (*Router, *surface.Memory, *MemoryRegistry) {
	t.Helper()

	sfc := surface.NewMemory()
	registry := NewMemoryRegistry()
	r := NewRouter(Config{AppOrigin: appOrigin, InboxSize: 16}, sfc, registry, testLogger())
	r.Start()
	t.Cleanup(r.Stop)
	return r, sfc, registry
}

func TestShowRequiresActivation(t *testing.T) {
	t.Parallel()
	r, sfc, _ := startRouter(t)
	ctx := context.Background()

	err := r.Show(ctx, domain.Notification{Tag: "updated:T1", Title: "Task updated"})
	assert.ErrorIs(t, err, ErrNotActive)
	assert.Empty(t, sfc.Displayed())

	require.NoError(t, r.Activate(ctx))
	require.NoError(t, r.Show(ctx, domain.Notification{Tag: "updated:T1", Title: "Task updated"}))
	assert.Len(t, sfc.Displayed(), 1)
}

func TestSkipWaitingActivatesAndClaims(t *testing.T) {
	t.Parallel()
	r, _, registry := startRouter(t)
	ctx := context.Background()

	w1 := registry.Add(appOrigin + "/board")
	w2 := registry.Add(appOrigin + "/settings")

	require.NoError(t, r.SkipWaiting(ctx))

	require.Eventually(t, r.Active, time.Second, 5*time.Millisecond)
	assert.True(t, w1.Claimed(), "activation must claim windows immediately")
	assert.True(t, w2.Claimed())
}

func TestClickFocusesMatchingWindow(t *testing.T) {
	t.Parallel()
	r, sfc, registry := startRouter(t)
	ctx := context.Background()
	require.NoError(t, r.Activate(ctx))

	foreign := registry.Add("https://elsewhere.example.org/")
	mine := registry.Add(appOrigin + "/board")

	require.NoError(t, sfc.Display(ctx, domain.Notification{Tag: "updated:T1", Title: "Task updated"}))
	require.NoError(t, r.Click(ctx, Click{
		Action: domain.ActionView,
		Tag:    "updated:T1",
		Data:   domain.NotificationData{Category: domain.CategoryUpdated, TaskID: "T1"},
	}))

	require.Eventually(t, func() bool { return mine.Focused() == 1 }, time.Second, 5*time.Millisecond)

	msgs := mine.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, MessageNotificationClick, msgs[0].Type)
	assert.Equal(t, "T1", msgs[0].Data.TaskID)

	assert.Zero(t, foreign.Focused(), "foreign-origin windows are never focused")
	assert.Equal(t, 0, sfc.VisibleCount(), "the clicked notification is closed")

	// No new window was opened.
	windows, err := registry.List(ctx)
	require.NoError(t, err)
	assert.Len(t, windows, 2)
}

func TestClickOpensWindowWhenNoneMatches(t *testing.T) {
	t.Parallel()
	r, _, registry := startRouter(t)
	ctx := context.Background()
	require.NoError(t, r.Activate(ctx))

	require.NoError(t, r.Click(ctx, Click{
		Action: domain.ActionView,
		Tag:    "assigned:T7",
		Data:   domain.NotificationData{Category: domain.CategoryAssigned, TaskID: "T7"},
	}))

	require.Eventually(t, func() bool {
		windows, err := registry.List(ctx)
		return err == nil && len(windows) == 1
	}, time.Second, 5*time.Millisecond)

	windows, err := registry.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, appOrigin+"/tasks/T7", windows[0].(*MemoryWindow).URL())
}

func TestClickWithoutTaskTargetsRoot(t *testing.T) {
	t.Parallel()
	r, _, registry := startRouter(t)
	ctx := context.Background()
	require.NoError(t, r.Activate(ctx))

	require.NoError(t, r.Click(ctx, Click{Tag: domain.WelcomeTag}))

	require.Eventually(t, func() bool {
		windows, err := registry.List(ctx)
		return err == nil && len(windows) == 1
	}, time.Second, 5*time.Millisecond)

	windows, _ := registry.List(ctx)
	assert.Equal(t, appOrigin+"/", windows[0].(*MemoryWindow).URL())
}

func TestCloseActionStopsAfterClosing(t *testing.T) {
	t.Parallel()
	r, sfc, registry := startRouter(t)
	ctx := context.Background()
	require.NoError(t, r.Activate(ctx))

	registry.Add(appOrigin + "/board")
	require.NoError(t, sfc.Display(ctx, domain.Notification{Tag: "due:T3", Title: "Task due soon"}))

	require.NoError(t, r.Click(ctx, Click{
		Action: domain.ActionClose,
		Tag:    "due:T3",
		Data:   domain.NotificationData{TaskID: "T3"},
	}))

	require.Eventually(t, func() bool { return sfc.VisibleCount() == 0 }, time.Second, 5*time.Millisecond)

	windows, err := registry.List(ctx)
	require.NoError(t, err)
	assert.Zero(t, windows[0].(*MemoryWindow).Focused(), "close action must not route anywhere")
}

func TestPostHonorsCancellation(t *testing.T) {
	t.Parallel()

	sfc := surface.NewMemory()
	r := NewRouter(Config{AppOrigin: appOrigin, InboxSize: 1}, sfc, NewMemoryRegistry(), testLogger())
	// Not started: nothing drains the inbox.

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	// Cancellation beats a non-full inbox: nothing may be enqueued.
	assert.ErrorIs(t, r.Click(cancelled, Click{Tag: "updated:T1"}), context.Canceled)

	require.NoError(t, r.Click(context.Background(), Click{Tag: "updated:T1"}))
	assert.ErrorIs(t, r.Click(context.Background(), Click{Tag: "updated:T2"}), ErrInboxFull)

	// Cancellation also beats a full inbox.
	assert.ErrorIs(t, r.Click(cancelled, Click{Tag: "updated:T3"}), context.Canceled)

	r.Stop()
	assert.ErrorIs(t, r.Click(context.Background(), Click{Tag: "updated:T4"}), ErrNotActive)
}

func TestPushDisplaysValidPayload(t *testing.T) {
	t.Parallel()
	r, sfc, _ := startRouter(t)
	ctx := context.Background()
	require.NoError(t, r.Activate(ctx))

	payload := []byte(`{"title":"Task assigned to you","body":"Prepare demo","data":{"type":"assigned","taskId":"T9"}}`)
	require.NoError(t, r.Push(ctx, payload))

	require.Eventually(t, func() bool { return len(sfc.Displayed()) == 1 }, time.Second, 5*time.Millisecond)

	n := sfc.Displayed()[0]
	assert.Equal(t, "assigned:T9", n.Tag, "push display shares the dispatcher's tag contract")
	assert.Equal(t, "T9", n.Data.TaskID)
	require.Len(t, n.Actions, 2)
	assert.Equal(t, domain.ActionView, n.Actions[0].Action)
}

func TestPushDropsMalformedPayloads(t *testing.T) {
	t.Parallel()
	r, sfc, _ := startRouter(t)
	ctx := context.Background()
	require.NoError(t, r.Activate(ctx))

	for _, payload := range [][]byte{
		[]byte(`{"broken`),            // not JSON
		[]byte(`{"body":"no title"}`), // schema violation
		[]byte(`{"title":""}`),        // empty title
		[]byte(`"just a string"`),     // wrong top-level type
	} {
		require.NoError(t, r.Push(ctx, payload))
	}

	// The worker survives and displays nothing.
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, sfc.Displayed())

	require.NoError(t, r.Push(ctx, []byte(`{"title":"Still alive"}`)))
	require.Eventually(t, func() bool { return len(sfc.Displayed()) == 1 }, time.Second, 5*time.Millisecond)
}
