package surface

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kanbanflow/herald/internal/domain"
)

func TestTagReplace(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemory()

	first := domain.Notification{Tag: "updated:T1", Title: "Task updated", Body: "old title"}
	second := domain.Notification{Tag: "updated:T1", Title: "Task updated", Body: "new title"}

	require.NoError(t, s.Display(ctx, first))
	require.NoError(t, s.Display(ctx, second))

	// Both dispatches happened, but only the latest is visible.
	assert.Len(t, s.Displayed(), 2)
	assert.Equal(t, 1, s.VisibleCount())

	visible, ok := s.Visible("updated:T1")
	require.True(t, ok)
	assert.Equal(t, "new title", visible.Body)
}

func TestDistinctTagsStack(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemory()

	require.NoError(t, s.Display(ctx, domain.Notification{Tag: "updated:T1", Title: "a"}))
	require.NoError(t, s.Display(ctx, domain.Notification{Tag: "comment:T1", Title: "b"}))

	assert.Equal(t, 2, s.VisibleCount())
}

func TestClose(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemory()

	require.NoError(t, s.Display(ctx, domain.Notification{Tag: "comment:T2", Title: "a"}))
	s.Close("comment:T2")

	assert.Equal(t, 0, s.VisibleCount())
	// Closing an unknown tag is a no-op.
	s.Close("comment:T2")
}

func TestDisplayRejectsInvalid(t *testing.T) {
	t.Parallel()

	err := NewMemory().Display(context.Background(), domain.Notification{Tag: "x"})
	assert.ErrorIs(t, err, domain.ErrNotificationTitleEmpty)
}
