package task

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stepClock returns a new instant, one second later, on every call.
type stepClock struct {
	mu  sync.Mutex
	cur time.Time
}

func newStepClock() *stepClock {
	return &stepClock{cur: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cur = c.cur.Add(time.Second)
	return c.cur
}

func setClock(s Store, now func() time.Time) {
	switch st := s.(type) {
	case *SQLiteStore:
		st.now = now
	case *PgStore:
		st.now = now
	}
}

func ptr[T any](v T) *T { return &v }

// runStoreContract exercises the behavior every Store implementation
// must share. newStore must return an empty store with its table created.
func runStoreContract(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("insert returns pending row with equal timestamps", func(t *testing.T) {
		s := newStore(t)
		created, err := s.Insert(ctx, "Buy milk")
		require.NoError(t, err)
		assert.NotZero(t, created.ID)
		assert.Equal(t, "Buy milk", created.Title)
		assert.Equal(t, StatusPending, created.Status)
		assert.True(t, created.CreatedAt.Equal(created.UpdatedAt), "created_at %v != updated_at %v", created.CreatedAt, created.UpdatedAt)

		got, err := s.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.Title, got.Title)
		assert.True(t, created.CreatedAt.Equal(got.CreatedAt))
	})

	t.Run("list is newest first", func(t *testing.T) {
		s := newStore(t)
		tasks, err := s.List(ctx)
		require.NoError(t, err)
		assert.NotNil(t, tasks)
		assert.Empty(t, tasks)

		for _, title := range []string{"first", "second", "third"} {
			_, err := s.Insert(ctx, title)
			require.NoError(t, err)
		}
		tasks, err = s.List(ctx)
		require.NoError(t, err)
		require.Len(t, tasks, 3)
		assert.Equal(t, "third", tasks[0].Title)
		assert.Equal(t, "second", tasks[1].Title)
		assert.Equal(t, "first", tasks[2].Title)

		_, err = s.Insert(ctx, "fourth")
		require.NoError(t, err)
		tasks, err = s.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, "fourth", tasks[0].Title)
	})

	t.Run("update status only keeps title", func(t *testing.T) {
		s := newStore(t)
		created, err := s.Insert(ctx, "Write report")
		require.NoError(t, err)

		updated, err := s.UpdateByID(ctx, created.ID, UpdateFields{Status: ptr(StatusCompleted)})
		require.NoError(t, err)
		assert.Equal(t, StatusCompleted, updated.Status)
		assert.Equal(t, "Write report", updated.Title)
		assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))
		assert.True(t, updated.CreatedAt.Equal(created.CreatedAt))
	})

	t.Run("update title only keeps status", func(t *testing.T) {
		s := newStore(t)
		created, err := s.Insert(ctx, "Draft")
		require.NoError(t, err)
		_, err = s.UpdateByID(ctx, created.ID, UpdateFields{Status: ptr(StatusCompleted)})
		require.NoError(t, err)

		updated, err := s.UpdateByID(ctx, created.ID, UpdateFields{Title: ptr("Final")})
		require.NoError(t, err)
		assert.Equal(t, "Final", updated.Title)
		assert.Equal(t, StatusCompleted, updated.Status)
	})

	t.Run("update both fields", func(t *testing.T) {
		s := newStore(t)
		created, err := s.Insert(ctx, "Old")
		require.NoError(t, err)

		updated, err := s.UpdateByID(ctx, created.ID, UpdateFields{Title: ptr("New"), Status: ptr(StatusCompleted)})
		require.NoError(t, err)
		assert.Equal(t, "New", updated.Title)
		assert.Equal(t, StatusCompleted, updated.Status)
		assert.False(t, updated.UpdatedAt.Before(updated.CreatedAt))
	})

	t.Run("missing id is not found and mutates nothing", func(t *testing.T) {
		s := newStore(t)
		created, err := s.Insert(ctx, "Keep me")
		require.NoError(t, err)
		before, err := s.List(ctx)
		require.NoError(t, err)

		_, err = s.UpdateByID(ctx, created.ID+100, UpdateFields{Title: ptr("nope")})
		assert.True(t, errors.Is(err, ErrNotFound), "update: %v", err)
		err = s.DeleteByID(ctx, created.ID+100)
		assert.True(t, errors.Is(err, ErrNotFound), "delete: %v", err)
		_, err = s.Get(ctx, created.ID+100)
		assert.True(t, errors.Is(err, ErrNotFound), "get: %v", err)

		after, err := s.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})

	t.Run("delete twice is not found the second time", func(t *testing.T) {
		s := newStore(t)
		created, err := s.Insert(ctx, "Temporary")
		require.NoError(t, err)

		require.NoError(t, s.DeleteByID(ctx, created.ID))
		err = s.DeleteByID(ctx, created.ID)
		assert.True(t, errors.Is(err, ErrNotFound))
		tasks, err := s.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, tasks)
	})

	t.Run("ids are not reused", func(t *testing.T) {
		s := newStore(t)
		a, err := s.Insert(ctx, "a")
		require.NoError(t, err)
		require.NoError(t, s.DeleteByID(ctx, a.ID))
		b, err := s.Insert(ctx, "b")
		require.NoError(t, err)
		assert.Greater(t, b.ID, a.ID)
	})

	t.Run("counts and seed", func(t *testing.T) {
		s := newStore(t)
		empty, err := s.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, Summary{}, empty)

		seeded, err := Seed(ctx, s)
		require.NoError(t, err)
		assert.True(t, seeded)

		total, err := s.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, len(SampleTitles), total)
		stats, err := s.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, Summary{Total: len(SampleTitles), Completed: 1, Pending: len(SampleTitles) - 1}, stats)

		seeded, err = Seed(ctx, s)
		require.NoError(t, err)
		assert.False(t, seeded)
		total, err = s.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, len(SampleTitles), total)
	})
}
