package client

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"task-tracker/pkg/task"
)

func TestConfirmNeedsSecondClick(t *testing.T) {
	var c Confirm
	assert.False(t, c.Click())
	assert.True(t, c.Armed())
	assert.True(t, c.Click())
	assert.False(t, c.Armed())

	c.Click()
	c.Reset()
	assert.False(t, c.Click(), "a reset guard starts over")
}

func TestDraftClearsOnlyAfterSuccess(t *testing.T) {
	var d Draft
	assert.False(t, d.Clear("Buy milk"), "nothing succeeded yet")

	d.Succeeded("Buy milk")
	assert.True(t, d.Clear("Buy milk"))
	assert.False(t, d.Clear("Buy milk"), "a success is consumed once")

	d.Succeeded("Buy milk")
	assert.False(t, d.Clear("Buy milk and eggs"), "text typed since submission stays")
	assert.False(t, d.Clear("Buy milk and eggs"))
}

func TestDraftKeepsTextWhenAddFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	var d Draft

	input := "Keep me"
	f.srv.Close()
	if _, err := f.session.Add(ctx, input); err == nil {
		d.Succeeded(input)
	}
	assert.False(t, d.Clear(input))
}

func TestPruneDropsRowsNoLongerHeld(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.session.Add(ctx, "a")
	require.NoError(t, err)
	b, err := f.session.Add(ctx, "b")
	require.NoError(t, err)

	rows := map[int64]string{a.ID: "a widgets", b.ID: "b widgets", 999: "stale"}
	Prune(rows, f.session.State().Tasks())
	assert.Equal(t, map[int64]string{a.ID: "a widgets", b.ID: "b widgets"}, rows)

	require.NoError(t, f.session.Delete(ctx, a.ID))
	Prune(rows, f.session.State().Tasks())
	assert.Equal(t, map[int64]string{b.ID: "b widgets"}, rows)

	Prune(rows, []task.Task{})
	assert.Empty(t, rows)
}
