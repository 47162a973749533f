package client

import (
	"sync"

	"task-tracker/pkg/task"
)

// Confirm guards a destructive action behind a second click.
type Confirm struct {
	armed bool
}

// Click arms the guard on the first call and reports true on the second.
func (c *Confirm) Click() bool {
	if c.armed {
		c.armed = false
		return true
	}
	c.armed = true
	return false
}

// Armed reports whether the next Click confirms.
func (c *Confirm) Armed() bool { return c.armed }

// Reset disarms the guard.
func (c *Confirm) Reset() { c.armed = false }

// Draft ties the text of an input to the request submitted from it. The
// input is only emptied after that request succeeded, so a failed add
// leaves what the user typed in place.
type Draft struct {
	mu   sync.Mutex
	sent string
	ok   bool
}

// Succeeded records that text was accepted by the server. It may be called
// from any goroutine.
func (d *Draft) Succeeded(text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sent, d.ok = text, true
}

// Clear reports whether an input currently holding current should be
// emptied. A recorded success is consumed by the call; if the user has
// already typed something else it is dropped.
func (d *Draft) Clear(current string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.ok {
		return false
	}
	d.ok = false
	return d.sent == current
}

// Prune deletes the entries of rows whose id is not among tasks.
func Prune[V any](rows map[int64]V, tasks []task.Task) {
	if len(rows) == 0 {
		return
	}
	keep := make(map[int64]struct{}, len(tasks))
	for _, t := range tasks {
		keep[t.ID] = struct{}{}
	}
	for id := range rows {
		if _, ok := keep[id]; !ok {
			delete(rows, id)
		}
	}
}
