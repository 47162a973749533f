package client

import (
	"fmt"
	"slices"
	"sync"

	"task-tracker/pkg/task"
)

// Filter selects which tasks are visible.
type Filter string

const (
	FilterAll       Filter = "all"
	FilterPending   Filter = "pending"
	FilterCompleted Filter = "completed"
)

// Filters lists every filter in display order.
var Filters = []Filter{FilterAll, FilterPending, FilterCompleted}

// ParseFilter converts s to a Filter.
func ParseFilter(s string) (Filter, error) {
	switch f := Filter(s); f {
	case FilterAll, FilterPending, FilterCompleted:
		return f, nil
	}
	return "", fmt.Errorf("unknown filter %q", s)
}

// Match reports whether t passes the filter.
func (f Filter) Match(t task.Task) bool {
	switch f {
	case FilterPending:
		return t.Status == task.StatusPending
	case FilterCompleted:
		return t.Status == task.StatusCompleted
	default:
		return true
	}
}

// State is the local mirror of the server's task list. Rows only enter
// it from server responses. Visible and Summary are derived on each call.
//
// Every merge is ordered on a stamp clock: a list requested at stamp n is
// only applied when nothing was merged after n was handed out, so a list
// fetched before a mutation completed cannot undo that mutation.
type State struct {
	mu      sync.RWMutex
	tasks   []task.Task
	filter  Filter
	clock   uint64
	settled uint64
}

// NewState returns an empty State showing all tasks.
func NewState() *State {
	return &State{filter: FilterAll}
}

// Stamp returns the stamp to pass to ReplaceAt for a list request that is
// about to start.
func (s *State) Stamp() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clock++
	return s.clock
}

// Replace swaps in a freshly listed collection unconditionally.
func (s *State) Replace(tasks []task.Task) {
	s.ReplaceAt(s.Stamp(), tasks)
}

// ReplaceAt swaps in a collection listed by a request started at stamp.
// It reports false, keeping the current rows, when a mutation or a later
// list has been merged since the stamp was taken.
func (s *State) ReplaceAt(stamp uint64, tasks []task.Task) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if stamp <= s.settled {
		return false
	}
	s.settled = stamp
	s.tasks = slices.Clone(tasks)
	return true
}

// Prepend puts a newly created row at the head of the list. A row with the
// same id, already delivered by a list, is replaced in place instead.
func (s *State) Prepend(t task.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settle()
	if i := s.index(t.ID); i >= 0 {
		s.tasks[i] = t
		return
	}
	s.tasks = slices.Insert(s.tasks, 0, t)
}

// Patch replaces the row with t's id. It reports false when no such row
// is held.
func (s *State) Patch(t task.Task) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settle()
	i := s.index(t.ID)
	if i < 0 {
		return false
	}
	s.tasks[i] = t
	return true
}

// Remove drops the row with id.
func (s *State) Remove(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settle()
	i := s.index(id)
	if i < 0 {
		return false
	}
	s.tasks = slices.Delete(s.tasks, i, i+1)
	return true
}

// SetFilter changes the active filter.
func (s *State) SetFilter(f Filter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filter = f
}

// Filter returns the active filter.
func (s *State) Filter() Filter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter
}

// Tasks returns a copy of the whole collection.
func (s *State) Tasks() []task.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.tasks)
}

// Visible returns the tasks passing the active filter, in list order.
func (s *State) Visible() []task.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]task.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if s.filter.Match(t) {
			out = append(out, t)
		}
	}
	return out
}

// Summary counts the whole collection regardless of filter.
func (s *State) Summary() task.Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return task.Summarize(s.tasks)
}

// Find returns the row with id.
func (s *State) Find(id int64) (task.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.index(id); i >= 0 {
		return s.tasks[i], true
	}
	return task.Task{}, false
}

// settle records a merged mutation. Callers hold mu.
func (s *State) settle() {
	s.clock++
	s.settled = s.clock
}

func (s *State) index(id int64) int {
	return slices.IndexFunc(s.tasks, func(t task.Task) bool { return t.ID == id })
}
