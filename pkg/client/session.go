package client

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"task-tracker/pkg/task"
)

// Session couples a Client with the State it keeps in sync. Every
// mutation goes to the server first and the State only takes the row the
// server returned. On failure the State is left as it was.
type Session struct {
	api   *Client
	state *State
	log   *log.Entry
}

// NewSession returns a Session over api with an empty State.
func NewSession(api *Client, logger *log.Entry) *Session {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &Session{
		api:   api,
		state: NewState(),
		log:   logger.WithField("component", "client.session"),
	}
}

// State returns the mirrored collection.
func (s *Session) State() *State { return s.state }

// Refresh replaces the collection with the server's list, unless a
// mutation or another refresh was merged while the list was in flight.
func (s *Session) Refresh(ctx context.Context) error {
	stamp := s.state.Stamp()
	tasks, err := s.api.List(ctx)
	if err != nil {
		return s.failed("refresh", err)
	}
	if !s.state.ReplaceAt(stamp, tasks) {
		s.log.Debug("discarding task list overtaken by a newer change")
	}
	return nil
}

// Add creates a task from user input. Blank input sends nothing and
// returns (nil, nil).
func (s *Session) Add(ctx context.Context, input string) (*task.Task, error) {
	title := strings.TrimSpace(input)
	if title == "" {
		return nil, nil
	}
	t, err := s.api.Add(ctx, title)
	if err != nil {
		return nil, s.failed("add", err)
	}
	s.state.Prepend(*t)
	return t, nil
}

// Toggle flips the status of the task with id.
func (s *Session) Toggle(ctx context.Context, id int64) (*task.Task, error) {
	cur, ok := s.state.Find(id)
	if !ok {
		return nil, fmt.Errorf("task %d is not loaded", id)
	}
	next := cur.Status.Toggle()
	return s.update(ctx, "toggle", id, task.UpdateFields{Status: &next})
}

// Rename changes the title of the task with id.
func (s *Session) Rename(ctx context.Context, id int64, title string) (*task.Task, error) {
	return s.update(ctx, "rename", id, task.UpdateFields{Title: &title})
}

// Delete removes the task with id.
func (s *Session) Delete(ctx context.Context, id int64) error {
	if err := s.api.Delete(ctx, id); err != nil {
		return s.failed("delete", err)
	}
	s.state.Remove(id)
	return nil
}

func (s *Session) update(ctx context.Context, op string, id int64, fields task.UpdateFields) (*task.Task, error) {
	t, err := s.api.Update(ctx, id, fields)
	if err != nil {
		return nil, s.failed(op, err)
	}
	s.state.Patch(*t)
	return t, nil
}

func (s *Session) failed(op string, err error) error {
	s.log.WithError(err).WithField("op", op).Warn("task request failed")
	return err
}
