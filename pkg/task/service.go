package task

import (
	"context"
	"errors"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Outcome messages shared by the HTTP surface and clients.
const (
	MsgAdded      = "Task added successfully"
	MsgUpdated    = "Task updated successfully"
	MsgDeleted    = "Task deleted successfully"
	MsgNotFound   = "Task not found"
	MsgListFailed = "Error fetching tasks"
	MsgGetFailed  = "Error fetching task"
	MsgAddFailed  = "Error adding task"
	MsgUpdFailed  = "Error updating task"
	MsgDelFailed  = "Error deleting task"
)

// AddInput is the validated body of a create request.
type AddInput struct {
	Title string `json:"title"`
}

// Service validates input and orchestrates Store calls. It holds no
// per-request state.
type Service struct {
	store Store
	log   *log.Entry
}

// NewService creates a Service over store.
func NewService(store Store, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &Service{store: store, log: logger.WithField("component", "task.service")}
}

// List returns every task, most recent first.
func (s *Service) List(ctx context.Context) ([]Task, error) {
	tasks, err := s.store.List(ctx)
	if err != nil {
		return nil, s.fault("list", err)
	}
	return tasks, nil
}

// Get returns one task.
func (s *Service) Get(ctx context.Context, id int64) (*Task, error) {
	t, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, s.classify("get", err)
	}
	return t, nil
}

// Add validates the title and persists a new pending task.
func (s *Service) Add(ctx context.Context, in AddInput) (*Task, error) {
	title, err := NormalizeTitle(in.Title)
	if err != nil {
		return nil, err
	}
	t, err := s.store.Insert(ctx, title)
	if err != nil {
		return nil, s.fault("add", err)
	}
	s.log.WithField("task_id", t.ID).Debug("task added")
	return t, nil
}

// Update applies fields to the task. With no fields set nothing is written
// and the current row is returned.
func (s *Service) Update(ctx context.Context, id int64, fields UpdateFields) (*Task, error) {
	if fields.IsEmpty() {
		return s.Get(ctx, id)
	}
	if fields.Title != nil {
		if strings.TrimSpace(*fields.Title) == "" {
			return nil, &ValidationError{Message: "Task title cannot be empty"}
		}
		title, err := NormalizeTitle(*fields.Title)
		if err != nil {
			return nil, err
		}
		fields.Title = &title
	}
	if fields.Status != nil && !fields.Status.Valid() {
		return nil, &ValidationError{Message: "Status must be 'pending' or 'completed'"}
	}
	t, err := s.store.UpdateByID(ctx, id, fields)
	if err != nil {
		return nil, s.classify("update", err)
	}
	s.log.WithField("task_id", t.ID).Debug("task updated")
	return t, nil
}

// Delete removes the task.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.store.DeleteByID(ctx, id); err != nil {
		return s.classify("delete", err)
	}
	s.log.WithField("task_id", id).Debug("task deleted")
	return nil
}

// Summary counts tasks by status.
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	sum, err := s.store.Stats(ctx)
	if err != nil {
		return Summary{}, s.fault("summary", err)
	}
	return sum, nil
}

func (s *Service) classify(op string, err error) error {
	if errors.Is(err, ErrNotFound) {
		return ErrNotFound
	}
	return s.fault(op, err)
}

func (s *Service) fault(op string, err error) error {
	s.log.WithError(err).WithField("op", op).Error("task storage fault")
	return &StorageError{Op: op, Err: err}
}
