package task

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"
)

// Status is the two-state lifecycle of a task.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

// MaxTitleLength is the longest title, in characters, the store accepts.
const MaxTitleLength = 255

// Valid reports whether s is one of the defined statuses.
func (s Status) Valid() bool {
	return s == StatusPending || s == StatusCompleted
}

// Toggle returns the opposite status.
func (s Status) Toggle() Status {
	if s == StatusCompleted {
		return StatusPending
	}
	return StatusCompleted
}

// Task is a titled item with a two-state status and timestamps.
type Task struct {
	ID        int64     `json:"id" db:"id"`
	Title     string    `json:"title" db:"title"`
	Status    Status    `json:"status" db:"status"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// UpdateFields is a partial update. Nil members are left unchanged.
type UpdateFields struct {
	Title  *string `json:"title,omitempty"`
	Status *Status `json:"status,omitempty"`
}

// IsEmpty reports whether neither field is set.
func (f UpdateFields) IsEmpty() bool {
	return f.Title == nil && f.Status == nil
}

// Summary holds the per-status counts of a task collection.
type Summary struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Pending   int `json:"pending"`
}

// Summarize counts tasks by status.
func Summarize(tasks []Task) Summary {
	s := Summary{Total: len(tasks)}
	for _, t := range tasks {
		if t.Status == StatusCompleted {
			s.Completed++
		}
	}
	s.Pending = s.Total - s.Completed
	return s
}

// Store is the contract for task persistence.
//
// UpdateByID and DeleteByID return ErrNotFound when no row matches id.
type Store interface {
	List(ctx context.Context) ([]Task, error)
	Get(ctx context.Context, id int64) (*Task, error)
	Insert(ctx context.Context, title string) (*Task, error)
	UpdateByID(ctx context.Context, id int64, fields UpdateFields) (*Task, error)
	DeleteByID(ctx context.Context, id int64) error
	Count(ctx context.Context) (int, error)
	// Stats counts all tasks and completed tasks in one statement.
	Stats(ctx context.Context) (Summary, error)
	EnsureTable(ctx context.Context) error
}

// NormalizeTitle trims surrounding whitespace and checks the result
// against the title invariants.
func NormalizeTitle(title string) (string, error) {
	t := strings.TrimSpace(title)
	if t == "" {
		return "", &ValidationError{Message: "Task title is required"}
	}
	if utf8.RuneCountInString(t) > MaxTitleLength {
		return "", &ValidationError{Message: "Task title must be 255 characters or fewer"}
	}
	return t, nil
}

// SampleTitles are inserted into an empty table by Seed.
var SampleTitles = []struct {
	Title  string
	Status Status
}{
	{"Complete project documentation", StatusPending},
	{"Review pull requests", StatusCompleted},
	{"Setup AWS RDS connection", StatusPending},
}

// Seed inserts the sample rows when the store is empty. It reports
// whether anything was inserted.
func Seed(ctx context.Context, s Store) (bool, error) {
	n, err := s.Count(ctx)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}
	for _, sample := range SampleTitles {
		t, err := s.Insert(ctx, sample.Title)
		if err != nil {
			return false, err
		}
		if sample.Status != StatusPending {
			st := sample.Status
			if _, err := s.UpdateByID(ctx, t.ID, UpdateFields{Status: &st}); err != nil {
				return false, err
			}
		}
	}
	return true, nil
}
