package task

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const taskColumns = `id, title, status, created_at, updated_at`

// PgStore is a PostgreSQL-backed task store.
type PgStore struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewPgStore creates a PgStore.
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool, now: storeNow}
}

func storeNow() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// EnsureTable creates the tasks table if it doesn't exist.
func (s *PgStore) EnsureTable(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS tasks (
			id         BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
			title      VARCHAR(255) NOT NULL CHECK (btrim(title) <> ''),
			status     TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'completed')),
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			CHECK (updated_at >= created_at)
		)`)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS idx_tasks_created_at ON tasks(created_at DESC, id DESC)`)
	return err
}

// List returns all tasks, most recently created first.
func (s *PgStore) List(ctx context.Context) ([]Task, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+taskColumns+` FROM tasks ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()
	return scanTaskRows(rows)
}

// Get retrieves a single task by ID.
func (s *PgStore) Get(ctx context.Context, id int64) (*Task, error) {
	t, err := scanTask(s.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("get task %d: %w", id, pgNotFound(err))
	}
	return t, nil
}

// Insert stores a new pending task. title must already be normalized.
func (s *PgStore) Insert(ctx context.Context, title string) (*Task, error) {
	now := s.now()
	t, err := scanTask(s.pool.QueryRow(ctx, `
		INSERT INTO tasks (title, status, created_at, updated_at)
		VALUES ($1, $2, $3, $3)
		RETURNING `+taskColumns,
		title, string(StatusPending), now))
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	return t, nil
}

// UpdateByID applies the set fields and refreshes updated_at in a single
// statement, so both fields change together or not at all.
func (s *PgStore) UpdateByID(ctx context.Context, id int64, fields UpdateFields) (*Task, error) {
	t, err := scanTask(s.pool.QueryRow(ctx, `
		UPDATE tasks
		SET title = COALESCE($1::text, title),
		    status = COALESCE($2::text, status),
		    updated_at = GREATEST($3, created_at)
		WHERE id = $4
		RETURNING `+taskColumns,
		fields.Title, statusArg(fields.Status), s.now(), id))
	if err != nil {
		return nil, fmt.Errorf("update task %d: %w", id, pgNotFound(err))
	}
	return t, nil
}

// DeleteByID removes a task permanently.
func (s *PgStore) DeleteByID(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete task %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete task %d: %w", id, ErrNotFound)
	}
	return nil
}

// Count returns total task count.
func (s *PgStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tasks`).Scan(&n)
	return n, err
}

// Stats returns the per-status counts from a single snapshot.
func (s *PgStore) Stats(ctx context.Context) (Summary, error) {
	var sum Summary
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE status = $1)
		FROM tasks`, string(StatusCompleted)).Scan(&sum.Total, &sum.Completed)
	if err != nil {
		return Summary{}, err
	}
	sum.Pending = sum.Total - sum.Completed
	return sum, nil
}

func pgNotFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func statusArg(s *Status) *string {
	if s == nil {
		return nil
	}
	v := string(*s)
	return &v
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*Task, error) {
	var t Task
	var status string
	if err := row.Scan(&t.ID, &t.Title, &status, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.Status = Status(status)
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	return &t, nil
}

func scanTaskRows(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]Task, error) {
	tasks := []Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration: %w", err)
	}
	return tasks, nil
}
