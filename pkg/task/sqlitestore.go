package task

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// SQLiteStore is a task store on a local SQLite database.
type SQLiteStore struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewSQLiteStore opens (or creates) the SQLite database at path. Use
// ":memory:" for a throwaway database.
//
// SQLite serializes writers, so the handle is limited to one connection;
// callers beyond it wait for the connection to free up. This also keeps
// an in-memory database on a single connection.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if path != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enabling WAL mode: %w", err)
		}
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	return &SQLiteStore{db: db, now: storeNow}, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// EnsureTable creates the tasks table if it doesn't exist.
func (s *SQLiteStore) EnsureTable(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS tasks (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			title      TEXT NOT NULL CHECK (length(trim(title)) > 0 AND length(title) <= 255),
			status     TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'completed')),
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_tasks_created_at ON tasks(created_at DESC, id DESC);`)
	return err
}

// List returns all tasks, most recently created first.
func (s *SQLiteStore) List(ctx context.Context) ([]Task, error) {
	tasks := []Task{}
	err := s.db.SelectContext(ctx, &tasks, `SELECT `+taskColumns+` FROM tasks ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	for i := range tasks {
		normalizeTimes(&tasks[i])
	}
	return tasks, nil
}

// Get retrieves a single task by ID.
func (s *SQLiteStore) Get(ctx context.Context, id int64) (*Task, error) {
	var t Task
	err := s.db.GetContext(ctx, &t, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("get task %d: %w", id, sqlNotFound(err))
	}
	normalizeTimes(&t)
	return &t, nil
}

// Insert stores a new pending task. title must already be normalized.
func (s *SQLiteStore) Insert(ctx context.Context, title string) (*Task, error) {
	now := s.now()
	var t Task
	err := s.db.QueryRowxContext(ctx, `
		INSERT INTO tasks (title, status, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		RETURNING `+taskColumns,
		title, string(StatusPending), now, now).StructScan(&t)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	normalizeTimes(&t)
	return &t, nil
}

// UpdateByID applies the set fields and refreshes updated_at in a single
// statement.
func (s *SQLiteStore) UpdateByID(ctx context.Context, id int64, fields UpdateFields) (*Task, error) {
	var t Task
	err := s.db.QueryRowxContext(ctx, `
		UPDATE tasks
		SET title = COALESCE(?, title),
		    status = COALESCE(?, status),
		    updated_at = MAX(?, created_at)
		WHERE id = ?
		RETURNING `+taskColumns,
		fields.Title, statusArg(fields.Status), s.now(), id).StructScan(&t)
	if err != nil {
		return nil, fmt.Errorf("update task %d: %w", id, sqlNotFound(err))
	}
	normalizeTimes(&t)
	return &t, nil
}

// DeleteByID removes a task permanently.
func (s *SQLiteStore) DeleteByID(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete task %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("delete task %d: %w", id, ErrNotFound)
	}
	return nil
}

// Count returns total task count.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM tasks`)
	return n, err
}

// Stats returns the per-status counts from a single snapshot.
func (s *SQLiteStore) Stats(ctx context.Context) (Summary, error) {
	var row struct {
		Total     int `db:"total"`
		Completed int `db:"completed"`
	}
	err := s.db.GetContext(ctx, &row, `
		SELECT COUNT(*) AS total,
		       COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS completed
		FROM tasks`, string(StatusCompleted))
	if err != nil {
		return Summary{}, err
	}
	return Summary{Total: row.Total, Completed: row.Completed, Pending: row.Total - row.Completed}, nil
}

func sqlNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func normalizeTimes(t *Task) {
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
}
