// Package db opens and bootstraps task storage.
package db

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"task-tracker/internal/config"
	"task-tracker/pkg/task"
)

// codeInvalidCatalog is the PostgreSQL error raised when connecting to a
// database that does not exist.
const codeInvalidCatalog = "3D000"

// Storage is an opened task store plus the handle that owns its
// connections.
type Storage struct {
	Store task.Store
	ping  func(context.Context) error
	close func()
}

// Ping verifies the storage is reachable.
func (s *Storage) Ping(ctx context.Context) error { return s.ping(ctx) }

// Close releases every connection.
func (s *Storage) Close() { s.close() }

// Open connects to the configured driver, ensures the tasks table exists
// and, when enabled, seeds sample rows into an empty table.
func Open(ctx context.Context, cfg config.DatabaseConfig, logger *log.Logger) (*Storage, error) {
	var (
		st  *Storage
		err error
	)
	switch cfg.Driver {
	case config.DriverPostgres:
		st, err = openPostgres(ctx, cfg, logger)
	case config.DriverSQLite:
		st, err = openSQLite(cfg)
	default:
		return nil, fmt.Errorf("unknown driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := st.Store.EnsureTable(ctx); err != nil {
		st.Close()
		return nil, fmt.Errorf("ensure tasks table: %w", err)
	}
	logger.Info("table \"tasks\" ready")

	if cfg.Seed {
		seeded, err := task.Seed(ctx, st.Store)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("seed sample tasks: %w", err)
		}
		if seeded {
			logger.WithField("rows", len(task.SampleTitles)).Info("sample tasks inserted")
		}
	}
	return st, nil
}

func openSQLite(cfg config.DatabaseConfig) (*Storage, error) {
	s, err := task.NewSQLiteStore(cfg.SQLitePath)
	if err != nil {
		return nil, err
	}
	return &Storage{
		Store: s,
		ping:  s.Ping,
		close: func() { _ = s.Close() },
	}, nil
}

func openPostgres(ctx context.Context, cfg config.DatabaseConfig, logger *log.Logger) (*Storage, error) {
	pool, err := Connect(ctx, cfg)
	if isMissingDatabase(err) {
		logger.WithField("database", cfg.Name).Info("database missing, creating it")
		if err := EnsureDatabase(ctx, cfg); err != nil {
			return nil, err
		}
		pool, err = Connect(ctx, cfg)
	}
	if err != nil {
		return nil, err
	}
	logger.WithFields(log.Fields{
		"host":      cfg.Host,
		"database":  cfg.Name,
		"max_conns": cfg.MaxConns,
	}).Info("connected to PostgreSQL")
	return &Storage{
		Store: task.NewPgStore(pool),
		ping:  pool.Ping,
		close: pool.Close,
	}, nil
}

// DSN renders cfg as a PostgreSQL connection URL for database name.
func DSN(cfg config.DatabaseConfig, name string) string {
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:   "/" + name,
	}
	if cfg.Password != "" {
		u.User = url.UserPassword(cfg.User, cfg.Password)
	} else if cfg.User != "" {
		u.User = url.User(cfg.User)
	}
	q := url.Values{}
	if cfg.SSLMode != "" {
		q.Set("sslmode", cfg.SSLMode)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// Connect opens a connection pool bounded by cfg.MaxConns and verifies it
// with a ping. Acquires beyond the bound wait for a free connection.
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	if cfg.MaxConns < 1 || cfg.MaxConns > config.MaxPoolConns {
		return nil, fmt.Errorf("pool size %d out of range 1..%d", cfg.MaxConns, config.MaxPoolConns)
	}
	pcfg, err := pgxpool.ParseConfig(DSN(cfg, cfg.Name))
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	pcfg.MaxConns = int32(cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping %s: %w", cfg.Name, err)
	}
	return pool, nil
}

// EnsureDatabase creates cfg.Name through the server's maintenance
// database when it does not exist yet.
func EnsureDatabase(ctx context.Context, cfg config.DatabaseConfig) error {
	conn, err := pgx.Connect(ctx, DSN(cfg, "postgres"))
	if err != nil {
		return fmt.Errorf("connect to maintenance database: %w", err)
	}
	defer conn.Close(ctx)

	var exists bool
	err = conn.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)`, cfg.Name).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check database %s: %w", cfg.Name, err)
	}
	if exists {
		return nil
	}
	if _, err := conn.Exec(ctx, `CREATE DATABASE `+pgx.Identifier{cfg.Name}.Sanitize()); err != nil {
		return fmt.Errorf("create database %s: %w", cfg.Name, err)
	}
	return nil
}

func isMissingDatabase(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeInvalidCatalog
}
