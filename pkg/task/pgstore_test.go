package task

import (
	"context"
	"os"
	"os/exec"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

// Interface compliance (no database needed).
var (
	_ Store = (*PgStore)(nil)
	_ Store = (*SQLiteStore)(nil)
)

// dockerAvailable checks whether the Docker daemon is reachable.
// testcontainers-go panics when Docker is missing, so check first.
func dockerAvailable() bool {
	return exec.Command("docker", "info").Run() == nil
}

// testDatabaseURL returns TEST_DATABASE_URL, or starts a throwaway
// PostgreSQL container. The test is skipped when neither is available.
func testDatabaseURL(t *testing.T) string {
	t.Helper()

	if url := os.Getenv("TEST_DATABASE_URL"); url != "" {
		return url
	}
	if !dockerAvailable() {
		t.Skip("Docker not available, skipping PostgreSQL tests")
	}

	ctx := context.Background()
	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("tasks_test"),
		postgres.WithUsername("tasks"),
		postgres.WithPassword("tasks"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Skipf("failed to start PostgreSQL container: %v", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	url, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return url
}

func TestPgStoreContract(t *testing.T) {
	url := testDatabaseURL(t)
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	if err := pool.Ping(ctx); err != nil {
		t.Skipf("database ping failed: %v", err)
	}

	runStoreContract(t, func(t *testing.T) Store {
		_, err := pool.Exec(ctx, `DROP TABLE IF EXISTS tasks`)
		require.NoError(t, err)
		s := NewPgStore(pool)
		require.NoError(t, s.EnsureTable(ctx))
		setClock(s, newStepClock().Now)
		return s
	})
}
