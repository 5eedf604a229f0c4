package postgres

import (
	"context"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	pgmodule "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/fhuber/dozent/pkg/session"
)

func init() {
	// Configure testcontainers to use podman.
	// Detect the podman socket from `podman machine inspect`.
	if os.Getenv("DOCKER_HOST") == "" {
		out, err := exec.Command("podman", "machine", "inspect", "--format", "{{.ConnectionInfo.PodmanSocket.Path}}").Output()
		if err == nil {
			sock := strings.TrimSpace(string(out))
			if sock != "" {
				os.Setenv("DOCKER_HOST", "unix://"+sock)
			}
		}
	}
	// Ryuk needs privileged mode with podman.
	if os.Getenv("TESTCONTAINERS_RYUK_CONTAINER_PRIVILEGED") == "" {
		os.Setenv("TESTCONTAINERS_RYUK_CONTAINER_PRIVILEGED", "true")
	}
}

// setupTestDB starts a PostgreSQL container and returns a connected Store.
// Tests are skipped if no container runtime is available.
func setupTestDB(t *testing.T) *Store {
	t.Helper()

	if os.Getenv("SKIP_INTEGRATION") == "true" {
		t.Skip("SKIP_INTEGRATION=true, skipping PostgreSQL integration tests")
	}

	if _, err := exec.LookPath("podman"); err != nil {
		t.Skip("podman not found, skipping integration tests")
	}

	ctx := context.Background()

	container, err := pgmodule.Run(ctx,
		"postgres:16-alpine",
		pgmodule.WithDatabase("dozent_test"),
		pgmodule.WithUsername("test"),
		pgmodule.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Skipf("skipping: could not start PostgreSQL container (is podman running?): %v", err)
	}

	t.Cleanup(func() {
		container.Terminate(context.Background())
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("getting connection string: %v", err)
	}

	store, err := New(ctx, Config{
		DSN:            connStr,
		MaxConns:       5,
		MinConns:       1,
		MigrateOnStart: true,
	})
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}

	t.Cleanup(func() {
		store.Close()
	})

	return store
}

func TestPostgres_AppendAndRecent(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	for _, ex := range []session.Exchange{
		{UserMessage: "first q", AssistantMessage: "first a", CreatedAt: time.Now()},
		{UserMessage: "second q", AssistantMessage: "second a", CreatedAt: time.Now()},
		{UserMessage: "third q", AssistantMessage: "third a", CreatedAt: time.Now()},
	} {
		if err := store.AppendExchange(ctx, "sess_abc", ex); err != nil {
			t.Fatalf("AppendExchange failed: %v", err)
		}
	}

	exchanges, err := store.RecentExchanges(ctx, "sess_abc", 2)
	if err != nil {
		t.Fatalf("RecentExchanges failed: %v", err)
	}
	if len(exchanges) != 2 {
		t.Fatalf("expected 2 exchanges, got %d", len(exchanges))
	}

	// Oldest first within the returned window.
	if exchanges[0].UserMessage != "second q" || exchanges[1].UserMessage != "third q" {
		t.Errorf("unexpected window: %q, %q", exchanges[0].UserMessage, exchanges[1].UserMessage)
	}
}

func TestPostgres_SessionIsolation(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	store.AppendExchange(ctx, "sess_a", session.Exchange{UserMessage: "q", AssistantMessage: "a", CreatedAt: time.Now()})

	exchanges, err := store.RecentExchanges(ctx, "sess_b", 10)
	if err != nil {
		t.Fatalf("RecentExchanges failed: %v", err)
	}
	if len(exchanges) != 0 {
		t.Errorf("expected no exchanges for other session, got %d", len(exchanges))
	}
}

func TestPostgres_DeleteSession(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	store.AppendExchange(ctx, "sess_del", session.Exchange{UserMessage: "q", AssistantMessage: "a", CreatedAt: time.Now()})

	if err := store.DeleteSession(ctx, "sess_del"); err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}

	exchanges, err := store.RecentExchanges(ctx, "sess_del", 10)
	if err != nil {
		t.Fatalf("RecentExchanges failed: %v", err)
	}
	if len(exchanges) != 0 {
		t.Errorf("expected no exchanges after delete, got %d", len(exchanges))
	}
}

func TestPostgres_MigrationsAreIdempotent(t *testing.T) {
	store := setupTestDB(t)

	if err := store.migrate(context.Background()); err != nil {
		t.Fatalf("re-running migrations failed: %v", err)
	}
}
