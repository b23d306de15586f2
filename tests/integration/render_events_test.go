package integration

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	renderrepo "github.com/planvista/planvista-backend/internal/render/repository"
)

// Needs a real Postgres instance; set TEST_DB_DSN to run.
func setupEventRepo(t *testing.T) *renderrepo.EventRepository {
	t.Helper()

	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set, skipping Postgres integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = pool.Exec(ctx, "DROP TABLE IF EXISTS render_events")
	require.NoError(t, err)

	repo := renderrepo.NewEventRepository(pool)
	require.NoError(t, repo.EnsureSchema(ctx))
	return repo
}

func TestEventRepository_RecordAndQuery(t *testing.T) {
	repo := setupEventRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Record(ctx, renderrepo.RenderEvent{
		OwnerID:     "alice",
		ProjectName: "Loft",
		DurationMs:  4200,
		Status:      "ok",
	}))
	require.NoError(t, repo.Record(ctx, renderrepo.RenderEvent{
		OwnerID:        "alice",
		ProjectName:    "Villa",
		DurationMs:     900,
		Status:         "error",
		ProviderStatus: 429,
		Error:          "provider error (status 429): quota exceeded",
	}))
	require.NoError(t, repo.Record(ctx, renderrepo.RenderEvent{
		OwnerID:    "bob",
		DurationMs: 100,
		Status:     "ok",
	}))

	events, err := repo.RecentByOwner(ctx, "alice", 10)
	require.NoError(t, err)
	require.Len(t, events, 2)

	for _, ev := range events {
		assert.Equal(t, "alice", ev.OwnerID)
		assert.False(t, ev.CreatedAt.IsZero())
	}

	var statuses []string
	for _, ev := range events {
		statuses = append(statuses, ev.Status)
	}
	assert.ElementsMatch(t, []string{"ok", "error"}, statuses)
}

func TestEventRepository_NilIsNoop(t *testing.T) {
	repo := renderrepo.NewEventRepository(nil)
	ctx := context.Background()

	assert.NoError(t, repo.EnsureSchema(ctx))
	assert.NoError(t, repo.Record(ctx, renderrepo.RenderEvent{OwnerID: "alice"}))

	events, err := repo.RecentByOwner(ctx, "alice", 10)
	assert.NoError(t, err)
	assert.Empty(t, events)
}
