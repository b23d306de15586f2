package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RenderEvent is one row of the render audit trail.
type RenderEvent struct {
	ID             int64     `json:"id"`
	OwnerID        string    `json:"owner_id"`
	ProjectName    string    `json:"project_name"`
	DurationMs     int64     `json:"duration_ms"`
	Status         string    `json:"status"`
	ProviderStatus int       `json:"provider_status"`
	Error          string    `json:"error,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// EventRepository persists render events in Postgres. Best-effort by
// contract: a nil repository (no DB configured) accepts and drops events.
type EventRepository struct {
	db *pgxpool.Pool
}

func NewEventRepository(db *pgxpool.Pool) *EventRepository {
	if db == nil {
		return nil
	}
	return &EventRepository{db: db}
}

// EnsureSchema creates the audit table if it does not exist.
func (r *EventRepository) EnsureSchema(ctx context.Context) error {
	if r == nil {
		return nil
	}
	const q = `
CREATE TABLE IF NOT EXISTS render_events (
	id BIGSERIAL PRIMARY KEY,
	owner_id TEXT NOT NULL,
	project_name TEXT NOT NULL DEFAULT '',
	duration_ms BIGINT NOT NULL,
	status TEXT NOT NULL,
	provider_status INT NOT NULL DEFAULT 0,
	error TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`
	if _, err := r.db.Exec(ctx, q); err != nil {
		return fmt.Errorf("ensure render_events schema: %w", err)
	}
	return nil
}

// Record inserts one event.
func (r *EventRepository) Record(ctx context.Context, ev RenderEvent) error {
	if r == nil {
		return nil
	}
	const q = `
INSERT INTO render_events (owner_id, project_name, duration_ms, status, provider_status, error)
VALUES ($1, $2, $3, $4, $5, $6);
`
	_, err := r.db.Exec(ctx, q,
		ev.OwnerID, ev.ProjectName, ev.DurationMs, ev.Status, ev.ProviderStatus, ev.Error)
	if err != nil {
		return fmt.Errorf("record render event: %w", err)
	}
	return nil
}

// RecentByOwner returns the newest events for a user, for diagnostics.
func (r *EventRepository) RecentByOwner(ctx context.Context, ownerID string, limit int) ([]RenderEvent, error) {
	if r == nil {
		return nil, nil
	}
	const q = `
SELECT id, owner_id, project_name, duration_ms, status, provider_status, error, created_at
FROM render_events
WHERE owner_id = $1
ORDER BY created_at DESC
LIMIT $2;
`
	rows, err := r.db.Query(ctx, q, ownerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]RenderEvent, 0, limit)
	for rows.Next() {
		var ev RenderEvent
		if err := rows.Scan(&ev.ID, &ev.OwnerID, &ev.ProjectName, &ev.DurationMs,
			&ev.Status, &ev.ProviderStatus, &ev.Error, &ev.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}
