package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/drinkhub/internal/domain/order"
)

const (
	appendEventSQL = `INSERT INTO outbox_events (id, event_type, aggregate_key, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	pendingEventsSQL = `SELECT id::text, event_type, aggregate_key, payload::text, created_at
		FROM outbox_events
		WHERE published_at IS NULL
		ORDER BY seq
		LIMIT $1`

	markPublishedSQL = `UPDATE outbox_events SET published_at = now() WHERE id = $1`
)

// AppendEvent writes the event to the outbox within the order transaction.
func (t *tx) AppendEvent(ctx context.Context, e order.Event) error {
	if _, err := t.q.Exec(ctx, appendEventSQL, e.ID, e.Type, e.Key, string(e.Payload), e.CreatedAt); err != nil {
		return fmt.Errorf("appending %s event for %q: %w", e.Type, e.Key, err)
	}
	return nil
}

// OutboxRepository reads and acknowledges outbox events.
type OutboxRepository struct {
	pool *pgxpool.Pool
}

// NewOutboxRepository returns an OutboxRepository that uses the given pool.
func NewOutboxRepository(pool *pgxpool.Pool) *OutboxRepository {
	return &OutboxRepository{pool: pool}
}

// Pending returns up to limit unpublished events in append order.
func (r *OutboxRepository) Pending(ctx context.Context, limit int) ([]order.Event, error) {
	rows, err := r.pool.Query(ctx, pendingEventsSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("listing pending events: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (order.Event, error) {
		var (
			e       order.Event
			payload string
		)
		err := row.Scan(&e.ID, &e.Type, &e.Key, &payload, &e.CreatedAt)
		e.Payload = []byte(payload)
		return e, err
	})
}

// MarkPublished records that the event was delivered.
func (r *OutboxRepository) MarkPublished(ctx context.Context, id string) error {
	if _, err := r.pool.Exec(ctx, markPublishedSQL, id); err != nil {
		return fmt.Errorf("marking event %q published: %w", id, err)
	}
	return nil
}
