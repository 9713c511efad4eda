package repository

import (
	"context"
	"fmt"
	"time"

	"service-booking/internal/data/entity"
	"service-booking/pkg/database"

	"go.uber.org/zap"
)

type OutboxRepository interface {
	Create(ctx context.Context, event *entity.OutboxEvent) error
	// FetchPending locks up to limit unsent events, skipping rows held by another relay.
	FetchPending(ctx context.Context, limit, maxAttempts int) ([]*entity.OutboxEvent, error)
	MarkSent(ctx context.Context, id string, at time.Time) error
	IncrementAttempts(ctx context.Context, id string) error
}

type outboxRepository struct {
	db  database.Querier
	log *zap.Logger
}

func NewOutboxRepository(db database.Querier, log *zap.Logger) OutboxRepository {
	return &outboxRepository{
		db:  db,
		log: log.With(zap.String("repository", "outbox")),
	}
}

func (r *outboxRepository) Create(ctx context.Context, event *entity.OutboxEvent) error {
	query := `
		INSERT INTO outbox_events (id, aggregate_type, aggregate_id, event_type, payload, status, attempts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	if event.Status == "" {
		event.Status = entity.OutboxStatusPending
	}

	_, err := r.db.Exec(ctx, query,
		event.ID,
		event.AggregateType,
		event.AggregateID,
		event.EventType,
		[]byte(event.Payload),
		event.Status,
		event.Attempts,
		event.CreatedAt,
	)
	if err != nil {
		r.log.Error("Failed to write outbox event",
			zap.Error(err),
			zap.String("event_type", event.EventType),
			zap.String("aggregate_id", event.AggregateID),
		)
		return fmt.Errorf("create outbox event: %w", err)
	}

	return nil
}

func (r *outboxRepository) FetchPending(ctx context.Context, limit, maxAttempts int) ([]*entity.OutboxEvent, error) {
	query := `
		SELECT id, aggregate_type, aggregate_id, event_type, payload, status, attempts, created_at, sent_at
		FROM outbox_events
		WHERE status = 'pending' AND attempts < $2
		ORDER BY created_at ASC, id ASC
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`

	rows, err := r.db.Query(ctx, query, limit, maxAttempts)
	if err != nil {
		r.log.Error("Failed to fetch pending outbox events", zap.Error(err))
		return nil, fmt.Errorf("fetch pending outbox events: %w", err)
	}
	defer rows.Close()

	var events []*entity.OutboxEvent
	for rows.Next() {
		var e entity.OutboxEvent
		var payload []byte
		if err := rows.Scan(&e.ID, &e.AggregateType, &e.AggregateID, &e.EventType, &payload,
			&e.Status, &e.Attempts, &e.CreatedAt, &e.SentAt); err != nil {
			return nil, fmt.Errorf("scan outbox event row: %w", err)
		}
		e.Payload = payload
		events = append(events, &e)
	}

	return events, rows.Err()
}

func (r *outboxRepository) MarkSent(ctx context.Context, id string, at time.Time) error {
	if _, err := r.db.Exec(ctx, `UPDATE outbox_events SET status = 'sent', sent_at = $2 WHERE id = $1`, id, at); err != nil {
		r.log.Error("Failed to mark outbox event sent", zap.Error(err), zap.String("event_id", id))
		return fmt.Errorf("mark outbox event sent: %w", err)
	}
	return nil
}

func (r *outboxRepository) IncrementAttempts(ctx context.Context, id string) error {
	if _, err := r.db.Exec(ctx, `UPDATE outbox_events SET attempts = attempts + 1 WHERE id = $1`, id); err != nil {
		r.log.Error("Failed to bump outbox attempts", zap.Error(err), zap.String("event_id", id))
		return fmt.Errorf("increment outbox attempts: %w", err)
	}
	return nil
}
