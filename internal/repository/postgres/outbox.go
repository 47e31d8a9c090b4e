package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/consult-api/internal/model"
	"github.com/jwalitptl/consult-api/internal/repository"
	pkgrepo "github.com/jwalitptl/consult-api/pkg/repository"
)

type outboxRepository struct {
	BaseRepository
}

// OutboxStore is written to by the API and drained by the worker.
type OutboxStore interface {
	repository.OutboxRepository
	pkgrepo.OutboxRepository
}

func NewOutboxRepository(base BaseRepository) OutboxStore {
	return &outboxRepository{base}
}

func (r *outboxRepository) Create(ctx context.Context, event *model.OutboxEvent) error {
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}
	if event.Payload == nil {
		return fmt.Errorf("event payload cannot be nil")
	}

	query := `
		INSERT INTO outbox_events (
			id, event_type, payload, status, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6
		)
	`
	event.ID = uuid.New()
	event.CreatedAt = time.Now()
	event.UpdatedAt = event.CreatedAt
	event.Status = string(model.OutboxStatusPending)

	_, err := r.conn(ctx).ExecContext(ctx, query,
		event.ID,
		event.EventType,
		[]byte(event.Payload),
		event.Status,
		event.CreatedAt,
		event.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create outbox event: %w", err)
	}
	return nil
}

// ProcessPending locks a batch with SKIP LOCKED so several workers can drain
// the table concurrently. An event that keeps failing is parked as failed
// once it has been retried maxRetries times.
func (r *outboxRepository) ProcessPending(ctx context.Context, limit, maxRetries int, fn func(*model.OutboxEvent) error) (processed, failed int, err error) {
	err = r.WithTx(ctx, func(ctx context.Context) error {
		query := `
			SELECT id, event_type, payload, status, error_message, retry_count,
				   created_at, processed_at, updated_at
			FROM outbox_events
			WHERE status = $1
			ORDER BY created_at ASC
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		`
		var events []*model.OutboxEvent
		if err := r.conn(ctx).SelectContext(ctx, &events, query, string(model.OutboxStatusPending), limit); err != nil {
			return fmt.Errorf("failed to get pending events: %w", err)
		}

		for _, evt := range events {
			if fnErr := fn(evt); fnErr != nil {
				failed++
				if err := r.markFailed(ctx, evt, fnErr, maxRetries); err != nil {
					return err
				}
				continue
			}
			processed++
			if err := r.markProcessed(ctx, evt.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return processed, failed, nil
}

func (r *outboxRepository) markProcessed(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE outbox_events
		SET status = $1, processed_at = NOW(), error_message = NULL, updated_at = NOW()
		WHERE id = $2
	`
	if _, err := r.conn(ctx).ExecContext(ctx, query, string(model.OutboxStatusProcessed), id); err != nil {
		return fmt.Errorf("failed to mark event processed: %w", err)
	}
	return nil
}

func (r *outboxRepository) markFailed(ctx context.Context, evt *model.OutboxEvent, cause error, maxRetries int) error {
	status := model.OutboxStatusPending
	if evt.RetryCount+1 >= maxRetries {
		status = model.OutboxStatusFailed
	}
	msg := cause.Error()

	query := `
		UPDATE outbox_events
		SET status = $1, error_message = $2, retry_count = retry_count + 1, updated_at = NOW()
		WHERE id = $3
	`
	if _, err := r.conn(ctx).ExecContext(ctx, query, string(status), msg, evt.ID); err != nil {
		return fmt.Errorf("failed to mark event failed: %w", err)
	}
	return nil
}
