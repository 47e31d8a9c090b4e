package repository

import (
	"context"

	"github.com/jwalitptl/consult-api/internal/model"
)

// OutboxRepository is the slice of outbox storage the worker needs.
type OutboxRepository interface {
	// ProcessPending locks up to limit pending events, hands each to fn and
	// records the outcome, all in one transaction.
	ProcessPending(ctx context.Context, limit, maxRetries int, fn func(*model.OutboxEvent) error) (processed, failed int, err error)
}
