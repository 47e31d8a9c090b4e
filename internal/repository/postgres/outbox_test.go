package postgres

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/consult-api/internal/model"
)

var outboxCols = []string{
	"id", "event_type", "payload", "status", "error_message", "retry_count",
	"created_at", "processed_at", "updated_at",
}

func TestOutboxRepository_Create(t *testing.T) {
	base, mock, _ := setupBase(t)
	repo := NewOutboxRepository(base)

	mock.ExpectExec("INSERT INTO outbox_events").
		WithArgs(sqlmock.AnyArg(), "notification.created", []byte(`{"a":1}`), "pending", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	evt := &model.OutboxEvent{EventType: "notification.created", Payload: json.RawMessage(`{"a":1}`)}
	require.NoError(t, repo.Create(context.Background(), evt))
	assert.NotEqual(t, uuid.Nil, evt.ID)
	assert.Equal(t, "pending", evt.Status)

	assert.Error(t, repo.Create(context.Background(), &model.OutboxEvent{EventType: "x"}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOutboxRepository_ProcessPending(t *testing.T) {
	base, mock, _ := setupBase(t)
	repo := NewOutboxRepository(base)

	ok, bad, exhausted := uuid.New(), uuid.New(), uuid.New()
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM outbox_events WHERE status = \$1 ORDER BY created_at ASC LIMIT \$2 FOR UPDATE SKIP LOCKED`).
		WithArgs("pending", 10).
		WillReturnRows(sqlmock.NewRows(outboxCols).
			AddRow(ok.String(), "notification.created", []byte(`{}`), "pending", nil, 0, now, nil, now).
			AddRow(bad.String(), "notification.created", []byte(`{}`), "pending", nil, 0, now, nil, now).
			AddRow(exhausted.String(), "notification.created", []byte(`{}`), "pending", nil, 2, now, nil, now))
	mock.ExpectExec(`UPDATE outbox_events SET status = \$1, processed_at = NOW\(\)`).
		WithArgs("processed", ok).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE outbox_events SET status = \$1, error_message = \$2, retry_count = retry_count \+ 1`).
		WithArgs("pending", "broker down", bad).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE outbox_events SET status = \$1, error_message = \$2`).
		WithArgs("failed", "broker down", exhausted).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	processed, failed, err := repo.ProcessPending(context.Background(), 10, 3, func(evt *model.OutboxEvent) error {
		if evt.ID == ok {
			return nil
		}
		return stderrors.New("broker down")
	})
	require.NoError(t, err)
	assert.Equal(t, 1, processed)
	assert.Equal(t, 2, failed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOutboxRepository_ProcessPendingRollsBack(t *testing.T) {
	base, mock, _ := setupBase(t)
	repo := NewOutboxRepository(base)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM outbox_events`).WillReturnError(stderrors.New("connection reset"))
	mock.ExpectRollback()

	_, _, err := repo.ProcessPending(context.Background(), 10, 3, func(*model.OutboxEvent) error { return nil })
	assert.ErrorContains(t, err, "connection reset")
	require.NoError(t, mock.ExpectationsWereMet())
}
