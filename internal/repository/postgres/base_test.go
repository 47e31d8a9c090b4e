package postgres

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/consult-api/pkg/metrics"
)

func setupBase(t *testing.T) (BaseRepository, sqlmock.Sqlmock, *metrics.Metrics) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	m := metrics.Noop()
	return NewBaseRepository(sqlx.NewDb(db, "sqlmock"), m), mock, m
}

func TestWithTxCommits(t *testing.T) {
	base, mock, m := setupBase(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE things").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := base.WithTx(context.Background(), func(ctx context.Context) error {
		_, ok := base.conn(ctx).(*sqlx.Tx)
		assert.True(t, ok, "repositories see the transaction")
		_, err := base.conn(ctx).ExecContext(ctx, "UPDATE things SET x = 1")
		return err
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, float64(1), testutil.ToFloat64(m.DatabaseOperations.WithLabelValues("commit", "success")))
}

func TestWithTxRollsBackOnError(t *testing.T) {
	base, mock, _ := setupBase(t)
	boom := stderrors.New("boom")

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := base.WithTx(context.Background(), func(ctx context.Context) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTxNestedJoinsOuter(t *testing.T) {
	base, mock, _ := setupBase(t)

	mock.ExpectBegin()
	mock.ExpectCommit()

	err := base.WithTx(context.Background(), func(ctx context.Context) error {
		return base.WithTx(ctx, func(inner context.Context) error {
			assert.Same(t, base.conn(ctx), base.conn(inner))
			return nil
		})
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConnWithoutTxUsesPool(t *testing.T) {
	base, _, _ := setupBase(t)
	_, ok := base.conn(context.Background()).(*sqlx.DB)
	assert.True(t, ok)
}
