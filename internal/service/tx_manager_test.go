package service

import (
	"context"
	"errors"
	"testing"

	"gw-ipn-relay/internal/custom_err"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPgxTxManager_WithTx_Commit(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectCommit()

	called := false
	err = NewPgxTxManager(mock).WithTx(context.Background(), func(tx pgx.Tx) error {
		called = true
		assert.NotNil(t, tx)
		return nil
	})

	assert.NoError(t, err)
	assert.True(t, called)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgxTxManager_WithTx_BusinessErrorRollsBack(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectRollback()

	err = NewPgxTxManager(mock).WithTx(context.Background(), func(tx pgx.Tx) error {
		return custom_err.ErrInsufficientBalance
	})

	assert.ErrorIs(t, err, custom_err.ErrInsufficientBalance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgxTxManager_WithTx_BeginError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin().WillReturnError(errors.New("cannot begin transaction"))

	err = NewPgxTxManager(mock).WithTx(context.Background(), func(tx pgx.Tx) error {
		t.Fatal("function should not be called")
		return nil
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot begin transaction")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgxTxManager_WithTx_CommitError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(errors.New("cannot commit transaction"))

	err = NewPgxTxManager(mock).WithTx(context.Background(), func(tx pgx.Tx) error {
		return nil
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot commit transaction")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgxTxManager_WithTx_PanicRollsBack(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectRollback()

	assert.Panics(t, func() {
		_ = NewPgxTxManager(mock).WithTx(context.Background(), func(tx pgx.Tx) error {
			panic("boom")
		})
	})
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgxTxManager_WithTx_ContextCanceled(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	mock.ExpectBegin().WillReturnError(context.Canceled)

	err = NewPgxTxManager(mock).WithTx(ctx, func(tx pgx.Tx) error {
		t.Fatal("function should not be called")
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
}
