package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"gw-ipn-relay/internal/custom_err"
	"gw-ipn-relay/internal/models"
	"gw-ipn-relay/internal/storage"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTransaction(txnID, usd string) *models.Transaction {
	return &models.Transaction{
		ID:          uuid.New(),
		TxnID:       txnID,
		GrossAmount: decimal.RequireFromString(usd),
		Currency:    "USD",
		AmountUSD:   decimal.RequireFromString(usd),
		PayerEmail:  "payer@example.com",
		PaymentDate: "10:00:00 Jan 01, 2024 PST",
		RecordedAt:  time.Now(),
	}
}

func TestLedgerRepository_AppendTransaction_Success(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewLedgerRepository(mock)
	tx := newTransaction("TX1", "100")

	mock.ExpectExec(regexp.QuoteMeta(storage.AppendTransactionQuery)).
		WithArgs(tx.ID, "TX1", "100", "USD", "100", tx.PayerEmail, tx.PaymentDate, "", tx.RecordedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = repo.AppendTransaction(context.Background(), tx)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepository_AppendTransaction_Duplicate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewLedgerRepository(mock)
	tx := newTransaction("TX1", "100")

	mock.ExpectExec(regexp.QuoteMeta(storage.AppendTransactionQuery)).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: pgUniqueViolation})

	err = repo.AppendTransaction(context.Background(), tx)

	assert.ErrorIs(t, err, custom_err.ErrDuplicateRequest)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepository_AppendTransaction_DBError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewLedgerRepository(mock)

	mock.ExpectExec(regexp.QuoteMeta(storage.AppendTransactionQuery)).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(errors.New("connection reset"))

	err = repo.AppendTransaction(context.Background(), newTransaction("TX2", "5"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage.AppendTransaction")
	assert.NotErrorIs(t, err, custom_err.ErrDuplicateRequest)
}

func TestLedgerRepository_TotalReceived(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewLedgerRepository(mock)

	mock.ExpectQuery(regexp.QuoteMeta(storage.TotalReceivedQuery)).
		WillReturnRows(pgxmock.NewRows([]string{"coalesce"}).AddRow("154.35"))

	total, err := repo.TotalReceived(context.Background())

	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("154.35").Equal(total))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepository_TotalCashedOut_InvalidNumeric(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewLedgerRepository(mock)

	mock.ExpectQuery(regexp.QuoteMeta(storage.TotalCashedOutQuery)).
		WillReturnRows(pgxmock.NewRows([]string{"coalesce"}).AddRow("NaN-ish"))

	_, err = repo.TotalCashedOut(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage.TotalCashedOut")
}

func TestLedgerRepository_RecentTransactions(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewLedgerRepository(mock)
	now := time.Now()
	id1, id2 := uuid.New(), uuid.New()

	columns := []string{"id", "txn_id", "gross_amount", "currency", "amount_usd", "payer_email", "payment_date", "subject", "recorded_at"}
	mock.ExpectQuery(regexp.QuoteMeta(storage.RecentTransactionsQuery)).
		WithArgs(10).
		WillReturnRows(pgxmock.NewRows(columns).
			AddRow(id2, "TX2", "50", "EUR", "54.3478", "b@example.com", "d2", "Gift", now).
			AddRow(id1, "TX1", "100", "USD", "100", "a@example.com", "d1", "", now.Add(-time.Minute)))

	txs, err := repo.RecentTransactions(context.Background(), 10)

	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, "TX2", txs[0].TxnID)
	assert.Equal(t, "Gift", txs[0].Subject)
	assert.True(t, decimal.RequireFromString("54.3478").Equal(txs[0].AmountUSD))
	assert.Equal(t, id1, txs[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepository_RecentTransactions_ZeroLimit(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	txs, err := NewLedgerRepository(mock).RecentTransactions(context.Background(), 0)

	require.NoError(t, err)
	assert.Empty(t, txs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepository_GetCashOutEntry_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(regexp.QuoteMeta(storage.GetCashOutEntryQuery)).
		WithArgs("42").
		WillReturnError(pgx.ErrNoRows)

	_, err = NewLedgerRepository(mock).GetCashOutEntry(context.Background(), "42")

	assert.ErrorIs(t, err, custom_err.ErrNotFound)
}

func TestLedgerRepository_GetCashOutEntry_Success(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta(storage.GetCashOutEntryQuery)).
		WithArgs("42").
		WillReturnRows(pgxmock.NewRows([]string{"principal", "cashed_out", "pending", "updated_at"}).
			AddRow("42", "90.50", "cashout_amount", now))

	entry, err := NewLedgerRepository(mock).GetCashOutEntry(context.Background(), "42")

	require.NoError(t, err)
	assert.Equal(t, "42", entry.Principal)
	assert.True(t, decimal.RequireFromString("90.5").Equal(entry.CashedOut))
	assert.Equal(t, models.PendingCashOutAmount, entry.Pending)
}

func TestLedgerRepository_CashOutInsideTransaction(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewLedgerRepository(mock)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(storage.LockLedgerQuery)).
		WillReturnRows(pgxmock.NewRows([]string{"fee_percent"}).AddRow("10"))
	mock.ExpectQuery(regexp.QuoteMeta(storage.TotalReceivedQuery)).
		WillReturnRows(pgxmock.NewRows([]string{"coalesce"}).AddRow("100"))
	mock.ExpectQuery(regexp.QuoteMeta(storage.TotalCashedOutQuery)).
		WillReturnRows(pgxmock.NewRows([]string{"coalesce"}).AddRow("0"))
	mock.ExpectExec(regexp.QuoteMeta(storage.AddCashOutQuery)).
		WithArgs("42", "100").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	tx, err := mock.Begin(ctx)
	require.NoError(t, err)

	fee, err := repo.LockLedgerTx(ctx, tx)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(10).Equal(fee))

	received, err := repo.TotalReceivedTx(ctx, tx)
	require.NoError(t, err)
	cashed, err := repo.TotalCashedOutTx(ctx, tx)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(100).Equal(received.Sub(cashed)))

	require.NoError(t, repo.AddCashOutTx(ctx, tx, "42", decimal.NewFromInt(100)))
	require.NoError(t, tx.Commit(ctx))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepository_LockLedgerTx_MissingSettings(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	ctx := context.Background()
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(storage.LockLedgerQuery)).WillReturnError(pgx.ErrNoRows)

	tx, err := mock.Begin(ctx)
	require.NoError(t, err)

	_, err = NewLedgerRepository(mock).LockLedgerTx(ctx, tx)
	assert.ErrorIs(t, err, custom_err.ErrNotFound)
}

func TestLedgerRepository_AddCashOutTx_RejectsNonPositive(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	ctx := context.Background()
	mock.ExpectBegin()
	tx, err := mock.Begin(ctx)
	require.NoError(t, err)

	err = NewLedgerRepository(mock).AddCashOutTx(ctx, tx, "42", decimal.Zero)
	assert.ErrorIs(t, err, custom_err.ErrInvalidAmount)
	assert.NoError(t, mock.ExpectationsWereMet())
}
