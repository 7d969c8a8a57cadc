package postgres

import (
	"context"
	"errors"
	"fmt"
	"gw-ipn-relay/internal/custom_err"
	"gw-ipn-relay/internal/models"
	"gw-ipn-relay/internal/storage"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

type PgLedgerRepository struct {
	db pgxQueryer
}

func NewLedgerRepository(db pgxQueryer) storage.LedgerRepository {
	return &PgLedgerRepository{db: db}
}

func (r *PgLedgerRepository) AppendTransaction(ctx context.Context, tx *models.Transaction) error {
	const op = "storage.AppendTransaction"

	_, err := r.db.Exec(ctx, storage.AppendTransactionQuery,
		tx.ID,
		tx.TxnID,
		tx.GrossAmount.String(),
		tx.Currency,
		tx.AmountUSD.String(),
		tx.PayerEmail,
		tx.PaymentDate,
		tx.Subject,
		tx.RecordedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case pgUniqueViolation:
				return custom_err.ErrDuplicateRequest
			case pgCheckViolation:
				return custom_err.ErrInvalidAmount
			}
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (r *PgLedgerRepository) TotalReceived(ctx context.Context) (decimal.Decimal, error) {
	return r.sum(ctx, r.db, "storage.TotalReceived", storage.TotalReceivedQuery)
}

func (r *PgLedgerRepository) TotalCashedOut(ctx context.Context) (decimal.Decimal, error) {
	return r.sum(ctx, r.db, "storage.TotalCashedOut", storage.TotalCashedOutQuery)
}

func (r *PgLedgerRepository) TotalReceivedTx(ctx context.Context, tx pgx.Tx) (decimal.Decimal, error) {
	return r.sum(ctx, tx, "storage.TotalReceivedTx", storage.TotalReceivedQuery)
}

func (r *PgLedgerRepository) TotalCashedOutTx(ctx context.Context, tx pgx.Tx) (decimal.Decimal, error) {
	return r.sum(ctx, tx, "storage.TotalCashedOutTx", storage.TotalCashedOutQuery)
}

func (r *PgLedgerRepository) sum(ctx context.Context, q pgxQueryer, op, query string) (decimal.Decimal, error) {
	var raw string
	if err := q.QueryRow(ctx, query).Scan(&raw); err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", op, err)
	}

	total, err := parseNumeric(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", op, err)
	}
	return total, nil
}

func (r *PgLedgerRepository) CountTransactions(ctx context.Context) (int, error) {
	const op = "storage.CountTransactions"

	var count int
	if err := r.db.QueryRow(ctx, storage.CountTransactionsQuery).Scan(&count); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}

func (r *PgLedgerRepository) RecentTransactions(ctx context.Context, limit int) ([]models.Transaction, error) {
	const op = "storage.RecentTransactions"

	if limit <= 0 {
		return []models.Transaction{}, nil
	}

	rows, err := r.db.Query(ctx, storage.RecentTransactionsQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	transactions := make([]models.Transaction, 0, limit)
	for rows.Next() {
		var (
			t             models.Transaction
			gross, usdRaw string
		)
		err := rows.Scan(
			&t.ID,
			&t.TxnID,
			&gross,
			&t.Currency,
			&usdRaw,
			&t.PayerEmail,
			&t.PaymentDate,
			&t.Subject,
			&t.RecordedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("%s: scan error: %w", op, err)
		}
		if t.GrossAmount, err = parseNumeric(gross); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if t.AmountUSD, err = parseNumeric(usdRaw); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		transactions = append(transactions, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return transactions, nil
}

func (r *PgLedgerRepository) GetCashOutEntry(ctx context.Context, principal string) (*models.CashOutEntry, error) {
	const op = "storage.GetCashOutEntry"

	var (
		entry      models.CashOutEntry
		cashedOut  string
		pendingRaw string
	)
	err := r.db.QueryRow(ctx, storage.GetCashOutEntryQuery, principal).Scan(
		&entry.Principal,
		&cashedOut,
		&pendingRaw,
		&entry.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, custom_err.ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if entry.CashedOut, err = parseNumeric(cashedOut); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if entry.Pending, err = models.ParsePendingInteraction(pendingRaw); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &entry, nil
}

func (r *PgLedgerRepository) LockLedgerTx(ctx context.Context, tx pgx.Tx) (decimal.Decimal, error) {
	const op = "storage.LockLedgerTx"

	var raw string
	if err := tx.QueryRow(ctx, storage.LockLedgerQuery).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, fmt.Errorf("%s: settings row missing: %w", op, custom_err.ErrNotFound)
		}
		return decimal.Zero, fmt.Errorf("%s: %w", op, err)
	}

	fee, err := parseNumeric(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", op, err)
	}
	return fee, nil
}

func (r *PgLedgerRepository) AddCashOutTx(ctx context.Context, tx pgx.Tx, principal string, amount decimal.Decimal) error {
	const op = "storage.AddCashOutTx"

	if !amount.IsPositive() {
		return custom_err.ErrInvalidAmount
	}

	_, err := tx.Exec(ctx, storage.AddCashOutQuery, principal, amount.String())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgCheckViolation {
			return custom_err.ErrInvalidAmount
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
