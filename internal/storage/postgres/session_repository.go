package postgres

import (
	"context"
	"errors"
	"fmt"
	"gw-ipn-relay/internal/custom_err"
	"gw-ipn-relay/internal/models"
	"gw-ipn-relay/internal/storage"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type PgSessionRepository struct {
	db pgxQueryer
}

func NewSessionRepository(db pgxQueryer) storage.SessionRepository {
	return &PgSessionRepository{db: db}
}

func (r *PgSessionRepository) GetPending(ctx context.Context, principal string) (models.PendingInteraction, error) {
	const op = "storage.GetPending"

	var raw string
	err := r.db.QueryRow(ctx, storage.GetPendingQuery, principal).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.PendingNone, nil
		}
		return models.PendingNone, fmt.Errorf("%s: %w", op, err)
	}

	pending, err := models.ParsePendingInteraction(raw)
	if err != nil {
		return models.PendingNone, fmt.Errorf("%s: %w", op, err)
	}
	return pending, nil
}

func (r *PgSessionRepository) SetPending(ctx context.Context, principal string, pending models.PendingInteraction) error {
	const op = "storage.SetPending"

	if !pending.IsValid() {
		return custom_err.ErrInvalidInput
	}

	if _, err := r.db.Exec(ctx, storage.SetPendingQuery, principal, string(pending)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

type PgSettingsRepository struct {
	db pgxQueryer
}

func NewSettingsRepository(db pgxQueryer) storage.SettingsRepository {
	return &PgSettingsRepository{db: db}
}

func (r *PgSettingsRepository) GetFee(ctx context.Context) (decimal.Decimal, error) {
	const op = "storage.GetFee"

	var raw string
	if err := r.db.QueryRow(ctx, storage.GetFeeQuery).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, custom_err.ErrNotFound
		}
		return decimal.Zero, fmt.Errorf("%s: %w", op, err)
	}

	fee, err := parseNumeric(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", op, err)
	}
	return fee, nil
}

func (r *PgSettingsRepository) SetFee(ctx context.Context, fee decimal.Decimal) error {
	const op = "storage.SetFee"

	if _, err := r.db.Exec(ctx, storage.SetFeeQuery, fee.String()); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// EnsureFee создаёт строку настроек с комиссией по умолчанию, если её ещё нет.
func (r *PgSettingsRepository) EnsureFee(ctx context.Context, fee decimal.Decimal) error {
	const op = "storage.EnsureFee"

	if _, err := r.db.Exec(ctx, storage.EnsureSettingsQuery, fee.String()); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
