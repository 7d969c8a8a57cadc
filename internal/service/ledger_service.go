package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gw-ipn-relay/internal/custom_err"
	"gw-ipn-relay/internal/models"
	"gw-ipn-relay/internal/storage"

	"github.com/shopspring/decimal"
)

const DefaultRecentLimit = 10

var maxFeePercent = decimal.NewFromInt(100)

type Ledger interface {
	Balance(ctx context.Context) (*models.BalanceSummary, error)
	CashedOutBy(ctx context.Context, principal string) (decimal.Decimal, error)
	Recent(ctx context.Context, limit int) ([]models.Transaction, error)
	Status(ctx context.Context) (*models.SystemStatus, error)
	Fee(ctx context.Context) (decimal.Decimal, error)
	SetFee(ctx context.Context, fee decimal.Decimal) error
}

type LedgerService struct {
	ledger     storage.LedgerRepository
	registries storage.RegistryRepository
	settings   storage.SettingsRepository
	log        *slog.Logger
}

func NewLedgerService(
	ledger storage.LedgerRepository,
	registries storage.RegistryRepository,
	settings storage.SettingsRepository,
	log *slog.Logger,
) *LedgerService {
	return &LedgerService{
		ledger:     ledger,
		registries: registries,
		settings:   settings,
		log:        log,
	}
}

// ValidateFee проверяет, что комиссия в процентах лежит в диапазоне 0..100.
func ValidateFee(fee decimal.Decimal) error {
	if fee.IsNegative() || fee.GreaterThan(maxFeePercent) {
		return custom_err.ErrInvalidFee
	}
	return nil
}

// EnsureDefaultFee сохраняет комиссию по умолчанию, если администратор её ещё не задавал.
func (s *LedgerService) EnsureDefaultFee(ctx context.Context, fee decimal.Decimal) error {
	const op = "service.EnsureDefaultFee"

	if err := ValidateFee(fee); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.settings.EnsureFee(ctx, fee); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *LedgerService) Balance(ctx context.Context) (*models.BalanceSummary, error) {
	const op = "service.Balance"

	received, err := s.ledger.TotalReceived(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	cashedOut, err := s.ledger.TotalCashedOut(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &models.BalanceSummary{
		TotalReceived:  received,
		TotalCashedOut: cashedOut,
		Remaining:      received.Sub(cashedOut),
	}, nil
}

// CashedOutBy сумма выводов одного участника. Ноль, если он ещё не выводил.
func (s *LedgerService) CashedOutBy(ctx context.Context, principal string) (decimal.Decimal, error) {
	const op = "service.CashedOutBy"

	entry, err := s.ledger.GetCashOutEntry(ctx, principal)
	if err != nil {
		if errors.Is(err, custom_err.ErrNotFound) {
			return decimal.Zero, nil
		}
		return decimal.Zero, fmt.Errorf("%s: %w", op, err)
	}
	return entry.CashedOut, nil
}

func (s *LedgerService) Recent(ctx context.Context, limit int) ([]models.Transaction, error) {
	const op = "service.Recent"

	if limit <= 0 {
		return nil, custom_err.ErrInvalidInput
	}

	txs, err := s.ledger.RecentTransactions(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return txs, nil
}

func (s *LedgerService) Status(ctx context.Context) (*models.SystemStatus, error) {
	const op = "service.Status"

	count, err := s.ledger.CountTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	received, err := s.ledger.TotalReceived(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	registered, err := s.registries.Count(ctx, models.RegistryRegistered)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	notified, err := s.registries.Count(ctx, models.RegistryNotified)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	forwards, err := s.registries.Count(ctx, models.RegistryForward)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	fee, err := s.Fee(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &models.SystemStatus{
		TransactionCount:  count,
		TotalReceived:     received,
		RegisteredUsers:   registered,
		NotificationUsers: notified,
		ForwardURLs:       forwards,
		FeePercent:        fee,
	}, nil
}

func (s *LedgerService) Fee(ctx context.Context) (decimal.Decimal, error) {
	const op = "service.Fee"

	fee, err := s.settings.GetFee(ctx)
	if err != nil {
		if errors.Is(err, custom_err.ErrNotFound) {
			return decimal.Zero, nil
		}
		return decimal.Zero, fmt.Errorf("%s: %w", op, err)
	}
	return fee, nil
}

func (s *LedgerService) SetFee(ctx context.Context, fee decimal.Decimal) error {
	const op = "service.SetFee"

	if err := ValidateFee(fee); err != nil {
		return err
	}
	if err := s.settings.SetFee(ctx, fee); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("комиссия на вывод изменена", slog.String("fee_percent", fee.String()))
	return nil
}
