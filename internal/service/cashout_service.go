package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"gw-ipn-relay/internal/custom_err"
	"gw-ipn-relay/internal/metrics"
	"gw-ipn-relay/internal/models"
	"gw-ipn-relay/internal/storage"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

type CashOut interface {
	// Quote показывает остаток и комиссию без изменения состояния.
	Quote(ctx context.Context) (*models.CashOutQuote, error)
	// Open то же, что Quote, но при нулевом остатке возвращает ErrNoBalance.
	Open(ctx context.Context) (*models.CashOutQuote, error)
	RequestCashOut(ctx context.Context, principal string, mode models.CashOutMode, customAmount *decimal.Decimal) (*models.CashOutResult, error)
	SubmitCustomAmount(ctx context.Context, principal, text string) (*models.CashOutResult, error)
}

type CashOutService struct {
	ledger    storage.LedgerRepository
	sessions  storage.SessionRepository
	settings  storage.SettingsRepository
	txManager TxManager
	metrics   *metrics.Metrics
	log       *slog.Logger
}

func NewCashOutService(
	ledger storage.LedgerRepository,
	sessions storage.SessionRepository,
	settings storage.SettingsRepository,
	txManager TxManager,
	m *metrics.Metrics,
	log *slog.Logger,
) *CashOutService {
	return &CashOutService{
		ledger:    ledger,
		sessions:  sessions,
		settings:  settings,
		txManager: txManager,
		metrics:   m,
		log:       log,
	}
}

// ComputeFee возвращает комиссию и сумму к выплате без округления.
func ComputeFee(amount, feePercent decimal.Decimal) (fee, net decimal.Decimal) {
	fee = amount.Mul(feePercent).Div(hundred)
	return fee, amount.Sub(fee)
}

func (s *CashOutService) Quote(ctx context.Context) (*models.CashOutQuote, error) {
	const op = "service.Quote"

	received, err := s.ledger.TotalReceived(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	cashedOut, err := s.ledger.TotalCashedOut(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	fee, err := s.settings.GetFee(ctx)
	if err != nil && !errors.Is(err, custom_err.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &models.CashOutQuote{
		Remaining:  received.Sub(cashedOut),
		FeePercent: fee,
	}, nil
}

func (s *CashOutService) Open(ctx context.Context) (*models.CashOutQuote, error) {
	quote, err := s.Quote(ctx)
	if err != nil {
		return nil, err
	}
	if !quote.Remaining.IsPositive() {
		return nil, custom_err.ErrNoBalance
	}
	return quote, nil
}

func (s *CashOutService) RequestCashOut(
	ctx context.Context,
	principal string,
	mode models.CashOutMode,
	customAmount *decimal.Decimal,
) (*models.CashOutResult, error) {
	const op = "service.RequestCashOut"

	if !mode.IsValid() {
		return nil, custom_err.ErrInvalidInput
	}

	if mode == models.CashOutCustom {
		if customAmount == nil {
			if err := s.sessions.SetPending(ctx, principal, models.PendingCashOutAmount); err != nil {
				return nil, fmt.Errorf("%s: %w", op, err)
			}
			return nil, custom_err.ErrAwaitingInput
		}
		if !customAmount.IsPositive() {
			s.metrics.CashOut("invalid_amount")
			return nil, custom_err.ErrInvalidAmount
		}
	}

	var result *models.CashOutResult
	err := s.txManager.WithTx(ctx, func(tx pgx.Tx) error {
		feePercent, err := s.ledger.LockLedgerTx(ctx, tx)
		if err != nil {
			return fmt.Errorf("%s: failed to lock ledger: %w", op, err)
		}

		received, err := s.ledger.TotalReceivedTx(ctx, tx)
		if err != nil {
			return fmt.Errorf("%s: failed to read received: %w", op, err)
		}
		cashedOut, err := s.ledger.TotalCashedOutTx(ctx, tx)
		if err != nil {
			return fmt.Errorf("%s: failed to read cashed out: %w", op, err)
		}
		remaining := received.Sub(cashedOut)

		var amount decimal.Decimal
		switch mode {
		case models.CashOutAll:
			amount = remaining
		case models.CashOutHalf:
			amount = remaining.Div(decimal.NewFromInt(2))
		case models.CashOutCustom:
			amount = *customAmount
		}

		if mode != models.CashOutCustom && !amount.IsPositive() {
			return custom_err.ErrNoBalance
		}
		if amount.GreaterThan(remaining) {
			return custom_err.ErrInsufficientBalance
		}

		if err := s.ledger.AddCashOutTx(ctx, tx, principal, amount); err != nil {
			return fmt.Errorf("%s: failed to apply cash-out: %w", op, err)
		}

		fee, net := ComputeFee(amount, feePercent)
		result = &models.CashOutResult{
			Amount:         amount,
			Fee:            fee,
			Net:            net,
			FeePercent:     feePercent,
			RemainingAfter: remaining.Sub(amount),
		}
		return nil
	})

	if err != nil {
		switch {
		case errors.Is(err, custom_err.ErrInsufficientBalance):
			s.metrics.CashOut("insufficient_balance")
		case errors.Is(err, custom_err.ErrNoBalance):
			s.metrics.CashOut("no_balance")
		case errors.Is(err, custom_err.ErrInvalidAmount):
			s.metrics.CashOut("invalid_amount")
		default:
			s.metrics.CashOut(metrics.ResultFailure)
			s.log.Error("ошибка вывода средств",
				slog.String("op", op),
				slog.String("principal", principal),
				slog.String("error", err.Error()))
		}
		return nil, err
	}

	s.metrics.CashOut(metrics.ResultSuccess)
	s.log.Info("вывод средств выполнен",
		slog.String("principal", principal),
		slog.String("mode", string(mode)),
		slog.String("amount", result.Amount.String()),
		slog.String("fee", result.Fee.String()),
		slog.String("remaining_after", result.RemainingAfter.String()))

	return result, nil
}

// ParseAmount разбирает введённую пользователем сумму. Допускается ведущий знак $.
func ParseAmount(text string) (decimal.Decimal, error) {
	raw := strings.TrimPrefix(strings.TrimSpace(text), "$")
	amount, err := models.ParsePlainDecimal(strings.TrimSpace(raw))
	if err != nil || !amount.IsPositive() {
		return decimal.Zero, custom_err.ErrInvalidAmount
	}
	return amount, nil
}

// SubmitCustomAmount обрабатывает ответ на запрос суммы. При ошибке ожидание суммы сохраняется.
func (s *CashOutService) SubmitCustomAmount(ctx context.Context, principal, text string) (*models.CashOutResult, error) {
	amount, err := ParseAmount(text)
	if err != nil {
		s.metrics.CashOut("invalid_amount")
		return nil, err
	}
	return s.RequestCashOut(ctx, principal, models.CashOutCustom, &amount)
}
