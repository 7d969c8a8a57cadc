package storage

import (
	"context"
	"gw-ipn-relay/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// LedgerRepository журнал транзакций и накопленные выводы.
// Методы с суффиксом Tx выполняются внутри TxManager.WithTx.
type LedgerRepository interface {
	AppendTransaction(ctx context.Context, tx *models.Transaction) error
	TotalReceived(ctx context.Context) (decimal.Decimal, error)
	TotalCashedOut(ctx context.Context) (decimal.Decimal, error)
	CountTransactions(ctx context.Context) (int, error)
	RecentTransactions(ctx context.Context, limit int) ([]models.Transaction, error)
	GetCashOutEntry(ctx context.Context, principal string) (*models.CashOutEntry, error)

	// LockLedgerTx открывает критическую секцию выводов и возвращает текущую комиссию.
	LockLedgerTx(ctx context.Context, tx pgx.Tx) (decimal.Decimal, error)
	TotalReceivedTx(ctx context.Context, tx pgx.Tx) (decimal.Decimal, error)
	TotalCashedOutTx(ctx context.Context, tx pgx.Tx) (decimal.Decimal, error)
	AddCashOutTx(ctx context.Context, tx pgx.Tx, principal string, amount decimal.Decimal) error
}

type RegistryRepository interface {
	Add(ctx context.Context, registry models.Registry, member string) (bool, error)
	Remove(ctx context.Context, registry models.Registry, member string) (bool, error)
	Contains(ctx context.Context, registry models.Registry, member string) (bool, error)
	// List возвращает участников в порядке добавления.
	List(ctx context.Context, registry models.Registry) ([]string, error)
	Count(ctx context.Context, registry models.Registry) (int, error)
	Clear(ctx context.Context, registry models.Registry) (int, error)
}

type SessionRepository interface {
	GetPending(ctx context.Context, principal string) (models.PendingInteraction, error)
	SetPending(ctx context.Context, principal string, pending models.PendingInteraction) error
}

type SettingsRepository interface {
	GetFee(ctx context.Context) (decimal.Decimal, error)
	SetFee(ctx context.Context, fee decimal.Decimal) error
	// EnsureFee задаёт комиссию, только если она ещё не сохранена.
	EnsureFee(ctx context.Context, fee decimal.Decimal) error
}

// Archive хранилище сырых уведомлений.
type Archive interface {
	SaveNotification(ctx context.Context, notification *models.ArchivedNotification) error
	Close() error
}
