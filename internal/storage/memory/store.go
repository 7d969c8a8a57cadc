// Package memory хранилище журнала в памяти процесса.
// Используется при STORAGE_DRIVER=memory и в тестах.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"gw-ipn-relay/internal/custom_err"
	"gw-ipn-relay/internal/models"
	"gw-ipn-relay/internal/storage"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type Store struct {
	mu sync.RWMutex

	transactions []models.Transaction
	txnIDs       map[string]struct{}
	cashOuts     map[string]*models.CashOutEntry
	registries   map[models.Registry][]string
	fee          *decimal.Decimal
}

var (
	_ storage.LedgerRepository   = (*Store)(nil)
	_ storage.RegistryRepository = (*Store)(nil)
	_ storage.SessionRepository  = (*Store)(nil)
	_ storage.SettingsRepository = (*Store)(nil)
)

func NewStore() *Store {
	return &Store{
		txnIDs:     make(map[string]struct{}),
		cashOuts:   make(map[string]*models.CashOutEntry),
		registries: make(map[models.Registry][]string),
	}
}

// Ledger

func (s *Store) AppendTransaction(_ context.Context, tx *models.Transaction) error {
	if !tx.GrossAmount.IsPositive() || tx.AmountUSD.IsNegative() {
		return custom_err.ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.txnIDs[tx.TxnID]; ok {
		return custom_err.ErrDuplicateRequest
	}
	s.txnIDs[tx.TxnID] = struct{}{}
	s.transactions = append(s.transactions, *tx)
	return nil
}

func (s *Store) TotalReceived(_ context.Context) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := decimal.Zero
	for _, t := range s.transactions {
		total = total.Add(t.AmountUSD)
	}
	return total, nil
}

func (s *Store) TotalCashedOut(_ context.Context) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := decimal.Zero
	for _, e := range s.cashOuts {
		total = total.Add(e.CashedOut)
	}
	return total, nil
}

func (s *Store) CountTransactions(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.transactions), nil
}

func (s *Store) RecentTransactions(_ context.Context, limit int) ([]models.Transaction, error) {
	if limit <= 0 {
		return []models.Transaction{}, nil
	}

	s.mu.RLock()
	// индекс в срезе играет роль seq
	ordered := make([]int, len(s.transactions))
	for i := range ordered {
		ordered[i] = i
	}
	sort.SliceStable(ordered, func(a, b int) bool {
		ta, tb := s.transactions[ordered[a]].RecordedAt, s.transactions[ordered[b]].RecordedAt
		if ta.Equal(tb) {
			return ordered[a] > ordered[b]
		}
		return ta.After(tb)
	})

	if limit > len(ordered) {
		limit = len(ordered)
	}
	result := make([]models.Transaction, 0, limit)
	for _, idx := range ordered[:limit] {
		result = append(result, s.transactions[idx])
	}
	s.mu.RUnlock()

	return result, nil
}

func (s *Store) GetCashOutEntry(_ context.Context, principal string) (*models.CashOutEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.cashOuts[principal]
	if !ok {
		return nil, custom_err.ErrNotFound
	}
	copied := *entry
	return &copied, nil
}

// LockLedgerTx сама критическую секцию не открывает: её держит LockTxManager.
func (s *Store) LockLedgerTx(ctx context.Context, _ pgx.Tx) (decimal.Decimal, error) {
	return s.GetFee(ctx)
}

func (s *Store) TotalReceivedTx(ctx context.Context, _ pgx.Tx) (decimal.Decimal, error) {
	return s.TotalReceived(ctx)
}

func (s *Store) TotalCashedOutTx(ctx context.Context, _ pgx.Tx) (decimal.Decimal, error) {
	return s.TotalCashedOut(ctx)
}

func (s *Store) AddCashOutTx(_ context.Context, _ pgx.Tx, principal string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return custom_err.ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry := s.entryLocked(principal)
	entry.CashedOut = entry.CashedOut.Add(amount)
	if entry.Pending == models.PendingCashOutAmount {
		entry.Pending = models.PendingNone
	}
	entry.UpdatedAt = time.Now()
	return nil
}

func (s *Store) entryLocked(principal string) *models.CashOutEntry {
	entry, ok := s.cashOuts[principal]
	if !ok {
		entry = &models.CashOutEntry{
			Principal: principal,
			CashedOut: decimal.Zero,
			Pending:   models.PendingNone,
		}
		s.cashOuts[principal] = entry
	}
	return entry
}

// Sessions

func (s *Store) GetPending(_ context.Context, principal string) (models.PendingInteraction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if entry, ok := s.cashOuts[principal]; ok {
		return entry.Pending, nil
	}
	return models.PendingNone, nil
}

func (s *Store) SetPending(_ context.Context, principal string, pending models.PendingInteraction) error {
	if !pending.IsValid() {
		return custom_err.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry := s.entryLocked(principal)
	entry.Pending = pending
	entry.UpdatedAt = time.Now()
	return nil
}

// Settings

func (s *Store) GetFee(_ context.Context) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.fee == nil {
		return decimal.Zero, custom_err.ErrNotFound
	}
	return *s.fee, nil
}

func (s *Store) SetFee(_ context.Context, fee decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fee = &fee
	return nil
}

func (s *Store) EnsureFee(_ context.Context, fee decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fee == nil {
		s.fee = &fee
	}
	return nil
}

// Registries

func (s *Store) Add(_ context.Context, registry models.Registry, member string) (bool, error) {
	if !registry.IsValid() {
		return false, custom_err.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range s.registries[registry] {
		if m == member {
			return false, nil
		}
	}
	s.registries[registry] = append(s.registries[registry], member)
	return true, nil
}

func (s *Store) Remove(_ context.Context, registry models.Registry, member string) (bool, error) {
	if !registry.IsValid() {
		return false, custom_err.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	members := s.registries[registry]
	for i, m := range members {
		if m == member {
			s.registries[registry] = append(members[:i:i], members[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) Contains(_ context.Context, registry models.Registry, member string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, m := range s.registries[registry] {
		if m == member {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) List(_ context.Context, registry models.Registry) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	members := make([]string, len(s.registries[registry]))
	copy(members, s.registries[registry])
	return members, nil
}

func (s *Store) Count(_ context.Context, registry models.Registry) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.registries[registry]), nil
}

func (s *Store) Clear(_ context.Context, registry models.Registry) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := len(s.registries[registry])
	delete(s.registries, registry)
	return count, nil
}
