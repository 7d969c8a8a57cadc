package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type CashOutMode string

const (
	CashOutAll    CashOutMode = "all"
	CashOutHalf   CashOutMode = "half"
	CashOutCustom CashOutMode = "custom"
)

func (m CashOutMode) IsValid() bool {
	return m == CashOutAll || m == CashOutHalf || m == CashOutCustom
}

// PendingInteraction ожидаемый от пользователя следующий ввод.
// Одновременно может быть установлен только один.
type PendingInteraction string

const (
	PendingNone             PendingInteraction = "none"
	PendingCashOutAmount    PendingInteraction = "cashout_amount"
	PendingForwardURL       PendingInteraction = "forward_url"
	PendingForwardURLRemove PendingInteraction = "forward_url_remove"
)

func (p PendingInteraction) IsValid() bool {
	switch p {
	case PendingNone, PendingCashOutAmount, PendingForwardURL, PendingForwardURLRemove:
		return true
	}
	return false
}

func ParsePendingInteraction(s string) (PendingInteraction, error) {
	p := PendingInteraction(s)
	if s == "" {
		return PendingNone, nil
	}
	if !p.IsValid() {
		return PendingNone, fmt.Errorf("unknown pending interaction %q", s)
	}
	return p, nil
}

// CashOutEntry накопленная сумма выводов по одному пользователю.
type CashOutEntry struct {
	Principal string             `json:"principal"`
	CashedOut decimal.Decimal    `json:"cashed_out"`
	Pending   PendingInteraction `json:"pending"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// BalanceSummary производные агрегаты, нигде не хранятся.
type BalanceSummary struct {
	TotalReceived  decimal.Decimal `json:"total_received"`
	TotalCashedOut decimal.Decimal `json:"total_cashed_out"`
	Remaining      decimal.Decimal `json:"remaining"`
}

type CashOutQuote struct {
	Remaining  decimal.Decimal `json:"remaining"`
	FeePercent decimal.Decimal `json:"fee_percent"`
}

type CashOutResult struct {
	Amount         decimal.Decimal `json:"amount"`
	Fee            decimal.Decimal `json:"fee"`
	Net            decimal.Decimal `json:"net"`
	FeePercent     decimal.Decimal `json:"fee_percent"`
	RemainingAfter decimal.Decimal `json:"remaining_after"`
}

type SystemStatus struct {
	TransactionCount  int             `json:"transaction_count"`
	TotalReceived     decimal.Decimal `json:"total_received"`
	RegisteredUsers   int             `json:"registered_users"`
	NotificationUsers int             `json:"notification_users"`
	ForwardURLs       int             `json:"forward_urls"`
	FeePercent        decimal.Decimal `json:"fee_percent"`
}

// Registry имя набора участников.
type Registry string

const (
	RegistryRegistered Registry = "registered"
	RegistryNotified   Registry = "notified"
	RegistryForward    Registry = "forward"
)

func (r Registry) IsValid() bool {
	return r == RegistryRegistered || r == RegistryNotified || r == RegistryForward
}
