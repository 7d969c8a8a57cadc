package models

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
)

const PaymentStatusCompleted = "Completed"

// InboundNotification разобранное IPN-уведомление.
type InboundNotification struct {
	PaymentStatus string
	TxnID         string
	Gross         decimal.Decimal
	Currency      string
	PayerEmail    string
	PaymentDate   string
	Subject       string
	Raw           url.Values
}

// ParseNotification строит InboundNotification из полей формы.
// Пустой txn_id, отсутствующая валюта или mc_gross не в виде простой десятичной записи считаются ошибкой.
func ParseNotification(values url.Values) (*InboundNotification, error) {
	txnID := strings.TrimSpace(values.Get("txn_id"))
	if txnID == "" {
		return nil, fmt.Errorf("txn_id is required")
	}

	currency := strings.TrimSpace(values.Get("mc_currency"))
	if currency == "" {
		return nil, fmt.Errorf("mc_currency is required")
	}

	grossRaw := strings.TrimSpace(values.Get("mc_gross"))
	gross, err := ParsePlainDecimal(grossRaw)
	if err != nil {
		return nil, fmt.Errorf("mc_gross %q is not a number: %w", grossRaw, err)
	}

	subject := strings.TrimSpace(values.Get("item_name"))
	if subject == "" {
		subject = strings.TrimSpace(values.Get("memo"))
	}

	return &InboundNotification{
		PaymentStatus: strings.TrimSpace(values.Get("payment_status")),
		TxnID:         txnID,
		Gross:         gross,
		Currency:      currency,
		PayerEmail:    strings.TrimSpace(values.Get("payer_email")),
		PaymentDate:   strings.TrimSpace(values.Get("payment_date")),
		Subject:       subject,
		Raw:           values,
	}, nil
}

// Recordable сообщает, должна ли нотификация попасть в учёт.
func (n *InboundNotification) Recordable() bool {
	return n.PaymentStatus == PaymentStatusCompleted && n.Gross.IsPositive()
}
