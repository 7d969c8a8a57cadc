package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentEvent событие о записанном платеже, уходит в kafka и в рассылку.
type PaymentEvent struct {
	TransactionID string          `json:"transaction_id"`
	GrossAmount   decimal.Decimal `json:"gross_amount"`
	Currency      string          `json:"currency"`
	AmountUSD     decimal.Decimal `json:"amount_usd"`
	PayerEmail    string          `json:"payer_email"`
	PaymentDate   string          `json:"payment_date"`
	Subject       string          `json:"subject,omitempty"`
	Timestamp     time.Time       `json:"timestamp"`
}

func NewPaymentEvent(tx *Transaction) PaymentEvent {
	return PaymentEvent{
		TransactionID: tx.TxnID,
		GrossAmount:   tx.GrossAmount,
		Currency:      tx.Currency,
		AmountUSD:     tx.AmountUSD,
		PayerEmail:    tx.PayerEmail,
		PaymentDate:   tx.PaymentDate,
		Subject:       tx.Subject,
		Timestamp:     tx.RecordedAt,
	}
}

// ForwardRequest копия исходного тела IPN для одного адреса пересылки.
type ForwardRequest struct {
	URL         string
	Body        []byte
	ContentType string
	TxnID       string
}

type IngestOutcome string

const (
	OutcomeRecorded          IngestOutcome = "recorded"
	OutcomeDuplicate         IngestOutcome = "duplicate"
	OutcomeIgnored           IngestOutcome = "ignored"
	OutcomeMalformed         IngestOutcome = "malformed"
	OutcomeUnverified        IngestOutcome = "unverified"
	OutcomeRateUnavailable   IngestOutcome = "rate_unavailable"
	OutcomePersistenceFailed IngestOutcome = "persistence_failed"
)

// ArchivedNotification сырое уведомление в архиве MongoDB.
type ArchivedNotification struct {
	ID            string            `bson:"_id,omitempty" json:"id"`
	TxnID         string            `bson:"txn_id" json:"txn_id"`
	PaymentStatus string            `bson:"payment_status" json:"payment_status"`
	Outcome       IngestOutcome     `bson:"outcome" json:"outcome"`
	Fields        map[string]string `bson:"fields" json:"fields"`
	ReceivedAt    time.Time         `bson:"received_at" json:"received_at"`
	ArchivedAt    time.Time         `bson:"archived_at" json:"archived_at"`
}
