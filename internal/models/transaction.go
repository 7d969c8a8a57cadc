package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountingCurrency валюта, в которую приводятся все суммы перед агрегацией.
const AccountingCurrency = "USD"

// Transaction запись о принятом платеже. После добавления не изменяется.
type Transaction struct {
	ID          uuid.UUID       `json:"id"`
	TxnID       string          `json:"txn_id"`
	GrossAmount decimal.Decimal `json:"gross_amount"`
	Currency    string          `json:"currency"`
	AmountUSD   decimal.Decimal `json:"amount_usd"`
	PayerEmail  string          `json:"payer_email"`
	PaymentDate string          `json:"payment_date"`
	Subject     string          `json:"subject,omitempty"`
	RecordedAt  time.Time       `json:"recorded_at"`
}

// TransactionsResponse ответ со списком последних транзакций
type TransactionsResponse struct {
	Transactions []Transaction `json:"transactions"`
}
