package storage

// NUMERIC передаётся и читается как text, чтобы не терять точность.
const (
	// Transaction queries
	AppendTransactionQuery = `
		INSERT INTO transactions (id, txn_id, gross_amount, currency, amount_usd, payer_email, payment_date, subject, recorded_at)
		VALUES ($1, $2, $3::numeric, $4, $5::numeric, $6, $7, $8, $9)
	`

	TotalReceivedQuery = `
		SELECT COALESCE(SUM(amount_usd), 0)::text
		FROM transactions
	`

	CountTransactionsQuery = `
		SELECT COUNT(*)
		FROM transactions
	`

	RecentTransactionsQuery = `
		SELECT id, txn_id, gross_amount::text, currency, amount_usd::text, payer_email, payment_date, subject, recorded_at
		FROM transactions
		ORDER BY recorded_at DESC, seq DESC
		LIMIT $1
	`

	// Cash-out ledger queries
	TotalCashedOutQuery = `
		SELECT COALESCE(SUM(cashed_out), 0)::text
		FROM cashout_ledger
	`

	GetCashOutEntryQuery = `
		SELECT principal, cashed_out::text, pending, updated_at
		FROM cashout_ledger
		WHERE principal = $1
	`

	// Блокировка строки настроек сериализует все выводы
	LockLedgerQuery = `
		SELECT fee_percent::text
		FROM ledger_settings
		WHERE id = 1
		FOR UPDATE
	`

	AddCashOutQuery = `
		INSERT INTO cashout_ledger (principal, cashed_out, pending, updated_at)
		VALUES ($1, $2::numeric, 'none', now())
		ON CONFLICT (principal) DO UPDATE
		SET cashed_out = cashout_ledger.cashed_out + EXCLUDED.cashed_out,
		    pending = CASE WHEN cashout_ledger.pending = 'cashout_amount' THEN 'none' ELSE cashout_ledger.pending END,
		    updated_at = now()
	`

	// Session queries
	GetPendingQuery = `
		SELECT pending
		FROM cashout_ledger
		WHERE principal = $1
	`

	SetPendingQuery = `
		INSERT INTO cashout_ledger (principal, cashed_out, pending, updated_at)
		VALUES ($1, 0, $2, now())
		ON CONFLICT (principal) DO UPDATE
		SET pending = EXCLUDED.pending,
		    updated_at = now()
	`

	// Settings queries
	GetFeeQuery = `
		SELECT fee_percent::text
		FROM ledger_settings
		WHERE id = 1
	`

	SetFeeQuery = `
		INSERT INTO ledger_settings (id, fee_percent, updated_at)
		VALUES (1, $1::numeric, now())
		ON CONFLICT (id) DO UPDATE
		SET fee_percent = EXCLUDED.fee_percent,
		    updated_at = now()
	`

	EnsureSettingsQuery = `
		INSERT INTO ledger_settings (id, fee_percent, updated_at)
		VALUES (1, $1::numeric, now())
		ON CONFLICT (id) DO NOTHING
	`

	// Registry queries
	AddRegistryMemberQuery = `
		INSERT INTO registry_members (registry, member)
		VALUES ($1, $2)
		ON CONFLICT (registry, member) DO NOTHING
	`

	RemoveRegistryMemberQuery = `
		DELETE FROM registry_members
		WHERE registry = $1 AND member = $2
	`

	RegistryContainsQuery = `
		SELECT EXISTS(
			SELECT 1
			FROM registry_members
			WHERE registry = $1 AND member = $2
		)
	`

	ListRegistryQuery = `
		SELECT member
		FROM registry_members
		WHERE registry = $1
		ORDER BY seq
	`

	CountRegistryQuery = `
		SELECT COUNT(*)
		FROM registry_members
		WHERE registry = $1
	`

	ClearRegistryQuery = `
		DELETE FROM registry_members
		WHERE registry = $1
	`
)
