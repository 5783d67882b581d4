package pgsql

import (
	"context"
	"sort"

	"github.com/SscSPs/fund_ledger/internal/apperrors"
	"github.com/SscSPs/fund_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/fund_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/fund_ledger/internal/models"
	"github.com/SscSPs/fund_ledger/internal/utils/mapping"
	"github.com/jackc/pgx/v5"
)

// pgxLedgerTx implements portsrepo.LedgerTx on top of an open pgx transaction.
type pgxLedgerTx struct {
	tx pgx.Tx
}

// Ensure pgxLedgerTx implements portsrepo.LedgerTx
var _ portsrepo.LedgerTx = (*pgxLedgerTx)(nil)

func (t *pgxLedgerTx) LockAccounts(ctx context.Context, accounts ...domain.Account) error {
	names := make([]string, 0, len(accounts))
	seen := make(map[domain.Account]struct{}, len(accounts))
	for _, a := range accounts {
		if _, dup := seen[a]; dup {
			continue
		}
		seen[a] = struct{}{}
		names = append(names, a.String())
	}
	if len(names) == 0 {
		return nil
	}
	sort.Strings(names)

	_, err := t.tx.Exec(ctx, `
		INSERT INTO ledger_accounts (account)
		SELECT unnest($1::text[])
		ON CONFLICT (account) DO NOTHING`, names)
	if err != nil {
		return mapPgError(err, "failed to register accounts")
	}
	rows, err := t.tx.Query(ctx, `
		SELECT account FROM ledger_accounts
		WHERE account = ANY($1::text[])
		ORDER BY account
		FOR UPDATE`, names)
	if err != nil {
		return mapPgError(err, "failed to lock accounts")
	}
	rows.Close()
	return mapPgError(rows.Err(), "failed to lock accounts")
}

func (t *pgxLedgerTx) Balance(ctx context.Context, account domain.Account) (int64, error) {
	var balance int64
	err := t.tx.QueryRow(ctx, `
		SELECT COALESCE(SUM(CASE WHEN destination = $1 THEN amount ELSE -amount END), 0)::bigint
		FROM ledger_entries
		WHERE destination = $1 OR source = $1`, account.String()).Scan(&balance)
	if err != nil {
		return 0, mapPgError(err, "failed to compute balance of "+account.String())
	}
	return balance, nil
}

func (t *pgxLedgerTx) NetAllocated(ctx context.Context, paymentID string, account domain.Account) (int64, error) {
	var net int64
	err := t.tx.QueryRow(ctx, `
		SELECT COALESCE(SUM(CASE WHEN destination = $2 THEN amount ELSE -amount END), 0)::bigint
		FROM ledger_entries
		WHERE payment_id = $1 AND (destination = $2 OR source = $2)`, paymentID, account.String()).Scan(&net)
	if err != nil {
		return 0, mapPgError(err, "failed to compute net allocation of payment "+paymentID)
	}
	return net, nil
}

func (t *pgxLedgerTx) NetAllocations(ctx context.Context, paymentID string) (map[domain.Account]int64, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT account, SUM(delta)::bigint FROM (
			SELECT destination AS account, amount AS delta FROM ledger_entries WHERE payment_id = $1
			UNION ALL
			SELECT source, -amount FROM ledger_entries WHERE payment_id = $1
		) moves
		WHERE account LIKE 'actif:%'
		GROUP BY account`, paymentID)
	if err != nil {
		return nil, mapPgError(err, "failed to compute net allocations of payment "+paymentID)
	}
	defer rows.Close()

	nets := make(map[domain.Account]int64)
	for rows.Next() {
		var account string
		var net int64
		if err := rows.Scan(&account, &net); err != nil {
			return nil, mapPgError(err, "failed to scan net allocation of payment "+paymentID)
		}
		nets[domain.Account(account)] = net
	}
	if err := rows.Err(); err != nil {
		return nil, mapPgError(err, "failed to iterate net allocations of payment "+paymentID)
	}
	return nets, nil
}

func (t *pgxLedgerTx) findEntry(ctx context.Context, column, value string) (*domain.LedgerEntry, error) {
	rows, err := t.tx.Query(ctx, `SELECT `+entryColumns+` FROM ledger_entries WHERE `+column+` = $1`, value)
	if err != nil {
		return nil, mapPgError(err, "failed to query entry by "+column)
	}
	entries, err := scanEntries(rows)
	if err != nil {
		return nil, mapPgError(err, "failed to scan entry by "+column)
	}
	if len(entries) == 0 {
		return nil, nil
	}
	e := mapping.ToDomainLedgerEntry(entries[0])
	return &e, nil
}

func (t *pgxLedgerTx) FindEntryByID(ctx context.Context, entryID string) (*domain.LedgerEntry, error) {
	e, err := t.findEntry(ctx, "entry_id", entryID)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, apperrors.NewNotFoundError("entry " + entryID)
	}
	return e, nil
}

func (t *pgxLedgerTx) FindEntryBySpendingRequest(ctx context.Context, requestID string) (*domain.LedgerEntry, error) {
	return t.findEntry(ctx, "spending_request_id", requestID)
}

func (t *pgxLedgerTx) FindReversalOf(ctx context.Context, entryID string) (*domain.LedgerEntry, error) {
	return t.findEntry(ctx, "reversal_of", entryID)
}

func (t *pgxLedgerTx) InsertEntry(ctx context.Context, entry domain.LedgerEntry) error {
	m := mapping.ToModelLedgerEntry(entry)
	_, err := t.tx.Exec(ctx, `
		INSERT INTO ledger_entries (`+entryColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		m.EntryID,
		m.Amount,
		m.Source,
		m.Destination,
		m.PaymentID,
		m.SpendingRequestID,
		m.ReversalOf,
		m.Comment,
		m.CreatedAt,
	)
	if err != nil {
		return mapPgError(err, "failed to insert entry "+m.EntryID)
	}
	return nil
}

func (t *pgxLedgerTx) FindPaymentForUpdate(ctx context.Context, paymentID string) (*domain.Payment, error) {
	var m models.Payment
	err := t.tx.QueryRow(ctx, `
		SELECT payment_id, price, status, subscription_id, allocation_plan, plan_frozen, created_at, last_updated_at
		FROM ledger_payments
		WHERE payment_id = $1
		FOR UPDATE`, paymentID).Scan(
		&m.PaymentID,
		&m.Price,
		&m.Status,
		&m.SubscriptionID,
		&m.AllocationPlan,
		&m.PlanFrozen,
		&m.CreatedAt,
		&m.LastUpdatedAt,
	)
	if err != nil {
		return nil, mapPgError(err, "payment "+paymentID)
	}
	p, err := mapping.ToDomainPayment(m)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to decode payment "+paymentID, err)
	}
	return &p, nil
}

func (t *pgxLedgerTx) SavePayment(ctx context.Context, payment domain.Payment) error {
	m, err := mapping.ToModelPayment(payment)
	if err != nil {
		return apperrors.NewAppError(500, "failed to encode payment "+payment.PaymentID, err)
	}
	_, err = t.tx.Exec(ctx, `
		INSERT INTO ledger_payments (payment_id, price, status, subscription_id, allocation_plan, plan_frozen, created_at, last_updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (payment_id) DO UPDATE SET
			price = EXCLUDED.price,
			status = EXCLUDED.status,
			subscription_id = EXCLUDED.subscription_id,
			allocation_plan = EXCLUDED.allocation_plan,
			plan_frozen = EXCLUDED.plan_frozen,
			last_updated_at = EXCLUDED.last_updated_at`,
		m.PaymentID,
		m.Price,
		m.Status,
		m.SubscriptionID,
		m.AllocationPlan,
		m.PlanFrozen,
		m.CreatedAt,
		m.LastUpdatedAt,
	)
	if err != nil {
		return mapPgError(err, "failed to save payment "+payment.PaymentID)
	}
	return nil
}

func (t *pgxLedgerTx) FindSubscriptionForUpdate(ctx context.Context, subscriptionID string) (*domain.Subscription, error) {
	var m models.Subscription
	err := t.tx.QueryRow(ctx, `
		SELECT subscription_id, price, recurrence, created_at, last_updated_at
		FROM ledger_subscriptions
		WHERE subscription_id = $1
		FOR UPDATE`, subscriptionID).Scan(
		&m.SubscriptionID,
		&m.Price,
		&m.Recurrence,
		&m.CreatedAt,
		&m.LastUpdatedAt,
	)
	if err != nil {
		return nil, mapPgError(err, "subscription "+subscriptionID)
	}
	s := mapping.ToDomainSubscription(m)
	return &s, nil
}

func (t *pgxLedgerTx) SaveSubscription(ctx context.Context, subscription domain.Subscription) error {
	m := mapping.ToModelSubscription(subscription)
	_, err := t.tx.Exec(ctx, `
		INSERT INTO ledger_subscriptions (subscription_id, price, recurrence, created_at, last_updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (subscription_id) DO UPDATE SET
			price = EXCLUDED.price,
			recurrence = EXCLUDED.recurrence,
			last_updated_at = EXCLUDED.last_updated_at`,
		m.SubscriptionID,
		m.Price,
		m.Recurrence,
		m.CreatedAt,
		m.LastUpdatedAt,
	)
	if err != nil {
		return mapPgError(err, "failed to save subscription "+subscription.SubscriptionID)
	}
	return nil
}

func (t *pgxLedgerTx) ListMonthlyAllocations(ctx context.Context, subscriptionID string) ([]domain.MonthlyAllocation, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT id, subscription_id, target_type, target_id, amount, created_at
		FROM monthly_allocations
		WHERE subscription_id = $1
		ORDER BY created_at, id`, subscriptionID)
	if err != nil {
		return nil, mapPgError(err, "failed to list monthly allocations of "+subscriptionID)
	}
	defer rows.Close()

	var allocations []domain.MonthlyAllocation
	for rows.Next() {
		var m models.MonthlyAllocation
		if err := rows.Scan(&m.ID, &m.SubscriptionID, &m.TargetType, &m.TargetID, &m.Amount, &m.CreatedAt); err != nil {
			return nil, mapPgError(err, "failed to scan monthly allocation of "+subscriptionID)
		}
		allocations = append(allocations, mapping.ToDomainMonthlyAllocation(m))
	}
	if err := rows.Err(); err != nil {
		return nil, mapPgError(err, "failed to iterate monthly allocations of "+subscriptionID)
	}
	return allocations, nil
}

func (t *pgxLedgerTx) InsertMonthlyAllocation(ctx context.Context, allocation domain.MonthlyAllocation) error {
	m := mapping.ToModelMonthlyAllocation(allocation)
	_, err := t.tx.Exec(ctx, `
		INSERT INTO monthly_allocations (id, subscription_id, target_type, target_id, amount, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		m.ID, m.SubscriptionID, m.TargetType, m.TargetID, m.Amount, m.CreatedAt)
	if err != nil {
		return mapPgError(err, "failed to insert monthly allocation "+allocation.Target.String())
	}
	return nil
}

func (t *pgxLedgerTx) DeleteMonthlyAllocation(ctx context.Context, subscriptionID string, target domain.AllocationTarget) error {
	tag, err := t.tx.Exec(ctx, `
		DELETE FROM monthly_allocations
		WHERE subscription_id = $1 AND target_type = $2 AND target_id = $3`,
		subscriptionID, string(target.Type), target.ID)
	if err != nil {
		return mapPgError(err, "failed to delete monthly allocation "+target.String())
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("monthly allocation " + target.String() + " of subscription " + subscriptionID)
	}
	return nil
}
