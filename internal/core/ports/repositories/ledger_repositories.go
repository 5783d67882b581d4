package repositories

import (
	"context"

	"github.com/SscSPs/fund_ledger/internal/core/domain"
)

// AccountLocker serializes writers touching the same accounts.
type AccountLocker interface {
	// LockAccounts takes an exclusive lock on each account's summary row for the rest of the
	// transaction, creating the row on first use. Accounts are locked in sorted order.
	LockAccounts(ctx context.Context, accounts ...domain.Account) error
}

// EntryReader defines transactional read operations over the entry log
type EntryReader interface {
	// Balance returns credits minus debits of exactly this account.
	Balance(ctx context.Context, account domain.Account) (int64, error)

	// NetAllocated returns what payment paymentID has credited to account, minus what was debited
	// from account under the same payment reference.
	NetAllocated(ctx context.Context, paymentID string, account domain.Account) (int64, error)

	// NetAllocations returns NetAllocated for every constrained account the payment touched.
	NetAllocations(ctx context.Context, paymentID string) (map[domain.Account]int64, error)

	// FindEntryByID returns apperrors.ErrNotFound when no such entry exists.
	FindEntryByID(ctx context.Context, entryID string) (*domain.LedgerEntry, error)

	// FindEntryBySpendingRequest returns the settlement entry of a spending request, or nil.
	FindEntryBySpendingRequest(ctx context.Context, requestID string) (*domain.LedgerEntry, error)

	// FindReversalOf returns the entry compensating entryID, or nil.
	FindReversalOf(ctx context.Context, entryID string) (*domain.LedgerEntry, error)
}

// EntryWriter appends to the entry log. There is no update or delete.
type EntryWriter interface {
	InsertEntry(ctx context.Context, entry domain.LedgerEntry) error
}

// PaymentRepository defines access to payment snapshots
type PaymentRepository interface {
	// FindPaymentForUpdate locks and returns the payment, or apperrors.ErrNotFound.
	FindPaymentForUpdate(ctx context.Context, paymentID string) (*domain.Payment, error)
	SavePayment(ctx context.Context, payment domain.Payment) error
}

// SubscriptionRepository defines access to subscription snapshots and their monthly plan
type SubscriptionRepository interface {
	// FindSubscriptionForUpdate locks and returns the subscription, or apperrors.ErrNotFound.
	FindSubscriptionForUpdate(ctx context.Context, subscriptionID string) (*domain.Subscription, error)
	SaveSubscription(ctx context.Context, subscription domain.Subscription) error

	// ListMonthlyAllocations returns the plan rows ordered by creation.
	ListMonthlyAllocations(ctx context.Context, subscriptionID string) ([]domain.MonthlyAllocation, error)
	// InsertMonthlyAllocation returns apperrors.ErrDuplicate when the target is already planned.
	InsertMonthlyAllocation(ctx context.Context, allocation domain.MonthlyAllocation) error
	// DeleteMonthlyAllocation returns apperrors.ErrNotFound when no row matches.
	DeleteMonthlyAllocation(ctx context.Context, subscriptionID string, target domain.AllocationTarget) error
}

// LedgerTx is the view of the store available inside a transaction.
type LedgerTx interface {
	AccountLocker
	EntryReader
	EntryWriter
	PaymentRepository
	SubscriptionRepository
}

// LedgerStore is the entry store used by the services.
type LedgerStore interface {
	TransactionManager

	// ListEntries reads entries touching account, newest first, outside any write transaction.
	// It returns the page and a token for the next one.
	ListEntries(ctx context.Context, account domain.Account, filter domain.EntryFilter) ([]domain.LedgerEntry, *string, error)
}

// GroupDirectory resolves support group identities.
type GroupDirectory interface {
	GroupExists(ctx context.Context, groupID string) (bool, error)
}
