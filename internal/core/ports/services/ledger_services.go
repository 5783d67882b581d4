package services

import (
	"context"

	"github.com/SscSPs/fund_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/fund_ledger/internal/core/ports/repositories"
)

// LedgerWriterSvc defines guarded writes to the entry log
type LedgerWriterSvc interface {
	// Append writes one entry after checking every ledger invariant in the same transaction.
	Append(ctx context.Context, entry domain.LedgerEntry) (*domain.LedgerEntry, error)

	// Reverse writes the compensating entry of entryID. Replaying returns the existing reversal.
	Reverse(ctx context.Context, entryID string, reason string) (*domain.LedgerEntry, error)
}

// LedgerReaderSvc defines read operations on balances and entries
type LedgerReaderSvc interface {
	// Balance returns the balance of exactly this account.
	Balance(ctx context.Context, account domain.Account) (int64, error)

	// EntriesFor returns a page of entries touching account, newest first, and the next page token.
	EntriesFor(ctx context.Context, account domain.Account, filter domain.EntryFilter) ([]domain.LedgerEntry, *string, error)
}

// LedgerSvcFacade combines all ledger-related service interfaces
type LedgerSvcFacade interface {
	LedgerWriterSvc
	LedgerReaderSvc
}

// AllocationSvcFacade is the donation intake surface.
type AllocationSvcFacade interface {
	// ValidateAllocationList resolves a client supplied allocation list, failing closed.
	ValidateAllocationList(ctx context.Context, raw []domain.RawAllocation) ([]domain.Allocation, error)

	// RegisterPayment stores or refreshes a payment snapshot and reacts to its status.
	RegisterPayment(ctx context.Context, payment domain.Payment, plan []domain.RawAllocation) (*domain.Payment, error)

	// ChangePaymentPrice changes a payment's price, refusing reductions below what is allocated.
	ChangePaymentPrice(ctx context.Context, paymentID string, price int64) (*domain.Payment, error)

	// HandlePaymentStatus records a status notification: completed applies the plan,
	// canceled, refused and refunded cancel it. Replays are no-ops.
	HandlePaymentStatus(ctx context.Context, paymentID string, status domain.PaymentStatus) (*domain.Payment, error)

	// ApplyPaymentAllocation sets the net allocation of a payment to one target, writing only the delta.
	ApplyPaymentAllocation(ctx context.Context, paymentID string, target domain.AllocationTarget, amount int64) ([]domain.LedgerEntry, error)

	// ApplyPaymentAllocations applies the payment's whole plan, sending the remainder to the national account.
	ApplyPaymentAllocations(ctx context.Context, paymentID string) ([]domain.LedgerEntry, error)

	// CancelPaymentAllocations compensates every positive net allocation of the payment.
	CancelPaymentAllocations(ctx context.Context, paymentID string) ([]domain.LedgerEntry, error)

	// PaymentAllocations returns the current net allocation per account.
	PaymentAllocations(ctx context.Context, paymentID string) ([]domain.TargetAllocation, error)
}

// MonthlyAllocationSvcFacade manages subscriptions and their recurring plan.
type MonthlyAllocationSvcFacade interface {
	RegisterSubscription(ctx context.Context, subscription domain.Subscription) (*domain.Subscription, error)
	ChangeSubscriptionPrice(ctx context.Context, subscriptionID string, price int64) (*domain.Subscription, error)
	AddMonthlyAllocation(ctx context.Context, subscriptionID string, raw domain.RawAllocation) (*domain.MonthlyAllocation, error)
	UpdateMonthlyAllocation(ctx context.Context, subscriptionID string, target domain.AllocationTarget, amount int64) (*domain.MonthlyAllocation, error)
	RemoveMonthlyAllocation(ctx context.Context, subscriptionID string, target domain.AllocationTarget) error
	ReplaceMonthlyAllocations(ctx context.Context, subscriptionID string, raw []domain.RawAllocation) ([]domain.MonthlyAllocation, error)
	ListMonthlyAllocations(ctx context.Context, subscriptionID string) ([]domain.MonthlyAllocation, error)
}

// SpendingSvcFacade is the surface used by the spending request workflow.
type SpendingSvcFacade interface {
	GroupBalance(ctx context.Context, groupID string) (int64, error)

	// ApplySpending debits the group once per reference. amount must be negative.
	ApplySpending(ctx context.Context, groupID string, amount int64, reference string) (*domain.LedgerEntry, error)

	// ApplySpendingWithTransition runs transition in the debit's transaction, after the debit.
	ApplySpendingWithTransition(ctx context.Context, groupID string, amount int64, reference string, transition portsrepo.TxFunc) (*domain.LedgerEntry, error)
}
