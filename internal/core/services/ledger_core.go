package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/SscSPs/fund_ledger/internal/apperrors"
	"github.com/SscSPs/fund_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/fund_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/fund_ledger/internal/core/ports/services"
	"github.com/google/uuid"
)

// RetryPolicy bounds how often a logical call is replayed after a concurrency conflict.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration // multiplied by the attempt number
}

// DefaultRetryPolicy is used when no policy is configured.
var DefaultRetryPolicy = RetryPolicy{MaxAttempts: 3, Backoff: 25 * time.Millisecond}

// ledgerCore is shared by the ledger services: it runs logical calls in one transaction,
// retries them on conflict and notifies the publisher once they committed.
type ledgerCore struct {
	BaseService
	store     portsrepo.LedgerStore
	retry     RetryPolicy
	publisher portssvc.EntryPublisher
	now       func() time.Time
	newID     func() string
}

// ServiceOption is a functional option for configuring the ledger services
type ServiceOption func(*ledgerCore)

// WithRetryPolicy overrides DefaultRetryPolicy.
func WithRetryPolicy(policy RetryPolicy) ServiceOption {
	return func(c *ledgerCore) {
		c.retry = policy
	}
}

// WithEntryPublisher adds a post-commit entry publisher.
func WithEntryPublisher(publisher portssvc.EntryPublisher) ServiceOption {
	return func(c *ledgerCore) {
		c.publisher = publisher
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) ServiceOption {
	return func(c *ledgerCore) {
		c.now = now
	}
}

// WithIDGenerator replaces uuid.NewString for entry and row ids.
func WithIDGenerator(newID func() string) ServiceOption {
	return func(c *ledgerCore) {
		c.newID = newID
	}
}

func newLedgerCore(store portsrepo.LedgerStore, options ...ServiceOption) *ledgerCore {
	c := &ledgerCore{
		store: store,
		retry: DefaultRetryPolicy,
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, option := range options {
		option(c)
	}
	if c.retry.MaxAttempts < 1 {
		c.retry.MaxAttempts = 1
	}
	return c
}

// execute runs fn in a fresh transaction, replaying it while the store reports a concurrency
// conflict. It returns the entries written by the attempt that committed.
func (c *ledgerCore) execute(ctx context.Context, op string, fn func(ctx context.Context, w *entryWriter) error) ([]domain.LedgerEntry, error) {
	var err error
	for attempt := 1; attempt <= c.retry.MaxAttempts; attempt++ {
		var w *entryWriter
		err = c.store.RunInTx(ctx, func(ctx context.Context, tx portsrepo.LedgerTx) error {
			w = &entryWriter{tx: tx, now: c.now().UTC(), newID: c.newID}
			return fn(ctx, w)
		})
		if err == nil {
			if w == nil {
				return nil, nil
			}
			c.publish(ctx, op, w.written)
			return w.written, nil
		}
		if !apperrors.IsRetryable(err) || attempt == c.retry.MaxAttempts {
			break
		}
		c.LogDebug(ctx, "Retrying ledger transaction after conflict",
			slog.String("operation", op),
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.retry.Backoff * time.Duration(attempt)):
		}
	}
	return nil, err
}

func (c *ledgerCore) publish(ctx context.Context, op string, entries []domain.LedgerEntry) {
	if c.publisher == nil || len(entries) == 0 {
		return
	}
	if err := c.publisher.PublishEntries(ctx, entries); err != nil {
		// The entries are committed; subscribers can catch up from EntriesFor.
		c.LogError(ctx, err, "Failed to publish ledger entries",
			slog.String("operation", op),
			slog.Int("count", len(entries)))
	}
}

// entryWriter appends guarded entries within one transaction attempt.
type entryWriter struct {
	tx      portsrepo.LedgerTx
	now     time.Time
	newID   func() string
	written []domain.LedgerEntry
}

// Append checks the ledger invariants for e and inserts it.
func (w *entryWriter) Append(ctx context.Context, e domain.LedgerEntry) (domain.LedgerEntry, error) {
	if e.EntryID == "" {
		e.EntryID = w.newID()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = w.now
	}
	if err := e.Validate(); err != nil {
		return domain.LedgerEntry{}, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}
	if err := checkEntry(ctx, w.tx, e); err != nil {
		return domain.LedgerEntry{}, err
	}
	if err := w.tx.InsertEntry(ctx, e); err != nil {
		return domain.LedgerEntry{}, fmt.Errorf("insert entry %s: %w", e.EntryID, err)
	}
	w.written = append(w.written, e)
	return e, nil
}
