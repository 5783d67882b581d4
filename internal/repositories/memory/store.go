// Package memory is an in-process ledger store. Transactions are serialized behind one mutex
// and their writes are buffered until commit, so a failed transaction leaves no trace.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/SscSPs/fund_ledger/internal/apperrors"
	"github.com/SscSPs/fund_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/fund_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/fund_ledger/internal/utils/pagination"
)

// Store keeps entries, payment and subscription snapshots in memory.
type Store struct {
	mu            sync.Mutex
	entries       []domain.LedgerEntry
	byID          map[string]int
	bySpending    map[string]int
	byReversal    map[string]int
	payments      map[string]domain.Payment
	subscriptions map[string]domain.Subscription
	monthly       map[string][]domain.MonthlyAllocation

	groupsMu sync.RWMutex
	groups   map[string]struct{}
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		byID:          make(map[string]int),
		bySpending:    make(map[string]int),
		byReversal:    make(map[string]int),
		payments:      make(map[string]domain.Payment),
		subscriptions: make(map[string]domain.Subscription),
		monthly:       make(map[string][]domain.MonthlyAllocation),
		groups:        make(map[string]struct{}),
	}
}

var (
	_ portsrepo.LedgerStore    = (*Store)(nil)
	_ portsrepo.GroupDirectory = (*Store)(nil)
	_ portsrepo.LedgerTx       = (*memTx)(nil)
)

// RegisterGroup makes groupID resolvable.
func (s *Store) RegisterGroup(groupID string) {
	s.groupsMu.Lock()
	defer s.groupsMu.Unlock()
	s.groups[groupID] = struct{}{}
}

func (s *Store) GroupExists(_ context.Context, groupID string) (bool, error) {
	s.groupsMu.RLock()
	defer s.groupsMu.RUnlock()
	_, ok := s.groups[groupID]
	return ok, nil
}

func (s *Store) RunInTx(ctx context.Context, fn portsrepo.TxFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{
		store:         s,
		payments:      make(map[string]domain.Payment, len(s.payments)),
		subscriptions: make(map[string]domain.Subscription, len(s.subscriptions)),
		monthly:       make(map[string][]domain.MonthlyAllocation, len(s.monthly)),
	}
	for k, v := range s.payments {
		tx.payments[k] = v
	}
	for k, v := range s.subscriptions {
		tx.subscriptions[k] = v
	}
	for k, v := range s.monthly {
		tx.monthly[k] = v
	}

	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	for _, e := range tx.pending {
		s.index(e, len(s.entries))
		s.entries = append(s.entries, e)
	}
	s.payments = tx.payments
	s.subscriptions = tx.subscriptions
	s.monthly = tx.monthly
	return nil
}

func (s *Store) index(e domain.LedgerEntry, pos int) {
	s.byID[e.EntryID] = pos
	if e.SpendingRequestID != nil {
		s.bySpending[*e.SpendingRequestID] = pos
	}
	if e.ReversalOf != nil {
		s.byReversal[*e.ReversalOf] = pos
	}
}

func (s *Store) ListEntries(ctx context.Context, account domain.Account, filter domain.EntryFilter) ([]domain.LedgerEntry, *string, error) {
	var cursor *pagination.Cursor
	if filter.NextToken != nil && *filter.NextToken != "" {
		c, err := pagination.DecodeToken(*filter.NextToken)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
		}
		cursor = &c
	}

	s.mu.Lock()
	matched := make([]domain.LedgerEntry, 0)
	for _, e := range s.entries {
		if !filter.Matches(account, e) {
			continue
		}
		if cursor != nil && !cursor.After(e.CreatedAt, e.EntryID) {
			continue
		}
		matched = append(matched, cloneEntry(e))
	}
	s.mu.Unlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].EntryID > matched[j].EntryID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	if filter.Limit <= 0 || len(matched) <= filter.Limit {
		return matched, nil, nil
	}
	page := matched[:filter.Limit]
	last := page[len(page)-1]
	token := pagination.EncodeToken(last.CreatedAt, last.EntryID)
	return page, &token, nil
}

// memTx reads committed state plus its own pending writes. Snapshot maps are replaced
// wholesale on commit; slices stored in them are never mutated in place.
type memTx struct {
	store         *Store
	pending       []domain.LedgerEntry
	payments      map[string]domain.Payment
	subscriptions map[string]domain.Subscription
	monthly       map[string][]domain.MonthlyAllocation
}

// LockAccounts is a no-op: the store mutex already serializes transactions.
func (t *memTx) LockAccounts(_ context.Context, accounts ...domain.Account) error {
	for _, a := range accounts {
		if err := a.Validate(); err != nil {
			return fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
		}
	}
	return nil
}

func (t *memTx) each(fn func(e *domain.LedgerEntry)) {
	for i := range t.store.entries {
		fn(&t.store.entries[i])
	}
	for i := range t.pending {
		fn(&t.pending[i])
	}
}

func (t *memTx) Balance(_ context.Context, account domain.Account) (int64, error) {
	var balance int64
	t.each(func(e *domain.LedgerEntry) {
		balance += e.Signed(account)
	})
	return balance, nil
}

func (t *memTx) NetAllocated(_ context.Context, paymentID string, account domain.Account) (int64, error) {
	var net int64
	t.each(func(e *domain.LedgerEntry) {
		if e.PaymentID != nil && *e.PaymentID == paymentID {
			net += e.Signed(account)
		}
	})
	return net, nil
}

func (t *memTx) NetAllocations(_ context.Context, paymentID string) (map[domain.Account]int64, error) {
	nets := make(map[domain.Account]int64)
	t.each(func(e *domain.LedgerEntry) {
		if e.PaymentID == nil || *e.PaymentID != paymentID {
			return
		}
		if e.Destination.IsConstrained() {
			nets[e.Destination] += e.Amount
		}
		if e.Source.IsConstrained() {
			nets[e.Source] -= e.Amount
		}
	})
	return nets, nil
}

func (t *memTx) FindEntryByID(_ context.Context, entryID string) (*domain.LedgerEntry, error) {
	if pos, ok := t.store.byID[entryID]; ok {
		e := cloneEntry(t.store.entries[pos])
		return &e, nil
	}
	for _, e := range t.pending {
		if e.EntryID == entryID {
			e = cloneEntry(e)
			return &e, nil
		}
	}
	return nil, apperrors.NewNotFoundError("entry " + entryID)
}

func (t *memTx) FindEntryBySpendingRequest(_ context.Context, requestID string) (*domain.LedgerEntry, error) {
	return t.findIndexed(t.store.bySpending, requestID, func(e domain.LedgerEntry) *string { return e.SpendingRequestID }), nil
}

func (t *memTx) FindReversalOf(_ context.Context, entryID string) (*domain.LedgerEntry, error) {
	return t.findIndexed(t.store.byReversal, entryID, func(e domain.LedgerEntry) *string { return e.ReversalOf }), nil
}

func (t *memTx) findIndexed(index map[string]int, key string, field func(domain.LedgerEntry) *string) *domain.LedgerEntry {
	if pos, ok := index[key]; ok {
		e := cloneEntry(t.store.entries[pos])
		return &e
	}
	for _, e := range t.pending {
		if v := field(e); v != nil && *v == key {
			e = cloneEntry(e)
			return &e
		}
	}
	return nil
}

// InsertEntry mirrors the unique constraints of the entries table.
func (t *memTx) InsertEntry(ctx context.Context, entry domain.LedgerEntry) error {
	if _, err := t.FindEntryByID(ctx, entry.EntryID); err == nil {
		return fmt.Errorf("%w: entry %s", apperrors.ErrDuplicate, entry.EntryID)
	}
	if entry.SpendingRequestID != nil {
		if e, _ := t.FindEntryBySpendingRequest(ctx, *entry.SpendingRequestID); e != nil {
			return fmt.Errorf("%w: spending request %s already settled", apperrors.ErrDuplicate, *entry.SpendingRequestID)
		}
	}
	if entry.ReversalOf != nil {
		if e, _ := t.FindReversalOf(ctx, *entry.ReversalOf); e != nil {
			return fmt.Errorf("%w: entry %s already reversed", apperrors.ErrDuplicate, *entry.ReversalOf)
		}
	}
	t.pending = append(t.pending, cloneEntry(entry))
	return nil
}

func (t *memTx) FindPaymentForUpdate(_ context.Context, paymentID string) (*domain.Payment, error) {
	p, ok := t.payments[paymentID]
	if !ok {
		return nil, apperrors.NewNotFoundError("payment " + paymentID)
	}
	p = clonePayment(p)
	return &p, nil
}

func (t *memTx) SavePayment(_ context.Context, payment domain.Payment) error {
	t.payments[payment.PaymentID] = clonePayment(payment)
	return nil
}

func (t *memTx) FindSubscriptionForUpdate(_ context.Context, subscriptionID string) (*domain.Subscription, error) {
	sub, ok := t.subscriptions[subscriptionID]
	if !ok {
		return nil, apperrors.NewNotFoundError("subscription " + subscriptionID)
	}
	return &sub, nil
}

func (t *memTx) SaveSubscription(_ context.Context, subscription domain.Subscription) error {
	t.subscriptions[subscription.SubscriptionID] = subscription
	return nil
}

func (t *memTx) ListMonthlyAllocations(_ context.Context, subscriptionID string) ([]domain.MonthlyAllocation, error) {
	rows := t.monthly[subscriptionID]
	out := make([]domain.MonthlyAllocation, len(rows))
	copy(out, rows)
	return out, nil
}

func (t *memTx) InsertMonthlyAllocation(_ context.Context, allocation domain.MonthlyAllocation) error {
	rows := t.monthly[allocation.SubscriptionID]
	for _, r := range rows {
		if r.Target == allocation.Target {
			return fmt.Errorf("%w: monthly allocation to %s", apperrors.ErrDuplicate, allocation.Target)
		}
	}
	next := make([]domain.MonthlyAllocation, 0, len(rows)+1)
	next = append(next, rows...)
	t.monthly[allocation.SubscriptionID] = append(next, allocation)
	return nil
}

func (t *memTx) DeleteMonthlyAllocation(_ context.Context, subscriptionID string, target domain.AllocationTarget) error {
	rows := t.monthly[subscriptionID]
	next := make([]domain.MonthlyAllocation, 0, len(rows))
	for _, r := range rows {
		if r.Target != target {
			next = append(next, r)
		}
	}
	if len(next) == len(rows) {
		return apperrors.NewNotFoundError(fmt.Sprintf("monthly allocation to %s for subscription %s", target, subscriptionID))
	}
	t.monthly[subscriptionID] = next
	return nil
}

func cloneEntry(e domain.LedgerEntry) domain.LedgerEntry {
	e.PaymentID = cloneString(e.PaymentID)
	e.SpendingRequestID = cloneString(e.SpendingRequestID)
	e.ReversalOf = cloneString(e.ReversalOf)
	return e
}

func clonePayment(p domain.Payment) domain.Payment {
	p.SubscriptionID = cloneString(p.SubscriptionID)
	if p.AllocationPlan != nil {
		plan := make([]domain.Allocation, len(p.AllocationPlan))
		copy(plan, p.AllocationPlan)
		p.AllocationPlan = plan
	}
	return p
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
