package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/SscSPs/fund_ledger/internal/apperrors"
	"github.com/SscSPs/fund_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/fund_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/fund_ledger/internal/core/ports/services"
)

var (
	ErrPaymentNotCompleted        = errors.New("payment is not completed")
	ErrRecurringPlanInput         = errors.New("recurring payments take their allocation plan from the subscription")
	ErrStatusTransition           = errors.New("payment status transition not allowed")
	ErrPaymentSubscriptionChanged = errors.New("payment subscription cannot change")
)

// allocationService turns payment allocation plans into ledger entries.
type allocationService struct {
	*ledgerCore
	registry *TargetRegistry
}

// NewAllocationService creates a new AllocationService.
func NewAllocationService(store portsrepo.LedgerStore, registry *TargetRegistry, options ...ServiceOption) portssvc.AllocationSvcFacade {
	return &allocationService{
		ledgerCore: newLedgerCore(store, options...),
		registry:   registry,
	}
}

// Ensure allocationService implements the portssvc.AllocationSvcFacade interface
var _ portssvc.AllocationSvcFacade = (*allocationService)(nil)

func (s *allocationService) ValidateAllocationList(ctx context.Context, raw []domain.RawAllocation) ([]domain.Allocation, error) {
	return s.registry.ValidateList(ctx, raw)
}

func (s *allocationService) RegisterPayment(ctx context.Context, payment domain.Payment, rawPlan []domain.RawAllocation) (*domain.Payment, error) {
	if payment.PaymentID == "" {
		return nil, fmt.Errorf("%w: payment id is required", apperrors.ErrValidation)
	}
	if payment.Price < 0 {
		return nil, fmt.Errorf("%w: payment price must not be negative", apperrors.ErrValidation)
	}
	if payment.Status == "" {
		payment.Status = domain.PaymentWaiting
	}
	if !payment.Status.IsValid() {
		return nil, fmt.Errorf("%w: unknown payment status %q", apperrors.ErrValidation, payment.Status)
	}

	payment.AllocationPlan = nil
	payment.PlanFrozen = false
	if payment.IsRecurring() {
		if len(rawPlan) > 0 {
			return nil, fmt.Errorf("%w: %w", apperrors.ErrValidation, ErrRecurringPlanInput)
		}
	} else {
		plan, err := s.registry.ValidateList(ctx, rawPlan)
		if err != nil {
			return nil, err
		}
		if sum := domain.SumAllocations(plan); sum > payment.Price {
			return nil, apperrors.NewConstraintViolation(apperrors.RuleAllocationCeiling,
				"payment %s allocates %d, above its price %d", payment.PaymentID, sum, payment.Price)
		}
		payment.AllocationPlan = plan
	}

	var result *domain.Payment
	_, err := s.execute(ctx, "register_payment", func(ctx context.Context, w *entryWriter) error {
		p := payment
		existing, err := w.tx.FindPaymentForUpdate(ctx, p.PaymentID)
		switch {
		case errors.Is(err, apperrors.ErrNotFound):
			if p.IsRecurring() {
				if _, err := w.tx.FindSubscriptionForUpdate(ctx, *p.SubscriptionID); err != nil {
					return fmt.Errorf("load subscription %s: %w", *p.SubscriptionID, err)
				}
			}
			p.CreatedAt = w.now
		case err != nil:
			return err
		default:
			if existing.IsRecurring() != p.IsRecurring() ||
				(p.IsRecurring() && *existing.SubscriptionID != *p.SubscriptionID) {
				return fmt.Errorf("%w: %w", apperrors.ErrConflict, ErrPaymentSubscriptionChanged)
			}
			if err := checkStatusTransition(existing.Status, p.Status); err != nil {
				return err
			}
			if p.IsRecurring() {
				p.AllocationPlan = existing.AllocationPlan
				p.PlanFrozen = existing.PlanFrozen
			}
			if p.Price < existing.Price {
				if err := checkPriceReduction(ctx, w.tx, &p, p.Price); err != nil {
					return err
				}
			}
			p.CreatedAt = existing.CreatedAt
		}
		p.LastUpdatedAt = w.now
		if err := w.tx.SavePayment(ctx, p); err != nil {
			return fmt.Errorf("save payment %s: %w", p.PaymentID, err)
		}
		if err := s.settle(ctx, w, &p); err != nil {
			return err
		}
		result = &p
		return nil
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to register payment", slog.String("payment_id", payment.PaymentID))
		return nil, err
	}
	s.LogInfo(ctx, "Payment registered",
		slog.String("payment_id", result.PaymentID),
		slog.String("status", string(result.Status)))
	return result, nil
}

func (s *allocationService) ChangePaymentPrice(ctx context.Context, paymentID string, price int64) (*domain.Payment, error) {
	if price < 0 {
		return nil, fmt.Errorf("%w: payment price must not be negative", apperrors.ErrValidation)
	}
	var result *domain.Payment
	_, err := s.execute(ctx, "change_payment_price", func(ctx context.Context, w *entryWriter) error {
		payment, err := w.tx.FindPaymentForUpdate(ctx, paymentID)
		if err != nil {
			return fmt.Errorf("load payment %s: %w", paymentID, err)
		}
		if price < payment.Price {
			if err := checkPriceReduction(ctx, w.tx, payment, price); err != nil {
				return err
			}
		}
		payment.Price = price
		payment.LastUpdatedAt = w.now
		if err := w.tx.SavePayment(ctx, *payment); err != nil {
			return fmt.Errorf("save payment %s: %w", paymentID, err)
		}
		if err := s.settle(ctx, w, payment); err != nil {
			return err
		}
		result = payment
		return nil
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to change payment price",
			slog.String("payment_id", paymentID),
			slog.Int64("price", price))
		return nil, err
	}
	return result, nil
}

func (s *allocationService) HandlePaymentStatus(ctx context.Context, paymentID string, status domain.PaymentStatus) (*domain.Payment, error) {
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: unknown payment status %q", apperrors.ErrValidation, status)
	}
	var result *domain.Payment
	written, err := s.execute(ctx, "handle_payment_status", func(ctx context.Context, w *entryWriter) error {
		payment, err := w.tx.FindPaymentForUpdate(ctx, paymentID)
		if err != nil {
			return fmt.Errorf("load payment %s: %w", paymentID, err)
		}
		if err := checkStatusTransition(payment.Status, status); err != nil {
			return err
		}
		if payment.Status != status {
			payment.Status = status
			payment.LastUpdatedAt = w.now
			if err := w.tx.SavePayment(ctx, *payment); err != nil {
				return fmt.Errorf("save payment %s: %w", paymentID, err)
			}
		}
		if err := s.settle(ctx, w, payment); err != nil {
			return err
		}
		result = payment
		return nil
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to handle payment status",
			slog.String("payment_id", paymentID),
			slog.String("status", string(status)))
		return nil, err
	}
	s.LogInfo(ctx, "Payment status handled",
		slog.String("payment_id", paymentID),
		slog.String("status", string(status)),
		slog.Int("entries", len(written)))
	return result, nil
}

func (s *allocationService) ApplyPaymentAllocation(ctx context.Context, paymentID string, target domain.AllocationTarget, amount int64) ([]domain.LedgerEntry, error) {
	if amount < 0 {
		return nil, fmt.Errorf("%w: negative allocation amount %d", apperrors.ErrValidation, amount)
	}
	account, err := s.registry.ResolveTarget(ctx, target)
	if err != nil {
		return nil, err
	}
	written, err := s.execute(ctx, "apply_payment_allocation", func(ctx context.Context, w *entryWriter) error {
		payment, err := s.completedPayment(ctx, w.tx, paymentID)
		if err != nil {
			return err
		}
		if err := s.freezePlan(ctx, w, payment); err != nil {
			return err
		}
		plan, err := s.upsertPlan(ctx, payment.AllocationPlan, target, account, amount)
		if err != nil {
			return err
		}
		if sum := domain.SumAllocations(plan); sum > payment.Price {
			return apperrors.NewConstraintViolation(apperrors.RuleAllocationCeiling,
				"payment %s would allocate %d, above its price %d", payment.PaymentID, sum, payment.Price)
		}
		payment.AllocationPlan = plan
		payment.LastUpdatedAt = w.now
		if err := w.tx.SavePayment(ctx, *payment); err != nil {
			return fmt.Errorf("save payment %s: %w", payment.PaymentID, err)
		}
		return s.applyPlan(ctx, w, payment)
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to apply payment allocation",
			slog.String("payment_id", paymentID),
			slog.String("target", target.String()))
		return nil, err
	}
	return written, nil
}

func (s *allocationService) ApplyPaymentAllocations(ctx context.Context, paymentID string) ([]domain.LedgerEntry, error) {
	written, err := s.execute(ctx, "apply_payment_allocations", func(ctx context.Context, w *entryWriter) error {
		payment, err := s.completedPayment(ctx, w.tx, paymentID)
		if err != nil {
			return err
		}
		return s.applyPlan(ctx, w, payment)
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to apply payment allocations", slog.String("payment_id", paymentID))
		return nil, err
	}
	return written, nil
}

func (s *allocationService) CancelPaymentAllocations(ctx context.Context, paymentID string) ([]domain.LedgerEntry, error) {
	written, err := s.execute(ctx, "cancel_payment_allocations", func(ctx context.Context, w *entryWriter) error {
		if _, err := w.tx.FindPaymentForUpdate(ctx, paymentID); err != nil {
			return fmt.Errorf("load payment %s: %w", paymentID, err)
		}
		return s.reconcile(ctx, w, paymentID, nil)
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to cancel payment allocations", slog.String("payment_id", paymentID))
		return nil, err
	}
	return written, nil
}

func (s *allocationService) PaymentAllocations(ctx context.Context, paymentID string) ([]domain.TargetAllocation, error) {
	var result []domain.TargetAllocation
	_, err := s.execute(ctx, "payment_allocations", func(ctx context.Context, w *entryWriter) error {
		if _, err := w.tx.FindPaymentForUpdate(ctx, paymentID); err != nil {
			return fmt.Errorf("load payment %s: %w", paymentID, err)
		}
		nets, err := w.tx.NetAllocations(ctx, paymentID)
		if err != nil {
			return err
		}
		result = make([]domain.TargetAllocation, 0, len(nets))
		for _, account := range sortedAccounts(nets) {
			result = append(result, domain.TargetAllocation{Account: account, Net: nets[account]})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *allocationService) completedPayment(ctx context.Context, tx portsrepo.LedgerTx, paymentID string) (*domain.Payment, error) {
	payment, err := tx.FindPaymentForUpdate(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("load payment %s: %w", paymentID, err)
	}
	if payment.Status != domain.PaymentCompleted {
		return nil, fmt.Errorf("%w: payment %s is %s: %w", apperrors.ErrConflict, paymentID, payment.Status, ErrPaymentNotCompleted)
	}
	return payment, nil
}

// settle brings the payment's allocations in line with its status.
func (s *allocationService) settle(ctx context.Context, w *entryWriter, payment *domain.Payment) error {
	switch {
	case payment.Status == domain.PaymentCompleted:
		return s.applyPlan(ctx, w, payment)
	case payment.Status.Revokes():
		return s.reconcile(ctx, w, payment.PaymentID, nil)
	}
	return nil
}

// applyPlan reconciles every target of the payment's plan, the remainder going to the
// national account. A recurring payment's plan is derived from its subscription the first
// time and frozen on the payment so replays see the same plan.
func (s *allocationService) applyPlan(ctx context.Context, w *entryWriter, payment *domain.Payment) error {
	if err := s.freezePlan(ctx, w, payment); err != nil {
		return err
	}

	explicit := domain.SumAllocations(payment.AllocationPlan)
	if explicit > payment.Price {
		return apperrors.NewConstraintViolation(apperrors.RuleAllocationCeiling,
			"payment %s allocates %d, above its price %d", payment.PaymentID, explicit, payment.Price)
	}

	desired := make(map[domain.Account]int64, len(payment.AllocationPlan)+1)
	for _, a := range payment.AllocationPlan {
		account, err := s.registry.ResolveTarget(ctx, a.Target)
		if err != nil {
			return err
		}
		desired[account] += a.Amount
	}
	if remainder := payment.Price - explicit; remainder > 0 {
		desired[domain.AccountNational] += remainder
	}
	return s.reconcile(ctx, w, payment.PaymentID, desired)
}

// freezePlan copies the subscription's monthly plan onto a recurring payment that has none yet.
func (s *allocationService) freezePlan(ctx context.Context, w *entryWriter, payment *domain.Payment) error {
	if !payment.IsRecurring() || payment.PlanFrozen {
		return nil
	}
	rows, err := w.tx.ListMonthlyAllocations(ctx, *payment.SubscriptionID)
	if err != nil {
		return fmt.Errorf("load monthly allocations of %s: %w", *payment.SubscriptionID, err)
	}
	plan := make([]domain.Allocation, 0, len(rows))
	for _, r := range rows {
		plan = append(plan, domain.Allocation{Target: r.Target, Amount: r.Amount})
	}
	payment.AllocationPlan = plan
	payment.PlanFrozen = true
	payment.LastUpdatedAt = w.now
	if err := w.tx.SavePayment(ctx, *payment); err != nil {
		return fmt.Errorf("save payment %s: %w", payment.PaymentID, err)
	}
	return nil
}

// upsertPlan returns a copy of plan where the allocation on account is amount. A zero
// amount drops the target.
func (s *allocationService) upsertPlan(ctx context.Context, plan []domain.Allocation, target domain.AllocationTarget, account domain.Account, amount int64) ([]domain.Allocation, error) {
	updated := make([]domain.Allocation, 0, len(plan)+1)
	found := false
	for _, a := range plan {
		existing, err := s.registry.ResolveTarget(ctx, a.Target)
		if err != nil {
			return nil, err
		}
		if existing != account {
			updated = append(updated, a)
			continue
		}
		found = true
		if amount > 0 {
			updated = append(updated, domain.Allocation{Target: a.Target, Amount: amount})
		}
	}
	if !found && amount > 0 {
		updated = append(updated, domain.Allocation{Target: target, Amount: amount})
	}
	return updated, nil
}

// reconcile writes the entries taking the payment's net allocation on each account of
// desired to the desired amount. Accounts missing from desired are taken back to zero. Decreases are written before increases so the payment's total never
// transiently exceeds its price.
func (s *allocationService) reconcile(ctx context.Context, w *entryWriter, paymentID string, desired map[domain.Account]int64) error {
	current, err := w.tx.NetAllocations(ctx, paymentID)
	if err != nil {
		return err
	}
	targets := make(map[domain.Account]int64, len(desired)+len(current))
	for account, amount := range desired {
		targets[account] = amount
	}
	for account := range current {
		if _, ok := targets[account]; !ok {
			targets[account] = 0
		}
	}
	if len(targets) == 0 {
		return nil
	}

	accounts := sortedAccounts(targets)
	if err := w.tx.LockAccounts(ctx, append([]domain.Account{domain.AccountDonations}, accounts...)...); err != nil {
		return err
	}

	for _, account := range accounts {
		if delta := targets[account] - current[account]; delta < 0 {
			if _, err := w.Append(ctx, domain.LedgerEntry{
				Amount:      -delta,
				Source:      account,
				Destination: domain.AccountDonations,
				PaymentID:   &paymentID,
				Comment:     "Allocation compensation for payment " + paymentID,
			}); err != nil {
				return err
			}
		}
	}
	for _, account := range accounts {
		if delta := targets[account] - current[account]; delta > 0 {
			if _, err := w.Append(ctx, domain.LedgerEntry{
				Amount:      delta,
				Source:      domain.AccountDonations,
				Destination: account,
				PaymentID:   &paymentID,
				Comment:     "Allocation of payment " + paymentID,
			}); err != nil {
				return err
			}
		}
	}
	return nil
}

// checkStatusTransition rejects notifications that would revive a revoked payment or
// send a completed payment back to waiting. Repeating the current status is allowed.
func checkStatusTransition(from, to domain.PaymentStatus) error {
	if from == to {
		return nil
	}
	if from.Revokes() && !to.Revokes() || from == domain.PaymentCompleted && to == domain.PaymentWaiting {
		return fmt.Errorf("%w: %w from %s to %s", apperrors.ErrConflict, ErrStatusTransition, from, to)
	}
	return nil
}

func sortedAccounts(m map[domain.Account]int64) []domain.Account {
	accounts := make([]domain.Account, 0, len(m))
	for a := range m {
		accounts = append(accounts, a)
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i] < accounts[j] })
	return accounts
}
