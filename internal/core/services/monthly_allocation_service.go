package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/SscSPs/fund_ledger/internal/apperrors"
	"github.com/SscSPs/fund_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/fund_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/fund_ledger/internal/core/ports/services"
)

// monthlyAllocationService maintains the fixed plan of each subscription. Edits never touch
// payments already charged: those froze their plan when first applied.
type monthlyAllocationService struct {
	*ledgerCore
	registry *TargetRegistry
}

// NewMonthlyAllocationService creates a new MonthlyAllocationService.
func NewMonthlyAllocationService(store portsrepo.LedgerStore, registry *TargetRegistry, options ...ServiceOption) portssvc.MonthlyAllocationSvcFacade {
	return &monthlyAllocationService{
		ledgerCore: newLedgerCore(store, options...),
		registry:   registry,
	}
}

// Ensure monthlyAllocationService implements the portssvc.MonthlyAllocationSvcFacade interface
var _ portssvc.MonthlyAllocationSvcFacade = (*monthlyAllocationService)(nil)

func (s *monthlyAllocationService) RegisterSubscription(ctx context.Context, subscription domain.Subscription) (*domain.Subscription, error) {
	if err := subscription.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}
	var result *domain.Subscription
	_, err := s.execute(ctx, "register_subscription", func(ctx context.Context, w *entryWriter) error {
		sub := subscription
		existing, err := w.tx.FindSubscriptionForUpdate(ctx, sub.SubscriptionID)
		switch {
		case errors.Is(err, apperrors.ErrNotFound):
			sub.CreatedAt = w.now
		case err != nil:
			return err
		default:
			if sub.Price < existing.Price {
				rows, err := w.tx.ListMonthlyAllocations(ctx, sub.SubscriptionID)
				if err != nil {
					return err
				}
				if err := checkMonthlyCeiling(&sub, rows, 0); err != nil {
					return err
				}
			}
			sub.CreatedAt = existing.CreatedAt
		}
		sub.LastUpdatedAt = w.now
		if err := w.tx.SaveSubscription(ctx, sub); err != nil {
			return fmt.Errorf("save subscription %s: %w", sub.SubscriptionID, err)
		}
		result = &sub
		return nil
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to register subscription", slog.String("subscription_id", subscription.SubscriptionID))
		return nil, err
	}
	return result, nil
}

func (s *monthlyAllocationService) ChangeSubscriptionPrice(ctx context.Context, subscriptionID string, price int64) (*domain.Subscription, error) {
	if price < 0 {
		return nil, fmt.Errorf("%w: subscription price must not be negative", apperrors.ErrValidation)
	}
	var result *domain.Subscription
	_, err := s.execute(ctx, "change_subscription_price", func(ctx context.Context, w *entryWriter) error {
		sub, rows, err := s.lockPlan(ctx, w.tx, subscriptionID)
		if err != nil {
			return err
		}
		sub.Price = price
		if err := checkMonthlyCeiling(sub, rows, 0); err != nil {
			return err
		}
		sub.LastUpdatedAt = w.now
		if err := w.tx.SaveSubscription(ctx, *sub); err != nil {
			return fmt.Errorf("save subscription %s: %w", subscriptionID, err)
		}
		result = sub
		return nil
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to change subscription price",
			slog.String("subscription_id", subscriptionID),
			slog.Int64("price", price))
		return nil, err
	}
	return result, nil
}

func (s *monthlyAllocationService) AddMonthlyAllocation(ctx context.Context, subscriptionID string, raw domain.RawAllocation) (*domain.MonthlyAllocation, error) {
	allocation, err := s.registry.Resolve(ctx, raw)
	if err != nil {
		return nil, err
	}
	var result *domain.MonthlyAllocation
	_, err = s.execute(ctx, "add_monthly_allocation", func(ctx context.Context, w *entryWriter) error {
		sub, rows, err := s.lockPlan(ctx, w.tx, subscriptionID)
		if err != nil {
			return err
		}
		if findRow(rows, allocation.Target) >= 0 {
			return apperrors.NewConstraintViolation(apperrors.RuleMonthlyAllocationCeiling,
				"subscription %s already allocates to %s", subscriptionID, allocation.Target)
		}
		if err := checkMonthlyCeiling(sub, rows, allocation.Amount); err != nil {
			return err
		}
		row, err := s.insertRow(ctx, w, subscriptionID, allocation)
		result = row
		return err
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to add monthly allocation",
			slog.String("subscription_id", subscriptionID),
			slog.String("target", allocation.Target.String()))
		return nil, err
	}
	return result, nil
}

// UpdateMonthlyAllocation replaces the row of target with a new one carrying amount. The
// ceiling is checked as if the old row had been removed first.
func (s *monthlyAllocationService) UpdateMonthlyAllocation(ctx context.Context, subscriptionID string, target domain.AllocationTarget, amount int64) (*domain.MonthlyAllocation, error) {
	allocation, err := s.registry.Resolve(ctx, target.Raw(amount))
	if err != nil {
		return nil, err
	}
	var result *domain.MonthlyAllocation
	_, err = s.execute(ctx, "update_monthly_allocation", func(ctx context.Context, w *entryWriter) error {
		sub, rows, err := s.lockPlan(ctx, w.tx, subscriptionID)
		if err != nil {
			return err
		}
		idx := findRow(rows, allocation.Target)
		if idx < 0 {
			return apperrors.NewNotFoundError(fmt.Sprintf("subscription %s has no allocation to %s", subscriptionID, allocation.Target))
		}
		others := append(append([]domain.MonthlyAllocation{}, rows[:idx]...), rows[idx+1:]...)
		if err := checkMonthlyCeiling(sub, others, allocation.Amount); err != nil {
			return err
		}
		if err := w.tx.DeleteMonthlyAllocation(ctx, subscriptionID, allocation.Target); err != nil {
			return err
		}
		row, err := s.insertRow(ctx, w, subscriptionID, allocation)
		result = row
		return err
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to update monthly allocation",
			slog.String("subscription_id", subscriptionID),
			slog.String("target", target.String()))
		return nil, err
	}
	return result, nil
}

func (s *monthlyAllocationService) RemoveMonthlyAllocation(ctx context.Context, subscriptionID string, target domain.AllocationTarget) error {
	_, err := s.execute(ctx, "remove_monthly_allocation", func(ctx context.Context, w *entryWriter) error {
		if _, err := w.tx.FindSubscriptionForUpdate(ctx, subscriptionID); err != nil {
			return fmt.Errorf("load subscription %s: %w", subscriptionID, err)
		}
		return w.tx.DeleteMonthlyAllocation(ctx, subscriptionID, target)
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to remove monthly allocation",
			slog.String("subscription_id", subscriptionID),
			slog.String("target", target.String()))
	}
	return err
}

// ReplaceMonthlyAllocations swaps the whole plan in one transaction.
func (s *monthlyAllocationService) ReplaceMonthlyAllocations(ctx context.Context, subscriptionID string, raw []domain.RawAllocation) ([]domain.MonthlyAllocation, error) {
	plan, err := s.registry.ValidateList(ctx, raw)
	if err != nil {
		return nil, err
	}
	var result []domain.MonthlyAllocation
	_, err = s.execute(ctx, "replace_monthly_allocations", func(ctx context.Context, w *entryWriter) error {
		sub, rows, err := s.lockPlan(ctx, w.tx, subscriptionID)
		if err != nil {
			return err
		}
		if total := domain.SumAllocations(plan); total > sub.Price {
			return apperrors.NewConstraintViolation(apperrors.RuleMonthlyAllocationCeiling,
				"subscription %s would allocate %d monthly, above its price %d", subscriptionID, total, sub.Price)
		}
		for _, r := range rows {
			if err := w.tx.DeleteMonthlyAllocation(ctx, subscriptionID, r.Target); err != nil {
				return err
			}
		}
		result = make([]domain.MonthlyAllocation, 0, len(plan))
		for _, a := range plan {
			row, err := s.insertRow(ctx, w, subscriptionID, a)
			if err != nil {
				return err
			}
			result = append(result, *row)
		}
		return nil
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to replace monthly allocations", slog.String("subscription_id", subscriptionID))
		return nil, err
	}
	return result, nil
}

func (s *monthlyAllocationService) ListMonthlyAllocations(ctx context.Context, subscriptionID string) ([]domain.MonthlyAllocation, error) {
	var result []domain.MonthlyAllocation
	_, err := s.execute(ctx, "list_monthly_allocations", func(ctx context.Context, w *entryWriter) error {
		_, rows, err := s.lockPlan(ctx, w.tx, subscriptionID)
		result = rows
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *monthlyAllocationService) lockPlan(ctx context.Context, tx portsrepo.LedgerTx, subscriptionID string) (*domain.Subscription, []domain.MonthlyAllocation, error) {
	sub, err := tx.FindSubscriptionForUpdate(ctx, subscriptionID)
	if err != nil {
		return nil, nil, fmt.Errorf("load subscription %s: %w", subscriptionID, err)
	}
	rows, err := tx.ListMonthlyAllocations(ctx, subscriptionID)
	if err != nil {
		return nil, nil, fmt.Errorf("load monthly allocations of %s: %w", subscriptionID, err)
	}
	return sub, rows, nil
}

func (s *monthlyAllocationService) insertRow(ctx context.Context, w *entryWriter, subscriptionID string, a domain.Allocation) (*domain.MonthlyAllocation, error) {
	row := domain.MonthlyAllocation{
		ID:             w.newID(),
		SubscriptionID: subscriptionID,
		Target:         a.Target,
		Amount:         a.Amount,
		CreatedAt:      w.now,
	}
	if err := w.tx.InsertMonthlyAllocation(ctx, row); err != nil {
		if errors.Is(err, apperrors.ErrDuplicate) {
			return nil, apperrors.NewConstraintViolation(apperrors.RuleMonthlyAllocationCeiling,
				"subscription %s already allocates to %s", subscriptionID, a.Target)
		}
		return nil, fmt.Errorf("insert monthly allocation: %w", err)
	}
	return &row, nil
}

func findRow(rows []domain.MonthlyAllocation, target domain.AllocationTarget) int {
	for i, r := range rows {
		if r.Target == target {
			return i
		}
	}
	return -1
}
