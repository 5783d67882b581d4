package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SscSPs/fund_ledger/internal/apperrors"
	"github.com/SscSPs/fund_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/fund_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/fund_ledger/internal/core/ports/services"
)

// spendingService settles approved spending requests against their group.
type spendingService struct {
	*ledgerCore
	registry *TargetRegistry
}

// NewSpendingService creates a new SpendingService.
func NewSpendingService(store portsrepo.LedgerStore, registry *TargetRegistry, options ...ServiceOption) portssvc.SpendingSvcFacade {
	return &spendingService{
		ledgerCore: newLedgerCore(store, options...),
		registry:   registry,
	}
}

// Ensure spendingService implements the portssvc.SpendingSvcFacade interface
var _ portssvc.SpendingSvcFacade = (*spendingService)(nil)

func (s *spendingService) GroupBalance(ctx context.Context, groupID string) (int64, error) {
	account, err := s.groupAccount(ctx, groupID)
	if err != nil {
		return 0, err
	}
	var balance int64
	_, err = s.execute(ctx, "group_balance", func(ctx context.Context, w *entryWriter) error {
		if err := w.tx.LockAccounts(ctx, account); err != nil {
			return err
		}
		b, err := w.tx.Balance(ctx, account)
		balance = b
		return err
	})
	if err != nil {
		return 0, err
	}
	return balance, nil
}

func (s *spendingService) ApplySpending(ctx context.Context, groupID string, amount int64, reference string) (*domain.LedgerEntry, error) {
	return s.ApplySpendingWithTransition(ctx, groupID, amount, reference, nil)
}

// ApplySpendingWithTransition debits the group by -amount and then runs transition in the
// same transaction. When the request was already settled the existing entry is returned and
// transition does not run again.
func (s *spendingService) ApplySpendingWithTransition(ctx context.Context, groupID string, amount int64, reference string, transition portsrepo.TxFunc) (*domain.LedgerEntry, error) {
	if amount >= 0 {
		return nil, fmt.Errorf("%w: spending amount must be negative, got %d", apperrors.ErrValidation, amount)
	}
	if reference == "" {
		return nil, fmt.Errorf("%w: spending request reference is required", apperrors.ErrValidation)
	}
	account, err := s.groupAccount(ctx, groupID)
	if err != nil {
		return nil, err
	}

	var result *domain.LedgerEntry
	_, err = s.execute(ctx, "apply_spending", func(ctx context.Context, w *entryWriter) error {
		existing, err := w.tx.FindEntryBySpendingRequest(ctx, reference)
		if err != nil {
			return err
		}
		if existing != nil {
			if existing.Source != account || existing.Amount != -amount {
				return fmt.Errorf("%w: spending request %s was settled with %d from %s",
					apperrors.ErrConflict, reference, existing.Amount, existing.Source)
			}
			result = existing
			return nil
		}

		entry, err := w.Append(ctx, domain.LedgerEntry{
			Amount:            -amount,
			Source:            account,
			Destination:       domain.AccountSpending,
			SpendingRequestID: &reference,
			Comment:           "Spending request " + reference,
		})
		if err != nil {
			return err
		}
		if transition != nil {
			if err := transition(ctx, w.tx); err != nil {
				return fmt.Errorf("spending request %s transition: %w", reference, err)
			}
		}
		result = &entry
		return nil
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to apply spending",
			slog.String("group_id", groupID),
			slog.Int64("amount", amount),
			slog.String("spending_request_id", reference))
		return nil, err
	}
	s.LogInfo(ctx, "Spending applied",
		slog.String("group_id", groupID),
		slog.String("entry_id", result.EntryID),
		slog.String("spending_request_id", reference))
	return result, nil
}

func (s *spendingService) groupAccount(ctx context.Context, groupID string) (domain.Account, error) {
	return s.registry.ResolveTarget(ctx, domain.AllocationTarget{Type: domain.TargetGroup, ID: groupID})
}
