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

const (
	defaultEntriesLimit = 50
	maxEntriesLimit     = 200
)

// ledgerService exposes the guarded entry store.
type ledgerService struct {
	*ledgerCore
}

// NewLedgerService creates a new LedgerService.
func NewLedgerService(store portsrepo.LedgerStore, options ...ServiceOption) portssvc.LedgerSvcFacade {
	return &ledgerService{ledgerCore: newLedgerCore(store, options...)}
}

// Ensure ledgerService implements the portssvc.LedgerSvcFacade interface
var _ portssvc.LedgerSvcFacade = (*ledgerService)(nil)

func (s *ledgerService) Append(ctx context.Context, entry domain.LedgerEntry) (*domain.LedgerEntry, error) {
	if err := entry.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}
	if entry.SpendingRequestID != nil || entry.ReversalOf != nil {
		return nil, fmt.Errorf("%w: settlement and reversal entries have dedicated operations", apperrors.ErrValidation)
	}

	written, err := s.execute(ctx, "append", func(ctx context.Context, w *entryWriter) error {
		_, err := w.Append(ctx, entry)
		return err
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to append ledger entry",
			slog.String("source", entry.Source.String()),
			slog.String("destination", entry.Destination.String()),
			slog.Int64("amount", entry.Amount))
		return nil, err
	}
	return &written[0], nil
}

func (s *ledgerService) Balance(ctx context.Context, account domain.Account) (int64, error) {
	if err := account.Validate(); err != nil {
		return 0, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}
	var balance int64
	_, err := s.execute(ctx, "balance", func(ctx context.Context, w *entryWriter) error {
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

func (s *ledgerService) Reverse(ctx context.Context, entryID string, reason string) (*domain.LedgerEntry, error) {
	if entryID == "" {
		return nil, fmt.Errorf("%w: entry id is required", apperrors.ErrValidation)
	}

	var result *domain.LedgerEntry
	_, err := s.execute(ctx, "reverse", func(ctx context.Context, w *entryWriter) error {
		original, err := w.tx.FindEntryByID(ctx, entryID)
		if err != nil {
			return fmt.Errorf("load entry %s: %w", entryID, err)
		}
		if original.ReversalOf != nil {
			return fmt.Errorf("%w: entry %s is itself a reversal", apperrors.ErrConflict, entryID)
		}
		existing, err := w.tx.FindReversalOf(ctx, entryID)
		if err != nil {
			return err
		}
		if existing != nil {
			result = existing
			return nil
		}

		comment := reason
		if comment == "" {
			comment = "Reversal of entry " + entryID
		}
		reversal, err := w.Append(ctx, domain.LedgerEntry{
			Amount:      original.Amount,
			Source:      original.Destination,
			Destination: original.Source,
			PaymentID:   original.PaymentID,
			ReversalOf:  &original.EntryID,
			Comment:     comment,
		})
		if err != nil {
			return err
		}
		result = &reversal
		return nil
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to reverse ledger entry", slog.String("entry_id", entryID))
		return nil, err
	}
	return result, nil
}

func (s *ledgerService) EntriesFor(ctx context.Context, account domain.Account, filter domain.EntryFilter) ([]domain.LedgerEntry, *string, error) {
	if err := account.Validate(); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}
	if !filter.Direction.IsValid() {
		return nil, nil, fmt.Errorf("%w: unknown direction %q", apperrors.ErrValidation, filter.Direction)
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultEntriesLimit
	}
	if filter.Limit > maxEntriesLimit {
		filter.Limit = maxEntriesLimit
	}
	return s.store.ListEntries(ctx, account, filter)
}
