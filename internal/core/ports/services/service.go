package services

import (
	"context"

	"github.com/SscSPs/fund_ledger/internal/core/domain"
)

// ServiceContainer holds instances of all the application services.
// This is the main entry point for accessing service functionality and
// is used throughout the application, particularly in the handlers.
type ServiceContainer struct {
	Ledger            LedgerSvcFacade
	Allocation        AllocationSvcFacade
	MonthlyAllocation MonthlyAllocationSvcFacade
	Spending          SpendingSvcFacade
}

// EntryPublisher is notified of entries after their transaction committed.
type EntryPublisher interface {
	PublishEntries(ctx context.Context, entries []domain.LedgerEntry) error
}
