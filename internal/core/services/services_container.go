package services

import (
	portsrepo "github.com/SscSPs/fund_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/fund_ledger/internal/core/ports/services"
	"github.com/SscSPs/fund_ledger/internal/platform/config"
)

// NewServiceContainer creates a new service container with properly initialized dependencies
func NewServiceContainer(cfg *config.Config, repos portsrepo.RepositoryProvider, options ...ServiceOption) *portssvc.ServiceContainer {
	// Configured retry policy first so explicit options can override it
	opts := append([]ServiceOption{WithRetryPolicy(RetryPolicy{
		MaxAttempts: cfg.LedgerMaxRetries,
		Backoff:     cfg.LedgerRetryBackoff,
	})}, options...)

	// The target registry is shared by every service resolving allocation targets
	registry := NewDefaultTargetRegistry(repos.Groups)

	return &portssvc.ServiceContainer{
		Ledger:            NewLedgerService(repos.LedgerStore, opts...),
		Allocation:        NewAllocationService(repos.LedgerStore, registry, opts...),
		MonthlyAllocation: NewMonthlyAllocationService(repos.LedgerStore, registry, opts...),
		Spending:          NewSpendingService(repos.LedgerStore, registry, opts...),
	}
}
