package pgsql

import (
	"time"

	portsrepo "github.com/SscSPs/fund_ledger/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NewRepositoryProvider wires the PostgreSQL implementations of the repository ports.
// lockTimeout bounds how long a transaction waits for an account or payment row lock.
func NewRepositoryProvider(dbPool *pgxpool.Pool, lockTimeout time.Duration) portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		LedgerStore: newPgxLedgerStore(dbPool, lockTimeout),
		Groups:      newPgxGroupRepository(dbPool),
	}
}
