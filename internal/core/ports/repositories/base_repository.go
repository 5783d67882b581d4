package repositories

import (
	"context"
)

// TxFunc is the body of a ledger transaction. Returning an error rolls back every write
// made through tx.
type TxFunc func(ctx context.Context, tx LedgerTx) error

// TransactionManager defines methods for transaction management
type TransactionManager interface {
	// RunInTx runs fn inside one serializable transaction and commits when fn returns nil.
	// Lock timeouts and serialization failures surface as apperrors.ErrConcurrencyConflict.
	RunInTx(ctx context.Context, fn TxFunc) error
}
