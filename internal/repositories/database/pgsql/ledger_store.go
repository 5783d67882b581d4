package pgsql

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/SscSPs/fund_ledger/internal/apperrors"
	"github.com/SscSPs/fund_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/fund_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/fund_ledger/internal/models"
	"github.com/SscSPs/fund_ledger/internal/utils/mapping"
	"github.com/SscSPs/fund_ledger/internal/utils/pagination"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const entryColumns = `entry_id, amount, source, destination, payment_id, spending_request_id, reversal_of, comment, created_at`

// PgxLedgerStore runs ledger transactions against PostgreSQL.
type PgxLedgerStore struct {
	BaseRepository
	lockTimeout time.Duration
}

func newPgxLedgerStore(pool *pgxpool.Pool, lockTimeout time.Duration) *PgxLedgerStore {
	return &PgxLedgerStore{
		BaseRepository: BaseRepository{Pool: pool},
		lockTimeout:    lockTimeout,
	}
}

// Ensure PgxLedgerStore implements portsrepo.LedgerStore
var _ portsrepo.LedgerStore = (*PgxLedgerStore)(nil)

// RunInTx runs fn in a serializable transaction and commits when it returns nil.
func (s *PgxLedgerStore) RunInTx(ctx context.Context, fn portsrepo.TxFunc) error {
	tx, err := s.Begin(ctx, s.lockTimeout)
	if err != nil {
		return err
	}
	// Ignored once the transaction is committed.
	defer s.Rollback(context.WithoutCancel(ctx), tx)

	if err := fn(ctx, &pgxLedgerTx{tx: tx}); err != nil {
		return err
	}
	return s.Commit(ctx, tx)
}

// ListEntries reads one page of the entries touching account, newest first.
func (s *PgxLedgerStore) ListEntries(ctx context.Context, account domain.Account, filter domain.EntryFilter) ([]domain.LedgerEntry, *string, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	// We fetch one extra item to determine if there's a next page.
	fetchLimit := limit + 1

	args := []any{account.String()}
	var where []string
	switch filter.Direction {
	case domain.DirectionCredit:
		where = append(where, "destination = $1")
	case domain.DirectionDebit:
		where = append(where, "source = $1")
	default:
		where = append(where, "(source = $1 OR destination = $1)")
	}
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if filter.PaymentID != nil {
		where = append(where, "payment_id = "+arg(*filter.PaymentID))
	}
	if filter.SpendingRequestID != nil {
		where = append(where, "spending_request_id = "+arg(*filter.SpendingRequestID))
	}
	if filter.CreatedAfter != nil {
		where = append(where, "created_at > "+arg(*filter.CreatedAfter))
	}
	if filter.CreatedBefore != nil {
		where = append(where, "created_at < "+arg(*filter.CreatedBefore))
	}
	if filter.NextToken != nil && *filter.NextToken != "" {
		cursor, err := pagination.DecodeToken(*filter.NextToken)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: invalid nextToken: %v", apperrors.ErrValidation, err)
		}
		// Tuple comparison keeps the (created_at, entry_id) order stable across pages.
		where = append(where, "(created_at, entry_id) < ("+arg(cursor.CreatedAt)+", "+arg(cursor.ID)+")")
	}

	query := `SELECT ` + entryColumns + ` FROM ledger_entries WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY created_at DESC, entry_id DESC LIMIT ` + arg(fetchLimit)

	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, mapPgError(err, "failed to query entries for account "+account.String())
	}
	entries, err := scanEntries(rows)
	if err != nil {
		return nil, nil, mapPgError(err, "failed to scan entries for account "+account.String())
	}

	var nextToken *string
	if len(entries) > limit {
		entries = entries[:limit]
		last := entries[limit-1]
		token := pagination.EncodeToken(last.CreatedAt, last.EntryID)
		nextToken = &token
	}
	return mapping.ToDomainLedgerEntrySlice(entries), nextToken, nil
}

func scanEntries(rows pgx.Rows) ([]models.LedgerEntry, error) {
	defer rows.Close()
	var entries []models.LedgerEntry
	for rows.Next() {
		var e models.LedgerEntry
		if err := rows.Scan(
			&e.EntryID,
			&e.Amount,
			&e.Source,
			&e.Destination,
			&e.PaymentID,
			&e.SpendingRequestID,
			&e.ReversalOf,
			&e.Comment,
			&e.CreatedAt,
		); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
