package pgsql

import (
	"context"

	portsrepo "github.com/SscSPs/fund_ledger/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgxGroupRepository reads the support group directory.
type PgxGroupRepository struct {
	BaseRepository
}

func newPgxGroupRepository(pool *pgxpool.Pool) *PgxGroupRepository {
	return &PgxGroupRepository{BaseRepository: BaseRepository{Pool: pool}}
}

// Ensure PgxGroupRepository implements portsrepo.GroupDirectory
var _ portsrepo.GroupDirectory = (*PgxGroupRepository)(nil)

// GroupExists reports whether groupID is a registered support group.
func (r *PgxGroupRepository) GroupExists(ctx context.Context, groupID string) (bool, error) {
	var exists bool
	err := r.Pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM support_groups WHERE group_id = $1)`, groupID).Scan(&exists)
	if err != nil {
		return false, mapPgError(err, "failed to look up group "+groupID)
	}
	return exists, nil
}
