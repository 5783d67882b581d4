package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/SscSPs/fund_ledger/internal/apperrors"
	"github.com/SscSPs/fund_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/fund_ledger/internal/core/ports/repositories"
)

// TargetSpec describes one allocation target type.
type TargetSpec struct {
	// SubID extracts the required sub-identifier from a raw allocation. Nil means the type has none.
	SubID func(raw domain.RawAllocation) string
	// Exists reports whether a sub-identifier resolves. Nil accepts every identifier.
	Exists func(ctx context.Context, id string) (bool, error)
	// Account derives the ledger account of a resolved target.
	Account func(id string) domain.Account
}

// TargetRegistry maps target type tags to their spec. It is built once at startup and
// read-only afterwards.
type TargetRegistry struct {
	specs map[domain.TargetType]TargetSpec
}

// NewTargetRegistry copies specs into a new registry.
func NewTargetRegistry(specs map[domain.TargetType]TargetSpec) *TargetRegistry {
	r := &TargetRegistry{specs: make(map[domain.TargetType]TargetSpec, len(specs))}
	for t, s := range specs {
		r.specs[t] = s
	}
	return r
}

// NewDefaultTargetRegistry registers the group, departement, CNS and national targets.
func NewDefaultTargetRegistry(groups portsrepo.GroupDirectory) *TargetRegistry {
	return NewTargetRegistry(map[domain.TargetType]TargetSpec{
		domain.TargetGroup: {
			SubID:   func(raw domain.RawAllocation) string { return raw.Group },
			Exists:  groups.GroupExists,
			Account: domain.GroupAccount,
		},
		domain.TargetDepartement: {
			SubID: func(raw domain.RawAllocation) string { return raw.Departement },
			Exists: func(_ context.Context, code string) (bool, error) {
				return domain.IsDepartementCode(code), nil
			},
			Account: domain.DepartementAccount,
		},
		domain.TargetCNS: {
			Account: func(string) domain.Account { return domain.AccountCNS },
		},
		domain.TargetNational: {
			Account: func(string) domain.Account { return domain.AccountNational },
		},
	})
}

// Resolve validates one raw allocation.
func (r *TargetRegistry) Resolve(ctx context.Context, raw domain.RawAllocation) (domain.Allocation, error) {
	spec, ok := r.specs[domain.TargetType(raw.Type)]
	if !ok {
		return domain.Allocation{}, &apperrors.UnknownTargetError{TargetType: raw.Type}
	}
	if raw.Amount < 0 {
		return domain.Allocation{}, fmt.Errorf("%w: negative amount %d for %s allocation", apperrors.ErrValidation, raw.Amount, raw.Type)
	}
	target := domain.AllocationTarget{Type: domain.TargetType(raw.Type)}
	if spec.SubID != nil {
		target.ID = strings.TrimSpace(spec.SubID(raw))
	}
	if _, err := r.ResolveTarget(ctx, target); err != nil {
		return domain.Allocation{}, err
	}
	return domain.Allocation{Target: target, Amount: raw.Amount}, nil
}

// ResolveTarget returns the account of a target, failing closed when it cannot be resolved.
func (r *TargetRegistry) ResolveTarget(ctx context.Context, target domain.AllocationTarget) (domain.Account, error) {
	spec, ok := r.specs[target.Type]
	if !ok {
		return "", &apperrors.UnknownTargetError{TargetType: string(target.Type)}
	}
	if spec.SubID == nil {
		if target.ID != "" {
			return "", fmt.Errorf("%w: %s allocation takes no identifier", apperrors.ErrValidation, target.Type)
		}
		return spec.Account(""), nil
	}
	if target.ID == "" {
		return "", fmt.Errorf("%w: %s allocation requires an identifier", apperrors.ErrValidation, target.Type)
	}
	if spec.Exists != nil {
		ok, err := spec.Exists(ctx, target.ID)
		if err != nil {
			return "", fmt.Errorf("resolve %s: %w", target, err)
		}
		if !ok {
			return "", &apperrors.UnknownTargetError{TargetType: string(target.Type), Ref: target.ID}
		}
	}
	return spec.Account(target.ID), nil
}

// ValidateList resolves every allocation and rejects duplicate targets.
func (r *TargetRegistry) ValidateList(ctx context.Context, raws []domain.RawAllocation) ([]domain.Allocation, error) {
	plan := make([]domain.Allocation, 0, len(raws))
	seen := make(map[domain.AllocationTarget]struct{}, len(raws))
	for i, raw := range raws {
		a, err := r.Resolve(ctx, raw)
		if err != nil {
			return nil, fmt.Errorf("allocation %d: %w", i, err)
		}
		if _, dup := seen[a.Target]; dup {
			return nil, fmt.Errorf("%w: duplicate allocation target %s", apperrors.ErrValidation, a.Target)
		}
		seen[a.Target] = struct{}{}
		plan = append(plan, a)
	}
	return plan, nil
}
