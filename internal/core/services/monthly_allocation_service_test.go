package services_test

import (
	"github.com/SscSPs/fund_ledger/internal/apperrors"
	"github.com/SscSPs/fund_ledger/internal/core/domain"
)

func (s *LedgerSuite) subscription(id string, price int64, plan ...domain.RawAllocation) {
	_, err := s.monthly.RegisterSubscription(s.ctx, domain.Subscription{SubscriptionID: id, Price: price, Recurrence: domain.RecurrenceMonthly})
	s.Require().NoError(err)
	for _, raw := range plan {
		_, err := s.monthly.AddMonthlyAllocation(s.ctx, id, raw)
		s.Require().NoError(err)
	}
}

func (s *LedgerSuite) TestAddMonthlyAllocationRejectsDuplicateTarget() {
	s.subscription("s1", 1000, group("g1", 100))

	_, err := s.monthly.AddMonthlyAllocation(s.ctx, "s1", group("g1", 50))
	s.True(apperrors.IsConstraintViolation(err, apperrors.RuleMonthlyAllocationCeiling))

	_, err = s.monthly.AddMonthlyAllocation(s.ctx, "unknown", group("g1", 50))
	s.ErrorIs(err, apperrors.ErrNotFound)

	_, err = s.monthly.AddMonthlyAllocation(s.ctx, "s1", departement("99", 50))
	s.ErrorIs(err, apperrors.ErrUnknownTarget)
}

func (s *LedgerSuite) TestUpdateMonthlyAllocationRecreatesRow() {
	s.subscription("s1", 1000, group("g1", 600), cns(300))
	g1 := domain.AllocationTarget{Type: domain.TargetGroup, ID: "g1"}

	before, err := s.monthly.ListMonthlyAllocations(s.ctx, "s1")
	s.Require().NoError(err)

	updated, err := s.monthly.UpdateMonthlyAllocation(s.ctx, "s1", g1, 700)
	s.Require().NoError(err)
	s.Equal(int64(700), updated.Amount)
	s.NotEqual(before[0].ID, updated.ID)

	_, err = s.monthly.UpdateMonthlyAllocation(s.ctx, "s1", g1, 800)
	s.True(apperrors.IsConstraintViolation(err, apperrors.RuleMonthlyAllocationCeiling))

	_, err = s.monthly.UpdateMonthlyAllocation(s.ctx, "s1", domain.AllocationTarget{Type: domain.TargetGroup, ID: "g2"}, 10)
	s.ErrorIs(err, apperrors.ErrNotFound)

	rows, err := s.monthly.ListMonthlyAllocations(s.ctx, "s1")
	s.Require().NoError(err)
	s.Require().Len(rows, 2)
	s.Equal(int64(1000), rows[0].Amount+rows[1].Amount)
}

func (s *LedgerSuite) TestRemoveMonthlyAllocation() {
	s.subscription("s1", 1000, group("g1", 600))
	g1 := domain.AllocationTarget{Type: domain.TargetGroup, ID: "g1"}

	s.Require().NoError(s.monthly.RemoveMonthlyAllocation(s.ctx, "s1", g1))
	s.ErrorIs(s.monthly.RemoveMonthlyAllocation(s.ctx, "s1", g1), apperrors.ErrNotFound)

	rows, err := s.monthly.ListMonthlyAllocations(s.ctx, "s1")
	s.Require().NoError(err)
	s.Empty(rows)
}

func (s *LedgerSuite) TestReplaceMonthlyAllocationsIsAllOrNothing() {
	s.subscription("s1", 1000, group("g1", 600))

	_, err := s.monthly.ReplaceMonthlyAllocations(s.ctx, "s1", []domain.RawAllocation{group("g2", 700), cns(400)})
	s.True(apperrors.IsConstraintViolation(err, apperrors.RuleMonthlyAllocationCeiling))

	rows, err := s.monthly.ListMonthlyAllocations(s.ctx, "s1")
	s.Require().NoError(err)
	s.Require().Len(rows, 1)
	s.Equal("g1", rows[0].Target.ID)

	replaced, err := s.monthly.ReplaceMonthlyAllocations(s.ctx, "s1", []domain.RawAllocation{group("g2", 700), cns(300)})
	s.Require().NoError(err)
	s.Len(replaced, 2)

	rows, err = s.monthly.ListMonthlyAllocations(s.ctx, "s1")
	s.Require().NoError(err)
	s.Equal(replaced, rows)
}

func (s *LedgerSuite) TestSubscriptionPriceCannotDropBelowPlan() {
	s.subscription("s1", 1000, group("g1", 600), cns(300))

	_, err := s.monthly.ChangeSubscriptionPrice(s.ctx, "s1", 800)
	s.True(apperrors.IsConstraintViolation(err, apperrors.RuleMonthlyAllocationCeiling))

	_, err = s.monthly.RegisterSubscription(s.ctx, domain.Subscription{SubscriptionID: "s1", Price: 850, Recurrence: domain.RecurrenceMonthly})
	s.True(apperrors.IsConstraintViolation(err, apperrors.RuleMonthlyAllocationCeiling))

	sub, err := s.monthly.ChangeSubscriptionPrice(s.ctx, "s1", 900)
	s.Require().NoError(err)
	s.Equal(int64(900), sub.Price)

	_, err = s.monthly.RegisterSubscription(s.ctx, domain.Subscription{SubscriptionID: "s2", Price: 10, Recurrence: "weekly"})
	s.ErrorIs(err, apperrors.ErrValidation)
}
