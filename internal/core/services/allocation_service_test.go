package services_test

import (
	"github.com/SscSPs/fund_ledger/internal/apperrors"
	"github.com/SscSPs/fund_ledger/internal/core/domain"
	"github.com/SscSPs/fund_ledger/internal/core/services"
)

func (s *LedgerSuite) TestApplyPaymentAllocationsIsIdempotent() {
	s.completedPayment("p1", 1000, group("g1", 600), cns(150))
	g1, nat := s.groupBalance("g1"), s.balance(domain.AccountNational)

	written, err := s.alloc.ApplyPaymentAllocations(s.ctx, "p1")
	s.Require().NoError(err)
	s.Empty(written)

	_, err = s.alloc.HandlePaymentStatus(s.ctx, "p1", domain.PaymentCompleted)
	s.Require().NoError(err)

	s.Equal(g1, s.groupBalance("g1"))
	s.Equal(nat, s.balance(domain.AccountNational))
	s.Equal(int64(150), s.balance(domain.AccountCNS))
	s.Len(s.entries(domain.GroupAccount("g1"), domain.EntryFilter{}), 1)
}

func (s *LedgerSuite) TestCancelThenReapplyRestoresBalances() {
	s.completedPayment("p1", 1000, group("g1", 600), cns(100))

	cancelled, err := s.alloc.CancelPaymentAllocations(s.ctx, "p1")
	s.Require().NoError(err)
	s.Len(cancelled, 3)
	for _, e := range cancelled {
		s.Equal(domain.AccountDonations, e.Destination)
		s.Equal("p1", *e.PaymentID)
	}
	s.Equal(int64(0), s.groupBalance("g1"))
	s.Equal(int64(0), s.balance(domain.AccountCNS))
	s.Equal(int64(0), s.balance(domain.AccountNational))

	replay, err := s.alloc.CancelPaymentAllocations(s.ctx, "p1")
	s.Require().NoError(err)
	s.Empty(replay)

	reapplied, err := s.alloc.ApplyPaymentAllocations(s.ctx, "p1")
	s.Require().NoError(err)
	s.Len(reapplied, 3)
	s.Equal(int64(600), s.groupBalance("g1"))
	s.Equal(int64(100), s.balance(domain.AccountCNS))
	s.Equal(int64(300), s.balance(domain.AccountNational))

	// history is kept: credit, compensation, credit
	s.Len(s.entries(domain.GroupAccount("g1"), domain.EntryFilter{PaymentID: domain.Ptr("p1")}), 3)
	s.assertDerivedBalance(domain.GroupAccount("g1"))
}

func (s *LedgerSuite) TestRefundNotificationCancelsAndReplaysSilently() {
	s.completedPayment("p1", 1000, group("g1", 1000))

	p, err := s.alloc.HandlePaymentStatus(s.ctx, "p1", domain.PaymentRefunded)
	s.Require().NoError(err)
	s.Equal(domain.PaymentRefunded, p.Status)
	s.Equal(int64(0), s.groupBalance("g1"))

	_, err = s.alloc.HandlePaymentStatus(s.ctx, "p1", domain.PaymentRefunded)
	s.Require().NoError(err)
	s.Len(s.entries(domain.GroupAccount("g1"), domain.EntryFilter{}), 2)

	_, err = s.alloc.HandlePaymentStatus(s.ctx, "p1", domain.PaymentCompleted)
	s.ErrorIs(err, apperrors.ErrConflict)
	s.ErrorIs(err, services.ErrStatusTransition)
}

func (s *LedgerSuite) TestWaitingPaymentIsNotAllocated() {
	_, err := s.alloc.RegisterPayment(s.ctx, domain.Payment{PaymentID: "p1", Price: 500}, []domain.RawAllocation{group("g1", 500)})
	s.Require().NoError(err)
	s.Equal(int64(0), s.groupBalance("g1"))

	_, err = s.alloc.ApplyPaymentAllocations(s.ctx, "p1")
	s.ErrorIs(err, services.ErrPaymentNotCompleted)

	p, err := s.alloc.HandlePaymentStatus(s.ctx, "p1", domain.PaymentCompleted)
	s.Require().NoError(err)
	s.Equal(domain.PaymentCompleted, p.Status)
	s.Equal(int64(500), s.groupBalance("g1"))
	s.Equal(int64(0), s.balance(domain.AccountNational))
}

func (s *LedgerSuite) TestApplyPaymentAllocationWritesOnlyTheDelta() {
	s.completedPayment("p1", 1000, group("g1", 600))
	g2 := domain.AllocationTarget{Type: domain.TargetGroup, ID: "g2"}
	g1 := domain.AllocationTarget{Type: domain.TargetGroup, ID: "g1"}

	_, err := s.alloc.ApplyPaymentAllocation(s.ctx, "p1", g2, 500)
	s.True(apperrors.IsConstraintViolation(err, apperrors.RuleAllocationCeiling))
	s.Equal(int64(0), s.groupBalance("g2"))

	written, err := s.alloc.ApplyPaymentAllocation(s.ctx, "p1", g1, 200)
	s.Require().NoError(err)
	s.Require().Len(written, 2)
	s.Equal(domain.GroupAccount("g1"), written[0].Source)
	s.Equal(int64(400), written[0].Amount)
	s.Equal(domain.AccountNational, written[1].Destination)
	s.Equal(int64(400), written[1].Amount)
	s.Equal(int64(200), s.groupBalance("g1"))
	s.Equal(int64(800), s.balance(domain.AccountNational))

	written, err = s.alloc.ApplyPaymentAllocation(s.ctx, "p1", g2, 400)
	s.Require().NoError(err)
	s.Len(written, 2)

	written, err = s.alloc.ApplyPaymentAllocation(s.ctx, "p1", g2, 400)
	s.Require().NoError(err)
	s.Empty(written)

	nets, err := s.alloc.PaymentAllocations(s.ctx, "p1")
	s.Require().NoError(err)
	s.Equal([]domain.TargetAllocation{
		{Account: domain.GroupAccount("g1"), Net: 200},
		{Account: domain.GroupAccount("g2"), Net: 400},
		{Account: domain.AccountNational, Net: 400},
	}, nets)
}

func (s *LedgerSuite) TestApplyPaymentAllocationRaisesTargetFromRemainder() {
	s.completedPayment("p1", 1000, group("g1", 600))
	g1 := domain.AllocationTarget{Type: domain.TargetGroup, ID: "g1"}

	_, err := s.alloc.ApplyPaymentAllocation(s.ctx, "p1", g1, 700)
	s.Require().NoError(err)
	s.Equal(int64(700), s.groupBalance("g1"))
	s.Equal(int64(300), s.balance(domain.AccountNational))

	_, err = s.alloc.ApplyPaymentAllocation(s.ctx, "p1", g1, 1001)
	s.True(apperrors.IsConstraintViolation(err, apperrors.RuleAllocationCeiling))
	s.Equal(int64(700), s.groupBalance("g1"))
}

func (s *LedgerSuite) TestApplyPaymentAllocationSurvivesReplays() {
	s.completedPayment("p1", 1000, group("g1", 600))
	g1 := domain.AllocationTarget{Type: domain.TargetGroup, ID: "g1"}

	_, err := s.alloc.ApplyPaymentAllocation(s.ctx, "p1", g1, 500)
	s.Require().NoError(err)
	s.Equal(int64(500), s.balance(domain.AccountNational), "the freed amount goes to the national account")

	written, err := s.alloc.ApplyPaymentAllocations(s.ctx, "p1")
	s.Require().NoError(err)
	s.Empty(written)

	_, err = s.alloc.HandlePaymentStatus(s.ctx, "p1", domain.PaymentCompleted)
	s.Require().NoError(err)
	s.Equal(int64(500), s.groupBalance("g1"))
	s.Equal(int64(500), s.balance(domain.AccountNational))

	_, err = s.alloc.ApplyPaymentAllocation(s.ctx, "p1", g1, 0)
	s.Require().NoError(err)
	s.Equal(int64(0), s.groupBalance("g1"))
	s.Equal(int64(1000), s.balance(domain.AccountNational))

	written, err = s.alloc.ApplyPaymentAllocations(s.ctx, "p1")
	s.Require().NoError(err)
	s.Empty(written)
}

func (s *LedgerSuite) TestNetAllocationNeverExceedsPrice() {
	s.completedPayment("p1", 1000, group("g1", 1000))
	_, err := s.ledger.Append(s.ctx, domain.LedgerEntry{
		Amount: 1, Source: domain.AccountDonations, Destination: domain.GroupAccount("g2"), PaymentID: domain.Ptr("p1"),
	})
	s.True(apperrors.IsConstraintViolation(err, apperrors.RuleAllocationCeiling))

	for _, e := range s.entries(domain.GroupAccount("g1"), domain.EntryFilter{PaymentID: domain.Ptr("p1"), Direction: domain.DirectionCredit}) {
		s.LessOrEqual(e.Amount, int64(1000))
	}
}

func (s *LedgerSuite) TestRegisterPaymentValidation() {
	_, err := s.alloc.RegisterPayment(s.ctx, domain.Payment{PaymentID: "p1", Price: 100}, []domain.RawAllocation{group("g1", 150)})
	s.True(apperrors.IsConstraintViolation(err, apperrors.RuleAllocationCeiling))

	_, err = s.alloc.RegisterPayment(s.ctx, domain.Payment{PaymentID: "p1", Price: 100}, []domain.RawAllocation{group("ghost", 50)})
	s.ErrorIs(err, apperrors.ErrUnknownTarget)

	_, err = s.alloc.RegisterPayment(s.ctx, domain.Payment{Price: 100}, nil)
	s.ErrorIs(err, apperrors.ErrValidation)

	_, err = s.alloc.RegisterPayment(s.ctx, domain.Payment{PaymentID: "p1", Price: 100, Status: "paid"}, nil)
	s.ErrorIs(err, apperrors.ErrValidation)

	_, err = s.alloc.RegisterPayment(s.ctx, domain.Payment{PaymentID: "p1", Price: 100, SubscriptionID: domain.Ptr("s1")}, []domain.RawAllocation{group("g1", 10)})
	s.ErrorIs(err, services.ErrRecurringPlanInput)

	_, err = s.alloc.RegisterPayment(s.ctx, domain.Payment{PaymentID: "p1", Price: 100, SubscriptionID: domain.Ptr("missing")}, nil)
	s.ErrorIs(err, apperrors.ErrNotFound)
}

func (s *LedgerSuite) TestReRegisteringPaymentGoesThroughPriceReductionCheck() {
	s.completedPayment("p1", 1000, group("g1", 600))

	_, err := s.alloc.RegisterPayment(s.ctx, domain.Payment{PaymentID: "p1", Price: 500, Status: domain.PaymentCompleted}, nil)
	s.True(apperrors.IsConstraintViolation(err, apperrors.RulePriceReductionSafety))
	s.Equal(int64(600), s.groupBalance("g1"))

	p, err := s.alloc.RegisterPayment(s.ctx, domain.Payment{PaymentID: "p1", Price: 800, Status: domain.PaymentCompleted}, []domain.RawAllocation{group("g1", 600)})
	s.Require().NoError(err)
	s.Equal(int64(800), p.Price)
	s.Equal(int64(200), s.balance(domain.AccountNational))
}

func (s *LedgerSuite) TestChangePaymentPriceResettlesRemainder() {
	s.completedPayment("p1", 1000, group("g1", 600))

	p, err := s.alloc.ChangePaymentPrice(s.ctx, "p1", 1200)
	s.Require().NoError(err)
	s.Equal(int64(1200), p.Price)
	s.Equal(int64(600), s.balance(domain.AccountNational))

	written, err := s.alloc.ApplyPaymentAllocations(s.ctx, "p1")
	s.Require().NoError(err)
	s.Empty(written)

	_, err = s.alloc.ChangePaymentPrice(s.ctx, "p1", 800)
	s.Require().NoError(err)
	s.Equal(int64(200), s.balance(domain.AccountNational))
	s.Equal(int64(600), s.groupBalance("g1"))

	_, err = s.alloc.ChangePaymentPrice(s.ctx, "p1", 500)
	s.True(apperrors.IsConstraintViolation(err, apperrors.RulePriceReductionSafety))
	s.Equal(int64(200), s.balance(domain.AccountNational))
	s.assertDerivedBalance(domain.AccountNational)
}

func (s *LedgerSuite) TestChangePaymentPriceOfWaitingPaymentWritesNothing() {
	_, err := s.alloc.RegisterPayment(s.ctx, domain.Payment{PaymentID: "p1", Price: 1000}, []domain.RawAllocation{group("g1", 600)})
	s.Require().NoError(err)

	_, err = s.alloc.ChangePaymentPrice(s.ctx, "p1", 700)
	s.Require().NoError(err)
	s.Equal(int64(0), s.balance(domain.AccountNational))

	_, err = s.alloc.ChangePaymentPrice(s.ctx, "p1", 599)
	s.True(apperrors.IsConstraintViolation(err, apperrors.RulePriceReductionSafety))
}

func (s *LedgerSuite) TestRecurringPaymentUsesFrozenMonthlyPlan() {
	_, err := s.monthly.RegisterSubscription(s.ctx, domain.Subscription{SubscriptionID: "s1", Price: 1000, Recurrence: domain.RecurrenceMonthly})
	s.Require().NoError(err)
	_, err = s.monthly.AddMonthlyAllocation(s.ctx, "s1", group("g1", 600))
	s.Require().NoError(err)

	p, err := s.alloc.RegisterPayment(s.ctx, domain.Payment{
		PaymentID: "r1", Price: 1000, Status: domain.PaymentCompleted, SubscriptionID: domain.Ptr("s1"),
	}, nil)
	s.Require().NoError(err)
	s.True(p.PlanFrozen)
	s.Equal(int64(600), s.groupBalance("g1"))
	s.Equal(int64(400), s.balance(domain.AccountNational))

	_, err = s.monthly.UpdateMonthlyAllocation(s.ctx, "s1", domain.AllocationTarget{Type: domain.TargetGroup, ID: "g1"}, 300)
	s.Require().NoError(err)

	// replaying the first charge keeps its frozen plan
	_, err = s.alloc.HandlePaymentStatus(s.ctx, "r1", domain.PaymentCompleted)
	s.Require().NoError(err)
	s.Equal(int64(600), s.groupBalance("g1"))

	_, err = s.alloc.RegisterPayment(s.ctx, domain.Payment{
		PaymentID: "r2", Price: 1000, Status: domain.PaymentCompleted, SubscriptionID: domain.Ptr("s1"),
	}, nil)
	s.Require().NoError(err)
	s.Equal(int64(900), s.groupBalance("g1"))
	s.Equal(int64(1100), s.balance(domain.AccountNational))
}

func (s *LedgerSuite) TestValidateAllocationList() {
	plan, err := s.alloc.ValidateAllocationList(s.ctx, []domain.RawAllocation{group("g1", 10), departement("2B", 5), cns(0)})
	s.Require().NoError(err)
	s.Len(plan, 3)
	s.Equal(domain.AllocationTarget{Type: domain.TargetDepartement, ID: "2B"}, plan[1].Target)

	_, err = s.alloc.ValidateAllocationList(s.ctx, []domain.RawAllocation{group("g1", 10), group("g1", 5)})
	s.ErrorIs(err, apperrors.ErrValidation)
}
