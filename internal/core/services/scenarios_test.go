package services_test

import (
	"github.com/SscSPs/fund_ledger/internal/apperrors"
	"github.com/SscSPs/fund_ledger/internal/core/domain"
)

func (s *LedgerSuite) TestSpendingWithinSingleAllocation() {
	s.completedPayment("p1", 1000, group("g1", 600))
	s.Equal(int64(600), s.groupBalance("g1"))
	s.Equal(int64(400), s.balance(domain.AccountNational), "unallocated remainder goes to the national account")

	_, err := s.spending.ApplySpending(s.ctx, "g1", -300, "sr1")
	s.Require().NoError(err)
	s.Equal(int64(300), s.groupBalance("g1"))

	_, err = s.spending.ApplySpending(s.ctx, "g1", -400, "sr2")
	s.ErrorIs(err, apperrors.ErrInsufficientFunds)
	s.True(apperrors.IsConstraintViolation(err, apperrors.RuleNonNegativeBalance))
	s.Equal(int64(300), s.groupBalance("g1"))
}

func (s *LedgerSuite) TestSpendingAcrossTwoPayments() {
	s.completedPayment("p1", 1000, group("g1", 800))
	s.completedPayment("p2", 1000, group("g1", 800))
	s.Equal(int64(1600), s.groupBalance("g1"))

	_, err := s.spending.ApplySpending(s.ctx, "g1", -1500, "sr1")
	s.Require().NoError(err)
	s.Equal(int64(100), s.groupBalance("g1"))

	_, err = s.spending.ApplySpending(s.ctx, "g1", -200, "sr2")
	s.ErrorIs(err, apperrors.ErrInsufficientFunds)
	s.Equal(int64(100), s.groupBalance("g1"))
}

func (s *LedgerSuite) TestSpendingExactBalance() {
	s.completedPayment("p1", 8500, group("g1", 8500))
	s.completedPayment("p2", 8499, group("g2", 8499))

	entry, err := s.spending.ApplySpending(s.ctx, "g1", -8500, "sr-exact")
	s.Require().NoError(err)
	s.Equal(int64(8500), entry.Amount)
	s.Equal(domain.GroupAccount("g1"), entry.Source)
	s.Equal(domain.AccountSpending, entry.Destination)
	s.Equal(int64(0), s.groupBalance("g1"))

	_, err = s.spending.ApplySpending(s.ctx, "g2", -8500, "sr-short")
	s.ErrorIs(err, apperrors.ErrInsufficientFunds)
	s.Equal(int64(8499), s.groupBalance("g2"))
}

func (s *LedgerSuite) TestPriceReductionBelowAllocationRejected() {
	s.completedPayment("p1", 1000, group("g1", 900))

	_, err := s.alloc.ChangePaymentPrice(s.ctx, "p1", 500)
	s.True(apperrors.IsConstraintViolation(err, apperrors.RulePriceReductionSafety))

	p, err := s.alloc.HandlePaymentStatus(s.ctx, "p1", domain.PaymentCompleted)
	s.Require().NoError(err)
	s.Equal(int64(1000), p.Price)
	s.Equal(int64(900), s.groupBalance("g1"))
}

func (s *LedgerSuite) TestMonthlyAllocationCeiling() {
	_, err := s.monthly.RegisterSubscription(s.ctx, domain.Subscription{SubscriptionID: "s1", Price: 1000, Recurrence: domain.RecurrenceMonthly})
	s.Require().NoError(err)

	_, err = s.monthly.AddMonthlyAllocation(s.ctx, "s1", group("g1", 600))
	s.Require().NoError(err)
	_, err = s.monthly.AddMonthlyAllocation(s.ctx, "s1", cns(400))
	s.Require().NoError(err)

	_, err = s.monthly.AddMonthlyAllocation(s.ctx, "s1", departement("75", 1))
	s.True(apperrors.IsConstraintViolation(err, apperrors.RuleMonthlyAllocationCeiling))

	rows, err := s.monthly.ListMonthlyAllocations(s.ctx, "s1")
	s.Require().NoError(err)
	s.Require().Len(rows, 2)
	s.Equal(int64(600), rows[0].Amount)
	s.Equal(int64(400), rows[1].Amount)
}

func (s *LedgerSuite) TestConstrainedBalancesNeverNegative() {
	s.completedPayment("p1", 1000, group("g1", 500), departement("2A", 200), cns(100))
	s.completedPayment("p2", 300, group("g2", 300))
	_, _ = s.spending.ApplySpending(s.ctx, "g1", -450, "sr1")
	_, _ = s.spending.ApplySpending(s.ctx, "g1", -100, "sr2")
	_, _ = s.alloc.HandlePaymentStatus(s.ctx, "p2", domain.PaymentRefunded)
	_, _ = s.alloc.HandlePaymentStatus(s.ctx, "p1", domain.PaymentRefunded)

	for _, a := range []domain.Account{
		domain.GroupAccount("g1"), domain.GroupAccount("g2"), domain.DepartementAccount("2A"),
		domain.AccountCNS, domain.AccountNational,
	} {
		s.GreaterOrEqual(s.balance(a), int64(0), "balance of %s", a)
		s.assertDerivedBalance(a)
	}
}
