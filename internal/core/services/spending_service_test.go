package services_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/SscSPs/fund_ledger/internal/apperrors"
	"github.com/SscSPs/fund_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/fund_ledger/internal/core/ports/repositories"
)

func (s *LedgerSuite) TestApplySpendingValidation() {
	_, err := s.spending.ApplySpending(s.ctx, "g1", 100, "sr1")
	s.ErrorIs(err, apperrors.ErrValidation)

	_, err = s.spending.ApplySpending(s.ctx, "g1", 0, "sr1")
	s.ErrorIs(err, apperrors.ErrValidation)

	_, err = s.spending.ApplySpending(s.ctx, "g1", -10, "")
	s.ErrorIs(err, apperrors.ErrValidation)

	_, err = s.spending.ApplySpending(s.ctx, "ghost", -10, "sr1")
	s.ErrorIs(err, apperrors.ErrUnknownTarget)

	_, err = s.spending.GroupBalance(s.ctx, "ghost")
	s.ErrorIs(err, apperrors.ErrUnknownTarget)
}

func (s *LedgerSuite) TestApplySpendingReplayReturnsExistingEntry() {
	s.completedPayment("p1", 1000, group("g1", 1000))

	first, err := s.spending.ApplySpending(s.ctx, "g1", -300, "sr1")
	s.Require().NoError(err)
	s.Equal("sr1", *first.SpendingRequestID)

	again, err := s.spending.ApplySpending(s.ctx, "g1", -300, "sr1")
	s.Require().NoError(err)
	s.Equal(first.EntryID, again.EntryID)
	s.Equal(int64(700), s.groupBalance("g1"))

	_, err = s.spending.ApplySpending(s.ctx, "g1", -200, "sr1")
	s.ErrorIs(err, apperrors.ErrConflict)
	s.Equal(int64(700), s.groupBalance("g1"))
}

func (s *LedgerSuite) TestApplySpendingWithTransition() {
	s.completedPayment("p1", 1000, group("g1", 1000))
	g1 := domain.GroupAccount("g1")

	called := false
	refused := errors.New("workflow refused the transition")
	_, err := s.spending.ApplySpendingWithTransition(s.ctx, "g1", -200, "sr1", func(ctx context.Context, tx portsrepo.LedgerTx) error {
		called = true
		balance, err := tx.Balance(ctx, g1)
		s.Require().NoError(err)
		s.Equal(int64(800), balance, "the debit is visible to the transition")
		return refused
	})
	s.ErrorIs(err, refused)
	s.True(called)
	s.Equal(int64(1000), s.groupBalance("g1"), "a failed transition rolls the debit back")

	called = false
	_, err = s.spending.ApplySpendingWithTransition(s.ctx, "g1", -5000, "sr2", func(context.Context, portsrepo.LedgerTx) error {
		called = true
		return nil
	})
	s.ErrorIs(err, apperrors.ErrInsufficientFunds)
	s.False(called, "the transition does not run when the debit is refused")

	entry, err := s.spending.ApplySpendingWithTransition(s.ctx, "g1", -200, "sr1", func(context.Context, portsrepo.LedgerTx) error {
		return nil
	})
	s.Require().NoError(err)
	s.Equal(int64(200), entry.Amount)
	s.Equal(int64(800), s.groupBalance("g1"))
}

func (s *LedgerSuite) TestConcurrentSpendingNeverOverdraws() {
	s.completedPayment("p1", 1000, group("g1", 1000))

	var wg sync.WaitGroup
	var succeeded, refused atomic.Int32
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.spending.ApplySpending(s.ctx, "g1", -200, fmt.Sprintf("sr%d", i))
			switch {
			case err == nil:
				succeeded.Add(1)
			case errors.Is(err, apperrors.ErrInsufficientFunds):
				refused.Add(1)
			}
		}(i)
	}
	wg.Wait()

	s.Equal(int32(5), succeeded.Load())
	s.Equal(int32(5), refused.Load())
	s.Equal(int64(0), s.groupBalance("g1"))
	s.assertDerivedBalance(domain.GroupAccount("g1"))
}
