package services

import (
	"context"
	"fmt"

	"github.com/SscSPs/fund_ledger/internal/apperrors"
	"github.com/SscSPs/fund_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/fund_ledger/internal/core/ports/repositories"
)

// checkEntry enforces the allocation ceiling, non-negative balance and no-foreign-spending
// rules for an entry about to be inserted in tx. Locks are taken payment first, then
// accounts, the same order every write path uses.
func checkEntry(ctx context.Context, tx portsrepo.LedgerTx, e domain.LedgerEntry) error {
	var payment *domain.Payment
	if e.PaymentID != nil {
		p, err := tx.FindPaymentForUpdate(ctx, *e.PaymentID)
		if err != nil {
			return fmt.Errorf("load payment %s: %w", *e.PaymentID, err)
		}
		payment = p
	}
	if err := tx.LockAccounts(ctx, e.Source, e.Destination); err != nil {
		return err
	}

	if payment != nil {
		if e.Destination.IsConstrained() {
			if err := checkAllocationCeiling(ctx, tx, payment, e.Destination, e.Amount); err != nil {
				return err
			}
		}
		if e.Source.IsConstrained() {
			net, err := tx.NetAllocated(ctx, payment.PaymentID, e.Source)
			if err != nil {
				return err
			}
			if e.Amount > net {
				return apperrors.NewConstraintViolation(apperrors.RuleNoForeignSpending,
					"debit of %d from %s exceeds the %d credited by payment %s", e.Amount, e.Source, net, payment.PaymentID)
			}
		}
	}

	if e.Source.IsConstrained() {
		balance, err := tx.Balance(ctx, e.Source)
		if err != nil {
			return err
		}
		if balance < e.Amount {
			return apperrors.NewInsufficientFunds(e.Source.String(), balance, e.Amount)
		}
	}
	return nil
}

// checkAllocationCeiling rejects a credit that would take the payment's net allocation to
// target, or to all targets together, above its price.
func checkAllocationCeiling(ctx context.Context, tx portsrepo.LedgerTx, payment *domain.Payment, target domain.Account, amount int64) error {
	nets, err := tx.NetAllocations(ctx, payment.PaymentID)
	if err != nil {
		return err
	}
	if nets[target]+amount > payment.Price {
		return apperrors.NewConstraintViolation(apperrors.RuleAllocationCeiling,
			"payment %s would credit %d to %s, above its price %d", payment.PaymentID, nets[target]+amount, target, payment.Price)
	}
	if total := sumPositive(nets) + amount; total > payment.Price {
		return apperrors.NewConstraintViolation(apperrors.RuleAllocationCeiling,
			"payment %s would allocate %d in total, above its price %d", payment.PaymentID, total, payment.Price)
	}
	return nil
}

// checkPriceReduction rejects a new price below what the payment has explicitly allocated or
// plans to. The national remainder is not counted, it shrinks with the price.
func checkPriceReduction(ctx context.Context, tx portsrepo.LedgerTx, payment *domain.Payment, price int64) error {
	nets, err := tx.NetAllocations(ctx, payment.PaymentID)
	if err != nil {
		return err
	}
	var allocated int64
	for account, net := range nets {
		if account != domain.AccountNational && net > 0 {
			allocated += net
		}
	}
	if allocated > price {
		return apperrors.NewConstraintViolation(apperrors.RulePriceReductionSafety,
			"payment %s has %d allocated, cannot lower its price to %d", payment.PaymentID, allocated, price)
	}
	if planned := domain.SumAllocations(payment.AllocationPlan); planned > price {
		return apperrors.NewConstraintViolation(apperrors.RulePriceReductionSafety,
			"payment %s plans %d, cannot lower its price to %d", payment.PaymentID, planned, price)
	}
	return nil
}

// checkMonthlyCeiling rejects a subscription plan summing above price.
func checkMonthlyCeiling(subscription *domain.Subscription, rows []domain.MonthlyAllocation, extra int64) error {
	var total int64
	for _, r := range rows {
		total += r.Amount
	}
	if total+extra > subscription.Price {
		return apperrors.NewConstraintViolation(apperrors.RuleMonthlyAllocationCeiling,
			"subscription %s would allocate %d monthly, above its price %d", subscription.SubscriptionID, total+extra, subscription.Price)
	}
	return nil
}

func sumPositive(nets map[domain.Account]int64) int64 {
	var total int64
	for _, n := range nets {
		if n > 0 {
			total += n
		}
	}
	return total
}
