package mapping

import (
	"encoding/json"
	"fmt"

	"github.com/SscSPs/fund_ledger/internal/core/domain"
	"github.com/SscSPs/fund_ledger/internal/models"
)

// ToModelLedgerEntry converts a domain LedgerEntry to a model LedgerEntry
func ToModelLedgerEntry(d domain.LedgerEntry) models.LedgerEntry {
	return models.LedgerEntry{
		EntryID:           d.EntryID,
		Amount:            d.Amount,
		Source:            d.Source.String(),
		Destination:       d.Destination.String(),
		PaymentID:         d.PaymentID,
		SpendingRequestID: d.SpendingRequestID,
		ReversalOf:        d.ReversalOf,
		Comment:           d.Comment,
		CreatedAt:         d.CreatedAt,
	}
}

// ToDomainLedgerEntry converts a model LedgerEntry to a domain LedgerEntry
func ToDomainLedgerEntry(m models.LedgerEntry) domain.LedgerEntry {
	return domain.LedgerEntry{
		EntryID:           m.EntryID,
		Amount:            m.Amount,
		Source:            domain.Account(m.Source),
		Destination:       domain.Account(m.Destination),
		PaymentID:         m.PaymentID,
		SpendingRequestID: m.SpendingRequestID,
		ReversalOf:        m.ReversalOf,
		Comment:           m.Comment,
		CreatedAt:         m.CreatedAt.UTC(),
	}
}

// ToDomainLedgerEntrySlice converts a slice of model LedgerEntries to domain LedgerEntries
func ToDomainLedgerEntrySlice(ms []models.LedgerEntry) []domain.LedgerEntry {
	ds := make([]domain.LedgerEntry, len(ms))
	for i, m := range ms {
		ds[i] = ToDomainLedgerEntry(m)
	}
	return ds
}

// ToModelPayment converts a domain Payment to a model Payment, encoding the plan as json.
func ToModelPayment(d domain.Payment) (models.Payment, error) {
	plan := make([]models.PlanAllocation, len(d.AllocationPlan))
	for i, a := range d.AllocationPlan {
		plan[i] = models.PlanAllocation{TargetType: string(a.Target.Type), TargetID: a.Target.ID, Amount: a.Amount}
	}
	raw, err := json.Marshal(plan)
	if err != nil {
		return models.Payment{}, fmt.Errorf("encode allocation plan: %w", err)
	}
	return models.Payment{
		PaymentID:      d.PaymentID,
		Price:          d.Price,
		Status:         string(d.Status),
		SubscriptionID: d.SubscriptionID,
		AllocationPlan: raw,
		PlanFrozen:     d.PlanFrozen,
		AuditFields:    ToModelAuditFields(d.AuditFields),
	}, nil
}

// ToDomainPayment converts a model Payment to a domain Payment
func ToDomainPayment(m models.Payment) (domain.Payment, error) {
	var plan []models.PlanAllocation
	if len(m.AllocationPlan) > 0 {
		if err := json.Unmarshal(m.AllocationPlan, &plan); err != nil {
			return domain.Payment{}, fmt.Errorf("decode allocation plan of payment %s: %w", m.PaymentID, err)
		}
	}
	var allocations []domain.Allocation
	for _, p := range plan {
		allocations = append(allocations, domain.Allocation{
			Target: domain.AllocationTarget{Type: domain.TargetType(p.TargetType), ID: p.TargetID},
			Amount: p.Amount,
		})
	}
	return domain.Payment{
		PaymentID:      m.PaymentID,
		Price:          m.Price,
		Status:         domain.PaymentStatus(m.Status),
		SubscriptionID: m.SubscriptionID,
		AllocationPlan: allocations,
		PlanFrozen:     m.PlanFrozen,
		AuditFields:    ToDomainAuditFields(m.AuditFields),
	}, nil
}

// ToModelSubscription converts a domain Subscription to a model Subscription
func ToModelSubscription(d domain.Subscription) models.Subscription {
	return models.Subscription{
		SubscriptionID: d.SubscriptionID,
		Price:          d.Price,
		Recurrence:     string(d.Recurrence),
		AuditFields:    ToModelAuditFields(d.AuditFields),
	}
}

// ToDomainSubscription converts a model Subscription to a domain Subscription
func ToDomainSubscription(m models.Subscription) domain.Subscription {
	return domain.Subscription{
		SubscriptionID: m.SubscriptionID,
		Price:          m.Price,
		Recurrence:     domain.Recurrence(m.Recurrence),
		AuditFields:    ToDomainAuditFields(m.AuditFields),
	}
}

// ToModelMonthlyAllocation converts a domain MonthlyAllocation to a model MonthlyAllocation
func ToModelMonthlyAllocation(d domain.MonthlyAllocation) models.MonthlyAllocation {
	return models.MonthlyAllocation{
		ID:             d.ID,
		SubscriptionID: d.SubscriptionID,
		TargetType:     string(d.Target.Type),
		TargetID:       d.Target.ID,
		Amount:         d.Amount,
		CreatedAt:      d.CreatedAt,
	}
}

// ToDomainMonthlyAllocation converts a model MonthlyAllocation to a domain MonthlyAllocation
func ToDomainMonthlyAllocation(m models.MonthlyAllocation) domain.MonthlyAllocation {
	return domain.MonthlyAllocation{
		ID:             m.ID,
		SubscriptionID: m.SubscriptionID,
		Target:         domain.AllocationTarget{Type: domain.TargetType(m.TargetType), ID: m.TargetID},
		Amount:         m.Amount,
		CreatedAt:      m.CreatedAt.UTC(),
	}
}
