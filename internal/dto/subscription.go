package dto

import (
	"time"

	"github.com/SscSPs/fund_ledger/internal/core/domain"
)

// RegisterSubscriptionRequest defines the subscription snapshot sent by donation intake.
type RegisterSubscriptionRequest struct {
	SubscriptionID string `json:"subscriptionID" binding:"required"`
	Price          int64  `json:"price" binding:"min=0"`
	Recurrence     string `json:"recurrence" binding:"required,oneof=monthly yearly"`
}

// ToDomain converts the request to a domain.Subscription.
func (r RegisterSubscriptionRequest) ToDomain() domain.Subscription {
	return domain.Subscription{
		SubscriptionID: r.SubscriptionID,
		Price:          r.Price,
		Recurrence:     domain.Recurrence(r.Recurrence),
	}
}

// SubscriptionResponse defines the data returned for a subscription snapshot.
type SubscriptionResponse struct {
	SubscriptionID string    `json:"subscriptionID"`
	Price          int64     `json:"price"`
	PriceDisplay   string    `json:"priceDisplay"`
	Recurrence     string    `json:"recurrence"`
	CreatedAt      time.Time `json:"createdAt"`
	LastUpdatedAt  time.Time `json:"lastUpdatedAt"`
}

// ToSubscriptionResponse converts a domain.Subscription to SubscriptionResponse DTO.
func ToSubscriptionResponse(s *domain.Subscription) SubscriptionResponse {
	return SubscriptionResponse{
		SubscriptionID: s.SubscriptionID,
		Price:          s.Price,
		PriceDisplay:   FormatAmount(s.Price),
		Recurrence:     string(s.Recurrence),
		CreatedAt:      s.CreatedAt,
		LastUpdatedAt:  s.LastUpdatedAt,
	}
}

// MonthlyAllocationResponse defines one row of a subscription's monthly plan.
type MonthlyAllocationResponse struct {
	ID             string    `json:"id"`
	SubscriptionID string    `json:"subscriptionID"`
	Target         string    `json:"target"`
	Amount         int64     `json:"amount"`
	AmountDisplay  string    `json:"amountDisplay"`
	CreatedAt      time.Time `json:"createdAt"`
}

// ToMonthlyAllocationResponse converts a domain.MonthlyAllocation to its DTO.
func ToMonthlyAllocationResponse(m *domain.MonthlyAllocation) MonthlyAllocationResponse {
	return MonthlyAllocationResponse{
		ID:             m.ID,
		SubscriptionID: m.SubscriptionID,
		Target:         m.Target.String(),
		Amount:         m.Amount,
		AmountDisplay:  FormatAmount(m.Amount),
		CreatedAt:      m.CreatedAt,
	}
}

// ToMonthlyAllocationResponses converts a plan to []MonthlyAllocationResponse.
func ToMonthlyAllocationResponses(rows []domain.MonthlyAllocation) []MonthlyAllocationResponse {
	responses := make([]MonthlyAllocationResponse, len(rows))
	for i := range rows {
		responses[i] = ToMonthlyAllocationResponse(&rows[i])
	}
	return responses
}

// ReplaceMonthlyAllocationsRequest defines the full monthly plan of a subscription.
type ReplaceMonthlyAllocationsRequest struct {
	Allocations []AllocationRequest `json:"allocations" binding:"dive"`
}

// UpdateMonthlyAllocationRequest changes the amount of one monthly allocation.
type UpdateMonthlyAllocationRequest struct {
	Amount *int64 `json:"amount" binding:"required,min=0"`
}
