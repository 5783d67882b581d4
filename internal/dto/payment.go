package dto

import (
	"time"

	"github.com/SscSPs/fund_ledger/internal/core/domain"
)

// AllocationRequest is one allocation of a plan as submitted by a client.
type AllocationRequest struct {
	Type        string `json:"type" binding:"required"`
	Group       string `json:"group,omitempty"`
	Departement string `json:"departement,omitempty"`
	Amount      int64  `json:"amount" binding:"min=0"`
}

// ToRawAllocations converts the request items to domain.RawAllocation.
func ToRawAllocations(reqs []AllocationRequest) []domain.RawAllocation {
	raws := make([]domain.RawAllocation, len(reqs))
	for i, r := range reqs {
		raws[i] = domain.RawAllocation{Type: r.Type, Group: r.Group, Departement: r.Departement, Amount: r.Amount}
	}
	return raws
}

// AllocationResponse is a validated allocation.
type AllocationResponse struct {
	Target        string `json:"target"` // "type" or "type:id"
	Type          string `json:"type"`
	TargetID      string `json:"targetID,omitempty"`
	Amount        int64  `json:"amount"`
	AmountDisplay string `json:"amountDisplay"`
}

// ToAllocationResponses converts a plan to []AllocationResponse.
func ToAllocationResponses(plan []domain.Allocation) []AllocationResponse {
	responses := make([]AllocationResponse, len(plan))
	for i, a := range plan {
		responses[i] = AllocationResponse{
			Target:        a.Target.String(),
			Type:          string(a.Target.Type),
			TargetID:      a.Target.ID,
			Amount:        a.Amount,
			AmountDisplay: FormatAmount(a.Amount),
		}
	}
	return responses
}

// ValidateAllocationsRequest defines the body of an allocation list check.
type ValidateAllocationsRequest struct {
	Allocations []AllocationRequest `json:"allocations" binding:"required,dive"`
}

// ValidateAllocationsResponse returns the normalized plan and its total.
type ValidateAllocationsResponse struct {
	Allocations []AllocationResponse `json:"allocations"`
	Total       int64                `json:"total"`
}

// RegisterPaymentRequest defines the payment snapshot sent by donation intake.
type RegisterPaymentRequest struct {
	PaymentID      string              `json:"paymentID" binding:"required"`
	Price          int64               `json:"price" binding:"min=0"`
	Status         string              `json:"status" binding:"omitempty,oneof=waiting completed canceled refused refunded"`
	SubscriptionID *string             `json:"subscriptionID,omitempty"`
	Allocations    []AllocationRequest `json:"allocations" binding:"dive"`
}

// ToDomain converts the request into a payment snapshot and its raw plan.
func (r RegisterPaymentRequest) ToDomain() (domain.Payment, []domain.RawAllocation) {
	return domain.Payment{
		PaymentID:      r.PaymentID,
		Price:          r.Price,
		Status:         domain.PaymentStatus(r.Status),
		SubscriptionID: r.SubscriptionID,
	}, ToRawAllocations(r.Allocations)
}

// ChangePriceRequest defines the body of a price change.
type ChangePriceRequest struct {
	Price *int64 `json:"price" binding:"required,min=0"`
}

// PaymentStatusRequest defines a payment status notification.
type PaymentStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=waiting completed canceled refused refunded"`
}

// ApplyAllocationRequest sets the net amount a payment allocates to one target.
type ApplyAllocationRequest struct {
	Amount *int64 `json:"amount" binding:"required,min=0"`
}

// PaymentResponse defines the data returned for a payment snapshot.
type PaymentResponse struct {
	PaymentID      string               `json:"paymentID"`
	Price          int64                `json:"price"`
	PriceDisplay   string               `json:"priceDisplay"`
	Status         string               `json:"status"`
	SubscriptionID *string              `json:"subscriptionID,omitempty"`
	AllocationPlan []AllocationResponse `json:"allocationPlan"`
	PlanFrozen     bool                 `json:"planFrozen"`
	CreatedAt      time.Time            `json:"createdAt"`
	LastUpdatedAt  time.Time            `json:"lastUpdatedAt"`
}

// ToPaymentResponse converts a domain.Payment to PaymentResponse DTO.
func ToPaymentResponse(p *domain.Payment) PaymentResponse {
	return PaymentResponse{
		PaymentID:      p.PaymentID,
		Price:          p.Price,
		PriceDisplay:   FormatAmount(p.Price),
		Status:         string(p.Status),
		SubscriptionID: p.SubscriptionID,
		AllocationPlan: ToAllocationResponses(p.AllocationPlan),
		PlanFrozen:     p.PlanFrozen,
		CreatedAt:      p.CreatedAt,
		LastUpdatedAt:  p.LastUpdatedAt,
	}
}

// TargetAllocationResponse is the net amount a payment holds on one account.
type TargetAllocationResponse struct {
	Account    string `json:"account"`
	Net        int64  `json:"net"`
	NetDisplay string `json:"netDisplay"`
}

// PaymentAllocationsResponse lists the current net allocations of a payment.
type PaymentAllocationsResponse struct {
	PaymentID   string                     `json:"paymentID"`
	Allocations []TargetAllocationResponse `json:"allocations"`
}

// ToPaymentAllocationsResponse converts net allocations to their DTO.
func ToPaymentAllocationsResponse(paymentID string, nets []domain.TargetAllocation) PaymentAllocationsResponse {
	allocations := make([]TargetAllocationResponse, len(nets))
	for i, n := range nets {
		allocations[i] = TargetAllocationResponse{Account: n.Account.String(), Net: n.Net, NetDisplay: FormatAmount(n.Net)}
	}
	return PaymentAllocationsResponse{PaymentID: paymentID, Allocations: allocations}
}
