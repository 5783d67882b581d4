package domain

import "fmt"

// PaymentStatus mirrors the status reported by the payment provider.
type PaymentStatus string

const (
	PaymentWaiting   PaymentStatus = "waiting"
	PaymentCompleted PaymentStatus = "completed"
	PaymentCanceled  PaymentStatus = "canceled"
	PaymentRefused   PaymentStatus = "refused"
	PaymentRefunded  PaymentStatus = "refunded"
)

func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentWaiting, PaymentCompleted, PaymentCanceled, PaymentRefused, PaymentRefunded:
		return true
	}
	return false
}

// Revokes reports whether reaching this status takes back any money already allocated.
func (s PaymentStatus) Revokes() bool {
	return s == PaymentCanceled || s == PaymentRefused || s == PaymentRefunded
}

// Payment is the ledger's snapshot of an external payment.
type Payment struct {
	PaymentID      string        `json:"paymentID"`
	Price          int64         `json:"price"`
	Status         PaymentStatus `json:"status"`
	SubscriptionID *string       `json:"subscriptionID,omitempty"`
	AllocationPlan []Allocation  `json:"allocationPlan"`
	// PlanFrozen is set once a recurring payment's plan has been derived from its subscription.
	PlanFrozen bool `json:"planFrozen"`
	AuditFields
}

// IsRecurring reports whether the payment was charged for a subscription.
func (p Payment) IsRecurring() bool {
	return p.SubscriptionID != nil && *p.SubscriptionID != ""
}

// Recurrence is the billing period of a subscription.
type Recurrence string

const (
	RecurrenceMonthly Recurrence = "monthly"
	RecurrenceYearly  Recurrence = "yearly"
)

func (r Recurrence) IsValid() bool {
	return r == RecurrenceMonthly || r == RecurrenceYearly
}

// Subscription is the ledger's snapshot of an external recurring donation.
type Subscription struct {
	SubscriptionID string     `json:"subscriptionID"`
	Price          int64      `json:"price"`
	Recurrence     Recurrence `json:"recurrence"`
	AuditFields
}

// Validate checks the snapshot fields provided by intake.
func (s Subscription) Validate() error {
	if s.SubscriptionID == "" {
		return fmt.Errorf("subscription id is required")
	}
	if s.Price < 0 {
		return fmt.Errorf("subscription price must not be negative")
	}
	if !s.Recurrence.IsValid() {
		return fmt.Errorf("unknown recurrence %q", s.Recurrence)
	}
	return nil
}
