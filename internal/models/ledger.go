package models

import "time"

// LedgerEntry is a row of ledger_entries. Nullable references use *string.
type LedgerEntry struct {
	EntryID           string    `db:"entry_id"`
	Amount            int64     `db:"amount"` // minor units, always > 0
	Source            string    `db:"source"`
	Destination       string    `db:"destination"`
	PaymentID         *string   `db:"payment_id"`
	SpendingRequestID *string   `db:"spending_request_id"` // unique
	ReversalOf        *string   `db:"reversal_of"`         // unique
	Comment           string    `db:"comment"`
	CreatedAt         time.Time `db:"created_at"`
}

// Payment is a row of ledger_payments.
type Payment struct {
	PaymentID      string  `db:"payment_id"`
	Price          int64   `db:"price"`
	Status         string  `db:"status"`
	SubscriptionID *string `db:"subscription_id"`
	AllocationPlan []byte  `db:"allocation_plan"` // jsonb
	PlanFrozen     bool    `db:"plan_frozen"`
	AuditFields
}

// PlanAllocation is the jsonb form of one allocation plan item.
type PlanAllocation struct {
	TargetType string `json:"type"`
	TargetID   string `json:"id,omitempty"`
	Amount     int64  `json:"amount"`
}

// Subscription is a row of ledger_subscriptions.
type Subscription struct {
	SubscriptionID string `db:"subscription_id"`
	Price          int64  `db:"price"`
	Recurrence     string `db:"recurrence"`
	AuditFields
}

// MonthlyAllocation is a row of monthly_allocations. TargetID is empty for targets without one.
type MonthlyAllocation struct {
	ID             string    `db:"id"`
	SubscriptionID string    `db:"subscription_id"`
	TargetType     string    `db:"target_type"`
	TargetID       string    `db:"target_id"`
	Amount         int64     `db:"amount"`
	CreatedAt      time.Time `db:"created_at"`
}
