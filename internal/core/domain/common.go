package domain

import "time"

// AuditFields holds standard audit information for ledger snapshots.
type AuditFields struct {
	CreatedAt     time.Time `json:"createdAt"`
	LastUpdatedAt time.Time `json:"lastUpdatedAt"`
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T { return &v }
