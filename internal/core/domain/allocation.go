package domain

import (
	"strings"
	"time"
)

// TargetType is the discriminator of an allocation target.
type TargetType string

const (
	TargetGroup       TargetType = "groupe"
	TargetDepartement TargetType = "departement"
	TargetCNS         TargetType = "cns"
	TargetNational    TargetType = "national"
)

// AllocationTarget is a resolved allocation destination. ID holds the group id or the
// departement code and is empty for the CNS and national targets.
type AllocationTarget struct {
	Type TargetType `json:"type"`
	ID   string     `json:"id,omitempty"`
}

func (t AllocationTarget) String() string {
	if t.ID == "" {
		return string(t.Type)
	}
	return string(t.Type) + ":" + t.ID
}

// ParseAllocationTarget reads the "type[:id]" form produced by String.
func ParseAllocationTarget(raw string) AllocationTarget {
	typ, id, _ := strings.Cut(strings.TrimSpace(raw), ":")
	return AllocationTarget{Type: TargetType(typ), ID: id}
}

// Raw returns the client form of the target, carrying amount.
func (t AllocationTarget) Raw(amount int64) RawAllocation {
	raw := RawAllocation{Type: string(t.Type), Amount: amount}
	switch t.Type {
	case TargetGroup:
		raw.Group = t.ID
	case TargetDepartement:
		raw.Departement = t.ID
	}
	return raw
}

// Allocation is the amount of a payment promised to one target.
type Allocation struct {
	Target AllocationTarget `json:"target"`
	Amount int64            `json:"amount"`
}

// SumAllocations returns the total explicitly allocated by a plan.
func SumAllocations(plan []Allocation) int64 {
	var total int64
	for _, a := range plan {
		total += a.Amount
	}
	return total
}

// RawAllocation is an allocation as submitted by a client, before validation.
type RawAllocation struct {
	Type        string `json:"type" validate:"required"`
	Group       string `json:"group,omitempty"`
	Departement string `json:"departement,omitempty"`
	Amount      int64  `json:"amount"`
}

// MonthlyAllocation is one row of the fixed plan attached to a subscription.
type MonthlyAllocation struct {
	ID             string           `json:"id"`
	SubscriptionID string           `json:"subscriptionID"`
	Target         AllocationTarget `json:"target"`
	Amount         int64            `json:"amount"`
	CreatedAt      time.Time        `json:"createdAt"`
}

// TargetAllocation is the net amount a payment currently holds on an account.
type TargetAllocation struct {
	Account Account `json:"account"`
	Net     int64   `json:"net"`
}
