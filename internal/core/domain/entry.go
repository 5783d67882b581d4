package domain

import (
	"errors"
	"time"
)

// LedgerEntry moves a positive amount, in minor currency units, from Source to Destination.
// Entries are append-only: corrections are written as compensating entries.
type LedgerEntry struct {
	EntryID           string    `json:"entryID"`
	Amount            int64     `json:"amount"`
	Source            Account   `json:"source"`
	Destination       Account   `json:"destination"`
	PaymentID         *string   `json:"paymentID,omitempty"`
	SpendingRequestID *string   `json:"spendingRequestID,omitempty"`
	ReversalOf        *string   `json:"reversalOf,omitempty"` // EntryID of the entry this one compensates
	Comment           string    `json:"comment"`
	CreatedAt         time.Time `json:"createdAt"`
}

var (
	ErrNonPositiveAmount = errors.New("entry amount must be strictly positive")
	ErrSameAccount       = errors.New("entry source and destination must differ")
)

// Validate checks the structural rules of an entry. Ledger invariants are enforced elsewhere.
func (e LedgerEntry) Validate() error {
	if e.Amount <= 0 {
		return ErrNonPositiveAmount
	}
	if err := e.Source.Validate(); err != nil {
		return err
	}
	if err := e.Destination.Validate(); err != nil {
		return err
	}
	if e.Source == e.Destination {
		return ErrSameAccount
	}
	return nil
}

// Signed returns the effect of the entry on the given account: positive when the account is
// credited, negative when it is debited, zero when it is not involved.
func (e LedgerEntry) Signed(account Account) int64 {
	switch account {
	case e.Destination:
		return e.Amount
	case e.Source:
		return -e.Amount
	}
	return 0
}

// Direction filters entries relative to the account being queried.
type Direction string

const (
	DirectionCredit Direction = "credit"
	DirectionDebit  Direction = "debit"
)

func (d Direction) IsValid() bool {
	return d == "" || d == DirectionCredit || d == DirectionDebit
}

// EntryFilter restricts EntriesFor results. Zero values mean "no restriction".
type EntryFilter struct {
	PaymentID         *string
	SpendingRequestID *string
	Direction         Direction
	CreatedAfter      *time.Time
	CreatedBefore     *time.Time
	Limit             int
	NextToken         *string
}

// Matches reports whether an entry touching account satisfies every filter except pagination.
func (f EntryFilter) Matches(account Account, e LedgerEntry) bool {
	switch f.Direction {
	case DirectionCredit:
		if e.Destination != account {
			return false
		}
	case DirectionDebit:
		if e.Source != account {
			return false
		}
	default:
		if e.Destination != account && e.Source != account {
			return false
		}
	}
	if f.PaymentID != nil && (e.PaymentID == nil || *e.PaymentID != *f.PaymentID) {
		return false
	}
	if f.SpendingRequestID != nil && (e.SpendingRequestID == nil || *e.SpendingRequestID != *f.SpendingRequestID) {
		return false
	}
	if f.CreatedAfter != nil && !e.CreatedAt.After(*f.CreatedAfter) {
		return false
	}
	if f.CreatedBefore != nil && !e.CreatedAt.Before(*f.CreatedBefore) {
		return false
	}
	return true
}
