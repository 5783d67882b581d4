package dto

import (
	"time"

	"github.com/SscSPs/fund_ledger/internal/core/domain"
)

// EntryResponse defines the data returned for a ledger entry.
type EntryResponse struct {
	EntryID           string    `json:"entryID"`
	Amount            int64     `json:"amount"`        // minor units
	AmountDisplay     string    `json:"amountDisplay"` // major units
	Source            string    `json:"source"`
	Destination       string    `json:"destination"`
	PaymentID         *string   `json:"paymentID,omitempty"`
	SpendingRequestID *string   `json:"spendingRequestID,omitempty"`
	ReversalOf        *string   `json:"reversalOf,omitempty"`
	Comment           string    `json:"comment"`
	CreatedAt         time.Time `json:"createdAt"`
}

// ToEntryResponse converts a domain.LedgerEntry to EntryResponse DTO.
func ToEntryResponse(e *domain.LedgerEntry) EntryResponse {
	return EntryResponse{
		EntryID:           e.EntryID,
		Amount:            e.Amount,
		AmountDisplay:     FormatAmount(e.Amount),
		Source:            e.Source.String(),
		Destination:       e.Destination.String(),
		PaymentID:         e.PaymentID,
		SpendingRequestID: e.SpendingRequestID,
		ReversalOf:        e.ReversalOf,
		Comment:           e.Comment,
		CreatedAt:         e.CreatedAt,
	}
}

// ToEntryResponses converts a slice of domain.LedgerEntry to []EntryResponse.
func ToEntryResponses(entries []domain.LedgerEntry) []EntryResponse {
	responses := make([]EntryResponse, len(entries))
	for i := range entries {
		responses[i] = ToEntryResponse(&entries[i])
	}
	return responses
}

// WrittenEntriesResponse lists the entries a call appended. It is empty for replays.
type WrittenEntriesResponse struct {
	Entries []EntryResponse `json:"entries"`
}

// BalanceResponse defines the balance of one account.
type BalanceResponse struct {
	Account        string `json:"account"`
	Balance        int64  `json:"balance"`
	BalanceDisplay string `json:"balanceDisplay"`
}

// NewBalanceResponse builds a BalanceResponse.
func NewBalanceResponse(account string, balance int64) BalanceResponse {
	return BalanceResponse{Account: account, Balance: balance, BalanceDisplay: FormatAmount(balance)}
}

// ListEntriesParams defines the query parameters for listing entries of an account.
type ListEntriesParams struct {
	Limit             int        `form:"limit" binding:"omitempty,min=1,max=200"`
	NextToken         *string    `form:"nextToken"`
	Direction         string     `form:"direction" binding:"omitempty,oneof=credit debit"`
	PaymentID         *string    `form:"paymentID"`
	SpendingRequestID *string    `form:"spendingRequestID"`
	CreatedAfter      *time.Time `form:"createdAfter" time_format:"2006-01-02T15:04:05Z07:00"`
	CreatedBefore     *time.Time `form:"createdBefore" time_format:"2006-01-02T15:04:05Z07:00"`
}

// ToFilter converts the query parameters to a domain.EntryFilter.
func (p ListEntriesParams) ToFilter() domain.EntryFilter {
	return domain.EntryFilter{
		PaymentID:         p.PaymentID,
		SpendingRequestID: p.SpendingRequestID,
		Direction:         domain.Direction(p.Direction),
		CreatedAfter:      p.CreatedAfter,
		CreatedBefore:     p.CreatedBefore,
		Limit:             p.Limit,
		NextToken:         p.NextToken,
	}
}

// ListEntriesResponse wraps one page of entries.
type ListEntriesResponse struct {
	Entries   []EntryResponse `json:"entries"`
	NextToken *string         `json:"nextToken,omitempty"`
}

// ReverseEntryRequest defines the body of an entry reversal.
type ReverseEntryRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}
