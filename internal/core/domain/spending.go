package domain

// SpendingRequestStatus is owned by the spending workflow; the ledger only acts on StatusToPay.
type SpendingRequestStatus string

const (
	SpendingDraft                            SpendingRequestStatus = "draft"
	SpendingAwaitingPeerReview               SpendingRequestStatus = "awaiting_peer_review"
	SpendingAwaitingAdminReview              SpendingRequestStatus = "awaiting_admin_review"
	SpendingAwaitingSupplementaryInformation SpendingRequestStatus = "awaiting_supplementary_information"
	SpendingValidated                        SpendingRequestStatus = "validated"
	SpendingToPay                            SpendingRequestStatus = "to_pay"
	SpendingPaid                             SpendingRequestStatus = "paid"
	SpendingRefused                          SpendingRequestStatus = "refused"
)

func (s SpendingRequestStatus) IsValid() bool {
	switch s {
	case SpendingDraft, SpendingAwaitingPeerReview, SpendingAwaitingAdminReview,
		SpendingAwaitingSupplementaryInformation, SpendingValidated, SpendingToPay,
		SpendingPaid, SpendingRefused:
		return true
	}
	return false
}

// Settles reports whether entering this status triggers the group debit.
func (s SpendingRequestStatus) Settles() bool { return s == SpendingToPay }
