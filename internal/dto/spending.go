package dto

// ApplySpendingRequest defines the settlement of a spending request reaching to_pay.
// Amount is negative: it is the change applied to the group balance.
type ApplySpendingRequest struct {
	Amount    int64  `json:"amount" binding:"required,max=-1"`
	Reference string `json:"reference" binding:"required"`
}
