package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/SscSPs/fund_ledger/internal/apperrors"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// PaymentStatusMessage is a status notification published by the payment provider bridge.
type PaymentStatusMessage struct {
	PaymentID string    `json:"paymentID" validate:"required"`
	Status    string    `json:"status" validate:"required,oneof=waiting completed canceled refused refunded"`
	Timestamp time.Time `json:"timestamp"`
}

// ToJSON converts the message to JSON bytes
func (m *PaymentStatusMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// PaymentStatusMessageFromJSON decodes and validates a message body.
func PaymentStatusMessageFromJSON(data []byte) (*PaymentStatusMessage, error) {
	var msg PaymentStatusMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: decode payment status message: %v", apperrors.ErrValidation, err)
	}
	if err := validate.Struct(&msg); err != nil {
		return nil, fmt.Errorf("%w: payment status message: %v", apperrors.ErrValidation, err)
	}
	return &msg, nil
}
