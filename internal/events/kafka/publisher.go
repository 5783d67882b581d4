package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/SscSPs/fund_ledger/internal/core/domain"
	"github.com/segmentio/kafka-go"
)

// messageWriter is the subset of *kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// EntryEvent is the payload published for every committed ledger entry.
type EntryEvent struct {
	EntryID           string    `json:"entryID"`
	Amount            int64     `json:"amount"`
	Source            string    `json:"source"`
	Destination       string    `json:"destination"`
	PaymentID         *string   `json:"paymentID,omitempty"`
	SpendingRequestID *string   `json:"spendingRequestID,omitempty"`
	ReversalOf        *string   `json:"reversalOf,omitempty"`
	Comment           string    `json:"comment,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
}

// Publisher sends committed entries to a Kafka topic. It implements services.EntryPublisher.
type Publisher struct {
	writer messageWriter
}

// NewPublisher creates a publisher writing to topic on the given brokers.
func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
		},
	}
}

// PublishEntries writes one message per entry, keyed by payment id when present so that the
// entries of a payment stay ordered on one partition.
func (p *Publisher) PublishEntries(ctx context.Context, entries []domain.LedgerEntry) error {
	if len(entries) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(entries))
	for _, e := range entries {
		data, err := json.Marshal(toEntryEvent(e))
		if err != nil {
			return fmt.Errorf("marshal entry %s: %w", e.EntryID, err)
		}
		msgs = append(msgs, kafka.Message{Key: []byte(messageKey(e)), Value: data})
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write %d entry messages: %w", len(msgs), err)
	}
	return nil
}

// Close flushes pending messages and closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

func messageKey(e domain.LedgerEntry) string {
	if e.PaymentID != nil {
		return *e.PaymentID
	}
	return e.EntryID
}

func toEntryEvent(e domain.LedgerEntry) EntryEvent {
	return EntryEvent{
		EntryID:           e.EntryID,
		Amount:            e.Amount,
		Source:            e.Source.String(),
		Destination:       e.Destination.String(),
		PaymentID:         e.PaymentID,
		SpendingRequestID: e.SpendingRequestID,
		ReversalOf:        e.ReversalOf,
		Comment:           e.Comment,
		CreatedAt:         e.CreatedAt,
	}
}
