package amqp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/SscSPs/fund_ledger/internal/apperrors"
	"github.com/SscSPs/fund_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/fund_ledger/internal/core/ports/services"
	"github.com/rabbitmq/amqp091-go"
)

// acknowledger is the part of amqp091.Delivery the consumer settles messages with.
type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

// Consumer feeds payment status notifications from a RabbitMQ queue into the allocation service.
type Consumer struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	queueName    string
	allocations  portssvc.AllocationSvcFacade
	logger       *slog.Logger
}

// NewConsumer dials the broker and declares the exchange, queue and binding.
func NewConsumer(url, exchangeName, queueName string, allocations portssvc.AllocationSvcFacade, logger *slog.Logger) (*Consumer, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	c := &Consumer{
		conn:         conn,
		channel:      channel,
		exchangeName: exchangeName,
		queueName:    queueName,
		allocations:  allocations,
		logger:       logger.With(slog.String("component", "amqp_consumer"), slog.String("queue", queueName)),
	}

	if err := c.setup(); err != nil {
		c.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}

	return c, nil
}

func (c *Consumer) setup() error {
	err := c.channel.ExchangeDeclare(
		c.exchangeName, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = c.channel.QueueDeclare(
		c.queueName, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	// routing key is the queue name on the direct exchange
	if err := c.channel.QueueBind(c.queueName, c.queueName, c.exchangeName, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	// one unacknowledged notification at a time keeps status updates of a payment ordered
	if err := c.channel.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}
	return nil
}

// Consume processes notifications until ctx is cancelled or the channel closes.
func (c *Consumer) Consume(ctx context.Context) error {
	msgs, err := c.channel.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	c.logger.InfoContext(ctx, "Started consuming payment status messages")

	for {
		select {
		case <-ctx.Done():
			c.logger.InfoContext(ctx, "Stopping message consumption", slog.Any("reason", ctx.Err()))
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return errors.New("message channel closed")
			}
			c.handleDelivery(ctx, delivery.Body, delivery)
		}
	}
}

// handleDelivery applies one notification and settles it: acked on success, requeued when the
// failure is a concurrency conflict, rejected otherwise.
func (c *Consumer) handleDelivery(ctx context.Context, body []byte, ack acknowledger) {
	msg, err := PaymentStatusMessageFromJSON(body)
	if err != nil {
		c.logger.ErrorContext(ctx, "Rejecting malformed payment status message", slog.String("error", err.Error()))
		c.settle(ctx, ack.Nack(false, false))
		return
	}

	logger := c.logger.With(slog.String("payment_id", msg.PaymentID), slog.String("status", msg.Status))
	payment, err := c.allocations.HandlePaymentStatus(ctx, msg.PaymentID, domain.PaymentStatus(msg.Status))
	switch {
	case err == nil:
		logger.InfoContext(ctx, "Payment status applied", slog.String("current_status", string(payment.Status)))
		c.settle(ctx, ack.Ack(false))
	case apperrors.IsRetryable(err):
		logger.WarnContext(ctx, "Requeueing payment status message", slog.String("error", err.Error()))
		c.settle(ctx, ack.Nack(false, true))
	default:
		logger.ErrorContext(ctx, "Rejecting payment status message", slog.String("error", err.Error()))
		c.settle(ctx, ack.Nack(false, false))
	}
}

func (c *Consumer) settle(ctx context.Context, err error) {
	if err != nil {
		c.logger.ErrorContext(ctx, "Failed to settle delivery", slog.String("error", err.Error()))
	}
}

// Close closes the channel and the connection.
func (c *Consumer) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
