package events

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

type rabbitPublisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
	log      *zap.Logger
}

// NewRabbitMQ declares a durable topic exchange; events are routed by their type.
func NewRabbitMQ(url, exchange string, log *zap.Logger) (Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("enable publisher confirms: %w", err)
	}

	return &rabbitPublisher{
		conn:     conn,
		ch:       ch,
		exchange: exchange,
		log:      log.With(zap.String("publisher", "rabbitmq"), zap.String("exchange", exchange)),
	}, nil
}

func (p *rabbitPublisher) Publish(ctx context.Context, msg Message) error {
	confirm, err := p.ch.PublishWithDeferredConfirmWithContext(ctx, p.exchange, msg.Type, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    msg.ID,
		Type:         msg.Type,
		Headers:      amqp.Table{"aggregate_id": msg.Key},
		Body:         msg.Payload,
	})
	if err != nil {
		p.log.Error("Failed to publish event", zap.String("event_id", msg.ID), zap.Error(err))
		return fmt.Errorf("publish %s to rabbitmq: %w", msg.Type, err)
	}

	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("await rabbitmq confirm: %w", err)
	}
	if !acked {
		return fmt.Errorf("rabbitmq nacked event %s", msg.ID)
	}
	return nil
}

func (p *rabbitPublisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
