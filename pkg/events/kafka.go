package events

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type kafkaPublisher struct {
	writer *kafka.Writer
	log    *zap.Logger
}

func NewKafka(brokers []string, topic string, log *zap.Logger) Publisher {
	log = log.With(zap.String("publisher", "kafka"), zap.String("topic", topic))

	// synchronous writes: the relay marks an event sent only after the broker acked it
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  3,
		ErrorLogger:  kafka.LoggerFunc(func(msg string, args ...interface{}) { log.Error(fmt.Sprintf(msg, args...)) }),
	}

	return &kafkaPublisher{writer: writer, log: log}
}

func (p *kafkaPublisher) Publish(ctx context.Context, msg Message) error {
	ctx, cancel := context.WithTimeout(ctx, p.writer.WriteTimeout)
	defer cancel()

	err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.Key),
		Value: msg.Payload,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(msg.ID)},
			{Key: "event_type", Value: []byte(msg.Type)},
		},
	})
	if err != nil {
		p.log.Error("Failed to publish event",
			zap.String("event_id", msg.ID),
			zap.String("event_type", msg.Type),
			zap.Error(err),
		)
		return fmt.Errorf("publish %s to kafka: %w", msg.Type, err)
	}

	p.log.Debug("Event published", zap.String("event_id", msg.ID), zap.String("event_type", msg.Type))
	return nil
}

func (p *kafkaPublisher) Close() error {
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("close kafka writer: %w", err)
	}
	return nil
}
