// Package events publishes domain events to a message broker.
package events

import (
	"context"
	"fmt"

	"service-booking/pkg/utils"

	"go.uber.org/zap"
)

type Message struct {
	ID      string // unique per event, usable for consumer de-duplication
	Key     string // partition/ordering key, the aggregate id
	Type    string
	Payload []byte
}

// Publisher delivers a message synchronously; a nil error means the broker accepted it.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
	Close() error
}

// New builds the publisher selected by cfg.Broker.
func New(cfg utils.EventsConfig, log *zap.Logger) (Publisher, error) {
	switch cfg.Broker {
	case "kafka":
		if len(cfg.KafkaBrokers) == 0 {
			return nil, fmt.Errorf("kafka broker requires KAFKA_BROKERS")
		}
		return NewKafka(cfg.KafkaBrokers, cfg.KafkaTopic, log), nil
	case "rabbitmq":
		return NewRabbitMQ(cfg.RabbitURL, cfg.RabbitExchange, log)
	case "log", "":
		return NewLog(log), nil
	default:
		return nil, fmt.Errorf("unknown events broker %q", cfg.Broker)
	}
}

type logPublisher struct {
	log *zap.Logger
}

// NewLog returns a Publisher that only writes events to the log.
func NewLog(log *zap.Logger) Publisher {
	return &logPublisher{log: log.With(zap.String("publisher", "log"))}
}

func (p *logPublisher) Publish(_ context.Context, msg Message) error {
	p.log.Info("Event published",
		zap.String("event_id", msg.ID),
		zap.String("event_type", msg.Type),
		zap.String("key", msg.Key),
		zap.ByteString("payload", msg.Payload),
	)
	return nil
}

func (p *logPublisher) Close() error { return nil }
