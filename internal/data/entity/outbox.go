package entity

import (
	"encoding/json"
	"time"
)

type OutboxStatus string

const (
	OutboxStatusPending OutboxStatus = "pending"
	OutboxStatusSent    OutboxStatus = "sent"
)

const (
	EventBookingCreated          = "booking.created"
	EventBookingCancelled        = "booking.cancelled"
	EventBookingProviderAssigned = "booking.provider_assigned"
	EventBookingStatusChanged    = "booking.status_changed"
	EventPaymentSettled          = "payment.verified"
	EventPaymentRefundRequired   = "payment.refund_required"
)

// OutboxEvent is written in the same transaction as the change it describes.
type OutboxEvent struct {
	ID            string          `db:"id"` // ULID
	AggregateType string          `db:"aggregate_type"`
	AggregateID   string          `db:"aggregate_id"`
	EventType     string          `db:"event_type"`
	Payload       json.RawMessage `db:"payload"`
	Status        OutboxStatus    `db:"status"`
	Attempts      int             `db:"attempts"`
	CreatedAt     time.Time       `db:"created_at"`
	SentAt        *time.Time      `db:"sent_at"`
}
