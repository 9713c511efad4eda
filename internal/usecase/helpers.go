package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"service-booking/internal/apperr"
	"service-booking/internal/data/entity"
	"service-booking/internal/data/repository"
	"service-booking/pkg/utils"

	"github.com/google/uuid"
)

func validate(req any) error {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return apperr.FieldErrors(errs)
	}
	return nil
}

func parseID(field, value string) (uuid.UUID, error) {
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, apperr.FieldErrors{field: "Must be a valid UUID"}
	}
	return id, nil
}

func requireRole(actor utils.Actor, roles ...entity.UserRole) error {
	for _, role := range roles {
		if actor.Role == string(role) {
			return nil
		}
	}
	return fmt.Errorf("role %q not allowed: %w", actor.Role, apperr.ErrForbidden)
}

// recordEvent appends an outbox row through tx so it commits with the change it describes.
func recordEvent(ctx context.Context, tx *repository.Repository, aggregate, aggregateID, eventType string, payload any, now time.Time) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", eventType, err)
	}

	return tx.Outbox.Create(ctx, &entity.OutboxEvent{
		ID:            utils.NewULID(now),
		AggregateType: aggregate,
		AggregateID:   aggregateID,
		EventType:     eventType,
		Payload:       body,
		Status:        entity.OutboxStatusPending,
		CreatedAt:     now,
	})
}

type bookingEvent struct {
	BookingID  string               `json:"booking_id"`
	CustomerID string               `json:"customer_id"`
	ProviderID *string              `json:"provider_id,omitempty"`
	Status     entity.BookingStatus `json:"status"`
	From       entity.BookingStatus `json:"from,omitempty"`
	Reason     *string              `json:"reason,omitempty"`
	OccurredAt time.Time            `json:"occurred_at"`
}

func newBookingEvent(b *entity.Booking, from entity.BookingStatus, now time.Time) bookingEvent {
	ev := bookingEvent{
		BookingID:  b.ID.String(),
		CustomerID: b.CustomerID.String(),
		Status:     b.Status,
		From:       from,
		Reason:     b.CancellationReason,
		OccurredAt: now,
	}
	if b.ProviderID != nil {
		id := b.ProviderID.String()
		ev.ProviderID = &id
	}
	return ev
}

type paymentEvent struct {
	PaymentID        string    `json:"payment_id"`
	BookingID        string    `json:"booking_id"`
	CustomerID       string    `json:"customer_id"`
	GatewayOrderID   string    `json:"gateway_order_id"`
	GatewayPaymentID string    `json:"gateway_payment_id"`
	Amount           int64     `json:"amount"`
	Currency         string    `json:"currency"`
	OccurredAt       time.Time `json:"occurred_at"`
}
