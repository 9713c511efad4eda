package entity

import (
	"time"

	"github.com/google/uuid"
)

type Booking struct {
	BaseNoDelete
	CustomerID         uuid.UUID     `db:"customer_id"`
	ServiceID          uuid.UUID     `db:"service_id"`
	AddressID          uuid.UUID     `db:"address_id"`
	ProviderID         *uuid.UUID    `db:"provider_id"`
	Status             BookingStatus `db:"status"`
	ScheduledDate      time.Time     `db:"scheduled_date"`
	ScheduledTime      string        `db:"scheduled_time"` // HH:MM
	Amount             Amount
	PaymentID          *uuid.UUID `db:"payment_id"`
	ReportRefs         []string   `db:"report_refs"`
	Notes              *string    `db:"notes"`
	CancelledBy        *uuid.UUID `db:"cancelled_by"`
	CancellationReason *string    `db:"cancellation_reason"`
	Version            int64      `db:"version"`
}

// Apply moves the booking along ev and reports whether the transition was legal.
func (b *Booking) Apply(ev BookingEvent, now time.Time) bool {
	next, ok := b.Status.Next(ev)
	if !ok {
		return false
	}
	b.Status = next
	b.UpdatedAt = now
	return true
}

// AssignedTo reports whether providerID is the booking's provider.
func (b *Booking) AssignedTo(providerID uuid.UUID) bool {
	return b.ProviderID != nil && *b.ProviderID == providerID
}

// Clone returns a deep copy safe to mutate.
func (b *Booking) Clone() *Booking {
	c := *b
	if b.ProviderID != nil {
		id := *b.ProviderID
		c.ProviderID = &id
	}
	if b.PaymentID != nil {
		id := *b.PaymentID
		c.PaymentID = &id
	}
	if b.CancelledBy != nil {
		id := *b.CancelledBy
		c.CancelledBy = &id
	}
	c.ReportRefs = append([]string(nil), b.ReportRefs...)
	return &c
}
