package entity

import (
	"time"

	"github.com/google/uuid"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	// PaymentStatusFailed is reserved for gateway-reported failures; failed checkout attempts are not persisted.
	PaymentStatusFailed PaymentStatus = "failed"
)

type Payment struct {
	BaseNoDelete
	BookingID        uuid.UUID     `db:"booking_id"`
	CustomerID       uuid.UUID     `db:"customer_id"`
	GatewayOrderID   *string       `db:"gateway_order_id"`
	IssuedOrderIDs   []string      `db:"issued_order_ids"` // every order ever issued, oldest first
	OrderIssuedAt    *time.Time    `db:"order_issued_at"`
	GatewayPaymentID *string       `db:"gateway_payment_id"`
	GatewaySignature *string       `db:"gateway_signature"`
	Amount           int64         `db:"amount"`
	Currency         string        `db:"currency"`
	Status           PaymentStatus `db:"status"`
	VerifiedAt       *time.Time    `db:"verified_at"`
	Version          int64         `db:"version"`
}

func (p *Payment) IsCompleted() bool {
	return p.Status == PaymentStatusCompleted
}

// OrderReusable reports whether the current gateway order was issued within window of now.
func (p *Payment) OrderReusable(now time.Time, window time.Duration) bool {
	if p.GatewayOrderID == nil || p.OrderIssuedAt == nil || window <= 0 {
		return false
	}
	return now.Sub(*p.OrderIssuedAt) < window
}

// RecordOrder makes orderID the current gateway order and keeps it in the issued history.
func (p *Payment) RecordOrder(orderID string, now time.Time) {
	id := orderID
	p.GatewayOrderID = &id
	p.OrderIssuedAt = &now
	if !p.IssuedOrder(orderID) {
		p.IssuedOrderIDs = append(p.IssuedOrderIDs, orderID)
	}
}

// IssuedOrder reports whether orderID was issued for this payment, current or superseded.
func (p *Payment) IssuedOrder(orderID string) bool {
	if p.GatewayOrderID != nil && *p.GatewayOrderID == orderID {
		return true
	}
	for _, id := range p.IssuedOrderIDs {
		if id == orderID {
			return true
		}
	}
	return false
}

func (p *Payment) Clone() *Payment {
	c := *p
	c.GatewayOrderID = cloneString(p.GatewayOrderID)
	if p.IssuedOrderIDs != nil {
		c.IssuedOrderIDs = append([]string(nil), p.IssuedOrderIDs...)
	}
	c.GatewayPaymentID = cloneString(p.GatewayPaymentID)
	c.GatewaySignature = cloneString(p.GatewaySignature)
	c.OrderIssuedAt = cloneTime(p.OrderIssuedAt)
	c.VerifiedAt = cloneTime(p.VerifiedAt)
	return &c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
