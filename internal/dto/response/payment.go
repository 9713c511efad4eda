package response

import (
	"time"

	"service-booking/internal/data/entity"
)

// OrderResponse is what the client hands to the gateway checkout widget.
type OrderResponse struct {
	PaymentID string `json:"payment_id"`
	OrderID   string `json:"order_id"`
	Amount    int64  `json:"amount"` // minor units, as the gateway expects
	Currency  string `json:"currency"`
	KeyID     string `json:"key_id,omitempty"`
	Reused    bool   `json:"reused"`
}

type PaymentResponse struct {
	ID               string               `json:"id"`
	BookingID        string               `json:"booking_id"`
	GatewayOrderID   *string              `json:"gateway_order_id,omitempty"`
	GatewayPaymentID *string              `json:"gateway_payment_id,omitempty"`
	Amount           float64              `json:"amount"`
	Currency         string               `json:"currency"`
	Status           entity.PaymentStatus `json:"status"`
	VerifiedAt       *time.Time           `json:"verified_at,omitempty"`
	CreatedAt        time.Time            `json:"created_at"`
}

// VerifyPaymentResponse flags BookingNoLongerPending when money was taken for a booking
// that had already left pending; a refund is expected downstream.
type VerifyPaymentResponse struct {
	Payment                PaymentResponse `json:"payment"`
	Booking                BookingResponse `json:"booking"`
	AlreadyVerified        bool            `json:"already_verified"`
	BookingNoLongerPending bool            `json:"booking_no_longer_pending"`
}

func PaymentToResponse(p *entity.Payment) PaymentResponse {
	return PaymentResponse{
		ID:               p.ID.String(),
		BookingID:        p.BookingID.String(),
		GatewayOrderID:   p.GatewayOrderID,
		GatewayPaymentID: p.GatewayPaymentID,
		Amount:           entity.Major(p.Amount),
		Currency:         p.Currency,
		Status:           p.Status,
		VerifiedAt:       p.VerifiedAt,
		CreatedAt:        p.CreatedAt,
	}
}
