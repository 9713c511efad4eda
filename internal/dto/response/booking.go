package response

import (
	"time"

	"service-booking/internal/data/entity"
)

// AmountResponse reports money in major currency units.
type AmountResponse struct {
	BasePrice          float64 `json:"base_price"`
	DiscountPercentage float64 `json:"discount_percentage"`
	FinalAmount        float64 `json:"final_amount"`
}

type BookingResponse struct {
	ID                 string               `json:"id"`
	CustomerID         string               `json:"customer_id"`
	ServiceID          string               `json:"service_id"`
	AddressID          string               `json:"address_id"`
	ProviderID         *string              `json:"provider_id,omitempty"`
	Status             entity.BookingStatus `json:"status"`
	ScheduledDate      string               `json:"scheduled_date"`
	ScheduledTime      string               `json:"scheduled_time"`
	Amount             AmountResponse       `json:"amount"`
	PaymentID          *string              `json:"payment_id,omitempty"`
	ReportRefs         []string             `json:"report_refs,omitempty"`
	Notes              *string              `json:"notes,omitempty"`
	CancellationReason *string              `json:"cancellation_reason,omitempty"`
	Version            int64                `json:"version"`
	CreatedAt          time.Time            `json:"created_at"`
	UpdatedAt          time.Time            `json:"updated_at"`
}

type AddressResponse struct {
	ID         string    `json:"id"`
	Label      string    `json:"label"`
	Line1      string    `json:"line1"`
	Line2      *string   `json:"line2,omitempty"`
	City       string    `json:"city"`
	State      string    `json:"state"`
	PostalCode string    `json:"postal_code"`
	CreatedAt  time.Time `json:"created_at"`
}

func AmountToResponse(a entity.Amount) AmountResponse {
	return AmountResponse{
		BasePrice:          entity.Major(a.BasePrice),
		DiscountPercentage: a.DiscountPercentage,
		FinalAmount:        entity.Major(a.FinalAmount),
	}
}

func BookingToResponse(b *entity.Booking) BookingResponse {
	resp := BookingResponse{
		ID:                 b.ID.String(),
		CustomerID:         b.CustomerID.String(),
		ServiceID:          b.ServiceID.String(),
		AddressID:          b.AddressID.String(),
		Status:             b.Status,
		ScheduledDate:      b.ScheduledDate.Format("2006-01-02"),
		ScheduledTime:      b.ScheduledTime,
		Amount:             AmountToResponse(b.Amount),
		ReportRefs:         b.ReportRefs,
		Notes:              b.Notes,
		CancellationReason: b.CancellationReason,
		Version:            b.Version,
		CreatedAt:          b.CreatedAt,
		UpdatedAt:          b.UpdatedAt,
	}
	if b.ProviderID != nil {
		id := b.ProviderID.String()
		resp.ProviderID = &id
	}
	if b.PaymentID != nil {
		id := b.PaymentID.String()
		resp.PaymentID = &id
	}
	return resp
}

func AddressToResponse(a *entity.Address) AddressResponse {
	return AddressResponse{
		ID:         a.ID.String(),
		Label:      a.Label,
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		CreatedAt:  a.CreatedAt,
	}
}
