package request

type CreateBookingRequest struct {
	ServiceID     string  `json:"service_id" validate:"required,uuid4"`
	AddressID     string  `json:"address_id" validate:"required,uuid4"`
	ScheduledDate string  `json:"scheduled_date" validate:"required,date"`
	ScheduledTime string  `json:"scheduled_time" validate:"required,clock"`
	Notes         *string `json:"notes,omitempty" validate:"omitempty,max=500"`
}

type CancelBookingRequest struct {
	Reason *string `json:"reason,omitempty" validate:"omitempty,max=500"`
}

type ListBookingsRequest struct {
	PaginatedRequest
	Status string `json:"status" validate:"omitempty,oneof=pending accepted provider_arriving in_progress completed cancelled"`
}

type CreateAddressRequest struct {
	Label      string  `json:"label" validate:"required,max=50"`
	Line1      string  `json:"line1" validate:"required,max=200"`
	Line2      *string `json:"line2,omitempty" validate:"omitempty,max=200"`
	City       string  `json:"city" validate:"required,max=100"`
	State      string  `json:"state" validate:"required,max=100"`
	PostalCode string  `json:"postal_code" validate:"required,min=3,max=12"`
}
