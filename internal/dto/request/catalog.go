package request

type ListServicesRequest struct {
	PaginatedRequest
	Category string `json:"category" validate:"omitempty,max=50"`
}

// Prices are in major currency units.
type CreateServiceRequest struct {
	Name               string  `json:"name" validate:"required,min=2,max=100"`
	Description        *string `json:"description,omitempty" validate:"omitempty,max=1000"`
	Category           string  `json:"category" validate:"required,max=50"`
	BasePrice          float64 `json:"base_price" validate:"min=0"`
	DiscountPercentage float64 `json:"discount_percentage" validate:"min=0,max=100"`
	DurationMinutes    int     `json:"duration_minutes" validate:"required,min=1,max=1440"`
}

type UpdateServiceStatusRequest struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

type UpdatePricingRequest struct {
	BasePrice          *float64 `json:"base_price,omitempty" validate:"required_without=DiscountPercentage,omitempty,min=0"`
	DiscountPercentage *float64 `json:"discount_percentage,omitempty" validate:"required_without=BasePrice,omitempty,min=0,max=100"`
}
