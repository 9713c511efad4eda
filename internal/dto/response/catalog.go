package response

import (
	"time"

	"service-booking/internal/data/entity"
)

type ServiceResponse struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	Description     *string        `json:"description,omitempty"`
	Category        string         `json:"category"`
	Price           AmountResponse `json:"price"`
	DurationMinutes int            `json:"duration_minutes"`
	IsActive        bool           `json:"is_active"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

func ServiceToResponse(s *entity.Service) ServiceResponse {
	price, err := s.Quote()
	if err != nil {
		// unreachable for rows that passed the table CHECKs
		price = entity.Amount{BasePrice: s.BasePrice, DiscountPercentage: s.DiscountPercentage, FinalAmount: s.BasePrice}
	}

	return ServiceResponse{
		ID:              s.ID.String(),
		Name:            s.Name,
		Description:     s.Description,
		Category:        s.Category,
		Price:           AmountToResponse(price),
		DurationMinutes: s.DurationMinutes,
		IsActive:        s.IsActive,
		UpdatedAt:       s.UpdatedAt,
	}
}
