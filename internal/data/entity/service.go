package entity

// Service is a catalog entry customers can book.
type Service struct {
	Base
	Name               string  `db:"name"`
	Description        *string `db:"description"`
	Category           string  `db:"category"`
	BasePrice          int64   `db:"base_price"` // minor units
	DiscountPercentage float64 `db:"discount_percentage"`
	DurationMinutes    int     `db:"duration_minutes"`
	IsActive           bool    `db:"is_active"`
}

// Quote prices the service as it stands right now.
func (s *Service) Quote() (Amount, error) {
	return NewAmount(s.BasePrice, s.DiscountPercentage)
}
