package entity

import (
	"fmt"
	"math"
)

// Amount is the priced snapshot of a booking. Values are in minor currency units (paise).
type Amount struct {
	BasePrice          int64   `db:"base_price"`
	DiscountPercentage float64 `db:"discount_percentage"`
	FinalAmount        int64   `db:"final_amount"`
}

// NewAmount computes finalAmount = basePrice - basePrice*discount/100, rounded half up to a minor unit.
func NewAmount(basePrice int64, discountPercentage float64) (Amount, error) {
	if basePrice < 0 {
		return Amount{}, fmt.Errorf("base price %d must not be negative", basePrice)
	}
	if math.IsNaN(discountPercentage) || discountPercentage < 0 || discountPercentage > 100 {
		return Amount{}, fmt.Errorf("discount percentage %.2f must be between 0 and 100", discountPercentage)
	}

	discount := int64(math.Round(float64(basePrice) * discountPercentage / 100))

	return Amount{
		BasePrice:          basePrice,
		DiscountPercentage: discountPercentage,
		FinalAmount:        basePrice - discount,
	}, nil
}

// Discount is the amount taken off the base price.
func (a Amount) Discount() int64 {
	return a.BasePrice - a.FinalAmount
}

// Major converts minor units to major units for display.
func Major(minor int64) float64 {
	return float64(minor) / 100
}

// Minor converts a major unit price (e.g. 999.50) to minor units.
func Minor(major float64) int64 {
	return int64(math.Round(major * 100))
}
