package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAmount(t *testing.T) {
	tests := []struct {
		name     string
		base     int64
		discount float64
		want     int64
	}{
		{name: "ten percent off 1000", base: Minor(1000), discount: 10, want: Minor(900)},
		{name: "no discount", base: Minor(499), discount: 0, want: Minor(499)},
		{name: "full discount", base: Minor(250), discount: 100, want: 0},
		{name: "fractional discount rounds half up", base: 999, discount: 12.5, want: 874},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			amount, err := NewAmount(tt.base, tt.discount)
			require.NoError(t, err)
			assert.Equal(t, tt.base, amount.BasePrice)
			assert.Equal(t, tt.discount, amount.DiscountPercentage)
			assert.Equal(t, tt.want, amount.FinalAmount)
			assert.Equal(t, tt.base-tt.want, amount.Discount())
		})
	}
}

func TestNewAmountRejectsInvalidInput(t *testing.T) {
	_, err := NewAmount(-1, 0)
	assert.Error(t, err)

	_, err = NewAmount(100, 101)
	assert.Error(t, err)

	_, err = NewAmount(100, -5)
	assert.Error(t, err)
}

func TestMajorMinor(t *testing.T) {
	assert.Equal(t, int64(99950), Minor(999.50))
	assert.Equal(t, 999.5, Major(99950))
}
