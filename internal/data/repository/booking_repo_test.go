package repository

import (
	"testing"

	"service-booking/internal/data/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestBuildBookingWhere(t *testing.T) {
	where, args := buildBookingWhere(BookingFilter{})
	assert.Empty(t, where)
	assert.Empty(t, args)

	customer := uuid.New()
	status := entity.BookingStatusPending
	where, args = buildBookingWhere(BookingFilter{CustomerID: &customer, Status: &status})
	assert.Equal(t, " WHERE customer_id = $1 AND status = $2", where)
	assert.Equal(t, []any{customer, status}, args)

	provider := uuid.New()
	where, args = buildBookingWhere(BookingFilter{ProviderID: &provider, IncludeOpen: true})
	assert.Equal(t, " WHERE (provider_id = $1 OR (provider_id IS NULL AND status IN ('pending', 'accepted')))", where)
	assert.Equal(t, []any{provider}, args)
}
