package usecase

import (
	"testing"

	"service-booking/internal/apperr"
	"service-booking/internal/data/entity"
	"service-booking/internal/dto/request"
	"service-booking/pkg/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateBookingFreezesAmount(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.bookings.CreateBooking(env.ctx, env.customer, &request.CreateBookingRequest{
		ServiceID:     env.service.ID.String(),
		AddressID:     env.address.ID.String(),
		ScheduledDate: "2026-03-01",
		ScheduledTime: "18:00",
	})
	require.NoError(t, err)
	assert.Equal(t, entity.BookingStatusPending, resp.Status)
	assert.Equal(t, 1000.0, resp.Amount.BasePrice)
	assert.Equal(t, 900.0, resp.Amount.FinalAmount)
	assert.Nil(t, resp.ProviderID)

	price, discount := 2000.0, 0.0
	_, err = env.catalog.UpdatePricing(env.ctx, env.admin, env.service.ID.String(), &request.UpdatePricingRequest{
		BasePrice:          &price,
		DiscountPercentage: &discount,
	})
	require.NoError(t, err)

	stored := env.booking(uuid.MustParse(resp.ID))
	assert.Equal(t, int64(90000), stored.Amount.FinalAmount)
	assert.Equal(t, int64(100000), stored.Amount.BasePrice)
	assert.Contains(t, env.outboxTypes(), entity.EventBookingCreated)
}

func TestCreateBookingRejectsBadInput(t *testing.T) {
	env := newTestEnv(t)
	valid := func() *request.CreateBookingRequest {
		return &request.CreateBookingRequest{
			ServiceID:     env.service.ID.String(),
			AddressID:     env.address.ID.String(),
			ScheduledDate: "2026-03-05",
			ScheduledTime: "10:30",
		}
	}

	req := valid()
	req.ScheduledDate = "2026-02-28"
	_, err := env.bookings.CreateBooking(env.ctx, env.customer, req)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	req = valid()
	req.ScheduledTime = "25:00"
	_, err = env.bookings.CreateBooking(env.ctx, env.customer, req)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	req = valid()
	req.ServiceID = uuid.NewString()
	_, err = env.bookings.CreateBooking(env.ctx, env.customer, req)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	other := utils.Actor{UserID: uuid.New(), Role: string(entity.RoleCustomer)}
	_, err = env.bookings.CreateBooking(env.ctx, other, valid())
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = env.bookings.CreateBooking(env.ctx, env.provider, valid())
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestCancelBooking(t *testing.T) {
	env := newTestEnv(t)
	id := env.createBooking()

	stranger := utils.Actor{UserID: uuid.New(), Role: string(entity.RoleCustomer)}
	_, err := env.bookings.CancelBooking(env.ctx, stranger, id.String(), &request.CancelBookingRequest{})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	reason := "plans changed"
	resp, err := env.bookings.CancelBooking(env.ctx, env.customer, id.String(), &request.CancelBookingRequest{Reason: &reason})
	require.NoError(t, err)
	assert.Equal(t, entity.BookingStatusCancelled, resp.Status)
	assert.Equal(t, &reason, resp.CancellationReason)

	_, err = env.bookings.CancelBooking(env.ctx, env.customer, id.String(), &request.CancelBookingRequest{})
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
	assert.Contains(t, env.outboxTypes(), entity.EventBookingCancelled)
}

func TestCancelAcceptedBookingConflicts(t *testing.T) {
	env := newTestEnv(t)
	id := env.createBooking()
	env.pay(id, "pay_1")

	_, err := env.bookings.CancelBooking(env.ctx, env.customer, id.String(), &request.CancelBookingRequest{})
	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.Equal(t, entity.BookingStatusAccepted, env.booking(id).Status)
}

func TestGetBookingVisibility(t *testing.T) {
	env := newTestEnv(t)
	id := env.createBooking()

	_, err := env.bookings.GetBooking(env.ctx, env.customer, id.String())
	assert.NoError(t, err)
	_, err = env.bookings.GetBooking(env.ctx, env.admin, id.String())
	assert.NoError(t, err)

	// open jobs are visible to every provider until one claims it
	_, err = env.bookings.GetBooking(env.ctx, env.provider2, id.String())
	assert.NoError(t, err)

	_, err = env.jobs.Accept(env.ctx, env.provider.UserID, id)
	require.NoError(t, err)

	_, err = env.bookings.GetBooking(env.ctx, env.provider, id.String())
	assert.NoError(t, err)
	_, err = env.bookings.GetBooking(env.ctx, env.provider2, id.String())
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	stranger := utils.Actor{UserID: uuid.New(), Role: string(entity.RoleCustomer)}
	_, err = env.bookings.GetBooking(env.ctx, stranger, id.String())
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = env.bookings.GetBooking(env.ctx, env.customer, uuid.NewString())
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = env.bookings.GetBooking(env.ctx, env.customer, "not-a-uuid")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestListBookingsScopedByRole(t *testing.T) {
	env := newTestEnv(t)
	first := env.createBooking()
	env.createBooking()

	_, err := env.jobs.Accept(env.ctx, env.provider.UserID, first)
	require.NoError(t, err)

	page := request.PaginatedRequest{Page: 1, PerPage: 10}

	mine, err := env.bookings.ListBookings(env.ctx, env.customer, &request.ListBookingsRequest{PaginatedRequest: page})
	require.NoError(t, err)
	assert.Equal(t, int64(2), mine.Pagination.Total)

	jobs, err := env.bookings.ListBookings(env.ctx, env.provider, &request.ListBookingsRequest{PaginatedRequest: page})
	require.NoError(t, err)
	assert.Len(t, jobs.Data, 2, "own job plus the unclaimed one")

	others, err := env.bookings.ListBookings(env.ctx, env.provider2, &request.ListBookingsRequest{PaginatedRequest: page})
	require.NoError(t, err)
	assert.Len(t, others.Data, 1)

	cancelled, err := env.bookings.ListBookings(env.ctx, env.admin, &request.ListBookingsRequest{PaginatedRequest: page, Status: "cancelled"})
	require.NoError(t, err)
	assert.Empty(t, cancelled.Data)

	_, err = env.bookings.ListBookings(env.ctx, env.admin, &request.ListBookingsRequest{PaginatedRequest: page, Status: "paid"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestAddresses(t *testing.T) {
	env := newTestEnv(t)

	created, err := env.bookings.CreateAddress(env.ctx, env.customer, &request.CreateAddressRequest{
		Label: "Office", Line1: "1 Residency Rd", City: "Bengaluru", State: "KA", PostalCode: "560025",
	})
	require.NoError(t, err)
	assert.Equal(t, "Office", created.Label)

	list, err := env.bookings.ListAddresses(env.ctx, env.customer)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	_, err = env.bookings.CreateAddress(env.ctx, env.customer, &request.CreateAddressRequest{Label: "x"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}
