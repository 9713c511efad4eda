package usecase

import (
	"sync"
	"testing"

	"service-booking/internal/apperr"
	"service-booking/internal/data/entity"
	"service-booking/internal/dto/request"
	"service-booking/pkg/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcceptConcurrentProviders(t *testing.T) {
	env := newTestEnv(t)
	id := env.createBooking()

	providers := make([]uuid.UUID, 10)
	for i := range providers {
		providers[i] = uuid.New()
	}

	var wg sync.WaitGroup
	errs := make([]error, len(providers))
	for i, p := range providers {
		wg.Add(1)
		go func(i int, p uuid.UUID) {
			defer wg.Done()
			_, errs[i] = env.jobs.Accept(env.ctx, p, id)
		}(i, p)
	}
	wg.Wait()

	winners := 0
	var winner uuid.UUID
	for i, err := range errs {
		if err == nil {
			winners++
			winner = providers[i]
			continue
		}
		assert.ErrorIs(t, err, apperr.ErrConflict)
	}
	require.Equal(t, 1, winners)

	b := env.booking(id)
	require.NotNil(t, b.ProviderID)
	assert.Equal(t, winner, *b.ProviderID)
	assert.Equal(t, entity.BookingStatusPending, b.Status)
}

func TestAcceptIsIdempotentForSameProvider(t *testing.T) {
	env := newTestEnv(t)
	id := env.createBooking()

	first, err := env.jobs.Accept(env.ctx, env.provider.UserID, id)
	require.NoError(t, err)
	second, err := env.jobs.Accept(env.ctx, env.provider.UserID, id)
	require.NoError(t, err)
	assert.Equal(t, first.Version, second.Version)

	assigned := 0
	for _, typ := range env.outboxTypes() {
		if typ == entity.EventBookingProviderAssigned {
			assigned++
		}
	}
	assert.Equal(t, 1, assigned)

	_, err = env.jobs.Accept(env.ctx, env.provider2.UserID, id)
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestAcceptAfterPayment(t *testing.T) {
	env := newTestEnv(t)
	id := env.createBooking()
	env.pay(id, "pay_1")

	b, err := env.jobs.Accept(env.ctx, env.provider.UserID, id)
	require.NoError(t, err)
	assert.Equal(t, entity.BookingStatusAccepted, b.Status)
	assert.True(t, b.AssignedTo(env.provider.UserID))
}

func TestReject(t *testing.T) {
	env := newTestEnv(t)
	id := env.createBooking()

	_, err := env.jobs.Accept(env.ctx, env.provider.UserID, id)
	require.NoError(t, err)

	_, err = env.jobs.Reject(env.ctx, env.provider2.UserID, id)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	b, err := env.jobs.Reject(env.ctx, env.provider.UserID, id)
	require.NoError(t, err)
	assert.Equal(t, entity.BookingStatusCancelled, b.Status)
	require.NotNil(t, b.CancelledBy)
	assert.Equal(t, env.provider.UserID, *b.CancelledBy)
	require.NotNil(t, b.CancellationReason)
	assert.Equal(t, "rejected by provider", *b.CancellationReason)

	_, err = env.jobs.Accept(env.ctx, env.provider.UserID, id)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
	_, err = env.jobs.Reject(env.ctx, env.provider.UserID, id)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
}

func TestRejectAcceptedBookingIsInvalid(t *testing.T) {
	env := newTestEnv(t)
	id := env.createBooking()
	env.pay(id, "pay_1")

	_, err := env.jobs.Reject(env.ctx, env.provider.UserID, id)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
}

func TestAdvanceLifecycle(t *testing.T) {
	env := newTestEnv(t)
	id := env.createBooking()

	_, err := env.jobs.Accept(env.ctx, env.provider.UserID, id)
	require.NoError(t, err)

	// unpaid bookings cannot move on
	_, err = env.jobs.Advance(env.ctx, env.provider.UserID, id, entity.EventMarkArriving, nil)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)

	env.pay(id, "pay_1")

	_, err = env.jobs.Advance(env.ctx, env.provider2.UserID, id, entity.EventMarkArriving, nil)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = env.jobs.Advance(env.ctx, env.provider.UserID, id, entity.EventStart, nil)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)

	b, err := env.jobs.Advance(env.ctx, env.provider.UserID, id, entity.EventMarkArriving, nil)
	require.NoError(t, err)
	assert.Equal(t, entity.BookingStatusProviderArriving, b.Status)

	b, err = env.jobs.Advance(env.ctx, env.provider.UserID, id, entity.EventStart, nil)
	require.NoError(t, err)
	assert.Equal(t, entity.BookingStatusInProgress, b.Status)

	_, err = env.jobs.Advance(env.ctx, env.provider.UserID, id, entity.EventComplete, nil)
	assert.ErrorIs(t, err, apperr.ErrMissingReport)
	assert.Equal(t, entity.BookingStatusInProgress, env.booking(id).Status)

	b, err = env.jobs.Advance(env.ctx, env.provider.UserID, id, entity.EventComplete, []string{"reports/visit-1.pdf"})
	require.NoError(t, err)
	assert.Equal(t, entity.BookingStatusCompleted, b.Status)
	assert.Equal(t, []string{"reports/visit-1.pdf"}, b.ReportRefs)

	// terminal: the transition check wins over the report check
	_, err = env.jobs.Advance(env.ctx, env.provider.UserID, id, entity.EventComplete, nil)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
}

func TestAdvanceUnassigned(t *testing.T) {
	env := newTestEnv(t)
	id := env.createBooking()
	env.pay(id, "pay_1")

	_, err := env.jobs.Advance(env.ctx, env.provider.UserID, id, entity.EventMarkArriving, nil)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = env.jobs.Advance(env.ctx, env.provider.UserID, uuid.New(), entity.EventMarkArriving, nil)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestJobRequestSurface(t *testing.T) {
	env := newTestEnv(t)
	id := env.createBooking()

	_, err := env.jobs.AcceptReject(env.ctx, env.customer, id.String(), &request.AcceptRejectRequest{Action: "accept"})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = env.jobs.AcceptReject(env.ctx, env.provider, id.String(), &request.AcceptRejectRequest{Action: "maybe"})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	resp, err := env.jobs.AcceptReject(env.ctx, env.provider, id.String(), &request.AcceptRejectRequest{Action: "accept"})
	require.NoError(t, err)
	require.NotNil(t, resp.ProviderID)
	assert.Equal(t, env.provider.UserID.String(), *resp.ProviderID)

	env.pay(id, "pay_1")

	_, err = env.jobs.UpdateStatus(env.ctx, env.provider, id.String(), &request.UpdateJobStatusRequest{Status: "cancelled"})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	resp, err = env.jobs.UpdateStatus(env.ctx, env.provider, id.String(), &request.UpdateJobStatusRequest{Status: "provider_arriving"})
	require.NoError(t, err)
	assert.Equal(t, entity.BookingStatusProviderArriving, resp.Status)

	admin := utils.Actor{UserID: uuid.New(), Role: string(entity.RoleAdmin)}
	_, err = env.jobs.UpdateStatus(env.ctx, admin, id.String(), &request.UpdateJobStatusRequest{Status: "in_progress"})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}
