package usecase

import (
	"context"
	"testing"
	"time"

	"service-booking/internal/data/entity"
	"service-booking/internal/data/repository"
	"service-booking/internal/dto/request"
	"service-booking/pkg/gateway"
	"service-booking/pkg/lock"
	"service-booking/pkg/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "test_key_secret"

var testNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type testEnv struct {
	t        *testing.T
	ctx      context.Context
	repo     *repository.Repository
	gw       *gateway.Fake
	locker   *lock.Memory
	bookings *bookingService
	payments *paymentService
	jobs     *jobService
	catalog  *catalogService

	customer  utils.Actor
	provider  utils.Actor
	provider2 utils.Actor
	admin     utils.Actor
	service   *entity.Service
	address   *entity.Address
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	log := zap.NewNop()
	repo := repository.NewMemoryRepository(log, 3)
	gw := gateway.NewFake()
	locker := lock.NewMemory()
	now := func() time.Time { return testNow }

	gwCfg := utils.GatewayConfig{
		Driver:           "fake",
		KeyID:            "rzp_test_key",
		KeySecret:        testSecret,
		Currency:         "INR",
		Timeout:          time.Second,
		OrderReuseWindow: 15 * time.Minute,
	}

	env := &testEnv{
		t:         t,
		ctx:       context.Background(),
		repo:      repo,
		gw:        gw,
		locker:    locker,
		bookings:  NewBookingService(repo, log).(*bookingService),
		payments:  NewPaymentService(repo, gw, locker, gwCfg, utils.LockConfig{TTL: 30 * time.Second}, log).(*paymentService),
		jobs:      NewJobService(repo, log).(*jobService),
		catalog:   NewCatalogService(repo, log).(*catalogService),
		customer:  utils.Actor{UserID: uuid.New(), Role: string(entity.RoleCustomer)},
		provider:  utils.Actor{UserID: uuid.New(), Role: string(entity.RoleProvider)},
		provider2: utils.Actor{UserID: uuid.New(), Role: string(entity.RoleProvider)},
		admin:     utils.Actor{UserID: uuid.New(), Role: string(entity.RoleAdmin)},
	}
	env.bookings.clock = now
	env.payments.clock = now
	env.jobs.clock = now
	env.catalog.clock = now

	env.service = &entity.Service{
		Base:               entity.Base{ID: uuid.New(), CreatedAt: testNow, UpdatedAt: testNow},
		Name:               "Home physiotherapy",
		Category:           "health",
		BasePrice:          100000, // 1000.00
		DiscountPercentage: 10,
		DurationMinutes:    60,
		IsActive:           true,
	}
	require.NoError(t, repo.Service.Create(env.ctx, env.service))

	env.address = &entity.Address{
		BaseSimple: entity.BaseSimple{ID: uuid.New(), CreatedAt: testNow},
		CustomerID: env.customer.UserID,
		Label:      "Home",
		Line1:      "12 MG Road",
		City:       "Bengaluru",
		State:      "KA",
		PostalCode: "560001",
	}
	require.NoError(t, repo.Address.Create(env.ctx, env.address))

	return env
}

func (e *testEnv) createBooking() uuid.UUID {
	e.t.Helper()
	resp, err := e.bookings.CreateBooking(e.ctx, e.customer, &request.CreateBookingRequest{
		ServiceID:     e.service.ID.String(),
		AddressID:     e.address.ID.String(),
		ScheduledDate: "2026-03-05",
		ScheduledTime: "10:30",
	})
	require.NoError(e.t, err)
	return uuid.MustParse(resp.ID)
}

func (e *testEnv) booking(id uuid.UUID) *entity.Booking {
	e.t.Helper()
	b, err := e.repo.Booking.FindByID(e.ctx, id)
	require.NoError(e.t, err)
	require.NotNil(e.t, b)
	return b
}

// pay opens an order and verifies it with a correctly signed callback.
func (e *testEnv) pay(bookingID uuid.UUID, gatewayPaymentID string) *request.VerifyPaymentRequest {
	e.t.Helper()
	order, err := e.payments.OpenOrder(e.ctx, e.customer, bookingID.String())
	require.NoError(e.t, err)

	req := &request.VerifyPaymentRequest{
		PaymentID:        order.PaymentID,
		GatewayOrderID:   order.OrderID,
		GatewayPaymentID: gatewayPaymentID,
		Signature:        NewSigner(testSecret).Sign(order.OrderID, gatewayPaymentID),
	}
	_, err = e.payments.Verify(e.ctx, req)
	require.NoError(e.t, err)
	return req
}

func (e *testEnv) outboxTypes() []string {
	e.t.Helper()
	pending, err := e.repo.Outbox.FetchPending(e.ctx, 1000, 100)
	require.NoError(e.t, err)

	types := make([]string, 0, len(pending))
	for _, ev := range pending {
		types = append(types, ev.EventType)
	}
	return types
}
