package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"service-booking/internal/apperr"
	"service-booking/internal/data/entity"
	"service-booking/internal/dto/request"
	"service-booking/internal/dto/response"
	"service-booking/pkg/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaymentHappyPath(t *testing.T) {
	env := newTestEnv(t)
	id := env.createBooking()

	order, err := env.payments.OpenOrder(env.ctx, env.customer, id.String())
	require.NoError(t, err)
	assert.Equal(t, int64(90000), order.Amount)
	assert.Equal(t, "INR", order.Currency)
	assert.Equal(t, "rzp_test_key", order.KeyID)
	assert.False(t, order.Reused)

	req := &request.VerifyPaymentRequest{
		PaymentID:        order.PaymentID,
		GatewayOrderID:   order.OrderID,
		GatewayPaymentID: "pay_abc",
		Signature:        NewSigner(testSecret).Sign(order.OrderID, "pay_abc"),
	}
	resp, err := env.payments.Verify(env.ctx, req)
	require.NoError(t, err)
	assert.False(t, resp.AlreadyVerified)
	assert.False(t, resp.BookingNoLongerPending)
	assert.Equal(t, entity.PaymentStatusCompleted, resp.Payment.Status)
	assert.Equal(t, entity.BookingStatusAccepted, resp.Booking.Status)
	assert.Equal(t, 900.0, resp.Payment.Amount)

	stored := env.booking(id)
	require.NotNil(t, stored.PaymentID)
	assert.Equal(t, order.PaymentID, stored.PaymentID.String())

	again, err := env.payments.Verify(env.ctx, req)
	require.NoError(t, err)
	assert.True(t, again.AlreadyVerified)
	assert.Equal(t, entity.BookingStatusAccepted, again.Booking.Status)

	types := env.outboxTypes()
	assert.Contains(t, types, entity.EventPaymentSettled)
	assert.Contains(t, types, entity.EventBookingStatusChanged)
	assert.NotContains(t, types, entity.EventPaymentRefundRequired)
}

func TestOpenOrderReusesRecentOrder(t *testing.T) {
	env := newTestEnv(t)
	id := env.createBooking()

	first, err := env.payments.OpenOrder(env.ctx, env.customer, id.String())
	require.NoError(t, err)
	second, err := env.payments.OpenOrder(env.ctx, env.customer, id.String())
	require.NoError(t, err)

	assert.Equal(t, first.PaymentID, second.PaymentID)
	assert.Equal(t, first.OrderID, second.OrderID)
	assert.True(t, second.Reused)
	assert.Equal(t, 1, env.gw.Calls())

	// past the reuse window a fresh order is issued for the same payment
	env.payments.clock = func() time.Time { return testNow.Add(time.Hour) }
	third, err := env.payments.OpenOrder(env.ctx, env.customer, id.String())
	require.NoError(t, err)
	assert.Equal(t, first.PaymentID, third.PaymentID)
	assert.NotEqual(t, first.OrderID, third.OrderID)
	assert.Equal(t, 2, env.gw.Calls())
}

func TestOpenOrderConcurrentCallersShareOnePayment(t *testing.T) {
	env := newTestEnv(t)
	id := env.createBooking()

	var wg sync.WaitGroup
	paymentIDs := make([]string, 8)
	errs := make([]error, 8)
	for i := range paymentIDs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := env.payments.OpenOrder(env.ctx, env.customer, id.String())
			errs[i] = err
			if err == nil {
				paymentIDs[i] = resp.PaymentID
			}
		}(i)
	}
	wg.Wait()

	var winner string
	for i, err := range errs {
		if err != nil {
			// a caller that lost the order lock is told to retry
			assert.ErrorIs(t, err, apperr.ErrConflict)
			continue
		}
		if winner == "" {
			winner = paymentIDs[i]
		}
		assert.Equal(t, winner, paymentIDs[i])
	}
	assert.NotEmpty(t, winner)

	payment, err := env.repo.Payment.FindByBookingID(env.ctx, id)
	require.NoError(t, err)
	assert.Equal(t, winner, payment.ID.String())
}

func TestOpenOrderRejections(t *testing.T) {
	env := newTestEnv(t)
	id := env.createBooking()

	stranger := utils.Actor{UserID: uuid.New(), Role: string(entity.RoleCustomer)}
	_, err := env.payments.OpenOrder(env.ctx, stranger, id.String())
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = env.payments.OpenOrder(env.ctx, env.provider, id.String())
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = env.payments.OpenOrder(env.ctx, env.customer, uuid.NewString())
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	env.pay(id, "pay_1")
	_, err = env.payments.OpenOrder(env.ctx, env.customer, id.String())
	assert.ErrorIs(t, err, apperr.ErrAlreadyPaid)

	cancelled := env.createBooking()
	_, err = env.bookings.CancelBooking(env.ctx, env.customer, cancelled.String(), &request.CancelBookingRequest{})
	require.NoError(t, err)
	_, err = env.payments.OpenOrder(env.ctx, env.customer, cancelled.String())
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
}

func TestOpenOrderGatewayFailures(t *testing.T) {
	env := newTestEnv(t)
	id := env.createBooking()

	env.gw.Err = errors.New("503 from gateway")
	_, err := env.payments.OpenOrder(env.ctx, env.customer, id.String())
	assert.ErrorIs(t, err, apperr.ErrGatewayUnavailable)

	env.gw.Err = nil
	env.gw.Delay = time.Second
	env.payments.cfg.Timeout = 20 * time.Millisecond
	_, err = env.payments.OpenOrder(env.ctx, env.customer, id.String())
	assert.ErrorIs(t, err, apperr.ErrGatewayUnavailable)

	// the payment survives without an order and the lock is released
	payment, err := env.repo.Payment.FindByBookingID(env.ctx, id)
	require.NoError(t, err)
	require.NotNil(t, payment)
	assert.Nil(t, payment.GatewayOrderID)
	assert.Equal(t, entity.PaymentStatusPending, payment.Status)

	env.gw.Delay = 0
	order, err := env.payments.OpenOrder(env.ctx, env.customer, id.String())
	require.NoError(t, err)
	assert.Equal(t, payment.ID.String(), order.PaymentID)
}

func TestOpenOrderLockHeld(t *testing.T) {
	env := newTestEnv(t)
	id := env.createBooking()

	release, err := env.locker.Acquire(context.Background(), "payment-order:"+id.String(), time.Minute)
	require.NoError(t, err)

	_, err = env.payments.OpenOrder(env.ctx, env.customer, id.String())
	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.Equal(t, 0, env.gw.Calls())

	require.NoError(t, release(context.Background()))
	_, err = env.payments.OpenOrder(env.ctx, env.customer, id.String())
	assert.NoError(t, err)
}

func TestVerifyRejectsBadSignature(t *testing.T) {
	env := newTestEnv(t)
	id := env.createBooking()
	order, err := env.payments.OpenOrder(env.ctx, env.customer, id.String())
	require.NoError(t, err)

	forged := &request.VerifyPaymentRequest{
		PaymentID:        order.PaymentID,
		GatewayOrderID:   order.OrderID,
		GatewayPaymentID: "pay_forged",
		Signature:        NewSigner("wrong_secret").Sign(order.OrderID, "pay_forged"),
	}
	_, err = env.payments.Verify(env.ctx, forged)
	assert.ErrorIs(t, err, apperr.ErrSignatureInvalid)

	assert.Equal(t, entity.BookingStatusPending, env.booking(id).Status)
	payment, err := env.repo.Payment.FindByBookingID(env.ctx, id)
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentStatusPending, payment.Status)
	assert.Nil(t, payment.GatewayPaymentID)
	assert.NotContains(t, env.outboxTypes(), entity.EventPaymentSettled)
}

func TestVerifyRejectsOrderMismatch(t *testing.T) {
	env := newTestEnv(t)
	id := env.createBooking()
	order, err := env.payments.OpenOrder(env.ctx, env.customer, id.String())
	require.NoError(t, err)

	// correctly signed, but for an order this payment never had
	_, err = env.payments.Verify(env.ctx, &request.VerifyPaymentRequest{
		PaymentID:        order.PaymentID,
		GatewayOrderID:   "order_other",
		GatewayPaymentID: "pay_1",
		Signature:        NewSigner(testSecret).Sign("order_other", "pay_1"),
	})
	assert.ErrorIs(t, err, apperr.ErrSignatureInvalid)
	assert.Equal(t, entity.BookingStatusPending, env.booking(id).Status)
}

func TestVerifyAcceptsSupersededOrder(t *testing.T) {
	env := newTestEnv(t)
	id := env.createBooking()

	stale, err := env.payments.OpenOrder(env.ctx, env.customer, id.String())
	require.NoError(t, err)
	env.payments.clock = func() time.Time { return testNow.Add(time.Hour) }
	fresh, err := env.payments.OpenOrder(env.ctx, env.customer, id.String())
	require.NoError(t, err)
	require.NotEqual(t, stale.OrderID, fresh.OrderID)

	// the customer paid from a checkout opened on the first order
	resp, err := env.payments.Verify(env.ctx, &request.VerifyPaymentRequest{
		PaymentID:        stale.PaymentID,
		GatewayOrderID:   stale.OrderID,
		GatewayPaymentID: "pay_stale_tab",
		Signature:        NewSigner(testSecret).Sign(stale.OrderID, "pay_stale_tab"),
	})
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentStatusCompleted, resp.Payment.Status)
	assert.Equal(t, entity.BookingStatusAccepted, env.booking(id).Status)

	payment, err := env.repo.Payment.FindByBookingID(env.ctx, id)
	require.NoError(t, err)
	require.NotNil(t, payment.GatewayOrderID)
	assert.Equal(t, stale.OrderID, *payment.GatewayOrderID)
	assert.Equal(t, []string{stale.OrderID, fresh.OrderID}, payment.IssuedOrderIDs)

	// the newer order can no longer take money
	_, err = env.payments.Verify(env.ctx, &request.VerifyPaymentRequest{
		PaymentID:        fresh.PaymentID,
		GatewayOrderID:   fresh.OrderID,
		GatewayPaymentID: "pay_second",
		Signature:        NewSigner(testSecret).Sign(fresh.OrderID, "pay_second"),
	})
	assert.ErrorIs(t, err, apperr.ErrAlreadyPaid)
}

func TestVerifyValidationAndNotFound(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.payments.Verify(env.ctx, &request.VerifyPaymentRequest{PaymentID: uuid.NewString()})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = env.payments.Verify(env.ctx, &request.VerifyPaymentRequest{
		PaymentID:        uuid.NewString(),
		GatewayOrderID:   "order_1",
		GatewayPaymentID: "pay_1",
		Signature:        NewSigner(testSecret).Sign("order_1", "pay_1"),
	})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestVerifySecondGatewayPaymentIsAlreadyPaid(t *testing.T) {
	env := newTestEnv(t)
	id := env.createBooking()
	first := env.pay(id, "pay_1")

	_, err := env.payments.Verify(env.ctx, &request.VerifyPaymentRequest{
		PaymentID:        first.PaymentID,
		GatewayOrderID:   first.GatewayOrderID,
		GatewayPaymentID: "pay_2",
		Signature:        NewSigner(testSecret).Sign(first.GatewayOrderID, "pay_2"),
	})
	assert.ErrorIs(t, err, apperr.ErrAlreadyPaid)
}

func TestVerifyAfterCancelFlagsRefund(t *testing.T) {
	env := newTestEnv(t)
	id := env.createBooking()
	order, err := env.payments.OpenOrder(env.ctx, env.customer, id.String())
	require.NoError(t, err)

	_, err = env.bookings.CancelBooking(env.ctx, env.customer, id.String(), &request.CancelBookingRequest{})
	require.NoError(t, err)

	req := &request.VerifyPaymentRequest{
		PaymentID:        order.PaymentID,
		GatewayOrderID:   order.OrderID,
		GatewayPaymentID: "pay_late",
		Signature:        NewSigner(testSecret).Sign(order.OrderID, "pay_late"),
	}
	resp, err := env.payments.Verify(env.ctx, req)
	require.NoError(t, err)
	assert.True(t, resp.BookingNoLongerPending)
	assert.Equal(t, entity.PaymentStatusCompleted, resp.Payment.Status)
	assert.Equal(t, entity.BookingStatusCancelled, resp.Booking.Status)
	assert.Contains(t, env.outboxTypes(), entity.EventPaymentRefundRequired)

	replay, err := env.payments.Verify(env.ctx, req)
	require.NoError(t, err)
	assert.True(t, replay.AlreadyVerified)
	assert.True(t, replay.BookingNoLongerPending)
}

func TestVerifyConcurrentCallbacks(t *testing.T) {
	env := newTestEnv(t)
	id := env.createBooking()
	order, err := env.payments.OpenOrder(env.ctx, env.customer, id.String())
	require.NoError(t, err)

	req := &request.VerifyPaymentRequest{
		PaymentID:        order.PaymentID,
		GatewayOrderID:   order.OrderID,
		GatewayPaymentID: "pay_race",
		Signature:        NewSigner(testSecret).Sign(order.OrderID, "pay_race"),
	}

	const callers = 6
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		settled  int
		replayed int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := env.payments.Verify(env.ctx, req)
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if resp.AlreadyVerified {
				replayed++
			} else {
				settled++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, settled)
	assert.Equal(t, callers-1, replayed)

	verified := 0
	for _, typ := range env.outboxTypes() {
		if typ == entity.EventPaymentSettled {
			verified++
		}
	}
	assert.Equal(t, 1, verified)
}

func TestCancelRacesVerify(t *testing.T) {
	env := newTestEnv(t)

	for i := 0; i < 50; i++ {
		id := env.createBooking()
		order, err := env.payments.OpenOrder(env.ctx, env.customer, id.String())
		require.NoError(t, err)

		gwPayID := fmt.Sprintf("pay_race_%d", i)
		req := &request.VerifyPaymentRequest{
			PaymentID:        order.PaymentID,
			GatewayOrderID:   order.OrderID,
			GatewayPaymentID: gwPayID,
			Signature:        NewSigner(testSecret).Sign(order.OrderID, gwPayID),
		}

		var (
			wg        sync.WaitGroup
			cancelErr error
			verified  *response.VerifyPaymentResponse
			verifyErr error
		)
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, cancelErr = env.bookings.CancelBooking(env.ctx, env.customer, id.String(), &request.CancelBookingRequest{})
		}()
		go func() {
			defer wg.Done()
			verified, verifyErr = env.payments.Verify(env.ctx, req)
		}()
		wg.Wait()

		require.NoError(t, verifyErr)
		assert.Equal(t, entity.PaymentStatusCompleted, verified.Payment.Status)

		stored := env.booking(id)
		if cancelErr == nil {
			assert.True(t, verified.BookingNoLongerPending)
			assert.Equal(t, entity.BookingStatusCancelled, stored.Status)
		} else {
			assert.ErrorIs(t, cancelErr, apperr.ErrConflict)
			assert.False(t, verified.BookingNoLongerPending)
			assert.Equal(t, entity.BookingStatusAccepted, stored.Status)
		}
	}
}
