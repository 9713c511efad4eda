package gateway

import (
	"context"
	"errors"
	"testing"
	"time"

	"service-booking/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubOrders struct {
	body  map[string]interface{}
	err   error
	block chan struct{}
	got   map[string]interface{}
}

func (s *stubOrders) Create(data map[string]interface{}, _ map[string]string) (map[string]interface{}, error) {
	s.got = data
	if s.block != nil {
		<-s.block
	}
	return s.body, s.err
}

func TestRazorpayCreateOrder(t *testing.T) {
	orders := &stubOrders{body: map[string]interface{}{"id": "order_ABC", "amount": float64(90000), "currency": "INR"}}
	g := &razorpayGateway{orders: orders, log: zap.NewNop()}

	order, err := g.CreateOrder(context.Background(), OrderRequest{
		Amount: 90000, Currency: "INR", Receipt: "rcpt_1", Notes: map[string]string{"booking_id": "b1"},
	})
	require.NoError(t, err)
	assert.Equal(t, Order{ID: "order_ABC", Amount: 90000, Currency: "INR"}, order)
	assert.Equal(t, int64(90000), orders.got["amount"])
	assert.Equal(t, "rcpt_1", orders.got["receipt"])
}

func TestRazorpayFailuresAreUnavailable(t *testing.T) {
	g := &razorpayGateway{orders: &stubOrders{err: errors.New("BAD_REQUEST_ERROR")}, log: zap.NewNop()}
	_, err := g.CreateOrder(context.Background(), OrderRequest{Amount: 100, Currency: "INR"})
	assert.ErrorIs(t, err, ErrUnavailable)

	g = &razorpayGateway{orders: &stubOrders{body: map[string]interface{}{}}, log: zap.NewNop()}
	_, err = g.CreateOrder(context.Background(), OrderRequest{Amount: 100, Currency: "INR"})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestRazorpayHonoursDeadline(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	g := &razorpayGateway{orders: &stubOrders{block: block}, log: zap.NewNop()}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := g.CreateOrder(ctx, OrderRequest{Amount: 100, Currency: "INR"})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestFakeGateway(t *testing.T) {
	f := NewFake()
	o1, err := f.CreateOrder(context.Background(), OrderRequest{Amount: 5, Currency: "INR"})
	require.NoError(t, err)
	o2, _ := f.CreateOrder(context.Background(), OrderRequest{Amount: 5, Currency: "INR"})
	assert.Equal(t, "order_1", o1.ID)
	assert.Equal(t, "order_2", o2.ID)

	f.Err = errors.New("down")
	_, err = f.CreateOrder(context.Background(), OrderRequest{})
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, 3, f.Calls())
}

func TestNewSelectsDriver(t *testing.T) {
	g, err := New(utils.GatewayConfig{Driver: "fake"}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &Fake{}, g)

	_, err = New(utils.GatewayConfig{Driver: "razorpay"}, zap.NewNop())
	assert.Error(t, err)

	_, err = New(utils.GatewayConfig{Driver: "paypal"}, zap.NewNop())
	assert.Error(t, err)
}
