package gateway

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Fake issues deterministic order ids (order_1, order_2, ...) without any network call.
type Fake struct {
	mu    sync.Mutex
	seq   int
	calls int

	// Delay holds each call this long before answering, honouring ctx.
	Delay time.Duration
	// Err, when set, fails every call.
	Err error
}

func NewFake() *Fake {
	return &Fake{}
}

func (f *Fake) CreateOrder(ctx context.Context, req OrderRequest) (Order, error) {
	f.mu.Lock()
	f.calls++
	delay, failure := f.Delay, f.Err
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return Order{}, fmt.Errorf("create order: %w: %v", ErrUnavailable, ctx.Err())
		case <-time.After(delay):
		}
	}
	if failure != nil {
		return Order{}, fmt.Errorf("create order: %w: %v", ErrUnavailable, failure)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	return Order{ID: fmt.Sprintf("order_%d", f.seq), Amount: req.Amount, Currency: req.Currency}, nil
}

// Calls reports how many orders were requested, including failed ones.
func (f *Fake) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
