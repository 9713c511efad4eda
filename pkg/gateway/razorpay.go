package gateway

import (
	"context"
	"fmt"

	razorpay "github.com/razorpay/razorpay-go"
	"go.uber.org/zap"
)

type orderCreator interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

type razorpayGateway struct {
	orders orderCreator
	log    *zap.Logger
}

func NewRazorpay(keyID, keySecret string, log *zap.Logger) Gateway {
	client := razorpay.NewClient(keyID, keySecret)
	return &razorpayGateway{
		orders: client.Order,
		log:    log.With(zap.String("gateway", "razorpay")),
	}
}

type createResult struct {
	body map[string]interface{}
	err  error
}

// CreateOrder honours ctx even though the SDK call itself is not cancellable.
func (g *razorpayGateway) CreateOrder(ctx context.Context, req OrderRequest) (Order, error) {
	notes := make(map[string]interface{}, len(req.Notes))
	for k, v := range req.Notes {
		notes[k] = v
	}

	data := map[string]interface{}{
		"amount":   req.Amount,
		"currency": req.Currency,
		"receipt":  req.Receipt,
		"notes":    notes,
	}

	done := make(chan createResult, 1)
	go func() {
		body, err := g.orders.Create(data, nil)
		done <- createResult{body: body, err: err}
	}()

	select {
	case <-ctx.Done():
		g.log.Warn("Gateway order timed out", zap.String("receipt", req.Receipt), zap.Error(ctx.Err()))
		return Order{}, fmt.Errorf("create order: %w: %v", ErrUnavailable, ctx.Err())
	case res := <-done:
		if res.err != nil {
			g.log.Error("Gateway rejected order", zap.String("receipt", req.Receipt), zap.Error(res.err))
			return Order{}, fmt.Errorf("create order: %w: %v", ErrUnavailable, res.err)
		}
		return parseOrder(res.body, req)
	}
}

func parseOrder(body map[string]interface{}, req OrderRequest) (Order, error) {
	id, _ := body["id"].(string)
	if id == "" {
		return Order{}, fmt.Errorf("create order: %w: response without id", ErrUnavailable)
	}

	order := Order{ID: id, Amount: req.Amount, Currency: req.Currency}
	// JSON numbers decode as float64
	if amount, ok := body["amount"].(float64); ok {
		order.Amount = int64(amount)
	}
	if currency, ok := body["currency"].(string); ok && currency != "" {
		order.Currency = currency
	}
	return order, nil
}
