// Package gateway issues payment orders with an external payment provider.
package gateway

import (
	"context"
	"errors"
	"fmt"

	"service-booking/pkg/utils"

	"go.uber.org/zap"
)

// ErrUnavailable wraps every failure to obtain an order: timeouts, transport errors, rejections.
var ErrUnavailable = errors.New("gateway unavailable")

type OrderRequest struct {
	Amount   int64 // minor units
	Currency string
	Receipt  string
	Notes    map[string]string
}

type Order struct {
	ID       string
	Amount   int64
	Currency string
}

// Gateway creates orders the client then pays against.
type Gateway interface {
	CreateOrder(ctx context.Context, req OrderRequest) (Order, error)
}

// New builds the gateway selected by cfg.Driver.
func New(cfg utils.GatewayConfig, log *zap.Logger) (Gateway, error) {
	switch cfg.Driver {
	case "razorpay":
		if cfg.KeyID == "" || cfg.KeySecret == "" {
			return nil, fmt.Errorf("razorpay gateway requires GATEWAY_KEY_ID and GATEWAY_KEY_SECRET")
		}
		return NewRazorpay(cfg.KeyID, cfg.KeySecret, log), nil
	case "fake":
		return NewFake(), nil
	default:
		return nil, fmt.Errorf("unknown gateway driver %q", cfg.Driver)
	}
}
