package request

// VerifyPaymentRequest carries the gateway callback fields the client relays after checkout.
type VerifyPaymentRequest struct {
	PaymentID        string `json:"payment_id" validate:"required,uuid4"`
	GatewayOrderID   string `json:"gateway_order_id" validate:"required,max=64"`
	GatewayPaymentID string `json:"gateway_payment_id" validate:"required,max=64"`
	Signature        string `json:"signature" validate:"required,hexadecimal,len=64"`
}
