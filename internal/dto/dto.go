package dto

import "arcpay-merchant/internal/model"

// CreateOrderRequest is the merchant-facing create body; it is also
// the exact payload forwarded to the ArcPay order endpoint.
type CreateOrderRequest struct {
	Title    string            `json:"title"`
	OrderID  string            `json:"orderId"`
	Currency string            `json:"currency"`
	Items    []model.OrderItem `json:"items"`
	Meta     model.OrderMeta   `json:"meta"`
	Captured bool              `json:"captured"`
}

type WebhookResponse struct {
	Status string `json:"status"`
}

type ErrorResponse struct {
	Message string `json:"message"`
}
