// Package api holds the JSON contract between the storefront client and
// the backend.
package api

import "github.com/fjod/go_food/internal/money"

const (
	PathCreatePaymentOrder = "/api/payment/create-order"
	PathVerifyPayment      = "/api/payment/verify-payment"
	PathOrders             = "/api/orders"
	PathMyOrders           = "/api/orders/my-orders"
	PathHealth             = "/api/health"
)

// Verification failure codes.
const (
	CodeMissingFields     = "missing_fields"
	CodeSignatureMismatch = "signature_mismatch"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// CreatePaymentOrderRequest carries the amount in minor units (paise).
type CreatePaymentOrderRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency,omitempty"`
}

type PaymentOrderResponse struct {
	ProviderOrderID string `json:"provider_order_id"`
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
	Receipt         string `json:"receipt"`
	Status          string `json:"status"`
}

// PaymentErrorResponse is returned when the provider order cannot be created.
type PaymentErrorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

type VerifyPaymentRequest struct {
	OrderID   string `json:"order_id"`
	PaymentID string `json:"payment_id"`
	Signature string `json:"signature"`
}

type VerifyPaymentResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type LineItem struct {
	FoodItem string       `json:"foodItem"`
	Name     string       `json:"name,omitempty"`
	Quantity int          `json:"quantity"`
	Price    money.Amount `json:"price"`
}

// OrderRequest is the order record submitted after a verified payment.
type OrderRequest struct {
	Restaurant          string       `json:"restaurant"`
	Items               []LineItem   `json:"items"`
	DeliveryAddress     string       `json:"deliveryAddress"`
	SpecialInstructions string       `json:"specialInstructions"`
	PaymentStatus       string       `json:"paymentStatus"`
	PaymentID           string       `json:"paymentId,omitempty"`
	RazorpayOrderID     string       `json:"razorpayOrderId,omitempty"`
	TotalAmount         money.Amount `json:"totalAmount"`
}

type CreateOrderResponse struct {
	ID string `json:"id"`
}

type Order struct {
	ID                  string       `json:"id"`
	Restaurant          string       `json:"restaurant"`
	Items               []LineItem   `json:"items"`
	DeliveryAddress     string       `json:"deliveryAddress"`
	SpecialInstructions string       `json:"specialInstructions,omitempty"`
	PaymentStatus       string       `json:"paymentStatus"`
	PaymentID           string       `json:"paymentId,omitempty"`
	RazorpayOrderID     string       `json:"razorpayOrderId,omitempty"`
	TotalAmount         money.Amount `json:"totalAmount"`
	CreatedAt           string       `json:"createdAt"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}
