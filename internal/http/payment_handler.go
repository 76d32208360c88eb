package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/fjod/go_food/internal/api"
	"github.com/fjod/go_food/internal/apperr"
	"github.com/fjod/go_food/internal/payment"
)

type PaymentService interface {
	CreateOrder(ctx context.Context, amountMinor int64, currency string) (*payment.Order, error)
	VerifyPayment(ctx context.Context, orderID, paymentID, signature string) (payment.Outcome, error)
}

type PaymentHandler struct {
	payments PaymentService
	timeout  time.Duration
}

func NewPaymentHandler(payments PaymentService, timeout time.Duration) *PaymentHandler {
	return &PaymentHandler{
		payments: payments,
		timeout:  timeout,
	}
}

// POST /api/payment/create-order
func (h *PaymentHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req api.CreatePaymentOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Amount <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_amount", "amount must be a positive integer in minor units")
		return
	}

	order, err := h.payments.CreateOrder(ctx, req.Amount, req.Currency)
	if err != nil {
		if errors.Is(err, apperr.ErrValidation) {
			respondAppError(w, r, err)
			return
		}
		respondInternal(w, r, err, api.PaymentErrorResponse{
			Message: "Error creating order",
			Error:   err.Error(),
			Code:    apperr.Kind(err),
		})
		return
	}

	respondJSON(w, http.StatusOK, api.PaymentOrderResponse{
		ProviderOrderID: order.ProviderOrderID,
		Amount:          order.AmountMinor(),
		Currency:        order.Currency,
		Receipt:         order.Receipt,
		Status:          order.Status,
	})
}

// POST /api/payment/verify-payment
func (h *PaymentHandler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req api.VerifyPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, api.VerifyPaymentResponse{
			Message: "invalid JSON body",
			Code:    "invalid_request",
		})
		return
	}

	outcome, err := h.payments.VerifyPayment(ctx, req.OrderID, req.PaymentID, req.Signature)
	if err != nil {
		respondInternal(w, r, err, api.VerifyPaymentResponse{
			Message: "Error verifying payment",
			Code:    apperr.Kind(err),
		})
		return
	}

	switch outcome {
	case payment.Verified:
		respondJSON(w, http.StatusOK, api.VerifyPaymentResponse{
			Success: true,
			Message: "Payment verified successfully",
		})
	case payment.MissingFields:
		respondJSON(w, http.StatusBadRequest, api.VerifyPaymentResponse{
			Message: "Missing required fields: order_id, payment_id, or signature",
			Code:    api.CodeMissingFields,
		})
	default:
		respondJSON(w, http.StatusBadRequest, api.VerifyPaymentResponse{
			Message: "Payment verification failed",
			Code:    api.CodeSignatureMismatch,
		})
	}
}

func respondInternal(w http.ResponseWriter, r *http.Request, err error, body interface{}) {
	loggerFrom(r).Error().Err(err).Msg("payment request failed")
	respondJSON(w, http.StatusInternalServerError, body)
}
