// Package checkout drives one settlement attempt from the client side:
// create a payment order, collect the payment through the widget, verify it
// and commit the order.
package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/fjod/go_food/internal/api"
	"github.com/fjod/go_food/internal/apperr"
	"github.com/fjod/go_food/internal/money"
	"github.com/fjod/go_food/internal/payment"
)

// Backend is the trusted server as seen by the client. *client.Client satisfies it.
type Backend interface {
	CreatePaymentOrder(ctx context.Context, amountMinor int64, currency string) (*payment.Order, error)
	VerifyPayment(ctx context.Context, orderID, paymentID, signature string) (payment.Outcome, error)
	CreateOrder(ctx context.Context, order api.OrderRequest) (string, error)
}

const defaultCallTimeout = 30 * time.Second

type Initiator struct {
	backend  Backend
	currency string
	timeout  time.Duration
}

func NewInitiator(backend Backend, timeout time.Duration) *Initiator {
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	return &Initiator{backend: backend, currency: payment.DefaultCurrency, timeout: timeout}
}

// CreatePaymentOrder converts the grand total to minor units exactly once and
// asks the backend for a provider order of that amount.
func (i *Initiator) CreatePaymentOrder(ctx context.Context, grandTotal money.Amount) (*payment.Order, error) {
	minor, err := grandTotal.ToMinor().MinorUnits()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrValidation, err)
	}
	if minor <= 0 {
		return nil, fmt.Errorf("%w: payment amount must be positive, got %s", apperr.ErrValidation, grandTotal)
	}

	callCtx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	order, err := i.backend.CreatePaymentOrder(callCtx, minor, i.currency)
	if err != nil {
		if apperr.Kind(err) == "internal" {
			return nil, fmt.Errorf("%w: %v", apperr.ErrProvider, err)
		}
		return nil, err
	}
	if order.AmountMinor() != minor {
		return nil, fmt.Errorf("%w: payment order amount %d, requested %d",
			apperr.ErrProvider, order.AmountMinor(), minor)
	}
	return order, nil
}
