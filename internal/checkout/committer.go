package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_food/internal/api"
	"github.com/fjod/go_food/internal/apperr"
	"github.com/fjod/go_food/internal/auth"
	"github.com/fjod/go_food/internal/cart"
	"github.com/fjod/go_food/internal/notify"
	"github.com/fjod/go_food/internal/payment"
	"github.com/fjod/go_food/internal/pricing"
	"github.com/rs/zerolog"
)

// PaymentProof is what a verified payment leaves behind. It can be replayed
// against the Committer as long as the order was not recorded.
type PaymentProof struct {
	ProviderOrderID string
	PaymentID       string
	Signature       string
	Outcome         payment.Outcome
}

type Committer struct {
	backend  Backend
	cart     *cart.Store
	notifier notify.Notifier
	timeout  time.Duration
	log      zerolog.Logger
}

func NewCommitter(backend Backend, store *cart.Store, notifier notify.Notifier, timeout time.Duration, log zerolog.Logger) *Committer {
	if notifier == nil {
		notifier = notify.Discard
	}
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	return &Committer{backend: backend, cart: store, notifier: notifier, timeout: timeout, log: log}
}

// PlaceOrder records the paid order and clears the cart only once the
// backend has accepted it. Every failure is notified and leaves the cart
// alone. A duplicate answer means an earlier attempt with the same proof
// already landed, and is treated as committed with an empty id.
func (c *Committer) PlaceOrder(ctx context.Context, state cart.State, user auth.User, proof PaymentProof) (string, error) {
	if err := checkPreconditions(state, proof); err != nil {
		c.notifier.Notify(notify.Notification{
			Title:   "Payment Failed",
			Message: userMessage(err),
			Variant: notify.VariantDanger,
		})
		return "", err
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	id, err := c.backend.CreateOrder(callCtx, buildOrderRequest(state, user, proof))
	switch {
	case err == nil:
	case errors.Is(err, apperr.ErrDuplicate):
		c.log.Info().Str("provider_order_id", proof.ProviderOrderID).Msg("order already recorded for this payment")
	default:
		c.notifier.Notify(notify.Notification{
			Title:   "Payment Failed",
			Message: commitFailureMessage(err, proof),
			Variant: notify.VariantDanger,
		})
		if apperr.Kind(err) == "internal" {
			err = fmt.Errorf("%w: %v", apperr.ErrPersistence, err)
		}
		return "", err
	}

	c.cart.Clear()
	c.notifier.Notify(notify.Notification{
		Title:   "Order Confirmed",
		Message: "Order placed successfully!",
		Variant: notify.VariantSuccess,
	})
	return id, nil
}

func checkPreconditions(state cart.State, proof PaymentProof) error {
	if proof.Outcome != payment.Verified {
		return fmt.Errorf("%w: payment is not verified (%s)", apperr.ErrValidation, proof.Outcome)
	}
	if state.IsEmpty() {
		return ErrEmptyCart
	}
	if !state.SingleRestaurant() {
		return fmt.Errorf("%w: items must come from a single restaurant", apperr.ErrValidation)
	}
	return nil
}

func buildOrderRequest(state cart.State, user auth.User, proof PaymentProof) api.OrderRequest {
	items := make([]api.LineItem, 0, len(state.Items))
	for _, it := range state.Items {
		items = append(items, api.LineItem{
			FoodItem: it.ID,
			Name:     it.Name,
			Quantity: it.Quantity,
			Price:    it.UnitPrice,
		})
	}
	return api.OrderRequest{
		Restaurant:      state.RestaurantID(),
		Items:           items,
		DeliveryAddress: user.Address,
		PaymentStatus:   "paid",
		PaymentID:       proof.PaymentID,
		RazorpayOrderID: proof.ProviderOrderID,
		TotalAmount:     pricing.ComputeBreakdown(state.Total).GrandTotal,
	}
}

type publicMessager interface {
	PublicMessage() string
}

func userMessage(err error) string {
	var pm publicMessager
	if errors.As(err, &pm) {
		return pm.PublicMessage()
	}
	return err.Error()
}

func commitFailureMessage(err error, proof PaymentProof) string {
	return fmt.Sprintf("%s. Your payment %s was received but the order was not saved; please retry or contact support.",
		userMessage(err), proof.PaymentID)
}
