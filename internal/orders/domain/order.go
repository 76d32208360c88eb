package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_food/internal/apperr"
	"github.com/fjod/go_food/internal/money"
	"github.com/google/uuid"
)

type PaymentStatus string

const (
	PaymentStatusPaid   PaymentStatus = "paid"
	PaymentStatusUnpaid PaymentStatus = "unpaid"
)

type LineItem struct {
	FoodItemID string       `json:"foodItem"`
	Name       string       `json:"name,omitempty"`
	Quantity   int          `json:"quantity"`
	Price      money.Amount `json:"price"`
}

// Order is immutable once created. ProviderOrderID is unique across orders.
type Order struct {
	ID                  uuid.UUID
	UserID              string
	RestaurantID        string
	Items               []LineItem
	DeliveryAddress     string
	SpecialInstructions string
	PaymentStatus       PaymentStatus
	PaymentID           string
	ProviderOrderID     string
	TotalAmount         money.Amount
	CreatedAt           time.Time
}

// Subtotal is Σ price × quantity over the line items.
func (o *Order) Subtotal() money.Amount {
	total := money.Zero()
	for _, it := range o.Items {
		total = total.Add(it.Price.MulInt(it.Quantity))
	}
	return total
}

func (o *Order) Validate() error {
	var errs []error
	if o.UserID == "" {
		errs = append(errs, errors.New("user is required"))
	}
	if o.RestaurantID == "" {
		errs = append(errs, errors.New("restaurant is required"))
	}
	if len(o.Items) == 0 {
		errs = append(errs, errors.New("at least one item is required"))
	}
	for i, it := range o.Items {
		if it.FoodItemID == "" {
			errs = append(errs, fmt.Errorf("item %d: food item id is required", i))
		}
		if it.Quantity < 1 {
			errs = append(errs, fmt.Errorf("item %d: quantity must be at least 1", i))
		}
		if it.Price.IsNegative() {
			errs = append(errs, fmt.Errorf("item %d: price must not be negative", i))
		}
	}
	if !o.TotalAmount.IsPositive() {
		errs = append(errs, errors.New("total amount must be positive"))
	}
	switch o.PaymentStatus {
	case PaymentStatusPaid:
		if o.PaymentID == "" || o.ProviderOrderID == "" {
			errs = append(errs, errors.New("paid orders need payment id and provider order id"))
		}
	case PaymentStatusUnpaid:
	default:
		errs = append(errs, fmt.Errorf("unknown payment status %q", o.PaymentStatus))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", apperr.ErrValidation, errors.Join(errs...))
	}
	return nil
}

const EventTypeOrderPlaced = "order.placed"

// OrderPlaced is the outbox payload published for every new order.
type OrderPlaced struct {
	OrderID         uuid.UUID    `json:"order_id"`
	UserID          string       `json:"user_id"`
	RestaurantID    string       `json:"restaurant_id"`
	ProviderOrderID string       `json:"provider_order_id,omitempty"`
	PaymentID       string       `json:"payment_id,omitempty"`
	Items           []LineItem   `json:"items"`
	TotalAmount     money.Amount `json:"total_amount"`
	PlacedAt        time.Time    `json:"placed_at"`
}

func NewOrderPlaced(o *Order) OrderPlaced {
	return OrderPlaced{
		OrderID:         o.ID,
		UserID:          o.UserID,
		RestaurantID:    o.RestaurantID,
		ProviderOrderID: o.ProviderOrderID,
		PaymentID:       o.PaymentID,
		Items:           o.Items,
		TotalAmount:     o.TotalAmount,
		PlacedAt:        o.CreatedAt,
	}
}

type OutboxEvent struct {
	ID          uuid.UUID
	AggregateID string
	EventType   string
	Payload     []byte
	CreatedAt   time.Time
}
