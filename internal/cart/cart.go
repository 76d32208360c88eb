package cart

import (
	"errors"

	"github.com/fjod/go_food/internal/money"
)

var (
	ErrInvalidItem        = errors.New("cart item must have id, restaurant and a non-negative price")
	ErrRestaurantMismatch = errors.New("cart already holds items from another restaurant")
)

type Item struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	UnitPrice    money.Amount `json:"unit_price"`
	Quantity     int          `json:"quantity"`
	RestaurantID string       `json:"restaurant_id"`
}

func (i Item) LineTotal() money.Amount {
	return i.UnitPrice.MulInt(i.Quantity)
}

// State is the cart snapshot. Items keep insertion order.
type State struct {
	Items []Item       `json:"items"`
	Total money.Amount `json:"total"`
}

func Empty() State {
	return State{Items: nil, Total: money.Zero()}
}

func (s State) IsEmpty() bool {
	return len(s.Items) == 0
}

func (s State) Count() int {
	n := 0
	for _, it := range s.Items {
		n += it.Quantity
	}
	return n
}

// Sum recomputes the total from the items.
func (s State) Sum() money.Amount {
	total := money.Zero()
	for _, it := range s.Items {
		total = total.Add(it.LineTotal())
	}
	return total
}

func (s State) Find(id string) (Item, bool) {
	for _, it := range s.Items {
		if it.ID == id {
			return it, true
		}
	}
	return Item{}, false
}

// RestaurantID returns the restaurant of the first item, or "" for an empty cart.
func (s State) RestaurantID() string {
	if len(s.Items) == 0 {
		return ""
	}
	return s.Items[0].RestaurantID
}

// SingleRestaurant reports whether every item shares one restaurant.
func (s State) SingleRestaurant() bool {
	rid := s.RestaurantID()
	for _, it := range s.Items {
		if it.RestaurantID != rid || it.RestaurantID == "" {
			return false
		}
	}
	return true
}

func (s State) clone() State {
	items := make([]Item, len(s.Items))
	copy(items, s.Items)
	return State{Items: items, Total: s.Total}
}

func validateItem(s State, item Item) error {
	if item.ID == "" || item.RestaurantID == "" || item.UnitPrice.IsNegative() {
		return ErrInvalidItem
	}
	if rid := s.RestaurantID(); rid != "" && rid != item.RestaurantID {
		return ErrRestaurantMismatch
	}
	return nil
}
