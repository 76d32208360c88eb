package cart

import (
	"fmt"
	"sync"

	"github.com/fjod/go_food/internal/money"
	"github.com/fjod/go_food/internal/notify"
)

// Store owns the client-side cart. Mutations are serialised; notifications
// are emitted after the state has changed and the lock is released.
type Store struct {
	mu       sync.Mutex
	state    State
	notifier notify.Notifier
}

func NewStore(notifier notify.Notifier) *Store {
	if notifier == nil {
		notifier = notify.Discard
	}
	return &Store{state: Empty(), notifier: notifier}
}

func (s *Store) dispatch(a Action) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.state
	s.state = Reduce(s.state, a)
	return prev
}

func (s *Store) AddItem(item Item) error {
	s.mu.Lock()
	if err := validateItem(s.state, item); err != nil {
		s.mu.Unlock()
		s.notifier.Notify(notify.Notification{
			Title:   "Cart Not Updated",
			Message: err.Error(),
			Variant: notify.VariantWarning,
		})
		return err
	}
	s.state = Reduce(s.state, AddItem{Item: item})
	s.mu.Unlock()

	s.notifier.Notify(notify.Notification{
		Title:   "Cart Updated",
		Message: fmt.Sprintf("%s added to cart!", item.Name),
		Variant: notify.VariantSuccess,
	})
	return nil
}

// RemoveItem is a silent no-op for unknown ids.
func (s *Store) RemoveItem(id string) {
	prev := s.dispatch(RemoveItem{ID: id})
	removed, ok := prev.Find(id)
	if !ok {
		return
	}
	s.notifier.Notify(notify.Notification{
		Title:   "Cart Updated",
		Message: fmt.Sprintf("%s removed from cart", removed.Name),
		Variant: notify.VariantInfo,
	})
}

func (s *Store) UpdateQuantity(id string, quantity int) {
	if quantity <= 0 {
		s.RemoveItem(id)
		return
	}
	s.dispatch(UpdateQuantity{ID: id, Quantity: quantity})
}

func (s *Store) Clear() {
	s.dispatch(ClearCart{})
	s.notifier.Notify(notify.Notification{
		Title:   "Cart Cleared",
		Message: "Cart cleared successfully",
		Variant: notify.VariantInfo,
	})
}

// Reset empties the cart without notifying, e.g. on logout.
func (s *Store) Reset() {
	s.dispatch(ClearCart{})
}

func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Count()
}

func (s *Store) Total() money.Amount {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Total
}

func (s *Store) IsEmpty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.IsEmpty()
}

// State returns a copy safe to keep across later mutations.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}
