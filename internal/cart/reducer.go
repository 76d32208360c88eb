package cart

import "github.com/fjod/go_food/internal/money"

type Action interface {
	isAction()
}

type AddItem struct {
	Item Item
}

type RemoveItem struct {
	ID string
}

type UpdateQuantity struct {
	ID       string
	Quantity int
}

type ClearCart struct{}

func (AddItem) isAction()        {}
func (RemoveItem) isAction()     {}
func (UpdateQuantity) isAction() {}
func (ClearCart) isAction()      {}

// Reduce returns the next state. The input state is never modified.
func Reduce(s State, a Action) State {
	switch act := a.(type) {
	case AddItem:
		next := s.clone()
		for i := range next.Items {
			if next.Items[i].ID == act.Item.ID {
				next.Items[i].Quantity++
				next.Total = next.Total.Add(next.Items[i].UnitPrice)
				return next
			}
		}
		item := act.Item
		item.Quantity = 1
		next.Items = append(next.Items, item)
		next.Total = next.Total.Add(item.UnitPrice)
		return next

	case RemoveItem:
		idx := indexOf(s, act.ID)
		if idx < 0 {
			return s
		}
		removed := s.Items[idx]
		items := make([]Item, 0, len(s.Items)-1)
		items = append(items, s.Items[:idx]...)
		items = append(items, s.Items[idx+1:]...)
		return State{Items: items, Total: s.Total.Sub(removed.LineTotal())}

	case UpdateQuantity:
		if act.Quantity <= 0 {
			return Reduce(s, RemoveItem{ID: act.ID})
		}
		idx := indexOf(s, act.ID)
		if idx < 0 {
			return s
		}
		next := s.clone()
		next.Items[idx].Quantity = act.Quantity
		// full recompute, not a delta
		next.Total = next.Sum()
		return next

	case ClearCart:
		return State{Items: nil, Total: money.Zero()}

	default:
		return s
	}
}

func indexOf(s State, id string) int {
	for i, it := range s.Items {
		if it.ID == id {
			return i
		}
	}
	return -1
}
