package repository

import (
	"encoding/json"
	"fmt"

	"github.com/fjod/go_food/internal/orders/domain"
)

func marshalEvent(o *domain.Order) ([]byte, error) {
	payload, err := json.Marshal(domain.NewOrderPlaced(o))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal outbox payload: %w", err)
	}
	return payload, nil
}
