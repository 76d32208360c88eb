package cache

import (
	"context"
	"errors"

	"github.com/fjod/go_food/internal/orders/domain"
)

type OrdersCache interface {
	Get(ctx context.Context, userID string) ([]*domain.Order, error)
	Set(ctx context.Context, userID string, orders []*domain.Order) error
	Delete(ctx context.Context, userID string) error
}

var ErrCacheMiss = errors.New("cache miss")
