package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_food/internal/apperr"
	"github.com/fjod/go_food/internal/cache"
	"github.com/fjod/go_food/internal/orders/domain"
	"github.com/fjod/go_food/internal/orders/repository"
	"github.com/fjod/go_food/internal/pricing"
	"github.com/fjod/go_food/pkg/logger"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// PaymentChecker answers whether a provider payment passed server-side
// signature verification.
type PaymentChecker interface {
	IsVerified(ctx context.Context, providerOrderID, paymentID string) (bool, error)
}

type OrdersService struct {
	repo     repository.OrderRepository
	cache    cache.OrdersCache
	payments PaymentChecker
	sfg      singleflight.Group

	newID func() uuid.UUID
	now   func() time.Time
}

func NewOrdersService(repo repository.OrderRepository, c cache.OrdersCache, payments PaymentChecker) *OrdersService {
	return &OrdersService{
		repo:     repo,
		cache:    c,
		payments: payments,
		newID:    uuid.New,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// PlaceOrder assigns id and creation time, then persists the order. Paid
// orders are only accepted for a verified provider payment.
func (s *OrdersService) PlaceOrder(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	log := logger.FromContext(ctx)

	order.ID = s.newID()
	order.CreatedAt = s.now()
	if err := order.Validate(); err != nil {
		return nil, err
	}
	if err := checkTotal(order); err != nil {
		return nil, err
	}

	if order.PaymentStatus == domain.PaymentStatusPaid {
		ok, err := s.payments.IsVerified(ctx, order.ProviderOrderID, order.PaymentID)
		if err != nil {
			log.Error().Err(err).Str("provider_order_id", order.ProviderOrderID).Msg("payment ledger lookup failed")
			return nil, fmt.Errorf("%w: check payment: %v", apperr.ErrPersistence, err)
		}
		if !ok {
			return nil, fmt.Errorf("%w: provider order %s", apperr.ErrNotVerified, order.ProviderOrderID)
		}
	}

	if err := s.repo.CreateOrder(ctx, order); err != nil {
		if errors.Is(err, repository.ErrDuplicateOrder) {
			return nil, fmt.Errorf("%w: provider order %s", apperr.ErrDuplicate, order.ProviderOrderID)
		}
		log.Error().Err(err).Str("user_id", order.UserID).Msg("repo create order error")
		return nil, fmt.Errorf("%w: %v", apperr.ErrPersistence, err)
	}

	s.invalidateCache(ctx, order.UserID)
	log.Info().
		Str("order_id", order.ID.String()).
		Str("user_id", order.UserID).
		Str("provider_order_id", order.ProviderOrderID).
		Msg("order placed")
	return order, nil
}

// checkTotal requires the submitted total to equal the priced line items,
// compared in paise.
func checkTotal(order *domain.Order) error {
	want := pricing.ComputeBreakdown(order.Subtotal()).GrandTotal
	wantMinor, err := want.ToMinor().MinorUnits()
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrValidation, err)
	}
	gotMinor, err := order.TotalAmount.ToMinor().MinorUnits()
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrValidation, err)
	}
	if gotMinor != wantMinor {
		return fmt.Errorf("%w: total amount %s does not match items (%s)",
			apperr.ErrValidation, order.TotalAmount, want)
	}
	return nil
}

// ListMyOrders returns the user's orders, newest first.
func (s *OrdersService) ListMyOrders(ctx context.Context, userID string) ([]*domain.Order, error) {
	v, err, _ := s.sfg.Do(userID, func() (interface{}, error) {
		orders, err := s.cache.Get(ctx, userID)
		if err == nil {
			return orders, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			logger.FromContext(ctx).Warn().Err(err).Msg("cache get error")
		}

		orders, err = s.repo.ListOrdersByUserID(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", apperr.ErrPersistence, err)
		}

		go func() {
			setCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if err := s.cache.Set(setCtx, userID, orders); err != nil {
				logger.FromContext(ctx).Warn().Err(err).Msg("cache set error")
			}
		}()
		return orders, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]*domain.Order), nil
}

// GetOrder returns an order owned by userID. Orders of other users are
// reported as not found.
func (s *OrdersService) GetOrder(ctx context.Context, userID string, id uuid.UUID) (*domain.Order, error) {
	order, err := s.repo.GetOrderByID(ctx, id)
	if errors.Is(err, repository.ErrOrderNotFound) {
		return nil, fmt.Errorf("%w: order %s", apperr.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrPersistence, err)
	}
	if order.UserID != userID {
		return nil, fmt.Errorf("%w: order %s", apperr.ErrNotFound, id)
	}
	return order, nil
}

func (s *OrdersService) invalidateCache(ctx context.Context, userID string) {
	delCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()
	if err := s.cache.Delete(delCtx, userID); err != nil {
		logger.FromContext(ctx).Warn().Err(err).Msg("cache invalidate error")
	}
}
