package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fjod/go_food/internal/money"
	"github.com/fjod/go_food/internal/orders/domain"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client, mr
}

func sampleOrders() []*domain.Order {
	return []*domain.Order{{
		ID:           uuid.New(),
		UserID:       "user-1",
		RestaurantID: "r1",
		Items: []domain.LineItem{
			{FoodItemID: "f1", Quantity: 2, Price: money.MajorFromFloat(45.5)},
		},
		PaymentStatus:   domain.PaymentStatusPaid,
		PaymentID:       "pay_1",
		ProviderOrderID: "order_1",
		TotalAmount:     money.MajorFromFloat(135.55),
		CreatedAt:       time.Now().UTC().Truncate(time.Second),
	}}
}

func TestOrdersCache_SetGet(t *testing.T) {
	client, _ := setupTestRedis(t)
	c := NewRedisCache(client)
	ctx := context.Background()

	orders := sampleOrders()
	require.NoError(t, c.Set(ctx, "user-1", orders))

	got, err := c.Get(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, orders[0].ID, got[0].ID)
	assert.Equal(t, "order_1", got[0].ProviderOrderID)
	assert.True(t, got[0].TotalAmount.Equal(money.MajorFromFloat(135.55)))
	assert.True(t, got[0].Items[0].Price.Equal(money.MajorFromFloat(45.5)))
}

func TestOrdersCache_Miss(t *testing.T) {
	client, _ := setupTestRedis(t)
	c := NewRedisCache(client)

	got, err := c.Get(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.Nil(t, got)
}

func TestOrdersCache_InvalidJSON(t *testing.T) {
	client, mr := setupTestRedis(t)
	c := NewRedisCache(client)
	require.NoError(t, mr.Set(ordersKey("user-1"), `[{"ID":`))

	_, err := c.Get(context.Background(), "user-1")
	assert.ErrorContains(t, err, "unmarshal orders failed")
}

func TestOrdersCache_TTLWithJitter(t *testing.T) {
	client, mr := setupTestRedis(t)
	c := NewRedisCache(client)
	require.NoError(t, c.Set(context.Background(), "user-1", sampleOrders()))

	ttl := mr.TTL(ordersKey("user-1"))
	assert.GreaterOrEqual(t, ttl, 5*time.Minute)
	assert.Less(t, ttl, 6*time.Minute)
}

func TestOrdersCache_Delete(t *testing.T) {
	client, mr := setupTestRedis(t)
	c := NewRedisCache(client)
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "user-1", sampleOrders()))

	require.NoError(t, c.Delete(ctx, "user-1"))
	assert.False(t, mr.Exists(ordersKey("user-1")))
	assert.NoError(t, c.Delete(ctx, "user-1"))
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "orders:test123", ordersKey("test123"))
	assert.Equal(t, "payment:verified:order_1", ledgerKey("order_1"))
}
