package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/fjod/go_food/internal/money"
	"github.com/fjod/go_food/internal/orders/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestDB(t *testing.T) (*PostgresRepository, func()) {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)

	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	creds := &Credentials{
		Host:              host,
		Port:              port.Int(),
		User:              "testuser",
		Password:          "testpass",
		DBName:            "testdb",
		MigrationsDirPath: "./migrations",
	}

	repo, err := NewPostgresRepository(creds)
	require.NoError(t, err)

	err = repo.RunMigrations(creds)
	require.NoError(t, err)

	cleanup := func() {
		repo.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}

	return repo, cleanup
}

func newTestOrder(userID, providerOrderID string) *domain.Order {
	return &domain.Order{
		ID:           uuid.New(),
		UserID:       userID,
		RestaurantID: "r1",
		Items: []domain.LineItem{
			{FoodItemID: "f1", Name: "Margherita", Quantity: 2, Price: money.MajorFromInt(200)},
		},
		DeliveryAddress: "12 MG Road",
		PaymentStatus:   domain.PaymentStatusPaid,
		PaymentID:       "pay_" + providerOrderID,
		ProviderOrderID: providerOrderID,
		TotalAmount:     money.MajorFromInt(460),
	}
}

func TestPostgres_CreateAndGet(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	order := newTestOrder("user-1", "order_1")
	order.Items = append(order.Items, domain.LineItem{FoodItemID: "f2", Quantity: 1, Price: money.MajorFromFloat(45.5)})
	order.TotalAmount = money.MajorFromFloat(507.78)

	require.NoError(t, repo.CreateOrder(ctx, order))

	fetched, err := repo.GetOrderByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, fetched.ID)
	assert.Equal(t, "user-1", fetched.UserID)
	assert.Equal(t, "order_1", fetched.ProviderOrderID)
	assert.Equal(t, domain.PaymentStatusPaid, fetched.PaymentStatus)
	assert.True(t, fetched.TotalAmount.Equal(money.MajorFromFloat(507.78)))
	require.Len(t, fetched.Items, 2)
	assert.True(t, fetched.Items[1].Price.Equal(money.MajorFromFloat(45.5)))
}

func TestPostgres_DuplicateProviderOrder(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, repo.CreateOrder(ctx, newTestOrder("user-1", "order_dup")))

	err := repo.CreateOrder(ctx, newTestOrder("user-1", "order_dup"))
	assert.ErrorIs(t, err, ErrDuplicateOrder)

	orders, err := repo.ListOrdersByUserID(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, orders, 1)

	events, err := repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, events, 1, "rolled back insert must not leave an outbox event")
}

func TestPostgres_UnpaidOrdersShareNullProviderID(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		o := newTestOrder("user-1", "")
		o.PaymentStatus = domain.PaymentStatusUnpaid
		o.PaymentID = ""
		require.NoError(t, repo.CreateOrder(ctx, o))
	}
}

func TestPostgres_GetNotFound(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := repo.GetOrderByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestPostgres_ListNewestFirst(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	base := time.Now().UTC().Add(-time.Hour)
	for i, id := range []string{"order_a", "order_b", "order_c"} {
		o := newTestOrder("user-1", id)
		o.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, repo.CreateOrder(ctx, o))
	}
	require.NoError(t, repo.CreateOrder(ctx, newTestOrder("user-2", "order_x")))

	orders, err := repo.ListOrdersByUserID(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, orders, 3)
	assert.Equal(t, "order_c", orders[0].ProviderOrderID)
	assert.Equal(t, "order_a", orders[2].ProviderOrderID)

	none, err := repo.ListOrdersByUserID(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestPostgres_OutboxLifecycle(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	order := newTestOrder("user-1", "order_evt")
	require.NoError(t, repo.CreateOrder(ctx, order))

	events, err := repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, order.ID.String(), events[0].AggregateID)
	assert.Equal(t, domain.EventTypeOrderPlaced, events[0].EventType)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(events[0].Payload, &payload))
	assert.Equal(t, "order_evt", payload["provider_order_id"])

	require.NoError(t, repo.MarkEventAsProcessed(ctx, events[0].ID))
	events, err = repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, events)
}
