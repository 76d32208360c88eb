package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_food/internal/money"
	"github.com/fjod/go_food/internal/orders/domain"
	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// SQLiteRepository is the single-file order store for local runs. Times are
// stored as unix nanoseconds and amounts as decimal strings.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// one writer at a time
	db.SetMaxOpenConns(1)
	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) RunMigrations(migrationsPath string) error {
	driver, err := migratesqlite.WithInstance(r.db, &migratesqlite.Config{
		MigrationsTable: "orders_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", migrationsPath),
		"sqlite",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

func (r *SQLiteRepository) CreateOrder(ctx context.Context, order *domain.Order) error {
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}

	itemsJSON, err := json.Marshal(order.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal order items: %w", err)
	}
	payload, err := marshalEvent(order)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	query := `INSERT INTO orders (` + orderColumns + `)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, insertErr := tx.ExecContext(ctx, query,
		order.ID.String(),
		order.UserID,
		order.RestaurantID,
		string(itemsJSON),
		order.DeliveryAddress,
		order.SpecialInstructions,
		string(order.PaymentStatus),
		nullString(order.PaymentID),
		nullString(order.ProviderOrderID),
		order.TotalAmount.Decimal().String(),
		order.CreatedAt.UnixNano())
	if insertErr != nil {
		if isUniqueViolation(insertErr) {
			return ErrDuplicateOrder
		}
		return fmt.Errorf("insert order: %w", insertErr)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO outbox_events (id, aggregate_id, event_type, payload, created_at) VALUES (?, ?, ?, ?, ?)`,
		uuid.New().String(), order.ID.String(), domain.EventTypeOrderPlaced, string(payload), time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit order: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetOrderByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = ?`

	order, err := scanSQLiteOrder(r.db.QueryRowContext(ctx, query, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order by id: %w", err)
	}
	return order, nil
}

func (r *SQLiteRepository) ListOrdersByUserID(ctx context.Context, userID string) ([]*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE user_id = ? ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query orders by user id: %w", err)
	}
	defer rows.Close()

	orders := []*domain.Order{}
	for rows.Next() {
		order, err := scanSQLiteOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return orders, nil
}

func (r *SQLiteRepository) GetUnprocessedEvents(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, aggregate_id, event_type, payload, created_at
		 FROM outbox_events WHERE processed = 0 ORDER BY created_at, rowid LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query outbox events: %w", err)
	}
	defer rows.Close()

	var events []*domain.OutboxEvent
	for rows.Next() {
		var (
			e       domain.OutboxEvent
			id      string
			payload string
			created int64
		)
		if err := rows.Scan(&id, &e.AggregateID, &e.EventType, &payload, &created); err != nil {
			return nil, fmt.Errorf("scan outbox event: %w", err)
		}
		if e.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parse outbox event id: %w", err)
		}
		e.Payload = []byte(payload)
		e.CreatedAt = time.Unix(0, created).UTC()
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return events, nil
}

func (r *SQLiteRepository) MarkEventAsProcessed(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE outbox_events SET processed = 1, processed_at = ? WHERE id = ?`,
		time.Now().UnixNano(), id.String())
	if err != nil {
		return fmt.Errorf("mark outbox event processed: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
		sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}

func scanSQLiteOrder(row rowScanner) (*domain.Order, error) {
	var (
		order         domain.Order
		id            string
		itemsJSON     string
		status        string
		paymentID     sql.NullString
		providerOrder sql.NullString
		total         string
		created       int64
	)
	err := row.Scan(
		&id,
		&order.UserID,
		&order.RestaurantID,
		&itemsJSON,
		&order.DeliveryAddress,
		&order.SpecialInstructions,
		&status,
		&paymentID,
		&providerOrder,
		&total,
		&created,
	)
	if err != nil {
		return nil, err
	}

	if order.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parse order id: %w", err)
	}
	if err := json.Unmarshal([]byte(itemsJSON), &order.Items); err != nil {
		return nil, fmt.Errorf("unmarshal order items: %w", err)
	}
	amount, err := decimal.NewFromString(total)
	if err != nil {
		return nil, fmt.Errorf("parse total amount: %w", err)
	}
	order.PaymentStatus = domain.PaymentStatus(status)
	order.PaymentID = paymentID.String
	order.ProviderOrderID = providerOrder.String
	order.TotalAmount = money.Major(amount)
	order.CreatedAt = time.Unix(0, created).UTC()
	return &order, nil
}
