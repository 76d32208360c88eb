package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_food/internal/money"
	"github.com/fjod/go_food/internal/orders/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// The order.placed event lives inside the order document (published=false)
// so that order and event are written by a single insert.
type orderDocument struct {
	ID                  string               `bson:"_id"`
	UserID              string               `bson:"user_id"`
	RestaurantID        string               `bson:"restaurant_id"`
	Items               []lineItemDocument   `bson:"items"`
	DeliveryAddress     string               `bson:"delivery_address"`
	SpecialInstructions string               `bson:"special_instructions,omitempty"`
	PaymentStatus       string               `bson:"payment_status"`
	PaymentID           string               `bson:"payment_id,omitempty"`
	ProviderOrderID     string               `bson:"provider_order_id,omitempty"`
	TotalAmount         primitive.Decimal128 `bson:"total_amount"`
	CreatedAt           time.Time            `bson:"created_at"`
	Published           bool                 `bson:"published"`
	EventPayload        []byte               `bson:"event_payload,omitempty"`
}

type lineItemDocument struct {
	FoodItemID string               `bson:"food_item_id"`
	Name       string               `bson:"name,omitempty"`
	Quantity   int                  `bson:"quantity"`
	Price      primitive.Decimal128 `bson:"price"`
}

type MongoRepository struct {
	collection *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{
		collection: db.Collection("orders"),
	}
}

func (m *MongoRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "provider_order_id", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"provider_order_id": bson.M{"$exists": true}}),
		},
		{
			Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
		},
		{
			Keys:    bson.D{{Key: "published", Value: 1}},
			Options: options.Index().SetPartialFilterExpression(bson.M{"published": false}),
		},
	}

	_, err := m.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}

func (m *MongoRepository) CreateOrder(ctx context.Context, order *domain.Order) error {
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}

	doc, err := toDocument(order)
	if err != nil {
		return err
	}

	if _, err := m.collection.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateOrder
		}
		return fmt.Errorf("failed to insert order: %w", err)
	}
	return nil
}

func (m *MongoRepository) GetOrderByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	var doc orderDocument
	err := m.collection.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return fromDocument(&doc)
}

func (m *MongoRepository) ListOrdersByUserID(ctx context.Context, userID string) ([]*domain.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := m.collection.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer cur.Close(ctx)

	orders := []*domain.Order{}
	for cur.Next(ctx) {
		var doc orderDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode order: %w", err)
		}
		order, err := fromDocument(&doc)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return orders, nil
}

func (m *MongoRepository) GetUnprocessedEvents(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetLimit(int64(limit)).
		SetProjection(bson.M{"_id": 1, "event_payload": 1, "created_at": 1})
	cur, err := m.collection.Find(ctx, bson.M{"published": false}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query unpublished orders: %w", err)
	}
	defer cur.Close(ctx)

	var events []*domain.OutboxEvent
	for cur.Next(ctx) {
		var doc orderDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode order: %w", err)
		}
		id, err := uuid.Parse(doc.ID)
		if err != nil {
			return nil, fmt.Errorf("parse order id %q: %w", doc.ID, err)
		}
		events = append(events, &domain.OutboxEvent{
			ID:          id,
			AggregateID: doc.ID,
			EventType:   domain.EventTypeOrderPlaced,
			Payload:     doc.EventPayload,
			CreatedAt:   doc.CreatedAt,
		})
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return events, nil
}

// MarkEventAsProcessed takes the order id: events are keyed by their order.
func (m *MongoRepository) MarkEventAsProcessed(ctx context.Context, id uuid.UUID) error {
	_, err := m.collection.UpdateOne(ctx,
		bson.M{"_id": id.String()},
		bson.M{"$set": bson.M{"published": true}, "$unset": bson.M{"event_payload": ""}})
	if err != nil {
		return fmt.Errorf("failed to mark order published: %w", err)
	}
	return nil
}

func (m *MongoRepository) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.collection.Database().Client().Disconnect(ctx)
}

func toDocument(o *domain.Order) (*orderDocument, error) {
	total, err := toDecimal128(o.TotalAmount)
	if err != nil {
		return nil, err
	}
	payload, err := marshalEvent(o)
	if err != nil {
		return nil, err
	}

	items := make([]lineItemDocument, 0, len(o.Items))
	for _, it := range o.Items {
		price, err := toDecimal128(it.Price)
		if err != nil {
			return nil, err
		}
		items = append(items, lineItemDocument{
			FoodItemID: it.FoodItemID,
			Name:       it.Name,
			Quantity:   it.Quantity,
			Price:      price,
		})
	}

	return &orderDocument{
		ID:                  o.ID.String(),
		UserID:              o.UserID,
		RestaurantID:        o.RestaurantID,
		Items:               items,
		DeliveryAddress:     o.DeliveryAddress,
		SpecialInstructions: o.SpecialInstructions,
		PaymentStatus:       string(o.PaymentStatus),
		PaymentID:           o.PaymentID,
		ProviderOrderID:     o.ProviderOrderID,
		TotalAmount:         total,
		CreatedAt:           o.CreatedAt,
		EventPayload:        payload,
	}, nil
}

func fromDocument(doc *orderDocument) (*domain.Order, error) {
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return nil, fmt.Errorf("parse order id %q: %w", doc.ID, err)
	}
	total, err := fromDecimal128(doc.TotalAmount)
	if err != nil {
		return nil, err
	}

	items := make([]domain.LineItem, 0, len(doc.Items))
	for _, it := range doc.Items {
		price, err := fromDecimal128(it.Price)
		if err != nil {
			return nil, err
		}
		items = append(items, domain.LineItem{
			FoodItemID: it.FoodItemID,
			Name:       it.Name,
			Quantity:   it.Quantity,
			Price:      price,
		})
	}

	return &domain.Order{
		ID:                  id,
		UserID:              doc.UserID,
		RestaurantID:        doc.RestaurantID,
		Items:               items,
		DeliveryAddress:     doc.DeliveryAddress,
		SpecialInstructions: doc.SpecialInstructions,
		PaymentStatus:       domain.PaymentStatus(doc.PaymentStatus),
		PaymentID:           doc.PaymentID,
		ProviderOrderID:     doc.ProviderOrderID,
		TotalAmount:         total,
		CreatedAt:           doc.CreatedAt.UTC(),
	}, nil
}

func toDecimal128(a money.Amount) (primitive.Decimal128, error) {
	d, err := primitive.ParseDecimal128(a.Decimal().String())
	if err != nil {
		return primitive.Decimal128{}, fmt.Errorf("encode amount %s: %w", a, err)
	}
	return d, nil
}

func fromDecimal128(d primitive.Decimal128) (money.Amount, error) {
	v, err := decimal.NewFromString(d.String())
	if err != nil {
		return money.Amount{}, fmt.Errorf("decode amount %s: %w", d, err)
	}
	return money.Major(v), nil
}
