package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

const mongoPingTimeout = 5 * time.Second

// ConnectMongoDB opens the order database. Orders are written with majority
// acknowledgement; a client whose first ping fails is disconnected.
func ConnectMongoDB(ctx context.Context, uri, database string) (*mongo.Database, error) {
	clientOpts := options.Client().
		ApplyURI(uri).
		SetAppName("food-api").
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(mongoPingTimeout).
		SetWriteConcern(writeconcern.Majority()).
		SetMaxPoolSize(50)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, mongoPingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		discCtx, discCancel := context.WithTimeout(context.Background(), mongoPingTimeout)
		defer discCancel()
		_ = client.Disconnect(discCtx)
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	return client.Database(database), nil
}
