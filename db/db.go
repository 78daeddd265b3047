// Package db establishes the MongoDB connection used by the persistence
// layer. It fills the same role the database-pool constructor does in the
// rest of the application's wiring: main calls Connect once, hands the
// database to the stores, and defers Disconnect.
package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/user/pokesphere-go/config"
)

// connectTimeout bounds the initial connect and ping.
const connectTimeout = 10 * time.Second

// Connect opens a MongoDB client, verifies the connection with a ping, and
// returns the application database.
func Connect(ctx context.Context, cfg *config.MongoConfig) (*mongo.Client, *mongo.Database, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to mongodb: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		// Best-effort cleanup of the half-open client.
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("pinging mongodb: %w", err)
	}

	return client, client.Database(cfg.DBName), nil
}

// Disconnect closes the client with a bounded timeout.
func Disconnect(client *mongo.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	return client.Disconnect(ctx)
}
