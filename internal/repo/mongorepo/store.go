// Package mongorepo keeps carts, orders and parts as documents. Placement
// runs as a saga instead of a multi-document transaction so it also works
// on standalone servers.
package mongorepo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	cartsCollection  = "carts"
	ordersCollection = "orders"
	partsCollection  = "parts"
)

type Store struct {
	DB *mongo.Database
}

func Connect(ctx context.Context, uri, dbName string) (*mongo.Client, *Store, error) {
	if uri == "" {
		return nil, nil, fmt.Errorf("MONGO_URI is empty")
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, &Store{DB: client.Database(dbName)}, nil
}

func (s *Store) carts() *mongo.Collection  { return s.DB.Collection(cartsCollection) }
func (s *Store) orders() *mongo.Collection { return s.DB.Collection(ordersCollection) }
func (s *Store) parts() *mongo.Collection  { return s.DB.Collection(partsCollection) }

func (s *Store) Ping(ctx context.Context) error {
	return s.DB.Client().Ping(ctx, readpref.Primary())
}
