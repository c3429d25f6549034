package mongorepo

import (
	"context"
	"time"

	"github.com/Skotchmaster/parts_market/pkg/logging"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (s *Store) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	l := logging.FromContext(ctx)

	orderIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "idempotencyKey", Value: 1}},
			Options: options.Index().SetName("user_idempotency_unique").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "status", Value: 1}},
			Options: options.Index().SetName("user_status"),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("status_created"),
		},
		{
			Keys: bson.D{{Key: "createdAt", Value: 1}},
			Options: options.Index().
				SetName("uncleared_created").
				SetPartialFilterExpression(bson.M{"cartCleared": false}),
		},
	}

	names, err := s.orders().Indexes().CreateMany(ctx, orderIndexes)
	if err != nil {
		l.Error("ensure_indexes_error", "collection", ordersCollection, "error", err)
		return err
	}
	l.Info("indexes ensured", "collection", ordersCollection, "indexes", names)
	return nil
}
