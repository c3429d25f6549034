package mongorepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Skotchmaster/parts_market/internal/models"
	"github.com/Skotchmaster/parts_market/internal/repo"
	"github.com/Skotchmaster/parts_market/pkg/logging"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PlaceOrder runs insert order -> clear cart -> mark order cleared.
// A cart that moved past cartVersion undoes the insert. A failed clear keeps
// the order with cartCleared=false and reports repo.ErrCartNotCleared.
func (s *Store) PlaceOrder(ctx context.Context, order *models.Order, cartVersion int64) error {
	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	order.CreatedAt, order.UpdatedAt = now, now
	order.CartVersion = cartVersion
	order.CartCleared = false
	if order.Version == 0 {
		order.Version = 1
	}

	if _, err := s.orders().InsertOne(ctx, order); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repo.ErrDuplicate
		}
		return err
	}

	cleared, err := s.ClearCartIfVersion(ctx, order.UserID, cartVersion)
	if err != nil {
		return fmt.Errorf("%w: %v", repo.ErrCartNotCleared, err)
	}
	if !cleared {
		if _, derr := s.orders().DeleteOne(context.WithoutCancel(ctx), bson.M{"_id": order.ID}); derr != nil {
			return fmt.Errorf("%w: compensation failed: %v", repo.ErrCartNotCleared, derr)
		}
		return repo.ErrStaleVersion
	}

	if err := s.MarkCartCleared(ctx, order.ID); err != nil {
		// the cart is empty; the sweep will only flip the flag
		logging.FromContext(ctx).Warn("mark_cart_cleared_error", "order_id", order.ID, "error", err)
		return nil
	}
	order.CartCleared = true
	return nil
}

func (s *Store) GetOrder(ctx context.Context, id string) (models.Order, error) {
	return s.findOrder(ctx, bson.M{"_id": id})
}

func (s *Store) GetOrderByKey(ctx context.Context, userID, key string) (models.Order, error) {
	return s.findOrder(ctx, bson.M{"userId": userID, "idempotencyKey": key})
}

func (s *Store) findOrder(ctx context.Context, filter bson.M) (models.Order, error) {
	var order models.Order
	err := s.orders().FindOne(ctx, filter).Decode(&order)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Order{}, repo.ErrNotFound
	}
	if err != nil {
		return models.Order{}, err
	}
	return order, nil
}

func (s *Store) ListOrders(ctx context.Context, f models.OrderFilter) ([]models.Order, int64, error) {
	filter := orderFilter(f)

	total, err := s.orders().CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}})
	if f.Limit > 0 {
		opts.SetSkip(int64(f.Offset)).SetLimit(int64(f.Limit))
	}

	cur, err := s.orders().Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	orders := make([]models.Order, 0)
	if err := cur.All(ctx, &orders); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func orderFilter(f models.OrderFilter) bson.M {
	filter := bson.M{}
	if f.UserID != "" {
		filter["userId"] = f.UserID
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	return filter
}

func (s *Store) UpdateOrder(ctx context.Context, order models.Order, expected int64) (models.Order, error) {
	order.Version = expected + 1
	order.UpdatedAt = time.Now().UTC()

	res, err := s.orders().UpdateOne(ctx,
		bson.M{"_id": order.ID, "version": expected},
		bson.M{"$set": bson.M{
			"userName":  order.UserName,
			"userPhone": order.UserPhone,
			"items":     order.Items,
			"subtotal":  order.Subtotal,
			"status":    order.Status,
			"version":   order.Version,
			"updatedAt": order.UpdatedAt,
		}},
	)
	if err != nil {
		return models.Order{}, err
	}
	if res.MatchedCount == 0 {
		if _, gerr := s.GetOrder(ctx, order.ID); errors.Is(gerr, repo.ErrNotFound) {
			return models.Order{}, repo.ErrNotFound
		}
		return models.Order{}, repo.ErrStaleVersion
	}
	return order, nil
}

func (s *Store) HasPendingOrders(ctx context.Context, userID string) (bool, error) {
	n, err := s.orders().CountDocuments(ctx,
		bson.M{"userId": userID, "status": models.OrderStatusPending},
		options.Count().SetLimit(1),
	)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) ListUncleared(ctx context.Context, before time.Time, limit int) ([]models.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}).SetLimit(int64(limit))
	cur, err := s.orders().Find(ctx, bson.M{"cartCleared": false, "createdAt": bson.M{"$lt": before}}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	orders := make([]models.Order, 0)
	if err := cur.All(ctx, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *Store) MarkCartCleared(ctx context.Context, orderID string) error {
	res, err := s.orders().UpdateOne(ctx, bson.M{"_id": orderID}, bson.M{"$set": bson.M{"cartCleared": true}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return repo.ErrNotFound
	}
	return nil
}
