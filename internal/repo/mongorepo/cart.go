package mongorepo

import (
	"context"
	"errors"
	"time"

	"github.com/Skotchmaster/parts_market/internal/models"
	"github.com/Skotchmaster/parts_market/internal/repo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func (s *Store) GetCart(ctx context.Context, userID string) (models.Cart, error) {
	var cart models.Cart
	err := s.carts().FindOne(ctx, bson.M{"_id": userID}).Decode(&cart)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.EmptyCart(userID), nil
	}
	if err != nil {
		return models.Cart{}, err
	}
	if cart.Items == nil {
		cart.Items = models.LineItems{}
	}
	return cart, nil
}

func (s *Store) SaveCart(ctx context.Context, cart models.Cart, expected int64) (models.Cart, error) {
	next := models.Cart{
		UserID:    cart.UserID,
		Items:     cart.Items.Clone(),
		Version:   expected + 1,
		UpdatedAt: time.Now().UTC(),
	}

	if expected == 0 {
		if _, err := s.carts().InsertOne(ctx, newCartDoc(next)); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return models.Cart{}, repo.ErrStaleVersion
			}
			return models.Cart{}, err
		}
		return next, nil
	}

	res, err := s.carts().UpdateOne(ctx, versionFilter(cart.UserID, expected), cartSet(next))
	if err != nil {
		return models.Cart{}, err
	}
	if res.MatchedCount == 0 {
		return models.Cart{}, repo.ErrStaleVersion
	}
	return next, nil
}

func (s *Store) ClearCartIfVersion(ctx context.Context, userID string, version int64) (bool, error) {
	res, err := s.carts().UpdateOne(ctx, versionFilter(userID, version), cartSet(models.Cart{
		Items:     models.LineItems{},
		Version:   version + 1,
		UpdatedAt: time.Now().UTC(),
	}))
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}

// cartDoc is the stored cart shape. The owner is both the key and a plain
// userId field.
type cartDoc struct {
	ID        string           `bson:"_id"`
	UserID    string           `bson:"userId"`
	Items     models.LineItems `bson:"items"`
	Version   int64            `bson:"version"`
	UpdatedAt time.Time        `bson:"updatedAt"`
}

func newCartDoc(c models.Cart) cartDoc {
	return cartDoc{ID: c.UserID, UserID: c.UserID, Items: c.Items, Version: c.Version, UpdatedAt: c.UpdatedAt}
}

func versionFilter(userID string, version int64) bson.M {
	return bson.M{"_id": userID, "version": version}
}

func cartSet(c models.Cart) bson.M {
	return bson.M{"$set": bson.M{
		"items":     c.Items,
		"version":   c.Version,
		"updatedAt": c.UpdatedAt,
	}}
}
