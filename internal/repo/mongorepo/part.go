package mongorepo

import (
	"context"
	"errors"

	"github.com/Skotchmaster/parts_market/internal/models"
	"github.com/Skotchmaster/parts_market/internal/repo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func (s *Store) GetPart(ctx context.Context, id string) (models.Part, error) {
	var part models.Part
	err := s.parts().FindOne(ctx, bson.M{"_id": id}).Decode(&part)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Part{}, repo.ErrNotFound
	}
	if err != nil {
		return models.Part{}, err
	}
	return part, nil
}
