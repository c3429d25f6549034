package repo

import (
	"context"

	"github.com/Skotchmaster/parts_market/internal/models"
)

func (r *GormRepo) GetPart(ctx context.Context, id string) (models.Part, error) {
	var part models.Part
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&part).Error; err != nil {
		return models.Part{}, notFound(err)
	}
	return part, nil
}

func (r *GormRepo) UpsertPart(ctx context.Context, part models.Part) error {
	return r.DB.WithContext(ctx).Save(&part).Error
}
