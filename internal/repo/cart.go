package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Skotchmaster/parts_market/internal/models"
	"gorm.io/gorm"
)

// GetCart returns an empty cart at version 0 when the user has none stored.
func (r *GormRepo) GetCart(ctx context.Context, userID string) (models.Cart, error) {
	var cart models.Cart
	err := r.DB.WithContext(ctx).Where("user_id = ?", userID).First(&cart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
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

// SaveCart writes cart only if the stored version still equals expected and
// returns the cart with its new version.
func (r *GormRepo) SaveCart(ctx context.Context, cart models.Cart, expected int64) (models.Cart, error) {
	next := models.Cart{
		UserID:    cart.UserID,
		Items:     cart.Items.Clone(),
		Version:   expected + 1,
		UpdatedAt: time.Now().UTC(),
	}

	if expected == 0 {
		if err := r.DB.WithContext(ctx).Create(&next).Error; err != nil {
			if isUniqueViolation(err) {
				return models.Cart{}, ErrStaleVersion
			}
			return models.Cart{}, err
		}
		return next, nil
	}

	res := r.DB.WithContext(ctx).
		Model(&models.Cart{UserID: cart.UserID}).
		Where("version = ?", expected).
		Select("Items", "Version", "UpdatedAt").
		Updates(&next)
	if res.Error != nil {
		return models.Cart{}, res.Error
	}
	if res.RowsAffected == 0 {
		return models.Cart{}, ErrStaleVersion
	}
	return next, nil
}

// ClearCartIfVersion empties the cart if it is still at version. It reports
// whether anything was cleared.
func (r *GormRepo) ClearCartIfVersion(ctx context.Context, userID string, version int64) (bool, error) {
	return clearCart(r.DB.WithContext(ctx), userID, version)
}

func clearCart(tx *gorm.DB, userID string, version int64) (bool, error) {
	res := tx.Model(&models.Cart{UserID: userID}).
		Where("version = ?", version).
		Select("Items", "Version", "UpdatedAt").
		Updates(&models.Cart{
			Items:     models.LineItems{},
			Version:   version + 1,
			UpdatedAt: time.Now().UTC(),
		})
	if res.Error != nil {
		return false, fmt.Errorf("clear cart: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}
