package repo

import (
	"context"
	"errors"
	"time"

	"github.com/Skotchmaster/parts_market/internal/models"
	"gorm.io/gorm"
)

// PlaceOrder inserts order and clears the originating cart in one
// transaction. The cart must still be at cartVersion.
func (r *GormRepo) PlaceOrder(ctx context.Context, order *models.Order, cartVersion int64) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&models.Order{}).
			Where("user_id = ? AND idempotency_key = ?", order.UserID, order.IdempotencyKey).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrDuplicate
		}

		order.CartVersion = cartVersion
		order.CartCleared = true
		if order.Version == 0 {
			order.Version = 1
		}
		if err := tx.Create(order).Error; err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicate
			}
			return err
		}

		cleared, err := clearCart(tx, order.UserID, cartVersion)
		if err != nil {
			return err
		}
		if !cleared {
			return ErrStaleVersion
		}
		return nil
	})
}

func (r *GormRepo) GetOrder(ctx context.Context, id string) (models.Order, error) {
	var order models.Order
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&order).Error; err != nil {
		return models.Order{}, notFound(err)
	}
	return order, nil
}

func (r *GormRepo) GetOrderByKey(ctx context.Context, userID, key string) (models.Order, error) {
	var order models.Order
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND idempotency_key = ?", userID, key).
		First(&order).Error
	if err != nil {
		return models.Order{}, notFound(err)
	}
	return order, nil
}

func (r *GormRepo) ListOrders(ctx context.Context, f models.OrderFilter) ([]models.Order, int64, error) {
	q := r.DB.WithContext(ctx).Model(&models.Order{})
	if f.UserID != "" {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	orders := make([]models.Order, 0)
	if f.Limit > 0 {
		q = q.Limit(f.Limit).Offset(f.Offset)
	}
	if err := q.Order("created_at DESC").Order("id").Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// UpdateOrder persists the mutable order fields if the stored version is
// still expected.
func (r *GormRepo) UpdateOrder(ctx context.Context, order models.Order, expected int64) (models.Order, error) {
	order.Version = expected + 1
	order.UpdatedAt = time.Now().UTC()

	res := r.DB.WithContext(ctx).
		Model(&models.Order{ID: order.ID}).
		Where("version = ?", expected).
		Select("UserName", "UserPhone", "Items", "Subtotal", "Status", "Version", "UpdatedAt").
		Updates(&order)
	if res.Error != nil {
		return models.Order{}, res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := r.GetOrder(ctx, order.ID); errors.Is(err, ErrNotFound) {
			return models.Order{}, ErrNotFound
		}
		return models.Order{}, ErrStaleVersion
	}
	return order, nil
}

func (r *GormRepo) HasPendingOrders(ctx context.Context, userID string) (bool, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.Order{}).
		Where("user_id = ? AND status = ?", userID, models.OrderStatusPending).
		Count(&n).Error
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *GormRepo) ListUncleared(ctx context.Context, before time.Time, limit int) ([]models.Order, error) {
	orders := make([]models.Order, 0)
	err := r.DB.WithContext(ctx).
		Where("cart_cleared = ? AND created_at < ?", false, before).
		Order("created_at").
		Limit(limit).
		Find(&orders).Error
	return orders, err
}

func (r *GormRepo) MarkCartCleared(ctx context.Context, orderID string) error {
	res := r.DB.WithContext(ctx).Model(&models.Order{ID: orderID}).Update("cart_cleared", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateOrderRecord stores an order without touching any cart. Used to seed
// orders and by tests that need an order left uncleared.
func (r *GormRepo) CreateOrderRecord(ctx context.Context, order *models.Order) error {
	if order.Version == 0 {
		order.Version = 1
	}
	if err := r.DB.WithContext(ctx).Create(order).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}
