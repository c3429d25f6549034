package repo

import (
	"errors"
	"strings"

	"github.com/Skotchmaster/parts_market/internal/models"
	"gorm.io/gorm"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrStaleVersion = errors.New("stale version")
	ErrDuplicate    = errors.New("duplicate key")
	// ErrCartNotCleared means the order was stored but the originating cart
	// could not be cleared. The order stays flagged for reconciliation.
	ErrCartNotCleared = errors.New("order stored, cart not cleared")
)

type GormRepo struct {
	DB *gorm.DB
}

func (r *GormRepo) Migrate() error {
	return r.DB.AutoMigrate(&models.Cart{}, &models.Order{}, &models.Part{})
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "sqlstate 23505")
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
