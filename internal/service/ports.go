package service

import (
	"context"
	"time"

	"github.com/Skotchmaster/parts_market/internal/models"
	"github.com/Skotchmaster/parts_market/internal/notify"
)

type CatalogReader interface {
	GetPart(ctx context.Context, id string) (models.Part, error)
}

type CartStore interface {
	GetCart(ctx context.Context, userID string) (models.Cart, error)
	SaveCart(ctx context.Context, cart models.Cart, expected int64) (models.Cart, error)
	ClearCartIfVersion(ctx context.Context, userID string, version int64) (bool, error)
}

type OrderStore interface {
	PlaceOrder(ctx context.Context, order *models.Order, cartVersion int64) error
	GetOrder(ctx context.Context, id string) (models.Order, error)
	GetOrderByKey(ctx context.Context, userID, key string) (models.Order, error)
	ListOrders(ctx context.Context, f models.OrderFilter) ([]models.Order, int64, error)
	UpdateOrder(ctx context.Context, order models.Order, expected int64) (models.Order, error)
	HasPendingOrders(ctx context.Context, userID string) (bool, error)
	ListUncleared(ctx context.Context, before time.Time, limit int) ([]models.Order, error)
	MarkCartCleared(ctx context.Context, orderID string) error
}

type Publisher interface {
	Publish(ctx context.Context, ev notify.Event) error
}

type Subscriber interface {
	Subscribe(ctx context.Context, userID string) <-chan notify.Event
}

type Actor struct {
	UserID string
	Role   string
	Name   string
	Email  string
}

func (a Actor) IsAdmin() bool {
	return a.Role == "admin"
}
