package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Skotchmaster/parts_market/internal/models"
	"github.com/Skotchmaster/parts_market/internal/notify"
	"github.com/Skotchmaster/parts_market/internal/repo"
	"github.com/Skotchmaster/parts_market/internal/util"
	"github.com/Skotchmaster/parts_market/pkg/logging"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const defaultStockCheckConcurrency = 4

type OrderService struct {
	Orders  OrderStore
	Carts   CartStore
	Catalog CatalogReader
	Events  Publisher
	Hub     Subscriber

	WriteTimeout          time.Duration
	StockCheckConcurrency int
}

// PlaceOrder converts the actor's cart into a pending order and clears the
// cart. Retrying with the same idempotency key returns the first order.
// On ErrConsistency the returned order is valid and stored.
func (s *OrderService) PlaceOrder(ctx context.Context, actor Actor, idempotencyKey string) (models.Order, error) {
	if actor.UserID == "" {
		return models.Order{}, fmt.Errorf("user required: %w", ErrAuth)
	}
	l := logging.FromContext(ctx).With("user_id", actor.UserID)

	key := strings.TrimSpace(idempotencyKey)
	if key == "" {
		key = uuid.NewString()
	}
	if len(key) > 128 {
		return models.Order{}, fmt.Errorf("idempotency key too long: %w", ErrValidation)
	}

	ctx, cancel := withWriteTimeout(ctx, s.WriteTimeout)
	defer cancel()

	existing, err := s.Orders.GetOrderByKey(ctx, actor.UserID, key)
	if err == nil {
		l.Info("place_order_replayed", "order_id", existing.ID)
		return existing, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return models.Order{}, storeErr("lookup order", err)
	}

	cart, err := s.Carts.GetCart(ctx, actor.UserID)
	if err != nil {
		return models.Order{}, storeErr("get cart", err)
	}
	if len(cart.Items) == 0 {
		return models.Order{}, fmt.Errorf("cart is empty: %w", ErrValidation)
	}
	shops := cart.Items.ShopIDs()
	if len(shops) > 1 {
		return models.Order{}, fmt.Errorf("cart holds parts from %d shops, checkout one shop at a time: %w", len(shops), ErrValidation)
	}

	if err := s.checkStock(ctx, cart.Items); err != nil {
		return models.Order{}, err
	}

	name := strings.TrimSpace(actor.Name)
	if name == "" {
		name = models.DefaultCustomerName
	}
	order := models.Order{
		ID:             uuid.NewString(),
		UserID:         actor.UserID,
		IdempotencyKey: key,
		UserName:       name,
		UserEmail:      actor.Email,
		ShopID:         shops[0],
		Items:          cart.Items.Clone(),
		Subtotal:       cart.Items.Subtotal(),
		Status:         models.OrderStatusPending,
	}

	err = s.Orders.PlaceOrder(ctx, &order, cart.Version)
	switch {
	case err == nil:
	case errors.Is(err, repo.ErrDuplicate):
		prev, gerr := s.Orders.GetOrderByKey(ctx, actor.UserID, key)
		if gerr != nil {
			return models.Order{}, storeErr("lookup order", gerr)
		}
		return prev, nil
	case errors.Is(err, repo.ErrStaleVersion):
		return models.Order{}, fmt.Errorf("cart changed during checkout: %w", ErrConflict)
	case errors.Is(err, repo.ErrCartNotCleared):
		l.Error("place_order_cart_not_cleared", "order_id", order.ID, "error", err)
		publish(ctx, s.Events, notify.OrderEvent(notify.OrderPlaced, order))
		return order, fmt.Errorf("order %s stored, cart pending cleanup: %w", order.ID, ErrConsistency)
	default:
		return models.Order{}, storeErr("place order", err)
	}

	l.Info("order_placed", "order_id", order.ID, "subtotal", order.Subtotal)
	publish(ctx, s.Events, notify.CartEvent(actor.UserID, models.CartSummary{}, cart.Version+1))
	publish(ctx, s.Events, notify.OrderEvent(notify.OrderPlaced, order))
	return order, nil
}

// checkStock re-reads every line from the catalog concurrently. Prices are
// left as frozen in the cart.
func (s *OrderService) checkStock(ctx context.Context, items models.LineItems) error {
	limit := s.StockCheckConcurrency
	if limit <= 0 {
		limit = defaultStockCheckConcurrency
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, it := range items {
		it := it
		g.Go(func() error {
			part, err := s.Catalog.GetPart(gctx, it.PartID)
			if errors.Is(err, repo.ErrNotFound) {
				return &StockError{PartID: it.PartID, Available: 0, Requested: it.Qty}
			}
			if err != nil {
				return storeErr("catalog lookup", err)
			}
			if part.Stock < it.Qty {
				return &StockError{PartID: it.PartID, Available: part.Stock, Requested: it.Qty}
			}
			return nil
		})
	}
	return g.Wait()
}

func (s *OrderService) GetOrder(ctx context.Context, actor Actor, id string) (models.Order, error) {
	if actor.UserID == "" {
		return models.Order{}, fmt.Errorf("user required: %w", ErrAuth)
	}
	ctx, cancel := withWriteTimeout(ctx, s.WriteTimeout)
	defer cancel()

	order, err := s.Orders.GetOrder(ctx, id)
	if err != nil {
		return models.Order{}, storeErr("get order", err)
	}
	if order.UserID != actor.UserID && !actor.IsAdmin() {
		return models.Order{}, fmt.Errorf("order %s: %w", id, ErrNotFound)
	}
	return order, nil
}

type ListQuery struct {
	Status   models.OrderStatus
	Page     int
	Size     int
	AllUsers bool
}

type OrderPage struct {
	Items []models.Order `json:"items"`
	Total int64          `json:"total"`
	Page  int            `json:"page"`
	Size  int            `json:"size"`
}

// ListOrders lists the actor's own orders. Admins may set AllUsers.
func (s *OrderService) ListOrders(ctx context.Context, actor Actor, q ListQuery) (OrderPage, error) {
	if actor.UserID == "" {
		return OrderPage{}, fmt.Errorf("user required: %w", ErrAuth)
	}
	if q.Status != "" && !q.Status.Valid() {
		return OrderPage{}, fmt.Errorf("unknown status %q: %w", q.Status, ErrValidation)
	}

	f := models.OrderFilter{UserID: actor.UserID, Status: q.Status}
	if q.AllUsers {
		if !actor.IsAdmin() {
			return OrderPage{}, ErrForbidden
		}
		f.UserID = ""
	}

	page := q.Page
	if page < 1 {
		page = 1
	}
	f.Offset, f.Limit = util.Calculate(page, q.Size)

	ctx, cancel := withWriteTimeout(ctx, s.WriteTimeout)
	defer cancel()

	orders, total, err := s.Orders.ListOrders(ctx, f)
	if err != nil {
		return OrderPage{}, storeErr("list orders", err)
	}
	return OrderPage{Items: orders, Total: total, Page: page, Size: f.Limit}, nil
}

func (s *OrderService) HasPendingOrders(ctx context.Context, userID string) (bool, error) {
	ctx, cancel := withWriteTimeout(ctx, s.WriteTimeout)
	defer cancel()

	pending, err := s.Orders.HasPendingOrders(ctx, userID)
	if err != nil {
		return false, storeErr("pending orders", err)
	}
	return pending, nil
}

// SubscribePendingOrders emits whether the user has any pending order, first
// the current value and then again after each order change.
func (s *OrderService) SubscribePendingOrders(ctx context.Context, userID string) (<-chan bool, error) {
	if s.Hub == nil {
		return nil, errors.New("order subscriptions are not configured")
	}
	events := s.Hub.Subscribe(ctx, userID)

	initial, err := s.HasPendingOrders(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make(chan bool, 1)
	out <- initial
	go func() {
		defer close(out)
		for ev := range events {
			if !ev.IsOrderEvent() {
				continue
			}
			pending, err := s.HasPendingOrders(ctx, userID)
			if err != nil {
				logging.FromContext(ctx).Warn("pending_orders_refresh_error", "user_id", userID, "error", err)
				continue
			}
			offer(out, pending)
		}
	}()
	return out, nil
}
