package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Skotchmaster/parts_market/internal/models"
	"github.com/Skotchmaster/parts_market/internal/notify"
	"github.com/Skotchmaster/parts_market/pkg/logging"
)

// CheckTransition allows forward moves along
// pending -> processing -> shipped -> delivered (skipping ahead is fine) and
// cancellation from any non-terminal status.
func CheckTransition(from, to models.OrderStatus) error {
	if !to.Valid() {
		return fmt.Errorf("unknown status %q: %w", to, ErrValidation)
	}
	if from.Terminal() {
		return fmt.Errorf("order is %s: %w", from, ErrTransition)
	}
	if to == models.OrderStatusCancelled {
		return nil
	}
	fr, _ := from.Rank()
	tr, _ := to.Rank()
	if tr <= fr {
		return fmt.Errorf("%s -> %s: %w", from, to, ErrTransition)
	}
	return nil
}

// UpdateStatus is the admin status change.
func (s *OrderService) UpdateStatus(ctx context.Context, actor Actor, orderID string, status models.OrderStatus) (models.Order, error) {
	if actor.UserID == "" {
		return models.Order{}, fmt.Errorf("user required: %w", ErrAuth)
	}
	if !actor.IsAdmin() {
		return models.Order{}, ErrForbidden
	}
	if !status.Valid() {
		return models.Order{}, fmt.Errorf("unknown status %q: %w", status, ErrValidation)
	}

	updated, err := s.updateOrder(ctx, orderID, func(o *models.Order) error {
		if err := CheckTransition(o.Status, status); err != nil {
			return err
		}
		o.Status = status
		return nil
	})
	if err != nil {
		return models.Order{}, err
	}

	logging.FromContext(ctx).Info("order_status_changed", "order_id", orderID, "status", status, "admin_id", actor.UserID)
	evType := notify.OrderStatusChanged
	if status == models.OrderStatusCancelled {
		evType = notify.OrderCancelled
	}
	publish(ctx, s.Events, notify.OrderEvent(evType, updated))
	return updated, nil
}

type QtyChange struct {
	PartID string
	Qty    int
}

// OrderPatch holds the buyer-editable order fields; nil means unchanged.
type OrderPatch struct {
	UserName  *string
	UserPhone *string
	Items     []QtyChange
}

func (p OrderPatch) empty() bool {
	return p.UserName == nil && p.UserPhone == nil && len(p.Items) == 0
}

// EditOrder lets the owner change contact details and line quantities while
// the order is not yet delivered or cancelled. Subtotal is recomputed from
// the frozen line prices.
func (s *OrderService) EditOrder(ctx context.Context, actor Actor, orderID string, patch OrderPatch) (models.Order, error) {
	if actor.UserID == "" {
		return models.Order{}, fmt.Errorf("user required: %w", ErrAuth)
	}
	if patch.empty() {
		return models.Order{}, fmt.Errorf("nothing to update: %w", ErrValidation)
	}

	updated, err := s.updateOrder(ctx, orderID, func(o *models.Order) error {
		if o.UserID != actor.UserID {
			return fmt.Errorf("order %s: %w", orderID, ErrNotFound)
		}
		if o.Status.Terminal() {
			return fmt.Errorf("order is %s: %w", o.Status, ErrTransition)
		}
		return applyPatch(o, patch)
	})
	if err != nil {
		return models.Order{}, err
	}

	publish(ctx, s.Events, notify.OrderEvent(notify.OrderEdited, updated))
	return updated, nil
}

func applyPatch(o *models.Order, p OrderPatch) error {
	if p.UserName != nil {
		name := strings.TrimSpace(*p.UserName)
		if name == "" {
			return fmt.Errorf("userName must not be empty: %w", ErrValidation)
		}
		o.UserName = name
	}
	if p.UserPhone != nil {
		o.UserPhone = strings.TrimSpace(*p.UserPhone)
	}

	items := o.Items.Clone()
	for _, ch := range p.Items {
		if ch.Qty < 1 {
			return fmt.Errorf("qty for %s must be >= 1: %w", ch.PartID, ErrValidation)
		}
		i := items.Find(ch.PartID)
		if i < 0 {
			return fmt.Errorf("part %s is not in the order: %w", ch.PartID, ErrValidation)
		}
		items[i].Qty = ch.Qty
	}
	o.Items = items
	o.Subtotal = items.Subtotal()
	return nil
}

// CancelOrder tags the order cancelled; the record is kept.
func (s *OrderService) CancelOrder(ctx context.Context, actor Actor, orderID string) (models.Order, error) {
	if actor.UserID == "" {
		return models.Order{}, fmt.Errorf("user required: %w", ErrAuth)
	}

	updated, err := s.updateOrder(ctx, orderID, func(o *models.Order) error {
		if o.UserID != actor.UserID && !actor.IsAdmin() {
			return fmt.Errorf("order %s: %w", orderID, ErrNotFound)
		}
		if err := CheckTransition(o.Status, models.OrderStatusCancelled); err != nil {
			return err
		}
		o.Status = models.OrderStatusCancelled
		return nil
	})
	if err != nil {
		return models.Order{}, err
	}

	publish(ctx, s.Events, notify.OrderEvent(notify.OrderCancelled, updated))
	return updated, nil
}

func (s *OrderService) updateOrder(ctx context.Context, orderID string, fn func(o *models.Order) error) (models.Order, error) {
	ctx, cancel := withWriteTimeout(ctx, s.WriteTimeout)
	defer cancel()

	order, err := s.Orders.GetOrder(ctx, orderID)
	if err != nil {
		return models.Order{}, storeErr("get order", err)
	}

	next := order.Clone()
	if err := fn(&next); err != nil {
		return models.Order{}, err
	}

	updated, err := s.Orders.UpdateOrder(ctx, next, order.Version)
	if err != nil {
		return models.Order{}, storeErr("update order", err)
	}
	return updated, nil
}
