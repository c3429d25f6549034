package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Skotchmaster/parts_market/internal/models"
	"github.com/Skotchmaster/parts_market/internal/notify"
	"github.com/Skotchmaster/parts_market/pkg/logging"
)

const defaultReconcileBatch = 100

// Reconciler finishes placements whose cart clear never landed. A cart that
// still sits at the version the order was placed from is emptied; a cart the
// user has changed since is left alone.
type Reconciler struct {
	Orders OrderStore
	Carts  CartStore
	Events Publisher

	Grace        time.Duration
	BatchSize    int
	WriteTimeout time.Duration
}

type ReconcileReport struct {
	Scanned      int `json:"scanned"`
	CartsCleared int `json:"cartsCleared"`
	Resolved     int `json:"resolved"`
	Failed       int `json:"failed"`
}

func (r *Reconciler) Sweep(ctx context.Context) (ReconcileReport, error) {
	l := logging.FromContext(ctx).With("component", "reconciler")

	batch := r.BatchSize
	if batch <= 0 {
		batch = defaultReconcileBatch
	}

	var rep ReconcileReport
	orders, err := r.listUncleared(ctx, batch)
	if err != nil {
		return rep, storeErr("list uncleared orders", err)
	}
	rep.Scanned = len(orders)

	for _, o := range orders {
		cleared, err := r.resolve(ctx, o)
		if err != nil {
			rep.Failed++
			l.Warn("reconcile_order_error", "order_id", o.ID, "user_id", o.UserID, "error", err)
			continue
		}
		rep.Resolved++
		if cleared {
			rep.CartsCleared++
			publish(ctx, r.Events, notify.CartEvent(o.UserID, models.CartSummary{}, o.CartVersion+1))
		}
	}

	if rep.Scanned > 0 {
		l.Info("reconcile_sweep_done", "scanned", rep.Scanned, "carts_cleared", rep.CartsCleared, "failed", rep.Failed)
	}
	return rep, nil
}

func (r *Reconciler) listUncleared(ctx context.Context, batch int) ([]models.Order, error) {
	ctx, cancel := withWriteTimeout(ctx, r.WriteTimeout)
	defer cancel()
	return r.Orders.ListUncleared(ctx, time.Now().UTC().Add(-r.Grace), batch)
}

// resolve clears the order's cart if it is still at the placed version and
// flags the order, both within one write timeout.
func (r *Reconciler) resolve(ctx context.Context, o models.Order) (bool, error) {
	ctx, cancel := withWriteTimeout(ctx, r.WriteTimeout)
	defer cancel()

	cleared, err := r.Carts.ClearCartIfVersion(ctx, o.UserID, o.CartVersion)
	if err != nil {
		return false, fmt.Errorf("clear cart: %w", err)
	}
	if err := r.Orders.MarkCartCleared(ctx, o.ID); err != nil {
		return cleared, fmt.Errorf("mark cleared: %w", err)
	}
	return cleared, nil
}

// Run sweeps every interval until ctx is done.
func (r *Reconciler) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if _, err := r.Sweep(ctx); err != nil {
				logging.FromContext(ctx).Error("reconcile_sweep_error", "error", err)
			}
		}
	}
}
