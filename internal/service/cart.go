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
	"github.com/Skotchmaster/parts_market/pkg/logging"
)

const (
	defaultWriteTimeout = 5 * time.Second
	defaultMaxRetries   = 3
)

type CartService struct {
	Carts   CartStore
	Catalog CatalogReader
	Events  Publisher
	Hub     Subscriber

	WriteTimeout time.Duration
	// MaxRetries bounds read-modify-write attempts when the caller sent no
	// base version.
	MaxRetries int
}

func (s *CartService) GetCart(ctx context.Context, userID string) (models.Cart, error) {
	if userID == "" {
		return models.Cart{}, fmt.Errorf("user required: %w", ErrAuth)
	}
	ctx, cancel := withWriteTimeout(ctx, s.WriteTimeout)
	defer cancel()

	cart, err := s.Carts.GetCart(ctx, userID)
	if err != nil {
		return models.Cart{}, storeErr("get cart", err)
	}
	return cart, nil
}

func (s *CartService) Summary(ctx context.Context, userID string) (models.CartSummary, error) {
	cart, err := s.GetCart(ctx, userID)
	if err != nil {
		return models.CartSummary{}, err
	}
	return cart.Summary(), nil
}

// AddItem reads the part from the catalog and adds qty of it. ifVersion, when
// set, must match the stored cart version.
func (s *CartService) AddItem(ctx context.Context, userID, partID string, qty int, ifVersion *int64) (models.Cart, error) {
	if qty <= 0 {
		return models.Cart{}, fmt.Errorf("qty must be > 0: %w", ErrValidation)
	}
	partID = strings.TrimSpace(partID)
	if partID == "" {
		return models.Cart{}, fmt.Errorf("partId required: %w", ErrValidation)
	}

	part, err := s.lookupPart(ctx, partID)
	if err != nil {
		return models.Cart{}, err
	}

	return s.mutate(ctx, userID, ifVersion, func(c models.Cart) (models.Cart, error) {
		return AddItem(c, part, qty)
	})
}

func (s *CartService) IncreaseQty(ctx context.Context, userID, partID string, ifVersion *int64) (models.Cart, error) {
	return s.mutate(ctx, userID, ifVersion, func(c models.Cart) (models.Cart, error) {
		return IncreaseQty(c, partID)
	})
}

func (s *CartService) DecreaseQty(ctx context.Context, userID, partID string, ifVersion *int64) (models.Cart, error) {
	return s.mutate(ctx, userID, ifVersion, func(c models.Cart) (models.Cart, error) {
		return DecreaseQty(c, partID)
	})
}

func (s *CartService) RemoveItem(ctx context.Context, userID, partID string, ifVersion *int64) (models.Cart, error) {
	return s.mutate(ctx, userID, ifVersion, func(c models.Cart) (models.Cart, error) {
		return RemoveItem(c, partID), nil
	})
}

// SubscribeCartSummary emits the current summary, then one summary per
// committed change until ctx is done. Events are published after commit and
// may arrive out of order, so only versions newer than the last emitted one
// are forwarded.
func (s *CartService) SubscribeCartSummary(ctx context.Context, userID string) (<-chan models.CartSummary, error) {
	if s.Hub == nil {
		return nil, errors.New("cart subscriptions are not configured")
	}
	events := s.Hub.Subscribe(ctx, userID)

	cart, err := s.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make(chan models.CartSummary, 1)
	out <- cart.Summary()
	go func() {
		defer close(out)
		last := cart.Version
		for ev := range events {
			if ev.Type != notify.CartUpdated || ev.Cart == nil || ev.CartVersion <= last {
				continue
			}
			last = ev.CartVersion
			offer(out, *ev.Cart)
		}
	}()
	return out, nil
}

func (s *CartService) lookupPart(ctx context.Context, partID string) (models.Part, error) {
	ctx, cancel := withWriteTimeout(ctx, s.WriteTimeout)
	defer cancel()

	part, err := s.Catalog.GetPart(ctx, partID)
	switch {
	case err == nil:
		return part, nil
	case errors.Is(err, repo.ErrNotFound):
		return models.Part{}, fmt.Errorf("part %s: %w", partID, ErrNotFound)
	default:
		return models.Part{}, storeErr("catalog lookup", err)
	}
}

func (s *CartService) mutate(ctx context.Context, userID string, ifVersion *int64, fn func(models.Cart) (models.Cart, error)) (models.Cart, error) {
	if userID == "" {
		return models.Cart{}, fmt.Errorf("user required: %w", ErrAuth)
	}
	l := logging.FromContext(ctx)

	attempts := 1
	if ifVersion == nil {
		attempts = s.MaxRetries
		if attempts <= 0 {
			attempts = defaultMaxRetries
		}
	}

	for i := 0; i < attempts; i++ {
		saved, err := s.mutateOnce(ctx, userID, ifVersion, fn)
		if errors.Is(err, repo.ErrStaleVersion) {
			l.Debug("cart_write_conflict", "user_id", userID, "attempt", i+1)
			if ifVersion != nil {
				break
			}
			continue
		}
		if err != nil {
			return models.Cart{}, err
		}

		s.publish(ctx, notify.CartEvent(userID, saved.Summary(), saved.Version))
		return saved, nil
	}
	return models.Cart{}, fmt.Errorf("cart was modified concurrently: %w", ErrConflict)
}

func (s *CartService) mutateOnce(ctx context.Context, userID string, ifVersion *int64, fn func(models.Cart) (models.Cart, error)) (models.Cart, error) {
	ctx, cancel := withWriteTimeout(ctx, s.WriteTimeout)
	defer cancel()

	cart, err := s.Carts.GetCart(ctx, userID)
	if err != nil {
		return models.Cart{}, storeErr("get cart", err)
	}
	if ifVersion != nil && cart.Version != *ifVersion {
		return models.Cart{}, repo.ErrStaleVersion
	}

	next, err := fn(cart)
	if err != nil {
		return models.Cart{}, err
	}

	saved, err := s.Carts.SaveCart(ctx, next, cart.Version)
	if errors.Is(err, repo.ErrStaleVersion) {
		return models.Cart{}, err
	}
	if err != nil {
		return models.Cart{}, storeErr("save cart", err)
	}
	return saved, nil
}

func (s *CartService) publish(ctx context.Context, ev notify.Event) {
	publish(ctx, s.Events, ev)
}

// publish runs after the store commit, so failures are logged only.
func publish(ctx context.Context, p Publisher, ev notify.Event) {
	if p == nil {
		return
	}
	if err := p.Publish(context.WithoutCancel(ctx), ev); err != nil {
		logging.FromContext(ctx).Warn("publish_event_error", "type", ev.Type, "user_id", ev.UserID, "error", err)
	}
}

func withWriteTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = defaultWriteTimeout
	}
	return context.WithTimeout(ctx, d)
}

func offer[T any](ch chan T, v T) {
	for {
		select {
		case ch <- v:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
