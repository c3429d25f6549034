package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/Skotchmaster/parts_market/internal/models"
	"github.com/Skotchmaster/parts_market/internal/notify"
	"github.com/Skotchmaster/parts_market/internal/repo"
	"github.com/Skotchmaster/parts_market/internal/repo/repotest"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	repo   *repo.GormRepo
	hub    *notify.Hub
	events *recorder
	carts  *CartService
	orders *OrderService
}

type recorder struct {
	mu     sync.Mutex
	events []notify.Event
}

func (r *recorder) Publish(_ context.Context, ev notify.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) types() []notify.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]notify.EventType, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	r := repotest.NewRepo(t)
	ctx := context.Background()
	for _, p := range []models.Part{brakePad, oilFilter, sparkPlug} {
		require.NoError(t, r.UpsertPart(ctx, p))
	}

	hub := notify.NewHub()
	rec := &recorder{}
	events := notify.Fanout{hub, rec}

	return &fixture{
		repo:   r,
		hub:    hub,
		events: rec,
		carts:  &CartService{Carts: r, Catalog: r, Events: events, Hub: hub},
		orders: &OrderService{Orders: r, Carts: r, Catalog: r, Events: events, Hub: hub},
	}
}

type cartLine struct {
	part models.Part
	qty  int
}

func line(p models.Part, qty int) cartLine {
	return cartLine{part: p, qty: qty}
}

func (f *fixture) fillCart(t *testing.T, userID string, lines ...cartLine) models.Cart {
	t.Helper()
	var cart models.Cart
	for _, ln := range lines {
		var err error
		cart, err = f.carts.AddItem(context.Background(), userID, ln.part.ID, ln.qty, nil)
		require.NoError(t, err)
	}
	return cart
}

var errLostResponse = errors.New("connection reset by peer")

// flakyOrders commits placements and then reports a failure, as if the
// response was lost on the way back.
type flakyOrders struct {
	OrderStore
	failNext bool
}

func (f *flakyOrders) PlaceOrder(ctx context.Context, order *models.Order, cartVersion int64) error {
	if err := f.OrderStore.PlaceOrder(ctx, order, cartVersion); err != nil {
		return err
	}
	if f.failNext {
		f.failNext = false
		return errLostResponse
	}
	return nil
}

// unclearedOrders stores the order but leaves the cart as it was.
type unclearedOrders struct {
	*repo.GormRepo
}

func (u unclearedOrders) PlaceOrder(ctx context.Context, order *models.Order, cartVersion int64) error {
	order.CartVersion = cartVersion
	if err := u.GormRepo.CreateOrderRecord(ctx, order); err != nil {
		return err
	}
	return repo.ErrCartNotCleared
}

// hangingCarts blocks cart clears until the caller gives up.
type hangingCarts struct {
	*repo.GormRepo
}

func (h hangingCarts) ClearCartIfVersion(ctx context.Context, _ string, _ int64) (bool, error) {
	<-ctx.Done()
	return false, ctx.Err()
}

// hangingOrders blocks order reads until the caller gives up.
type hangingOrders struct {
	*repo.GormRepo
}

func (h hangingOrders) GetOrder(ctx context.Context, _ string) (models.Order, error) {
	<-ctx.Done()
	return models.Order{}, ctx.Err()
}

func (h hangingOrders) ListOrders(ctx context.Context, _ models.OrderFilter) ([]models.Order, int64, error) {
	<-ctx.Done()
	return nil, 0, ctx.Err()
}

func (h hangingOrders) HasPendingOrders(ctx context.Context, _ string) (bool, error) {
	<-ctx.Done()
	return false, ctx.Err()
}
