package service

import (
	"context"
	"testing"
	"time"

	"github.com/Skotchmaster/parts_market/internal/models"
	"github.com/Skotchmaster/parts_market/internal/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCartService_AddItemPersists(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cart, err := f.carts.AddItem(ctx, "u1", "p1", 2, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), cart.Version)

	cart, err = f.carts.AddItem(ctx, "u1", "p2", 1, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), cart.Version)

	stored, err := f.carts.GetCart(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, stored.Items, 2)
	assert.Equal(t, models.CartSummary{ItemCount: 3, Subtotal: 3800}, stored.Summary())

	assert.Equal(t, []notify.EventType{notify.CartUpdated, notify.CartUpdated}, f.events.types())
}

func TestCartService_AddItemErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.carts.AddItem(ctx, "u1", "missing", 1, nil)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = f.carts.AddItem(ctx, "u1", "p1", 0, nil)
	require.ErrorIs(t, err, ErrValidation)

	_, err = f.carts.AddItem(ctx, "", "p1", 1, nil)
	require.ErrorIs(t, err, ErrAuth)

	assert.Empty(t, f.events.types())
}

func TestCartService_CatalogPriceChangeDoesNotReprice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.carts.AddItem(ctx, "u1", "p1", 1, nil)
	require.NoError(t, err)

	raised := brakePad
	raised.Price = 9999
	require.NoError(t, f.repo.UpsertPart(ctx, raised))

	cart, err := f.carts.AddItem(ctx, "u1", "p1", 1, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1500), cart.Items[0].Price)
	assert.Equal(t, 2, cart.Items[0].Qty)
}

func TestCartService_IfMatchVersion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cart, err := f.carts.AddItem(ctx, "u1", "p1", 1, nil)
	require.NoError(t, err)

	stale := cart.Version - 1
	_, err = f.carts.IncreaseQty(ctx, "u1", "p1", &stale)
	require.ErrorIs(t, err, ErrConflict)

	current := cart.Version
	cart, err = f.carts.IncreaseQty(ctx, "u1", "p1", &current)
	require.NoError(t, err)
	assert.Equal(t, 2, cart.Items[0].Qty)
}

func TestCartService_DecreaseAndRemove(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.fillCart(t, "u1", line(brakePad, 1), line(oilFilter, 2))

	cart, err := f.carts.DecreaseQty(ctx, "u1", "p1", nil)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "p2", cart.Items[0].PartID)

	cart, err = f.carts.RemoveItem(ctx, "u1", "p2", nil)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)

	_, err = f.carts.DecreaseQty(ctx, "u1", "p2", nil)
	require.ErrorIs(t, err, ErrNotFound)
}

// racingCarts bumps the stored cart behind the service's back once.
type racingCarts struct {
	CartStore
	raced bool
}

func (r *racingCarts) SaveCart(ctx context.Context, cart models.Cart, expected int64) (models.Cart, error) {
	if !r.raced {
		r.raced = true
		current, err := r.CartStore.GetCart(ctx, cart.UserID)
		if err != nil {
			return models.Cart{}, err
		}
		other, err := AddItem(current, oilFilter, 1)
		if err != nil {
			return models.Cart{}, err
		}
		if _, err := r.CartStore.SaveCart(ctx, other, current.Version); err != nil {
			return models.Cart{}, err
		}
	}
	return r.CartStore.SaveCart(ctx, cart, expected)
}

func TestCartService_RetriesOnConcurrentWrite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.carts.Carts = &racingCarts{CartStore: f.repo}

	cart, err := f.carts.AddItem(ctx, "u1", "p1", 1, nil)
	require.NoError(t, err)

	require.Len(t, cart.Items, 2, "concurrent add must survive the retry")
	assert.Equal(t, int64(2), cart.Version)
}

func TestCartService_ConcurrentWriteWithIfMatchConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.carts.Carts = &racingCarts{CartStore: f.repo}
	v := int64(0)
	_, err := f.carts.AddItem(ctx, "u1", "p1", 1, &v)
	require.ErrorIs(t, err, ErrConflict)
}

func TestCartService_SubscribeCartSummary(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f.fillCart(t, "u1", line(brakePad, 1))

	ch, err := f.carts.SubscribeCartSummary(ctx, "u1")
	require.NoError(t, err)

	first := <-ch
	assert.Equal(t, models.CartSummary{ItemCount: 1, Subtotal: 1500}, first)

	_, err = f.carts.AddItem(ctx, "u1", "p2", 2, nil)
	require.NoError(t, err)

	select {
	case got := <-ch:
		assert.Equal(t, models.CartSummary{ItemCount: 3, Subtotal: 3100}, got)
	case <-time.After(2 * time.Second):
		t.Fatal("no summary after commit")
	}

	cancel()
	require.Eventually(t, func() bool {
		_, ok := <-ch
		return !ok
	}, 2*time.Second, 10*time.Millisecond)
}

func TestCartService_SubscribeCartSummaryIgnoresOutOfOrderEvents(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := f.carts.SubscribeCartSummary(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.CartSummary{}, <-ch)

	// two commits whose events reach the hub newest first
	one, err := AddItem(models.EmptyCart("u1"), brakePad, 1)
	require.NoError(t, err)
	v1, err := f.repo.SaveCart(ctx, one, 0)
	require.NoError(t, err)
	two, err := AddItem(v1, brakePad, 1)
	require.NoError(t, err)
	v2, err := f.repo.SaveCart(ctx, two, v1.Version)
	require.NoError(t, err)

	require.NoError(t, f.hub.Publish(ctx, notify.CartEvent("u1", v2.Summary(), v2.Version)))
	require.NoError(t, f.hub.Publish(ctx, notify.CartEvent("u1", v1.Summary(), v1.Version)))

	select {
	case got := <-ch:
		assert.Equal(t, models.CartSummary{ItemCount: 2, Subtotal: 3000}, got)
	case <-time.After(2 * time.Second):
		t.Fatal("no summary after commit")
	}

	select {
	case got := <-ch:
		t.Fatalf("stale summary emitted: %+v", got)
	case <-time.After(100 * time.Millisecond):
	}

	stored, err := f.carts.Summary(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.CartSummary{ItemCount: 2, Subtotal: 3000}, stored)
}
