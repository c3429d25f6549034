package repo_test

import (
	"context"
	"testing"
	"time"

	"github.com/Skotchmaster/parts_market/internal/models"
	"github.com/Skotchmaster/parts_market/internal/repo"
	"github.com/Skotchmaster/parts_market/internal/repo/repotest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoLineCart(userID string) models.Cart {
	return models.Cart{
		UserID: userID,
		Items: models.LineItems{
			{PartID: "p1", ShopID: "s1", Name: "Brake pad", Price: 1500, Qty: 2},
			{PartID: "p2", ShopID: "s1", Name: "Oil filter", Price: 800, Qty: 1},
		},
	}
}

func TestGormRepo_GetCart_MissingIsEmpty(t *testing.T) {
	r := repotest.NewRepo(t)

	cart, err := r.GetCart(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", cart.UserID)
	assert.Empty(t, cart.Items)
	assert.NotNil(t, cart.Items)
	assert.Zero(t, cart.Version)
}

func TestGormRepo_SaveCart_OptimisticVersion(t *testing.T) {
	r := repotest.NewRepo(t)
	ctx := context.Background()

	saved, err := r.SaveCart(ctx, twoLineCart("u1"), 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), saved.Version)

	_, err = r.SaveCart(ctx, twoLineCart("u1"), 0)
	require.ErrorIs(t, err, repo.ErrStaleVersion)

	next := saved
	next.Items = next.Items[:1]
	saved2, err := r.SaveCart(ctx, next, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), saved2.Version)

	_, err = r.SaveCart(ctx, next, 1)
	require.ErrorIs(t, err, repo.ErrStaleVersion)

	got, err := r.GetCart(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Version)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "p1", got.Items[0].PartID)
	assert.Equal(t, int64(1500), got.Items[0].Price)
}

func TestGormRepo_PlaceOrder_ClearsCart(t *testing.T) {
	r := repotest.NewRepo(t)
	ctx := context.Background()

	cart, err := r.SaveCart(ctx, twoLineCart("u1"), 0)
	require.NoError(t, err)

	order := &models.Order{
		UserID:         "u1",
		IdempotencyKey: "k1",
		UserName:       "Ann",
		ShopID:         "s1",
		Items:          cart.Items.Clone(),
		Subtotal:       cart.Items.Subtotal(),
		Status:         models.OrderStatusPending,
	}
	require.NoError(t, r.PlaceOrder(ctx, order, cart.Version))
	assert.NotEmpty(t, order.ID)

	got, err := r.GetCart(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, got.Items)
	assert.Equal(t, cart.Version+1, got.Version)

	stored, err := r.GetOrderByKey(ctx, "u1", "k1")
	require.NoError(t, err)
	assert.Equal(t, int64(3800), stored.Subtotal)
	assert.True(t, stored.CartCleared)
	assert.Len(t, stored.Items, 2)

	dup := &models.Order{UserID: "u1", IdempotencyKey: "k1", ShopID: "s1", Status: models.OrderStatusPending}
	require.ErrorIs(t, r.PlaceOrder(ctx, dup, got.Version), repo.ErrDuplicate)
}

func TestGormRepo_PlaceOrder_StaleCartRollsBack(t *testing.T) {
	r := repotest.NewRepo(t)
	ctx := context.Background()

	cart, err := r.SaveCart(ctx, twoLineCart("u1"), 0)
	require.NoError(t, err)

	order := &models.Order{UserID: "u1", IdempotencyKey: "k1", ShopID: "s1", Items: cart.Items, Status: models.OrderStatusPending}
	err = r.PlaceOrder(ctx, order, cart.Version+5)
	require.ErrorIs(t, err, repo.ErrStaleVersion)

	_, err = r.GetOrderByKey(ctx, "u1", "k1")
	require.ErrorIs(t, err, repo.ErrNotFound)

	got, err := r.GetCart(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, got.Items, 2)
}

func TestGormRepo_UpdateOrder_Version(t *testing.T) {
	r := repotest.NewRepo(t)
	ctx := context.Background()

	order := &models.Order{UserID: "u1", IdempotencyKey: "k1", ShopID: "s1", Status: models.OrderStatusPending}
	require.NoError(t, r.CreateOrderRecord(ctx, order))
	require.Equal(t, int64(1), order.Version)

	changed := *order
	changed.Status = models.OrderStatusProcessing
	updated, err := r.UpdateOrder(ctx, changed, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.Version)

	_, err = r.UpdateOrder(ctx, changed, 1)
	require.ErrorIs(t, err, repo.ErrStaleVersion)

	changed.ID = "missing"
	_, err = r.UpdateOrder(ctx, changed, 1)
	require.ErrorIs(t, err, repo.ErrNotFound)

	stored, err := r.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusProcessing, stored.Status)
}

func TestGormRepo_ListOrdersAndPending(t *testing.T) {
	r := repotest.NewRepo(t)
	ctx := context.Background()

	for i, st := range []models.OrderStatus{models.OrderStatusPending, models.OrderStatusShipped, models.OrderStatusPending} {
		o := &models.Order{
			UserID:         "u1",
			IdempotencyKey: string(rune('a' + i)),
			ShopID:         "s1",
			Status:         st,
		}
		require.NoError(t, r.CreateOrderRecord(ctx, o))
	}
	require.NoError(t, r.CreateOrderRecord(ctx, &models.Order{UserID: "u2", IdempotencyKey: "a", ShopID: "s1", Status: models.OrderStatusDelivered}))

	orders, total, err := r.ListOrders(ctx, models.OrderFilter{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, orders, 3)

	orders, total, err = r.ListOrders(ctx, models.OrderFilter{Status: models.OrderStatusPending, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, orders, 1)

	pending, err := r.HasPendingOrders(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, pending)

	pending, err = r.HasPendingOrders(ctx, "u2")
	require.NoError(t, err)
	assert.False(t, pending)
}

func TestGormRepo_UnclearedOrders(t *testing.T) {
	r := repotest.NewRepo(t)
	ctx := context.Background()

	cart, err := r.SaveCart(ctx, twoLineCart("u1"), 0)
	require.NoError(t, err)

	order := &models.Order{UserID: "u1", IdempotencyKey: "k1", ShopID: "s1", Items: cart.Items, Status: models.OrderStatusPending, CartVersion: cart.Version}
	require.NoError(t, r.CreateOrderRecord(ctx, order))

	list, err := r.ListUncleared(ctx, time.Now().UTC().Add(time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, list, 1)

	cleared, err := r.ClearCartIfVersion(ctx, "u1", order.CartVersion)
	require.NoError(t, err)
	assert.True(t, cleared)

	cleared, err = r.ClearCartIfVersion(ctx, "u1", order.CartVersion)
	require.NoError(t, err)
	assert.False(t, cleared)

	require.NoError(t, r.MarkCartCleared(ctx, order.ID))
	list, err = r.ListUncleared(ctx, time.Now().UTC().Add(time.Minute), 10)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestGormRepo_GetPart(t *testing.T) {
	r := repotest.NewRepo(t)
	ctx := context.Background()

	require.NoError(t, r.UpsertPart(ctx, models.Part{ID: "p1", ShopID: "s1", Name: "Brake pad", Price: 1500, Stock: 4}))

	part, err := r.GetPart(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 4, part.Stock)

	_, err = r.GetPart(ctx, "nope")
	require.ErrorIs(t, err, repo.ErrNotFound)
}
