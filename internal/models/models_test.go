package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLineItems_Totals(t *testing.T) {
	t.Parallel()

	items := LineItems{
		{PartID: "p1", ShopID: "s1", Price: 1500, Qty: 2},
		{PartID: "p2", ShopID: "s1", Price: 800, Qty: 1},
	}
	assert.Equal(t, int64(3800), items.Subtotal())
	assert.Equal(t, 3, items.ItemCount())
	assert.Equal(t, 1, items.Find("p2"))
	assert.Equal(t, -1, items.Find("p3"))
	assert.Equal(t, []string{"s1"}, items.ShopIDs())
}

func TestLineItems_CloneIsIndependent(t *testing.T) {
	t.Parallel()

	var nilItems LineItems
	assert.NotNil(t, nilItems.Clone())

	items := LineItems{{PartID: "p1", Qty: 1}}
	cp := items.Clone()
	cp[0].Qty = 5
	assert.Equal(t, 1, items[0].Qty)
}

func TestOrderStatus(t *testing.T) {
	t.Parallel()

	assert.True(t, OrderStatusPending.Valid())
	assert.True(t, OrderStatusCancelled.Valid())
	assert.False(t, OrderStatus("Pending").Valid())
	assert.False(t, OrderStatus("accepted").Valid())

	assert.True(t, OrderStatusDelivered.Terminal())
	assert.True(t, OrderStatusCancelled.Terminal())
	assert.False(t, OrderStatusShipped.Terminal())

	_, ok := OrderStatusCancelled.Rank()
	assert.False(t, ok)
	r, ok := OrderStatusShipped.Rank()
	assert.True(t, ok)
	assert.Equal(t, 2, r)
}
