package models

import "time"

// LineItem is one part in a cart or an order. Price is in minor currency
// units and is frozen when the part is first added.
type LineItem struct {
	PartID   string `json:"partId"   bson:"partId"`
	ShopID   string `json:"shopId"   bson:"shopId"`
	Name     string `json:"name"     bson:"name"`
	Price    int64  `json:"price"    bson:"price"`
	Qty      int    `json:"qty"      bson:"qty"`
	ImageURL string `json:"imageUrl" bson:"imageUrl"`
}

func (li LineItem) Total() int64 {
	return li.Price * int64(li.Qty)
}

type LineItems []LineItem

func (items LineItems) Subtotal() int64 {
	var sum int64
	for _, it := range items {
		sum += it.Total()
	}
	return sum
}

// ItemCount is the sum of quantities, the value shown on the cart badge.
func (items LineItems) ItemCount() int {
	n := 0
	for _, it := range items {
		n += it.Qty
	}
	return n
}

func (items LineItems) Find(partID string) int {
	for i := range items {
		if items[i].PartID == partID {
			return i
		}
	}
	return -1
}

// ShopIDs returns the distinct shop ids in first-seen order.
func (items LineItems) ShopIDs() []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, 1)
	for _, it := range items {
		if _, ok := seen[it.ShopID]; ok {
			continue
		}
		seen[it.ShopID] = struct{}{}
		out = append(out, it.ShopID)
	}
	return out
}

// Clone never returns nil so an emptied cart persists as [] rather than null.
func (items LineItems) Clone() LineItems {
	out := make(LineItems, len(items))
	copy(out, items)
	return out
}

type Cart struct {
	UserID    string    `gorm:"primaryKey;type:varchar(128)"  json:"userId"    bson:"_id"`
	Items     LineItems `gorm:"serializer:json;type:text"     json:"items"     bson:"items"`
	Version   int64     `gorm:"not null;default:0"            json:"version"   bson:"version"`
	UpdatedAt time.Time `json:"updatedAt"                     bson:"updatedAt"`
}

func (Cart) TableName() string {
	return "carts"
}

// EmptyCart is what a user without a stored cart document sees.
func EmptyCart(userID string) Cart {
	return Cart{UserID: userID, Items: LineItems{}}
}

func (c Cart) Summary() CartSummary {
	return CartSummary{ItemCount: c.Items.ItemCount(), Subtotal: c.Items.Subtotal()}
}

type CartSummary struct {
	ItemCount int   `json:"itemCount"`
	Subtotal  int64 `json:"subtotal"`
}
