package transport

import "github.com/Skotchmaster/parts_market/internal/models"

type AddItemRequest struct {
	PartID string `json:"partId" validate:"required,max=64"`
	Qty    int    `json:"qty"    validate:"min=1,max=999"`
}

type QtyChange struct {
	PartID string `json:"partId" validate:"required"`
	Qty    int    `json:"qty"    validate:"min=1,max=999"`
}

type EditOrderRequest struct {
	UserName  *string     `json:"userName"  validate:"omitempty,max=120"`
	UserPhone *string     `json:"userPhone" validate:"omitempty,max=32"`
	Items     []QtyChange `json:"items"     validate:"omitempty,dive"`
}

type UpdateStatusRequest struct {
	Status models.OrderStatus `json:"status" validate:"required"`
}

type ListOrdersQuery struct {
	Status string `query:"status"`
	Page   int    `query:"page"`
	Size   int    `query:"size"`
}

type CartResponse struct {
	UserID   string           `json:"userId"`
	Items    models.LineItems `json:"items"`
	Version  int64            `json:"version"`
	Subtotal int64            `json:"subtotal"`
	Count    int              `json:"itemCount"`
}

func NewCartResponse(c models.Cart) CartResponse {
	items := c.Items
	if items == nil {
		items = models.LineItems{}
	}
	return CartResponse{
		UserID:   c.UserID,
		Items:    items,
		Version:  c.Version,
		Subtotal: items.Subtotal(),
		Count:    items.ItemCount(),
	}
}

type PendingResponse struct {
	HasPending bool `json:"hasPending"`
}

type ErrorResponse struct {
	Error     string `json:"error"`
	PartID    string `json:"partId,omitempty"`
	Available *int   `json:"available,omitempty"`
	Requested *int   `json:"requested,omitempty"`
}

// PlaceOrderResponse carries the order and, when the cart clear is still
// outstanding, a warning.
type PlaceOrderResponse struct {
	models.Order
	Warning string `json:"warning,omitempty"`
}
