package notify

import (
	"time"

	"github.com/Skotchmaster/parts_market/internal/models"
)

type EventType string

const (
	CartUpdated        EventType = "cart.updated"
	OrderPlaced        EventType = "order.placed"
	OrderStatusChanged EventType = "order.status_changed"
	OrderEdited        EventType = "order.edited"
	OrderCancelled     EventType = "order.cancelled"
)

const (
	TopicCartEvents  = "cart_events"
	TopicOrderEvents = "order_events"
)

// Event describes one committed change for a single user. CartVersion is the
// stored cart version Cart was taken from.
type Event struct {
	Type        EventType           `json:"type"`
	UserID      string              `json:"userId"`
	OrderID     string              `json:"orderId,omitempty"`
	Status      models.OrderStatus  `json:"status,omitempty"`
	Subtotal    int64               `json:"subtotal,omitempty"`
	Cart        *models.CartSummary `json:"cart,omitempty"`
	CartVersion int64               `json:"cartVersion,omitempty"`
	At          time.Time           `json:"at"`
}

func (e Event) IsOrderEvent() bool {
	return e.Type != CartUpdated
}

func (e Event) Topic() string {
	if e.IsOrderEvent() {
		return TopicOrderEvents
	}
	return TopicCartEvents
}

func CartEvent(userID string, s models.CartSummary, version int64) Event {
	return Event{Type: CartUpdated, UserID: userID, Cart: &s, CartVersion: version, At: time.Now().UTC()}
}

func OrderEvent(t EventType, o models.Order) Event {
	return Event{
		Type:     t,
		UserID:   o.UserID,
		OrderID:  o.ID,
		Status:   o.Status,
		Subtotal: o.Subtotal,
		At:       time.Now().UTC(),
	}
}
