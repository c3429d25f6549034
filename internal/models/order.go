package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

var statusRank = map[OrderStatus]int{
	OrderStatusPending:    0,
	OrderStatusProcessing: 1,
	OrderStatusShipped:    2,
	OrderStatusDelivered:  3,
}

func (s OrderStatus) Valid() bool {
	if s == OrderStatusCancelled {
		return true
	}
	_, ok := statusRank[s]
	return ok
}

func (s OrderStatus) Terminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// Rank orders the forward path; cancelled has no rank.
func (s OrderStatus) Rank() (int, bool) {
	r, ok := statusRank[s]
	return r, ok
}

const DefaultCustomerName = "Customer"

type Order struct {
	ID             string      `gorm:"primaryKey;type:varchar(36)"                      json:"id"             bson:"_id"`
	UserID         string      `gorm:"uniqueIndex:idx_orders_user_key;not null"        json:"userId"         bson:"userId"`
	IdempotencyKey string      `gorm:"uniqueIndex:idx_orders_user_key;not null"         json:"idempotencyKey" bson:"idempotencyKey"`
	UserName       string      `gorm:"not null"                                         json:"userName"       bson:"userName"`
	UserEmail      string      `json:"userEmail"                                        bson:"userEmail"`
	UserPhone      string      `json:"userPhone"                                        bson:"userPhone"`
	ShopID         string      `gorm:"index;not null"                                   json:"shopId"         bson:"shopId"`
	Items          LineItems   `gorm:"serializer:json;type:text"                        json:"items"          bson:"items"`
	Subtotal       int64       `gorm:"not null"                                         json:"subtotal"       bson:"subtotal"`
	Status         OrderStatus `gorm:"index;not null;type:varchar(16)"                  json:"status"         bson:"status"`
	CartVersion    int64       `json:"-"                                                bson:"cartVersion"`
	CartCleared    bool        `gorm:"index;not null;default:false"                     json:"-"              bson:"cartCleared"`
	Version        int64       `gorm:"not null;default:0"                               json:"version"        bson:"version"`
	CreatedAt      time.Time   `gorm:"index"                                            json:"createdAt"      bson:"createdAt"`
	UpdatedAt      time.Time   `json:"updatedAt"                                        bson:"updatedAt"`
}

func (Order) TableName() string {
	return "orders"
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	return nil
}

// Clone deep-copies the item list.
func (o Order) Clone() Order {
	o.Items = o.Items.Clone()
	return o
}

type OrderFilter struct {
	UserID string
	Status OrderStatus
	Offset int
	Limit  int
}
