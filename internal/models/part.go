package models

// Part is the catalog view the cart engine needs. Catalog CRUD lives elsewhere.
type Part struct {
	ID       string `gorm:"primaryKey;type:varchar(64)" json:"id"       bson:"_id"`
	ShopID   string `gorm:"index;not null"              json:"shopId"   bson:"shopId"`
	Name     string `gorm:"not null"                    json:"name"     bson:"name"`
	Price    int64  `gorm:"not null"                    json:"price"    bson:"price"`
	Stock    int    `gorm:"not null;default:0"          json:"stock"    bson:"stock"`
	ImageURL string `json:"imageUrl"                    bson:"imageUrl"`
}

func (Part) TableName() string {
	return "parts"
}
