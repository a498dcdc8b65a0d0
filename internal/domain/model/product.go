package model

import "github.com/shopspring/decimal"

type Product struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	Name        string          `gorm:"uniqueIndex;not null;type:varchar(255)" json:"name"`
	Category    string          `gorm:"type:varchar(100)" json:"category"`
	Description string          `gorm:"type:text" json:"description"`
	Price       decimal.Decimal `gorm:"not null;type:decimal(12,2);check:price >= 0" json:"price"`
	Stock       int             `gorm:"not null;default:0;check:stock >= 0" json:"stock"`
	ImageURL    string          `gorm:"type:varchar(512)" json:"image_url"`
	BaseModel
}

// StockReport is the advisory availability view of a product across all carts.
type StockReport struct {
	ProductID  uint   `json:"productId"`
	Name       string `json:"name"`
	TotalStock int    `json:"totalStock"`
	Reserved   int    `json:"reserved"`
	Available  int    `json:"available"`
}
