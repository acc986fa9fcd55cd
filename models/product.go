package models

import (
	"time"
)

// Product is a factory catalog entry. Restricted products are shown only to
// specifiers holding an approved connection with the factory.
type Product struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	FactoryID uint      `gorm:"not null;index" json:"factory_id"`
	Nome      string    `gorm:"not null" json:"nome"`
	SKU       string    `gorm:"index" json:"sku"`
	Preco     float64   `gorm:"not null;check:preco >= 0" json:"preco"`
	Restrito  bool      `gorm:"not null;default:false" json:"restrito"`
	Ativo     bool      `gorm:"not null;default:true" json:"ativo"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for the Product model
func (Product) TableName() string {
	return "products"
}
