package models

import (
	"time"
)

// OrderItem is one line of an Order
type OrderItem struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	OrderID       uint      `gorm:"not null;index" json:"order_id"`
	ProductID     uint      `gorm:"not null;index" json:"product_id"`
	Product       *Product  `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Quantidade    int       `gorm:"not null;check:quantidade > 0" json:"quantidade"`
	PrecoUnitario float64   `gorm:"not null" json:"preco_unitario"` // snapshot of the product price
	Subtotal      float64   `gorm:"not null" json:"subtotal"`
	Observacoes   string    `gorm:"type:text" json:"observacoes"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TableName specifies the table name for the OrderItem model
func (OrderItem) TableName() string {
	return "order_items"
}

// ComputeSubtotal refreshes Subtotal from price and quantity
func (i *OrderItem) ComputeSubtotal() {
	i.Subtotal = RoundMoney(i.PrecoUnitario * float64(i.Quantidade))
}
