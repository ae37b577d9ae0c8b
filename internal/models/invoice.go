// internal/models/invoice.go
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Invoice struct {
	BaseModel
	InvoiceNumber  string        `json:"invoice_number" gorm:"size:100;not null;uniqueIndex"`
	BuyerName      string        `json:"buyer_name" gorm:"size:255;not null"`
	InvoiceDate    time.Time     `json:"invoice_date" gorm:"not null;index"`
	ShippingCost   int64         `json:"shipping_cost" gorm:"not null;default:0"`
	DiscountAmount int64         `json:"discount_amount" gorm:"not null;default:0"`
	TotalPrice     int64         `json:"total_price" gorm:"not null;default:0"`
	Status         InvoiceStatus `json:"status" gorm:"type:varchar(20);not null;default:'pending';index"`
	UserID         uuid.UUID     `json:"user_id" gorm:"type:uuid;not null;index"`

	// Relationships
	User  *User         `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Items []InvoiceItem `json:"items,omitempty" gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE"`
}

// InvoiceItem records the cost basis (CostPerItem) at the moment of sale.
type InvoiceItem struct {
	BaseModel
	InvoiceID      uuid.UUID       `json:"invoice_id" gorm:"type:uuid;not null;index"`
	ProductID      uuid.UUID       `json:"product_id" gorm:"type:uuid;not null;index"`
	SizePriceID    uuid.UUID       `json:"size_price_id" gorm:"type:uuid;not null;index"`
	Quantity       int             `json:"quantity" gorm:"not null"`
	Subtotal       int64           `json:"subtotal" gorm:"not null;default:0"`
	DiscountAmount int64           `json:"discount_amount" gorm:"not null;default:0"`
	CostPerItem    decimal.Decimal `json:"cost_per_item" gorm:"type:decimal(12,4);not null;default:0"`
	TotalCost      decimal.Decimal `json:"total_cost" gorm:"type:decimal(14,4);not null;default:0"`

	// Relationships
	Product   *Product          `json:"product,omitempty" gorm:"foreignKey:ProductID;constraint:OnDelete:RESTRICT"`
	SizePrice *ProductSizePrice `json:"size_price,omitempty" gorm:"foreignKey:SizePriceID;constraint:OnDelete:RESTRICT"`
}
