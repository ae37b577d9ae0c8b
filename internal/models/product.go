// internal/models/product.go
package models

type Product struct {
	BaseModel
	Name        string `json:"name" gorm:"size:255;not null"`
	NameKey     string `json:"-" gorm:"size:255;not null;uniqueIndex"` // lower-cased, trimmed Name
	Description string `json:"description" gorm:"type:text"`
}

// ProductSizePrice is a priced variant. Price is in the smallest currency unit.
type ProductSizePrice struct {
	BaseModel
	Size         string `json:"size" gorm:"size:100;not null;uniqueIndex"`
	Price        int64  `json:"price" gorm:"not null;default:0"`
	LaborPercent int    `json:"labor_percent" gorm:"not null;default:0"`
}
