// internal/models/recipe.go
package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SizeComponent is one recipe line: the quantity of an ingredient needed to produce one
// unit of a size variant. At most one row exists per (size variant, ingredient).
type SizeComponent struct {
	BaseModel
	SizePriceID    uuid.UUID       `json:"size_price_id" gorm:"type:uuid;not null;uniqueIndex:idx_size_components_pair,priority:1"`
	IngredientID   uuid.UUID       `json:"ingredient_id" gorm:"type:uuid;not null;uniqueIndex:idx_size_components_pair,priority:2;index"`
	QuantityNeeded decimal.Decimal `json:"quantity_needed" gorm:"type:decimal(12,4);not null"`

	// Relationships
	SizePrice  *ProductSizePrice `json:"-" gorm:"foreignKey:SizePriceID;constraint:OnDelete:CASCADE"`
	Ingredient *Ingredient       `json:"-" gorm:"foreignKey:IngredientID;constraint:OnDelete:RESTRICT"`
}
