// internal/models/ingredient.go
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Ingredient struct {
	BaseModel
	Name        string          `json:"name" gorm:"uniqueIndex;size:255;not null"`
	Unit        string          `json:"unit" gorm:"size:50;not null"`
	CostPerUnit decimal.Decimal `json:"cost_per_unit" gorm:"type:decimal(12,4);not null;default:0"`
}

// IngredientPriceHistory rows are append-only. One row is written for every change of
// Ingredient.CostPerUnit, in the same transaction as the change.
type IngredientPriceHistory struct {
	ID           uuid.UUID       `json:"id" gorm:"type:uuid;primaryKey"`
	IngredientID uuid.UUID       `json:"ingredient_id" gorm:"type:uuid;not null;index"`
	OldPrice     decimal.Decimal `json:"old_price" gorm:"type:decimal(12,4);not null"`
	NewPrice     decimal.Decimal `json:"new_price" gorm:"type:decimal(12,4);not null"`
	Reason       *string         `json:"reason,omitempty" gorm:"type:text"`
	ChangedAt    time.Time       `json:"changed_at" gorm:"not null;index"`

	Ingredient *Ingredient `json:"-" gorm:"foreignKey:IngredientID;constraint:OnDelete:CASCADE"`
}

func (IngredientPriceHistory) TableName() string {
	return "ingredient_price_history"
}

func (h *IngredientPriceHistory) BeforeCreate(tx *gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	if h.ChangedAt.IsZero() {
		h.ChangedAt = time.Now()
	}
	return nil
}
