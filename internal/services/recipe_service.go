// internal/services/recipe_service.go
package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/javajoker/invoice-backend/internal/database"
	"github.com/javajoker/invoice-backend/internal/models"
)

// RecipeService maintains the bill of materials of each size variant and computes its
// cost of goods sold from the current ingredient prices. Costs are never stored.
type RecipeService struct {
	db          *gorm.DB
	invalidator Invalidator
}

type UpsertComponentRequest struct {
	IngredientID   uuid.UUID       `json:"ingredient_id" validate:"required"`
	QuantityNeeded decimal.Decimal `json:"quantity_needed"`
}

// ComponentCost is one recipe line joined with its ingredient.
type ComponentCost struct {
	ID             uuid.UUID       `json:"id"`
	SizePriceID    uuid.UUID       `json:"size_price_id"`
	IngredientID   uuid.UUID       `json:"ingredient_id"`
	IngredientName string          `json:"ingredient_name"`
	Unit           string          `json:"unit"`
	QuantityNeeded decimal.Decimal `json:"quantity_needed"`
	CostPerUnit    decimal.Decimal `json:"cost_per_unit"`
	CalculatedCost decimal.Decimal `json:"calculated_cost"`
}

type SizeCostBreakdown struct {
	SizePriceID uuid.UUID       `json:"size_price_id"`
	Components  []ComponentCost `json:"components"`
	TotalCOGS   decimal.Decimal `json:"total_cogs"`
}

func NewRecipeService(db *gorm.DB, invalidator Invalidator) *RecipeService {
	return &RecipeService{
		db:          db,
		invalidator: invalidatorOrNoop(invalidator),
	}
}

// UpsertSizeComponent sets the quantity of an ingredient in a variant's recipe, adding the
// line when the pair is new. Concurrent upserts of the same pair resolve on the unique
// index and leave a single row.
func (s *RecipeService) UpsertSizeComponent(ctx context.Context, sizePriceID uuid.UUID, req *UpsertComponentRequest) (*models.SizeComponent, error) {
	if req.IngredientID == uuid.Nil {
		return nil, validationError("ingredient_id is required")
	}
	if !req.QuantityNeeded.IsPositive() {
		return nil, validationError("quantity_needed must be greater than zero")
	}

	var component models.SizeComponent
	err := database.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		if err := requireRow(tx, &models.ProductSizePrice{}, sizePriceID, "size price"); err != nil {
			return err
		}
		if err := requireRow(tx, &models.Ingredient{}, req.IngredientID, "ingredient"); err != nil {
			return err
		}

		row := &models.SizeComponent{
			SizePriceID:    sizePriceID,
			IngredientID:   req.IngredientID,
			QuantityNeeded: req.QuantityNeeded,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "size_price_id"}, {Name: "ingredient_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"quantity_needed", "updated_at"}),
		}).Create(row).Error; err != nil {
			return err
		}

		return tx.Where("size_price_id = ? AND ingredient_id = ?", sizePriceID, req.IngredientID).
			Take(&component).Error
	})
	if err != nil {
		return nil, storeFailure("recipe.upsert_component", sizePriceID.String()+"/"+req.IngredientID.String(), err, "")
	}

	s.invalidator.Invalidate(ctx, CollectionSizePrices)
	return &component, nil
}

func (s *RecipeService) DeleteSizeComponent(ctx context.Context, id uuid.UUID) error {
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.SizeComponent{})
	if result.Error != nil {
		return storeFailure("recipe.delete_component", id.String(), result.Error, "")
	}
	if result.RowsAffected == 0 {
		return notFoundError("recipe component")
	}

	s.invalidator.Invalidate(ctx, CollectionSizePrices)
	return nil
}

// GetComponentsBySizePrice returns the itemised recipe of a variant priced at the current
// ingredient costs.
func (s *RecipeService) GetComponentsBySizePrice(ctx context.Context, sizePriceID uuid.UUID) (*SizeCostBreakdown, error) {
	db := s.db.WithContext(ctx)
	if err := requireRow(db, &models.ProductSizePrice{}, sizePriceID, "size price"); err != nil {
		return nil, storeFailure("recipe.components", sizePriceID.String(), err, "")
	}

	components, err := loadComponentCosts(db, sizePriceID)
	if err != nil {
		return nil, storeFailure("recipe.components", sizePriceID.String(), err, "")
	}

	return &SizeCostBreakdown{
		SizePriceID: sizePriceID,
		Components:  components,
		TotalCOGS:   sumCosts(components),
	}, nil
}

// CalculateSizeCOGS returns only the total of GetComponentsBySizePrice.
func (s *RecipeService) CalculateSizeCOGS(ctx context.Context, sizePriceID uuid.UUID) (decimal.Decimal, error) {
	db := s.db.WithContext(ctx)
	if err := requireRow(db, &models.ProductSizePrice{}, sizePriceID, "size price"); err != nil {
		return decimal.Zero, storeFailure("recipe.cogs", sizePriceID.String(), err, "")
	}

	cogs, err := sizeCOGS(db, sizePriceID)
	if err != nil {
		return decimal.Zero, storeFailure("recipe.cogs", sizePriceID.String(), err, "")
	}
	return cogs, nil
}

// sizeCOGS sums quantity × cost over the variant's current components using db, which may
// be a transaction.
func sizeCOGS(db *gorm.DB, sizePriceID uuid.UUID) (decimal.Decimal, error) {
	components, err := loadComponentCosts(db, sizePriceID)
	if err != nil {
		return decimal.Zero, err
	}
	return sumCosts(components), nil
}

func loadComponentCosts(db *gorm.DB, sizePriceID uuid.UUID) ([]ComponentCost, error) {
	components := []ComponentCost{}
	err := db.Table("size_components AS sc").
		Select("sc.id, sc.size_price_id, sc.ingredient_id, i.name AS ingredient_name, i.unit, sc.quantity_needed, i.cost_per_unit").
		Joins("JOIN ingredients AS i ON i.id = sc.ingredient_id").
		Where("sc.size_price_id = ?", sizePriceID).
		Order("i.name ASC").
		Scan(&components).Error
	if err != nil {
		return nil, err
	}

	for i := range components {
		components[i].CalculatedCost = components[i].QuantityNeeded.Mul(components[i].CostPerUnit)
	}
	return components, nil
}

func sumCosts(components []ComponentCost) decimal.Decimal {
	total := decimal.Zero
	for _, c := range components {
		total = total.Add(c.CalculatedCost)
	}
	return total
}

// requireRow returns a not-found error naming resource when no row of model has id.
func requireRow(db *gorm.DB, model interface{}, id uuid.UUID, resource string) error {
	var count int64
	if err := db.Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return notFoundError(resource)
	}
	return nil
}
