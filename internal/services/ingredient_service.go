// internal/services/ingredient_service.go
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/javajoker/invoice-backend/internal/database"
	"github.com/javajoker/invoice-backend/internal/metrics"
	"github.com/javajoker/invoice-backend/internal/models"
	"github.com/javajoker/invoice-backend/internal/utils"
)

type IngredientService struct {
	db          *gorm.DB
	invalidator Invalidator
}

type CreateIngredientRequest struct {
	Name        string          `json:"name" validate:"required,notblank,max=255"`
	Unit        string          `json:"unit" validate:"required,notblank,max=50"`
	CostPerUnit decimal.Decimal `json:"cost_per_unit"`
}

type UpdateIngredientRequest struct {
	Name string `json:"name" validate:"required,notblank,max=255"`
	Unit string `json:"unit" validate:"required,notblank,max=50"`
}

type UpdatePriceRequest struct {
	NewPrice decimal.Decimal `json:"new_price"`
	Reason   string          `json:"reason" validate:"max=1000"`
}

// PriceChange is the outcome of UpdateIngredientPrice.
type PriceChange struct {
	IngredientID uuid.UUID       `json:"ingredient_id"`
	OldPrice     decimal.Decimal `json:"old_price"`
	NewPrice     decimal.Decimal `json:"new_price"`
	HistoryID    uuid.UUID       `json:"history_id"`
	ChangedAt    time.Time       `json:"changed_at"`
}

type IngredientSearchParams struct {
	utils.PaginationParams
	Unit string `json:"unit,omitempty"`
}

var ingredientSortFields = []string{"name", "unit", "cost_per_unit", "created_at", "updated_at"}

func NewIngredientService(db *gorm.DB, invalidator Invalidator) *IngredientService {
	return &IngredientService{
		db:          db,
		invalidator: invalidatorOrNoop(invalidator),
	}
}

func (s *IngredientService) AddIngredient(ctx context.Context, req *CreateIngredientRequest) (*models.Ingredient, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Unit = strings.TrimSpace(req.Unit)
	if err := utils.ValidateStruct(req); err != nil {
		return nil, validationError("%s", utils.FirstValidationMessage(err))
	}
	if req.CostPerUnit.IsNegative() {
		return nil, validationError("cost_per_unit must not be negative")
	}

	if err := s.ensureNameAvailable(ctx, req.Name, uuid.Nil); err != nil {
		return nil, err
	}

	ingredient := &models.Ingredient{
		Name:        req.Name,
		Unit:        req.Unit,
		CostPerUnit: req.CostPerUnit,
	}
	if err := s.db.WithContext(ctx).Create(ingredient).Error; err != nil {
		return nil, storeFailure("ingredient.add", req.Name, err, duplicateIngredientMessage)
	}

	s.invalidator.Invalidate(ctx, CollectionIngredients)
	return ingredient, nil
}

// UpdateIngredient changes the name and unit. The cost is only ever changed through
// UpdateIngredientPrice so that every change is recorded in the price history.
func (s *IngredientService) UpdateIngredient(ctx context.Context, id uuid.UUID, req *UpdateIngredientRequest) (*models.Ingredient, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Unit = strings.TrimSpace(req.Unit)
	if err := utils.ValidateStruct(req); err != nil {
		return nil, validationError("%s", utils.FirstValidationMessage(err))
	}

	ingredient, err := s.GetIngredient(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.ensureNameAvailable(ctx, req.Name, id); err != nil {
		return nil, err
	}

	result := s.db.WithContext(ctx).Model(&models.Ingredient{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"name":       req.Name,
			"unit":       req.Unit,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return nil, storeFailure("ingredient.update", id.String(), result.Error, duplicateIngredientMessage)
	}
	if result.RowsAffected == 0 {
		return nil, notFoundError("ingredient")
	}

	ingredient.Name = req.Name
	ingredient.Unit = req.Unit
	s.invalidator.Invalidate(ctx, CollectionIngredients, CollectionSizePrices)
	return ingredient, nil
}

// UpdateIngredientPrice writes the new cost and its history row in one transaction. The
// current row is read under a row lock so concurrent changes record the correct old price.
func (s *IngredientService) UpdateIngredientPrice(ctx context.Context, id uuid.UUID, req *UpdatePriceRequest) (*PriceChange, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, validationError("%s", utils.FirstValidationMessage(err))
	}
	if req.NewPrice.IsNegative() {
		return nil, validationError("price must not be negative")
	}

	var reason *string
	if r := strings.TrimSpace(req.Reason); r != "" {
		reason = &r
	}

	var change *PriceChange
	err := database.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		var ingredient models.Ingredient
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).
			Take(&ingredient).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFoundError("ingredient")
			}
			return err
		}

		now := time.Now()
		if err := tx.Model(&models.Ingredient{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{
				"cost_per_unit": req.NewPrice,
				"updated_at":    now,
			}).Error; err != nil {
			return err
		}

		history := &models.IngredientPriceHistory{
			IngredientID: id,
			OldPrice:     ingredient.CostPerUnit,
			NewPrice:     req.NewPrice,
			Reason:       reason,
			ChangedAt:    now,
		}
		if err := tx.Create(history).Error; err != nil {
			return err
		}

		change = &PriceChange{
			IngredientID: id,
			OldPrice:     ingredient.CostPerUnit,
			NewPrice:     req.NewPrice,
			HistoryID:    history.ID,
			ChangedAt:    now,
		}
		return nil
	})
	if err != nil {
		return nil, storeFailure("ingredient.update_price", id.String(), err, "")
	}

	metrics.IngredientPriceChanges.Inc()
	s.invalidator.Invalidate(ctx, CollectionIngredients, CollectionSizePrices)
	return change, nil
}

// DeleteIngredient removes an ingredient and its price history. An ingredient that any
// recipe still uses is refused; the restricting foreign key covers a component inserted
// after the check.
func (s *IngredientService) DeleteIngredient(ctx context.Context, id uuid.UUID) error {
	err := database.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		var usage int64
		if err := tx.Model(&models.SizeComponent{}).Where("ingredient_id = ?", id).Count(&usage).Error; err != nil {
			return err
		}
		if usage > 0 {
			return conflictError("ingredient is used by one or more recipes")
		}

		if err := tx.Where("ingredient_id = ?", id).Delete(&models.IngredientPriceHistory{}).Error; err != nil {
			return err
		}

		result := tx.Where("id = ?", id).Delete(&models.Ingredient{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return notFoundError("ingredient")
		}
		return nil
	})
	if err != nil {
		se := storeFailure("ingredient.delete", id.String(), err, "")
		if se.Kind == KindConflict {
			se.Message = "ingredient is used by one or more recipes"
		}
		return se
	}

	s.invalidator.Invalidate(ctx, CollectionIngredients)
	return nil
}

func (s *IngredientService) GetIngredient(ctx context.Context, id uuid.UUID) (*models.Ingredient, error) {
	var ingredient models.Ingredient
	if err := s.db.WithContext(ctx).Where("id = ?", id).Take(&ingredient).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("ingredient")
		}
		return nil, storeFailure("ingredient.get", id.String(), err, "")
	}
	return &ingredient, nil
}

func (s *IngredientService) ListIngredients(ctx context.Context, params IngredientSearchParams) ([]models.Ingredient, int64, error) {
	params.PaginationParams = utils.NormalizePagination(params.PaginationParams)

	query := s.db.WithContext(ctx).Model(&models.Ingredient{})
	query = utils.ApplySearch(query, params.Search, "name")
	if params.Unit != "" {
		query = query.Where("unit = ?", params.Unit)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, storeFailure("ingredient.list", params.Search, err, "")
	}

	var ingredients []models.Ingredient
	query = utils.ApplySort(query, params.PaginationParams, ingredientSortFields, "name")
	if err := utils.ApplyPagination(query, params.PaginationParams).Find(&ingredients).Error; err != nil {
		return nil, 0, storeFailure("ingredient.list", params.Search, err, "")
	}

	return ingredients, total, nil
}

// GetPriceHistory returns every recorded cost change of the ingredient, newest first.
func (s *IngredientService) GetPriceHistory(ctx context.Context, id uuid.UUID) ([]models.IngredientPriceHistory, error) {
	if _, err := s.GetIngredient(ctx, id); err != nil {
		return nil, err
	}

	var history []models.IngredientPriceHistory
	if err := s.db.WithContext(ctx).
		Where("ingredient_id = ?", id).
		Order("changed_at DESC").
		Find(&history).Error; err != nil {
		return nil, storeFailure("ingredient.price_history", id.String(), err, "")
	}
	return history, nil
}

const duplicateIngredientMessage = "an ingredient with this name already exists"

func (s *IngredientService) ensureNameAvailable(ctx context.Context, name string, self uuid.UUID) error {
	query := s.db.WithContext(ctx).Model(&models.Ingredient{}).Where("name = ?", name)
	if self != uuid.Nil {
		query = query.Where("id <> ?", self)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return storeFailure("ingredient.check_name", name, err, "")
	}
	if count > 0 {
		return duplicateError(duplicateIngredientMessage)
	}
	return nil
}
