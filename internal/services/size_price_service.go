// internal/services/size_price_service.go
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/javajoker/invoice-backend/internal/database"
	"github.com/javajoker/invoice-backend/internal/models"
	"github.com/javajoker/invoice-backend/internal/utils"
)

type SizePriceService struct {
	db          *gorm.DB
	invalidator Invalidator
}

type SizePriceRequest struct {
	Size         string `json:"size" validate:"required,notblank,max=100"`
	Price        int64  `json:"price" validate:"gte=0"`
	LaborPercent int    `json:"labor_percent" validate:"gte=0,lte=1000"`
}

// SizePriceDetail is a variant with its cost computed from the current recipe.
// SuggestedPrice is COGS marked up by LaborPercent and rounded to a whole unit.
type SizePriceDetail struct {
	models.ProductSizePrice
	COGS           decimal.Decimal `json:"cogs"`
	SuggestedPrice decimal.Decimal `json:"suggested_price"`
}

var sizePriceSortFields = []string{"size", "price", "labor_percent", "created_at", "updated_at"}

const duplicateSizeMessage = "a size with this label already exists"

func NewSizePriceService(db *gorm.DB, invalidator Invalidator) *SizePriceService {
	return &SizePriceService{
		db:          db,
		invalidator: invalidatorOrNoop(invalidator),
	}
}

func (s *SizePriceService) CreateSizePrice(ctx context.Context, req *SizePriceRequest) (*models.ProductSizePrice, error) {
	if err := normalizeSizePriceRequest(req); err != nil {
		return nil, err
	}
	if err := s.ensureSizeAvailable(ctx, req.Size, uuid.Nil); err != nil {
		return nil, err
	}

	sizePrice := &models.ProductSizePrice{
		Size:         req.Size,
		Price:        req.Price,
		LaborPercent: req.LaborPercent,
	}
	if err := s.db.WithContext(ctx).Create(sizePrice).Error; err != nil {
		return nil, storeFailure("size_price.create", req.Size, err, duplicateSizeMessage)
	}

	s.invalidator.Invalidate(ctx, CollectionSizePrices)
	return sizePrice, nil
}

func (s *SizePriceService) UpdateSizePrice(ctx context.Context, id uuid.UUID, req *SizePriceRequest) (*models.ProductSizePrice, error) {
	if err := normalizeSizePriceRequest(req); err != nil {
		return nil, err
	}

	var sizePrice models.ProductSizePrice
	if err := s.db.WithContext(ctx).Where("id = ?", id).Take(&sizePrice).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("size price")
		}
		return nil, storeFailure("size_price.update", id.String(), err, "")
	}
	if err := s.ensureSizeAvailable(ctx, req.Size, id); err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(&models.ProductSizePrice{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"size":          req.Size,
			"price":         req.Price,
			"labor_percent": req.LaborPercent,
			"updated_at":    time.Now(),
		}).Error; err != nil {
		return nil, storeFailure("size_price.update", id.String(), err, duplicateSizeMessage)
	}

	sizePrice.Size = req.Size
	sizePrice.Price = req.Price
	sizePrice.LaborPercent = req.LaborPercent
	s.invalidator.Invalidate(ctx, CollectionSizePrices)
	return &sizePrice, nil
}

// DeleteSizePrice removes a variant and its recipe. Variants sold on an invoice are kept.
func (s *SizePriceService) DeleteSizePrice(ctx context.Context, id uuid.UUID) error {
	err := database.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		var usage int64
		if err := tx.Model(&models.InvoiceItem{}).Where("size_price_id = ?", id).Count(&usage).Error; err != nil {
			return err
		}
		if usage > 0 {
			return conflictError("size price is used by one or more invoices")
		}

		if err := tx.Where("size_price_id = ?", id).Delete(&models.SizeComponent{}).Error; err != nil {
			return err
		}

		result := tx.Where("id = ?", id).Delete(&models.ProductSizePrice{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return notFoundError("size price")
		}
		return nil
	})
	if err != nil {
		return storeFailure("size_price.delete", id.String(), err, "")
	}

	s.invalidator.Invalidate(ctx, CollectionSizePrices)
	return nil
}

func (s *SizePriceService) GetSizePrice(ctx context.Context, id uuid.UUID) (*SizePriceDetail, error) {
	db := s.db.WithContext(ctx)

	var sizePrice models.ProductSizePrice
	if err := db.Where("id = ?", id).Take(&sizePrice).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("size price")
		}
		return nil, storeFailure("size_price.get", id.String(), err, "")
	}

	cogs, err := sizeCOGS(db, id)
	if err != nil {
		return nil, storeFailure("size_price.get", id.String(), err, "")
	}

	return &SizePriceDetail{
		ProductSizePrice: sizePrice,
		COGS:             cogs,
		SuggestedPrice:   SuggestedPrice(cogs, sizePrice.LaborPercent),
	}, nil
}

func (s *SizePriceService) ListSizePrices(ctx context.Context, params utils.PaginationParams) ([]models.ProductSizePrice, int64, error) {
	params = utils.NormalizePagination(params)

	query := s.db.WithContext(ctx).Model(&models.ProductSizePrice{})
	query = utils.ApplySearch(query, params.Search, "size")

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, storeFailure("size_price.list", params.Search, err, "")
	}

	var sizePrices []models.ProductSizePrice
	query = utils.ApplySort(query, params, sizePriceSortFields, "size")
	if err := utils.ApplyPagination(query, params).Find(&sizePrices).Error; err != nil {
		return nil, 0, storeFailure("size_price.list", params.Search, err, "")
	}

	return sizePrices, total, nil
}

// SuggestedPrice marks cogs up by laborPercent and rounds to a whole currency unit.
func SuggestedPrice(cogs decimal.Decimal, laborPercent int) decimal.Decimal {
	markup := decimal.NewFromInt(int64(100 + laborPercent)).Div(decimal.NewFromInt(100))
	return cogs.Mul(markup).Round(0)
}

func (s *SizePriceService) ensureSizeAvailable(ctx context.Context, size string, self uuid.UUID) error {
	query := s.db.WithContext(ctx).Model(&models.ProductSizePrice{}).Where("size = ?", size)
	if self != uuid.Nil {
		query = query.Where("id <> ?", self)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return storeFailure("size_price.check_size", size, err, "")
	}
	if count > 0 {
		return duplicateError(duplicateSizeMessage)
	}
	return nil
}

func normalizeSizePriceRequest(req *SizePriceRequest) error {
	req.Size = strings.TrimSpace(req.Size)
	if err := utils.ValidateStruct(req); err != nil {
		return validationError("%s", utils.FirstValidationMessage(err))
	}
	return nil
}
