// internal/services/product_service.go
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/javajoker/invoice-backend/internal/database"
	"github.com/javajoker/invoice-backend/internal/models"
	"github.com/javajoker/invoice-backend/internal/utils"
)

type ProductService struct {
	db          *gorm.DB
	invalidator Invalidator
}

type ProductRequest struct {
	Name        string `json:"name" validate:"required,notblank,max=255"`
	Description string `json:"description" validate:"max=5000"`
}

var productSortFields = []string{"name", "created_at", "updated_at"}

const duplicateProductMessage = "a product with this name already exists"

func NewProductService(db *gorm.DB, invalidator Invalidator) *ProductService {
	return &ProductService{
		db:          db,
		invalidator: invalidatorOrNoop(invalidator),
	}
}

func (s *ProductService) CreateProduct(ctx context.Context, req *ProductRequest) (*models.Product, error) {
	if err := normalizeProductRequest(req); err != nil {
		return nil, err
	}

	nameKey := productNameKey(req.Name)
	if err := s.ensureNameAvailable(ctx, nameKey, uuid.Nil); err != nil {
		return nil, err
	}

	product := &models.Product{
		Name:        req.Name,
		NameKey:     nameKey,
		Description: req.Description,
	}
	if err := s.db.WithContext(ctx).Create(product).Error; err != nil {
		return nil, storeFailure("product.create", nameKey, err, duplicateProductMessage)
	}

	s.invalidator.Invalidate(ctx, CollectionProducts)
	return product, nil
}

func (s *ProductService) UpdateProduct(ctx context.Context, id uuid.UUID, req *ProductRequest) (*models.Product, error) {
	if err := normalizeProductRequest(req); err != nil {
		return nil, err
	}

	product, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	nameKey := productNameKey(req.Name)
	if err := s.ensureNameAvailable(ctx, nameKey, id); err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"name":        req.Name,
			"name_key":    nameKey,
			"description": req.Description,
			"updated_at":  time.Now(),
		}).Error; err != nil {
		return nil, storeFailure("product.update", id.String(), err, duplicateProductMessage)
	}

	product.Name = req.Name
	product.NameKey = nameKey
	product.Description = req.Description
	s.invalidator.Invalidate(ctx, CollectionProducts)
	return product, nil
}

// DeleteProduct removes a product that no invoice line refers to.
func (s *ProductService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	err := database.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		var usage int64
		if err := tx.Model(&models.InvoiceItem{}).Where("product_id = ?", id).Count(&usage).Error; err != nil {
			return err
		}
		if usage > 0 {
			return conflictError("product is used by one or more invoices")
		}

		result := tx.Where("id = ?", id).Delete(&models.Product{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return notFoundError("product")
		}
		return nil
	})
	if err != nil {
		return storeFailure("product.delete", id.String(), err, "")
	}

	s.invalidator.Invalidate(ctx, CollectionProducts)
	return nil
}

func (s *ProductService) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := s.db.WithContext(ctx).Where("id = ?", id).Take(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("product")
		}
		return nil, storeFailure("product.get", id.String(), err, "")
	}
	return &product, nil
}

func (s *ProductService) ListProducts(ctx context.Context, params utils.PaginationParams) ([]models.Product, int64, error) {
	params = utils.NormalizePagination(params)

	query := s.db.WithContext(ctx).Model(&models.Product{})
	query = utils.ApplySearch(query, params.Search, "name", "description")

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, storeFailure("product.list", params.Search, err, "")
	}

	var products []models.Product
	query = utils.ApplySort(query, params, productSortFields, "name")
	if err := utils.ApplyPagination(query, params).Find(&products).Error; err != nil {
		return nil, 0, storeFailure("product.list", params.Search, err, "")
	}

	return products, total, nil
}

func (s *ProductService) ensureNameAvailable(ctx context.Context, nameKey string, self uuid.UUID) error {
	query := s.db.WithContext(ctx).Model(&models.Product{}).Where("name_key = ?", nameKey)
	if self != uuid.Nil {
		query = query.Where("id <> ?", self)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return storeFailure("product.check_name", nameKey, err, "")
	}
	if count > 0 {
		return duplicateError(duplicateProductMessage)
	}
	return nil
}

func normalizeProductRequest(req *ProductRequest) error {
	req.Name = strings.TrimSpace(req.Name)
	req.Description = strings.TrimSpace(req.Description)
	if err := utils.ValidateStruct(req); err != nil {
		return validationError("%s", utils.FirstValidationMessage(err))
	}
	return nil
}

// productNameKey is the form product names are compared in.
func productNameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
