// internal/services/invoice_service.go
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

// InvoiceService writes invoices together with their line items. Each line records the
// cost of goods sold of its variant at the moment of sale.
type InvoiceService struct {
	db          *gorm.DB
	invalidator Invalidator
}

type InvoiceItemRequest struct {
	ProductID      uuid.UUID `json:"product_id" validate:"required"`
	SizePriceID    uuid.UUID `json:"size_price_id" validate:"required"`
	Quantity       int       `json:"quantity" validate:"gte=1"`
	Subtotal       int64     `json:"subtotal" validate:"gte=0"`
	DiscountAmount int64     `json:"discount_amount" validate:"gte=0"`
}

// InvoiceRequest carries the caller's invoice. TotalPrice is stored as given. On update a
// nil Items leaves the current lines untouched.
type InvoiceRequest struct {
	InvoiceNumber  string               `json:"invoice_number" validate:"required,max=100"`
	BuyerName      string               `json:"buyer_name" validate:"required,max=255"`
	InvoiceDate    time.Time            `json:"invoice_date" validate:"required"`
	ShippingCost   int64                `json:"shipping_cost" validate:"gte=0"`
	DiscountAmount int64                `json:"discount_amount" validate:"gte=0"`
	TotalPrice     int64                `json:"total_price" validate:"gte=0"`
	Items          []InvoiceItemRequest `json:"items" validate:"omitempty,dive"`
}

type InvoiceSearchParams struct {
	utils.PaginationParams
	Status *models.InvoiceStatus `json:"status,omitempty"`
	UserID *uuid.UUID            `json:"user_id,omitempty"`
}

var invoiceSortFields = []string{"invoice_number", "buyer_name", "invoice_date", "total_price", "status", "created_at"}

const duplicateInvoiceMessage = "an invoice with this number already exists"

func NewInvoiceService(db *gorm.DB, invalidator Invalidator) *InvoiceService {
	return &InvoiceService{
		db:          db,
		invalidator: invalidatorOrNoop(invalidator),
	}
}

// SubmitInvoice stores a new invoice and all of its items, or nothing.
func (s *InvoiceService) SubmitInvoice(ctx context.Context, userID uuid.UUID, req *InvoiceRequest) (invoice *models.Invoice, err error) {
	defer func() { observeInvoice("submit", err) }()

	if userID == uuid.Nil {
		return nil, &Error{Kind: KindUnauthorized, Message: "an authenticated user is required"}
	}
	if err := normalizeInvoiceRequest(req, true); err != nil {
		return nil, err
	}
	if err := ensureInvoiceNumberAvailable(s.db.WithContext(ctx), req.InvoiceNumber, uuid.Nil); err != nil {
		return nil, err
	}

	invoice = &models.Invoice{
		InvoiceNumber:  req.InvoiceNumber,
		BuyerName:      req.BuyerName,
		InvoiceDate:    req.InvoiceDate,
		ShippingCost:   req.ShippingCost,
		DiscountAmount: req.DiscountAmount,
		TotalPrice:     req.TotalPrice,
		Status:         models.InvoiceStatusPending,
		UserID:         userID,
	}

	err = database.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		if err := requireRow(tx, &models.User{}, userID, "user"); err != nil {
			var se *Error
			if errors.As(err, &se) && se.Kind == KindNotFound {
				return &Error{Kind: KindUnauthorized, Message: "an authenticated user is required"}
			}
			return err
		}

		items, err := buildInvoiceItems(tx, req.Items, nil)
		if err != nil {
			return err
		}

		if err := tx.Omit(clause.Associations).Create(invoice).Error; err != nil {
			return err
		}
		for i := range items {
			items[i].InvoiceID = invoice.ID
		}
		if err := tx.Create(&items).Error; err != nil {
			return err
		}

		invoice.Items = items
		return nil
	})
	if err != nil {
		return nil, storeFailure("invoice.submit", req.InvoiceNumber, err, duplicateInvoiceMessage)
	}

	s.invalidator.Invalidate(ctx, CollectionInvoices)
	return invoice, nil
}

// UpdateInvoice rewrites the invoice header and, when req.Items is not nil, replaces the
// full set of lines in the same transaction. A line whose product and variant match a
// current line keeps that line's cost basis; other lines are costed at the current COGS.
func (s *InvoiceService) UpdateInvoice(ctx context.Context, id uuid.UUID, req *InvoiceRequest) (invoice *models.Invoice, err error) {
	defer func() { observeInvoice("update", err) }()

	if err := normalizeInvoiceRequest(req, false); err != nil {
		return nil, err
	}

	invoice = &models.Invoice{}
	err = database.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).Take(invoice).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFoundError("invoice")
			}
			return err
		}
		if err := ensureInvoiceNumberAvailable(tx, req.InvoiceNumber, id); err != nil {
			return err
		}

		if err := tx.Model(&models.Invoice{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{
				"invoice_number":  req.InvoiceNumber,
				"buyer_name":      req.BuyerName,
				"invoice_date":    req.InvoiceDate,
				"shipping_cost":   req.ShippingCost,
				"discount_amount": req.DiscountAmount,
				"total_price":     req.TotalPrice,
				"updated_at":      time.Now(),
			}).Error; err != nil {
			return err
		}

		if req.Items != nil {
			var current []models.InvoiceItem
			if err := tx.Where("invoice_id = ?", id).Find(&current).Error; err != nil {
				return err
			}
			basis := make(map[lineKey]decimal.Decimal, len(current))
			for _, item := range current {
				basis[lineKey{item.ProductID, item.SizePriceID}] = item.CostPerItem
			}

			items, err := buildInvoiceItems(tx, req.Items, basis)
			if err != nil {
				return err
			}
			if err := tx.Where("invoice_id = ?", id).Delete(&models.InvoiceItem{}).Error; err != nil {
				return err
			}
			for i := range items {
				items[i].InvoiceID = id
			}
			if err := tx.Create(&items).Error; err != nil {
				return err
			}
		}

		return tx.Preload("Items").Where("id = ?", id).Take(invoice).Error
	})
	if err != nil {
		return nil, storeFailure("invoice.update", id.String(), err, duplicateInvoiceMessage)
	}

	s.invalidator.Invalidate(ctx, CollectionInvoices)
	return invoice, nil
}

func (s *InvoiceService) UpdateInvoiceStatus(ctx context.Context, id uuid.UUID, status models.InvoiceStatus) (err error) {
	defer func() { observeInvoice("update_status", err) }()

	if !status.Valid() {
		return validationError("status must be one of: pending, success, canceled")
	}

	result := s.db.WithContext(ctx).Model(&models.Invoice{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return storeFailure("invoice.update_status", id.String(), result.Error, "")
	}
	if result.RowsAffected == 0 {
		return notFoundError("invoice")
	}

	s.invalidator.Invalidate(ctx, CollectionInvoices)
	return nil
}

// DeleteInvoice removes the invoice and its items together.
func (s *InvoiceService) DeleteInvoice(ctx context.Context, id uuid.UUID) (err error) {
	defer func() { observeInvoice("delete", err) }()

	err = database.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		if err := tx.Where("invoice_id = ?", id).Delete(&models.InvoiceItem{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&models.Invoice{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return notFoundError("invoice")
		}
		return nil
	})
	if err != nil {
		return storeFailure("invoice.delete", id.String(), err, "")
	}

	s.invalidator.Invalidate(ctx, CollectionInvoices)
	return nil
}

func (s *InvoiceService) GetInvoice(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	var invoice models.Invoice
	if err := s.db.WithContext(ctx).
		Preload("Items").
		Preload("Items.Product").
		Preload("Items.SizePrice").
		Where("id = ?", id).
		Take(&invoice).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("invoice")
		}
		return nil, storeFailure("invoice.get", id.String(), err, "")
	}
	return &invoice, nil
}

func (s *InvoiceService) ListInvoices(ctx context.Context, params InvoiceSearchParams) ([]models.Invoice, int64, error) {
	params.PaginationParams = utils.NormalizePagination(params.PaginationParams)

	query := s.db.WithContext(ctx).Model(&models.Invoice{})
	query = utils.ApplySearch(query, params.Search, "invoice_number", "buyer_name")
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.UserID != nil {
		query = query.Where("user_id = ?", *params.UserID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, storeFailure("invoice.list", params.Search, err, "")
	}

	var invoices []models.Invoice
	query = utils.ApplySort(query, params.PaginationParams, invoiceSortFields, "created_at")
	if err := utils.ApplyPagination(query, params.PaginationParams).Find(&invoices).Error; err != nil {
		return nil, 0, storeFailure("invoice.list", params.Search, err, "")
	}

	return invoices, total, nil
}

type lineKey struct {
	productID   uuid.UUID
	sizePriceID uuid.UUID
}

// buildInvoiceItems checks that every referenced product and variant exists and prices each
// line. Lines found in basis keep that cost per item.
func buildInvoiceItems(tx *gorm.DB, reqs []InvoiceItemRequest, basis map[lineKey]decimal.Decimal) ([]models.InvoiceItem, error) {
	cogs := make(map[uuid.UUID]decimal.Decimal)
	items := make([]models.InvoiceItem, 0, len(reqs))

	for _, r := range reqs {
		if err := requireRow(tx, &models.Product{}, r.ProductID, "product"); err != nil {
			return nil, err
		}

		cost, ok := basis[lineKey{r.ProductID, r.SizePriceID}]
		if !ok {
			if cost, ok = cogs[r.SizePriceID]; !ok {
				if err := requireRow(tx, &models.ProductSizePrice{}, r.SizePriceID, "size price"); err != nil {
					return nil, err
				}
				total, err := sizeCOGS(tx, r.SizePriceID)
				if err != nil {
					return nil, err
				}
				cost = total.Round(4)
				cogs[r.SizePriceID] = cost
			}
		}

		items = append(items, models.InvoiceItem{
			ProductID:      r.ProductID,
			SizePriceID:    r.SizePriceID,
			Quantity:       r.Quantity,
			Subtotal:       r.Subtotal,
			DiscountAmount: r.DiscountAmount,
			CostPerItem:    cost,
			TotalCost:      cost.Mul(decimal.NewFromInt(int64(r.Quantity))),
		})
	}

	return items, nil
}

func ensureInvoiceNumberAvailable(db *gorm.DB, number string, self uuid.UUID) error {
	query := db.Model(&models.Invoice{}).Where("invoice_number = ?", number)
	if self != uuid.Nil {
		query = query.Where("id <> ?", self)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return storeFailure("invoice.check_number", number, err, "")
	}
	if count > 0 {
		return duplicateError(duplicateInvoiceMessage)
	}
	return nil
}

// normalizeInvoiceRequest trims the text fields and validates the request. Items are
// mandatory on submit; on update only an explicitly empty list is rejected. A product and
// size pair may appear on at most one line.
func normalizeInvoiceRequest(req *InvoiceRequest, itemsRequired bool) error {
	req.InvoiceNumber = strings.TrimSpace(req.InvoiceNumber)
	req.BuyerName = strings.TrimSpace(req.BuyerName)

	switch {
	case req.InvoiceNumber == "":
		return validationError("invoice_number is required")
	case req.BuyerName == "":
		return validationError("buyer_name is required")
	case req.Items == nil && itemsRequired, req.Items != nil && len(req.Items) == 0:
		return validationError("at least one item is required")
	}

	if err := utils.ValidateStruct(req); err != nil {
		return validationError("%s", utils.FirstValidationMessage(err))
	}

	// One line per product and size; the cost basis of a line is keyed by that pair.
	seen := make(map[lineKey]bool, len(req.Items))
	for _, item := range req.Items {
		key := lineKey{item.ProductID, item.SizePriceID}
		if seen[key] {
			return validationError("each product and size may appear on only one line")
		}
		seen[key] = true
	}
	return nil
}

func observeInvoice(operation string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = string(KindOf(err))
	}
	metrics.ObserveInvoice(operation, outcome)
}
