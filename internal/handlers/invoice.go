// internal/handlers/invoice.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/javajoker/invoice-backend/internal/i18n"
	"github.com/javajoker/invoice-backend/internal/models"
	"github.com/javajoker/invoice-backend/internal/services"
	"github.com/javajoker/invoice-backend/internal/utils"
)

type InvoiceHandler struct {
	invoiceService *services.InvoiceService
	cache          ListCache
}

func NewInvoiceHandler(invoiceService *services.InvoiceService, cache ListCache) *InvoiceHandler {
	return &InvoiceHandler{
		invoiceService: invoiceService,
		cache:          cache,
	}
}

// GET /invoices
func (h *InvoiceHandler) GetInvoices(c *gin.Context) {
	params := services.InvoiceSearchParams{
		PaginationParams: utils.GetPaginationParams(c),
	}

	if status := c.Query("status"); status != "" {
		invoiceStatus := models.InvoiceStatus(status)
		if !invoiceStatus.Valid() {
			lang := utils.GetLangFromContext(c)
			utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "status"), nil)
			return
		}
		params.Status = &invoiceStatus
	}

	if userIDStr := c.Query("user_id"); userIDStr != "" {
		if userID, err := uuid.Parse(userIDStr); err == nil {
			params.UserID = &userID
		}
	}

	cachedList(c, h.cache, services.CollectionInvoices, func() (utils.PaginationResult, error) {
		invoices, total, err := h.invoiceService.ListInvoices(c.Request.Context(), params)
		if err != nil {
			return utils.PaginationResult{}, err
		}
		return utils.CreatePaginationResult(invoices, total, params.PaginationParams), nil
	})
}

// GET /invoices/:id
func (h *InvoiceHandler) GetInvoice(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "invoice")
	if !ok {
		return
	}

	invoice, err := h.invoiceService.GetInvoice(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, invoice)
}

// POST /invoices
func (h *InvoiceHandler) SubmitInvoice(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	userID, _ := utils.GetUserIDFromContext(c)

	var req services.InvoiceRequest
	if !bindJSON(c, &req) {
		return
	}

	invoice, err := h.invoiceService.SubmitInvoice(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyInvoiceCreated),
		"invoice": invoice,
	})
}

// PUT /invoices/:id
func (h *InvoiceHandler) UpdateInvoice(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	id, ok := parseIDParam(c, "id", "invoice")
	if !ok {
		return
	}

	var req services.InvoiceRequest
	if !bindJSON(c, &req) {
		return
	}

	invoice, err := h.invoiceService.UpdateInvoice(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyInvoiceUpdated),
		"invoice": invoice,
	})
}

// PUT /invoices/:id/status
func (h *InvoiceHandler) UpdateInvoiceStatus(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	id, ok := parseIDParam(c, "id", "invoice")
	if !ok {
		return
	}

	var req struct {
		Status models.InvoiceStatus `json:"status"`
	}
	if !bindJSON(c, &req) {
		return
	}

	if err := h.invoiceService.UpdateInvoiceStatus(c.Request.Context(), id, req.Status); err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyInvoiceStatusUpdated),
		"status":  req.Status,
	})
}

// DELETE /invoices/:id
func (h *InvoiceHandler) DeleteInvoice(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	id, ok := parseIDParam(c, "id", "invoice")
	if !ok {
		return
	}

	if err := h.invoiceService.DeleteInvoice(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyInvoiceDeleted),
	})
}
