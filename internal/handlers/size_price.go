// internal/handlers/size_price.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/invoice-backend/internal/i18n"
	"github.com/javajoker/invoice-backend/internal/services"
	"github.com/javajoker/invoice-backend/internal/utils"
)

type SizePriceHandler struct {
	sizePriceService *services.SizePriceService
	recipeService    *services.RecipeService
	cache            ListCache
}

func NewSizePriceHandler(sizePriceService *services.SizePriceService, recipeService *services.RecipeService, cache ListCache) *SizePriceHandler {
	return &SizePriceHandler{
		sizePriceService: sizePriceService,
		recipeService:    recipeService,
		cache:            cache,
	}
}

// GET /size-prices
func (h *SizePriceHandler) GetSizePrices(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	cachedList(c, h.cache, services.CollectionSizePrices, func() (utils.PaginationResult, error) {
		sizePrices, total, err := h.sizePriceService.ListSizePrices(c.Request.Context(), params)
		if err != nil {
			return utils.PaginationResult{}, err
		}
		return utils.CreatePaginationResult(sizePrices, total, params), nil
	})
}

// GET /size-prices/:id
func (h *SizePriceHandler) GetSizePrice(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "size price")
	if !ok {
		return
	}

	detail, err := h.sizePriceService.GetSizePrice(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, detail)
}

// POST /size-prices
func (h *SizePriceHandler) CreateSizePrice(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.SizePriceRequest
	if !bindJSON(c, &req) {
		return
	}

	sizePrice, err := h.sizePriceService.CreateSizePrice(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message":    i18n.T(lang, i18n.KeySizePriceCreated),
		"size_price": sizePrice,
	})
}

// PUT /size-prices/:id
func (h *SizePriceHandler) UpdateSizePrice(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	id, ok := parseIDParam(c, "id", "size price")
	if !ok {
		return
	}

	var req services.SizePriceRequest
	if !bindJSON(c, &req) {
		return
	}

	sizePrice, err := h.sizePriceService.UpdateSizePrice(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":    i18n.T(lang, i18n.KeySizePriceUpdated),
		"size_price": sizePrice,
	})
}

// DELETE /size-prices/:id
func (h *SizePriceHandler) DeleteSizePrice(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	id, ok := parseIDParam(c, "id", "size price")
	if !ok {
		return
	}

	if err := h.sizePriceService.DeleteSizePrice(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeySizePriceDeleted),
	})
}

// GET /size-prices/:id/components
func (h *SizePriceHandler) GetComponents(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "size price")
	if !ok {
		return
	}

	breakdown, err := h.recipeService.GetComponentsBySizePrice(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, breakdown)
}

// GET /size-prices/:id/cogs
func (h *SizePriceHandler) GetCOGS(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "size price")
	if !ok {
		return
	}

	cogs, err := h.recipeService.CalculateSizeCOGS(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"size_price_id": id,
		"total_cogs":    cogs,
	})
}

// PUT /size-prices/:id/components
func (h *SizePriceHandler) UpsertComponent(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	id, ok := parseIDParam(c, "id", "size price")
	if !ok {
		return
	}

	var req services.UpsertComponentRequest
	if !bindJSON(c, &req) {
		return
	}

	component, err := h.recipeService.UpsertSizeComponent(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":   i18n.T(lang, i18n.KeyComponentSaved),
		"component": component,
	})
}

// DELETE /components/:id
func (h *SizePriceHandler) DeleteComponent(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	id, ok := parseIDParam(c, "id", "component")
	if !ok {
		return
	}

	if err := h.recipeService.DeleteSizeComponent(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyComponentDeleted),
	})
}
