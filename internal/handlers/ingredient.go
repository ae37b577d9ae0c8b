// internal/handlers/ingredient.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/invoice-backend/internal/i18n"
	"github.com/javajoker/invoice-backend/internal/services"
	"github.com/javajoker/invoice-backend/internal/utils"
)

type IngredientHandler struct {
	ingredientService *services.IngredientService
	cache             ListCache
}

func NewIngredientHandler(ingredientService *services.IngredientService, cache ListCache) *IngredientHandler {
	return &IngredientHandler{
		ingredientService: ingredientService,
		cache:             cache,
	}
}

// GET /ingredients
func (h *IngredientHandler) GetIngredients(c *gin.Context) {
	params := services.IngredientSearchParams{
		PaginationParams: utils.GetPaginationParams(c),
		Unit:             c.Query("unit"),
	}

	cachedList(c, h.cache, services.CollectionIngredients, func() (utils.PaginationResult, error) {
		ingredients, total, err := h.ingredientService.ListIngredients(c.Request.Context(), params)
		if err != nil {
			return utils.PaginationResult{}, err
		}
		return utils.CreatePaginationResult(ingredients, total, params.PaginationParams), nil
	})
}

// GET /ingredients/:id
func (h *IngredientHandler) GetIngredient(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "ingredient")
	if !ok {
		return
	}

	ingredient, err := h.ingredientService.GetIngredient(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, ingredient)
}

// POST /ingredients
func (h *IngredientHandler) CreateIngredient(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.CreateIngredientRequest
	if !bindJSON(c, &req) {
		return
	}

	ingredient, err := h.ingredientService.AddIngredient(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message":    i18n.T(lang, i18n.KeyIngredientCreated),
		"ingredient": ingredient,
	})
}

// PUT /ingredients/:id
func (h *IngredientHandler) UpdateIngredient(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	id, ok := parseIDParam(c, "id", "ingredient")
	if !ok {
		return
	}

	var req services.UpdateIngredientRequest
	if !bindJSON(c, &req) {
		return
	}

	ingredient, err := h.ingredientService.UpdateIngredient(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":    i18n.T(lang, i18n.KeyIngredientUpdated),
		"ingredient": ingredient,
	})
}

// PUT /ingredients/:id/price
func (h *IngredientHandler) UpdatePrice(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	id, ok := parseIDParam(c, "id", "ingredient")
	if !ok {
		return
	}

	var req services.UpdatePriceRequest
	if !bindJSON(c, &req) {
		return
	}

	change, err := h.ingredientService.UpdateIngredientPrice(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyIngredientPriceUpdated),
		"change":  change,
	})
}

// GET /ingredients/:id/price-history
func (h *IngredientHandler) GetPriceHistory(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "ingredient")
	if !ok {
		return
	}

	history, err := h.ingredientService.GetPriceHistory(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, history)
}

// DELETE /ingredients/:id
func (h *IngredientHandler) DeleteIngredient(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	id, ok := parseIDParam(c, "id", "ingredient")
	if !ok {
		return
	}

	if err := h.ingredientService.DeleteIngredient(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyIngredientDeleted),
	})
}
