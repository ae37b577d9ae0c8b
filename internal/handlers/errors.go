// internal/handlers/errors.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/javajoker/invoice-backend/internal/i18n"
	"github.com/javajoker/invoice-backend/internal/services"
	"github.com/javajoker/invoice-backend/internal/utils"
)

type errorMapping struct {
	status int
	code   string
}

var errorMappings = map[services.ErrorKind]errorMapping{
	services.KindValidation:     {http.StatusBadRequest, "VALIDATION_ERROR"},
	services.KindUnauthorized:   {http.StatusUnauthorized, "UNAUTHORIZED"},
	services.KindNotFound:       {http.StatusNotFound, "NOT_FOUND"},
	services.KindDuplicate:      {http.StatusConflict, "DUPLICATE"},
	services.KindConflict:       {http.StatusConflict, "CONFLICT"},
	services.KindLocked:         {http.StatusTooManyRequests, "LOCKED"},
	services.KindInfrastructure: {http.StatusInternalServerError, "INTERNAL_ERROR"},
}

// respondError renders a service error. Infrastructure failures get a translated generic
// message; the cause stays in the server log.
func respondError(c *gin.Context, err error) {
	kind := services.KindOf(err)
	mapping, ok := errorMappings[kind]
	if !ok {
		mapping = errorMappings[services.KindInfrastructure]
		kind = services.KindInfrastructure
	}

	message := services.PublicMessage(err)
	if kind == services.KindInfrastructure {
		message = i18n.T(utils.GetLangFromContext(c), i18n.KeyErrorInfrastructure)
	}

	utils.ErrorResponse(c, mapping.status, mapping.code, message, nil)
}

// parseIDParam reads a UUID path parameter, answering 400 when it is malformed.
func parseIDParam(c *gin.Context, name, resource string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		lang := utils.GetLangFromContext(c)
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalidID, resource), nil)
		return uuid.Nil, false
	}
	return id, true
}

// bindJSON decodes the request body into req, answering 400 on malformed input.
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		lang := utils.GetLangFromContext(c)
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return false
	}
	return true
}
