// internal/i18n/keys.go
package i18n

// Translation keys constants
const (
	// Common
	KeySuccess = "success"
	KeyError   = "error"

	// Authentication
	KeyAuthRequired           = "auth.required"
	KeyAuthInvalidToken       = "auth.invalid_token"
	KeyAuthInvalidCredentials = "auth.invalid_credentials"
	KeyAuthLocked             = "auth.locked"
	KeyAuthLoginSuccess       = "auth.login_success"
	KeyAuthRegisterSuccess    = "auth.register_success"
	KeyAccessDenied           = "auth.access_denied"

	// Ingredients
	KeyIngredientCreated      = "ingredient.created"
	KeyIngredientUpdated      = "ingredient.updated"
	KeyIngredientDeleted      = "ingredient.deleted"
	KeyIngredientPriceUpdated = "ingredient.price_updated"

	// Recipes
	KeyComponentSaved   = "component.saved"
	KeyComponentDeleted = "component.deleted"

	// Products
	KeyProductCreated = "product.created"
	KeyProductUpdated = "product.updated"
	KeyProductDeleted = "product.deleted"

	// Size prices
	KeySizePriceCreated = "size_price.created"
	KeySizePriceUpdated = "size_price.updated"
	KeySizePriceDeleted = "size_price.deleted"

	// Invoices
	KeyInvoiceCreated       = "invoice.created"
	KeyInvoiceUpdated       = "invoice.updated"
	KeyInvoiceStatusUpdated = "invoice.status_updated"
	KeyInvoiceDeleted       = "invoice.deleted"

	// Validation
	KeyValidationRequired  = "validation.required"
	KeyValidationInvalid   = "validation.invalid"
	KeyValidationInvalidID = "validation.invalid_id"

	// Service error kinds
	KeyErrorNotFound        = "error.not_found"
	KeyErrorDuplicate       = "error.duplicate"
	KeyErrorConflict        = "error.conflict"
	KeyErrorInfrastructure  = "error.infrastructure"
	KeyErrorTooManyRequests = "error.too_many_requests"
)
