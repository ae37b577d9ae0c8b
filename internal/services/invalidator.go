// internal/services/invalidator.go
package services

import "context"

// Collection names passed to Invalidator.
const (
	CollectionInvoices    = "invoices"
	CollectionIngredients = "ingredients"
	CollectionProducts    = "products"
	CollectionSizePrices  = "size_prices"
)

// Invalidator is notified after a committed mutation so that callers can drop cached
// views of the affected collections. Services never own cache state themselves.
type Invalidator interface {
	Invalidate(ctx context.Context, collections ...string)
}

// InvalidatorFunc adapts a function to Invalidator.
type InvalidatorFunc func(ctx context.Context, collections ...string)

func (f InvalidatorFunc) Invalidate(ctx context.Context, collections ...string) {
	f(ctx, collections...)
}

type noopInvalidator struct{}

func (noopInvalidator) Invalidate(context.Context, ...string) {}

func invalidatorOrNoop(inv Invalidator) Invalidator {
	if inv == nil {
		return noopInvalidator{}
	}
	return inv
}
