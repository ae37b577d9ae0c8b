// internal/services/helpers_test.go
package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/javajoker/invoice-backend/internal/models"
)

type recordingInvalidator struct {
	mu    sync.Mutex
	calls [][]string
}

func (r *recordingInvalidator) Invalidate(_ context.Context, collections ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, collections)
}

func (r *recordingInvalidator) invalidated(collection string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, call := range r.calls {
		for _, c := range call {
			if c == collection {
				return true
			}
		}
	}
	return false
}

func (r *recordingInvalidator) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}

// fakeClock is a settable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func seedUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	user := &models.User{Username: "clerk", Email: email, Role: models.UserRoleStaff, PasswordHash: "x"}
	require.NoError(t, db.Create(user).Error)
	return user
}

func seedIngredient(t *testing.T, db *gorm.DB, name, cost string) *models.Ingredient {
	t.Helper()
	ingredient := &models.Ingredient{Name: name, Unit: "g", CostPerUnit: dec(cost)}
	require.NoError(t, db.Create(ingredient).Error)
	return ingredient
}

func seedSizePrice(t *testing.T, db *gorm.DB, size string, price int64) *models.ProductSizePrice {
	t.Helper()
	sizePrice := &models.ProductSizePrice{Size: size, Price: price}
	require.NoError(t, db.Create(sizePrice).Error)
	return sizePrice
}

func seedProduct(t *testing.T, db *gorm.DB, name string) *models.Product {
	t.Helper()
	product := &models.Product{Name: name, NameKey: productNameKey(name)}
	require.NoError(t, db.Create(product).Error)
	return product
}

func seedComponent(t *testing.T, db *gorm.DB, sizePrice *models.ProductSizePrice, ingredient *models.Ingredient, qty string) *models.SizeComponent {
	t.Helper()
	component := &models.SizeComponent{
		SizePriceID:    sizePrice.ID,
		IngredientID:   ingredient.ID,
		QuantityNeeded: dec(qty),
	}
	require.NoError(t, db.Create(component).Error)
	return component
}

func requireKind(t *testing.T, err error, kind ErrorKind) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind, KindOf(err), "unexpected error: %v", err)
}
