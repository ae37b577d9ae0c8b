// internal/services/store_failure_test.go
package services

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/javajoker/invoice-backend/internal/config"
	"github.com/javajoker/invoice-backend/internal/utils"
)

// newMockDB returns a PostgreSQL-dialect gorm handle backed by sqlmock.
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		TranslateError:         true,
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	return db, mock
}

var errConnRefused = errors.New("dial tcp 10.0.0.5:5432: connect: connection refused")

func TestReadFailureIsInfrastructure(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery("SELECT").WillReturnError(errConnRefused)

	_, err := NewIngredientService(db, nil).GetIngredient(context.Background(), uuid.New())
	requireKind(t, err, KindInfrastructure)
	assert.NotContains(t, PublicMessage(err), "10.0.0.5")
	assert.ErrorIs(t, err, errConnRefused)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBeginFailureWritesNothing(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin().WillReturnError(errConnRefused)

	inv := &recordingInvalidator{}
	_, err := NewIngredientService(db, inv).UpdateIngredientPrice(context.Background(), uuid.New(), &UpdatePriceRequest{NewPrice: dec("2")})
	requireKind(t, err, KindInfrastructure)
	assert.False(t, inv.invalidated(CollectionIngredients))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestForeignKeyViolationAtDeleteIsConflict(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT count").WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec("DELETE FROM \"ingredient_price_history\"").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM \"ingredients\"").WillReturnError(&pgconn.PgError{Code: "23503", ConstraintName: "fk_size_components_ingredient"})
	mock.ExpectRollback()

	err := NewIngredientService(db, nil).DeleteIngredient(context.Background(), uuid.New())
	requireKind(t, err, KindConflict)
	assert.Equal(t, "ingredient is used by one or more recipes", PublicMessage(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRateLimiterStoreFailure(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery("SELECT").WillReturnError(errConnRefused)

	limiter := NewRateLimiter(db, config.RateLimitConfig{})
	_, err := limiter.CheckRateLimit(context.Background(), "email:clerk@example.com")
	requireKind(t, err, KindInfrastructure)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListFailureIsInfrastructure(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery("SELECT count").WillReturnError(errConnRefused)

	_, _, err := NewInvoiceService(db, nil).ListInvoices(context.Background(), InvoiceSearchParams{
		PaginationParams: utils.PaginationParams{Search: "inv"},
	})
	requireKind(t, err, KindInfrastructure)
	assert.NoError(t, mock.ExpectationsWereMet())
}
