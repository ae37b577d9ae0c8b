// internal/services/recipe_service_test.go
package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/javajoker/invoice-backend/internal/models"
	"github.com/javajoker/invoice-backend/internal/testutil"
)

type RecipeServiceTestSuite struct {
	suite.Suite
	db          *gorm.DB
	invalidator *recordingInvalidator
	recipes     *RecipeService
	ingredients *IngredientService
	ctx         context.Context

	large *models.ProductSizePrice
	milk  *models.Ingredient
	cocoa *models.Ingredient
}

func (suite *RecipeServiceTestSuite) SetupTest() {
	suite.db = testutil.NewDB(suite.T())
	suite.invalidator = &recordingInvalidator{}
	suite.recipes = NewRecipeService(suite.db, suite.invalidator)
	suite.ingredients = NewIngredientService(suite.db, nil)
	suite.ctx = context.Background()

	suite.large = seedSizePrice(suite.T(), suite.db, "Large", 25000)
	suite.milk = seedIngredient(suite.T(), suite.db, "Milk", "1.5")
	suite.cocoa = seedIngredient(suite.T(), suite.db, "Cocoa", "4")
}

func (suite *RecipeServiceTestSuite) upsert(ingredient *models.Ingredient, qty string) *models.SizeComponent {
	component, err := suite.recipes.UpsertSizeComponent(suite.ctx, suite.large.ID, &UpsertComponentRequest{
		IngredientID:   ingredient.ID,
		QuantityNeeded: dec(qty),
	})
	suite.Require().NoError(err)
	return component
}

func (suite *RecipeServiceTestSuite) componentCount() int64 {
	var count int64
	suite.Require().NoError(suite.db.Model(&models.SizeComponent{}).Where("size_price_id = ?", suite.large.ID).Count(&count).Error)
	return count
}

func (suite *RecipeServiceTestSuite) TestUpsertInsertsThenUpdatesInPlace() {
	first := suite.upsert(suite.milk, "2")
	suite.True(suite.invalidator.invalidated(CollectionSizePrices))

	second := suite.upsert(suite.milk, "3")
	suite.Equal(first.ID, second.ID)
	suite.True(second.QuantityNeeded.Equal(dec("3")))
	suite.Equal(int64(1), suite.componentCount())
}

func (suite *RecipeServiceTestSuite) TestUpsertValidation() {
	for _, qty := range []string{"0", "-1"} {
		_, err := suite.recipes.UpsertSizeComponent(suite.ctx, suite.large.ID, &UpsertComponentRequest{
			IngredientID:   suite.milk.ID,
			QuantityNeeded: dec(qty),
		})
		requireKind(suite.T(), err, KindValidation)
	}

	_, err := suite.recipes.UpsertSizeComponent(suite.ctx, suite.large.ID, &UpsertComponentRequest{QuantityNeeded: dec("1")})
	requireKind(suite.T(), err, KindValidation)
	suite.Equal(int64(0), suite.componentCount())
}

func (suite *RecipeServiceTestSuite) TestUpsertRequiresExistingRows() {
	_, err := suite.recipes.UpsertSizeComponent(suite.ctx, uuid.New(), &UpsertComponentRequest{
		IngredientID:   suite.milk.ID,
		QuantityNeeded: dec("1"),
	})
	requireKind(suite.T(), err, KindNotFound)

	_, err = suite.recipes.UpsertSizeComponent(suite.ctx, suite.large.ID, &UpsertComponentRequest{
		IngredientID:   uuid.New(),
		QuantityNeeded: dec("1"),
	})
	requireKind(suite.T(), err, KindNotFound)
}

func (suite *RecipeServiceTestSuite) TestCOGSIsSumOfComponents() {
	suite.upsert(suite.milk, "2")
	suite.upsert(suite.cocoa, "0.5")

	cogs, err := suite.recipes.CalculateSizeCOGS(suite.ctx, suite.large.ID)
	suite.Require().NoError(err)
	suite.True(cogs.Equal(dec("5")), "got %s", cogs)

	breakdown, err := suite.recipes.GetComponentsBySizePrice(suite.ctx, suite.large.ID)
	suite.Require().NoError(err)
	suite.Require().Len(breakdown.Components, 2)
	suite.True(breakdown.TotalCOGS.Equal(cogs))

	// ordered by ingredient name
	suite.Equal("Cocoa", breakdown.Components[0].IngredientName)
	suite.Equal("g", breakdown.Components[0].Unit)
	suite.True(breakdown.Components[0].CalculatedCost.Equal(dec("2")))
	suite.True(breakdown.Components[1].CalculatedCost.Equal(dec("3")))
}

func (suite *RecipeServiceTestSuite) TestCOGSFollowsIngredientPrice() {
	suite.upsert(suite.milk, "2")

	cogs, err := suite.recipes.CalculateSizeCOGS(suite.ctx, suite.large.ID)
	suite.Require().NoError(err)
	suite.True(cogs.Equal(dec("3")))

	_, err = suite.ingredients.UpdateIngredientPrice(suite.ctx, suite.milk.ID, &UpdatePriceRequest{NewPrice: dec("2")})
	suite.Require().NoError(err)

	cogs, err = suite.recipes.CalculateSizeCOGS(suite.ctx, suite.large.ID)
	suite.Require().NoError(err)
	suite.True(cogs.Equal(dec("4")), "got %s", cogs)
}

func (suite *RecipeServiceTestSuite) TestEmptyRecipeCostsNothing() {
	breakdown, err := suite.recipes.GetComponentsBySizePrice(suite.ctx, suite.large.ID)
	suite.Require().NoError(err)
	suite.Empty(breakdown.Components)
	suite.True(breakdown.TotalCOGS.IsZero())

	_, err = suite.recipes.CalculateSizeCOGS(suite.ctx, uuid.New())
	requireKind(suite.T(), err, KindNotFound)
}

func (suite *RecipeServiceTestSuite) TestDeleteSizeComponent() {
	component := suite.upsert(suite.milk, "2")

	suite.Require().NoError(suite.recipes.DeleteSizeComponent(suite.ctx, component.ID))
	suite.Equal(int64(0), suite.componentCount())

	requireKind(suite.T(), suite.recipes.DeleteSizeComponent(suite.ctx, component.ID), KindNotFound)
}

func TestRecipeServiceTestSuite(t *testing.T) {
	suite.Run(t, new(RecipeServiceTestSuite))
}
