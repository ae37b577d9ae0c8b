// internal/services/invoice_service_test.go
package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/javajoker/invoice-backend/internal/models"
	"github.com/javajoker/invoice-backend/internal/testutil"
)

type InvoiceServiceTestSuite struct {
	suite.Suite
	db          *gorm.DB
	invalidator *recordingInvalidator
	service     *InvoiceService
	ingredients *IngredientService
	ctx         context.Context

	user  *models.User
	cake  *models.Product
	tart  *models.Product
	large *models.ProductSizePrice
	small *models.ProductSizePrice
	milk  *models.Ingredient
	cocoa *models.Ingredient
}

func (suite *InvoiceServiceTestSuite) SetupTest() {
	suite.db = testutil.NewDB(suite.T())
	suite.invalidator = &recordingInvalidator{}
	suite.service = NewInvoiceService(suite.db, suite.invalidator)
	suite.ingredients = NewIngredientService(suite.db, nil)
	suite.ctx = context.Background()

	suite.user = seedUser(suite.T(), suite.db, "clerk@example.com")
	suite.cake = seedProduct(suite.T(), suite.db, "Cake")
	suite.tart = seedProduct(suite.T(), suite.db, "Tart")
	suite.large = seedSizePrice(suite.T(), suite.db, "Large", 30000)
	suite.small = seedSizePrice(suite.T(), suite.db, "Small", 15000)
	suite.milk = seedIngredient(suite.T(), suite.db, "Milk", "1.5")
	suite.cocoa = seedIngredient(suite.T(), suite.db, "Cocoa", "4")

	// Large costs 2 × 1.5 + 0.5 × 4 = 5, Small costs 1 × 1.5 = 1.5.
	seedComponent(suite.T(), suite.db, suite.large, suite.milk, "2")
	seedComponent(suite.T(), suite.db, suite.large, suite.cocoa, "0.5")
	seedComponent(suite.T(), suite.db, suite.small, suite.milk, "1")
}

func (suite *InvoiceServiceTestSuite) request(number string, items ...InvoiceItemRequest) *InvoiceRequest {
	return &InvoiceRequest{
		InvoiceNumber:  number,
		BuyerName:      "Ana",
		InvoiceDate:    time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		ShippingCost:   1000,
		DiscountAmount: 500,
		TotalPrice:     60500,
		Items:          items,
	}
}

func (suite *InvoiceServiceTestSuite) item(product *models.Product, size *models.ProductSizePrice, qty int) InvoiceItemRequest {
	return InvoiceItemRequest{
		ProductID:   product.ID,
		SizePriceID: size.ID,
		Quantity:    qty,
		Subtotal:    size.Price * int64(qty),
	}
}

func (suite *InvoiceServiceTestSuite) submit(number string, items ...InvoiceItemRequest) *models.Invoice {
	invoice, err := suite.service.SubmitInvoice(suite.ctx, suite.user.ID, suite.request(number, items...))
	suite.Require().NoError(err)
	return invoice
}

func (suite *InvoiceServiceTestSuite) counts() (invoices, items int64) {
	suite.Require().NoError(suite.db.Model(&models.Invoice{}).Count(&invoices).Error)
	suite.Require().NoError(suite.db.Model(&models.InvoiceItem{}).Count(&items).Error)
	return invoices, items
}

func (suite *InvoiceServiceTestSuite) storedItems(invoiceID uuid.UUID) map[uuid.UUID]models.InvoiceItem {
	var items []models.InvoiceItem
	suite.Require().NoError(suite.db.Where("invoice_id = ?", invoiceID).Find(&items).Error)
	bySize := make(map[uuid.UUID]models.InvoiceItem, len(items))
	for _, item := range items {
		bySize[item.SizePriceID] = item
	}
	return bySize
}

func (suite *InvoiceServiceTestSuite) TestSubmitRecordsCostBasis() {
	invoice := suite.submit("INV-001", suite.item(suite.cake, suite.large, 2), suite.item(suite.tart, suite.small, 3))

	suite.Equal(models.InvoiceStatusPending, invoice.Status)
	suite.Equal(int64(60500), invoice.TotalPrice)
	suite.Equal(suite.user.ID, invoice.UserID)
	suite.Len(invoice.Items, 2)
	suite.True(suite.invalidator.invalidated(CollectionInvoices))

	items := suite.storedItems(invoice.ID)
	suite.Require().Len(items, 2)
	suite.True(items[suite.large.ID].CostPerItem.Equal(dec("5")))
	suite.True(items[suite.large.ID].TotalCost.Equal(dec("10")))
	suite.True(items[suite.small.ID].CostPerItem.Equal(dec("1.5")))
	suite.True(items[suite.small.ID].TotalCost.Equal(dec("4.5")))
	suite.Equal(int64(60000), items[suite.large.ID].Subtotal)
}

func (suite *InvoiceServiceTestSuite) TestCostBasisSurvivesPriceChange() {
	invoice := suite.submit("INV-002", suite.item(suite.cake, suite.large, 1))

	_, err := suite.ingredients.UpdateIngredientPrice(suite.ctx, suite.milk.ID, &UpdatePriceRequest{NewPrice: dec("2")})
	suite.Require().NoError(err)

	stored, err := suite.service.GetInvoice(suite.ctx, invoice.ID)
	suite.Require().NoError(err)
	suite.Require().Len(stored.Items, 1)
	suite.True(stored.Items[0].CostPerItem.Equal(dec("5")))
	suite.Require().NotNil(stored.Items[0].Product)
	suite.Equal("Cake", stored.Items[0].Product.Name)

	next := suite.submit("INV-003", suite.item(suite.cake, suite.large, 1))
	suite.True(next.Items[0].CostPerItem.Equal(dec("6")), "got %s", next.Items[0].CostPerItem)
}

func (suite *InvoiceServiceTestSuite) TestSubmitValidation() {
	valid := suite.item(suite.cake, suite.large, 1)

	cases := []*InvoiceRequest{
		suite.request("  ", valid),
		func() *InvoiceRequest { r := suite.request("INV-V"); r.Items = []InvoiceItemRequest{}; return r }(),
		suite.request("INV-V"),
		suite.request("INV-V", InvoiceItemRequest{ProductID: suite.cake.ID, SizePriceID: suite.large.ID, Quantity: 0}),
		suite.request("INV-V", InvoiceItemRequest{SizePriceID: suite.large.ID, Quantity: 1}),
	}
	blankBuyer := suite.request("INV-V", valid)
	blankBuyer.BuyerName = " "
	cases = append(cases, blankBuyer)

	for i, req := range cases {
		_, err := suite.service.SubmitInvoice(suite.ctx, suite.user.ID, req)
		suite.Equal(KindValidation, KindOf(err), "case %d: %v", i, err)
	}

	invoices, items := suite.counts()
	suite.Equal(int64(0), invoices)
	suite.Equal(int64(0), items)
	suite.False(suite.invalidator.invalidated(CollectionInvoices))
}

func (suite *InvoiceServiceTestSuite) TestRepeatedLineIsRejected() {
	_, err := suite.service.SubmitInvoice(suite.ctx, suite.user.ID,
		suite.request("INV-R", suite.item(suite.cake, suite.large, 1), suite.item(suite.cake, suite.large, 2)))
	requireKind(suite.T(), err, KindValidation)

	invoices, items := suite.counts()
	suite.Equal(int64(0), invoices)
	suite.Equal(int64(0), items)

	// Same size for different products is fine.
	invoice := suite.submit("INV-R", suite.item(suite.cake, suite.large, 1), suite.item(suite.tart, suite.large, 1))

	_, err = suite.service.UpdateInvoice(suite.ctx, invoice.ID,
		suite.request("INV-R", suite.item(suite.tart, suite.large, 1), suite.item(suite.tart, suite.large, 3)))
	requireKind(suite.T(), err, KindValidation)

	var stored []models.InvoiceItem
	suite.Require().NoError(suite.db.Where("invoice_id = ?", invoice.ID).Find(&stored).Error)
	suite.Len(stored, 2)
}

func (suite *InvoiceServiceTestSuite) TestSubmitRequiresUser() {
	_, err := suite.service.SubmitInvoice(suite.ctx, uuid.Nil, suite.request("INV-U", suite.item(suite.cake, suite.large, 1)))
	requireKind(suite.T(), err, KindUnauthorized)

	_, err = suite.service.SubmitInvoice(suite.ctx, uuid.New(), suite.request("INV-U", suite.item(suite.cake, suite.large, 1)))
	requireKind(suite.T(), err, KindUnauthorized)
}

func (suite *InvoiceServiceTestSuite) TestDuplicateNumberWritesNothing() {
	suite.submit("INV-010", suite.item(suite.cake, suite.large, 1))
	suite.invalidator.reset()

	_, err := suite.service.SubmitInvoice(suite.ctx, suite.user.ID, suite.request("INV-010", suite.item(suite.tart, suite.small, 4)))
	requireKind(suite.T(), err, KindDuplicate)

	invoices, items := suite.counts()
	suite.Equal(int64(1), invoices)
	suite.Equal(int64(1), items)
	suite.False(suite.invalidator.invalidated(CollectionInvoices))
}

func (suite *InvoiceServiceTestSuite) TestUniqueViolationAtInsertIsDuplicate() {
	// Simulates a concurrent insert of the same number landing between the pre-check and
	// this insert.
	suite.Require().NoError(suite.db.Callback().Create().Before("gorm:create").Register("test:race", func(tx *gorm.DB) {
		if tx.Statement.Schema != nil && tx.Statement.Schema.Table == "invoices" {
			tx.AddError(gorm.ErrDuplicatedKey)
		}
	}))

	_, err := suite.service.SubmitInvoice(suite.ctx, suite.user.ID, suite.request("INV-011", suite.item(suite.cake, suite.large, 1)))
	requireKind(suite.T(), err, KindDuplicate)
	suite.Equal(duplicateInvoiceMessage, PublicMessage(err))
}

func (suite *InvoiceServiceTestSuite) TestFailedItemInsertRollsBackInvoice() {
	suite.Require().NoError(suite.db.Callback().Create().Before("gorm:create").Register("test:fail_items", func(tx *gorm.DB) {
		if tx.Statement.Schema != nil && tx.Statement.Schema.Table == "invoice_items" {
			tx.AddError(errors.New("disk I/O error"))
		}
	}))

	_, err := suite.service.SubmitInvoice(suite.ctx, suite.user.ID, suite.request("INV-012", suite.item(suite.cake, suite.large, 1)))
	requireKind(suite.T(), err, KindInfrastructure)
	suite.NotContains(PublicMessage(err), "disk")

	invoices, items := suite.counts()
	suite.Equal(int64(0), invoices)
	suite.Equal(int64(0), items)
}

func (suite *InvoiceServiceTestSuite) TestMissingReferencesWriteNothing() {
	_, err := suite.service.SubmitInvoice(suite.ctx, suite.user.ID, suite.request("INV-013",
		suite.item(suite.cake, suite.large, 1),
		InvoiceItemRequest{ProductID: uuid.New(), SizePriceID: suite.large.ID, Quantity: 1},
	))
	requireKind(suite.T(), err, KindNotFound)

	_, err = suite.service.SubmitInvoice(suite.ctx, suite.user.ID, suite.request("INV-013",
		InvoiceItemRequest{ProductID: suite.cake.ID, SizePriceID: uuid.New(), Quantity: 1},
	))
	requireKind(suite.T(), err, KindNotFound)

	invoices, items := suite.counts()
	suite.Equal(int64(0), invoices)
	suite.Equal(int64(0), items)
}

func (suite *InvoiceServiceTestSuite) TestUpdateReplacesItemsAndKeepsMatchedCostBasis() {
	invoice := suite.submit("INV-020", suite.item(suite.cake, suite.large, 1), suite.item(suite.tart, suite.small, 1))

	_, err := suite.ingredients.UpdateIngredientPrice(suite.ctx, suite.milk.ID, &UpdatePriceRequest{NewPrice: dec("2")})
	suite.Require().NoError(err)
	suite.invalidator.reset()

	req := suite.request("INV-020", suite.item(suite.cake, suite.large, 4), suite.item(suite.tart, suite.large, 1))
	req.BuyerName = "Budi"
	req.TotalPrice = 150000
	updated, err := suite.service.UpdateInvoice(suite.ctx, invoice.ID, req)
	suite.Require().NoError(err)
	suite.Equal("Budi", updated.BuyerName)
	suite.Equal(int64(150000), updated.TotalPrice)
	suite.Len(updated.Items, 2)
	suite.True(suite.invalidator.invalidated(CollectionInvoices))

	var items []models.InvoiceItem
	suite.Require().NoError(suite.db.Where("invoice_id = ?", invoice.ID).Find(&items).Error)
	suite.Require().Len(items, 2)
	for _, item := range items {
		suite.Equal(suite.large.ID, item.SizePriceID)
		switch item.ProductID {
		case suite.cake.ID:
			// matched an existing line: original basis
			suite.True(item.CostPerItem.Equal(dec("5")), "got %s", item.CostPerItem)
			suite.True(item.TotalCost.Equal(dec("20")))
			suite.Equal(4, item.Quantity)
		case suite.tart.ID:
			// new pair: current COGS
			suite.True(item.CostPerItem.Equal(dec("6")), "got %s", item.CostPerItem)
		default:
			suite.Failf("unexpected item", "%v", item.ProductID)
		}
	}
}

func (suite *InvoiceServiceTestSuite) TestUpdateWithoutItemsLeavesItems() {
	invoice := suite.submit("INV-021", suite.item(suite.cake, suite.large, 2))
	before := suite.storedItems(invoice.ID)

	req := suite.request("INV-021-B")
	updated, err := suite.service.UpdateInvoice(suite.ctx, invoice.ID, req)
	suite.Require().NoError(err)
	suite.Equal("INV-021-B", updated.InvoiceNumber)

	after := suite.storedItems(invoice.ID)
	suite.Require().Len(after, 1)
	suite.Equal(before[suite.large.ID].ID, after[suite.large.ID].ID)

	empty := suite.request("INV-021-B")
	empty.Items = []InvoiceItemRequest{}
	_, err = suite.service.UpdateInvoice(suite.ctx, invoice.ID, empty)
	requireKind(suite.T(), err, KindValidation)
}

func (suite *InvoiceServiceTestSuite) TestUpdateNumberUniquenessExcludesSelf() {
	first := suite.submit("INV-030", suite.item(suite.cake, suite.large, 1))
	suite.submit("INV-031", suite.item(suite.cake, suite.large, 1))

	_, err := suite.service.UpdateInvoice(suite.ctx, first.ID, suite.request("INV-030"))
	suite.NoError(err)

	_, err = suite.service.UpdateInvoice(suite.ctx, first.ID, suite.request("INV-031"))
	requireKind(suite.T(), err, KindDuplicate)

	_, err = suite.service.UpdateInvoice(suite.ctx, uuid.New(), suite.request("INV-032"))
	requireKind(suite.T(), err, KindNotFound)
}

func (suite *InvoiceServiceTestSuite) TestFailedUpdateKeepsOldItems() {
	invoice := suite.submit("INV-033", suite.item(suite.cake, suite.large, 2))

	_, err := suite.service.UpdateInvoice(suite.ctx, invoice.ID, suite.request("INV-033",
		InvoiceItemRequest{ProductID: uuid.New(), SizePriceID: suite.small.ID, Quantity: 1},
	))
	requireKind(suite.T(), err, KindNotFound)

	items := suite.storedItems(invoice.ID)
	suite.Require().Len(items, 1)
	suite.Equal(2, items[suite.large.ID].Quantity)
}

func (suite *InvoiceServiceTestSuite) TestUpdateInvoiceStatus() {
	invoice := suite.submit("INV-040", suite.item(suite.cake, suite.large, 1))

	suite.Require().NoError(suite.service.UpdateInvoiceStatus(suite.ctx, invoice.ID, models.InvoiceStatusSuccess))
	stored, err := suite.service.GetInvoice(suite.ctx, invoice.ID)
	suite.Require().NoError(err)
	suite.Equal(models.InvoiceStatusSuccess, stored.Status)

	requireKind(suite.T(), suite.service.UpdateInvoiceStatus(suite.ctx, invoice.ID, "shipped"), KindValidation)
	requireKind(suite.T(), suite.service.UpdateInvoiceStatus(suite.ctx, uuid.New(), models.InvoiceStatusCanceled), KindNotFound)
}

func (suite *InvoiceServiceTestSuite) TestDeleteInvoiceRemovesItems() {
	invoice := suite.submit("INV-050", suite.item(suite.cake, suite.large, 1), suite.item(suite.tart, suite.small, 2))
	suite.submit("INV-051", suite.item(suite.cake, suite.large, 1))

	suite.Require().NoError(suite.service.DeleteInvoice(suite.ctx, invoice.ID))

	invoices, items := suite.counts()
	suite.Equal(int64(1), invoices)
	suite.Equal(int64(1), items)

	requireKind(suite.T(), suite.service.DeleteInvoice(suite.ctx, invoice.ID), KindNotFound)
	_, err := suite.service.GetInvoice(suite.ctx, invoice.ID)
	requireKind(suite.T(), err, KindNotFound)
}

func (suite *InvoiceServiceTestSuite) TestListInvoices() {
	suite.submit("INV-060", suite.item(suite.cake, suite.large, 1))
	second := suite.submit("INV-061", suite.item(suite.cake, suite.large, 1))
	suite.submit("OTHER-1", suite.item(suite.cake, suite.large, 1))
	suite.Require().NoError(suite.service.UpdateInvoiceStatus(suite.ctx, second.ID, models.InvoiceStatusCanceled))

	params := InvoiceSearchParams{}
	params.Search = "inv-06"
	params.Sort = "invoice_number"
	params.Order = "asc"
	list, total, err := suite.service.ListInvoices(suite.ctx, params)
	suite.Require().NoError(err)
	suite.Equal(int64(2), total)
	suite.Equal("INV-060", list[0].InvoiceNumber)

	canceled := models.InvoiceStatusCanceled
	list, total, err = suite.service.ListInvoices(suite.ctx, InvoiceSearchParams{Status: &canceled})
	suite.Require().NoError(err)
	suite.Equal(int64(1), total)
	suite.Equal(second.ID, list[0].ID)
}

func TestInvoiceServiceTestSuite(t *testing.T) {
	suite.Run(t, new(InvoiceServiceTestSuite))
}
