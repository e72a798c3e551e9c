package service

import (
	"context"
	"errors"
	"testing"

	"storefront-service/internal/models"
	"storefront-service/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetProductWithFlashSale(t *testing.T) {
	f := newFixture(t)
	f.addLiveSale(7, "25", 4)

	view, err := f.catalog.GetProduct(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, "Brass Ganesha Idol", view.Name)
	assert.True(t, view.InStock)
	assert.True(t, dec("1999.00").Equal(view.Pricing.BasePrice))
	assert.True(t, dec("1499.25").Equal(view.Pricing.UnitPrice), view.Pricing.UnitPrice.String())
	require.NotNil(t, view.Pricing.FlashSaleID)
	assert.Equal(t, int64(7), *view.Pricing.FlashSaleID)
}

func TestGetProductNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.catalog.GetProduct(context.Background(), 404)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestListProducts(t *testing.T) {
	f := newFixture(t)
	f.addLiveSale(7, "10", 1)

	views, err := f.catalog.ListProducts(context.Background(), store.ProductFilter{Search: "incense"})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.True(t, dec("135.00").Equal(views[0].Pricing.UnitPrice))

	all, err := f.catalog.ListProducts(context.Background(), store.ProductFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.True(t, all[2].InStock, "made-to-order products are always in stock")
	assert.False(t, all[1].Pricing.Discounted())
}

func TestCategoryTree(t *testing.T) {
	f := newFixture(t)
	parent := int64(1)
	f.repo.AddCategory(models.Category{ID: 2, Name: "Ganesha", Slug: "ganesha", ParentID: &parent})
	f.repo.AddCategory(models.Category{ID: 3, Name: "Lakshmi", Slug: "lakshmi", ParentID: &parent})
	f.repo.AddCategory(models.Category{ID: 4, Name: "Puja Items", Slug: "puja-items"})

	tree, err := f.catalog.CategoryTree(context.Background())
	require.NoError(t, err)
	require.Len(t, tree, 2)
	assert.Equal(t, "Idols", tree[0].Name)
	require.Len(t, tree[0].Children, 2)
	assert.Equal(t, "Ganesha", tree[0].Children[0].Name)
	assert.Empty(t, tree[1].Children)
}

func TestShippingQuote(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	quote, err := f.shipping.Quote(ctx, dhakaAddress())
	require.NoError(t, err)
	assert.Equal(t, "Inside Dhaka", quote.Zone)
	assert.True(t, dec("60").Equal(quote.Cost))
	assert.Equal(t, "1-2 days", quote.DeliveryTime)
	assert.True(t, quote.Matched)

	quote, err = f.shipping.QuoteLocation(ctx, "", "Sylhet Sadar", "")
	require.NoError(t, err)
	assert.Equal(t, "Outside Dhaka", quote.Zone)
	assert.True(t, quote.Matched)

	quote, err = f.shipping.QuoteLocation(ctx, "Rangpur", "", "")
	require.NoError(t, err)
	assert.Equal(t, "Outside Dhaka", quote.Zone)
	assert.False(t, quote.Matched)
}

func TestShippingQuoteConfiguredFallback(t *testing.T) {
	f := newFixture(t)
	svc := NewShippingService(f.repo, "inside dhaka")

	quote, err := svc.QuoteLocation(context.Background(), "Rangpur", "", "")
	require.NoError(t, err)
	assert.Equal(t, "Inside Dhaka", quote.Zone)
	assert.False(t, quote.Matched)
}

func TestShippingQuoteStorageFailure(t *testing.T) {
	f := newFixture(t)
	f.repo.FailOn("ListShippingZones", errors.New("timeout"))

	_, err := f.shipping.Quote(context.Background(), dhakaAddress())
	assert.Error(t, err)
}

func TestHasPermission(t *testing.T) {
	f := newFixture(t)
	f.repo.Grant(7, "orders.update", "orders.view")
	access := NewAccessService(f.repo)
	ctx := context.Background()

	ok, err := access.HasPermission(ctx, 7, "orders.update")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = access.HasPermission(ctx, 7, "flash_sales.manage")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = access.HasPermission(ctx, 8, "orders.view")
	require.NoError(t, err)
	assert.False(t, ok)
}
