package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"storefront-service/internal/models"
	"storefront-service/internal/store"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurrentFlashSales(t *testing.T) {
	f := newFixture(t)
	f.addLiveSale(1, "20", 4)
	f.repo.AddFlashSale(models.FlashSale{
		ID: 2, Name: "Diwali", DiscountPercentage: dec("10"), Status: models.FlashSaleActive,
		StartsAt: testNow.Add(3*time.Hour + 10*time.Minute), EndsAt: testNow.Add(72 * time.Hour),
	})
	f.repo.AddFlashSale(models.FlashSale{
		ID: 3, Name: "Last week", DiscountPercentage: dec("10"), Status: models.FlashSaleActive,
		StartsAt: testNow.Add(-96 * time.Hour), EndsAt: testNow.Add(-time.Minute),
	})
	f.repo.AddFlashSale(models.FlashSale{
		ID: 4, Name: "Paused", DiscountPercentage: dec("10"), Status: models.FlashSaleInactive,
		StartsAt: testNow.Add(-time.Hour), EndsAt: testNow.Add(time.Hour),
	})

	views, err := f.promotions.CurrentFlashSales(context.Background())
	require.NoError(t, err)
	require.Len(t, views, 2)

	live := views[0]
	assert.Equal(t, int64(1), live.ID)
	assert.Equal(t, models.FlashSaleActive, live.LiveStatus)
	assert.Equal(t, "Live now", live.Badge.Label)
	assert.Equal(t, "2d 0h left", live.TimeRemaining)

	upcoming := views[1]
	assert.Equal(t, int64(2), upcoming.ID)
	assert.Equal(t, models.FlashSaleScheduled, upcoming.LiveStatus)
	assert.Equal(t, "Coming soon", upcoming.Badge.Label)
	assert.Equal(t, "starts in 3h 10m", upcoming.TimeRemaining)
}

func TestFlashSalesServedFromCache(t *testing.T) {
	f := newFixture(t)
	f.addLiveSale(1, "20", 4)
	ctx := context.Background()

	first, err := f.promotions.FlashSales(ctx)
	require.NoError(t, err)
	require.Len(t, first, 1)

	// a sale written behind the service's back stays invisible until the cache is dropped
	f.addLiveSale(2, "30", 1)
	cached, err := f.promotions.FlashSales(ctx)
	require.NoError(t, err)
	assert.Len(t, cached, 1)

	require.NoError(t, f.cache.InvalidateFlashSales(ctx))
	fresh, err := f.promotions.FlashSales(ctx)
	require.NoError(t, err)
	assert.Len(t, fresh, 2)
}

func TestFlashSalesWithoutCache(t *testing.T) {
	f := newFixture(t)
	f.addLiveSale(1, "20", 4)
	f.mr.Close()

	sales, err := f.promotions.FlashSales(context.Background())
	require.NoError(t, err)
	assert.Len(t, sales, 1)
}

func TestValidateCoupon(t *testing.T) {
	f := newFixture(t)
	f.addPujaCoupon()
	ctx := context.Background()

	check, err := f.promotions.ValidateCoupon(ctx, " puja120 ", dec("600"))
	require.NoError(t, err)
	assert.True(t, check.Valid)
	assert.Equal(t, "PUJA120", check.Code)
	assert.True(t, dec("120").Equal(check.Discount))
	assert.True(t, dec("480").Equal(check.Final))

	check, err = f.promotions.ValidateCoupon(ctx, "PUJA120", dec("450"))
	require.NoError(t, err)
	assert.False(t, check.Valid)
	assert.Equal(t, "minimum order not met", check.Message)
	assert.True(t, dec("450").Equal(check.Final))
	assert.Equal(t, 0, f.repo.CouponUsedCount("PUJA120"), "checking never redeems")

	_, err = f.promotions.ValidateCoupon(ctx, "GHOST", dec("600"))
	requireRule(t, err, models.CodeCouponNotFound)

	_, err = f.promotions.ValidateCoupon(ctx, "  ", dec("600"))
	requireRule(t, err, models.CodeCouponNotFound)
}

func TestActiveCoupons(t *testing.T) {
	f := newFixture(t)
	f.addPujaCoupon()
	expired := testNow.Add(-time.Hour)
	f.repo.AddCoupon(models.Coupon{
		ID: 2, Code: "OLD", DiscountType: models.DiscountTypeFixedAmount, Value: dec("50"),
		ValidUntil: &expired, IsActive: true,
	})
	f.repo.AddCoupon(models.Coupon{
		ID: 3, Code: "OFF", DiscountType: models.DiscountTypeFixedAmount, Value: dec("50"),
	})

	coupons, err := f.promotions.ActiveCoupons(context.Background())
	require.NoError(t, err)
	require.Len(t, coupons, 1)
	assert.Equal(t, "PUJA120", coupons[0].Code)
}

func TestCreateFlashSale(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.promotions.FlashSales(ctx)
	require.NoError(t, err)
	require.True(t, f.mr.Exists("cache:flash_sales"))

	sale, err := f.promotions.CreateFlashSale(ctx, &CreateFlashSaleRequest{
		Name:               "  Navaratri  ",
		DiscountPercentage: dec("15"),
		StartsAt:           testNow,
		EndsAt:             testNow.Add(24 * time.Hour),
		ProductIDs:         []int64{1, 4},
	})
	require.NoError(t, err)
	assert.NotZero(t, sale.ID)
	assert.Equal(t, "Navaratri", sale.Name)
	assert.Equal(t, models.FlashSaleActive, sale.Status)
	assert.False(t, f.mr.Exists("cache:flash_sales"))

	view, err := f.catalog.GetProduct(ctx, 4)
	require.NoError(t, err)
	assert.True(t, dec("1699.15").Equal(view.Pricing.UnitPrice), view.Pricing.UnitPrice.String())
}

func TestCreateFlashSaleValidation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name  string
		req   CreateFlashSaleRequest
		field string
	}{
		{
			name:  "full discount",
			req:   CreateFlashSaleRequest{Name: "x", DiscountPercentage: dec("100"), StartsAt: testNow, EndsAt: testNow.Add(time.Hour), ProductIDs: []int64{1}},
			field: "discount_percentage",
		},
		{
			name:  "negative discount",
			req:   CreateFlashSaleRequest{Name: "x", DiscountPercentage: dec("-5"), StartsAt: testNow, EndsAt: testNow.Add(time.Hour), ProductIDs: []int64{1}},
			field: "discount_percentage",
		},
		{
			name:  "ends before it starts",
			req:   CreateFlashSaleRequest{Name: "x", DiscountPercentage: dec("10"), StartsAt: testNow, EndsAt: testNow.Add(-time.Hour), ProductIDs: []int64{1}},
			field: "ends_at",
		},
		{
			name:  "ends when it starts",
			req:   CreateFlashSaleRequest{Name: "x", DiscountPercentage: dec("10"), StartsAt: testNow, EndsAt: testNow, ProductIDs: []int64{1}},
			field: "ends_at",
		},
		{
			name:  "no products",
			req:   CreateFlashSaleRequest{Name: "x", DiscountPercentage: dec("10"), StartsAt: testNow, EndsAt: testNow.Add(time.Hour)},
			field: "product_ids",
		},
		{
			name:  "stored status",
			req:   CreateFlashSaleRequest{Name: "x", DiscountPercentage: dec("10"), StartsAt: testNow, EndsAt: testNow.Add(time.Hour), ProductIDs: []int64{1}, Status: models.FlashSaleExpired},
			field: "status",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			_, err := f.promotions.CreateFlashSale(context.Background(), &req)
			var verrs validation.Errors
			require.True(t, errors.As(err, &verrs), "got %v", err)
			assert.Contains(t, verrs, tt.field)
		})
	}
}

func TestSetFlashSaleStatus(t *testing.T) {
	f := newFixture(t)
	f.addLiveSale(1, "20", 4)
	ctx := context.Background()

	sale, err := f.promotions.SetFlashSaleStatus(ctx, 1, models.FlashSaleInactive)
	require.NoError(t, err)
	assert.Equal(t, models.FlashSaleInactive, sale.Status)

	view, err := f.catalog.GetProduct(ctx, 4)
	require.NoError(t, err)
	assert.False(t, view.Pricing.Discounted(), "paused sales stop discounting")

	_, err = f.promotions.SetFlashSaleStatus(ctx, 1, models.FlashSaleExpired)
	assert.True(t, models.IsRuleRejection(err))

	_, err = f.promotions.SetFlashSaleStatus(ctx, 99, models.FlashSaleActive)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestCreateCoupon(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	coupon, err := f.promotions.CreateCoupon(ctx, &CreateCouponRequest{
		Code:                  "diwali-10",
		DiscountType:          models.DiscountTypePercentage,
		Value:                 dec("10"),
		MaximumDiscountAmount: decPtr("300"),
	})
	require.NoError(t, err)
	assert.Equal(t, "DIWALI-10", coupon.Code)
	assert.True(t, coupon.IsActive)

	_, err = f.promotions.CreateCoupon(ctx, &CreateCouponRequest{
		Code:         "Diwali-10",
		DiscountType: models.DiscountTypeFixedAmount,
		Value:        dec("50"),
	})
	ruleErr := requireRule(t, err, models.CodeDuplicateCode)
	assert.ErrorIs(t, ruleErr, store.ErrDuplicateCode)
}

func TestCreateCouponValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.promotions.CreateCoupon(context.Background(), &CreateCouponRequest{
		Code:                  "no spaces",
		DiscountType:          models.DiscountTypeFixedAmount,
		Value:                 dec("50"),
		MaximumDiscountAmount: decPtr("10"),
	})
	var verrs validation.Errors
	require.True(t, errors.As(err, &verrs), "got %v", err)
	assert.Contains(t, verrs, "code")
	assert.Contains(t, verrs, "maximum_discount_amount")

	_, err = f.promotions.CreateCoupon(context.Background(), &CreateCouponRequest{
		Code:         "HALF",
		DiscountType: models.DiscountTypePercentage,
		Value:        dec("150"),
	})
	require.True(t, errors.As(err, &verrs), "got %v", err)
	assert.Contains(t, verrs, "value")
}
