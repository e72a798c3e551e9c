// Package pricing evaluates flash-sale windows and coupon discounts.
package pricing

import (
	"time"

	"storefront-service/internal/models"

	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)

	// MaxFlashSalePercentage is the largest discount a flash sale may carry
	MaxFlashSalePercentage = decimal.RequireFromString("99.99")
)

// EvaluateFlashSale derives the live status of a sale from the clock.
// The time window wins over the stored status; the stored status only
// switches an in-window sale on or off.
func EvaluateFlashSale(sale *models.FlashSale, now time.Time) models.FlashSaleStatus {
	switch {
	case now.Before(sale.StartsAt):
		return models.FlashSaleScheduled
	case now.After(sale.EndsAt):
		return models.FlashSaleExpired
	case sale.Status == models.FlashSaleActive && !sale.UsageExhausted():
		return models.FlashSaleActive
	default:
		return models.FlashSaleInactive
	}
}

// IsLive reports whether the sale currently discounts its products
func IsLive(sale *models.FlashSale, now time.Time) bool {
	return EvaluateFlashSale(sale, now) == models.FlashSaleActive
}

// FlashSalePrice applies a percentage discount: price × (1 − pct/100), rounded half-up to cents.
func FlashSalePrice(price, percentage decimal.Decimal) decimal.Decimal {
	factor := hundred.Sub(percentage).Div(hundred)
	return Round(price.Mul(factor))
}

// BestFlashSale returns the live sale with the deepest discount covering productID, or nil
func BestFlashSale(productID int64, sales []models.FlashSale, now time.Time) *models.FlashSale {
	var best *models.FlashSale
	for i := range sales {
		sale := &sales[i]
		if !sale.Covers(productID) || !IsLive(sale, now) {
			continue
		}
		if best == nil || sale.DiscountPercentage.GreaterThan(best.DiscountPercentage) {
			best = sale
		}
	}
	return best
}

// Quote is the price a product sells for right now
type Quote struct {
	ProductID   int64           `json:"product_id"`
	BasePrice   decimal.Decimal `json:"base_price"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	FlashSaleID *int64          `json:"flash_sale_id,omitempty"`
}

// Discounted reports whether the unit price is below the regular price
func (q Quote) Discounted() bool {
	return q.UnitPrice.LessThan(q.BasePrice)
}

// QuoteProduct prices a product against the live flash sales.
// The flash sale discounts the list price; the product's own sale price is kept when it is lower.
func QuoteProduct(product *models.Product, sales []models.FlashSale, now time.Time) Quote {
	q := Quote{
		ProductID: product.ID,
		BasePrice: product.BasePrice(),
		UnitPrice: product.BasePrice(),
	}

	sale := BestFlashSale(product.ID, sales, now)
	if sale == nil {
		return q
	}

	salePrice := FlashSalePrice(product.Price, sale.DiscountPercentage)
	if salePrice.LessThan(q.UnitPrice) {
		id := sale.ID
		q.UnitPrice = salePrice
		q.FlashSaleID = &id
	}
	return q
}

// Round rounds an amount to currency minor units, half away from zero
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
