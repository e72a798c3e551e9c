package pricing

import (
	"time"

	"storefront-service/internal/models"

	"github.com/shopspring/decimal"
)

// Rejection explains why a coupon cannot be applied
type Rejection string

const (
	RejectInactive       Rejection = "inactive"
	RejectExpired        Rejection = "expired"
	RejectUsageExhausted Rejection = "usage_exhausted"
	RejectMinimumNotMet  Rejection = "minimum_not_met"
)

var rejectionMessages = map[Rejection]string{
	RejectInactive:       "coupon is not active",
	RejectExpired:        "coupon has expired",
	RejectUsageExhausted: "coupon usage limit reached",
	RejectMinimumNotMet:  "minimum order not met",
}

// Message is the user-facing text for the rejection
func (r Rejection) Message() string {
	if msg, ok := rejectionMessages[r]; ok {
		return msg
	}
	return "coupon cannot be applied"
}

// CouponResult is the outcome of applying a coupon to a subtotal.
// A rejected coupon leaves Final equal to the subtotal.
type CouponResult struct {
	Discount  decimal.Decimal `json:"discount"`
	Final     decimal.Decimal `json:"final"`
	Rejection Rejection       `json:"rejection,omitempty"`
}

// Valid reports whether the coupon was accepted
func (r CouponResult) Valid() bool {
	return r.Rejection == ""
}

// CheckCoupon returns the first validity rule the coupon fails for this subtotal, or "".
func CheckCoupon(c *models.Coupon, subtotal decimal.Decimal, now time.Time) Rejection {
	switch {
	case !c.IsActive:
		return RejectInactive
	case c.ValidUntil != nil && now.After(*c.ValidUntil):
		return RejectExpired
	case c.UsageLimit != nil && c.UsedCount >= *c.UsageLimit:
		return RejectUsageExhausted
	case c.MinimumOrderAmount != nil && subtotal.LessThan(*c.MinimumOrderAmount):
		return RejectMinimumNotMet
	}
	return ""
}

// CouponDiscount computes the discount without validity checks.
// Percentage coupons are capped by the maximum discount; fixed amounts never exceed the subtotal.
func CouponDiscount(c *models.Coupon, subtotal decimal.Decimal) decimal.Decimal {
	if !subtotal.IsPositive() {
		return decimal.Zero
	}

	var discount decimal.Decimal
	switch c.DiscountType {
	case models.DiscountTypePercentage:
		discount = subtotal.Mul(c.Value).Div(hundred)
		if c.MaximumDiscountAmount != nil && discount.GreaterThan(*c.MaximumDiscountAmount) {
			discount = *c.MaximumDiscountAmount
		}
	case models.DiscountTypeFixedAmount:
		discount = decimal.Min(c.Value, subtotal)
	default:
		return decimal.Zero
	}

	if discount.IsNegative() {
		return decimal.Zero
	}
	return Round(discount)
}

// ApplyCoupon validates the coupon and computes the discount for subtotal
func ApplyCoupon(c *models.Coupon, subtotal decimal.Decimal, now time.Time) CouponResult {
	if reason := CheckCoupon(c, subtotal, now); reason != "" {
		return CouponResult{
			Discount:  decimal.Zero,
			Final:     subtotal,
			Rejection: reason,
		}
	}

	discount := CouponDiscount(c, subtotal)
	return CouponResult{
		Discount: discount,
		Final:    subtotal.Sub(discount),
	}
}
