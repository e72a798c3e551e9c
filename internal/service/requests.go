package service

import (
	"regexp"
	"time"

	"storefront-service/internal/models"
	"storefront-service/internal/pricing"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/shopspring/decimal"
)

var couponCodePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// CartItem is one product line submitted at checkout
type CartItem struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

func (i CartItem) Validate() error {
	return validation.ValidateStruct(&i,
		validation.Field(&i.ProductID, validation.Required.Error("product is required")),
		validation.Field(&i.Quantity, validation.Required, validation.Min(1), validation.Max(100)),
	)
}

// PlaceOrderRequest is the cart submitted at checkout
type PlaceOrderRequest struct {
	CustomerID      *int64               `json:"customer_id,omitempty"`
	CustomerEmail   string               `json:"customer_email"`
	Items           []CartItem           `json:"items"`
	PaymentMethod   models.PaymentMethod `json:"payment_method"`
	ShippingAddress models.Address       `json:"shipping_address"`
	BillingAddress  *models.Address      `json:"billing_address,omitempty"`
	CouponCode      string               `json:"coupon_code,omitempty"`
	Notes           string               `json:"notes,omitempty"`
	IdempotencyKey  string               `json:"-"`
}

func (r PlaceOrderRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.CustomerEmail,
			validation.Required.Error("email is required"),
			is.EmailFormat.Error("invalid email format"),
		),
		validation.Field(&r.Items, validation.Required.Error("cart is empty"), validation.Length(1, 50)),
		validation.Field(&r.PaymentMethod,
			validation.Required,
			validation.In(models.PaymentMethodCOD, models.PaymentMethodOnline).Error("unknown payment method"),
		),
		validation.Field(&r.ShippingAddress),
		validation.Field(&r.BillingAddress),
		validation.Field(&r.CouponCode, validation.Length(0, 50)),
		validation.Field(&r.Notes, validation.Length(0, 1000)),
	)
}

// ChangeStatusRequest moves an order to a new status
type ChangeStatusRequest struct {
	OrderID int64              `json:"-"`
	Status  models.OrderStatus `json:"status"`
	Comment string             `json:"comment,omitempty"`
	ActorID *int64             `json:"-"`
}

func (r ChangeStatusRequest) Validate() error {
	statuses := make([]interface{}, len(models.OrderStatuses))
	for i, s := range models.OrderStatuses {
		statuses[i] = s
	}
	return validation.ValidateStruct(&r,
		validation.Field(&r.Status, validation.Required, validation.In(statuses...).Error("unknown status")),
		validation.Field(&r.Comment, validation.Length(0, 500)),
	)
}

// UpdateOrderRequest edits the admin-editable fields of an order.
// Nil fields are left unchanged.
type UpdateOrderRequest struct {
	OrderID         int64            `json:"-"`
	ShippingAddress *models.Address  `json:"shipping_address,omitempty"`
	BillingAddress  *models.Address  `json:"billing_address,omitempty"`
	Notes           *string          `json:"notes,omitempty"`
	ShippingCost    *decimal.Decimal `json:"shipping_cost,omitempty"`
}

func (r UpdateOrderRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ShippingAddress),
		validation.Field(&r.BillingAddress),
		validation.Field(&r.Notes, validation.Length(0, 1000)),
		validation.Field(&r.ShippingCost, decimalRule(nonNegative, "must not be negative")),
	)
}

// CreateFlashSaleRequest is the admin form for a new flash sale
type CreateFlashSaleRequest struct {
	Name               string                 `json:"name"`
	Description        string                 `json:"description,omitempty"`
	DiscountPercentage decimal.Decimal        `json:"discount_percentage"`
	StartsAt           time.Time              `json:"starts_at"`
	EndsAt             time.Time              `json:"ends_at"`
	Status             models.FlashSaleStatus `json:"status,omitempty"`
	ProductIDs         []int64                `json:"product_ids"`
	MaxUsage           *int                   `json:"max_usage,omitempty"`
	IsFeatured         bool                   `json:"is_featured"`
}

func (r CreateFlashSaleRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 255)),
		validation.Field(&r.DiscountPercentage, decimalRule(func(d decimal.Decimal) bool {
			return !d.IsNegative() && d.LessThanOrEqual(pricing.MaxFlashSalePercentage)
		}, "must be between 0 and 99.99")),
		validation.Field(&r.StartsAt, validation.Required),
		validation.Field(&r.EndsAt,
			validation.Required,
			validation.Min(r.StartsAt).Exclusive().Error("must be after starts_at"),
		),
		validation.Field(&r.Status, validation.In(models.FlashSaleActive, models.FlashSaleInactive)),
		validation.Field(&r.ProductIDs, validation.Required.Error("at least one product is required"), validation.Length(1, 500)),
		validation.Field(&r.MaxUsage, validation.Min(1)),
	)
}

// CreateCouponRequest is the admin form for a new coupon
type CreateCouponRequest struct {
	Code                  string              `json:"code"`
	Description           string              `json:"description,omitempty"`
	DiscountType          models.DiscountType `json:"discount_type"`
	Value                 decimal.Decimal     `json:"value"`
	MinimumOrderAmount    *decimal.Decimal    `json:"minimum_order_amount,omitempty"`
	MaximumDiscountAmount *decimal.Decimal    `json:"maximum_discount_amount,omitempty"`
	ValidUntil            *time.Time          `json:"valid_until,omitempty"`
	UsageLimit            *int                `json:"usage_limit,omitempty"`
	IsActive              *bool               `json:"is_active,omitempty"`
}

func (r CreateCouponRequest) Validate() error {
	percentage := r.DiscountType == models.DiscountTypePercentage
	return validation.ValidateStruct(&r,
		validation.Field(&r.Code,
			validation.Required,
			validation.Length(3, 50),
			validation.Match(couponCodePattern).Error("only letters, digits, dash and underscore"),
		),
		validation.Field(&r.DiscountType,
			validation.Required,
			validation.In(models.DiscountTypePercentage, models.DiscountTypeFixedAmount).Error("unknown discount type"),
		),
		validation.Field(&r.Value,
			decimalRule(positive, "must be greater than 0"),
			validation.When(percentage, decimalRule(func(d decimal.Decimal) bool {
				return d.LessThanOrEqual(decimal.NewFromInt(100))
			}, "percentage must be at most 100")),
		),
		validation.Field(&r.MinimumOrderAmount, decimalRule(nonNegative, "must not be negative")),
		validation.Field(&r.MaximumDiscountAmount,
			validation.When(!percentage, validation.Nil.Error("only percentage coupons take a maximum discount")),
			decimalRule(positive, "must be greater than 0"),
		),
		validation.Field(&r.UsageLimit, validation.Min(1)),
	)
}
