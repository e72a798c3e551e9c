package models

import (
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Category groups products for catalog navigation
type Category struct {
	ID        int64     `db:"id" json:"id"`
	ParentID  *int64    `db:"parent_id" json:"parent_id,omitempty"`
	Name      string    `db:"name" json:"name"`
	Slug      string    `db:"slug" json:"slug"`
	Icon      string    `db:"icon" json:"icon,omitempty"`
	SortOrder int       `db:"sort_order" json:"sort_order"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`

	Children []Category `db:"-" json:"children,omitempty"`
}

// Product represents a product in the catalog
type Product struct {
	ID              int64            `db:"id" json:"id"`
	CategoryID      *int64           `db:"category_id" json:"category_id,omitempty"`
	SKU             string           `db:"sku" json:"sku"`
	Name            string           `db:"name" json:"name"`
	Slug            string           `db:"slug" json:"slug"`
	Description     string           `db:"description" json:"description,omitempty"`
	Image           string           `db:"image" json:"image,omitempty"`
	Price           decimal.Decimal  `db:"price" json:"price"`
	SalePrice       *decimal.Decimal `db:"sale_price" json:"sale_price,omitempty"`
	StockQuantity   int              `db:"stock_quantity" json:"stock_quantity"`
	ManageStock     bool             `db:"manage_stock" json:"manage_stock"`
	Specifications  Specifications   `db:"specifications" json:"specifications,omitempty"`
	WeightGrams     *int             `db:"weight_grams" json:"weight_grams,omitempty"`
	MetaTitle       string           `db:"meta_title" json:"meta_title,omitempty"`
	MetaDescription string           `db:"meta_description" json:"meta_description,omitempty"`
	IsFeatured      bool             `db:"is_featured" json:"is_featured"`
	CreatedAt       time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time        `db:"updated_at" json:"updated_at"`
}

// BasePrice is the regular selling price: the sale price when it undercuts the list price.
func (p *Product) BasePrice() decimal.Decimal {
	if p.SalePrice != nil && p.SalePrice.IsPositive() && p.SalePrice.LessThan(p.Price) {
		return *p.SalePrice
	}
	return p.Price
}

// HasStock reports whether quantity units can be sold right now
func (p *Product) HasStock(quantity int) bool {
	return !p.ManageStock || p.StockQuantity >= quantity
}

// Snapshot captures the fields an order item keeps after the product changes
func (p *Product) Snapshot(unitPrice decimal.Decimal) ProductSnapshot {
	return ProductSnapshot{
		Name:  p.Name,
		SKU:   p.SKU,
		Image: p.Image,
		Price: unitPrice,
	}
}

// Order represents a customer order
type Order struct {
	ID              int64            `db:"id" json:"id"`
	OrderNumber     string           `db:"order_number" json:"order_number"`
	CustomerID      *int64           `db:"customer_id" json:"customer_id,omitempty"`
	CustomerEmail   string           `db:"customer_email" json:"customer_email"`
	Status          OrderStatus      `db:"status" json:"status"`
	PaymentMethod   PaymentMethod    `db:"payment_method" json:"payment_method"`
	Subtotal        decimal.Decimal  `db:"subtotal" json:"subtotal"`
	DiscountAmount  decimal.Decimal  `db:"discount_amount" json:"discount_amount"`
	ShippingCost    decimal.Decimal  `db:"shipping_cost" json:"shipping_cost"`
	Total           decimal.Decimal  `db:"total" json:"total"`
	CouponCode      *string          `db:"coupon_code" json:"coupon_code,omitempty"`
	ShippingZone    string           `db:"shipping_zone" json:"shipping_zone"`
	ShippingAddress Address          `db:"shipping_address" json:"shipping_address"`
	BillingAddress  Address          `db:"billing_address" json:"billing_address"`
	Notes           string           `db:"notes" json:"notes,omitempty"`
	IdempotencyKey  *string          `db:"idempotency_key" json:"-"`
	CreatedAt       time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time        `db:"updated_at" json:"updated_at"`
}

// RecalculateTotal enforces total = subtotal + shipping_cost
func (o *Order) RecalculateTotal() {
	o.Total = o.Subtotal.Add(o.ShippingCost)
}

// OrderItem represents items in an order
type OrderItem struct {
	ID        int64           `db:"id" json:"id"`
	OrderID   int64           `db:"order_id" json:"order_id"`
	ProductID *int64          `db:"product_id" json:"product_id,omitempty"`
	Quantity  int             `db:"quantity" json:"quantity"`
	UnitPrice decimal.Decimal `db:"unit_price" json:"unit_price"`
	Subtotal  decimal.Decimal `db:"subtotal" json:"subtotal"`
	Snapshot  ProductSnapshot `db:"product_snapshot" json:"product_snapshot"`
	SaleID    *int64          `db:"flash_sale_id" json:"flash_sale_id,omitempty"`
}

// StatusHistory is an append-only record of one order status change
type StatusHistory struct {
	ID         int64        `db:"id" json:"id"`
	OrderID    int64        `db:"order_id" json:"order_id"`
	FromStatus *OrderStatus `db:"from_status" json:"from_status,omitempty"`
	ToStatus   OrderStatus  `db:"to_status" json:"to_status"`
	Comment    *string      `db:"comment" json:"comment,omitempty"`
	ActorID    *int64       `db:"actor_id" json:"actor_id,omitempty"`
	CreatedAt  time.Time    `db:"created_at" json:"created_at"`
}

// StockLine is the inventory view of an order item
type StockLine struct {
	ProductID   int64 `db:"product_id"`
	Quantity    int   `db:"quantity"`
	ManageStock bool  `db:"manage_stock"`
}

// FlashSale is a time-boxed percentage discount over a set of products
type FlashSale struct {
	ID                 int64           `db:"id" json:"id"`
	Name               string          `db:"name" json:"name"`
	Description        string          `db:"description" json:"description,omitempty"`
	DiscountPercentage decimal.Decimal `db:"discount_percentage" json:"discount_percentage"`
	StartsAt           time.Time       `db:"starts_at" json:"starts_at"`
	EndsAt             time.Time       `db:"ends_at" json:"ends_at"`
	Status             FlashSaleStatus `db:"status" json:"status"`
	ProductIDs         pq.Int64Array   `db:"product_ids" json:"product_ids"`
	MaxUsage           *int            `db:"max_usage" json:"max_usage,omitempty"`
	UsedCount          int             `db:"used_count" json:"used_count"`
	IsFeatured         bool            `db:"is_featured" json:"is_featured"`
	CreatedAt          time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time       `db:"updated_at" json:"updated_at"`
}

// Covers reports whether the sale lists productID
func (f *FlashSale) Covers(productID int64) bool {
	for _, id := range f.ProductIDs {
		if id == productID {
			return true
		}
	}
	return false
}

// UsageExhausted reports whether max_usage has been reached
func (f *FlashSale) UsageExhausted() bool {
	return f.MaxUsage != nil && f.UsedCount >= *f.MaxUsage
}

// Coupon is a customer-entered discount code
type Coupon struct {
	ID                    int64            `db:"id" json:"id"`
	Code                  string           `db:"code" json:"code"`
	Description           string           `db:"description" json:"description,omitempty"`
	DiscountType          DiscountType     `db:"discount_type" json:"discount_type"`
	Value                 decimal.Decimal  `db:"value" json:"value"`
	MinimumOrderAmount    *decimal.Decimal `db:"minimum_order_amount" json:"minimum_order_amount,omitempty"`
	MaximumDiscountAmount *decimal.Decimal `db:"maximum_discount_amount" json:"maximum_discount_amount,omitempty"`
	ValidUntil            *time.Time       `db:"valid_until" json:"valid_until,omitempty"`
	UsageLimit            *int             `db:"usage_limit" json:"usage_limit,omitempty"`
	UsedCount             int              `db:"used_count" json:"used_count"`
	IsActive              bool             `db:"is_active" json:"is_active"`
	CreatedAt             time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time        `db:"updated_at" json:"updated_at"`
}

// ShippingZone maps a set of area names to a flat shipping cost
type ShippingZone struct {
	ID        int64           `db:"id" json:"id"`
	Name      string          `db:"name" json:"name"`
	Areas     pq.StringArray  `db:"areas" json:"areas"`
	Cost      decimal.Decimal `db:"cost" json:"cost"`
	MinDays   int             `db:"min_days" json:"min_days"`
	MaxDays   int             `db:"max_days" json:"max_days"`
	IsDefault bool            `db:"is_default" json:"is_default"`
	SortOrder int             `db:"sort_order" json:"sort_order"`
}

// Role groups permissions granted to users
type Role struct {
	ID          int64        `db:"id" json:"id"`
	Name        string       `db:"name" json:"name"`
	Permissions []Permission `db:"-" json:"permissions,omitempty"`
}

// Permission is a single grant, grouped by functional area
type Permission struct {
	ID    int64  `db:"id" json:"id"`
	Name  string `db:"name" json:"name"`
	Group string `db:"group_name" json:"group"`
}

// Permission names checked by the admin API
const (
	PermOrdersView       = "orders.view"
	PermOrdersUpdate     = "orders.update"
	PermOrdersDelete     = "orders.delete"
	PermFlashSalesManage = "flash_sales.manage"
	PermCouponsManage    = "coupons.manage"
)

// ProcessedEvent for idempotency
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}
