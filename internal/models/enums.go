package models

// OrderStatus represents order status
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// OrderStatuses lists every status in lifecycle order
var OrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

func (s OrderStatus) String() string {
	return string(s)
}

// PaymentMethod represents valid payment methods
type PaymentMethod string

const (
	PaymentMethodCOD    PaymentMethod = "cod"
	PaymentMethodOnline PaymentMethod = "online"
)

func (pm PaymentMethod) IsValid() bool {
	return pm == PaymentMethodCOD || pm == PaymentMethodOnline
}

func (pm PaymentMethod) String() string {
	return string(pm)
}

// FlashSaleStatus is both the stored admin switch and the evaluated window state
type FlashSaleStatus string

const (
	FlashSaleActive    FlashSaleStatus = "active"
	FlashSaleInactive  FlashSaleStatus = "inactive"
	FlashSaleScheduled FlashSaleStatus = "scheduled"
	FlashSaleExpired   FlashSaleStatus = "expired"
)

func (s FlashSaleStatus) IsValid() bool {
	switch s {
	case FlashSaleActive, FlashSaleInactive, FlashSaleScheduled, FlashSaleExpired:
		return true
	}
	return false
}

func (s FlashSaleStatus) String() string {
	return string(s)
}

// DiscountType represents valid coupon discount types
type DiscountType string

const (
	DiscountTypePercentage  DiscountType = "percentage"
	DiscountTypeFixedAmount DiscountType = "fixed_amount"
)

func (dt DiscountType) IsValid() bool {
	return dt == DiscountTypePercentage || dt == DiscountTypeFixedAmount
}

func (dt DiscountType) String() string {
	return string(dt)
}
