package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"storefront-service/internal/models"
	"storefront-service/internal/orderflow"
	"storefront-service/internal/redisclient"
	"storefront-service/internal/store/storetest"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
)

var testNow = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

type recordingPublisher struct {
	mu      sync.Mutex
	placed  []*models.OrderPlacedEvent
	changed []*models.OrderStatusChangedEvent
	err     error
}

func (p *recordingPublisher) PublishOrderPlaced(ctx context.Context, e *models.OrderPlacedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.placed = append(p.placed, e)
	return p.err
}

func (p *recordingPublisher) PublishOrderStatusChanged(ctx context.Context, e *models.OrderStatusChangedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changed = append(p.changed, e)
	return p.err
}

type fixture struct {
	repo       *storetest.Memory
	mr         *miniredis.Miniredis
	cache      *redisclient.Client
	events     *recordingPublisher
	shipping   *ShippingService
	promotions *PromotionService
	catalog    *CatalogService
	checkout   *CheckoutService
	orders     *OrderService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	repo := storetest.NewMemory()
	repo.Seed()

	mr := miniredis.RunT(t)
	cache := redisclient.New(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	events := &recordingPublisher{}
	clock := func() time.Time { return testNow }

	f := &fixture{repo: repo, mr: mr, cache: cache, events: events}
	f.shipping = NewShippingService(repo, "")
	f.promotions = NewPromotionService(repo, cache, time.Minute)
	f.promotions.now = clock
	f.catalog = NewCatalogService(repo, f.promotions)
	f.catalog.now = clock
	f.checkout = NewCheckoutService(repo, cache, f.shipping, events, time.Hour)
	f.checkout.now = clock
	f.orders = NewOrderService(repo, cache, f.shipping, events, orderflow.Policy{Strict: true}, 10*time.Second)
	f.orders.now = clock
	return f
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func intPtr(i int) *int {
	return &i
}

func dhakaAddress() models.Address {
	return models.Address{
		Name:  "Anika Rahman",
		Phone: "01711000000",
		Line1: "House 12, Road 5",
		City:  "Dhanmondi, Dhaka",
	}
}

func (f *fixture) addLiveSale(id int64, pct string, productIDs ...int64) {
	f.repo.AddFlashSale(models.FlashSale{
		ID:                 id,
		Name:               "Durga Puja Sale",
		DiscountPercentage: dec(pct),
		StartsAt:           testNow.Add(-time.Hour),
		EndsAt:             testNow.Add(48 * time.Hour),
		Status:             models.FlashSaleActive,
		ProductIDs:         productIDs,
	})
}

func (f *fixture) addPujaCoupon() {
	f.repo.AddCoupon(models.Coupon{
		ID:                 1,
		Code:               "PUJA120",
		DiscountType:       models.DiscountTypeFixedAmount,
		Value:              dec("120"),
		MinimumOrderAmount: decPtr("500"),
		IsActive:           true,
	})
}

// addPendingOrder stores an order with one line of productID
func (f *fixture) addPendingOrder(orderID, productID int64, qty int) {
	pid := productID
	f.repo.AddOrder(models.Order{
		ID:            orderID,
		OrderNumber:   "ORD-20261018-TEST0001",
		CustomerEmail: "buyer@example.com",
		Status:        models.OrderStatusPending,
		PaymentMethod: models.PaymentMethodCOD,
		Subtotal:      dec("5997.00"),
		ShippingCost:  dec("60.00"),
		Total:         dec("6057.00"),
		ShippingZone:  "Inside Dhaka",
	}, models.OrderItem{
		ProductID: &pid,
		Quantity:  qty,
		UnitPrice: dec("1999.00"),
		Subtotal:  dec("1999.00").Mul(decimal.NewFromInt(int64(qty))),
	})
}
