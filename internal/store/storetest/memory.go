// Package storetest provides an in-memory store for service and handler tests.
package storetest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"storefront-service/internal/models"
	"storefront-service/internal/store"

	"github.com/shopspring/decimal"
)

type state struct {
	categories []models.Category
	products   map[int64]models.Product
	orders     map[int64]models.Order
	items      map[int64][]models.OrderItem
	history    []models.StatusHistory
	flashSales map[int64]models.FlashSale
	coupons    map[int64]models.Coupon
	zones      []models.ShippingZone
	perms      map[int64][]string
	events     map[string]string
	seq        int64
}

func (s *state) clone() *state {
	c := &state{
		categories: append([]models.Category(nil), s.categories...),
		products:   make(map[int64]models.Product, len(s.products)),
		orders:     make(map[int64]models.Order, len(s.orders)),
		items:      make(map[int64][]models.OrderItem, len(s.items)),
		history:    append([]models.StatusHistory(nil), s.history...),
		flashSales: make(map[int64]models.FlashSale, len(s.flashSales)),
		coupons:    make(map[int64]models.Coupon, len(s.coupons)),
		zones:      append([]models.ShippingZone(nil), s.zones...),
		perms:      make(map[int64][]string, len(s.perms)),
		events:     make(map[string]string, len(s.events)),
		seq:        s.seq,
	}
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	for k, v := range s.items {
		c.items[k] = append([]models.OrderItem(nil), v...)
	}
	for k, v := range s.flashSales {
		c.flashSales[k] = v
	}
	for k, v := range s.coupons {
		c.coupons[k] = v
	}
	for k, v := range s.perms {
		c.perms[k] = v
	}
	for k, v := range s.events {
		c.events[k] = v
	}
	return c
}

// Memory is an in-memory store. Transactions are serialized and roll back
// every change when fn returns an error.
type Memory struct {
	txMu sync.Mutex
	mu   sync.Mutex
	st   *state

	failures map[string]error
	beforeTx func()
	now      func() time.Time
}

var _ store.Querier = (*Memory)(nil)

// NewMemory creates an empty store
func NewMemory() *Memory {
	return &Memory{
		st: &state{
			products:   map[int64]models.Product{},
			orders:     map[int64]models.Order{},
			items:      map[int64][]models.OrderItem{},
			flashSales: map[int64]models.FlashSale{},
			coupons:    map[int64]models.Coupon{},
			perms:      map[int64][]string{},
			events:     map[string]string{},
			seq:        1000,
		},
		failures: map[string]error{},
		now:      time.Now,
	}
}

// InTx runs fn against the store, restoring the previous state if fn fails
func (m *Memory) InTx(ctx context.Context, fn func(q store.Querier) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	before := m.beforeTx
	m.beforeTx = nil
	m.mu.Unlock()
	if before != nil {
		before()
	}

	m.mu.Lock()
	snapshot := m.st.clone()
	m.mu.Unlock()

	if err := fn(m); err != nil {
		m.mu.Lock()
		m.st = snapshot
		m.mu.Unlock()
		return err
	}
	return nil
}

// BeforeNextTx runs fn once, just before the next transaction takes its snapshot.
// fn sees the store as another committed writer would.
func (m *Memory) BeforeNextTx(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.beforeTx = fn
}

// FailOn makes the named operation return err until cleared with a nil error
func (m *Memory) FailOn(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, op)
		return
	}
	m.failures[op] = err
}

func (m *Memory) fail(op string) error {
	return m.failures[op]
}

func (m *Memory) nextID() int64 {
	m.st.seq++
	return m.st.seq
}

// Seeding helpers

func (m *Memory) AddCategory(c models.Category) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st.categories = append(m.st.categories, c)
}

func (m *Memory) AddProduct(p models.Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st.products[p.ID] = p
}

func (m *Memory) AddFlashSale(f models.FlashSale) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st.flashSales[f.ID] = f
}

func (m *Memory) AddCoupon(c models.Coupon) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st.coupons[c.ID] = c
}

func (m *Memory) AddZone(z models.ShippingZone) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st.zones = append(m.st.zones, z)
}

func (m *Memory) Grant(userID int64, perms ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st.perms[userID] = append(m.st.perms[userID], perms...)
}

// AddOrder stores an order with its items
func (m *Memory) AddOrder(o models.Order, items ...models.OrderItem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st.orders[o.ID] = o
	for i := range items {
		items[i].OrderID = o.ID
		if items[i].ID == 0 {
			items[i].ID = m.nextID()
		}
	}
	m.st.items[o.ID] = items
}

// Stock returns the current stock of a product
func (m *Memory) Stock(productID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.products[productID].StockQuantity
}

// OrderCount returns the number of stored orders
func (m *Memory) OrderCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.st.orders)
}

// Catalog

func (m *Memory) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.st.products[id]
	if !ok {
		return nil, fmt.Errorf("product %d: %w", id, models.ErrNotFound)
	}
	return &p, nil
}

func (m *Memory) GetProductsByIDs(ctx context.Context, ids []int64) ([]models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("GetProductsByIDs"); err != nil {
		return nil, err
	}
	return m.productsByIDs(ids), nil
}

func (m *Memory) LockProducts(ctx context.Context, ids []int64) ([]models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("LockProducts"); err != nil {
		return nil, err
	}
	return m.productsByIDs(ids), nil
}

func (m *Memory) productsByIDs(ids []int64) []models.Product {
	out := []models.Product{}
	seen := map[int64]bool{}
	for _, id := range ids {
		if p, ok := m.st.products[id]; ok && !seen[id] {
			seen[id] = true
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *Memory) ListProducts(ctx context.Context, filter store.ProductFilter) ([]models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Product{}
	for _, p := range m.st.products {
		if filter.CategoryID != nil && (p.CategoryID == nil || *p.CategoryID != *filter.CategoryID) {
			continue
		}
		if filter.Featured && !p.IsFeatured {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(filter.Search)) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) ListCategories(ctx context.Context) ([]models.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Category(nil), m.st.categories...), nil
}

func (m *Memory) AdjustStock(ctx context.Context, productID int64, delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("AdjustStock"); err != nil {
		return err
	}
	p, ok := m.st.products[productID]
	if !ok || !p.ManageStock {
		return fmt.Errorf("product %d does not manage stock: %w", productID, models.ErrNotFound)
	}
	if p.StockQuantity+delta < 0 {
		return fmt.Errorf("product %d: %w", productID, models.ErrInsufficientStock)
	}
	p.StockQuantity += delta
	m.st.products[productID] = p
	return nil
}

// Orders

func (m *Memory) CreateOrder(ctx context.Context, order *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("CreateOrder"); err != nil {
		return err
	}
	if order.IdempotencyKey != nil {
		for _, o := range m.st.orders {
			if o.IdempotencyKey != nil && *o.IdempotencyKey == *order.IdempotencyKey {
				return store.ErrDuplicateIdempotencyKey
			}
		}
	}
	order.ID = m.nextID()
	order.CreatedAt = m.now()
	order.UpdatedAt = order.CreatedAt
	m.st.orders[order.ID] = *order
	return nil
}

func (m *Memory) CreateOrderItem(ctx context.Context, item *models.OrderItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("CreateOrderItem"); err != nil {
		return err
	}
	item.ID = m.nextID()
	m.st.items[item.OrderID] = append(m.st.items[item.OrderID], *item)
	return nil
}

func (m *Memory) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.st.orders[id]
	if !ok {
		return nil, fmt.Errorf("order %d: %w", id, models.ErrNotFound)
	}
	return &o, nil
}

func (m *Memory) GetOrderForUpdate(ctx context.Context, id int64) (*models.Order, error) {
	return m.GetOrderByID(ctx, id)
}

func (m *Memory) GetOrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.st.orders {
		if o.IdempotencyKey != nil && *o.IdempotencyKey == key {
			return &o, nil
		}
	}
	return nil, nil
}

func (m *Memory) ListOrders(ctx context.Context, filter store.OrderFilter) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Order{}
	for _, o := range m.st.orders {
		if filter.Status != nil && o.Status != *filter.Status {
			continue
		}
		if filter.CustomerID != nil && (o.CustomerID == nil || *o.CustomerID != *filter.CustomerID) {
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *Memory) GetOrderItems(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.OrderItem(nil), m.st.items[orderID]...), nil
}

func (m *Memory) GetStockLines(ctx context.Context, orderID int64) ([]models.StockLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var lines []models.StockLine
	for _, it := range m.st.items[orderID] {
		if it.ProductID == nil {
			continue
		}
		p, ok := m.st.products[*it.ProductID]
		if !ok {
			continue
		}
		lines = append(lines, models.StockLine{ProductID: p.ID, Quantity: it.Quantity, ManageStock: p.ManageStock})
	}
	return lines, nil
}

func (m *Memory) UpdateOrderStatus(ctx context.Context, orderID int64, status models.OrderStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("UpdateOrderStatus"); err != nil {
		return err
	}
	o, ok := m.st.orders[orderID]
	if !ok {
		return fmt.Errorf("order %d: %w", orderID, models.ErrNotFound)
	}
	o.Status = status
	o.UpdatedAt = m.now()
	m.st.orders[orderID] = o
	return nil
}

func (m *Memory) UpdateOrderDetails(ctx context.Context, order *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.st.orders[order.ID]
	if !ok {
		return fmt.Errorf("order %d: %w", order.ID, models.ErrNotFound)
	}
	o.ShippingAddress = order.ShippingAddress
	o.BillingAddress = order.BillingAddress
	o.Notes = order.Notes
	o.ShippingCost = order.ShippingCost
	o.ShippingZone = order.ShippingZone
	o.Total = order.Total
	o.UpdatedAt = m.now()
	order.UpdatedAt = o.UpdatedAt
	m.st.orders[order.ID] = o
	return nil
}

func (m *Memory) DeleteOrder(ctx context.Context, orderID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.st.orders[orderID]
	if !ok || o.Status != models.OrderStatusCancelled {
		return models.ErrOrderNotCancelled
	}
	delete(m.st.orders, orderID)
	delete(m.st.items, orderID)
	kept := m.st.history[:0]
	for _, h := range m.st.history {
		if h.OrderID != orderID {
			kept = append(kept, h)
		}
	}
	m.st.history = kept
	return nil
}

func (m *Memory) InsertStatusHistory(ctx context.Context, h *models.StatusHistory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("InsertStatusHistory"); err != nil {
		return err
	}
	h.ID = m.nextID()
	m.st.history = append(m.st.history, *h)
	return nil
}

func (m *Memory) GetStatusHistory(ctx context.Context, orderID int64) ([]models.StatusHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.StatusHistory
	for _, h := range m.st.history {
		if h.OrderID == orderID {
			out = append(out, h)
		}
	}
	return out, nil
}

// Promotions

func (m *Memory) ListFlashSales(ctx context.Context) ([]models.FlashSale, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.FlashSale, 0, len(m.st.flashSales))
	for _, f := range m.st.flashSales {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) GetFlashSaleByID(ctx context.Context, id int64) (*models.FlashSale, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.st.flashSales[id]
	if !ok {
		return nil, fmt.Errorf("flash sale %d: %w", id, models.ErrNotFound)
	}
	return &f, nil
}

func (m *Memory) CreateFlashSale(ctx context.Context, sale *models.FlashSale) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sale.ID = m.nextID()
	sale.CreatedAt = m.now()
	sale.UpdatedAt = sale.CreatedAt
	m.st.flashSales[sale.ID] = *sale
	return nil
}

func (m *Memory) SetFlashSaleStatus(ctx context.Context, id int64, status models.FlashSaleStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.st.flashSales[id]
	if !ok {
		return fmt.Errorf("flash sale %d: %w", id, models.ErrNotFound)
	}
	f.Status = status
	m.st.flashSales[id] = f
	return nil
}

func (m *Memory) IncrementFlashSaleUsage(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.st.flashSales[id]
	if !ok || f.UsageExhausted() {
		return fmt.Errorf("flash sale %d: %w", id, models.ErrUsageExhausted)
	}
	f.UsedCount++
	m.st.flashSales[id] = f
	return nil
}

// UsedCount returns how many orders a flash sale has served
func (m *Memory) UsedCount(flashSaleID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.flashSales[flashSaleID].UsedCount
}

func (m *Memory) ListCoupons(ctx context.Context) ([]models.Coupon, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Coupon, 0, len(m.st.coupons))
	for _, c := range m.st.coupons {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *Memory) GetCouponByCode(ctx context.Context, code string) (*models.Coupon, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.st.coupons {
		if strings.EqualFold(c.Code, strings.TrimSpace(code)) {
			return &c, nil
		}
	}
	return nil, fmt.Errorf("coupon %s: %w", code, models.ErrNotFound)
}

func (m *Memory) LockCouponByCode(ctx context.Context, code string) (*models.Coupon, error) {
	return m.GetCouponByCode(ctx, code)
}

func (m *Memory) CreateCoupon(ctx context.Context, coupon *models.Coupon) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.st.coupons {
		if strings.EqualFold(c.Code, coupon.Code) {
			return store.ErrDuplicateCode
		}
	}
	coupon.ID = m.nextID()
	coupon.CreatedAt = m.now()
	coupon.UpdatedAt = coupon.CreatedAt
	m.st.coupons[coupon.ID] = *coupon
	return nil
}

func (m *Memory) IncrementCouponUsage(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("IncrementCouponUsage"); err != nil {
		return err
	}
	c, ok := m.st.coupons[id]
	if !ok || (c.UsageLimit != nil && c.UsedCount >= *c.UsageLimit) {
		return fmt.Errorf("coupon %d: %w", id, models.ErrUsageExhausted)
	}
	c.UsedCount++
	m.st.coupons[id] = c
	return nil
}

// CouponUsedCount returns how many orders a coupon has served
func (m *Memory) CouponUsedCount(code string) int {
	c, err := m.GetCouponByCode(context.Background(), code)
	if err != nil {
		return 0
	}
	return c.UsedCount
}

// Shipping & access

func (m *Memory) ListShippingZones(ctx context.Context) ([]models.ShippingZone, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("ListShippingZones"); err != nil {
		return nil, err
	}
	return append([]models.ShippingZone(nil), m.st.zones...), nil
}

func (m *Memory) GetUserPermissions(ctx context.Context, userID int64) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.st.perms[userID]...), nil
}

// Events

func (m *Memory) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.st.events[eventID]
	return ok, nil
}

func (m *Memory) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st.events[eventID] = eventType
	return nil
}

// Seed loads a small catalog mirroring the shipped seed data
func (m *Memory) Seed() {
	cat := int64(1)
	m.AddCategory(models.Category{ID: cat, Name: "Idols", Slug: "idols"})
	m.AddProduct(models.Product{
		ID: 1, CategoryID: &cat, SKU: "INC-001", Name: "Sandalwood Incense",
		Price: decimal.RequireFromString("150.00"), StockQuantity: 100, ManageStock: true,
	})
	m.AddProduct(models.Product{
		ID: 4, CategoryID: &cat, SKU: "IDL-004", Name: "Brass Ganesha Idol",
		Price: decimal.RequireFromString("1999.00"), StockQuantity: 10, ManageStock: true,
	})
	m.AddProduct(models.Product{
		ID: 5, CategoryID: &cat, SKU: "PRS-005", Name: "Puja Flowers (made to order)",
		Price: decimal.RequireFromString("200.00"), ManageStock: false,
	})
	m.AddZone(models.ShippingZone{
		ID: 1, Name: "Inside Dhaka", Areas: []string{"Dhaka", "Dhanmondi", "Mirpur", "Gulshan"},
		Cost: decimal.RequireFromString("60.00"), MinDays: 1, MaxDays: 2, SortOrder: 1,
	})
	m.AddZone(models.ShippingZone{
		ID: 2, Name: "Outside Dhaka", Areas: []string{"Chittagong", "Sylhet", "Khulna"},
		Cost: decimal.RequireFromString("120.00"), MinDays: 3, MaxDays: 5, IsDefault: true, SortOrder: 2,
	})
}
