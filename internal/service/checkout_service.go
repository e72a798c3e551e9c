package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"storefront-service/internal/models"
	"storefront-service/internal/pricing"
	"storefront-service/internal/shipping"
	"storefront-service/internal/store"
	"storefront-service/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PlaceOrderResult is the order created at checkout
type PlaceOrderResult struct {
	Order    *models.Order      `json:"order"`
	Items    []models.OrderItem `json:"items"`
	Replayed bool               `json:"replayed"`
}

// CheckoutService turns carts into orders
type CheckoutService struct {
	repo           Repository
	cache          Cache
	shipping       *ShippingService
	eventPublisher EventPublisher
	idempotencyTTL time.Duration
	logger         *zap.Logger
	now            func() time.Time
}

// NewCheckoutService creates a new checkout service
func NewCheckoutService(
	repo Repository,
	cache Cache,
	shipping *ShippingService,
	eventPublisher EventPublisher,
	idempotencyTTL time.Duration,
) *CheckoutService {
	return &CheckoutService{
		repo:           repo,
		cache:          cache,
		shipping:       shipping,
		eventPublisher: eventPublisher,
		idempotencyTTL: idempotencyTTL,
		logger:         util.GetLogger(),
		now:            time.Now,
	}
}

// pricedLine is a cart line priced inside the checkout transaction
type pricedLine struct {
	product  *models.Product
	quantity int
	quote    pricing.Quote
}

func (l pricedLine) subtotal() decimal.Decimal {
	return pricing.Round(l.quote.UnitPrice.Mul(decimal.NewFromInt(int64(l.quantity))))
}

// PlaceOrder prices the cart and creates the order.
// Stock deduction, usage counters, the order row and its items commit together or not at all.
func (s *CheckoutService) PlaceOrder(ctx context.Context, req *PlaceOrderRequest) (result *PlaceOrderResult, err error) {
	ctx, span := util.StartSpan(ctx, "CheckoutService.PlaceOrder")
	defer func() { util.EndSpan(span, err) }()

	start := time.Now()
	defer func() {
		util.CheckoutLatency.Observe(time.Since(start).Seconds())
		if err != nil {
			util.CheckoutFailedTotal.WithLabelValues(rejectionReason(err)).Inc()
		}
	}()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	if req.IdempotencyKey != "" {
		if existing, err := s.replay(ctx, req.IdempotencyKey); err != nil || existing != nil {
			return existing, err
		}
	}

	quote, err := s.shipping.Quote(ctx, req.ShippingAddress)
	if err != nil {
		return nil, err
	}

	cart := mergeCart(req.Items)
	now := s.now()

	var (
		order     *models.Order
		items     []models.OrderItem
		saleIDs   []int64
		couponHit bool
	)
	err = s.repo.InTx(ctx, func(q store.Querier) error {
		lines, err := s.priceCart(ctx, q, cart, now)
		if err != nil {
			return err
		}

		gross := decimal.Zero
		for _, l := range lines {
			gross = gross.Add(l.subtotal())
		}

		discount := decimal.Zero
		var couponCode *string
		if code := strings.TrimSpace(req.CouponCode); code != "" {
			coupon, err := s.redeemCoupon(ctx, q, code, gross, now)
			if err != nil {
				return err
			}
			discount = coupon.discount
			couponCode = &coupon.code
			couponHit = true
		}

		if err := s.deductStock(ctx, q, lines); err != nil {
			return err
		}

		saleIDs, err = s.countFlashSaleUsage(ctx, q, lines)
		if err != nil {
			return err
		}

		order = s.newOrder(req, quote, gross.Sub(discount), discount, couponCode, now)
		if err := q.CreateOrder(ctx, order); err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}

		items = make([]models.OrderItem, 0, len(lines))
		for _, l := range lines {
			productID := l.product.ID
			item := models.OrderItem{
				OrderID:   order.ID,
				ProductID: &productID,
				Quantity:  l.quantity,
				UnitPrice: l.quote.UnitPrice,
				Subtotal:  l.subtotal(),
				Snapshot:  l.product.Snapshot(l.quote.UnitPrice),
				SaleID:    l.quote.FlashSaleID,
			}
			if err := q.CreateOrderItem(ctx, &item); err != nil {
				return fmt.Errorf("failed to create order item: %w", err)
			}
			items = append(items, item)
		}
		return nil
	})
	if err != nil {
		if models.IsRuleRejection(err) {
			s.logger.Info("checkout rejected", zap.Error(err))
			return nil, err
		}
		if errors.Is(err, store.ErrDuplicateIdempotencyKey) {
			// a concurrent request with the same key committed first
			if existing, replayErr := s.replay(ctx, req.IdempotencyKey); replayErr != nil || existing != nil {
				return existing, replayErr
			}
		}
		s.logger.Error("checkout failed", zap.Error(err))
		return nil, fmt.Errorf("failed to place order: %w", err)
	}

	s.afterCommit(ctx, req, order, items, saleIDs, couponHit)
	return &PlaceOrderResult{Order: order, Items: items}, nil
}

// replay returns the order already created for an idempotency key
func (s *CheckoutService) replay(ctx context.Context, key string) (*PlaceOrderResult, error) {
	var (
		order *models.Order
		err   error
	)
	if id, found, cacheErr := s.cache.LookupOrder(ctx, key); cacheErr != nil {
		s.logger.Warn("idempotency cache read failed", zap.Error(cacheErr))
	} else if found {
		order, err = s.repo.GetOrderByID(ctx, id)
		if errors.Is(err, models.ErrNotFound) {
			order, err = nil, nil
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to check idempotency: %w", err)
	}

	if order == nil {
		order, err = s.repo.GetOrderByIdempotencyKey(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("failed to check idempotency: %w", err)
		}
		if order == nil {
			return nil, nil
		}
	}

	items, err := s.repo.GetOrderItems(ctx, order.ID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("duplicate order request detected",
		zap.String("idempotency_key", key),
		zap.Int64("order_id", order.ID))
	return &PlaceOrderResult{Order: order, Items: items, Replayed: true}, nil
}

// mergeCart folds repeated products into one line, keeping first-seen order
func mergeCart(items []CartItem) []CartItem {
	index := make(map[int64]int, len(items))
	merged := make([]CartItem, 0, len(items))
	for _, it := range items {
		if i, ok := index[it.ProductID]; ok {
			merged[i].Quantity += it.Quantity
			continue
		}
		index[it.ProductID] = len(merged)
		merged = append(merged, it)
	}
	return merged
}

// priceCart locks the cart's products and prices each line against the live flash sales
func (s *CheckoutService) priceCart(ctx context.Context, q store.Querier, cart []CartItem, now time.Time) ([]pricedLine, error) {
	ids := make([]int64, len(cart))
	for i, it := range cart {
		ids[i] = it.ProductID
	}

	products, err := q.LockProducts(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to lock products: %w", err)
	}
	byID := make(map[int64]*models.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}

	sales, err := q.ListFlashSales(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load flash sales: %w", err)
	}

	lines := make([]pricedLine, 0, len(cart))
	for _, it := range cart {
		product, ok := byID[it.ProductID]
		if !ok {
			return nil, models.NewRuleError(models.CodeProductNotFound,
				fmt.Sprintf("product %d is no longer available", it.ProductID), models.ErrNotFound)
		}
		if !product.HasStock(it.Quantity) {
			return nil, insufficientStock(product, models.ErrInsufficientStock)
		}
		lines = append(lines, pricedLine{
			product:  product,
			quantity: it.Quantity,
			quote:    pricing.QuoteProduct(product, sales, now),
		})
	}
	return lines, nil
}

type redeemedCoupon struct {
	code     string
	discount decimal.Decimal
}

// redeemCoupon validates the coupon under a row lock and counts the redemption
func (s *CheckoutService) redeemCoupon(ctx context.Context, q store.Querier, code string, subtotal decimal.Decimal, now time.Time) (*redeemedCoupon, error) {
	coupon, err := q.LockCouponByCode(ctx, code)
	if errors.Is(err, models.ErrNotFound) {
		return nil, models.NewRuleError(models.CodeCouponNotFound, "coupon not found", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load coupon: %w", err)
	}

	result := pricing.ApplyCoupon(coupon, subtotal, now)
	if !result.Valid() {
		util.CouponRejectionsTotal.WithLabelValues(string(result.Rejection)).Inc()
		return nil, models.NewRuleError(models.CodeCouponRejected, result.Rejection.Message(), nil)
	}

	if err := q.IncrementCouponUsage(ctx, coupon.ID); err != nil {
		if errors.Is(err, models.ErrUsageExhausted) {
			util.CouponRejectionsTotal.WithLabelValues(string(pricing.RejectUsageExhausted)).Inc()
			return nil, models.NewRuleError(models.CodeCouponRejected, pricing.RejectUsageExhausted.Message(), err)
		}
		return nil, fmt.Errorf("failed to redeem coupon: %w", err)
	}

	return &redeemedCoupon{code: coupon.Code, discount: result.Discount}, nil
}

func (s *CheckoutService) deductStock(ctx context.Context, q store.Querier, lines []pricedLine) error {
	for _, l := range lines {
		if !l.product.ManageStock {
			continue
		}
		if err := q.AdjustStock(ctx, l.product.ID, -l.quantity); err != nil {
			if errors.Is(err, models.ErrInsufficientStock) {
				return insufficientStock(l.product, err)
			}
			return fmt.Errorf("failed to deduct stock: %w", err)
		}
	}
	return nil
}

// countFlashSaleUsage increments each applied sale once per order
func (s *CheckoutService) countFlashSaleUsage(ctx context.Context, q store.Querier, lines []pricedLine) ([]int64, error) {
	seen := make(map[int64]bool)
	var ids []int64
	for _, l := range lines {
		id := l.quote.FlashSaleID
		if id == nil || seen[*id] {
			continue
		}
		seen[*id] = true

		if err := q.IncrementFlashSaleUsage(ctx, *id); err != nil {
			if errors.Is(err, models.ErrUsageExhausted) {
				return nil, models.NewRuleError(models.CodeFlashSaleExhausted,
					fmt.Sprintf("the flash sale on %s has sold out, please review your cart", l.product.Name), err)
			}
			return nil, fmt.Errorf("failed to count flash sale usage: %w", err)
		}
		ids = append(ids, *id)
	}
	return ids, nil
}

func (s *CheckoutService) newOrder(
	req *PlaceOrderRequest,
	quote shipping.Quote,
	subtotal, discount decimal.Decimal,
	couponCode *string,
	now time.Time,
) *models.Order {
	billing := req.ShippingAddress
	if req.BillingAddress != nil {
		billing = *req.BillingAddress
	}

	order := &models.Order{
		OrderNumber:     newOrderNumber(now),
		CustomerID:      req.CustomerID,
		CustomerEmail:   strings.TrimSpace(req.CustomerEmail),
		Status:          models.OrderStatusPending,
		PaymentMethod:   req.PaymentMethod,
		Subtotal:        subtotal,
		DiscountAmount:  discount,
		ShippingCost:    quote.Cost,
		CouponCode:      couponCode,
		ShippingZone:    quote.Zone,
		ShippingAddress: req.ShippingAddress,
		BillingAddress:  billing,
		Notes:           req.Notes,
	}
	if req.IdempotencyKey != "" {
		key := req.IdempotencyKey
		order.IdempotencyKey = &key
	}
	order.RecalculateTotal()
	return order
}

// afterCommit runs the side effects that must not roll the order back
func (s *CheckoutService) afterCommit(
	ctx context.Context,
	req *PlaceOrderRequest,
	order *models.Order,
	items []models.OrderItem,
	saleIDs []int64,
	couponHit bool,
) {
	util.OrdersPlacedTotal.WithLabelValues(order.PaymentMethod.String()).Inc()
	if couponHit {
		util.CouponRedemptionsTotal.Inc()
	}
	for _, id := range saleIDs {
		util.FlashSaleUsageTotal.WithLabelValues(strconv.FormatInt(id, 10)).Inc()
	}

	s.logger.Info("order placed",
		zap.Int64("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.String("total", order.Total.StringFixed(2)))

	if req.IdempotencyKey != "" {
		if err := s.cache.RememberOrder(ctx, req.IdempotencyKey, order.ID, s.idempotencyTTL); err != nil {
			s.logger.Warn("failed to cache idempotency key", zap.Error(err))
		}
	}
	if len(saleIDs) > 0 {
		if err := s.cache.InvalidateFlashSales(ctx); err != nil {
			s.logger.Warn("flash sale cache invalidation failed", zap.Error(err))
		}
	}

	eventItems := make([]models.OrderItemData, 0, len(items))
	for _, it := range items {
		eventItems = append(eventItems, models.OrderItemData{
			ProductID: *it.ProductID,
			Name:      it.Snapshot.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		})
	}

	event := &models.OrderPlacedEvent{
		BaseEvent:     newBaseEvent(models.EventTypeOrderPlaced, s.now()),
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		CustomerID:    order.CustomerID,
		CustomerEmail: order.CustomerEmail,
		Total:         order.Total,
		PaymentMethod: order.PaymentMethod,
		Items:         eventItems,
	}
	if err := s.eventPublisher.PublishOrderPlaced(ctx, event); err != nil {
		s.logger.Error("failed to publish OrderPlaced event", zap.Int64("order_id", order.ID), zap.Error(err))
	}
}

func insufficientStock(p *models.Product, err error) *models.RuleError {
	return models.NewRuleError(models.CodeInsufficientStock,
		fmt.Sprintf("only %d of %s left in stock", p.StockQuantity, p.Name), err)
}

// newOrderNumber returns ORD-YYYYMMDD-XXXXXXXX
func newOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("ORD-%s-%s", now.Format("20060102"), suffix)
}
