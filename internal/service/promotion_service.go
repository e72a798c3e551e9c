package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront-service/internal/display"
	"storefront-service/internal/models"
	"storefront-service/internal/pricing"
	"storefront-service/internal/store"
	"storefront-service/internal/util"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// FlashSaleView is a flash sale as shown to shoppers, evaluated at read time
type FlashSaleView struct {
	models.FlashSale
	LiveStatus    models.FlashSaleStatus `json:"live_status"`
	Badge         display.Badge          `json:"badge"`
	TimeRemaining string                 `json:"time_remaining"`
}

// CouponCheck is the outcome of validating a coupon against a subtotal
type CouponCheck struct {
	Code     string          `json:"code"`
	Valid    bool            `json:"valid"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Discount decimal.Decimal `json:"discount"`
	Final    decimal.Decimal `json:"final"`
	Message  string          `json:"message,omitempty"`
}

// PromotionService handles flash sales and coupons
type PromotionService struct {
	repo     Repository
	cache    Cache
	cacheTTL time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// NewPromotionService creates a new promotion service
func NewPromotionService(repo Repository, cache Cache, cacheTTL time.Duration) *PromotionService {
	return &PromotionService{
		repo:     repo,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   util.GetLogger(),
		now:      time.Now,
	}
}

// FlashSales returns every stored flash sale, served from cache when possible.
// Status is never cached: callers evaluate it against the clock.
func (s *PromotionService) FlashSales(ctx context.Context) ([]models.FlashSale, error) {
	var sales []models.FlashSale
	hit, err := s.cache.GetFlashSales(ctx, &sales)
	if err != nil {
		s.logger.Warn("flash sale cache read failed", zap.Error(err))
	}
	if hit {
		util.CacheLookupsTotal.WithLabelValues("flash_sales", "hit").Inc()
		return sales, nil
	}
	util.CacheLookupsTotal.WithLabelValues("flash_sales", "miss").Inc()

	sales, err = s.repo.ListFlashSales(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list flash sales: %w", err)
	}
	if err := s.cache.SetFlashSales(ctx, sales, s.cacheTTL); err != nil {
		s.logger.Warn("flash sale cache write failed", zap.Error(err))
	}
	return sales, nil
}

// CurrentFlashSales returns live and upcoming sales with their badge and countdown
func (s *PromotionService) CurrentFlashSales(ctx context.Context) ([]FlashSaleView, error) {
	ctx, span := util.StartSpan(ctx, "PromotionService.CurrentFlashSales")
	defer span.End()

	sales, err := s.FlashSales(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	views := make([]FlashSaleView, 0, len(sales))
	for i := range sales {
		view := s.view(&sales[i], now)
		if view.LiveStatus == models.FlashSaleExpired || view.LiveStatus == models.FlashSaleInactive {
			continue
		}
		views = append(views, view)
	}
	return views, nil
}

func (s *PromotionService) view(sale *models.FlashSale, now time.Time) FlashSaleView {
	status := pricing.EvaluateFlashSale(sale, now)
	v := FlashSaleView{
		FlashSale:  *sale,
		LiveStatus: status,
		Badge:      display.FlashSaleBadge(status),
	}
	if status == models.FlashSaleScheduled {
		v.TimeRemaining = display.StartsIn(now, sale.StartsAt)
	} else {
		v.TimeRemaining = display.TimeRemaining(now, sale.EndsAt)
	}
	return v
}

// ActiveCoupons lists coupons a shopper could still redeem
func (s *PromotionService) ActiveCoupons(ctx context.Context) ([]models.Coupon, error) {
	coupons, err := s.repo.ListCoupons(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list coupons: %w", err)
	}

	now := s.now()
	active := make([]models.Coupon, 0, len(coupons))
	for i := range coupons {
		// the minimum order is checked per cart, so test against an unbounded subtotal
		reason := pricing.CheckCoupon(&coupons[i], decimal.New(1, 12), now)
		if reason == "" {
			active = append(active, coupons[i])
		}
	}
	return active, nil
}

// ValidateCoupon checks a coupon code against a cart subtotal without redeeming it
func (s *PromotionService) ValidateCoupon(ctx context.Context, code string, subtotal decimal.Decimal) (*CouponCheck, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, models.NewRuleError(models.CodeCouponNotFound, "coupon code is required", nil)
	}

	coupon, err := s.repo.GetCouponByCode(ctx, code)
	if errors.Is(err, models.ErrNotFound) {
		return nil, models.NewRuleError(models.CodeCouponNotFound, "coupon not found", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load coupon: %w", err)
	}

	result := pricing.ApplyCoupon(coupon, subtotal, s.now())
	check := &CouponCheck{
		Code:     coupon.Code,
		Valid:    result.Valid(),
		Subtotal: subtotal,
		Discount: result.Discount,
		Final:    result.Final,
	}
	if !result.Valid() {
		check.Message = result.Rejection.Message()
		util.CouponRejectionsTotal.WithLabelValues(string(result.Rejection)).Inc()
	}
	return check, nil
}

// CreateFlashSale validates and stores a new flash sale
func (s *PromotionService) CreateFlashSale(ctx context.Context, req *CreateFlashSaleRequest) (*models.FlashSale, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	status := req.Status
	if status == "" {
		status = models.FlashSaleActive
	}

	sale := &models.FlashSale{
		Name:               strings.TrimSpace(req.Name),
		Description:        req.Description,
		DiscountPercentage: req.DiscountPercentage,
		StartsAt:           req.StartsAt,
		EndsAt:             req.EndsAt,
		Status:             status,
		ProductIDs:         pq.Int64Array(req.ProductIDs),
		MaxUsage:           req.MaxUsage,
		IsFeatured:         req.IsFeatured,
	}
	if err := s.repo.CreateFlashSale(ctx, sale); err != nil {
		return nil, fmt.Errorf("failed to create flash sale: %w", err)
	}

	s.invalidate(ctx)
	s.logger.Info("flash sale created",
		zap.Int64("flash_sale_id", sale.ID),
		zap.String("discount_percentage", sale.DiscountPercentage.String()))
	return sale, nil
}

// SetFlashSaleStatus flips the admin on/off switch of a sale
func (s *PromotionService) SetFlashSaleStatus(ctx context.Context, id int64, status models.FlashSaleStatus) (*models.FlashSale, error) {
	if status != models.FlashSaleActive && status != models.FlashSaleInactive {
		return nil, models.NewRuleError("INVALID_STATUS", "status must be active or inactive", nil)
	}

	if err := s.repo.SetFlashSaleStatus(ctx, id, status); err != nil {
		return nil, err
	}
	s.invalidate(ctx)

	return s.repo.GetFlashSaleByID(ctx, id)
}

// CreateCoupon validates and stores a new coupon
func (s *PromotionService) CreateCoupon(ctx context.Context, req *CreateCouponRequest) (*models.Coupon, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	coupon := &models.Coupon{
		Code:                  strings.ToUpper(strings.TrimSpace(req.Code)),
		Description:           req.Description,
		DiscountType:          req.DiscountType,
		Value:                 req.Value,
		MinimumOrderAmount:    req.MinimumOrderAmount,
		MaximumDiscountAmount: req.MaximumDiscountAmount,
		ValidUntil:            req.ValidUntil,
		UsageLimit:            req.UsageLimit,
		IsActive:              active,
	}
	err := s.repo.CreateCoupon(ctx, coupon)
	if errors.Is(err, store.ErrDuplicateCode) {
		return nil, models.NewRuleError(models.CodeDuplicateCode, "coupon code already exists", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create coupon: %w", err)
	}
	return coupon, nil
}

func (s *PromotionService) invalidate(ctx context.Context) {
	if err := s.cache.InvalidateFlashSales(ctx); err != nil {
		s.logger.Warn("flash sale cache invalidation failed", zap.Error(err))
	}
}
