package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"storefront-service/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const flashSaleColumns = `id, name, description, discount_percentage, starts_at, ends_at, status,
	product_ids, max_usage, used_count, is_featured, created_at, updated_at`

const couponColumns = `id, code, description, discount_type, value, minimum_order_amount,
	maximum_discount_amount, valid_until, usage_limit, used_count, is_active, created_at, updated_at`

// ErrDuplicateCode is returned when a coupon code is already taken
var ErrDuplicateCode = errors.New("coupon code already exists")

// ListFlashSales returns every flash sale, soonest ending first
func (q *Queries) ListFlashSales(ctx context.Context) ([]models.FlashSale, error) {
	var sales []models.FlashSale
	err := sqlx.SelectContext(ctx, q.ext, &sales,
		"SELECT "+flashSaleColumns+" FROM flash_sales ORDER BY ends_at, id")
	return sales, err
}

// GetFlashSaleByID retrieves a flash sale by ID
func (q *Queries) GetFlashSaleByID(ctx context.Context, id int64) (*models.FlashSale, error) {
	var sale models.FlashSale
	err := sqlx.GetContext(ctx, q.ext, &sale,
		"SELECT "+flashSaleColumns+" FROM flash_sales WHERE id = $1", id)
	if err != nil {
		return nil, notFound(err, "flash sale", id)
	}
	return &sale, nil
}

// CreateFlashSale inserts a flash sale
func (q *Queries) CreateFlashSale(ctx context.Context, sale *models.FlashSale) error {
	return sqlx.GetContext(ctx, q.ext, sale, `
		INSERT INTO flash_sales (name, description, discount_percentage, starts_at, ends_at, status,
			product_ids, max_usage, is_featured)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, used_count, created_at, updated_at`,
		sale.Name, sale.Description, sale.DiscountPercentage, sale.StartsAt, sale.EndsAt, sale.Status,
		sale.ProductIDs, sale.MaxUsage, sale.IsFeatured)
}

// SetFlashSaleStatus flips the stored admin switch
func (q *Queries) SetFlashSaleStatus(ctx context.Context, id int64, status models.FlashSaleStatus) error {
	res, err := q.ext.ExecContext(ctx,
		"UPDATE flash_sales SET status = $1, updated_at = NOW() WHERE id = $2", status, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return fmt.Errorf("flash sale %d: %w", id, models.ErrNotFound)
	}
	return nil
}

// IncrementFlashSaleUsage counts one more order against the sale.
// The increment is a single conditional UPDATE so concurrent checkouts never lose a count
// or overshoot max_usage.
func (q *Queries) IncrementFlashSaleUsage(ctx context.Context, id int64) error {
	res, err := q.ext.ExecContext(ctx, `
		UPDATE flash_sales SET used_count = used_count + 1, updated_at = NOW()
		WHERE id = $1 AND (max_usage IS NULL OR used_count < max_usage)`, id)
	if err != nil {
		return fmt.Errorf("failed to increment flash sale usage: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("flash sale %d: %w", id, models.ErrUsageExhausted)
	}
	return nil
}

// ListCoupons returns all coupons, newest first
func (q *Queries) ListCoupons(ctx context.Context) ([]models.Coupon, error) {
	var coupons []models.Coupon
	err := sqlx.SelectContext(ctx, q.ext, &coupons,
		"SELECT "+couponColumns+" FROM coupons ORDER BY created_at DESC, id DESC")
	return coupons, err
}

// GetCouponByCode retrieves a coupon by code, case-insensitively
func (q *Queries) GetCouponByCode(ctx context.Context, code string) (*models.Coupon, error) {
	var coupon models.Coupon
	err := sqlx.GetContext(ctx, q.ext, &coupon,
		"SELECT "+couponColumns+" FROM coupons WHERE UPPER(code) = UPPER($1)", strings.TrimSpace(code))
	if err != nil {
		return nil, notFound(err, "coupon", code)
	}
	return &coupon, nil
}

// LockCouponByCode retrieves a coupon and locks its row until the transaction ends
func (q *Queries) LockCouponByCode(ctx context.Context, code string) (*models.Coupon, error) {
	var coupon models.Coupon
	err := sqlx.GetContext(ctx, q.ext, &coupon,
		"SELECT "+couponColumns+" FROM coupons WHERE UPPER(code) = UPPER($1) FOR UPDATE", strings.TrimSpace(code))
	if err != nil {
		return nil, notFound(err, "coupon", code)
	}
	return &coupon, nil
}

// CreateCoupon inserts a coupon
func (q *Queries) CreateCoupon(ctx context.Context, c *models.Coupon) error {
	err := sqlx.GetContext(ctx, q.ext, c, `
		INSERT INTO coupons (code, description, discount_type, value, minimum_order_amount,
			maximum_discount_amount, valid_until, usage_limit, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, used_count, created_at, updated_at`,
		c.Code, c.Description, c.DiscountType, c.Value, c.MinimumOrderAmount,
		c.MaximumDiscountAmount, c.ValidUntil, c.UsageLimit, c.IsActive)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return ErrDuplicateCode
	}
	return err
}

// IncrementCouponUsage counts one more order against the coupon, atomically
func (q *Queries) IncrementCouponUsage(ctx context.Context, id int64) error {
	res, err := q.ext.ExecContext(ctx, `
		UPDATE coupons SET used_count = used_count + 1, updated_at = NOW()
		WHERE id = $1 AND (usage_limit IS NULL OR used_count < usage_limit)`, id)
	if err != nil {
		return fmt.Errorf("failed to increment coupon usage: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("coupon %d: %w", id, models.ErrUsageExhausted)
	}
	return nil
}
