package store

import (
	"context"
	"fmt"
	"strings"

	"storefront-service/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const productColumns = `id, category_id, sku, name, slug, description, image, price, sale_price,
	stock_quantity, manage_stock, specifications, weight_grams, meta_title, meta_description,
	is_featured, created_at, updated_at`

// ProductFilter narrows product listings
type ProductFilter struct {
	CategoryID *int64
	Featured   bool
	Search     string
	Limit      int
	Offset     int
}

// GetProductByID retrieves a product by ID
func (q *Queries) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	err := sqlx.GetContext(ctx, q.ext, &product,
		"SELECT "+productColumns+" FROM products WHERE id = $1", id)
	if err != nil {
		return nil, notFound(err, "product", id)
	}
	return &product, nil
}

// GetProductsByIDs retrieves multiple products by IDs
func (q *Queries) GetProductsByIDs(ctx context.Context, ids []int64) ([]models.Product, error) {
	if len(ids) == 0 {
		return []models.Product{}, nil
	}

	var products []models.Product
	err := sqlx.SelectContext(ctx, q.ext, &products,
		"SELECT "+productColumns+" FROM products WHERE id = ANY($1) ORDER BY id", pq.Array(ids))
	return products, err
}

// LockProducts loads products with a row lock held until the transaction ends.
// Rows are locked in id order so concurrent checkouts cannot deadlock.
func (q *Queries) LockProducts(ctx context.Context, ids []int64) ([]models.Product, error) {
	if len(ids) == 0 {
		return []models.Product{}, nil
	}

	var products []models.Product
	err := sqlx.SelectContext(ctx, q.ext, &products,
		"SELECT "+productColumns+" FROM products WHERE id = ANY($1) ORDER BY id FOR UPDATE", pq.Array(ids))
	return products, err
}

// ListProducts lists catalog products
func (q *Queries) ListProducts(ctx context.Context, filter ProductFilter) ([]models.Product, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.CategoryID != nil {
		args = append(args, *filter.CategoryID)
		where = append(where, fmt.Sprintf(
			"(category_id = $%d OR category_id IN (SELECT id FROM categories WHERE parent_id = $%d))",
			len(args), len(args)))
	}
	if filter.Featured {
		where = append(where, "is_featured")
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		args = append(args, "%"+s+"%")
		where = append(where, fmt.Sprintf("name ILIKE $%d", len(args)))
	}

	query := "SELECT " + productColumns + " FROM products"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY is_featured DESC, id"

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	args = append(args, limit, filter.Offset)
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	var products []models.Product
	err := sqlx.SelectContext(ctx, q.ext, &products, query, args...)
	return products, err
}

// ListCategories returns all categories ordered for display
func (q *Queries) ListCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	err := sqlx.SelectContext(ctx, q.ext, &categories,
		`SELECT id, parent_id, name, slug, icon, sort_order, created_at
		FROM categories ORDER BY sort_order, id`)
	return categories, err
}

// AdjustStock changes stock_quantity by delta for products that manage stock.
// A deduction that would drop below zero fails with ErrInsufficientStock.
func (q *Queries) AdjustStock(ctx context.Context, productID int64, delta int) error {
	res, err := q.ext.ExecContext(ctx,
		`UPDATE products SET stock_quantity = stock_quantity + $1, updated_at = NOW()
		WHERE id = $2 AND manage_stock AND stock_quantity + $1 >= 0`,
		delta, productID)
	if err != nil {
		return fmt.Errorf("failed to adjust stock: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if delta < 0 {
			return fmt.Errorf("product %d: %w", productID, models.ErrInsufficientStock)
		}
		return fmt.Errorf("product %d does not manage stock: %w", productID, models.ErrNotFound)
	}
	return nil
}
