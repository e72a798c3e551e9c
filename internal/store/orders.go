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

// ErrDuplicateIdempotencyKey is returned when another request already created an order for the key
var ErrDuplicateIdempotencyKey = errors.New("idempotency key already used")

const orderColumns = `id, order_number, customer_id, customer_email, status, payment_method,
	subtotal, discount_amount, shipping_cost, total, coupon_code, shipping_zone,
	shipping_address, billing_address, notes, idempotency_key, created_at, updated_at`

const orderItemColumns = `id, order_id, product_id, quantity, unit_price, subtotal, product_snapshot, flash_sale_id`

// OrderFilter narrows admin order listings
type OrderFilter struct {
	Status     *models.OrderStatus
	CustomerID *int64
	Limit      int
	Offset     int
}

// CreateOrder creates a new order
func (q *Queries) CreateOrder(ctx context.Context, order *models.Order) error {
	query := `
		INSERT INTO orders (order_number, customer_id, customer_email, status, payment_method,
			subtotal, discount_amount, shipping_cost, total, coupon_code, shipping_zone,
			shipping_address, billing_address, notes, idempotency_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id, created_at, updated_at`

	err := sqlx.GetContext(ctx, q.ext, order, query,
		order.OrderNumber, order.CustomerID, order.CustomerEmail, order.Status, order.PaymentMethod,
		order.Subtotal, order.DiscountAmount, order.ShippingCost, order.Total, order.CouponCode,
		order.ShippingZone, order.ShippingAddress, order.BillingAddress, order.Notes, order.IdempotencyKey)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" && strings.Contains(pqErr.Constraint, "idempotency_key") {
		return ErrDuplicateIdempotencyKey
	}
	return err
}

// CreateOrderItem creates a new order item
func (q *Queries) CreateOrderItem(ctx context.Context, item *models.OrderItem) error {
	query := `
		INSERT INTO order_items (order_id, product_id, quantity, unit_price, subtotal, product_snapshot, flash_sale_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	return sqlx.GetContext(ctx, q.ext, &item.ID, query,
		item.OrderID, item.ProductID, item.Quantity, item.UnitPrice, item.Subtotal, item.Snapshot, item.SaleID)
}

// GetOrderByID retrieves an order by ID
func (q *Queries) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := sqlx.GetContext(ctx, q.ext, &order,
		"SELECT "+orderColumns+" FROM orders WHERE id = $1", id)
	if err != nil {
		return nil, notFound(err, "order", id)
	}
	return &order, nil
}

// GetOrderForUpdate retrieves an order and locks its row until the transaction ends
func (q *Queries) GetOrderForUpdate(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := sqlx.GetContext(ctx, q.ext, &order,
		"SELECT "+orderColumns+" FROM orders WHERE id = $1 FOR UPDATE", id)
	if err != nil {
		return nil, notFound(err, "order", id)
	}
	return &order, nil
}

// GetOrderByIdempotencyKey retrieves an order by idempotency key, nil when absent
func (q *Queries) GetOrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error) {
	order, err := q.getOrderWhere(ctx, "idempotency_key = $1", key)
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (q *Queries) getOrderWhere(ctx context.Context, cond string, args ...interface{}) (*models.Order, error) {
	var orders []models.Order
	if err := sqlx.SelectContext(ctx, q.ext, &orders,
		"SELECT "+orderColumns+" FROM orders WHERE "+cond+" LIMIT 1", args...); err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, nil
	}
	return &orders[0], nil
}

// ListOrders lists orders newest first
func (q *Queries) ListOrders(ctx context.Context, filter OrderFilter) ([]models.Order, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.Status != nil {
		args = append(args, *filter.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.CustomerID != nil {
		args = append(args, *filter.CustomerID)
		where = append(where, fmt.Sprintf("customer_id = $%d", len(args)))
	}

	query := "SELECT " + orderColumns + " FROM orders"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	args = append(args, limit, filter.Offset)
	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	var orders []models.Order
	err := sqlx.SelectContext(ctx, q.ext, &orders, query, args...)
	return orders, err
}

// GetOrderItems retrieves all items for an order
func (q *Queries) GetOrderItems(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := sqlx.SelectContext(ctx, q.ext, &items,
		"SELECT "+orderItemColumns+" FROM order_items WHERE order_id = $1 ORDER BY id", orderID)
	return items, err
}

// GetStockLines joins order items with the live manage_stock flag of their products.
// Items whose product has been deleted have nothing to restock and are skipped.
func (q *Queries) GetStockLines(ctx context.Context, orderID int64) ([]models.StockLine, error) {
	var lines []models.StockLine
	err := sqlx.SelectContext(ctx, q.ext, &lines, `
		SELECT oi.product_id, oi.quantity, p.manage_stock
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = $1
		ORDER BY oi.product_id`, orderID)
	return lines, err
}

// UpdateOrderStatus updates order status
func (q *Queries) UpdateOrderStatus(ctx context.Context, orderID int64, status models.OrderStatus) error {
	_, err := q.ext.ExecContext(ctx,
		"UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2",
		status, orderID)
	return err
}

// UpdateOrderDetails persists the editable fields of an order
func (q *Queries) UpdateOrderDetails(ctx context.Context, order *models.Order) error {
	return sqlx.GetContext(ctx, q.ext, &order.UpdatedAt, `
		UPDATE orders
		SET shipping_address = $1, billing_address = $2, notes = $3,
			shipping_cost = $4, shipping_zone = $5, total = $6, updated_at = NOW()
		WHERE id = $7
		RETURNING updated_at`,
		order.ShippingAddress, order.BillingAddress, order.Notes,
		order.ShippingCost, order.ShippingZone, order.Total, order.ID)
}

// DeleteOrder hard-deletes a cancelled order; items and history cascade
func (q *Queries) DeleteOrder(ctx context.Context, orderID int64) error {
	res, err := q.ext.ExecContext(ctx,
		"DELETE FROM orders WHERE id = $1 AND status = $2", orderID, models.OrderStatusCancelled)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return models.ErrOrderNotCancelled
	}
	return nil
}

// InsertStatusHistory appends a status history row
func (q *Queries) InsertStatusHistory(ctx context.Context, h *models.StatusHistory) error {
	return sqlx.GetContext(ctx, q.ext, &h.ID, `
		INSERT INTO order_status_history (order_id, from_status, to_status, comment, actor_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		h.OrderID, h.FromStatus, h.ToStatus, h.Comment, h.ActorID, h.CreatedAt)
}

// GetStatusHistory lists an order's status changes oldest first
func (q *Queries) GetStatusHistory(ctx context.Context, orderID int64) ([]models.StatusHistory, error) {
	var history []models.StatusHistory
	err := sqlx.SelectContext(ctx, q.ext, &history, `
		SELECT id, order_id, from_status, to_status, comment, actor_id, created_at
		FROM order_status_history WHERE order_id = $1 ORDER BY created_at, id`, orderID)
	return history, err
}
