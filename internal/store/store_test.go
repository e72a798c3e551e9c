package store

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"storefront-service/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewFromDB(sqlx.NewDb(db, "sqlmock")), mock
}

func TestAdjustStock(t *testing.T) {
	ctx := context.Background()
	query := regexp.QuoteMeta("UPDATE products SET stock_quantity = stock_quantity + $1")

	t.Run("restock applies delta", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectExec(query).WithArgs(3, int64(4)).WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, s.AdjustStock(ctx, 4, 3))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("deduction below zero is rejected", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectExec(query).WithArgs(-5, int64(4)).WillReturnResult(sqlmock.NewResult(0, 0))

		err := s.AdjustStock(ctx, 4, -5)
		assert.True(t, errors.Is(err, models.ErrInsufficientStock))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestIncrementFlashSaleUsage(t *testing.T) {
	ctx := context.Background()
	query := regexp.QuoteMeta("UPDATE flash_sales SET used_count = used_count + 1")

	t.Run("counts usage", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectExec(query).WithArgs(int64(1)).WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, s.IncrementFlashSaleUsage(ctx, 1))
	})

	t.Run("exhausted sale", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectExec(query).WithArgs(int64(1)).WillReturnResult(sqlmock.NewResult(0, 0))

		err := s.IncrementFlashSaleUsage(ctx, 1)
		assert.True(t, errors.Is(err, models.ErrUsageExhausted))
	})
}

func TestIncrementCouponUsage(t *testing.T) {
	ctx := context.Background()
	query := regexp.QuoteMeta("UPDATE coupons SET used_count = used_count + 1")

	t.Run("counts usage", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectExec(query).WithArgs(int64(3)).WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, s.IncrementCouponUsage(ctx, 3))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("limit reached", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectExec(regexp.QuoteMeta("(usage_limit IS NULL OR used_count < usage_limit)")).
			WithArgs(int64(3)).WillReturnResult(sqlmock.NewResult(0, 0))

		err := s.IncrementCouponUsage(ctx, 3)
		assert.ErrorIs(t, err, models.ErrUsageExhausted)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCreateOrder_DuplicateIdempotencyKey(t *testing.T) {
	s, mock := newMockStore(t)
	key := "checkout-abc"
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO orders")).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "orders_idempotency_key_key"})

	err := s.CreateOrder(context.Background(), &models.Order{OrderNumber: "ORD-1", IdempotencyKey: &key})
	assert.ErrorIs(t, err, ErrDuplicateIdempotencyKey)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrder_OtherUniqueViolation(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO orders")).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "orders_order_number_key"})

	err := s.CreateOrder(context.Background(), &models.Order{OrderNumber: "ORD-1"})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrDuplicateIdempotencyKey))
}

func TestDeleteOrder_OnlyCancelled(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM orders WHERE id = $1 AND status = $2")).
		WithArgs(int64(9), models.OrderStatusCancelled).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.DeleteOrder(context.Background(), 9)
	assert.ErrorIs(t, err, models.ErrOrderNotCancelled)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrderByID_NotFound(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM orders WHERE id = $1")).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := s.GetOrderByID(context.Background(), 42)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestGetUserPermissions(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT DISTINCT p.name")).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"name"}).
			AddRow(models.PermOrdersUpdate).
			AddRow(models.PermOrdersView))

	perms, err := s.GetUserPermissions(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []string{models.PermOrdersUpdate, models.PermOrdersView}, perms)
}

func TestInTx(t *testing.T) {
	ctx := context.Background()

	t.Run("commits on success", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("UPDATE orders SET status")).
			WithArgs(models.OrderStatusShipped, int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := s.InTx(ctx, func(q Querier) error {
			return q.UpdateOrderStatus(ctx, 1, models.OrderStatusShipped)
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on error", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("UPDATE products SET stock_quantity")).
			WithArgs(-2, int64(7)).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err := s.InTx(ctx, func(q Querier) error {
			return q.AdjustStock(ctx, 7, -2)
		})
		assert.ErrorIs(t, err, models.ErrInsufficientStock)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on panic", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectRollback()

		assert.Panics(t, func() {
			_ = s.InTx(ctx, func(q Querier) error { panic("boom") })
		})
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSeedGrantsEveryCheckedPermission(t *testing.T) {
	seed, err := migrationFS.ReadFile("migrations/0002_seed.sql")
	require.NoError(t, err)

	for _, perm := range []string{
		models.PermOrdersView,
		models.PermOrdersUpdate,
		models.PermOrdersDelete,
		models.PermFlashSalesManage,
		models.PermCouponsManage,
	} {
		assert.Contains(t, string(seed), "'"+perm+"'")
	}
}
