package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"storefront-service/internal/models"
	"storefront-service/internal/orderflow"
	"storefront-service/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func changeTo(orderID int64, status models.OrderStatus, comment string) *ChangeStatusRequest {
	actor := int64(1)
	return &ChangeStatusRequest{OrderID: orderID, Status: status, Comment: comment, ActorID: &actor}
}

func TestChangeStatusCancelRestoresStock(t *testing.T) {
	f := newFixture(t)
	f.addPendingOrder(500, 4, 3)
	require.Equal(t, 10, f.repo.Stock(4))

	order, err := f.orders.ChangeStatus(context.Background(), changeTo(500, models.OrderStatusCancelled, "customer asked"))
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, order.Status)
	assert.Equal(t, 13, f.repo.Stock(4))

	history, err := f.repo.GetStatusHistory(context.Background(), 500)
	require.NoError(t, err)
	require.Len(t, history, 1)
	h := history[0]
	require.NotNil(t, h.FromStatus)
	assert.Equal(t, models.OrderStatusPending, *h.FromStatus)
	assert.Equal(t, models.OrderStatusCancelled, h.ToStatus)
	require.NotNil(t, h.Comment)
	assert.Equal(t, "customer asked", *h.Comment)
	require.NotNil(t, h.ActorID)
	assert.Equal(t, int64(1), *h.ActorID)
	assert.Equal(t, testNow, h.CreatedAt)

	require.Len(t, f.events.changed, 1)
	assert.Equal(t, models.OrderStatusPending, f.events.changed[0].FromStatus)
	assert.Equal(t, models.OrderStatusCancelled, f.events.changed[0].ToStatus)
	assert.Equal(t, "buyer@example.com", f.events.changed[0].CustomerEmail)

	assert.False(t, f.mr.Exists("lock:order:500"), "lock released after the change")
}

func TestChangeStatusCancelThenReactivateRoundTrip(t *testing.T) {
	f := newFixture(t)
	f.addPendingOrder(501, 4, 3)
	ctx := context.Background()

	_, err := f.orders.ChangeStatus(ctx, changeTo(501, models.OrderStatusCancelled, ""))
	require.NoError(t, err)
	_, err = f.orders.ChangeStatus(ctx, changeTo(501, models.OrderStatusPending, "reopened"))
	require.NoError(t, err)

	assert.Equal(t, 10, f.repo.Stock(4))
	history, _ := f.repo.GetStatusHistory(ctx, 501)
	assert.Len(t, history, 2)
}

func TestChangeStatusWithoutStockEffect(t *testing.T) {
	f := newFixture(t)
	f.addPendingOrder(502, 4, 3)

	_, err := f.orders.ChangeStatus(context.Background(), changeTo(502, models.OrderStatusProcessing, ""))
	require.NoError(t, err)
	assert.Equal(t, 10, f.repo.Stock(4))
}

func TestChangeStatusUnmanagedStock(t *testing.T) {
	f := newFixture(t)
	f.addPendingOrder(503, 5, 2)

	_, err := f.orders.ChangeStatus(context.Background(), changeTo(503, models.OrderStatusCancelled, ""))
	require.NoError(t, err)
	assert.Equal(t, 0, f.repo.Stock(5))
}

func TestChangeStatusRejectsDisallowedTransition(t *testing.T) {
	f := newFixture(t)
	f.addPendingOrder(504, 4, 1)
	ctx := context.Background()

	_, err := f.orders.ChangeStatus(ctx, changeTo(504, models.OrderStatusDelivered, ""))
	var transErr *models.TransitionError
	require.True(t, errors.As(err, &transErr), "got %v", err)
	assert.Equal(t, models.OrderStatusPending, transErr.From)
	assert.Equal(t, models.OrderStatusDelivered, transErr.To)

	order, _ := f.repo.GetOrderByID(ctx, 504)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	history, _ := f.repo.GetStatusHistory(ctx, 504)
	assert.Empty(t, history)
	assert.Empty(t, f.events.changed)
}

func TestChangeStatusPermissivePolicy(t *testing.T) {
	f := newFixture(t)
	f.orders.policy = orderflow.Policy{Strict: false}
	f.addPendingOrder(505, 4, 1)

	order, err := f.orders.ChangeStatus(context.Background(), changeTo(505, models.OrderStatusDelivered, ""))
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusDelivered, order.Status)
}

func TestChangeStatusReactivateNeedsStock(t *testing.T) {
	f := newFixture(t)
	f.addPendingOrder(506, 4, 3)
	ctx := context.Background()

	_, err := f.orders.ChangeStatus(ctx, changeTo(506, models.OrderStatusCancelled, ""))
	require.NoError(t, err)

	// another checkout drains the shelf while the order is cancelled
	_, err = f.checkout.PlaceOrder(ctx, cart(CartItem{ProductID: 4, Quantity: 12}))
	require.NoError(t, err)
	require.Equal(t, 1, f.repo.Stock(4))

	_, err = f.orders.ChangeStatus(ctx, changeTo(506, models.OrderStatusProcessing, ""))
	requireRule(t, err, models.CodeInsufficientStock)

	order, _ := f.repo.GetOrderByID(ctx, 506)
	assert.Equal(t, models.OrderStatusCancelled, order.Status)
	assert.Equal(t, 1, f.repo.Stock(4))
	history, _ := f.repo.GetStatusHistory(ctx, 506)
	assert.Len(t, history, 1)
}

func TestChangeStatusRollsBackWhenHistoryFails(t *testing.T) {
	f := newFixture(t)
	f.addPendingOrder(507, 4, 3)
	f.repo.FailOn("InsertStatusHistory", errors.New("connection reset"))
	ctx := context.Background()

	_, err := f.orders.ChangeStatus(ctx, changeTo(507, models.OrderStatusCancelled, ""))
	require.Error(t, err)

	order, _ := f.repo.GetOrderByID(ctx, 507)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, 10, f.repo.Stock(4))
	assert.Empty(t, f.events.changed)
}

func TestChangeStatusWhileLocked(t *testing.T) {
	f := newFixture(t)
	f.addPendingOrder(508, 4, 1)
	ctx := context.Background()

	_, ok, err := f.cache.AcquireLock(ctx, "order:508", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = f.orders.ChangeStatus(ctx, changeTo(508, models.OrderStatusProcessing, ""))
	requireRule(t, err, models.CodeOrderLocked)
	assert.ErrorIs(t, err, models.ErrOrderLocked)
}

func TestChangeStatusUnknownOrder(t *testing.T) {
	f := newFixture(t)

	_, err := f.orders.ChangeStatus(context.Background(), changeTo(9999, models.OrderStatusProcessing, ""))
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestChangeStatusValidation(t *testing.T) {
	f := newFixture(t)
	f.addPendingOrder(509, 4, 1)

	_, err := f.orders.ChangeStatus(context.Background(), changeTo(509, "lost", ""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status")
}

func TestGetOrder(t *testing.T) {
	f := newFixture(t)
	f.addPendingOrder(510, 4, 2)
	ctx := context.Background()

	_, err := f.orders.ChangeStatus(ctx, changeTo(510, models.OrderStatusProcessing, ""))
	require.NoError(t, err)

	details, err := f.orders.GetOrder(ctx, 510)
	require.NoError(t, err)
	assert.Equal(t, "Processing", details.Badge.Label)
	assert.Len(t, details.Items, 1)
	assert.Len(t, details.History, 1)
	assert.ElementsMatch(t,
		[]models.OrderStatus{models.OrderStatusShipped, models.OrderStatusCancelled},
		details.NextStatuses)
}

func TestListOrdersRejectsUnknownStatus(t *testing.T) {
	f := newFixture(t)
	bogus := models.OrderStatus("lost")

	_, err := f.orders.ListOrders(context.Background(), store.OrderFilter{Status: &bogus})
	assert.True(t, models.IsRuleRejection(err))
}

func TestUpdateDetailsKeepsTotalConsistent(t *testing.T) {
	f := newFixture(t)
	f.addPendingOrder(511, 4, 3)
	ctx := context.Background()

	notes := "leave at the gate"
	order, err := f.orders.UpdateDetails(ctx, &UpdateOrderRequest{
		OrderID:      511,
		Notes:        &notes,
		ShippingCost: decPtr("0"),
	})
	require.NoError(t, err)
	assert.Equal(t, notes, order.Notes)
	assert.True(t, dec("5997.00").Equal(order.Total))

	moved := dhakaAddress()
	moved.City = "Sylhet"
	order, err = f.orders.UpdateDetails(ctx, &UpdateOrderRequest{OrderID: 511, ShippingAddress: &moved})
	require.NoError(t, err)
	assert.Equal(t, "Outside Dhaka", order.ShippingZone)
	assert.True(t, dec("120").Equal(order.ShippingCost))
	assert.True(t, order.Subtotal.Add(order.ShippingCost).Equal(order.Total))

	stored, _ := f.repo.GetOrderByID(ctx, 511)
	assert.True(t, dec("6117.00").Equal(stored.Total), stored.Total.String())
}

func TestUpdateDetailsRejectsNegativeShipping(t *testing.T) {
	f := newFixture(t)
	f.addPendingOrder(512, 4, 1)

	_, err := f.orders.UpdateDetails(context.Background(), &UpdateOrderRequest{OrderID: 512, ShippingCost: decPtr("-1")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shipping_cost")
}

func TestDeleteOrder(t *testing.T) {
	f := newFixture(t)
	f.addPendingOrder(513, 4, 1)
	ctx := context.Background()

	err := f.orders.DeleteOrder(ctx, 513)
	requireRule(t, err, models.CodeOrderNotCancelled)

	_, err = f.orders.ChangeStatus(ctx, changeTo(513, models.OrderStatusCancelled, ""))
	require.NoError(t, err)

	require.NoError(t, f.orders.DeleteOrder(ctx, 513))
	_, err = f.repo.GetOrderByID(ctx, 513)
	assert.ErrorIs(t, err, models.ErrNotFound)

	assert.ErrorIs(t, f.orders.DeleteOrder(ctx, 513), models.ErrNotFound)
}
