package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront-service/internal/display"
	"storefront-service/internal/models"
	"storefront-service/internal/orderflow"
	"storefront-service/internal/store"
	"storefront-service/internal/util"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// OrderDetails is an order with everything the admin order page shows
type OrderDetails struct {
	Order        *models.Order          `json:"order"`
	Items        []models.OrderItem     `json:"items"`
	History      []models.StatusHistory `json:"history"`
	Badge        display.Badge          `json:"badge"`
	NextStatuses []models.OrderStatus   `json:"next_statuses"`
}

// OrderService handles order business logic
type OrderService struct {
	repo           Repository
	cache          Cache
	shipping       *ShippingService
	eventPublisher EventPublisher
	policy         orderflow.Policy
	lockTTL        time.Duration
	logger         *zap.Logger
	now            func() time.Time
}

// NewOrderService creates a new order service
func NewOrderService(
	repo Repository,
	cache Cache,
	shipping *ShippingService,
	eventPublisher EventPublisher,
	policy orderflow.Policy,
	lockTTL time.Duration,
) *OrderService {
	return &OrderService{
		repo:           repo,
		cache:          cache,
		shipping:       shipping,
		eventPublisher: eventPublisher,
		policy:         policy,
		lockTTL:        lockTTL,
		logger:         util.GetLogger(),
		now:            time.Now,
	}
}

// GetOrder retrieves an order with its items and status history
func (s *OrderService) GetOrder(ctx context.Context, orderID int64) (*OrderDetails, error) {
	order, err := s.repo.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	items, err := s.repo.GetOrderItems(ctx, orderID)
	if err != nil {
		return nil, err
	}

	history, err := s.repo.GetStatusHistory(ctx, orderID)
	if err != nil {
		return nil, err
	}

	return &OrderDetails{
		Order:        order,
		Items:        items,
		History:      history,
		Badge:        display.OrderStatusBadge(order.Status),
		NextStatuses: s.policy.Targets(order.Status),
	}, nil
}

// ListOrders lists orders newest first
func (s *OrderService) ListOrders(ctx context.Context, filter store.OrderFilter) ([]models.Order, error) {
	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, models.NewRuleError("INVALID_STATUS", fmt.Sprintf("unknown status %q", *filter.Status), nil)
	}
	orders, err := s.repo.ListOrders(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// ChangeStatus moves an order to a new status.
// The status row, the stock adjustments and the history entry commit in one transaction;
// the customer notification is published only after the commit.
func (s *OrderService) ChangeStatus(ctx context.Context, req *ChangeStatusRequest) (order *models.Order, err error) {
	ctx, span := util.StartSpan(ctx, "OrderService.ChangeStatus")
	span.SetAttributes(attribute.Int64("order.id", req.OrderID), attribute.String("order.to_status", req.Status.String()))
	defer func() { util.EndSpan(span, err) }()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	release, err := s.lock(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	defer release()

	var transition *orderflow.Transition
	err = s.repo.InTx(ctx, func(q store.Querier) error {
		current, err := q.GetOrderForUpdate(ctx, req.OrderID)
		if err != nil {
			return err
		}

		lines, err := q.GetStockLines(ctx, req.OrderID)
		if err != nil {
			return fmt.Errorf("failed to load order items: %w", err)
		}

		transition, err = orderflow.Plan(s.policy, current, req.Status, lines, req.Comment, req.ActorID, s.now())
		if err != nil {
			return err
		}

		for _, adj := range transition.Adjustments {
			if err := q.AdjustStock(ctx, adj.ProductID, adj.Delta); err != nil {
				if errors.Is(err, models.ErrInsufficientStock) {
					return models.NewRuleError(models.CodeInsufficientStock,
						fmt.Sprintf("not enough stock of product %d to reactivate this order", adj.ProductID), err)
				}
				return fmt.Errorf("failed to adjust stock: %w", err)
			}
		}

		if err := q.UpdateOrderStatus(ctx, req.OrderID, transition.To); err != nil {
			return fmt.Errorf("failed to update order status: %w", err)
		}

		history := transition.History
		if err := q.InsertStatusHistory(ctx, &history); err != nil {
			return fmt.Errorf("failed to record status history: %w", err)
		}

		current.Status = transition.To
		current.UpdatedAt = history.CreatedAt
		order = current
		return nil
	})
	if err != nil {
		if models.IsRuleRejection(err) {
			util.OrderTransitionsRejectedTotal.WithLabelValues(rejectionReason(err)).Inc()
			return nil, err
		}
		if errors.Is(err, models.ErrNotFound) {
			return nil, err
		}
		s.logger.Error("status change failed", zap.Int64("order_id", req.OrderID), zap.Error(err))
		return nil, fmt.Errorf("failed to change order status: %w", err)
	}

	s.recordTransition(transition)
	s.logger.Info("order status changed",
		zap.Int64("order_id", order.ID),
		zap.String("from", transition.From.String()),
		zap.String("to", transition.To.String()),
		zap.Int("stock_adjustments", len(transition.Adjustments)))

	event := &models.OrderStatusChangedEvent{
		BaseEvent:     newBaseEvent(models.EventTypeOrderStatusChanged, s.now()),
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		CustomerEmail: order.CustomerEmail,
		FromStatus:    transition.From,
		ToStatus:      transition.To,
		Comment:       req.Comment,
		ActorID:       req.ActorID,
	}
	if err := s.eventPublisher.PublishOrderStatusChanged(ctx, event); err != nil {
		s.logger.Error("failed to publish OrderStatusChanged event", zap.Int64("order_id", order.ID), zap.Error(err))
	}

	return order, nil
}

// lock takes the per-order lock. If the cache is unreachable the row lock taken
// inside the transaction still serializes writers, so the change proceeds.
func (s *OrderService) lock(ctx context.Context, orderID int64) (func(), error) {
	key := orderLockKey(orderID)
	token, ok, err := s.cache.AcquireLock(ctx, key, s.lockTTL)
	if err != nil {
		s.logger.Warn("order lock unavailable", zap.Int64("order_id", orderID), zap.Error(err))
		return func() {}, nil
	}
	if !ok {
		return nil, models.NewRuleError(models.CodeOrderLocked, models.ErrOrderLocked.Error(), models.ErrOrderLocked)
	}

	return func() {
		if err := s.cache.ReleaseLock(context.Background(), key, token); err != nil {
			s.logger.Warn("failed to release order lock", zap.Int64("order_id", orderID), zap.Error(err))
		}
	}, nil
}

func (s *OrderService) recordTransition(t *orderflow.Transition) {
	util.OrderStatusTransitionsTotal.WithLabelValues(t.From.String(), t.To.String()).Inc()
	for _, adj := range t.Adjustments {
		direction := "restored"
		units := adj.Delta
		if units < 0 {
			direction = "deducted"
			units = -units
		}
		util.StockAdjustedUnits.WithLabelValues(direction).Add(float64(units))
	}
}

// UpdateDetails edits notes, addresses and shipping cost, keeping total = subtotal + shipping_cost.
// A new shipping address without an explicit cost is re-quoted.
func (s *OrderService) UpdateDetails(ctx context.Context, req *UpdateOrderRequest) (*models.Order, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var order *models.Order
	err := s.repo.InTx(ctx, func(q store.Querier) error {
		current, err := q.GetOrderForUpdate(ctx, req.OrderID)
		if err != nil {
			return err
		}

		if req.Notes != nil {
			current.Notes = *req.Notes
		}
		if req.BillingAddress != nil {
			current.BillingAddress = *req.BillingAddress
		}
		if req.ShippingAddress != nil {
			current.ShippingAddress = *req.ShippingAddress
			if req.ShippingCost == nil {
				quote, err := s.shipping.Quote(ctx, current.ShippingAddress)
				if err != nil {
					return err
				}
				current.ShippingCost = quote.Cost
				current.ShippingZone = quote.Zone
			}
		}
		if req.ShippingCost != nil {
			current.ShippingCost = *req.ShippingCost
		}

		current.RecalculateTotal()
		if err := q.UpdateOrderDetails(ctx, current); err != nil {
			return fmt.Errorf("failed to update order: %w", err)
		}
		order = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("order updated",
		zap.Int64("order_id", order.ID),
		zap.String("total", order.Total.StringFixed(2)))
	return order, nil
}

// DeleteOrder hard-deletes a cancelled order
func (s *OrderService) DeleteOrder(ctx context.Context, orderID int64) error {
	if _, err := s.repo.GetOrderByID(ctx, orderID); err != nil {
		return err
	}

	err := s.repo.DeleteOrder(ctx, orderID)
	if errors.Is(err, models.ErrOrderNotCancelled) {
		return models.NewRuleError(models.CodeOrderNotCancelled, err.Error(), err)
	}
	if err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}

	s.logger.Info("order deleted", zap.Int64("order_id", orderID))
	return nil
}
