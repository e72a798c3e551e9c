package worker

import (
	"context"
	"fmt"

	"storefront-service/internal/broker"
	"storefront-service/internal/display"
	"storefront-service/internal/models"
	"storefront-service/internal/util"

	"go.uber.org/zap"
)

// Notifier delivers customer-facing order notifications
type Notifier interface {
	OrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error
	OrderStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error
}

// EventLedger records which events have already been handled
type EventLedger interface {
	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID, eventType string) error
}

// NotificationWorker turns order events into customer notifications
type NotificationWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	ledger       EventLedger
	notifier     Notifier
	logger       *zap.Logger
}

// NewNotificationWorker creates a new notification worker
func NewNotificationWorker(consumer *broker.Consumer, ledger EventLedger, notifier Notifier) *NotificationWorker {
	w := &NotificationWorker{
		consumer:     consumer,
		eventHandler: broker.NewEventHandler(),
		ledger:       ledger,
		notifier:     notifier,
		logger:       util.GetLogger(),
	}

	w.eventHandler.OnOrderPlaced(w.HandleOrderPlaced)
	w.eventHandler.OnOrderStatusChanged(w.HandleOrderStatusChanged)
	return w
}

// Start starts the worker
func (w *NotificationWorker) Start(ctx context.Context) error {
	w.logger.Info("starting notification worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *NotificationWorker) Stop() error {
	w.logger.Info("stopping notification worker")
	return w.consumer.Close()
}

// HandleOrderPlaced notifies the customer of a new order once
func (w *NotificationWorker) HandleOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error {
	return w.once(ctx, event.BaseEvent, func() error {
		return w.notifier.OrderPlaced(ctx, event)
	})
}

// HandleOrderStatusChanged notifies the customer of a status change once
func (w *NotificationWorker) HandleOrderStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error {
	return w.once(ctx, event.BaseEvent, func() error {
		return w.notifier.OrderStatusChanged(ctx, event)
	})
}

func (w *NotificationWorker) once(ctx context.Context, base models.BaseEvent, notify func() error) error {
	processed, err := w.ledger.IsEventProcessed(ctx, base.EventID)
	if err != nil {
		return fmt.Errorf("failed to check event: %w", err)
	}
	if processed {
		w.logger.Debug("event already processed", zap.String("event_id", base.EventID))
		return nil
	}

	if err := notify(); err != nil {
		return fmt.Errorf("notify %s: %w", base.EventType, err)
	}
	util.NotificationsSentTotal.WithLabelValues(base.EventType).Inc()

	return w.ledger.MarkEventProcessed(ctx, base.EventID, base.EventType)
}

// LogNotifier writes notifications to the structured log
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a notifier backed by logger
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) OrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error {
	n.logger.Info("order confirmation",
		zap.String("to", event.CustomerEmail),
		zap.String("order_number", event.OrderNumber),
		zap.String("total", event.Total.StringFixed(2)),
		zap.Int("items", len(event.Items)))
	return nil
}

func (n *LogNotifier) OrderStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error {
	badge := display.OrderStatusBadge(event.ToStatus)
	n.logger.Info("order status update",
		zap.String("to", event.CustomerEmail),
		zap.String("order_number", event.OrderNumber),
		zap.String("status", badge.Label),
		zap.String("comment", event.Comment))
	return nil
}
