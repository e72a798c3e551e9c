package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront-service/internal/models"
	"storefront-service/internal/store"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Repository is the persistence the services run on
type Repository interface {
	store.Querier
	InTx(ctx context.Context, fn func(q store.Querier) error) error
}

// EventPublisher publishes order events after their transaction commits
type EventPublisher interface {
	PublishOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error
	PublishOrderStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error
}

// Cache holds locks, idempotency keys and the flash sale read cache
type Cache interface {
	AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (string, bool, error)
	ReleaseLock(ctx context.Context, lockKey, token string) error
	RememberOrder(ctx context.Context, key string, orderID int64, ttl time.Duration) error
	LookupOrder(ctx context.Context, key string) (int64, bool, error)
	GetFlashSales(ctx context.Context, dest interface{}) (bool, error)
	SetFlashSales(ctx context.Context, sales interface{}, ttl time.Duration) error
	InvalidateFlashSales(ctx context.Context) error
}

func newBaseEvent(eventType string, now time.Time) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: now,
	}
}

func orderLockKey(orderID int64) string {
	return fmt.Sprintf("order:%d", orderID)
}

// rejectionReason labels metrics with the rule code, or "error" for system failures
func rejectionReason(err error) string {
	var ruleErr *models.RuleError
	if errors.As(err, &ruleErr) {
		return ruleErr.Code
	}
	var transErr *models.TransitionError
	if errors.As(err, &transErr) {
		return "transition"
	}
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		return "validation"
	}
	return "error"
}

// decimalRule validates decimal and *decimal fields; nil pointers pass
func decimalRule(ok func(d decimal.Decimal) bool, message string) validation.Rule {
	return validation.By(func(value interface{}) error {
		var d decimal.Decimal
		switch v := value.(type) {
		case decimal.Decimal:
			d = v
		case *decimal.Decimal:
			if v == nil {
				return nil
			}
			d = *v
		default:
			return errors.New("must be an amount")
		}
		if !ok(d) {
			return errors.New(message)
		}
		return nil
	})
}

func positive(d decimal.Decimal) bool    { return d.IsPositive() }
func nonNegative(d decimal.Decimal) bool { return !d.IsNegative() }
