// Package orderflow holds the order status transition rule: which moves are
// allowed, what they do to inventory and the history row they leave behind.
package orderflow

import (
	"time"

	"storefront-service/internal/models"
)

// allowedFrom lists, per target status, the statuses an order may leave to reach it.
// A cancelled order can be re-activated into pending or processing.
var allowedFrom = map[models.OrderStatus][]models.OrderStatus{
	models.OrderStatusPending: {
		models.OrderStatusCancelled,
	},
	models.OrderStatusProcessing: {
		models.OrderStatusPending,
		models.OrderStatusCancelled,
	},
	models.OrderStatusShipped: {
		models.OrderStatusProcessing,
	},
	models.OrderStatusDelivered: {
		models.OrderStatusShipped,
	},
	models.OrderStatusCancelled: {
		models.OrderStatusPending,
		models.OrderStatusProcessing,
		models.OrderStatusShipped,
	},
}

// Policy decides which transitions are accepted.
// Strict enforces the allowedFrom table; otherwise any status may move to any other.
type Policy struct {
	Strict bool
}

// Check returns a *models.TransitionError when from → to is not allowed
func (p Policy) Check(from, to models.OrderStatus) error {
	if !to.IsValid() || !from.IsValid() {
		return &models.TransitionError{From: from, To: to}
	}
	if !p.Strict {
		return nil
	}
	if from == to {
		return &models.TransitionError{From: from, To: to}
	}
	for _, s := range allowedFrom[to] {
		if s == from {
			return nil
		}
	}
	return &models.TransitionError{From: from, To: to}
}

// Targets lists the statuses reachable from the given status under the policy
func (p Policy) Targets(from models.OrderStatus) []models.OrderStatus {
	targets := make([]models.OrderStatus, 0, len(models.OrderStatuses))
	for _, to := range models.OrderStatuses {
		if p.Check(from, to) == nil {
			targets = append(targets, to)
		}
	}
	return targets
}

// StockAdjustment is a signed change to a product's stock_quantity
type StockAdjustment struct {
	ProductID int64
	Delta     int
}

// StockAdjustments returns the inventory side effects of moving from → to.
// Entering cancelled restores stock, leaving cancelled deducts it again;
// products that do not manage stock are never touched.
func StockAdjustments(from, to models.OrderStatus, lines []models.StockLine) []StockAdjustment {
	var sign int
	switch {
	case to == models.OrderStatusCancelled && from != models.OrderStatusCancelled:
		sign = 1
	case from == models.OrderStatusCancelled && to != models.OrderStatusCancelled:
		sign = -1
	default:
		return nil
	}

	adjustments := make([]StockAdjustment, 0, len(lines))
	for _, line := range lines {
		if !line.ManageStock || line.Quantity <= 0 {
			continue
		}
		adjustments = append(adjustments, StockAdjustment{
			ProductID: line.ProductID,
			Delta:     sign * line.Quantity,
		})
	}
	return adjustments
}

// Transition is a checked status change ready to be persisted
type Transition struct {
	OrderID     int64
	From        models.OrderStatus
	To          models.OrderStatus
	History     models.StatusHistory
	Adjustments []StockAdjustment
}

// Plan checks the move and computes its side effects without touching storage
func Plan(
	policy Policy,
	order *models.Order,
	to models.OrderStatus,
	lines []models.StockLine,
	comment string,
	actorID *int64,
	now time.Time,
) (*Transition, error) {
	from := order.Status
	if err := policy.Check(from, to); err != nil {
		return nil, err
	}

	history := models.StatusHistory{
		OrderID:    order.ID,
		FromStatus: &from,
		ToStatus:   to,
		ActorID:    actorID,
		CreatedAt:  now,
	}
	if comment != "" {
		history.Comment = &comment
	}

	return &Transition{
		OrderID:     order.ID,
		From:        from,
		To:          to,
		History:     history,
		Adjustments: StockAdjustments(from, to, lines),
	}, nil
}
