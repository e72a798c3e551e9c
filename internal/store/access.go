package store

import (
	"context"

	"storefront-service/internal/models"

	"github.com/jmoiron/sqlx"
)

// ListShippingZones returns zones in match order
func (q *Queries) ListShippingZones(ctx context.Context) ([]models.ShippingZone, error) {
	var zones []models.ShippingZone
	err := sqlx.SelectContext(ctx, q.ext, &zones, `
		SELECT id, name, areas, cost, min_days, max_days, is_default, sort_order
		FROM shipping_zones ORDER BY sort_order, id`)
	return zones, err
}

// GetUserPermissions returns the distinct permission names granted through the user's roles
func (q *Queries) GetUserPermissions(ctx context.Context, userID int64) ([]string, error) {
	var names []string
	err := sqlx.SelectContext(ctx, q.ext, &names, `
		SELECT DISTINCT p.name
		FROM user_roles ur
		JOIN role_permissions rp ON rp.role_id = ur.role_id
		JOIN permissions p ON p.id = rp.permission_id
		WHERE ur.user_id = $1
		ORDER BY p.name`, userID)
	return names, err
}

// IsEventProcessed checks if an event has been processed
func (q *Queries) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := sqlx.GetContext(ctx, q.ext, &exists,
		"SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = $1)", eventID)
	return exists, err
}

// MarkEventProcessed marks an event as processed
func (q *Queries) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	_, err := q.ext.ExecContext(ctx,
		"INSERT INTO processed_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING",
		eventID, eventType)
	return err
}
