// Package display formats status badges and countdowns shared by order and flash-sale views.
package display

import (
	"fmt"
	"time"

	"storefront-service/internal/models"
)

// Tone is the color family a badge renders with
type Tone string

const (
	ToneNeutral Tone = "neutral"
	ToneInfo    Tone = "info"
	ToneWarning Tone = "warning"
	ToneSuccess Tone = "success"
	ToneDanger  Tone = "danger"
)

// Badge is a short label with a tone
type Badge struct {
	Label string `json:"label"`
	Tone  Tone   `json:"tone"`
}

var orderBadges = map[models.OrderStatus]Badge{
	models.OrderStatusPending:    {Label: "Pending", Tone: ToneWarning},
	models.OrderStatusProcessing: {Label: "Processing", Tone: ToneInfo},
	models.OrderStatusShipped:    {Label: "Shipped", Tone: ToneInfo},
	models.OrderStatusDelivered:  {Label: "Delivered", Tone: ToneSuccess},
	models.OrderStatusCancelled:  {Label: "Cancelled", Tone: ToneDanger},
}

var flashSaleBadges = map[models.FlashSaleStatus]Badge{
	models.FlashSaleActive:    {Label: "Live now", Tone: ToneSuccess},
	models.FlashSaleScheduled: {Label: "Coming soon", Tone: ToneInfo},
	models.FlashSaleExpired:   {Label: "Ended", Tone: ToneNeutral},
	models.FlashSaleInactive:  {Label: "Paused", Tone: ToneWarning},
}

// OrderStatusBadge returns the badge for an order status
func OrderStatusBadge(status models.OrderStatus) Badge {
	if b, ok := orderBadges[status]; ok {
		return b
	}
	return Badge{Label: string(status), Tone: ToneNeutral}
}

// FlashSaleBadge returns the badge for an evaluated flash-sale status
func FlashSaleBadge(status models.FlashSaleStatus) Badge {
	if b, ok := flashSaleBadges[status]; ok {
		return b
	}
	return Badge{Label: string(status), Tone: ToneNeutral}
}

// TimeRemaining renders the time left until end, e.g. "2d 4h left"
func TimeRemaining(now, end time.Time) string {
	d := end.Sub(now)
	if d <= 0 {
		return "ended"
	}
	return humanize(d) + " left"
}

// StartsIn renders the time until start, e.g. "starts in 3h 10m"
func StartsIn(now, start time.Time) string {
	d := start.Sub(now)
	if d <= 0 {
		return "started"
	}
	return "starts in " + humanize(d)
}

func humanize(d time.Duration) string {
	days := int(d / (24 * time.Hour))
	hours := int(d % (24 * time.Hour) / time.Hour)
	minutes := int(d % time.Hour / time.Minute)

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	case minutes > 0:
		return fmt.Sprintf("%dm", minutes)
	default:
		return "less than a minute"
	}
}
