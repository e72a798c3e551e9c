// Package shipping maps a free-text delivery location to a shipping zone.
package shipping

import (
	"fmt"
	"strings"

	"storefront-service/internal/models"

	"github.com/shopspring/decimal"
)

// Quote is the shipping cost and delivery window for a location
type Quote struct {
	Zone         string          `json:"zone"`
	Cost         decimal.Decimal `json:"cost"`
	MinDays      int             `json:"min_days"`
	MaxDays      int             `json:"max_days"`
	DeliveryTime string          `json:"delivery_time"`
	Matched      bool            `json:"matched"`
}

// Resolver looks locations up against an ordered set of zones
type Resolver struct {
	zones       []models.ShippingZone
	defaultZone string
}

// NewResolver creates a resolver. Zones are scanned in the given order;
// defaultZone names the fallback zone (empty uses the zone flagged as default).
func NewResolver(zones []models.ShippingZone, defaultZone string) *Resolver {
	return &Resolver{zones: zones, defaultZone: defaultZone}
}

// Lookup tries city, then district, then division. The first zone with an area
// name contained in the normalized location wins; no match falls back to the default zone.
func (r *Resolver) Lookup(city, district, division string) (Quote, error) {
	if len(r.zones) == 0 {
		return Quote{}, fmt.Errorf("no shipping zones configured")
	}

	for _, location := range []string{city, district, division} {
		if zone := r.match(location); zone != nil {
			return newQuote(zone, true), nil
		}
	}

	return newQuote(r.fallback(), false), nil
}

// LookupAddress is Lookup over an order address
func (r *Resolver) LookupAddress(addr models.Address) (Quote, error) {
	return r.Lookup(addr.City, addr.District, addr.Division)
}

// match returns the first zone with an area name found inside location
func (r *Resolver) match(location string) *models.ShippingZone {
	normalized := normalize(location)
	if normalized == "" {
		return nil
	}
	for i := range r.zones {
		for _, area := range r.zones[i].Areas {
			area = normalize(area)
			if area != "" && strings.Contains(normalized, area) {
				return &r.zones[i]
			}
		}
	}
	return nil
}

func (r *Resolver) fallback() *models.ShippingZone {
	if r.defaultZone != "" {
		for i := range r.zones {
			if strings.EqualFold(r.zones[i].Name, r.defaultZone) {
				return &r.zones[i]
			}
		}
	}
	for i := range r.zones {
		if r.zones[i].IsDefault {
			return &r.zones[i]
		}
	}
	return &r.zones[len(r.zones)-1]
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func newQuote(zone *models.ShippingZone, matched bool) Quote {
	return Quote{
		Zone:         zone.Name,
		Cost:         zone.Cost,
		MinDays:      zone.MinDays,
		MaxDays:      zone.MaxDays,
		DeliveryTime: DeliveryTime(zone.MinDays, zone.MaxDays),
		Matched:      matched,
	}
}

// DeliveryTime formats a delivery window like "1-2 days"
func DeliveryTime(minDays, maxDays int) string {
	switch {
	case maxDays <= 0:
		return "same day"
	case minDays == maxDays && maxDays == 1:
		return "1 day"
	case minDays == maxDays:
		return fmt.Sprintf("%d days", maxDays)
	default:
		return fmt.Sprintf("%d-%d days", minDays, maxDays)
	}
}
