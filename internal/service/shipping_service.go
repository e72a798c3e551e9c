package service

import (
	"context"
	"fmt"

	"storefront-service/internal/models"
	"storefront-service/internal/shipping"
	"storefront-service/internal/store"
)

// ShippingService quotes shipping for delivery addresses
type ShippingService struct {
	repo        store.Querier
	defaultZone string
}

// NewShippingService creates a new shipping service.
// defaultZone names the fallback zone; empty uses the zone flagged as default.
func NewShippingService(repo store.Querier, defaultZone string) *ShippingService {
	return &ShippingService{repo: repo, defaultZone: defaultZone}
}

// Quote returns the shipping cost and delivery window for an address
func (s *ShippingService) Quote(ctx context.Context, addr models.Address) (shipping.Quote, error) {
	return s.QuoteLocation(ctx, addr.City, addr.District, addr.Division)
}

// QuoteLocation returns the shipping quote for free-text location parts
func (s *ShippingService) QuoteLocation(ctx context.Context, city, district, division string) (shipping.Quote, error) {
	zones, err := s.repo.ListShippingZones(ctx)
	if err != nil {
		return shipping.Quote{}, fmt.Errorf("failed to load shipping zones: %w", err)
	}
	return shipping.NewResolver(zones, s.defaultZone).Lookup(city, district, division)
}

// AccessService answers permission checks for admin actors
type AccessService struct {
	repo store.Querier
}

// NewAccessService creates a new access service
func NewAccessService(repo store.Querier) *AccessService {
	return &AccessService{repo: repo}
}

// HasPermission reports whether the user holds permission through any of their roles
func (s *AccessService) HasPermission(ctx context.Context, userID int64, permission string) (bool, error) {
	perms, err := s.repo.GetUserPermissions(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to load permissions: %w", err)
	}
	for _, p := range perms {
		if p == permission {
			return true, nil
		}
	}
	return false, nil
}
