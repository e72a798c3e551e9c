package shipping

import (
	"testing"

	"storefront-service/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seededZones() []models.ShippingZone {
	return []models.ShippingZone{
		{
			Name:    "Inside Dhaka",
			Areas:   []string{"Dhaka", "Mirpur", "Gulshan", "Dhanmondi", "Uttara"},
			Cost:    decimal.NewFromInt(60),
			MinDays: 1,
			MaxDays: 2,
		},
		{
			Name:      "Outside Dhaka",
			Areas:     []string{"Chattogram", "Sylhet", "Rajshahi", "Khulna"},
			Cost:      decimal.NewFromInt(120),
			MinDays:   3,
			MaxDays:   5,
			IsDefault: true,
		},
	}
}

func TestLookup(t *testing.T) {
	r := NewResolver(seededZones(), "Outside Dhaka")

	tests := []struct {
		name                     string
		city, district, division string
		zone                     string
		cost                     int64
		matched                  bool
	}{
		{"exact city", "Dhaka", "", "", "Inside Dhaka", 60, true},
		{"case and spacing", "  mIRpur   10 ", "", "", "Inside Dhaka", 60, true},
		{"city contains area", "Gulshan-2, Dhaka", "", "", "Inside Dhaka", 60, true},
		{"address line contains area", "House 5, Road 3, Dhanmondi", "", "", "Inside Dhaka", 60, true},
		{"area fragment is not a match", "Dhak", "", "", "Outside Dhaka", 120, false},
		{"outside zone", "Sylhet Sadar", "", "", "Outside Dhaka", 120, true},
		{"falls through to district", "Savar Pourashava", "Dhaka", "", "Inside Dhaka", 60, true},
		{"falls through to division", "Patiya", "", "Chattogram", "Outside Dhaka", 120, true},
		{"unknown goes to default", "Cox's Bazar", "", "", "Outside Dhaka", 120, false},
		{"empty goes to default", "", "", "", "Outside Dhaka", 120, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := r.Lookup(tt.city, tt.district, tt.division)
			require.NoError(t, err)
			assert.Equal(t, tt.zone, q.Zone)
			assert.True(t, decimal.NewFromInt(tt.cost).Equal(q.Cost))
			assert.Equal(t, tt.matched, q.Matched)
		})
	}
}

func TestLookupFirstZoneWins(t *testing.T) {
	zones := seededZones()
	zones[1].Areas = append(zones[1].Areas, "Dhaka")
	r := NewResolver(zones, "")

	q, err := r.Lookup("Dhaka", "", "")
	require.NoError(t, err)
	assert.Equal(t, "Inside Dhaka", q.Zone)
	assert.Equal(t, "1-2 days", q.DeliveryTime)
}

func TestFallbackOrder(t *testing.T) {
	zones := seededZones()

	q, _ := NewResolver(zones, "inside dhaka").Lookup("Nowhere", "", "")
	assert.Equal(t, "Inside Dhaka", q.Zone)

	q, _ = NewResolver(zones, "").Lookup("Nowhere", "", "")
	assert.Equal(t, "Outside Dhaka", q.Zone)

	zones[1].IsDefault = false
	q, _ = NewResolver(zones, "missing").Lookup("Nowhere", "", "")
	assert.Equal(t, "Outside Dhaka", q.Zone)

	_, err := NewResolver(nil, "").Lookup("Dhaka", "", "")
	assert.Error(t, err)
}

func TestLookupAddress(t *testing.T) {
	r := NewResolver(seededZones(), "")
	q, err := r.LookupAddress(models.Address{City: "Uttara", Division: "Dhaka"})
	require.NoError(t, err)
	assert.Equal(t, "Inside Dhaka", q.Zone)
}

func TestDeliveryTime(t *testing.T) {
	assert.Equal(t, "1-2 days", DeliveryTime(1, 2))
	assert.Equal(t, "3-5 days", DeliveryTime(3, 5))
	assert.Equal(t, "1 day", DeliveryTime(1, 1))
	assert.Equal(t, "4 days", DeliveryTime(4, 4))
	assert.Equal(t, "same day", DeliveryTime(0, 0))
}
