package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"
)

// Address is the structured shipping/billing address embedded in an order
type Address struct {
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Email      string `json:"email,omitempty"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	District   string `json:"district,omitempty"`
	Division   string `json:"division,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
}

// IsZero reports whether no field has been filled in
func (a Address) IsZero() bool {
	return a == Address{}
}

// Validate checks the fields needed to deliver to the address
func (a Address) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.Name, validation.Required.Error("name is required"), validation.Length(2, 100)),
		validation.Field(&a.Phone, validation.Required.Error("phone is required"), validation.Length(6, 20)),
		validation.Field(&a.Line1, validation.Required.Error("address line is required"), validation.Length(3, 255)),
		validation.Field(&a.City, validation.Required.Error("city is required"), validation.Length(2, 100)),
	)
}

// Value implements driver.Valuer for JSONB
func (a Address) Value() (driver.Value, error) {
	return json.Marshal(a)
}

// Scan implements sql.Scanner for JSONB
func (a *Address) Scan(value interface{}) error {
	return scanJSON(value, a)
}

// ProductSnapshot is the immutable copy of a product kept on an order item
type ProductSnapshot struct {
	Name  string          `json:"name"`
	SKU   string          `json:"sku"`
	Image string          `json:"image,omitempty"`
	Price decimal.Decimal `json:"price"`
}

// Value implements driver.Valuer for JSONB
func (s ProductSnapshot) Value() (driver.Value, error) {
	return json.Marshal(s)
}

// Scan implements sql.Scanner for JSONB
func (s *ProductSnapshot) Scan(value interface{}) error {
	return scanJSON(value, s)
}

// Specifications holds free-form product attributes (material, size, origin...)
type Specifications map[string]string

// Value implements driver.Valuer for JSONB
func (s Specifications) Value() (driver.Value, error) {
	if s == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(s)
}

// Scan implements sql.Scanner for JSONB
func (s *Specifications) Scan(value interface{}) error {
	return scanJSON(value, s)
}

func scanJSON(value interface{}, dest interface{}) error {
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dest)
	case string:
		return json.Unmarshal([]byte(v), dest)
	default:
		return fmt.Errorf("cannot scan %T into %T", value, dest)
	}
}
