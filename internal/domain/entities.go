package domain

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Product is a provider product scoped to a tenant
type Product struct {
	ID         uint            `json:"id"`
	TenantID   string          `json:"tenant_id"`
	ExternalID string          `json:"external_id"`
	Title      string          `json:"title"`
	Price      decimal.Decimal `json:"price"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Customer is a provider customer scoped to a tenant
type Customer struct {
	ID         uint            `json:"id"`
	TenantID   string          `json:"tenant_id"`
	ExternalID string          `json:"external_id"`
	Email      string          `json:"email"`
	FirstName  string          `json:"first_name"`
	LastName   string          `json:"last_name"`
	TotalSpent decimal.Decimal `json:"total_spent"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// LineItem references a product and a quantity inside an order
type LineItem struct {
	Product  string `json:"product"`
	Quantity int    `json:"quantity"`
}

// Order is a provider order scoped to a tenant
type Order struct {
	ID                 uint            `json:"id"`
	TenantID           string          `json:"tenant_id"`
	ExternalID         string          `json:"external_id"`
	CreatedAt          time.Time       `json:"created_at"`
	TotalPrice         decimal.Decimal `json:"total_price"`
	CustomerExternalID string          `json:"customer_external_id,omitempty"`
	LineItems          []LineItem      `json:"line_items"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// ProductInput carries the fields written by UpsertProduct
type ProductInput struct {
	TenantID   string
	ExternalID string
	Title      string
	Price      decimal.Decimal
}

// CustomerInput carries the fields written by UpsertCustomer
type CustomerInput struct {
	TenantID   string
	ExternalID string
	Email      string
	FirstName  string
	LastName   string
	TotalSpent decimal.Decimal
}

// OrderInput carries the fields written by UpsertOrder. LineItems is the
// serialized cart as received; it is parsed before storage.
type OrderInput struct {
	TenantID           string
	ExternalID         string
	CreatedAt          time.Time
	TotalPrice         decimal.Decimal
	CustomerExternalID string
	LineItems          string
}

// ParseLineItems decodes a serialized line-item list. It reports false and
// an empty list when the payload is not a JSON array of valid items.
func ParseLineItems(raw string) ([]LineItem, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []LineItem{}, true
	}

	var items []LineItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return []LineItem{}, false
	}
	for _, item := range items {
		if item.Product == "" || item.Quantity <= 0 {
			return []LineItem{}, false
		}
	}
	if items == nil {
		items = []LineItem{}
	}
	return items, true
}

// EncodeLineItems serializes line items in the format ParseLineItems accepts
func EncodeLineItems(items []LineItem) string {
	if len(items) == 0 {
		return "[]"
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func validKey(tenantID, externalID string) bool {
	return strings.TrimSpace(tenantID) != "" && strings.TrimSpace(externalID) != ""
}

// Validate checks the natural key
func (in ProductInput) Validate() error {
	if !validKey(in.TenantID, in.ExternalID) {
		return ValidationError("upsert product", "tenant id and external id are required")
	}
	return nil
}

// Validate checks the natural key and the accumulator sign
func (in CustomerInput) Validate() error {
	if !validKey(in.TenantID, in.ExternalID) {
		return ValidationError("upsert customer", "tenant id and external id are required")
	}
	if in.TotalSpent.IsNegative() {
		return ValidationError("upsert customer", "total spent must not be negative")
	}
	return nil
}

// Validate checks the natural key
func (in OrderInput) Validate() error {
	if !validKey(in.TenantID, in.ExternalID) {
		return ValidationError("upsert order", "tenant id and external id are required")
	}
	return nil
}

// ValidateIncrement checks the arguments of a spend increment
func ValidateIncrement(tenantID, externalID string, amount decimal.Decimal) error {
	if !validKey(tenantID, externalID) {
		return ValidationError("increment customer spend", "tenant id and external id are required")
	}
	if amount.IsNegative() {
		return ValidationError("increment customer spend", "amount must not be negative")
	}
	return nil
}
