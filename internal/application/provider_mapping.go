package application

import (
	"strconv"
	"time"

	"shopify-tenant-sync/internal/domain"

	goshopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/shopspring/decimal"
)

func externalID(id uint64) string {
	return strconv.FormatUint(id, 10)
}

func decimalOrZero(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}

// ProductInputFrom maps a provider product. Price is the first priced variant.
func ProductInputFrom(tenantID string, p goshopify.Product) domain.ProductInput {
	price := decimal.Zero
	for _, v := range p.Variants {
		if v.Price != nil {
			price = *v.Price
			break
		}
	}
	return domain.ProductInput{
		TenantID:   tenantID,
		ExternalID: externalID(p.Id),
		Title:      p.Title,
		Price:      price,
	}
}

// CustomerInputFrom maps a provider customer, taking total_spent as authoritative
func CustomerInputFrom(tenantID string, c goshopify.Customer) domain.CustomerInput {
	return domain.CustomerInput{
		TenantID:   tenantID,
		ExternalID: externalID(c.Id),
		Email:      c.Email,
		FirstName:  c.FirstName,
		LastName:   c.LastName,
		TotalSpent: decimalOrZero(c.TotalSpent),
	}
}

// OrderInputFrom maps a provider order. Custom line items without a product are skipped.
func OrderInputFrom(tenantID string, o goshopify.Order) domain.OrderInput {
	in := domain.OrderInput{
		TenantID:   tenantID,
		ExternalID: externalID(o.Id),
		TotalPrice: decimalOrZero(o.TotalPrice),
	}
	if o.CreatedAt != nil {
		in.CreatedAt = *o.CreatedAt
	} else {
		in.CreatedAt = time.Now()
	}
	if o.Customer != nil && o.Customer.Id != 0 {
		in.CustomerExternalID = externalID(o.Customer.Id)
	}

	items := make([]domain.LineItem, 0, len(o.LineItems))
	for _, li := range o.LineItems {
		if li.ProductId == 0 || li.Quantity <= 0 {
			continue
		}
		items = append(items, domain.LineItem{Product: externalID(li.ProductId), Quantity: li.Quantity})
	}
	in.LineItems = domain.EncodeLineItems(items)
	return in
}
