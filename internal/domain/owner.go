package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Owner is a dashboard account bound to one tenant
type Owner struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	TenantID     string    `json:"tenant_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// AnalyticsSummary aggregates a tenant's stored data
type AnalyticsSummary struct {
	TotalCustomers int64           `json:"totalCustomers"`
	TotalOrders    int64           `json:"totalOrders"`
	TotalRevenue   decimal.Decimal `json:"totalRevenue"`
}

// DailyOrderCount is the number of orders placed on one calendar day
type DailyOrderCount struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// DashboardCounts reports how many records of each entity type a tenant holds
type DashboardCounts struct {
	Products  int64 `json:"products"`
	Customers int64 `json:"customers"`
	Orders    int64 `json:"orders"`
}
