package repository

import (
	"context"
	"sort"
	"time"

	"shopify-tenant-sync/internal/domain"
	"shopify-tenant-sync/internal/infrastructure/repository/entity"
	"shopify-tenant-sync/internal/ports"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AnalyticsRepository implements ports.AnalyticsRepository using GORM
type AnalyticsRepository struct {
	db *gorm.DB
}

// NewAnalyticsRepository creates a new analytics repository
func NewAnalyticsRepository(db *gorm.DB) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

var _ ports.AnalyticsRepository = (*AnalyticsRepository)(nil)

// Summary returns customer and order counts plus revenue
func (r *AnalyticsRepository) Summary(ctx context.Context, tenantID string) (*domain.AnalyticsSummary, error) {
	db := r.db.WithContext(ctx)
	summary := &domain.AnalyticsSummary{TotalRevenue: decimal.Zero}

	if err := db.Model(&entity.CustomerRow{}).Where("tenant_id = ?", tenantID).Count(&summary.TotalCustomers).Error; err != nil {
		return nil, domain.RepositoryError("count customers", err)
	}
	if err := db.Model(&entity.OrderRow{}).Where("tenant_id = ?", tenantID).Count(&summary.TotalOrders).Error; err != nil {
		return nil, domain.RepositoryError("count orders", err)
	}

	var totals []decimal.Decimal
	if err := db.Model(&entity.OrderRow{}).Where("tenant_id = ?", tenantID).Pluck("total_price", &totals).Error; err != nil {
		return nil, domain.RepositoryError("sum revenue", err)
	}
	for _, t := range totals {
		summary.TotalRevenue = summary.TotalRevenue.Add(t)
	}

	return summary, nil
}

// OrdersByDate counts orders per UTC calendar day since the given time
func (r *AnalyticsRepository) OrdersByDate(ctx context.Context, tenantID string, since time.Time) ([]domain.DailyOrderCount, error) {
	var createdAt []time.Time
	err := r.db.WithContext(ctx).
		Model(&entity.OrderRow{}).
		Where("tenant_id = ? AND created_at >= ?", tenantID, since.UTC()).
		Pluck("created_at", &createdAt).Error
	if err != nil {
		return nil, domain.RepositoryError("orders by date", err)
	}

	byDay := make(map[string]int64)
	for _, t := range createdAt {
		byDay[t.UTC().Format("2006-01-02")]++
	}

	out := make([]domain.DailyOrderCount, 0, len(byDay))
	for day, n := range byDay {
		out = append(out, domain.DailyOrderCount{Date: day, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

// TopCustomers returns the highest spending customers
func (r *AnalyticsRepository) TopCustomers(ctx context.Context, tenantID string, limit int) ([]domain.Customer, error) {
	if limit <= 0 {
		limit = 5
	}
	var rows []entity.CustomerRow
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("total_spent DESC").
		Order("external_id").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, domain.RepositoryError("top customers", err)
	}

	out := make([]domain.Customer, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].ToDomain())
	}
	return out, nil
}

// Counts returns the number of stored records per entity type
func (r *AnalyticsRepository) Counts(ctx context.Context, tenantID string) (*domain.DashboardCounts, error) {
	counts := &domain.DashboardCounts{}
	targets := []struct {
		model interface{}
		dest  *int64
	}{
		{&entity.ProductRow{}, &counts.Products},
		{&entity.CustomerRow{}, &counts.Customers},
		{&entity.OrderRow{}, &counts.Orders},
	}
	for _, t := range targets {
		if err := r.count(ctx, t.model, tenantID, t.dest); err != nil {
			return nil, domain.RepositoryError("dashboard counts", err)
		}
	}
	return counts, nil
}

func (r *AnalyticsRepository) count(ctx context.Context, model interface{}, tenantID string, dest *int64) error {
	return r.db.WithContext(ctx).Model(model).Where("tenant_id = ?", tenantID).Count(dest).Error
}
