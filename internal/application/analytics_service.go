package application

import (
	"context"
	"time"

	"shopify-tenant-sync/internal/domain"
	"shopify-tenant-sync/internal/ports"
)

const (
	defaultTopCustomers = 5
	maxTopCustomers     = 100
	defaultOrderDays    = 30
)

// AnalyticsService answers dashboard queries for the caller's tenant
type AnalyticsService struct {
	analytics ports.AnalyticsRepository
	now       func() time.Time
}

// NewAnalyticsService creates a new analytics service
func NewAnalyticsService(analytics ports.AnalyticsRepository) *AnalyticsService {
	return &AnalyticsService{analytics: analytics, now: time.Now}
}

func (s *AnalyticsService) Summary(ctx context.Context, tenantID string) (*domain.AnalyticsSummary, error) {
	return s.analytics.Summary(ctx, tenantID)
}

// OrdersByDate counts orders per day over the last days days (30 when days <= 0)
func (s *AnalyticsService) OrdersByDate(ctx context.Context, tenantID string, days int) ([]domain.DailyOrderCount, error) {
	if days <= 0 {
		days = defaultOrderDays
	}
	since := s.now().UTC().Truncate(24*time.Hour).AddDate(0, 0, -(days - 1))
	return s.analytics.OrdersByDate(ctx, tenantID, since)
}

// TopCustomers lists customers by total spend, 5 by default
func (s *AnalyticsService) TopCustomers(ctx context.Context, tenantID string, limit int) ([]domain.Customer, error) {
	if limit <= 0 {
		limit = defaultTopCustomers
	}
	if limit > maxTopCustomers {
		limit = maxTopCustomers
	}
	return s.analytics.TopCustomers(ctx, tenantID, limit)
}

func (s *AnalyticsService) Dashboard(ctx context.Context, tenantID string) (*domain.DashboardCounts, error) {
	return s.analytics.Counts(ctx, tenantID)
}
