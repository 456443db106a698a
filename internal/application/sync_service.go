package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"shopify-tenant-sync/internal/domain"
	"shopify-tenant-sync/internal/ports"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// SyncObserver receives sync outcomes, typically for metrics
type SyncObserver interface {
	ObserveSyncRun(failed int, elapsed time.Duration)
	ObserveTenant(err error)
	AddEntities(entity string, n int)
}

type nopSyncObserver struct{}

func (nopSyncObserver) ObserveSyncRun(int, time.Duration) {}
func (nopSyncObserver) ObserveTenant(error)               {}
func (nopSyncObserver) AddEntities(string, int)           {}

// SyncConfig tunes the orchestrator
type SyncConfig struct {
	// Concurrency bounds how many tenants sync at once
	Concurrency int
	// LockTTL bounds how long a crashed run can block a tenant
	LockTTL time.Duration
}

var errLockLost = errors.New("tenant lock expired before the sync finished")

// SyncService pulls products, customers and orders from the provider for every installed tenant
type SyncService struct {
	tenants  ports.TenantRepository
	entities ports.EntityRepository
	provider ports.ShopifyClient
	sessions *SessionReconciler
	locker   ports.TenantLocker
	observer SyncObserver
	config   SyncConfig
	logger   zerolog.Logger
	now      func() time.Time
}

// NewSyncService creates a new sync orchestrator. observer may be nil.
func NewSyncService(
	tenants ports.TenantRepository,
	entities ports.EntityRepository,
	provider ports.ShopifyClient,
	sessions *SessionReconciler,
	locker ports.TenantLocker,
	observer SyncObserver,
	config SyncConfig,
	logger zerolog.Logger,
) *SyncService {
	if config.Concurrency <= 0 {
		config.Concurrency = 4
	}
	if config.LockTTL <= 0 {
		config.LockTTL = 30 * time.Minute
	}
	if observer == nil {
		observer = nopSyncObserver{}
	}
	return &SyncService{
		tenants:  tenants,
		entities: entities,
		provider: provider,
		sessions: sessions,
		locker:   locker,
		observer: observer,
		config:   config,
		logger:   logger,
		now:      time.Now,
	}
}

// RunSync syncs every installed tenant. Tenant failures are collected in the
// report; only a failure to list tenants is returned as an error.
func (s *SyncService) RunSync(ctx context.Context) (*domain.SyncReport, error) {
	started := s.now()
	tenants, err := s.tenants.ListInstalled(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list installed tenants: %w", err)
	}

	s.logger.Info().Int("tenants", len(tenants)).Msg("Starting sync run")
	report := s.syncAll(ctx, tenants, started)

	s.logger.Info().
		Int("processed", report.Processed).
		Int("failed", len(report.Failed)).
		Dur("elapsed", report.FinishedAt.Sub(started)).
		Msg("Sync run finished")
	return report, nil
}

// SyncShop syncs a single tenant on demand
func (s *SyncService) SyncShop(ctx context.Context, shop string) (*domain.SyncReport, error) {
	started := s.now()
	session, err := s.sessions.LoadSession(ctx, shop)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, domain.NewError(domain.KindNotFound, "sync shop", fmt.Errorf("shop %s is not installed", shop))
	}
	tenant, err := s.tenants.FindByDomain(ctx, session.Shop)
	if err != nil {
		return nil, err
	}
	if !tenant.Installed() {
		return nil, domain.NewError(domain.KindNotFound, "sync shop", fmt.Errorf("shop %s is not installed", shop))
	}
	return s.syncAll(ctx, []*domain.Tenant{tenant}, started), nil
}

func (s *SyncService) syncAll(ctx context.Context, tenants []*domain.Tenant, started time.Time) *domain.SyncReport {
	report := domain.NewSyncReport(started)
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(s.config.Concurrency)
	for _, tenant := range tenants {
		g.Go(func() error {
			counts, err := s.syncTenantLocked(ctx, tenant)
			s.observer.ObserveTenant(err)

			mu.Lock()
			defer mu.Unlock()
			report.Counts.Add(counts)
			if err != nil {
				report.Failed = append(report.Failed, domain.TenantFailure{
					TenantDomain: tenant.Domain,
					Kind:         domain.KindOf(err),
					Error:        err.Error(),
				})
				return nil
			}
			report.Processed++
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(report.Failed, func(i, j int) bool {
		return report.Failed[i].TenantDomain < report.Failed[j].TenantDomain
	})
	report.FinishedAt = s.now()
	s.observer.ObserveSyncRun(len(report.Failed), report.FinishedAt.Sub(started))
	return report
}

// syncTenantLocked holds the tenant's lock for the whole sync, extending it
// while the sync runs. A panic in one tenant is converted to a failure so the
// run continues.
func (s *SyncService) syncTenantLocked(ctx context.Context, tenant *domain.Tenant) (counts domain.EntityCounts, err error) {
	counts = domain.EntityCounts{}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during tenant sync: %v", r)
		}
	}()

	key := "sync:" + tenant.Domain
	token, ok, err := s.locker.TryLock(ctx, key, s.config.LockTTL)
	if err != nil {
		return counts, fmt.Errorf("failed to acquire tenant lock: %w", err)
	}
	if !ok {
		return counts, domain.NewError(domain.KindSyncInProgress, "sync "+tenant.Domain, errors.New("another sync holds the tenant lock"))
	}
	defer func() {
		// release on a fresh context so a cancelled run still frees the lock
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if rerr := s.locker.Release(releaseCtx, key, token); rerr != nil {
			s.logger.Warn().Err(rerr).Str("shop", tenant.Domain).Msg("Failed to release tenant lock")
		}
	}()

	tenantCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	stop := s.keepLock(tenantCtx, cancel, key, token, tenant.Domain)
	defer stop()

	counts, err = s.syncTenant(tenantCtx, tenant, counts)
	if errors.Is(context.Cause(tenantCtx), errLockLost) {
		return counts, domain.NewError(domain.KindSyncInProgress, "sync "+tenant.Domain, errLockLost)
	}
	return counts, err
}

// keepLock extends the tenant lock every third of its ttl until stopped.
// If the lock is lost the tenant context is cancelled with errLockLost.
func (s *SyncService) keepLock(ctx context.Context, cancel context.CancelCauseFunc, key, token, shop string) (stop func()) {
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(s.config.LockTTL / 3)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				ok, err := s.locker.Extend(ctx, key, token, s.config.LockTTL)
				if err != nil {
					s.logger.Warn().Err(err).Str("shop", shop).Msg("Failed to extend tenant lock")
					continue
				}
				if !ok {
					s.logger.Error().Str("shop", shop).Msg("Tenant lock lost, aborting sync")
					cancel(errLockLost)
					return
				}
			}
		}
	}()
	return func() {
		close(done)
		wg.Wait()
	}
}

func (s *SyncService) syncTenant(ctx context.Context, tenant *domain.Tenant, counts domain.EntityCounts) (domain.EntityCounts, error) {
	logger := s.logger.With().Str("shop", tenant.Domain).Str("tenantId", tenant.ID).Logger()

	session, err := s.sessions.SessionFor(tenant)
	if err != nil {
		return counts, err
	}
	if session == nil {
		return counts, domain.NewError(domain.KindAuth, "sync "+tenant.Domain, errors.New("tenant has no access token"))
	}

	steps := []struct {
		entity domain.EntityType
		run    func() (int, error)
	}{
		{domain.EntityProducts, func() (int, error) { return s.syncProducts(ctx, tenant.ID, session) }},
		{domain.EntityCustomers, func() (int, error) { return s.syncCustomers(ctx, tenant.ID, session) }},
		{domain.EntityOrders, func() (int, error) { return s.syncOrders(ctx, tenant.ID, session) }},
	}

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return counts, err
		}
		n, err := step.run()
		counts[step.entity] += n
		s.observer.AddEntities(string(step.entity), n)
		if err != nil {
			logger.Error().Err(err).Str("entity", string(step.entity)).Int("written", n).Msg("Tenant sync step failed")
			return counts, err
		}
		logger.Debug().Str("entity", string(step.entity)).Int("written", n).Msg("Tenant sync step finished")
	}

	logger.Info().Interface("counts", counts).Msg("Tenant synced")
	return counts, nil
}

func (s *SyncService) syncProducts(ctx context.Context, tenantID string, session *domain.Session) (int, error) {
	products, err := s.provider.ListProducts(ctx, session.Shop, session.AccessToken)
	if err != nil {
		return 0, domain.ProviderAPIError("list products", err)
	}
	for i, p := range products {
		if _, err := s.entities.UpsertProduct(ctx, ProductInputFrom(tenantID, p)); err != nil {
			return i, err
		}
	}
	return len(products), nil
}

func (s *SyncService) syncCustomers(ctx context.Context, tenantID string, session *domain.Session) (int, error) {
	customers, err := s.provider.ListCustomers(ctx, session.Shop, session.AccessToken)
	if err != nil {
		return 0, domain.ProviderAPIError("list customers", err)
	}
	for i, c := range customers {
		if _, err := s.entities.UpsertCustomer(ctx, CustomerInputFrom(tenantID, c)); err != nil {
			return i, err
		}
	}
	return len(customers), nil
}

func (s *SyncService) syncOrders(ctx context.Context, tenantID string, session *domain.Session) (int, error) {
	orders, err := s.provider.ListOrders(ctx, session.Shop, session.AccessToken)
	if err != nil {
		return 0, domain.ProviderAPIError("list orders", err)
	}
	for i, o := range orders {
		if _, err := s.entities.UpsertOrder(ctx, OrderInputFrom(tenantID, o)); err != nil {
			return i, err
		}
	}
	return len(orders), nil
}
