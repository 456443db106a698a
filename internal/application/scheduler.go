package application

import (
	"context"
	"time"

	"shopify-tenant-sync/internal/domain"

	"github.com/rs/zerolog"
)

// SyncRunner is the part of SyncService the scheduler drives
type SyncRunner interface {
	RunSync(ctx context.Context) (*domain.SyncReport, error)
}

// SyncScheduler triggers a full sync on a fixed interval
type SyncScheduler struct {
	runner   SyncRunner
	interval time.Duration
	logger   zerolog.Logger
}

// NewSyncScheduler creates a scheduler; interval defaults to 15 minutes
func NewSyncScheduler(runner SyncRunner, interval time.Duration, logger zerolog.Logger) *SyncScheduler {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &SyncScheduler{runner: runner, interval: interval, logger: logger}
}

// RunOnce performs one sync run and logs its outcome
func (s *SyncScheduler) RunOnce(ctx context.Context) error {
	report, err := s.runner.RunSync(ctx)
	if err != nil {
		return err
	}
	for _, f := range report.Failed {
		s.logger.Warn().
			Str("shop", f.TenantDomain).
			Str("kind", string(f.Kind)).
			Str("error", f.Error).
			Msg("Scheduled sync failed for shop")
	}
	return nil
}

// RunForever runs a sync every interval until ctx is cancelled. The first
// run starts after one full interval.
func (s *SyncScheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info().Dur("interval", s.interval).Msg("Sync scheduler started")
	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Sync scheduler stopped")
			return
		case <-ticker.C:
		}

		if err := s.RunOnce(ctx); err != nil {
			s.logger.Error().Err(err).Msg("Scheduled sync run failed")
		}
	}
}
