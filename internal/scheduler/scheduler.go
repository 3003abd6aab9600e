package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/user/vidnest/internal/config"
	"github.com/user/vidnest/internal/metrics"
)

// Store is the subset of the store used by housekeeping
type Store interface {
	CountVideos(ctx context.Context) (int64, error)
	PurgeExpiredTokens(ctx context.Context, now time.Time) (int64, error)
}

// Scheduler runs periodic housekeeping: it refreshes the saved-video gauge
// and clears expired password-reset tokens and Telegram link codes
type Scheduler struct {
	store   Store
	config  *config.MaintenanceConfig
	now     func() time.Time
	running atomic.Bool
	mu      sync.Mutex // at most one housekeeping pass at a time
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewScheduler creates a new scheduler instance
func NewScheduler(store Store, cfg *config.MaintenanceConfig) *Scheduler {
	return &Scheduler{
		store:  store,
		config: cfg,
		now:    time.Now,
		stopCh: make(chan struct{}),
	}
}

// Start runs a first pass after the initial delay, then one per interval
func (s *Scheduler) Start(ctx context.Context) {
	if !s.config.Enabled {
		log.Info().Msg("Maintenance scheduler is disabled")
		return
	}

	s.wg.Add(1)
	go s.run(ctx)
}

// run is the main scheduler loop
func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()

	log.Info().Dur("delay", s.config.InitialDelay).Msg("Maintenance scheduler starting with initial delay")

	select {
	case <-time.After(s.config.InitialDelay):
		s.execute(ctx)
	case <-s.stopCh:
		log.Info().Msg("Maintenance scheduler stopped during initial delay")
		return
	case <-ctx.Done():
		log.Info().Msg("Maintenance scheduler context cancelled during initial delay")
		return
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.execute(ctx)
		case <-s.stopCh:
			return
		case <-ctx.Done():
			log.Info().Msg("Maintenance scheduler context cancelled")
			return
		}
	}
}

// execute runs one pass unless another is still in progress
func (s *Scheduler) execute(ctx context.Context) {
	if !s.TryRun(ctx) {
		log.Warn().Msg("Maintenance already running, skipping this trigger")
	}
}

// RunOnce refreshes the video gauge and purges expired tokens
func (s *Scheduler) RunOnce(ctx context.Context) error {
	count, err := s.store.CountVideos(ctx)
	if err != nil {
		return fmt.Errorf("failed to count videos: %w", err)
	}
	metrics.UpdateVideoCount(count)

	purged, err := s.store.PurgeExpiredTokens(ctx, s.now())
	if err != nil {
		return err
	}

	log.Info().
		Int64("videos", count).
		Int64("purgedTokens", purged).
		Msg("Maintenance pass completed")
	return nil
}

// Stop gracefully stops the scheduler
func (s *Scheduler) Stop() {
	log.Info().Msg("Stopping maintenance scheduler...")
	close(s.stopCh)
	s.wg.Wait()
	log.Info().Msg("Maintenance scheduler stopped")
}

// IsRunning returns true if a pass is currently running
func (s *Scheduler) IsRunning() bool {
	return s.running.Load()
}

// TryRun runs a pass immediately. It returns false if one is already running.
func (s *Scheduler) TryRun(ctx context.Context) bool {
	if !s.mu.TryLock() {
		return false
	}
	defer s.mu.Unlock()

	s.running.Store(true)
	defer s.running.Store(false)

	start := time.Now()
	if err := s.RunOnce(ctx); err != nil {
		metrics.RecordError("maintenance")
		log.Error().Err(err).Msg("Maintenance pass failed")
	}
	log.Debug().Dur("duration", time.Since(start)).Msg("Maintenance pass finished")

	return true
}
