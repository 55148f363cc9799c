// Package service runs the reconciliation cycles: scheduling, the bounded
// facility worker pool, and the wiring between scraping, reconciliation,
// persistence and notification.
package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"rosterwatch/internal/config"
	"rosterwatch/internal/models"
	"rosterwatch/internal/notify"
	"rosterwatch/internal/reconciler"
	"rosterwatch/internal/repository"
	"rosterwatch/internal/scraper"
)

// CustodySession is one facility's scoped persistence handle. Satisfied by
// *repository.CustodySession.
type CustodySession interface {
	FindOpenRecords(ctx context.Context, facilityID string) ([]*models.CustodyRecord, error)
	ApplyBatch(ctx context.Context, facilityID string, ops []models.Operation, runTime time.Time) (*repository.ApplyResult, error)
	Close() error
}

// CustodyStore hands out per-facility sessions.
type CustodyStore interface {
	Session(ctx context.Context) (CustodySession, error)
}

// FacilitySource lists the facilities to reconcile.
type FacilitySource interface {
	ListEnabled(ctx context.Context) ([]*models.Facility, error)
}

// SubscriptionSource loads the subscription snapshot for one cycle.
type SubscriptionSource interface {
	LoadSnapshot(ctx context.Context) ([]*models.Subscription, error)
}

// RepoCustodyStore adapts the concrete repository to CustodyStore.
type RepoCustodyStore struct {
	Repo *repository.CustodyRepository
}

// Session opens a session on the underlying repository.
func (s RepoCustodyStore) Session(ctx context.Context) (CustodySession, error) {
	return s.Repo.Session(ctx)
}

// Service owns the scheduled reconciliation loop.
type Service struct {
	cfg           *config.Config
	logger        *zap.Logger
	facilities    FacilitySource
	subscriptions SubscriptionSource
	custody       CustodyStore
	adapters      *scraper.Registry
	reconciler    *reconciler.Reconciler
	dispatcher    *notify.Dispatcher

	// now is replaceable in tests.
	now func() time.Time
}

// New wires the service.
func New(
	cfg *config.Config,
	logger *zap.Logger,
	facilities FacilitySource,
	subscriptions SubscriptionSource,
	custody CustodyStore,
	adapters *scraper.Registry,
	rec *reconciler.Reconciler,
	dispatcher *notify.Dispatcher,
) *Service {
	return &Service{
		cfg:           cfg,
		logger:        logger,
		facilities:    facilities,
		subscriptions: subscriptions,
		custody:       custody,
		adapters:      adapters,
		reconciler:    rec,
		dispatcher:    dispatcher,
		now:           time.Now,
	}
}

// Start runs one cycle immediately, then one per configured interval until
// the context is cancelled. Cycle errors are logged, never fatal: the next
// tick retries everything.
func (s *Service) Start(ctx context.Context) error {
	s.logger.Info("Starting reconciliation scheduler",
		zap.Duration("interval", s.cfg.Scheduler.Interval),
		zap.Int("workers", s.cfg.Scheduler.Workers),
	)

	if err := s.RunCycle(ctx); err != nil {
		s.logger.Error("Reconciliation cycle failed", zap.Error(err))
	}

	ticker := time.NewTicker(s.cfg.Scheduler.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := s.RunCycle(ctx); err != nil {
				s.logger.Error("Reconciliation cycle failed", zap.Error(err))
			}
		}
	}
}
