package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"rosterwatch/internal/models"
	"rosterwatch/internal/normalizer"
	"rosterwatch/internal/notify"
)

// RunCycle reconciles every enabled facility once. Facilities are
// independent units of work fed to a bounded worker pool; the facility list
// and the subscription snapshot are read-only for the whole cycle. A
// facility-level failure is logged and never aborts the cycle for the
// others.
func (s *Service) RunCycle(ctx context.Context) error {
	runID := uuid.New().String()
	runTime := s.now()
	logger := s.logger.With(zap.String("run_id", runID))

	facilities, err := s.facilities.ListEnabled(ctx)
	if err != nil {
		return fmt.Errorf("failed to list facilities: %w", err)
	}

	subs, err := s.subscriptions.LoadSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("failed to load subscriptions: %w", err)
	}
	snapshot := notify.NewSnapshot(subs)

	logger.Info("Cycle started",
		zap.Int("facilities", len(facilities)),
		zap.Int("subscriptions", len(subs)),
	)

	workers := s.cfg.Scheduler.Workers
	if workers < 1 {
		workers = 1
	}

	work := make(chan *models.Facility)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for fac := range work {
				s.processFacility(ctx, logger, fac, snapshot, runID, runTime)
			}
		}()
	}

	for _, fac := range facilities {
		select {
		case <-ctx.Done():
			close(work)
			wg.Wait()
			return ctx.Err()
		case work <- fac:
		}
	}
	close(work)
	wg.Wait()

	logger.Info("Cycle finished")
	return nil
}

// processFacility runs one facility end to end: fetch, normalize,
// reconcile, persist, notify. Its custody session is acquired after the
// worker's previous facility fully released its own and is closed before
// the worker moves on; no session ever spans two facilities.
func (s *Service) processFacility(
	ctx context.Context,
	logger *zap.Logger,
	fac *models.Facility,
	snapshot *notify.Snapshot,
	runID string,
	runTime time.Time,
) {
	logger = logger.With(zap.String("facility_id", fac.FacilityID))

	adapter, err := s.adapters.For(fac.Adapter)
	if err != nil {
		logger.Error("Facility misconfigured", zap.Error(err))
		return
	}

	snap, err := adapter.Fetch(ctx, fac)
	if err != nil {
		logger.Warn("Roster fetch failed, skipping facility", zap.Error(err))
		return
	}

	entries := make([]models.RosterRecord, 0, len(snap.Records))
	rejected := 0
	for _, raw := range snap.Records {
		entry, rejection := normalizer.Normalize(raw)
		if rejection != nil {
			rejected++
			logger.Warn("Rejected roster record",
				zap.Strings("fields", rejection.Fields),
				zap.String("reason", rejection.Reason),
			)
			continue
		}
		entries = append(entries, entry)
	}

	session, err := s.custody.Session(ctx)
	if err != nil {
		logger.Error("Failed to open custody session", zap.Error(err))
		return
	}
	defer session.Close()

	open, err := session.FindOpenRecords(ctx, fac.FacilityID)
	if err != nil {
		logger.Error("Failed to load open records", zap.Error(err))
		return
	}

	plan := s.reconciler.Reconcile(fac.FacilityID, entries, snap.Complete, open, runTime)
	if plan.Skipped {
		return
	}

	result, err := session.ApplyBatch(ctx, fac.FacilityID, plan.Ops, runTime)
	if err != nil {
		logger.Error("Failed to apply operations", zap.Error(err))
		return
	}

	// Notifications only for what actually committed, so subscribers never
	// hear about state the store does not hold.
	for _, rec := range result.Created {
		s.dispatchEvent(ctx, logger, snapshot, models.EventArrested, rec, runID, runTime)
	}
	for _, recordID := range result.ClosedIDs {
		rec, ok := plan.ClosedRecords[recordID]
		if !ok {
			continue
		}
		rec.ReleaseDate = runTime.Format("2006-01-02")
		s.dispatchEvent(ctx, logger, snapshot, models.EventReleased, rec, runID, runTime)
	}

	logger.Info("Facility reconciled",
		zap.Int("roster_records", len(snap.Records)),
		zap.Int("rejected", rejected),
		zap.Int("creates", plan.Stats.Creates),
		zap.Int("touches", plan.Stats.Touches),
		zap.Int("closes", plan.Stats.Closes),
		zap.Int("ambiguous", plan.Stats.Ambiguous),
		zap.Int("failed_ops", result.Failed),
	)
}

func (s *Service) dispatchEvent(
	ctx context.Context,
	logger *zap.Logger,
	snapshot *notify.Snapshot,
	eventType models.EventType,
	rec *models.CustodyRecord,
	runID string,
	runTime time.Time,
) {
	event := &models.CustodyEvent{
		EventType:  eventType,
		Record:     rec,
		RunID:      runID,
		OccurredAt: runTime,
	}
	matched := snapshot.Match(rec)
	stats := s.dispatcher.Dispatch(ctx, event, matched)
	if stats.Sent > 0 || stats.Failed > 0 {
		logger.Info("Event dispatched",
			zap.String("event_type", string(eventType)),
			zap.String("record_id", rec.RecordID),
			zap.Int("sent", stats.Sent),
			zap.Int("skipped", stats.Skipped),
			zap.Int("failed", stats.Failed),
		)
	}
}
