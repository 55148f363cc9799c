package notify

import (
	"context"

	"go.uber.org/zap"

	"rosterwatch/internal/models"
	"rosterwatch/internal/transport"
)

// Ledger is the persistent dedup store for dispatched notifications.
type Ledger interface {
	TryMarkNotified(ctx context.Context, subscriptionID, recordID string, eventType models.EventType) (bool, error)
}

// LastNotifiedUpdater records the custody state last communicated to a
// subscriber (display data on the subscription row).
type LastNotifiedUpdater interface {
	UpdateLastNotified(ctx context.Context, subscriptionID, arrestDate, releaseDate, facilityID string) error
}

// EventPublisher feeds committed custody events to downstream consumers
// (dashboard feed). Optional; delivery failures never block notifications.
type EventPublisher interface {
	PublishEvent(ctx context.Context, event *models.CustodyEvent) error
}

// DispatchStats counts the outcome of one Dispatch call.
type DispatchStats struct {
	Sent    int
	Skipped int
	Failed  int
}

// Dispatcher emits at most one notification per (subscription, record,
// event) pair. The ledger is claimed before the transport call, so a pair
// whose transport failed is logged but not retried on the next cycle —
// the next cycle would otherwise re-send every historical event after any
// transient outage.
type Dispatcher struct {
	logger     *zap.Logger
	ledger     Ledger
	subs       LastNotifiedUpdater
	transports map[string]transport.Transport
	fallback   transport.Transport
	events     EventPublisher
}

// NewDispatcher creates a dispatcher. subs and events may be nil.
func NewDispatcher(logger *zap.Logger, ledger Ledger, subs LastNotifiedUpdater, events EventPublisher) *Dispatcher {
	return &Dispatcher{
		logger:     logger,
		ledger:     ledger,
		subs:       subs,
		transports: make(map[string]transport.Transport),
		fallback:   transport.NewLog(logger),
		events:     events,
	}
}

// RegisterTransport binds a channel name to a transport.
func (d *Dispatcher) RegisterTransport(channel string, t transport.Transport) {
	d.transports[channel] = t
}

// Dispatch fans one committed custody event out to its matched
// subscriptions. Transport failures are per-pair: logged, counted and
// skipped past.
func (d *Dispatcher) Dispatch(ctx context.Context, event *models.CustodyEvent, subs []*models.Subscription) DispatchStats {
	stats := DispatchStats{}
	rec := event.Record

	if d.events != nil {
		if err := d.events.PublishEvent(ctx, event); err != nil {
			d.logger.Warn("Failed to publish custody event",
				zap.String("record_id", rec.RecordID),
				zap.String("event_type", string(event.EventType)),
				zap.Error(err),
			)
		}
	}

	for _, sub := range subs {
		fresh, err := d.ledger.TryMarkNotified(ctx, sub.SubscriptionID, rec.RecordID, event.EventType)
		if err != nil {
			stats.Failed++
			d.logger.Error("Failed to claim notification key",
				zap.String("subscription_id", sub.SubscriptionID),
				zap.String("record_id", rec.RecordID),
				zap.Error(err),
			)
			continue
		}
		if !fresh {
			stats.Skipped++
			continue
		}

		t, ok := d.transports[sub.Channel]
		if !ok {
			t = d.fallback
		}
		if err := t.Send(ctx, sub, rec, event.EventType); err != nil {
			stats.Failed++
			d.logger.Error("Notification delivery failed",
				zap.String("subscription_id", sub.SubscriptionID),
				zap.String("record_id", rec.RecordID),
				zap.String("channel", sub.Channel),
				zap.Error(err),
			)
			continue
		}
		stats.Sent++

		if d.subs != nil {
			if err := d.subs.UpdateLastNotified(ctx, sub.SubscriptionID, rec.ArrestDate, rec.ReleaseDate, rec.FacilityID); err != nil {
				d.logger.Warn("Failed to update last notified state",
					zap.String("subscription_id", sub.SubscriptionID),
					zap.Error(err),
				)
			}
		}
	}

	return stats
}
