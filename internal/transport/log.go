package transport

import (
	"context"

	"go.uber.org/zap"

	"rosterwatch/internal/models"
)

// Log writes notifications to the service log. Default channel for
// subscriptions without a configured sink, and the fallback when a channel
// name is unknown.
type Log struct {
	logger *zap.Logger
}

// NewLog creates the log transport.
func NewLog(logger *zap.Logger) *Log {
	return &Log{logger: logger}
}

// Send logs one notification.
func (t *Log) Send(ctx context.Context, sub *models.Subscription, rec *models.CustodyRecord, eventType models.EventType) error {
	t.logger.Info("Notification",
		zap.String("subscription_id", sub.SubscriptionID),
		zap.String("owner_id", sub.OwnerID),
		zap.String("event_type", string(eventType)),
		zap.String("name", rec.Name),
		zap.String("facility_id", rec.FacilityID),
		zap.String("arrest_date", rec.ArrestDate),
		zap.String("release_date", rec.ReleaseDate),
	)
	return nil
}
