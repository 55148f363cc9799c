package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"rosterwatch/internal/models"
)

// NotificationRepository owns the notified_events ledger that makes
// dispatch idempotent across reconciliation cycles.
type NotificationRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewNotificationRepository creates the repository.
func NewNotificationRepository(db *sql.DB, logger *zap.Logger) *NotificationRepository {
	return &NotificationRepository{db: db, logger: logger}
}

// TryMarkNotified claims the (subscription, record, event) key. It returns
// true when this call inserted the key, false when a previous dispatch
// already claimed it. The insert-first ordering means a crashed transport
// call is not retried next cycle, matching the no-retry-within-record-state
// policy.
func (r *NotificationRepository) TryMarkNotified(ctx context.Context, subscriptionID, recordID string, eventType models.EventType) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO notified_events (subscription_id, record_id, event_type, notified_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (subscription_id, record_id, event_type) DO NOTHING`,
		subscriptionID, recordID, string(eventType), time.Now())
	if err != nil {
		return false, fmt.Errorf("failed to record notification: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read notification insert result: %w", err)
	}
	return n > 0, nil
}
