package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"rosterwatch/internal/models"
	"rosterwatch/internal/normalizer"
)

// Link kinds for subscription_record_links.
const (
	LinkInclude = "include"
	LinkExclude = "exclude"
)

const subscriptionColumns = `subscription_id, owner_id, subscribed_name,
	normalized_name, channel, address, enabled,
	COALESCE(last_arrest_date, ''), COALESCE(last_release_date, ''),
	COALESCE(last_facility_id, ''), created_at, updated_at`

// SubscriptionRepository owns the subscriptions table and its link tables.
// The reconciliation cycle only reads it (one snapshot per cycle); writes
// come from the management API and the provisioning endpoint.
type SubscriptionRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSubscriptionRepository creates the repository.
func NewSubscriptionRepository(db *sql.DB, logger *zap.Logger) *SubscriptionRepository {
	return &SubscriptionRepository{db: db, logger: logger}
}

// LoadSnapshot loads every subscription with its links and overrides.
// Called once per reconciliation cycle; the result is treated as immutable
// by the matcher.
func (r *SubscriptionRepository) LoadSnapshot(ctx context.Context) ([]*models.Subscription, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+subscriptionColumns+` FROM subscriptions`)
	if err != nil {
		return nil, fmt.Errorf("failed to query subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []*models.Subscription
	byID := make(map[string]*models.Subscription)
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
		byID[sub.SubscriptionID] = sub
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.attachLinks(ctx, byID); err != nil {
		return nil, err
	}
	if err := r.attachRecordLinks(ctx, byID); err != nil {
		return nil, err
	}

	return subs, nil
}

// attachLinks loads subscription_links and applies each row in both
// directions.
func (r *SubscriptionRepository) attachLinks(ctx context.Context, byID map[string]*models.Subscription) error {
	rows, err := r.db.QueryContext(ctx,
		`SELECT subscription_id, linked_subscription_id FROM subscription_links`)
	if err != nil {
		return fmt.Errorf("failed to query subscription links: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var a, b string
		if err := rows.Scan(&a, &b); err != nil {
			return fmt.Errorf("failed to scan subscription link: %w", err)
		}
		if subA, ok := byID[a]; ok {
			subA.LinkedIDs = append(subA.LinkedIDs, b)
		}
		if subB, ok := byID[b]; ok {
			subB.LinkedIDs = append(subB.LinkedIDs, a)
		}
	}
	return rows.Err()
}

func (r *SubscriptionRepository) attachRecordLinks(ctx context.Context, byID map[string]*models.Subscription) error {
	rows, err := r.db.QueryContext(ctx,
		`SELECT subscription_id, record_id, link_kind FROM subscription_record_links`)
	if err != nil {
		return fmt.Errorf("failed to query record links: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var subID, recordID, kind string
		if err := rows.Scan(&subID, &recordID, &kind); err != nil {
			return fmt.Errorf("failed to scan record link: %w", err)
		}
		sub, ok := byID[subID]
		if !ok {
			continue
		}
		switch kind {
		case LinkInclude:
			sub.IncludeRecordIDs = append(sub.IncludeRecordIDs, recordID)
		case LinkExclude:
			sub.ExcludeRecordIDs = append(sub.ExcludeRecordIDs, recordID)
		}
	}
	return rows.Err()
}

// ListByOwner returns one owner's subscriptions (management API).
func (r *SubscriptionRepository) ListByOwner(ctx context.Context, ownerID string) ([]*models.Subscription, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE owner_id = $1 ORDER BY subscribed_name`,
		ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []*models.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// Get loads one subscription by id.
func (r *SubscriptionRepository) Get(ctx context.Context, subscriptionID string) (*models.Subscription, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE subscription_id = $1`,
		subscriptionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query subscription: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, sql.ErrNoRows
	}
	return scanSubscription(rows)
}

// Create inserts a new subscription. The id and the normalized name are
// filled in here.
func (r *SubscriptionRepository) Create(ctx context.Context, sub *models.Subscription) error {
	if sub.SubscriptionID == "" {
		sub.SubscriptionID = uuid.New().String()
	}
	sub.NormalizedName = normalizer.NormalizeName(sub.SubscribedName)
	if sub.NormalizedName == "" {
		return fmt.Errorf("subscribed_name is required")
	}
	now := time.Now()
	sub.CreatedAt = now
	sub.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO subscriptions (
			subscription_id, owner_id, subscribed_name, normalized_name,
			channel, address, enabled, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		sub.SubscriptionID, sub.OwnerID, sub.SubscribedName, sub.NormalizedName,
		sub.Channel, sub.Address, sub.Enabled, sub.CreatedAt, sub.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert subscription: %w", err)
	}
	return nil
}

// Update rewrites the editable fields of a subscription.
func (r *SubscriptionRepository) Update(ctx context.Context, sub *models.Subscription) error {
	sub.NormalizedName = normalizer.NormalizeName(sub.SubscribedName)
	if sub.NormalizedName == "" {
		return fmt.Errorf("subscribed_name is required")
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE subscriptions SET
			subscribed_name = $1, normalized_name = $2, channel = $3,
			address = $4, enabled = $5, updated_at = $6
		WHERE subscription_id = $7`,
		sub.SubscribedName, sub.NormalizedName, sub.Channel,
		sub.Address, sub.Enabled, time.Now(), sub.SubscriptionID,
	)
	if err != nil {
		return fmt.Errorf("failed to update subscription: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a subscription and its links.
func (r *SubscriptionRepository) Delete(ctx context.Context, subscriptionID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		`DELETE FROM subscription_links WHERE subscription_id = $1 OR linked_subscription_id = $1`,
		`DELETE FROM subscription_record_links WHERE subscription_id = $1`,
		`DELETE FROM notified_events WHERE subscription_id = $1`,
		`DELETE FROM subscriptions WHERE subscription_id = $1`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, subscriptionID); err != nil {
			return fmt.Errorf("failed to delete subscription: %w", err)
		}
	}
	return tx.Commit()
}

// AddLink records a bidirectional "same person" link between two
// subscriptions. One stored row covers both directions.
func (r *SubscriptionRepository) AddLink(ctx context.Context, subscriptionID, linkedID string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO subscription_links (subscription_id, linked_subscription_id)
		VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		subscriptionID, linkedID)
	if err != nil {
		return fmt.Errorf("failed to add subscription link: %w", err)
	}
	return nil
}

// RemoveLink deletes a link in either stored direction.
func (r *SubscriptionRepository) RemoveLink(ctx context.Context, subscriptionID, linkedID string) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM subscription_links
		WHERE (subscription_id = $1 AND linked_subscription_id = $2)
		   OR (subscription_id = $2 AND linked_subscription_id = $1)`,
		subscriptionID, linkedID)
	if err != nil {
		return fmt.Errorf("failed to remove subscription link: %w", err)
	}
	return nil
}

// SetRecordLink records a manual include/exclude override against one
// custody record, replacing any previous override for the same pair.
func (r *SubscriptionRepository) SetRecordLink(ctx context.Context, subscriptionID, recordID, kind string) error {
	if kind != LinkInclude && kind != LinkExclude {
		return fmt.Errorf("invalid link kind: %s", kind)
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO subscription_record_links (subscription_id, record_id, link_kind)
		VALUES ($1, $2, $3)
		ON CONFLICT (subscription_id, record_id) DO UPDATE SET link_kind = EXCLUDED.link_kind`,
		subscriptionID, recordID, kind)
	if err != nil {
		return fmt.Errorf("failed to set record link: %w", err)
	}
	return nil
}

// RemoveRecordLink deletes a manual override.
func (r *SubscriptionRepository) RemoveRecordLink(ctx context.Context, subscriptionID, recordID string) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM subscription_record_links
		WHERE subscription_id = $1 AND record_id = $2`,
		subscriptionID, recordID)
	if err != nil {
		return fmt.Errorf("failed to remove record link: %w", err)
	}
	return nil
}

// UpsertForOwner is the provisioning entry point used by the upstream
// membership system: create the subscription if the owner does not already
// watch this name, otherwise re-enable it and refresh the channel.
func (r *SubscriptionRepository) UpsertForOwner(ctx context.Context, ownerID, name, channel, address string) (*models.Subscription, error) {
	normalized := normalizer.NormalizeName(name)
	if normalized == "" {
		return nil, fmt.Errorf("subscribed_name is required")
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions
		 WHERE owner_id = $1 AND normalized_name = $2`,
		ownerID, normalized)
	if err != nil {
		return nil, fmt.Errorf("failed to query subscription: %w", err)
	}
	defer rows.Close()

	if rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		rows.Close()
		sub.Channel = channel
		sub.Address = address
		sub.Enabled = true
		if err := r.Update(ctx, sub); err != nil {
			return nil, err
		}
		return sub, nil
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sub := &models.Subscription{
		OwnerID:        ownerID,
		SubscribedName: name,
		Channel:        channel,
		Address:        address,
		Enabled:        true,
	}
	if err := r.Create(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// UpdateLastNotified records the custody state last communicated to the
// owner. Best-effort display data; dedup lives in notified_events.
func (r *SubscriptionRepository) UpdateLastNotified(ctx context.Context, subscriptionID, arrestDate, releaseDate, facilityID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE subscriptions SET
			last_arrest_date = $1, last_release_date = $2,
			last_facility_id = $3, updated_at = $4
		WHERE subscription_id = $5`,
		nullable(arrestDate), nullable(releaseDate), nullable(facilityID),
		time.Now(), subscriptionID)
	if err != nil {
		return fmt.Errorf("failed to update last notified state: %w", err)
	}
	return nil
}

func scanSubscription(row rowScanner) (*models.Subscription, error) {
	sub := &models.Subscription{}
	err := row.Scan(
		&sub.SubscriptionID, &sub.OwnerID, &sub.SubscribedName,
		&sub.NormalizedName, &sub.Channel, &sub.Address, &sub.Enabled,
		&sub.LastArrestDate, &sub.LastReleaseDate, &sub.LastFacilityID,
		&sub.CreatedAt, &sub.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan subscription: %w", err)
	}
	return sub, nil
}
