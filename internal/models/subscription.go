package models

import "time"

// Notification channels.
const (
	ChannelPush    = "push"
	ChannelWebhook = "webhook"
	ChannelLog     = "log"
)

// Subscription is a user's request to be notified about a named person.
type Subscription struct {
	SubscriptionID string `json:"subscription_id"`
	OwnerID        string `json:"owner_id"`

	// SubscribedName keeps the user's spelling; NormalizedName is the
	// matching form (same normalization as CustodyRecord names).
	SubscribedName string `json:"subscribed_name"`
	NormalizedName string `json:"normalized_name"`

	Channel string `json:"channel"`
	Address string `json:"address"`
	Enabled bool   `json:"enabled"`

	// Last custody state communicated to the owner, kept for display.
	// Duplicate suppression itself is done by the notified_events ledger.
	LastArrestDate  string `json:"last_arrest_date"`
	LastReleaseDate string `json:"last_release_date"`
	LastFacilityID  string `json:"last_facility_id"`

	// LinkedIDs are subscriptions linked as "same person, different
	// spelling"; the relation is bidirectional and loaded symmetrically.
	LinkedIDs []string `json:"linked_ids,omitempty"`

	// IncludeRecordIDs / ExcludeRecordIDs are manual overrides against
	// specific custody records; they take precedence over name matching.
	IncludeRecordIDs []string `json:"include_record_ids,omitempty"`
	ExcludeRecordIDs []string `json:"exclude_record_ids,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Excludes reports whether this subscription holds an exclusion override
// for the given custody record.
func (s *Subscription) Excludes(recordID string) bool {
	for _, id := range s.ExcludeRecordIDs {
		if id == recordID {
			return true
		}
	}
	return false
}

// Includes reports whether this subscription holds an inclusion override
// for the given custody record.
func (s *Subscription) Includes(recordID string) bool {
	for _, id := range s.IncludeRecordIDs {
		if id == recordID {
			return true
		}
	}
	return false
}
