package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rosterwatch/internal/models"
)

func sub(id, name string) *models.Subscription {
	return &models.Subscription{
		SubscriptionID: id,
		OwnerID:        "owner-" + id,
		SubscribedName: name,
		NormalizedName: name,
		Channel:        models.ChannelLog,
		Enabled:        true,
	}
}

func record(id, name string) *models.CustodyRecord {
	return &models.CustodyRecord{
		RecordID:       id,
		FacilityID:     "fac-1",
		Name:           name,
		NormalizedName: name,
		ArrestDate:     "2025-09-01",
	}
}

func ids(subs []*models.Subscription) []string {
	out := make([]string, len(subs))
	for i, s := range subs {
		out[i] = s.SubscriptionID
	}
	return out
}

func TestMatch_AllNameMatchesCollected(t *testing.T) {
	// Two independent subscribers to the same name must both match; a
	// first-match lookup would silently drop one of them.
	snapshot := NewSnapshot([]*models.Subscription{
		sub("sub-1", "SMITH, JOHN"),
		sub("sub-2", "SMITH, JOHN"),
		sub("sub-3", "DOE, JANE"),
	})

	matched := snapshot.Match(record("rec-1", "SMITH, JOHN"))

	assert.Equal(t, []string{"sub-1", "sub-2"}, ids(matched))
}

func TestMatch_DisabledSubscriptionsNeverMatch(t *testing.T) {
	disabled := sub("sub-1", "SMITH, JOHN")
	disabled.Enabled = false
	snapshot := NewSnapshot([]*models.Subscription{disabled})

	matched := snapshot.Match(record("rec-1", "SMITH, JOHN"))

	assert.Empty(t, matched)
}

func TestMatch_ExclusionWinsOverNameMatch(t *testing.T) {
	excluded := sub("sub-1", "SMITH, JOHN")
	excluded.ExcludeRecordIDs = []string{"rec-1"}
	snapshot := NewSnapshot([]*models.Subscription{
		excluded,
		sub("sub-2", "SMITH, JOHN"),
	})

	matched := snapshot.Match(record("rec-1", "SMITH, JOHN"))

	assert.Equal(t, []string{"sub-2"}, ids(matched))
}

func TestMatch_InclusionOverridesNameMiss(t *testing.T) {
	included := sub("sub-1", "SMYTHE, JON")
	included.IncludeRecordIDs = []string{"rec-1"}
	snapshot := NewSnapshot([]*models.Subscription{included})

	matched := snapshot.Match(record("rec-1", "SMITH, JOHN"))

	assert.Equal(t, []string{"sub-1"}, ids(matched))
}

func TestMatch_LinkedSubscriptionsAddedOneHop(t *testing.T) {
	a := sub("sub-1", "SMITH, JOHN")
	b := sub("sub-2", "SMYTHE, JON")
	c := sub("sub-3", "SMYTH, J")
	// a <-> b and b <-> c. Matching a must pull in b (one hop) but not c.
	a.LinkedIDs = []string{"sub-2"}
	b.LinkedIDs = []string{"sub-1", "sub-3"}
	c.LinkedIDs = []string{"sub-2"}
	snapshot := NewSnapshot([]*models.Subscription{a, b, c})

	matched := snapshot.Match(record("rec-1", "SMITH, JOHN"))

	assert.Equal(t, []string{"sub-1", "sub-2"}, ids(matched))
}

func TestMatch_LinkedSubscriptionStillExcluded(t *testing.T) {
	a := sub("sub-1", "SMITH, JOHN")
	b := sub("sub-2", "SMYTHE, JON")
	a.LinkedIDs = []string{"sub-2"}
	b.LinkedIDs = []string{"sub-1"}
	b.ExcludeRecordIDs = []string{"rec-1"}
	snapshot := NewSnapshot([]*models.Subscription{a, b})

	matched := snapshot.Match(record("rec-1", "SMITH, JOHN"))

	require.Equal(t, []string{"sub-1"}, ids(matched))
}

func TestMatch_NoMatches(t *testing.T) {
	snapshot := NewSnapshot([]*models.Subscription{sub("sub-1", "DOE, JANE")})

	matched := snapshot.Match(record("rec-1", "SMITH, JOHN"))

	assert.Empty(t, matched)
}
