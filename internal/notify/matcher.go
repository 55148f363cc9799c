// Package notify maps committed custody events to the subscribers that
// must hear about them, and dispatches exactly one notification per
// (subscription, record, event).
package notify

import (
	"sort"

	"rosterwatch/internal/models"
)

// Snapshot is the per-cycle view of all subscriptions with the indexes the
// matcher needs. Built once per reconciliation cycle and never mutated.
type Snapshot struct {
	byID       map[string]*models.Subscription
	byName     map[string][]*models.Subscription
	byIncluded map[string][]*models.Subscription
}

// NewSnapshot indexes a subscription list. Disabled subscriptions are kept
// out of every index: they neither match by name, nor by inclusion, nor
// via links.
func NewSnapshot(subs []*models.Subscription) *Snapshot {
	s := &Snapshot{
		byID:       make(map[string]*models.Subscription, len(subs)),
		byName:     make(map[string][]*models.Subscription),
		byIncluded: make(map[string][]*models.Subscription),
	}
	for _, sub := range subs {
		if !sub.Enabled {
			continue
		}
		s.byID[sub.SubscriptionID] = sub
		s.byName[sub.NormalizedName] = append(s.byName[sub.NormalizedName], sub)
		for _, recordID := range sub.IncludeRecordIDs {
			s.byIncluded[recordID] = append(s.byIncluded[recordID], sub)
		}
	}
	return s
}

// Match returns every subscription that must be notified about a custody
// record, as a union of all rules — never a first-match lookup, so N
// subscribers to the same name produce N results.
//
// Rules, applied additively:
//  1. every enabled subscription whose normalized name equals the
//     record's normalized name;
//  2. every enabled subscription holding an inclusion override for this
//     record;
//  3. every enabled subscription linked (one hop) to a subscription
//     already in the set;
//  4. finally, any subscription holding an exclusion override for this
//     record is removed. Exclusion wins over every other rule, including
//     inclusion and links, so an excluded subscriber can never be
//     re-added through a side door.
//
// The result is ordered by subscription id for deterministic dispatch.
func (s *Snapshot) Match(rec *models.CustodyRecord) []*models.Subscription {
	matched := make(map[string]*models.Subscription)

	for _, sub := range s.byName[rec.NormalizedName] {
		matched[sub.SubscriptionID] = sub
	}
	for _, sub := range s.byIncluded[rec.RecordID] {
		matched[sub.SubscriptionID] = sub
	}

	// One-hop link closure over the set so far. Linked-of-linked is not
	// auto-included; that keeps the fan-out bounded and auditable.
	var linked []*models.Subscription
	for _, sub := range matched {
		for _, linkedID := range sub.LinkedIDs {
			if _, ok := matched[linkedID]; ok {
				continue
			}
			if other, ok := s.byID[linkedID]; ok {
				linked = append(linked, other)
			}
		}
	}
	for _, sub := range linked {
		matched[sub.SubscriptionID] = sub
	}

	result := make([]*models.Subscription, 0, len(matched))
	for _, sub := range matched {
		if sub.Excludes(rec.RecordID) {
			continue
		}
		result = append(result, sub)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].SubscriptionID < result[j].SubscriptionID
	})
	return result
}
