// Package matcher decides whether a normalized roster entry continues a
// known custody episode or starts a new one.
//
// It operates purely over an in-memory index of a facility's open records,
// built once per reconciliation pass. No storage or network I/O.
package matcher

import (
	"rosterwatch/internal/models"
)

// Kind is the outcome of matching one roster entry.
type Kind int

const (
	// Continuation: the entry is a known open episode (exact 5-tuple).
	Continuation Kind = iota
	// NewArrest: no open episode carries this name at this facility, or
	// the same person re-appears under a different arrest date.
	NewArrest
	// AmbiguousContinuation: same name and arrest date as an open episode
	// but a demographic field drifted between scrapes. Resolved
	// deterministically to the most-recently-seen candidate and treated
	// as a continuation carrying a data correction; callers log it.
	AmbiguousContinuation
)

// Decision carries the match outcome and, for continuations, the matched
// stored record.
type Decision struct {
	Kind    Kind
	Matched *models.CustodyRecord
}

// Index holds one facility's open custody records keyed by normalized name.
type Index struct {
	byName map[string][]*models.CustodyRecord
	byKey  map[models.IdentityKey]*models.CustodyRecord
}

// NewIndex builds the per-pass index. Closed records are ignored.
func NewIndex(open []*models.CustodyRecord) *Index {
	idx := &Index{
		byName: make(map[string][]*models.CustodyRecord, len(open)),
		byKey:  make(map[models.IdentityKey]*models.CustodyRecord, len(open)),
	}
	for _, rec := range open {
		if !rec.IsOpen() {
			continue
		}
		idx.byName[rec.NormalizedName] = append(idx.byName[rec.NormalizedName], rec)
		idx.byKey[rec.Identity()] = rec
	}
	return idx
}

// Match classifies one normalized roster entry against the index.
//
// Exact match on the full 5-tuple is a continuation. An entry whose name is
// unknown at this facility is a new arrest. Same name and arrest date with
// demographic drift is ambiguous: the drift is treated as a correction, not
// a new person, because splitting on every demographic edit would fragment
// one episode's history across rows. The tie-break picks the candidate with
// the latest last_seen, so repeated passes resolve identically.
func (idx *Index) Match(entry *models.RosterRecord) Decision {
	if rec, ok := idx.byKey[entry.Identity()]; ok {
		return Decision{Kind: Continuation, Matched: rec}
	}

	candidates := idx.byName[entry.NormalizedName]
	if len(candidates) == 0 {
		return Decision{Kind: NewArrest}
	}

	var best *models.CustodyRecord
	for _, rec := range candidates {
		if rec.ArrestDate != entry.ArrestDate {
			continue
		}
		if best == nil || rec.LastSeen.After(best.LastSeen) {
			best = rec
		}
	}
	if best == nil {
		// Known name, different arrest date: a re-arrest. The prior open
		// episode will be closed by the same pass when it goes untouched.
		return Decision{Kind: NewArrest}
	}

	return Decision{Kind: AmbiguousContinuation, Matched: best}
}
