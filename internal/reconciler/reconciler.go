// Package reconciler turns one facility's roster snapshot into a set of
// persistence operations: creates for new arrests, touches for known open
// episodes, closes for episodes that stopped appearing.
package reconciler

import (
	"time"

	"go.uber.org/zap"

	"rosterwatch/internal/matcher"
	"rosterwatch/internal/models"
)

// Stats counts what one reconciliation pass decided.
type Stats struct {
	Creates      int
	Touches      int
	DirtyTouches int
	Closes       int
	Ambiguous    int
	Duplicates   int
}

// Plan is the output of one pass: the ordered operation list plus the
// records each close refers to, so the caller can build release events
// after the operations commit.
type Plan struct {
	Ops []models.Operation
	// ClosedRecords are the open records scheduled for closing, keyed off
	// the same order as their close operations.
	ClosedRecords map[string]*models.CustodyRecord
	// Skipped is set when the snapshot could not be trusted (incomplete
	// fetch with no usable records); no operations are emitted.
	Skipped bool
	Stats   Stats
}

// Reconciler computes the diff between a facility's stored open records and
// a fresh roster snapshot. Pure in-memory computation; persistence happens
// elsewhere.
type Reconciler struct {
	logger *zap.Logger
}

// New creates a reconciler.
func New(logger *zap.Logger) *Reconciler {
	return &Reconciler{logger: logger}
}

// Reconcile processes one facility's full normalized roster against its
// currently-open records.
//
// Release is inferred from absence: every open record not touched by this
// pass is closed with releaseDate = the run date. That inference is only
// safe when the snapshot is complete — an incomplete or empty-and-unflagged
// snapshot must not release anyone, because a failed fetch is
// indistinguishable from an empty jail. In that case creates and touches
// from whatever records did arrive still apply, but no closes are emitted.
func (r *Reconciler) Reconcile(
	facilityID string,
	entries []models.RosterRecord,
	complete bool,
	open []*models.CustodyRecord,
	runTime time.Time,
) Plan {
	plan := Plan{ClosedRecords: make(map[string]*models.CustodyRecord)}

	if !complete && len(entries) == 0 {
		r.logger.Warn("Skipping reconciliation: incomplete snapshot with no records",
			zap.String("facility_id", facilityID),
			zap.Int("open_records", len(open)),
		)
		plan.Skipped = true
		return plan
	}

	idx := matcher.NewIndex(open)
	touched := make(map[string]bool, len(open))
	pendingCreates := make(map[models.IdentityKey]bool)

	for i := range entries {
		entry := &entries[i]
		decision := idx.Match(entry)

		switch decision.Kind {
		case matcher.Continuation, matcher.AmbiguousContinuation:
			if decision.Kind == matcher.AmbiguousContinuation {
				plan.Stats.Ambiguous++
				r.logger.Info("Ambiguous match resolved as continuation",
					zap.String("facility_id", facilityID),
					zap.String("record_id", decision.Matched.RecordID),
					zap.String("name", entry.NormalizedName),
					zap.String("arrest_date", entry.ArrestDate),
				)
			}
			if touched[decision.Matched.RecordID] {
				// Two roster rows resolved to the same episode; one
				// touch is enough.
				plan.Stats.Duplicates++
				continue
			}
			touched[decision.Matched.RecordID] = true

			op := models.Operation{
				Kind:       models.OpTouch,
				FacilityID: facilityID,
				RecordID:   decision.Matched.RecordID,
			}
			if recordDrifted(decision.Matched, entry) {
				op.Dirty = true
				op.Record = entry
				plan.Stats.DirtyTouches++
			}
			plan.Ops = append(plan.Ops, op)
			plan.Stats.Touches++

		case matcher.NewArrest:
			key := entry.Identity()
			if pendingCreates[key] {
				plan.Stats.Duplicates++
				continue
			}
			pendingCreates[key] = true
			plan.Ops = append(plan.Ops, models.Operation{
				Kind:       models.OpCreate,
				FacilityID: facilityID,
				Record:     entry,
			})
			plan.Stats.Creates++
		}
	}

	if complete {
		releaseDate := runTime.Format("2006-01-02")
		for _, rec := range open {
			if touched[rec.RecordID] {
				continue
			}
			plan.Ops = append(plan.Ops, models.Operation{
				Kind:        models.OpClose,
				FacilityID:  facilityID,
				RecordID:    rec.RecordID,
				ReleaseDate: releaseDate,
			})
			plan.ClosedRecords[rec.RecordID] = rec
			plan.Stats.Closes++
		}
	}

	// Closes must land before creates: a re-arrest under a new arrest date
	// closes the prior episode and opens a new one for the same person,
	// and the store enforces at most one open episode per identity.
	orderOps(plan.Ops)

	return plan
}

// orderOps sorts operations touch, close, create while keeping the relative
// order within each kind stable.
func orderOps(ops []models.Operation) {
	rank := func(k models.OpKind) int {
		switch k {
		case models.OpTouch:
			return 0
		case models.OpClose:
			return 1
		default:
			return 2
		}
	}
	// Stable insertion sort; operation lists are facility-sized.
	for i := 1; i < len(ops); i++ {
		for j := i; j > 0 && rank(ops[j].Kind) < rank(ops[j-1].Kind); j-- {
			ops[j], ops[j-1] = ops[j-1], ops[j]
		}
	}
}

// recordDrifted reports whether the roster entry carries different data
// than the stored row, which upgrades a touch to a full rewrite.
func recordDrifted(stored *models.CustodyRecord, entry *models.RosterRecord) bool {
	return stored.Name != entry.Name ||
		stored.DateOfBirth != entry.DateOfBirth ||
		stored.Sex != entry.Sex ||
		stored.Race != entry.Race ||
		stored.CellBlock != entry.CellBlock ||
		stored.HoldingAgency != entry.HoldingAgency ||
		stored.Charges != entry.Charges ||
		(entry.Mugshot != "" && stored.Mugshot != entry.Mugshot) ||
		stored.IsJuvenile != entry.IsJuvenile
}
