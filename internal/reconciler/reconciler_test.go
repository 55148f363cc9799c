package reconciler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"rosterwatch/internal/models"
)

var runTime = time.Date(2025, 9, 10, 8, 0, 0, 0, time.UTC)

func rosterEntry(name, dob, sex, race, arrest string) models.RosterRecord {
	return models.RosterRecord{
		Name:           name,
		NormalizedName: name,
		DateOfBirth:    dob,
		Sex:            sex,
		Race:           race,
		ArrestDate:     arrest,
	}
}

func storedOpen(id, name, dob, sex, race, arrest string) *models.CustodyRecord {
	return &models.CustodyRecord{
		RecordID:       id,
		FacilityID:     "fac-1",
		Name:           name,
		NormalizedName: name,
		DateOfBirth:    dob,
		Sex:            sex,
		Race:           race,
		ArrestDate:     arrest,
		LastSeen:       runTime.Add(-24 * time.Hour),
	}
}

func opKinds(ops []models.Operation) []models.OpKind {
	kinds := make([]models.OpKind, len(ops))
	for i, op := range ops {
		kinds[i] = op.Kind
	}
	return kinds
}

func TestReconcile_NewArrestEmitsCreate(t *testing.T) {
	r := New(zap.NewNop())

	plan := r.Reconcile("fac-1",
		[]models.RosterRecord{rosterEntry("SMITH, JOHN", "1990-01-01", "M", "W", "2025-09-01")},
		true, nil, runTime)

	require.False(t, plan.Skipped)
	require.Len(t, plan.Ops, 1)
	assert.Equal(t, models.OpCreate, plan.Ops[0].Kind)
	assert.Equal(t, 1, plan.Stats.Creates)
	assert.Equal(t, 0, plan.Stats.Closes)
}

func TestReconcile_ContinuationEmitsTouch(t *testing.T) {
	r := New(zap.NewNop())
	open := []*models.CustodyRecord{storedOpen("rec-1", "SMITH, JOHN", "1990-01-01", "M", "W", "2025-09-01")}

	plan := r.Reconcile("fac-1",
		[]models.RosterRecord{rosterEntry("SMITH, JOHN", "1990-01-01", "M", "W", "2025-09-01")},
		true, open, runTime)

	require.Len(t, plan.Ops, 1)
	assert.Equal(t, models.OpTouch, plan.Ops[0].Kind)
	assert.Equal(t, "rec-1", plan.Ops[0].RecordID)
	assert.False(t, plan.Ops[0].Dirty)
	assert.Equal(t, 0, plan.Stats.Closes)
}

func TestReconcile_AbsentOpenRecordIsClosed(t *testing.T) {
	r := New(zap.NewNop())
	open := []*models.CustodyRecord{storedOpen("rec-1", "SMITH, JOHN", "1990-01-01", "M", "W", "2025-09-01")}

	// Genuine empty roster: everyone got released.
	plan := r.Reconcile("fac-1", nil, true, open, runTime)

	require.False(t, plan.Skipped)
	require.Len(t, plan.Ops, 1)
	assert.Equal(t, models.OpClose, plan.Ops[0].Kind)
	assert.Equal(t, "rec-1", plan.Ops[0].RecordID)
	assert.Equal(t, "2025-09-10", plan.Ops[0].ReleaseDate)
	require.Contains(t, plan.ClosedRecords, "rec-1")
}

func TestReconcile_IncompleteEmptySnapshotSkips(t *testing.T) {
	r := New(zap.NewNop())
	open := []*models.CustodyRecord{storedOpen("rec-1", "SMITH, JOHN", "1990-01-01", "M", "W", "2025-09-01")}

	// Failed fetch: zero records without the completeness flag must not
	// release anyone.
	plan := r.Reconcile("fac-1", nil, false, open, runTime)

	assert.True(t, plan.Skipped)
	assert.Empty(t, plan.Ops)
	assert.Equal(t, 0, plan.Stats.Closes)
}

func TestReconcile_IncompleteSnapshotWithRecordsSkipsClosesOnly(t *testing.T) {
	r := New(zap.NewNop())
	open := []*models.CustodyRecord{storedOpen("rec-1", "SMITH, JOHN", "1990-01-01", "M", "W", "2025-09-01")}

	plan := r.Reconcile("fac-1",
		[]models.RosterRecord{rosterEntry("DOE, JANE", "1985-05-05", "F", "B", "2025-09-09")},
		false, open, runTime)

	require.False(t, plan.Skipped)
	assert.Equal(t, 1, plan.Stats.Creates)
	assert.Equal(t, 0, plan.Stats.Closes)
}

func TestReconcile_ReArrestClosesBeforeCreate(t *testing.T) {
	r := New(zap.NewNop())
	open := []*models.CustodyRecord{storedOpen("rec-1", "SMITH, JOHN", "1990-01-01", "M", "W", "2025-09-01")}

	plan := r.Reconcile("fac-1",
		[]models.RosterRecord{rosterEntry("SMITH, JOHN", "1990-01-01", "M", "W", "2025-09-09")},
		true, open, runTime)

	// The store allows one open episode per identity, so the close of the
	// old episode must precede the create of the new one.
	require.Equal(t, []models.OpKind{models.OpClose, models.OpCreate}, opKinds(plan.Ops))
}

func TestReconcile_DemographicDriftTouchesDirty(t *testing.T) {
	r := New(zap.NewNop())
	open := []*models.CustodyRecord{storedOpen("rec-1", "SMITH, JOHN", "1990-01-01", "M", "W", "2025-09-01")}

	plan := r.Reconcile("fac-1",
		[]models.RosterRecord{rosterEntry("SMITH, JOHN", "1990-01-01", "M", "B", "2025-09-01")},
		true, open, runTime)

	require.Len(t, plan.Ops, 1)
	assert.Equal(t, models.OpTouch, plan.Ops[0].Kind)
	assert.True(t, plan.Ops[0].Dirty)
	require.NotNil(t, plan.Ops[0].Record)
	assert.Equal(t, "B", plan.Ops[0].Record.Race)
	assert.Equal(t, 1, plan.Stats.Ambiguous)
	assert.Equal(t, 0, plan.Stats.Closes)
}

func TestReconcile_DuplicateRosterRowsCollapse(t *testing.T) {
	r := New(zap.NewNop())

	entry := rosterEntry("SMITH, JOHN", "1990-01-01", "M", "W", "2025-09-01")
	plan := r.Reconcile("fac-1", []models.RosterRecord{entry, entry}, true, nil, runTime)

	assert.Equal(t, 1, plan.Stats.Creates)
	assert.Equal(t, 1, plan.Stats.Duplicates)
	require.Len(t, plan.Ops, 1)
}

func TestReconcile_IdenticalSnapshotIsIdempotent(t *testing.T) {
	r := New(zap.NewNop())
	entries := []models.RosterRecord{
		rosterEntry("SMITH, JOHN", "1990-01-01", "M", "W", "2025-09-01"),
		rosterEntry("DOE, JANE", "1985-05-05", "F", "B", "2025-09-02"),
	}

	first := r.Reconcile("fac-1", entries, true, nil, runTime)
	require.Equal(t, 2, first.Stats.Creates)

	// Simulate the store after the first pass.
	open := []*models.CustodyRecord{
		storedOpen("rec-1", "SMITH, JOHN", "1990-01-01", "M", "W", "2025-09-01"),
		storedOpen("rec-2", "DOE, JANE", "1985-05-05", "F", "B", "2025-09-02"),
	}
	second := r.Reconcile("fac-1", entries, true, open, runTime)

	assert.Equal(t, 0, second.Stats.Creates)
	assert.Equal(t, 0, second.Stats.Closes)
	assert.Equal(t, 0, second.Stats.DirtyTouches)
	assert.Equal(t, 2, second.Stats.Touches)
}
