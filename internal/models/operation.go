package models

// OpKind tags one persistence operation emitted by the reconciler.
type OpKind string

const (
	// OpCreate inserts a new open custody record.
	OpCreate OpKind = "create"
	// OpTouch refreshes an open record's last_seen marker. When Dirty is
	// set the roster carried corrected fields and the row is rewritten
	// unconditionally; otherwise the writer skips rows whose stored
	// last_seen is recent enough.
	OpTouch OpKind = "touch"
	// OpClose sets release_date on an open record that stopped appearing.
	OpClose OpKind = "close"
)

// Operation is one unit of persistence work for one facility.
type Operation struct {
	Kind       OpKind
	FacilityID string

	// RecordID identifies the stored record for touch/close.
	RecordID string

	// Record carries the normalized roster data for create, and the
	// corrected field values for a dirty touch.
	Record *RosterRecord

	// Dirty marks a touch whose roster data differs from the stored row
	// (demographic correction, charge update, cell move).
	Dirty bool

	// ReleaseDate is the inferred release date for close (the scrape run
	// date, never a source value).
	ReleaseDate string
}
