package models

// RawRecord is one roster entry as produced by a facility adapter, before
// normalization. Fields are loose strings in whatever shape the source uses.
type RawRecord struct {
	Name          string `json:"name"`
	DateOfBirth   string `json:"date_of_birth"`
	Sex           string `json:"sex"`
	Race          string `json:"race"`
	ArrestDate    string `json:"arrest_date"`
	CellBlock     string `json:"cell_block"`
	HoldingAgency string `json:"holding_agency"`
	Charges       string `json:"charges"`
	Mugshot       string `json:"mugshot"`
	IsJuvenile    bool   `json:"is_juvenile"`
}

// RosterRecord is a normalized roster entry with typed, canonical fields.
type RosterRecord struct {
	Name           string
	NormalizedName string
	DateOfBirth    string // ISO date or ""
	Sex            string
	Race           string
	ArrestDate     string // ISO date or ""
	CellBlock      string
	HoldingAgency  string
	Charges        string
	Mugshot        string
	IsJuvenile     bool
}

// Identity returns the entry's 5-tuple identity key.
func (r *RosterRecord) Identity() IdentityKey {
	return IdentityKey{
		NormalizedName: r.NormalizedName,
		DateOfBirth:    r.DateOfBirth,
		Sex:            r.Sex,
		Race:           r.Race,
		ArrestDate:     r.ArrestDate,
	}
}

// RosterSnapshot is the result of one fetch from one facility adapter.
//
// Complete reports that the fetch succeeded and the record list is the
// genuine roster, even when empty. Without it a zero-record snapshot is
// indistinguishable from a failed fetch and must not trigger release
// inference.
type RosterSnapshot struct {
	Records  []RawRecord
	Complete bool
}
