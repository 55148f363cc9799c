package models

import "time"

// CustodyRecord is one incarceration episode for one person at one facility.
//
// All date fields are ISO dates ("2006-01-02") with "" meaning absent.
// An empty ReleaseDate means the record is open (person still in custody);
// release is inferred from roster absence, the source never reports it.
type CustodyRecord struct {
	RecordID   string `json:"record_id"`
	FacilityID string `json:"facility_id"`

	// Name keeps the source casing for display; NormalizedName is the
	// upper-cased, whitespace-collapsed form used for identity matching.
	Name           string `json:"name"`
	NormalizedName string `json:"normalized_name"`

	DateOfBirth string `json:"date_of_birth"`
	Sex         string `json:"sex"`
	Race        string `json:"race"`
	ArrestDate  string `json:"arrest_date"`
	ReleaseDate string `json:"release_date"`

	CellBlock     string `json:"cell_block"`
	HoldingAgency string `json:"holding_agency"`
	Charges       string `json:"charges"`
	Mugshot       string `json:"mugshot,omitempty"`

	// LastSeen is the most recent scrape that confirmed this record open.
	LastSeen   time.Time `json:"last_seen"`
	IsJuvenile bool      `json:"is_juvenile"`
	Hidden     bool      `json:"hidden"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsOpen reports whether the person is still in custody.
func (r *CustodyRecord) IsOpen() bool {
	return r.ReleaseDate == ""
}

// IdentityKey is the durable identity of an episode. Two roster snapshots
// describing the same incarceration must agree on all five fields.
type IdentityKey struct {
	NormalizedName string
	DateOfBirth    string
	Sex            string
	Race           string
	ArrestDate     string
}

// Identity returns the record's 5-tuple identity key.
func (r *CustodyRecord) Identity() IdentityKey {
	return IdentityKey{
		NormalizedName: r.NormalizedName,
		DateOfBirth:    r.DateOfBirth,
		Sex:            r.Sex,
		Race:           r.Race,
		ArrestDate:     r.ArrestDate,
	}
}
