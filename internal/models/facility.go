package models

// Facility is one jail roster data source. Reference data: the reconciler
// never mutates it.
type Facility struct {
	FacilityID   string `json:"facility_id"`
	FacilityName string `json:"facility_name"`
	Region       string `json:"region"`
	Enabled      bool   `json:"enabled"`
	// Adapter names the scraper implementation for this source
	// ("http-json", "static", ...).
	Adapter   string `json:"adapter"`
	RosterURL string `json:"roster_url"`
}
