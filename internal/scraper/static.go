package scraper

import (
	"context"

	"rosterwatch/internal/models"
)

// StaticAdapter serves a fixed snapshot. Used for local development and in
// tests that drive full cycles without a network.
type StaticAdapter struct {
	Snapshot models.RosterSnapshot
	Err      error
}

// Fetch returns the configured snapshot or error.
func (a *StaticAdapter) Fetch(ctx context.Context, facility *models.Facility) (models.RosterSnapshot, error) {
	if a.Err != nil {
		return models.RosterSnapshot{}, a.Err
	}
	return a.Snapshot, nil
}
