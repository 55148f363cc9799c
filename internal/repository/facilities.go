package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"rosterwatch/internal/models"
)

// FacilityRepository reads the facility reference table. Nothing in the
// service writes it; facilities are seeded by migration or by hand.
type FacilityRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewFacilityRepository creates the repository.
func NewFacilityRepository(db *sql.DB, logger *zap.Logger) *FacilityRepository {
	return &FacilityRepository{db: db, logger: logger}
}

const facilityColumns = `facility_id, facility_name, COALESCE(region, ''),
	enabled, adapter, COALESCE(roster_url, '')`

// ListEnabled returns the facilities included in reconciliation cycles.
func (r *FacilityRepository) ListEnabled(ctx context.Context) ([]*models.Facility, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+facilityColumns+` FROM facilities WHERE enabled = TRUE ORDER BY facility_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query facilities: %w", err)
	}
	defer rows.Close()

	var facilities []*models.Facility
	for rows.Next() {
		fac, err := scanFacility(rows)
		if err != nil {
			return nil, err
		}
		facilities = append(facilities, fac)
	}
	return facilities, rows.Err()
}

// Get loads one facility by id.
func (r *FacilityRepository) Get(ctx context.Context, facilityID string) (*models.Facility, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+facilityColumns+` FROM facilities WHERE facility_id = $1`, facilityID)
	if err != nil {
		return nil, fmt.Errorf("failed to query facility: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, sql.ErrNoRows
	}
	return scanFacility(rows)
}

func scanFacility(row rowScanner) (*models.Facility, error) {
	fac := &models.Facility{}
	err := row.Scan(&fac.FacilityID, &fac.FacilityName, &fac.Region,
		&fac.Enabled, &fac.Adapter, &fac.RosterURL)
	if err != nil {
		return nil, fmt.Errorf("failed to scan facility: %w", err)
	}
	return fac, nil
}
