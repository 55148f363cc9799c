package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"rosterwatch/internal/models"
)

// rosterDocument is the JSON roster shape served by sources that expose a
// machine-readable feed.
type rosterDocument struct {
	Records []models.RawRecord `json:"records"`
}

// HTTPJSONAdapter fetches a JSON roster document from the facility's
// roster URL.
type HTTPJSONAdapter struct {
	client *resty.Client
	logger *zap.Logger
}

// NewHTTPJSONAdapter creates the adapter with retry and timeout settings
// shared by every facility using it.
func NewHTTPJSONAdapter(timeout time.Duration, userAgent string, retries int, logger *zap.Logger) *HTTPJSONAdapter {
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(retries).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(10 * time.Second).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept", "application/json")

	return &HTTPJSONAdapter{
		client: client,
		logger: logger,
	}
}

// Fetch downloads and parses the roster. Any failure returns an incomplete
// snapshot so the reconciler cannot mistake it for an empty jail.
func (a *HTTPJSONAdapter) Fetch(ctx context.Context, facility *models.Facility) (models.RosterSnapshot, error) {
	if facility.RosterURL == "" {
		return models.RosterSnapshot{}, fmt.Errorf("facility %s has no roster URL", facility.FacilityID)
	}

	resp, err := a.client.R().SetContext(ctx).Get(facility.RosterURL)
	if err != nil {
		return models.RosterSnapshot{}, fmt.Errorf("failed to fetch roster: %w", err)
	}
	if resp.StatusCode() != 200 {
		return models.RosterSnapshot{}, fmt.Errorf("roster fetch returned status %d", resp.StatusCode())
	}

	var doc rosterDocument
	if err := json.Unmarshal(resp.Body(), &doc); err != nil {
		// Some sources serve a bare array instead of a wrapped document.
		if arrErr := json.Unmarshal(resp.Body(), &doc.Records); arrErr != nil {
			return models.RosterSnapshot{}, fmt.Errorf("failed to parse roster document: %w", err)
		}
	}

	a.logger.Debug("Fetched roster",
		zap.String("facility_id", facility.FacilityID),
		zap.Int("records", len(doc.Records)),
	)

	return models.RosterSnapshot{Records: doc.Records, Complete: true}, nil
}
