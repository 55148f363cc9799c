package httpapi

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"rosterwatch/internal/repository"
)

// RosterHandler serves the public roster view: open records per facility,
// with hidden and juvenile records filtered out by the repository.
type RosterHandler struct {
	custody    *repository.CustodyRepository
	facilities *repository.FacilityRepository
	logger     *zap.Logger
}

// NewRosterHandler creates the handler.
func NewRosterHandler(custody *repository.CustodyRepository, facilities *repository.FacilityRepository, logger *zap.Logger) *RosterHandler {
	return &RosterHandler{custody: custody, facilities: facilities, logger: logger}
}

// ServeHTTP routes /api/v1/facilities and
// /api/v1/facilities/{id}/roster.
func (h *RosterHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if r.URL.Path == "/api/v1/facilities" {
		h.ListFacilities(w, r)
		return
	}

	rest, ok := strings.CutPrefix(r.URL.Path, "/api/v1/facilities/")
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[1] != "roster" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	h.GetRoster(w, r, parts[0])
}

// ListFacilities returns the enabled facilities.
func (h *RosterHandler) ListFacilities(w http.ResponseWriter, r *http.Request) {
	facilities, err := h.facilities.ListEnabled(r.Context())
	if err != nil {
		h.logger.Error("Failed to list facilities", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list facilities")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"facilities": facilities})
}

// GetRoster returns one facility's public roster.
func (h *RosterHandler) GetRoster(w http.ResponseWriter, r *http.Request, facilityID string) {
	if _, err := h.facilities.Get(r.Context(), facilityID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "facility not found")
			return
		}
		h.logger.Error("Failed to get facility", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to get facility")
		return
	}

	records, err := h.custody.ListPublicRoster(r.Context(), facilityID)
	if err != nil {
		h.logger.Error("Failed to load roster", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load roster")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"records": records})
}
