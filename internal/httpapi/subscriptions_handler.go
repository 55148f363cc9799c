package httpapi

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"rosterwatch/internal/models"
	"rosterwatch/internal/repository"
)

// SubscriptionHandler exposes subscription management and the provisioning
// endpoint used by the upstream membership system. Thin layer: decode,
// repository call, JSON reply.
type SubscriptionHandler struct {
	subs   *repository.SubscriptionRepository
	logger *zap.Logger
}

// NewSubscriptionHandler creates the handler.
func NewSubscriptionHandler(subs *repository.SubscriptionRepository, logger *zap.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{subs: subs, logger: logger}
}

// ServeHTTP routes requests under /api/v1/subscriptions and
// /api/v1/provision.
func (h *SubscriptionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	if path == "/api/v1/provision" {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.Provision(w, r)
		return
	}

	if path == "/api/v1/subscriptions" {
		switch r.Method {
		case http.MethodGet:
			h.List(w, r)
		case http.MethodPost:
			h.Create(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	rest, ok := strings.CutPrefix(path, "/api/v1/subscriptions/")
	if !ok || rest == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	parts := strings.Split(rest, "/")
	subscriptionID := parts[0]

	switch {
	case len(parts) == 1:
		switch r.Method {
		case http.MethodGet:
			h.Get(w, r, subscriptionID)
		case http.MethodPut:
			h.Update(w, r, subscriptionID)
		case http.MethodDelete:
			h.Delete(w, r, subscriptionID)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case len(parts) == 2 && parts[1] == "links":
		switch r.Method {
		case http.MethodPost:
			h.AddLink(w, r, subscriptionID)
		case http.MethodDelete:
			h.RemoveLink(w, r, subscriptionID)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case len(parts) == 2 && parts[1] == "record-links":
		switch r.Method {
		case http.MethodPost:
			h.SetRecordLink(w, r, subscriptionID)
		case http.MethodDelete:
			h.RemoveRecordLink(w, r, subscriptionID)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// List returns one owner's subscriptions.
func (h *SubscriptionHandler) List(w http.ResponseWriter, r *http.Request) {
	ownerID := r.URL.Query().Get("owner_id")
	if ownerID == "" {
		writeError(w, http.StatusBadRequest, "owner_id is required")
		return
	}

	subs, err := h.subs.ListByOwner(r.Context(), ownerID)
	if err != nil {
		h.logger.Error("Failed to list subscriptions", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list subscriptions")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"subscriptions": subs})
}

// Get returns one subscription.
func (h *SubscriptionHandler) Get(w http.ResponseWriter, r *http.Request, subscriptionID string) {
	sub, err := h.subs.Get(r.Context(), subscriptionID)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "subscription not found")
		return
	}
	if err != nil {
		h.logger.Error("Failed to get subscription", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to get subscription")
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

type subscriptionRequest struct {
	OwnerID        string `json:"owner_id"`
	SubscribedName string `json:"subscribed_name"`
	Channel        string `json:"channel"`
	Address        string `json:"address"`
	Enabled        *bool  `json:"enabled"`
}

// Create adds a subscription.
func (h *SubscriptionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req subscriptionRequest
	if err := readBodyJSON(r, 1<<20, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.OwnerID == "" || req.SubscribedName == "" {
		writeError(w, http.StatusBadRequest, "owner_id and subscribed_name are required")
		return
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}
	sub := &models.Subscription{
		OwnerID:        req.OwnerID,
		SubscribedName: req.SubscribedName,
		Channel:        req.Channel,
		Address:        req.Address,
		Enabled:        enabled,
	}
	if sub.Channel == "" {
		sub.Channel = models.ChannelLog
	}

	if err := h.subs.Create(r.Context(), sub); err != nil {
		h.logger.Error("Failed to create subscription", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to create subscription")
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

// Update edits a subscription.
func (h *SubscriptionHandler) Update(w http.ResponseWriter, r *http.Request, subscriptionID string) {
	sub, err := h.subs.Get(r.Context(), subscriptionID)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "subscription not found")
		return
	}
	if err != nil {
		h.logger.Error("Failed to get subscription", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to get subscription")
		return
	}

	var req subscriptionRequest
	if err := readBodyJSON(r, 1<<20, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.SubscribedName != "" {
		sub.SubscribedName = req.SubscribedName
	}
	if req.Channel != "" {
		sub.Channel = req.Channel
	}
	if req.Address != "" {
		sub.Address = req.Address
	}
	if req.Enabled != nil {
		sub.Enabled = *req.Enabled
	}

	if err := h.subs.Update(r.Context(), sub); err != nil {
		h.logger.Error("Failed to update subscription", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to update subscription")
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

// Delete removes a subscription and its links.
func (h *SubscriptionHandler) Delete(w http.ResponseWriter, r *http.Request, subscriptionID string) {
	if err := h.subs.Delete(r.Context(), subscriptionID); err != nil {
		h.logger.Error("Failed to delete subscription", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to delete subscription")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type linkRequest struct {
	LinkedSubscriptionID string `json:"linked_subscription_id"`
}

// AddLink links two subscriptions as the same person.
func (h *SubscriptionHandler) AddLink(w http.ResponseWriter, r *http.Request, subscriptionID string) {
	var req linkRequest
	if err := readBodyJSON(r, 1<<20, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.LinkedSubscriptionID == "" || req.LinkedSubscriptionID == subscriptionID {
		writeError(w, http.StatusBadRequest, "linked_subscription_id must name another subscription")
		return
	}

	if err := h.subs.AddLink(r.Context(), subscriptionID, req.LinkedSubscriptionID); err != nil {
		h.logger.Error("Failed to add link", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to add link")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RemoveLink unlinks two subscriptions.
func (h *SubscriptionHandler) RemoveLink(w http.ResponseWriter, r *http.Request, subscriptionID string) {
	var req linkRequest
	if err := readBodyJSON(r, 1<<20, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.subs.RemoveLink(r.Context(), subscriptionID, req.LinkedSubscriptionID); err != nil {
		h.logger.Error("Failed to remove link", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to remove link")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type recordLinkRequest struct {
	RecordID string `json:"record_id"`
	Kind     string `json:"kind"`
}

// SetRecordLink sets a manual include/exclude override.
func (h *SubscriptionHandler) SetRecordLink(w http.ResponseWriter, r *http.Request, subscriptionID string) {
	var req recordLinkRequest
	if err := readBodyJSON(r, 1<<20, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.RecordID == "" {
		writeError(w, http.StatusBadRequest, "record_id is required")
		return
	}

	if err := h.subs.SetRecordLink(r.Context(), subscriptionID, req.RecordID, req.Kind); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RemoveRecordLink removes a manual override.
func (h *SubscriptionHandler) RemoveRecordLink(w http.ResponseWriter, r *http.Request, subscriptionID string) {
	var req recordLinkRequest
	if err := readBodyJSON(r, 1<<20, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.subs.RemoveRecordLink(r.Context(), subscriptionID, req.RecordID); err != nil {
		h.logger.Error("Failed to remove record link", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to remove record link")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type provisionRequest struct {
	OwnerID        string `json:"owner_id"`
	SubscribedName string `json:"subscribed_name"`
	Channel        string `json:"channel"`
	Address        string `json:"address"`
}

// Provision is the upsert entry point for the upstream membership system:
// idempotent per (owner, name).
func (h *SubscriptionHandler) Provision(w http.ResponseWriter, r *http.Request) {
	var req provisionRequest
	if err := readBodyJSON(r, 1<<20, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.OwnerID == "" || req.SubscribedName == "" {
		writeError(w, http.StatusBadRequest, "owner_id and subscribed_name are required")
		return
	}
	if req.Channel == "" {
		req.Channel = models.ChannelLog
	}

	sub, err := h.subs.UpsertForOwner(r.Context(), req.OwnerID, req.SubscribedName, req.Channel, req.Address)
	if err != nil {
		h.logger.Error("Failed to provision subscription", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to provision subscription")
		return
	}
	writeJSON(w, http.StatusOK, sub)
}
