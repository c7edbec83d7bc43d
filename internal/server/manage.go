// ABOUTME: HTTP handler for dispositioning abnormality records.
// ABOUTME: Updates the stored lifecycle status and syncs the published dashboard entry.

package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/logwarden/logwarden/internal/types"

	"github.com/sirupsen/logrus"
)

type AbnormalityManager interface {
	GetAbnormality(ctx context.Context, id int64) (types.Abnormality, bool, error)
	SetStatus(ctx context.Context, id int64, status types.AbnormalityStatus, notes string) error
}

type ContainerDispositioner interface {
	SetContainerDisposition(containerID string, abnormalityID *int64, health types.Health)
}

type ManageHandler struct {
	store  AbnormalityManager
	scans  ContainerDispositioner
	logger *logrus.Logger
}

type manageRequest struct {
	Status string `json:"status"`
	Notes  string `json:"notes"`
}

type ManageResponse struct {
	Message string `json:"message"`
	ID      int64  `json:"id"`
	Status  string `json:"status"`
}

func NewManageHandler(store AbnormalityManager, scans ContainerDispositioner, logger *logrus.Logger) *ManageHandler {
	return &ManageHandler{
		store:  store,
		scans:  scans,
		logger: logger,
	}
}

func (h *ManageHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid abnormality id.")
		return
	}

	var req manageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body.")
		return
	}
	if !types.ValidAbnormalityStatus(req.Status) {
		writeError(w, http.StatusBadRequest, "Invalid status. Allowed: unresolved, resolved, ignored")
		return
	}
	newStatus := types.AbnormalityStatus(req.Status)

	abnormality, found, err := h.store.GetAbnormality(r.Context(), id)
	if err != nil {
		h.logger.WithError(err).WithField("id", id).Error("Failed to load abnormality")
		writeError(w, http.StatusInternalServerError, "Failed to load the abnormality record.")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "Abnormality not found.")
		return
	}

	if err := h.store.SetStatus(r.Context(), id, newStatus, req.Notes); err != nil {
		h.logger.WithError(err).WithField("id", id).Error("Failed to update abnormality status")
		writeError(w, http.StatusInternalServerError, "Database update failed.")
		return
	}

	// Sync the published dashboard entry with the operator's decision.
	switch newStatus {
	case types.StatusResolved, types.StatusIgnored:
		h.scans.SetContainerDisposition(abnormality.ContainerID, nil, types.HealthAwaitingRescan)
	case types.StatusUnresolved:
		h.scans.SetContainerDisposition(abnormality.ContainerID, &id, types.HealthUnhealthy)
	}

	h.logger.WithFields(logrus.Fields{
		"id":           id,
		"container_id": abnormality.ContainerID,
		"status":       newStatus,
	}).Info("Abnormality status updated")

	writeJSON(w, r, h.logger, http.StatusOK, ManageResponse{
		Message: "Status updated.",
		ID:      id,
		Status:  req.Status,
	})
}

// CreateManageHandler creates a standard HTTP handler
func CreateManageHandler(store AbnormalityManager, scans ContainerDispositioner, logger *logrus.Logger) http.HandlerFunc {
	handler := NewManageHandler(store, scans, logger)
	return handler.ServeHTTP
}
