// ABOUTME: HTTP handler for listing persisted abnormality records.
// ABOUTME: Supports filtering by lifecycle status and a bounded result limit.

package server

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/logwarden/logwarden/internal/types"

	"github.com/sirupsen/logrus"
)

const (
	defaultIssueLimit = 100
	maxIssueLimit     = 1000
)

type AbnormalityLister interface {
	ListByStatus(ctx context.Context, status string, limit int) ([]types.Abnormality, error)
}

type IssuesHandler struct {
	store  AbnormalityLister
	logger *logrus.Logger
}

type IssuesResponse struct {
	Issues []types.Abnormality `json:"issues"`
	Count  int                 `json:"count"`
}

func NewIssuesHandler(store AbnormalityLister, logger *logrus.Logger) *IssuesHandler {
	return &IssuesHandler{
		store:  store,
		logger: logger,
	}
}

func (h *IssuesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	status := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("status")))
	if status == "" {
		status = string(types.StatusUnresolved)
	}
	if status != "all" && !types.ValidAbnormalityStatus(status) {
		writeError(w, http.StatusBadRequest, "Invalid status filter. Allowed: unresolved, resolved, ignored, all")
		return
	}

	// Out-of-range or unparsable limits fall back to the default.
	limit := defaultIssueLimit
	if limitParam := r.URL.Query().Get("limit"); limitParam != "" {
		if parsed, err := strconv.Atoi(limitParam); err == nil && parsed > 0 && parsed <= maxIssueLimit {
			limit = parsed
		}
	}

	issues, err := h.store.ListByStatus(r.Context(), status, limit)
	if err != nil {
		h.logger.WithError(err).WithField("status", status).Error("Failed to list abnormalities")
		writeError(w, http.StatusInternalServerError, "Failed to retrieve issues from the database.")
		return
	}
	if issues == nil {
		issues = []types.Abnormality{}
	}

	writeJSON(w, r, h.logger, http.StatusOK, IssuesResponse{
		Issues: issues,
		Count:  len(issues),
	})
}

// CreateIssuesHandler creates a standard HTTP handler
func CreateIssuesHandler(store AbnormalityLister, logger *logrus.Logger) http.HandlerFunc {
	handler := NewIssuesHandler(store, logger)
	return handler.ServeHTTP
}
