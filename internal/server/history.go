// ABOUTME: HTTP handler for the summary generation history endpoint.
// ABOUTME: Serves recent summary records, newest first.

package server

import (
	"context"
	"net/http"
	"strconv"

	"github.com/logwarden/logwarden/internal/types"

	"github.com/sirupsen/logrus"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

type SummaryHistorySource interface {
	RecentSummaries(ctx context.Context, limit int) ([]types.SummaryRecord, error)
}

type HistoryHandler struct {
	store  SummaryHistorySource
	logger *logrus.Logger
}

type HistoryResponse struct {
	Summaries []types.SummaryRecord `json:"summaries"`
	Count     int                   `json:"count"`
}

func NewHistoryHandler(store SummaryHistorySource, logger *logrus.Logger) *HistoryHandler {
	return &HistoryHandler{
		store:  store,
		logger: logger,
	}
}

func (h *HistoryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if limitParam := r.URL.Query().Get("limit"); limitParam != "" {
		if parsed, err := strconv.Atoi(limitParam); err == nil && parsed > 0 && parsed <= maxHistoryLimit {
			limit = parsed
		}
	}

	summaries, err := h.store.RecentSummaries(r.Context(), limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load summary history")
		writeError(w, http.StatusInternalServerError, "Failed to retrieve summary history.")
		return
	}
	if summaries == nil {
		summaries = []types.SummaryRecord{}
	}

	writeJSON(w, r, h.logger, http.StatusOK, HistoryResponse{
		Summaries: summaries,
		Count:     len(summaries),
	})
}

// CreateHistoryHandler creates a standard HTTP handler
func CreateHistoryHandler(store SummaryHistorySource, logger *logrus.Logger) http.HandlerFunc {
	handler := NewHistoryHandler(store, logger)
	return handler.ServeHTTP
}
