// ABOUTME: HTTP handler for the combined scan and summary status endpoint.
// ABOUTME: Reports the scheduler run state and the most recent summary record.

package server

import (
	"context"
	"net/http"
	"time"

	"github.com/logwarden/logwarden/internal/types"

	"github.com/sirupsen/logrus"
)

type ScanStateProvider interface {
	RunState() types.ScanRunState
	StatusSnapshot() (map[string]types.ContainerStatus, time.Time)
}

type LatestSummarySource interface {
	LatestSummary(ctx context.Context) (types.SummaryRecord, bool, error)
}

type StatusHandler struct {
	scans     ScanStateProvider
	summaries LatestSummarySource
	logger    *logrus.Logger
}

type StatusResponse struct {
	Scan        types.ScanRunState   `json:"scan"`
	Containers  int                  `json:"containers"`
	PublishedAt string               `json:"published_at,omitempty"`
	Summary     *types.SummaryRecord `json:"summary,omitempty"`
}

func NewStatusHandler(scans ScanStateProvider, summaries LatestSummarySource, logger *logrus.Logger) *StatusHandler {
	return &StatusHandler{
		scans:     scans,
		summaries: summaries,
		logger:    logger,
	}
}

func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	statuses, publishedAt := h.scans.StatusSnapshot()

	response := StatusResponse{
		Scan:       h.scans.RunState(),
		Containers: len(statuses),
	}
	if !publishedAt.IsZero() {
		response.PublishedAt = publishedAt.UTC().Format(time.RFC3339)
	}

	latest, ok, err := h.summaries.LatestSummary(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to load latest summary for status")
	} else if ok {
		response.Summary = &latest
	}

	writeJSON(w, r, h.logger, http.StatusOK, response)
}

// CreateStatusHandler creates a standard HTTP handler
func CreateStatusHandler(scans ScanStateProvider, summaries LatestSummarySource, logger *logrus.Logger) http.HandlerFunc {
	handler := NewStatusHandler(scans, summaries, logger)
	return handler.ServeHTTP
}
