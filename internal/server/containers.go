// ABOUTME: HTTP handler for the per-container health snapshot endpoint.
// ABOUTME: Serves the published scan results sorted by container name.

package server

import (
	"net/http"
	"sort"
	"time"

	"github.com/logwarden/logwarden/internal/types"

	"github.com/sirupsen/logrus"
)

type ContainersHandler struct {
	scans  ScanStateProvider
	logger *logrus.Logger
}

type ContainersResponse struct {
	Containers  []types.ContainerStatus `json:"containers"`
	Count       int                     `json:"count"`
	PublishedAt string                  `json:"published_at,omitempty"`
}

func NewContainersHandler(scans ScanStateProvider, logger *logrus.Logger) *ContainersHandler {
	return &ContainersHandler{
		scans:  scans,
		logger: logger,
	}
}

func (h *ContainersHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	statuses, publishedAt := h.scans.StatusSnapshot()

	containers := make([]types.ContainerStatus, 0, len(statuses))
	for _, status := range statuses {
		// The abnormality link is only meaningful while the container needs
		// operator attention.
		if status.Health != types.HealthUnhealthy && status.Health != types.HealthAwaitingRescan {
			status.AbnormalityID = nil
		}
		containers = append(containers, status)
	}

	sort.Slice(containers, func(i, j int) bool {
		if containers[i].Name != containers[j].Name {
			return containers[i].Name < containers[j].Name
		}
		return containers[i].ContainerID < containers[j].ContainerID
	})

	response := ContainersResponse{
		Containers: containers,
		Count:      len(containers),
	}
	if !publishedAt.IsZero() {
		response.PublishedAt = publishedAt.UTC().Format(time.RFC3339)
	}

	writeJSON(w, r, h.logger, http.StatusOK, response)
}

// CreateContainersHandler creates a standard HTTP handler
func CreateContainersHandler(scans ScanStateProvider, logger *logrus.Logger) http.HandlerFunc {
	handler := NewContainersHandler(scans, logger)
	return handler.ServeHTTP
}
