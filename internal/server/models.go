// ABOUTME: HTTP handler for listing classifier models.
// ABOUTME: Serves the cached model list from the configured classifier endpoint.

package server

import (
	"context"
	"net/http"

	"github.com/sirupsen/logrus"
)

type ModelSource interface {
	AvailableModels(ctx context.Context) ([]string, error)
}

type ModelsHandler struct {
	models ModelSource
	logger *logrus.Logger
}

type ModelsResponse struct {
	Models []string `json:"models"`
}

func NewModelsHandler(models ModelSource, logger *logrus.Logger) *ModelsHandler {
	return &ModelsHandler{
		models: models,
		logger: logger,
	}
}

func (h *ModelsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	models, err := h.models.AvailableModels(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to list classifier models")
		writeError(w, http.StatusBadGateway, "Failed to retrieve models from the classifier.")
		return
	}
	if models == nil {
		models = []string{}
	}

	writeJSON(w, r, h.logger, http.StatusOK, ModelsResponse{Models: models})
}

// CreateModelsHandler creates a standard HTTP handler
func CreateModelsHandler(models ModelSource, logger *logrus.Logger) http.HandlerFunc {
	handler := NewModelsHandler(models, logger)
	return handler.ServeHTTP
}
