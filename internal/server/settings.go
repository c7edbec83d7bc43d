// ABOUTME: HTTP handlers for reading and updating runtime settings.
// ABOUTME: Validates each key before persisting and masks the API key on reads.

package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/logwarden/logwarden/internal/store"

	"github.com/sirupsen/logrus"
)

const maskedAPIKey = "********"

const (
	minScanIntervalMinutes = 1
	maxScanIntervalMinutes = 10080
	minSummaryIntervalHrs  = 1
	maxSummaryIntervalHrs  = 168
	minLogLines            = 10
	maxLogLines            = 5000
)

type SettingsStore interface {
	GetSettings(ctx context.Context) (map[string]string, error)
	SetSetting(ctx context.Context, key, value string) error
}

type SettingsHandler struct {
	store  SettingsStore
	logger *logrus.Logger
}

type SettingsResponse struct {
	Settings map[string]string `json:"settings"`
}

type SettingsUpdateResponse struct {
	Message string `json:"message"`
	Updated int    `json:"updated"`
}

func NewSettingsHandler(store SettingsStore, logger *logrus.Logger) *SettingsHandler {
	return &SettingsHandler{
		store:  store,
		logger: logger,
	}
}

func (h *SettingsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.get(w, r)
	case http.MethodPut:
		h.put(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (h *SettingsHandler) get(w http.ResponseWriter, r *http.Request) {
	settings, err := h.store.GetSettings(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to load settings")
		writeError(w, http.StatusInternalServerError, "Failed to load settings.")
		return
	}

	if settings[store.SettingAPIKey] != "" {
		settings[store.SettingAPIKey] = maskedAPIKey
	}

	writeJSON(w, r, h.logger, http.StatusOK, SettingsResponse{Settings: settings})
}

func (h *SettingsHandler) put(w http.ResponseWriter, r *http.Request) {
	var updates map[string]string
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body.")
		return
	}
	if len(updates) == 0 {
		writeError(w, http.StatusBadRequest, "No settings provided.")
		return
	}

	// Validate everything before writing anything.
	validated := make(map[string]string, len(updates))
	for key, value := range updates {
		normalized, err := validateSetting(key, value)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if key == store.SettingAPIKey && value == maskedAPIKey {
			// A masked key echoed back from a GET is not a change.
			continue
		}
		validated[key] = normalized
	}

	updated := 0
	for key, value := range validated {
		if err := h.store.SetSetting(r.Context(), key, value); err != nil {
			h.logger.WithError(err).WithField("key", key).Error("Failed to save setting")
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to save setting %q.", key))
			return
		}
		updated++
	}

	h.logger.WithField("updated", updated).Info("Settings updated via API")
	writeJSON(w, r, h.logger, http.StatusOK, SettingsUpdateResponse{
		Message: "Settings saved.",
		Updated: updated,
	})
}

// validateSetting checks one key/value pair and returns the value to persist.
func validateSetting(key, value string) (string, error) {
	value = strings.TrimSpace(value)

	switch key {
	case store.SettingScanIntervalMinutes:
		return validateIntRange(key, value, minScanIntervalMinutes, maxScanIntervalMinutes)
	case store.SettingSummaryIntervalHours:
		return validateIntRange(key, value, minSummaryIntervalHrs, maxSummaryIntervalHrs)
	case store.SettingLogLinesToFetch:
		return validateIntRange(key, value, minLogLines, maxLogLines)
	case store.SettingIgnoredContainers:
		var names []string
		if err := json.Unmarshal([]byte(value), &names); err != nil {
			return "", fmt.Errorf("%q must be a JSON array of container names", key)
		}
		return value, nil
	case store.SettingOllamaURL:
		if !strings.HasPrefix(value, "http://") && !strings.HasPrefix(value, "https://") {
			return "", fmt.Errorf("%q must start with http:// or https://", key)
		}
		return strings.TrimRight(value, "/"), nil
	case store.SettingOllamaModel:
		if value == "" {
			return "", fmt.Errorf("%q cannot be empty", key)
		}
		return value, nil
	case store.SettingAnalysisPrompt:
		if value == "" {
			return "", fmt.Errorf("%q cannot be empty", key)
		}
		if !strings.Contains(value, "{logs}") {
			return "", fmt.Errorf("%q must contain the {logs} placeholder", key)
		}
		return value, nil
	case store.SettingAPIKey:
		return value, nil
	default:
		return "", fmt.Errorf("unknown setting %q", key)
	}
}

func validateIntRange(key, value string, min, max int) (string, error) {
	n, err := strconv.Atoi(value)
	if err != nil || n < min || n > max {
		return "", fmt.Errorf("%q must be an integer between %d and %d", key, min, max)
	}
	return strconv.Itoa(n), nil
}

// CreateSettingsHandler creates a standard HTTP handler
func CreateSettingsHandler(store SettingsStore, logger *logrus.Logger) http.HandlerFunc {
	handler := NewSettingsHandler(store, logger)
	return handler.ServeHTTP
}
