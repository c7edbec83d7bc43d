// ABOUTME: API key authentication middleware for the JSON API.
// ABOUTME: Accepts the key via Authorization Bearer, X-Api-Key, or query param.

package server

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/logwarden/logwarden/internal/store"

	"github.com/sirupsen/logrus"
)

type SettingReader interface {
	GetSetting(ctx context.Context, key string) (string, error)
}

// RequireAPIKey wraps next with the API key check. Requests are rejected with
// 403 when no key is configured and 401 when the provided key is missing or
// wrong. The comparison is constant time.
func RequireAPIKey(settings SettingReader, logger *logrus.Logger, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		configured, err := settings.GetSetting(r.Context(), store.SettingAPIKey)
		if err != nil {
			logger.WithError(err).Error("Failed to read API key setting")
			writeError(w, http.StatusInternalServerError, "Internal server error accessing configuration.")
			return
		}

		if configured == "" {
			logger.WithField("path", r.URL.Path).Warn("API access denied: key not configured")
			writeError(w, http.StatusForbidden, "API access requires configuration.")
			return
		}

		provided := extractAPIKey(r)
		if provided == "" {
			writeError(w, http.StatusUnauthorized, "API key required.")
			return
		}

		if subtle.ConstantTimeCompare([]byte(provided), []byte(configured)) != 1 {
			logger.WithField("path", r.URL.Path).Warn("Invalid API key provided")
			writeError(w, http.StatusUnauthorized, "Invalid API key.")
			return
		}

		next(w, r)
	}
}

func extractAPIKey(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	if key := r.Header.Get("X-Api-Key"); key != "" {
		return key
	}
	return r.URL.Query().Get("api_key")
}
