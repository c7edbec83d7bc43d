// ABOUTME: Shared HTTP plumbing for the JSON API.
// ABOUTME: Provides response helpers and the security-header middleware.

package server

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"
)

type errorResponse struct {
	Error string `json:"error"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// writeJSON encodes v as the response body. Pretty print if requested.
func writeJSON(w http.ResponseWriter, r *http.Request, logger *logrus.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	encoder := json.NewEncoder(w)
	if r.URL.Query().Get("pretty") != "" {
		encoder.SetIndent("", "  ")
	}
	if err := encoder.Encode(v); err != nil {
		logger.WithError(err).Error("Failed to encode JSON response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{Error: message})
}

// SecurityMiddleware sets security headers, enforces the allowed methods for
// the route, and logs the request. With no methods given only GET and HEAD
// pass.
func SecurityMiddleware(logger *logrus.Logger, next http.HandlerFunc, allowedMethods ...string) http.HandlerFunc {
	if len(allowedMethods) == 0 {
		allowedMethods = []string{http.MethodGet, http.MethodHead}
	}

	return func(w http.ResponseWriter, r *http.Request) {
		// Security headers
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; script-src 'none'; object-src 'none'; frame-ancestors 'none'")

		allowed := false
		for _, method := range allowedMethods {
			if r.Method == method {
				allowed = true
				break
			}
		}
		if !allowed {
			writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}

		// Log the request
		logger.WithFields(logrus.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"remote_ip":  r.RemoteAddr,
			"user_agent": r.UserAgent(),
		}).Debug("HTTP request received")

		next(w, r)
	}
}
