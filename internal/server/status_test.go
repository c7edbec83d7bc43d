// ABOUTME: Tests for the status endpoint handler.
// ABOUTME: Verifies the scan state, container count, and latest summary payload.

package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/logwarden/logwarden/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusHandler_ReportsScanAndSummary(t *testing.T) {
	publishedAt := time.Date(2025, 6, 1, 14, 31, 0, 0, time.UTC)
	lastCompleted := publishedAt

	orch := &mockOrchestrator{
		statuses: map[string]types.ContainerStatus{
			"c1": {ContainerID: "c1", Name: "web-frontend", Health: types.HealthHealthy},
			"c2": {ContainerID: "c2", Name: "api-backend", Health: types.HealthUnhealthy},
		},
		publishedAt: publishedAt,
		run: types.ScanRunState{
			Running:           false,
			LastOutcome:       "completed",
			LastCompleted:     &lastCompleted,
			ContainersTracked: 2,
		},
	}
	summaries := &mockSummarySource{
		record: types.SummaryRecord{
			ID:          3,
			CreatedAt:   publishedAt,
			SummaryText: "Overall system health is degraded.",
			Status:      "success",
		},
		ok: true,
	}

	handler := CreateStatusHandler(orch, summaries, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	w := httptest.NewRecorder()
	handler(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var response StatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))

	assert.Equal(t, "completed", response.Scan.LastOutcome)
	assert.Equal(t, 2, response.Containers)
	assert.Equal(t, "2025-06-01T14:31:00Z", response.PublishedAt)
	require.NotNil(t, response.Summary)
	assert.Equal(t, "Overall system health is degraded.", response.Summary.SummaryText)
	assert.Equal(t, "success", response.Summary.Status)
}

func TestStatusHandler_NoSummaryYet(t *testing.T) {
	handler := CreateStatusHandler(&mockOrchestrator{}, &mockSummarySource{}, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	w := httptest.NewRecorder()
	handler(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var response StatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))

	assert.Nil(t, response.Summary)
	assert.Empty(t, response.PublishedAt)
	assert.Zero(t, response.Containers)
}

func TestStatusHandler_SummaryErrorIsNonFatal(t *testing.T) {
	summaries := &mockSummarySource{err: errors.New("database is locked")}
	handler := CreateStatusHandler(&mockOrchestrator{}, summaries, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	w := httptest.NewRecorder()
	handler(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var response StatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Nil(t, response.Summary)
}
