// ABOUTME: Tests for the mock inventory provider and mock classifier.
// ABOUTME: Verifies canned data shape and deterministic verdicts.

package mock

import (
	"context"
	"strings"
	"testing"

	"github.com/logwarden/logwarden/internal/classify"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func TestInventoryName(t *testing.T) {
	assert.Equal(t, "mock", NewInventory(testLogger()).Name())
}

func TestInventoryListRunning(t *testing.T) {
	inventory := NewInventory(testLogger())

	refs, err := inventory.ListRunning(context.Background())
	require.NoError(t, err)
	require.Len(t, refs, 5)

	names := make(map[string]bool)
	for _, ref := range refs {
		assert.NotEmpty(t, ref.ID)
		names[ref.Name] = true
	}
	assert.True(t, names["web-frontend"])
	assert.True(t, names["api-backend"])
	assert.True(t, names["nginx-proxy"])
}

func TestInventoryFetchLogs(t *testing.T) {
	inventory := NewInventory(testLogger())

	logs, err := inventory.FetchLogs(context.Background(), "mock-api-0002", 100)
	require.NoError(t, err)
	assert.Contains(t, logs, "Database connection refused")
}

func TestInventoryFetchLogsTail(t *testing.T) {
	inventory := NewInventory(testLogger())

	logs, err := inventory.FetchLogs(context.Background(), "mock-api-0002", 1)
	require.NoError(t, err)
	assert.Equal(t, "ERROR: Database connection refused: postgres-db:5432", logs)
}

func TestInventoryFetchLogsUnknown(t *testing.T) {
	inventory := NewInventory(testLogger())

	_, err := inventory.FetchLogs(context.Background(), "no-such-container", 100)
	require.Error(t, err)
}

func TestClassifierName(t *testing.T) {
	assert.Equal(t, "mock", NewClassifier(testLogger()).Name())
}

func TestClassifierVerdicts(t *testing.T) {
	classifier := NewClassifier(testLogger())

	tests := []struct {
		name         string
		logs         string
		expectedKind classify.ResultKind
	}{
		{
			name:         "clean logs",
			logs:         "INFO: started\nINFO: listening",
			expectedKind: classify.ResultNormal,
		},
		{
			name:         "empty logs",
			logs:         "",
			expectedKind: classify.ResultNormal,
		},
		{
			name:         "error logs",
			logs:         "INFO: connecting\nERROR: Database connection refused",
			expectedKind: classify.ResultFinding,
		},
		{
			name:         "timeout logs",
			logs:         "upstream timed out while reading response header",
			expectedKind: classify.ResultFinding,
		},
		{
			name:         "warnings stay normal",
			logs:         "WARNING: checkpoints are occurring too frequently",
			expectedKind: classify.ResultNormal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := classifier.Classify(context.Background(), "", "", "{logs}", tt.logs)
			require.NoError(t, err)
			assert.Equal(t, tt.expectedKind, result.Kind)
		})
	}
}

func TestClassifierErrorFindingNamesNewestLine(t *testing.T) {
	classifier := NewClassifier(testLogger())

	logs := "ERROR: first failure\nINFO: retrying\nERROR: second failure"
	result, err := classifier.Classify(context.Background(), "", "", "{logs}", logs)
	require.NoError(t, err)
	require.Equal(t, classify.ResultFinding, result.Kind)
	assert.Contains(t, result.Text, "Relevant Log(s): ERROR: second failure")
}

func TestClassifierTimeoutFindingOmitsMarker(t *testing.T) {
	classifier := NewClassifier(testLogger())

	result, err := classifier.Classify(context.Background(), "", "", "{logs}", "request timeout after 30s")
	require.NoError(t, err)
	require.Equal(t, classify.ResultFinding, result.Kind)
	assert.False(t, strings.Contains(result.Text, "Relevant Log(s):"))
}

func TestClassifierSummarize(t *testing.T) {
	classifier := NewClassifier(testLogger())

	summary, err := classifier.Summarize(context.Background(), "", "", "Recent issues:\n- Container: api-backend, Status: unresolved")
	require.NoError(t, err)
	assert.NotEmpty(t, summary)

	stable, err := classifier.Summarize(context.Background(), "", "", "Recent issues: none")
	require.NoError(t, err)
	assert.Contains(t, stable, "healthy")
}

func TestClassifierListModels(t *testing.T) {
	classifier := NewClassifier(testLogger())

	models, err := classifier.ListModels(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"mock-large", "mock-small"}, models)
}
