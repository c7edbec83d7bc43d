// ABOUTME: Tests for the health summary aggregator.
// ABOUTME: Pins short-circuiting, item caps, failure recording, and the entry guard.

package summary

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/logwarden/logwarden/internal/types"
	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

type mockAbnormalities struct {
	items []types.Abnormality
	err   error
}

func (m *mockAbnormalities) RecentUnresolved(ctx context.Context, window time.Duration) ([]types.Abnormality, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.items, nil
}

type historyRow struct {
	text    string
	errText string
	status  string
}

type mockHistory struct {
	mu   sync.Mutex
	rows []historyRow
	err  error
}

func (m *mockHistory) AppendSummary(ctx context.Context, summaryText, errorText, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.rows = append(m.rows, historyRow{text: summaryText, errText: errorText, status: status})
	return nil
}

func (m *mockHistory) last(t *testing.T) historyRow {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.rows) == 0 {
		t.Fatal("Expected a summary history row")
	}
	return m.rows[len(m.rows)-1]
}

type mockSettings struct {
	values map[string]string
	err    error
}

func testSettings() *mockSettings {
	return &mockSettings{values: map[string]string{
		"ollama_api_url":         "http://classifier.test",
		"ollama_model":           "test-model",
		"summary_interval_hours": "12",
	}}
}

func (m *mockSettings) GetSettings(ctx context.Context) (map[string]string, error) {
	if m.err != nil {
		return nil, m.err
	}
	values := make(map[string]string, len(m.values))
	for k, v := range m.values {
		values[k] = v
	}
	return values, nil
}

type mockSummarizer struct {
	mu         sync.Mutex
	text       string
	err        error
	calls      int
	lastPrompt string
	block      chan struct{}
}

func (m *mockSummarizer) Summarize(ctx context.Context, endpoint, model, prompt string) (string, error) {
	m.mu.Lock()
	m.calls++
	m.lastPrompt = prompt
	block := m.block
	m.mu.Unlock()

	if block != nil {
		<-block
	}
	if m.err != nil {
		return "", m.err
	}
	return m.text, nil
}

func (m *mockSummarizer) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func abnormality(name, analysis string, lastSeen time.Time) types.Abnormality {
	return types.Abnormality{
		ContainerName: name,
		AnalysisText:  analysis,
		Status:        types.StatusUnresolved,
		LastSeen:      lastSeen,
	}
}

func triggerAndWait(t *testing.T, a *Aggregator) {
	t.Helper()
	if err := a.Trigger(); err != nil {
		t.Fatalf("Trigger failed: %v", err)
	}
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if !a.Running() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("Timed out waiting for summary generation")
}

func TestSummaryWithIssues(t *testing.T) {
	seen := time.Date(2025, 6, 1, 14, 30, 0, 0, time.UTC)
	source := &mockAbnormalities{items: []types.Abnormality{
		abnormality("api-backend", "Database connection refused.", seen),
		abnormality("nginx-proxy", "Upstream timeouts.", seen.Add(-time.Hour)),
	}}
	history := &mockHistory{}
	summarizer := &mockSummarizer{text: "Two containers are degraded."}
	a := NewAggregator(source, history, testSettings(), summarizer, testLogger())

	triggerAndWait(t, a)

	row := history.last(t)
	if row.status != "success" {
		t.Errorf("Expected success row, got %s", row.status)
	}
	if row.text != "Two containers are degraded." {
		t.Errorf("Unexpected summary text: %q", row.text)
	}

	summarizer.mu.Lock()
	prompt := summarizer.lastPrompt
	summarizer.mu.Unlock()
	if !strings.Contains(prompt, "- Container: api-backend, Status: unresolved, Last Seen: 2025-06-01 14:30, Desc: Database connection refused.") {
		t.Errorf("Prompt missing expected issue line:\n%s", prompt)
	}
	if !strings.Contains(prompt, "- Container: nginx-proxy") {
		t.Error("Prompt missing second issue line")
	}
}

func TestEmptySetShortCircuits(t *testing.T) {
	history := &mockHistory{}
	summarizer := &mockSummarizer{}
	a := NewAggregator(&mockAbnormalities{}, history, testSettings(), summarizer, testLogger())

	triggerAndWait(t, a)

	row := history.last(t)
	if row.status != "skipped" {
		t.Errorf("Expected skipped row, got %s", row.status)
	}
	if row.text != stableMessage {
		t.Errorf("Expected the canned stable message, got %q", row.text)
	}
	if summarizer.callCount() != 0 {
		t.Error("Classifier must not be called for an empty issue set")
	}
}

func TestItemCountIsCapped(t *testing.T) {
	var items []types.Abnormality
	for i := 0; i < maxSummaryItems+10; i++ {
		items = append(items, abnormality(fmt.Sprintf("c%d", i), "issue", time.Now()))
	}
	history := &mockHistory{}
	summarizer := &mockSummarizer{text: "ok"}
	a := NewAggregator(&mockAbnormalities{items: items}, history, testSettings(), summarizer, testLogger())

	triggerAndWait(t, a)

	summarizer.mu.Lock()
	prompt := summarizer.lastPrompt
	summarizer.mu.Unlock()
	if got := strings.Count(prompt, "- Container:"); got != maxSummaryItems {
		t.Errorf("Expected %d issue lines, got %d", maxSummaryItems, got)
	}
}

func TestLongAnalysisIsTruncated(t *testing.T) {
	long := strings.Repeat("x", maxAnalysisChars+50)
	history := &mockHistory{}
	summarizer := &mockSummarizer{text: "ok"}
	a := NewAggregator(&mockAbnormalities{items: []types.Abnormality{
		abnormality("app", long, time.Now()),
	}}, history, testSettings(), summarizer, testLogger())

	triggerAndWait(t, a)

	summarizer.mu.Lock()
	prompt := summarizer.lastPrompt
	summarizer.mu.Unlock()
	expected := strings.Repeat("x", maxAnalysisChars) + "..."
	if !strings.Contains(prompt, expected) {
		t.Error("Expected truncated analysis with ellipsis in the prompt")
	}
	if strings.Contains(prompt, long) {
		t.Error("Full analysis text must not leak into the prompt")
	}
}

func TestSummarizeErrorIsRecorded(t *testing.T) {
	history := &mockHistory{}
	summarizer := &mockSummarizer{err: errors.New("model not loaded")}
	a := NewAggregator(&mockAbnormalities{items: []types.Abnormality{
		abnormality("app", "issue", time.Now()),
	}}, history, testSettings(), summarizer, testLogger())

	triggerAndWait(t, a)

	row := history.last(t)
	if row.status != "error" {
		t.Errorf("Expected error row, got %s", row.status)
	}
	if !strings.Contains(row.errText, "model not loaded") {
		t.Errorf("Expected error text recorded, got %q", row.errText)
	}
	if row.text != "" {
		t.Error("Failed summaries must not record summary text")
	}
}

func TestFetchFailureIsRecorded(t *testing.T) {
	history := &mockHistory{}
	a := NewAggregator(&mockAbnormalities{err: errors.New("database locked")}, history, testSettings(), &mockSummarizer{}, testLogger())

	triggerAndWait(t, a)

	row := history.last(t)
	if row.status != "error" {
		t.Errorf("Expected error row, got %s", row.status)
	}
	if !strings.Contains(row.errText, "database locked") {
		t.Errorf("Expected fetch error recorded, got %q", row.errText)
	}
}

func TestUnconfiguredEndpointIsRecorded(t *testing.T) {
	settings := testSettings()
	settings.values["ollama_api_url"] = ""
	history := &mockHistory{}
	summarizer := &mockSummarizer{}
	a := NewAggregator(&mockAbnormalities{items: []types.Abnormality{
		abnormality("app", "issue", time.Now()),
	}}, history, settings, summarizer, testLogger())

	triggerAndWait(t, a)

	row := history.last(t)
	if row.status != "error" {
		t.Errorf("Expected error row, got %s", row.status)
	}
	if summarizer.callCount() != 0 {
		t.Error("Classifier must not be called without an endpoint")
	}
}

func TestEntryGuard(t *testing.T) {
	block := make(chan struct{})
	summarizer := &mockSummarizer{text: "ok", block: block}
	history := &mockHistory{}
	a := NewAggregator(&mockAbnormalities{items: []types.Abnormality{
		abnormality("app", "issue", time.Now()),
	}}, history, testSettings(), summarizer, testLogger())

	if err := a.Trigger(); err != nil {
		t.Fatalf("First trigger failed: %v", err)
	}

	// Wait for the generation goroutine to reach the blocked classifier.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && summarizer.callCount() == 0 {
		time.Sleep(2 * time.Millisecond)
	}

	if err := a.Trigger(); !errors.Is(err, ErrSummaryActive) {
		t.Errorf("Second trigger should return ErrSummaryActive, got %v", err)
	}

	close(block)
	deadline = time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) && a.Running() {
		time.Sleep(2 * time.Millisecond)
	}
	if a.Running() {
		t.Fatal("Summary generation did not finish")
	}
	if summarizer.callCount() != 1 {
		t.Errorf("Expected exactly one generation, got %d", summarizer.callCount())
	}
}

func TestSchedulerStopsOnContextCancel(t *testing.T) {
	a := NewAggregator(&mockAbnormalities{}, &mockHistory{}, testSettings(), &mockSummarizer{}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		a.Start(ctx, time.Hour)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Scheduler did not stop on context cancellation")
	}
}

func TestRenderIssueList(t *testing.T) {
	seen := time.Date(2025, 3, 10, 8, 5, 0, 0, time.UTC)
	got := renderIssueList([]types.Abnormality{
		{ContainerName: "db", Status: types.StatusUnresolved, AnalysisText: "short", LastSeen: seen},
	})
	expected := "- Container: db, Status: unresolved, Last Seen: 2025-03-10 08:05, Desc: short\n"
	if got != expected {
		t.Errorf("renderIssueList:\n got %q\nwant %q", got, expected)
	}
}
