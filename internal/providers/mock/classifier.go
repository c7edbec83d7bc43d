// ABOUTME: Mock log classifier for local testing and development.
// ABOUTME: Produces deterministic verdicts keyed off the log content itself.

package mock

import (
	"context"
	"strings"

	"github.com/logwarden/logwarden/internal/classify"
	"github.com/sirupsen/logrus"
)

// Classifier implements LogClassifier with deterministic canned verdicts
type Classifier struct {
	logger *logrus.Logger
}

// NewClassifier creates a new mock classifier
func NewClassifier(logger *logrus.Logger) *Classifier {
	return &Classifier{
		logger: logger,
	}
}

// Name returns the classifier name
func (m *Classifier) Name() string {
	return "mock"
}

// Classify mimics the real classifier boundary: it builds a raw response
// string from the log content and parses it the same way real verdicts are
// parsed. Error lines produce a finding that names the offending line;
// timeout lines produce a finding without one, exercising snippet fallback.
func (m *Classifier) Classify(ctx context.Context, endpoint, model, promptTemplate, logs string) (classify.Result, error) {
	raw := m.verdict(logs)

	m.logger.WithFields(logrus.Fields{
		"operation": "mock_classify",
		"verdict":   raw[:min(len(raw), 40)],
	}).Debug("Mock classification completed")

	return classify.ParseResponse(raw), nil
}

func (m *Classifier) verdict(logs string) string {
	trimmed := strings.TrimSpace(logs)
	if trimmed == "" {
		return "NORMAL"
	}

	if line := newestLineContaining(trimmed, "error:", "panic", "fatal"); line != "" {
		return "Critical errors found in the container logs. Relevant Log(s): " + line
	}
	if newestLineContaining(trimmed, "timed out", "timeout") != "" {
		return "Upstream dependencies are timing out under load."
	}
	return "NORMAL"
}

// newestLineContaining returns the last log line containing any of the
// markers, case-insensitively.
func newestLineContaining(logs string, markers ...string) string {
	lines := strings.Split(logs, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		lower := strings.ToLower(line)
		for _, marker := range markers {
			if strings.Contains(lower, marker) {
				return line
			}
		}
	}
	return ""
}

// Summarize returns a canned health summary
func (m *Classifier) Summarize(ctx context.Context, endpoint, model, prompt string) (string, error) {
	issueLines := strings.Count(prompt, "- Container:")

	m.logger.WithField("issue_lines", issueLines).Debug("Mock summary generated")

	if issueLines == 0 {
		return "All monitored containers look healthy.", nil
	}
	return "Overall system health is degraded: recurring container issues dominate the recent list.", nil
}

// ListModels returns the canned model list
func (m *Classifier) ListModels(ctx context.Context, endpoint string) ([]string, error) {
	return []string{"mock-large", "mock-small"}, nil
}
