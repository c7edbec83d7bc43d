// ABOUTME: Health summary aggregator that condenses recent abnormalities into prose.
// ABOUTME: Runs on its own schedule, isolated from scan state, appending to summary history.

package summary

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/logwarden/logwarden/internal/store"
	"github.com/logwarden/logwarden/internal/types"
	"github.com/sirupsen/logrus"
)

// ErrSummaryActive is returned when a trigger arrives while a summary is
// being generated.
var ErrSummaryActive = errors.New("a summary is already being generated")

const (
	// Window of abnormalities the summary looks back over
	summaryWindow = 24 * time.Hour
	// Cap on issue lines fed to the classifier, protecting it from
	// unbounded input.
	maxSummaryItems = 25
	// Per-item analysis text budget in the rendered list
	maxAnalysisChars = 100

	defaultSummaryInterval = 12 * time.Hour

	stableMessage = "No recent abnormalities detected in the monitored period."
)

const summaryPromptTemplate = `You are an IT operations assistant analyzing system health based on recent container issues.
Provide a concise (1-3 sentences) summary focusing on the overall health trend. Mention the total number of unresolved issues. If specific containers have multiple unresolved issues, highlight them briefly. Avoid listing every single issue.

Recent Container Issues (within monitored period):
%s
--- End List ---

Overall System Health Summary:`

// AbnormalitySource supplies recent unresolved abnormalities
type AbnormalitySource interface {
	RecentUnresolved(ctx context.Context, window time.Duration) ([]types.Abnormality, error)
}

// HistoryStore records generated summaries
type HistoryStore interface {
	AppendSummary(ctx context.Context, summaryText, errorText, status string) error
}

// SettingsSource supplies runtime settings
type SettingsSource interface {
	GetSettings(ctx context.Context) (map[string]string, error)
}

// Summarizer generates prose from a rendered prompt
type Summarizer interface {
	Summarize(ctx context.Context, endpoint, model, prompt string) (string, error)
}

// Aggregator owns the summary lifecycle
type Aggregator struct {
	abnormalities AbnormalitySource
	history       HistoryStore
	settings      SettingsSource
	classifier    Summarizer
	logger        *logrus.Logger

	mu      sync.Mutex
	running bool
	runCtx  context.Context
}

// NewAggregator creates a summary aggregator
func NewAggregator(abnormalities AbnormalitySource, history HistoryStore, settings SettingsSource, classifier Summarizer, logger *logrus.Logger) *Aggregator {
	return &Aggregator{
		abnormalities: abnormalities,
		history:       history,
		settings:      settings,
		classifier:    classifier,
		logger:        logger,
	}
}

// Start runs the summary scheduler until ctx is cancelled
func (a *Aggregator) Start(ctx context.Context, initialDelay time.Duration) {
	a.mu.Lock()
	a.runCtx = ctx
	a.mu.Unlock()

	logger := a.logger.WithField("component", "summary_scheduler")
	logger.WithField("initial_delay", initialDelay).Info("Starting summary scheduler")

	timer := time.NewTimer(initialDelay)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Summary scheduler stopping")
			return
		case <-timer.C:
		}

		if err := a.Trigger(); err != nil {
			logger.WithError(err).Info("Skipping scheduled summary")
		}

		timer.Reset(a.summaryInterval(ctx, logger))
	}
}

// summaryInterval reads the configured interval for the next scheduled run
func (a *Aggregator) summaryInterval(ctx context.Context, logger *logrus.Entry) time.Duration {
	values, err := a.settings.GetSettings(ctx)
	if err != nil {
		logger.WithError(err).Warn("Failed to read settings, keeping default summary interval")
		return defaultSummaryInterval
	}
	if raw := values[store.SettingSummaryIntervalHours]; raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			return time.Duration(n) * time.Hour
		}
		logger.WithField("value", raw).Warn("Ignoring invalid summary_interval_hours setting")
	}
	return defaultSummaryInterval
}

// Trigger generates a summary in the background. The entry guard keeps at
// most one generation running; scan cycles are entirely unaffected.
func (a *Aggregator) Trigger() error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return ErrSummaryActive
	}
	a.running = true
	ctx := a.runCtx
	if ctx == nil {
		ctx = context.Background()
	}
	a.mu.Unlock()

	go func() {
		defer func() {
			a.mu.Lock()
			a.running = false
			a.mu.Unlock()
		}()
		a.runSummary(ctx)
	}()
	return nil
}

// Running reports whether a summary is currently being generated
func (a *Aggregator) Running() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.running
}

// runSummary performs one summary generation. Every failure is recorded in
// the history rather than propagated.
func (a *Aggregator) runSummary(ctx context.Context) {
	logger := a.logger.WithField("component", "summary_aggregator")
	logger.Info("Starting health summary generation")

	recent, err := a.abnormalities.RecentUnresolved(ctx, summaryWindow)
	if err != nil {
		logger.WithError(err).Error("Failed to fetch recent abnormalities")
		a.record(ctx, "", fmt.Sprintf("failed to fetch recent abnormalities: %v", err), store.SummaryStatusError, logger)
		return
	}

	if len(recent) == 0 {
		logger.Info("No recent abnormalities, recording stable summary")
		a.record(ctx, stableMessage, "", store.SummaryStatusSkipped, logger)
		return
	}

	if len(recent) > maxSummaryItems {
		recent = recent[:maxSummaryItems]
	}
	prompt := fmt.Sprintf(summaryPromptTemplate, renderIssueList(recent))

	values, err := a.settings.GetSettings(ctx)
	if err != nil {
		logger.WithError(err).Error("Failed to read settings for summary")
		a.record(ctx, "", fmt.Sprintf("failed to read settings: %v", err), store.SummaryStatusError, logger)
		return
	}
	endpoint := values[store.SettingOllamaURL]
	model := values[store.SettingOllamaModel]
	if endpoint == "" {
		a.record(ctx, "", "classifier endpoint is not configured", store.SummaryStatusError, logger)
		return
	}

	text, err := a.classifier.Summarize(ctx, endpoint, model, prompt)
	if err != nil {
		logger.WithError(err).Error("Summary generation failed")
		a.record(ctx, "", err.Error(), store.SummaryStatusError, logger)
		return
	}

	logger.WithField("issue_count", len(recent)).Info("Health summary generated")
	a.record(ctx, text, "", store.SummaryStatusSuccess, logger)
}

// record appends one row to the summary history
func (a *Aggregator) record(ctx context.Context, text, errText, status string, logger *logrus.Entry) {
	if err := a.history.AppendSummary(ctx, text, errText, status); err != nil {
		logger.WithError(err).Error("Failed to record summary history entry")
	}
}

// renderIssueList formats abnormalities as compact per-issue lines, newest
// first (RecentUnresolved orders by last_seen descending).
func renderIssueList(items []types.Abnormality) string {
	var b strings.Builder
	for _, item := range items {
		analysis := item.AnalysisText
		if len(analysis) > maxAnalysisChars {
			analysis = analysis[:maxAnalysisChars] + "..."
		}
		fmt.Fprintf(&b, "- Container: %s, Status: %s, Last Seen: %s, Desc: %s\n",
			item.ContainerName, item.Status, item.LastSeen.Format("2006-01-02 15:04"), analysis)
	}
	return b.String()
}
