// ABOUTME: Scan orchestrator that drives log collection, classification, and publication.
// ABOUTME: Enforces single-cycle execution, cooperative cancellation, and atomic status publishes.

package scan

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/logwarden/logwarden/internal/cache"
	"github.com/logwarden/logwarden/internal/classify"
	"github.com/logwarden/logwarden/internal/store"
	"github.com/logwarden/logwarden/internal/types"
	"github.com/sirupsen/logrus"
)

var (
	// ErrScanActive is returned when a trigger arrives while a cycle is running
	ErrScanActive = errors.New("a scan cycle is already running")
	// ErrScanIdle is returned when a cancel arrives with no cycle running
	ErrScanIdle = errors.New("no scan cycle is currently running")
)

// InventoryProvider lists running containers and fetches their logs
type InventoryProvider interface {
	Name() string
	ListRunning(ctx context.Context) ([]types.ContainerRef, error)
	FetchLogs(ctx context.Context, id string, tailLines int) (string, error)
}

// LogClassifier analyzes log text and lists available models
type LogClassifier interface {
	Classify(ctx context.Context, endpoint, model, promptTemplate, logs string) (classify.Result, error)
	ListModels(ctx context.Context, endpoint string) ([]string, error)
}

// AbnormalityStore persists detections and answers dedup lookups
type AbnormalityStore interface {
	FindStatus(ctx context.Context, containerID, snippet string) (types.AbnormalityStatus, int64, bool, error)
	Upsert(ctx context.Context, containerID, containerName, snippet, analysis string, seenAt time.Time) (int64, error)
}

// SettingsSource supplies the runtime settings snapshot for a cycle
type SettingsSource interface {
	GetSettings(ctx context.Context) (map[string]string, error)
}

// cycleSettings is the per-cycle snapshot of runtime settings. Taken once at
// cycle start so mid-cycle settings changes cannot produce mixed behavior.
type cycleSettings struct {
	endpoint  string
	model     string
	prompt    string
	ignored   map[string]struct{}
	tailLines int
	interval  time.Duration
}

func (c cycleSettings) isIgnored(ref types.ContainerRef) bool {
	if _, ok := c.ignored[ref.Name]; ok {
		return true
	}
	_, ok := c.ignored[ref.ID]
	return ok
}

const (
	defaultScanInterval = 180 * time.Minute
	defaultTailLines    = 100
)

// parseCycleSettings never fails: malformed entries fall back to defaults
// with a warning so one bad setting cannot stop all scanning.
func parseCycleSettings(values map[string]string, logger *logrus.Entry) cycleSettings {
	cfg := cycleSettings{
		endpoint:  values[store.SettingOllamaURL],
		model:     values[store.SettingOllamaModel],
		prompt:    values[store.SettingAnalysisPrompt],
		ignored:   make(map[string]struct{}),
		tailLines: defaultTailLines,
		interval:  defaultScanInterval,
	}

	if cfg.prompt == "" {
		cfg.prompt = store.DefaultSettings()[store.SettingAnalysisPrompt]
	}

	if raw := values[store.SettingIgnoredContainers]; raw != "" {
		var names []string
		if err := json.Unmarshal([]byte(raw), &names); err != nil {
			logger.WithError(err).Warn("Ignoring malformed ignored_containers setting")
		} else {
			for _, name := range names {
				if name != "" {
					cfg.ignored[name] = struct{}{}
				}
			}
		}
	}

	if raw := values[store.SettingLogLinesToFetch]; raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			cfg.tailLines = n
		} else {
			logger.WithField("value", raw).Warn("Ignoring invalid log_lines_to_fetch setting")
		}
	}

	if raw := values[store.SettingScanIntervalMinutes]; raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			cfg.interval = time.Duration(n) * time.Minute
		} else {
			logger.WithField("value", raw).Warn("Ignoring invalid scan_interval_minutes setting")
		}
	}

	return cfg
}

// Orchestrator owns the scan lifecycle and the published status map
type Orchestrator struct {
	inventory  InventoryProvider
	classifier LogClassifier
	store      AbnormalityStore
	settings   SettingsSource
	models     *cache.ModelCache
	logger     *logrus.Logger

	// Run state. Mutated only under mu; the running cycle is the single
	// writer of state transitions while it holds the running flag.
	mu     sync.Mutex
	state  CycleState
	run    types.ScanRunState
	runCtx context.Context

	// Published status map, replaced wholesale on successful cycles
	statusMu    sync.RWMutex
	statuses    map[string]types.ContainerStatus
	publishedAt time.Time
}

// NewOrchestrator creates a scan orchestrator
func NewOrchestrator(inventory InventoryProvider, classifier LogClassifier, abnormalities AbnormalityStore, settings SettingsSource, logger *logrus.Logger) *Orchestrator {
	return &Orchestrator{
		inventory:  inventory,
		classifier: classifier,
		store:      abnormalities,
		settings:   settings,
		models:     cache.NewModelCache(logger),
		logger:     logger,
		state:      StateIdle,
		statuses:   make(map[string]types.ContainerStatus),
	}
}

// Start runs the scan scheduler until ctx is cancelled. The interval is
// re-read from settings before every wait so runtime changes take effect
// without a restart.
func (o *Orchestrator) Start(ctx context.Context, initialDelay time.Duration) {
	o.mu.Lock()
	o.runCtx = ctx
	o.mu.Unlock()

	logger := o.logger.WithField("component", "scan_scheduler")
	logger.WithField("initial_delay", initialDelay).Info("Starting scan scheduler")

	wait := initialDelay
	timer := time.NewTimer(wait)
	defer timer.Stop()

	for {
		o.setNextScheduled(time.Now().Add(wait))

		select {
		case <-ctx.Done():
			logger.Info("Scan scheduler stopping")
			return
		case <-timer.C:
		}

		if o.Paused() {
			logger.Info("Scheduler paused, skipping scheduled scan")
		} else if _, err := o.TriggerScan(); err != nil {
			logger.WithError(err).Info("Skipping scheduled scan")
		}

		wait = o.scanInterval(ctx, logger)
		timer.Reset(wait)
	}
}

// scanInterval reads the configured interval for the next scheduled scan
func (o *Orchestrator) scanInterval(ctx context.Context, logger *logrus.Entry) time.Duration {
	values, err := o.settings.GetSettings(ctx)
	if err != nil {
		logger.WithError(err).Warn("Failed to read settings, keeping default scan interval")
		return defaultScanInterval
	}
	return parseCycleSettings(values, logger).interval
}

// TriggerScan starts a scan cycle in the background. Manual and scheduled
// triggers both land here; the entry guard keeps at most one cycle running.
func (o *Orchestrator) TriggerScan() (string, error) {
	o.mu.Lock()
	if o.run.Running {
		o.mu.Unlock()
		o.logger.WithField("component", "scan_orchestrator").Info("Scan trigger ignored, cycle already running")
		return "", ErrScanActive
	}

	cycleID := uuid.New().String()
	now := time.Now()
	o.transitionLocked(StateRunning)
	o.run.Running = true
	o.run.CancelRequested = false
	o.run.CycleID = cycleID
	o.run.LastStarted = &now

	ctx := o.runCtx
	if ctx == nil {
		ctx = context.Background()
	}
	o.mu.Unlock()

	go o.runCycle(ctx, cycleID)
	return cycleID, nil
}

// RequestCancel asks the running cycle to stop at its next safe point.
// Advisory only: an in-flight provider or classifier call is never
// interrupted.
func (o *Orchestrator) RequestCancel() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.run.Running {
		return ErrScanIdle
	}
	o.run.CancelRequested = true
	o.logger.WithField("cycle_id", o.run.CycleID).Info("Scan cancellation requested")
	return nil
}

// SetPaused pauses or resumes scheduled scans. Manual triggers are never
// affected.
func (o *Orchestrator) SetPaused(paused bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.run.Paused = paused
}

// Paused reports whether scheduled scans are paused
func (o *Orchestrator) Paused() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.run.Paused
}

// State returns the current cycle state
func (o *Orchestrator) State() CycleState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// RunState returns a snapshot of the run state for reporting surfaces
func (o *Orchestrator) RunState() types.ScanRunState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.run
}

// StatusSnapshot returns a copy of the published status map and its
// publication time.
func (o *Orchestrator) StatusSnapshot() (map[string]types.ContainerStatus, time.Time) {
	o.statusMu.RLock()
	defer o.statusMu.RUnlock()

	statuses := make(map[string]types.ContainerStatus, len(o.statuses))
	for id, status := range o.statuses {
		statuses[id] = status
	}
	return statuses, o.publishedAt
}

// SetContainerDisposition updates one published container entry after an
// operator dispositions an abnormality. No-op if the container is no longer
// published.
func (o *Orchestrator) SetContainerDisposition(containerID string, abnormalityID *int64, health types.Health) {
	o.statusMu.Lock()
	defer o.statusMu.Unlock()

	status, ok := o.statuses[containerID]
	if !ok {
		return
	}
	status.Health = health
	status.AbnormalityID = abnormalityID
	o.statuses[containerID] = status
}

// AvailableModels returns the classifier's model list for the configured
// endpoint, served from the TTL cache when fresh.
func (o *Orchestrator) AvailableModels(ctx context.Context) ([]string, error) {
	values, err := o.settings.GetSettings(ctx)
	if err != nil {
		return nil, err
	}
	endpoint := values[store.SettingOllamaURL]
	if endpoint == "" {
		return nil, errors.New("classifier endpoint is not configured")
	}
	return o.cachedModels(ctx, endpoint), nil
}

func (o *Orchestrator) cachedModels(ctx context.Context, endpoint string) []string {
	if models := o.models.Get(endpoint); models != nil {
		return models
	}
	models, err := o.classifier.ListModels(ctx, endpoint)
	if err != nil {
		o.logger.WithError(err).WithField("endpoint", endpoint).Warn("Failed to list classifier models")
		return nil
	}
	o.models.Set(endpoint, models)
	return models
}

// runCycle executes one scan cycle. The deferred finalize releases the
// running flag and clears the cancel request on every exit path.
func (o *Orchestrator) runCycle(ctx context.Context, cycleID string) {
	logger := o.logger.WithFields(logrus.Fields{
		"component": "scan_orchestrator",
		"cycle_id":  cycleID,
	})
	start := time.Now()

	outcome := StateFailed
	tracked := 0
	defer func() {
		o.finalize(outcome, start, tracked)
		logger.WithFields(logrus.Fields{
			"outcome":  outcome.String(),
			"duration": time.Since(start),
		}).Info("Scan cycle finished")
	}()

	logger.Info("Starting scan cycle")

	values, err := o.settings.GetSettings(ctx)
	if err != nil {
		logger.WithError(err).Error("Failed to read settings, aborting cycle")
		return
	}
	cfg := parseCycleSettings(values, logger)

	live, err := o.inventory.ListRunning(ctx)
	if err != nil {
		logger.WithError(err).Error("Failed to fetch container inventory, aborting cycle")
		return
	}
	logger.WithField("container_count", len(live)).Info("Fetched container inventory")

	if cfg.endpoint == "" {
		logger.Warn("Classifier endpoint not configured, skipping classification this cycle")
	} else if models := o.cachedModels(ctx, cfg.endpoint); len(models) > 0 && cfg.model != "" && !slices.Contains(models, cfg.model) {
		logger.WithFields(logrus.Fields{
			"model":     cfg.model,
			"available": len(models),
		}).Warn("Configured model not reported by the classifier")
	}

	results := make(map[string]types.ContainerStatus)
	for _, ref := range live {
		// Safe point: partial results are discarded, never published.
		if o.cancelled(ctx) {
			logger.WithField("scanned", len(results)).Info("Scan cycle cancelled, discarding partial results")
			outcome = StateCancelled
			return
		}
		if cfg.isIgnored(ref) {
			logger.WithField("container", ref.Name).Debug("Skipping ignored container")
			continue
		}
		results[ref.ID] = o.scanContainer(ctx, ref, cfg, logger)
	}

	o.publish(results, live, cfg)
	outcome = StateCompleted
	tracked = len(results)
}

// cancelled reports whether the cycle should stop at this safe point
func (o *Orchestrator) cancelled(ctx context.Context) bool {
	if ctx.Err() != nil {
		return true
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.run.CancelRequested
}

// scanContainer produces the status for one container. Failures are
// isolated: they mark this container and never abort the cycle.
func (o *Orchestrator) scanContainer(ctx context.Context, ref types.ContainerRef, cfg cycleSettings, logger *logrus.Entry) types.ContainerStatus {
	now := time.Now()
	status := types.ContainerStatus{
		ContainerID: ref.ID,
		Name:        ref.Name,
		LastChecked: &now,
	}

	logs, err := o.inventory.FetchLogs(ctx, ref.ID, cfg.tailLines)
	if err != nil {
		logger.WithError(err).WithField("container", ref.Name).Error("Failed to fetch container logs")
		status.Health = types.HealthFetchError
		status.Detail = err.Error()
		return status
	}

	// No endpoint means no classification: absence of analysis must not
	// read as "unhealthy".
	if cfg.endpoint == "" {
		status.Health = types.HealthHealthy
		return status
	}

	result, err := o.classifier.Classify(ctx, cfg.endpoint, cfg.model, cfg.prompt, logs)
	if err != nil {
		logger.WithError(err).WithField("container", ref.Name).Error("Log classification failed")
		status.Health = types.HealthAnalysisError
		status.Detail = err.Error()
		return status
	}

	switch result.Kind {
	case classify.ResultNormal:
		status.Health = types.HealthHealthy
	case classify.ResultClassifierError:
		logger.WithFields(logrus.Fields{
			"container": ref.Name,
			"reason":    result.Reason,
		}).Error("Classifier reported an error")
		status.Health = types.HealthAnalysisError
		status.Detail = result.Reason
	case classify.ResultFinding:
		o.recordFinding(ctx, &status, ref, result.Text, logs, now, logger)
	}
	return status
}

// recordFinding applies the dedup policy for one detected abnormality
func (o *Orchestrator) recordFinding(ctx context.Context, status *types.ContainerStatus, ref types.ContainerRef, analysis, logs string, seenAt time.Time, logger *logrus.Entry) {
	snippet := classify.ExtractSnippet(analysis, logs)

	current, _, found, err := o.store.FindStatus(ctx, ref.ID, snippet)
	if err != nil {
		logger.WithError(err).WithField("container", ref.Name).Error("Failed to look up abnormality status")
		status.Health = types.HealthPersistenceError
		status.Detail = err.Error()
		return
	}

	// An operator's disposition is authoritative until the evidence text
	// changes: re-flagged resolved/ignored snippets are not resurrected.
	if found && (current == types.StatusResolved || current == types.StatusIgnored) {
		logger.WithFields(logrus.Fields{
			"container": ref.Name,
			"status":    string(current),
		}).Debug("Known dispositioned snippet re-flagged, reporting healthy")
		status.Health = types.HealthHealthy
		return
	}

	id, err := o.store.Upsert(ctx, ref.ID, ref.Name, snippet, analysis, seenAt)
	if err != nil {
		logger.WithError(err).WithField("container", ref.Name).Error("Failed to persist abnormality")
		status.Health = types.HealthPersistenceError
		status.Detail = err.Error()
		return
	}

	logger.WithFields(logrus.Fields{
		"container":      ref.Name,
		"abnormality_id": id,
	}).Info("Abnormality recorded")
	status.Health = types.HealthUnhealthy
	status.AbnormalityID = &id
	status.Detail = analysis
}

// publish atomically replaces the status map: this cycle's results merged
// over the previous map, minus containers that are gone or ignored.
func (o *Orchestrator) publish(results map[string]types.ContainerStatus, live []types.ContainerRef, cfg cycleSettings) {
	liveIDs := make(map[string]struct{}, len(live))
	for _, ref := range live {
		if cfg.isIgnored(ref) {
			continue
		}
		liveIDs[ref.ID] = struct{}{}
	}

	o.statusMu.Lock()
	defer o.statusMu.Unlock()

	next := make(map[string]types.ContainerStatus, len(liveIDs))
	for id, status := range o.statuses {
		if _, ok := liveIDs[id]; ok {
			next[id] = status
		}
	}
	for id, status := range results {
		next[id] = status
	}
	o.statuses = next
	o.publishedAt = time.Now()
}

// finalize releases the running flag and records the cycle outcome. Runs on
// every exit path so a failed cycle cannot wedge the orchestrator.
func (o *Orchestrator) finalize(outcome CycleState, start time.Time, tracked int) {
	now := time.Now()
	duration := now.Sub(start)

	o.mu.Lock()
	defer o.mu.Unlock()

	o.transitionLocked(outcome)
	o.transitionLocked(StateIdle)
	o.run.Running = false
	o.run.CancelRequested = false
	o.run.LastOutcome = outcome.String()
	o.run.LastCompleted = &now
	o.run.LastDuration = &duration
	if outcome == StateCompleted {
		o.run.ContainersTracked = tracked
	}
}

// transitionLocked applies a state change, logging any violation of the
// transition table. Callers hold mu.
func (o *Orchestrator) transitionLocked(to CycleState) {
	if !CanTransition(o.state, to) {
		o.logger.WithFields(logrus.Fields{
			"from": o.state.String(),
			"to":   to.String(),
		}).Error("Illegal scan state transition")
		return
	}
	o.state = to
}

// setNextScheduled records when the scheduler will fire next
func (o *Orchestrator) setNextScheduled(at time.Time) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.run.NextScheduled = &at
}
