// ABOUTME: Prometheus metrics exposition for container health and scan state.
// ABOUTME: Defines metrics structure and provides HTTP handler for /metrics endpoint.

package metrics

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/logwarden/logwarden/internal/store"
	"github.com/logwarden/logwarden/internal/types"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

type ContainerStatusProvider interface {
	StatusSnapshot() (map[string]types.ContainerStatus, time.Time)
	RunState() types.ScanRunState
}

type AbnormalityCounter interface {
	CountByStatus(ctx context.Context) (map[string]int, error)
}

type SummarySource interface {
	LatestSummary(ctx context.Context) (types.SummaryRecord, bool, error)
}

type MetricsHandler struct {
	statuses  ContainerStatusProvider
	counter   AbnormalityCounter
	summaries SummarySource
	logger    *logrus.Logger

	// Prometheus metrics
	containerHealth  *prometheus.GaugeVec
	lastChecked      *prometheus.GaugeVec
	abnormalityCount *prometheus.GaugeVec
	scanInfo         *prometheus.GaugeVec
	summaryInfo      *prometheus.GaugeVec
}

func NewMetricsHandler(statuses ContainerStatusProvider, counter AbnormalityCounter, summaries SummarySource, logger *logrus.Logger) *MetricsHandler {
	return &MetricsHandler{
		statuses:  statuses,
		counter:   counter,
		summaries: summaries,
		logger:    logger,

		containerHealth: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "logwarden_container_health",
				Help: "Health of monitored containers as of the last scan (1=healthy, 0=other)",
			},
			[]string{"container_id", "container_name", "state"},
		),

		lastChecked: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "logwarden_container_last_checked_timestamp",
				Help: "Timestamp of the last log scan for each monitored container",
			},
			[]string{"container_id", "container_name"},
		),

		abnormalityCount: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "logwarden_abnormality_count",
				Help: "Number of persisted abnormality records by lifecycle status",
			},
			[]string{"status"},
		),

		scanInfo: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "logwarden_scan_info",
				Help: "Information about the scan cycle scheduler and the last completed cycle",
			},
			[]string{"info_type"},
		),

		summaryInfo: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "logwarden_summary_info",
				Help: "Information about the most recent summary generation attempt",
			},
			[]string{"info_type"},
		),
	}
}

func (m *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Create a new registry for this request to avoid conflicts
	registry := prometheus.NewRegistry()

	// Register our metrics
	registry.MustRegister(m.containerHealth)
	registry.MustRegister(m.lastChecked)
	registry.MustRegister(m.abnormalityCount)
	registry.MustRegister(m.scanInfo)
	registry.MustRegister(m.summaryInfo)

	// Reset all metrics to avoid stale data
	m.containerHealth.Reset()
	m.lastChecked.Reset()
	m.abnormalityCount.Reset()
	m.scanInfo.Reset()
	m.summaryInfo.Reset()

	// Get the published container statuses
	statuses, publishedAt := m.statuses.StatusSnapshot()

	// Populate per-container metrics
	for _, status := range statuses {
		name := sanitizeLabelValue(status.Name)

		healthValue := float64(0)
		if status.Health == types.HealthHealthy {
			healthValue = 1
		}
		m.containerHealth.WithLabelValues(status.ContainerID, name, string(status.Health)).Set(healthValue)

		if status.LastChecked != nil {
			m.lastChecked.WithLabelValues(status.ContainerID, name).Set(float64(status.LastChecked.Unix()))
		}
	}

	// Abnormality counts by lifecycle status
	counts, err := m.counter.CountByStatus(r.Context())
	if err != nil {
		m.logger.WithError(err).Error("Failed to count abnormalities for metrics")
	} else {
		for status, count := range counts {
			m.abnormalityCount.WithLabelValues(status).Set(float64(count))
		}
	}

	// Scheduler and cycle info
	run := m.statuses.RunState()
	m.scanInfo.WithLabelValues("scan_running").Set(boolValue(run.Running))
	m.scanInfo.WithLabelValues("scheduler_paused").Set(boolValue(run.Paused))
	m.scanInfo.WithLabelValues("containers_monitored").Set(float64(len(statuses)))
	if !publishedAt.IsZero() {
		m.scanInfo.WithLabelValues("last_publish_timestamp").Set(float64(publishedAt.Unix()))
	}
	if run.LastCompleted != nil {
		m.scanInfo.WithLabelValues("last_scan_timestamp").Set(float64(run.LastCompleted.Unix()))
	}
	if run.NextScheduled != nil {
		m.scanInfo.WithLabelValues("next_scan_timestamp").Set(float64(run.NextScheduled.Unix()))
	}
	if run.LastDuration != nil {
		m.scanInfo.WithLabelValues("last_scan_duration_seconds").Set(run.LastDuration.Seconds())
	}

	// Last summary attempt
	latest, ok, err := m.summaries.LatestSummary(r.Context())
	if err != nil {
		m.logger.WithError(err).Error("Failed to load latest summary for metrics")
	} else if ok {
		m.summaryInfo.WithLabelValues("last_summary_timestamp").Set(float64(latest.CreatedAt.Unix()))
		m.summaryInfo.WithLabelValues("last_summary_success").Set(boolValue(latest.Status == store.SummaryStatusSuccess))
	}

	// Serve metrics
	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	handler.ServeHTTP(w, r)
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// sanitizeLabelValue cleans strings for use as Prometheus labels
func sanitizeLabelValue(value string) string {
	if value == "" {
		return "unknown"
	}

	// Remove newlines and carriage returns
	value = strings.ReplaceAll(value, "\n", " ")
	value = strings.ReplaceAll(value, "\r", " ")
	value = strings.ReplaceAll(value, "\t", " ")

	// Limit length to prevent excessive label sizes
	if len(value) > 200 {
		value = value[:200] + "..."
	}

	// Remove any leading/trailing whitespace
	return strings.TrimSpace(value)
}

// CreateMetricsHandler creates a standard HTTP handler that can be used with http.ServeMux
func CreateMetricsHandler(statuses ContainerStatusProvider, counter AbnormalityCounter, summaries SummarySource, logger *logrus.Logger) http.HandlerFunc {
	metricsHandler := NewMetricsHandler(statuses, counter, summaries, logger)
	return metricsHandler.ServeHTTP
}
