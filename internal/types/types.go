// ABOUTME: Common types shared across the logwarden system.
// ABOUTME: Defines data structures for containers, health states, abnormalities, and run state.

package types

import "time"

// ContainerRef identifies one running container as reported by an inventory provider
type ContainerRef struct {
	ID   string `json:"id"`   // opaque stable identifier
	Name string `json:"name"` // display name, may change across restarts
}

// Health is the per-container dashboard state
type Health string

const (
	HealthPending          Health = "pending"
	HealthHealthy          Health = "healthy"
	HealthUnhealthy        Health = "unhealthy"
	HealthAwaitingRescan   Health = "awaiting_rescan"
	HealthFetchError       Health = "fetch_error"
	HealthAnalysisError    Health = "analysis_error"
	HealthPersistenceError Health = "persistence_error"
)

// ContainerStatus is the published per-container scan result.
// AbnormalityID is set only when Health is unhealthy or awaiting_rescan.
type ContainerStatus struct {
	ContainerID   string     `json:"container_id"`
	Name          string     `json:"name"`
	Health        Health     `json:"health"`
	AbnormalityID *int64     `json:"abnormality_id,omitempty"`
	Detail        string     `json:"detail,omitempty"` // short human-readable note (error text, snippet hint)
	LastChecked   *time.Time `json:"last_checked,omitempty"`
}

// AbnormalityStatus is the lifecycle state of a persisted abnormality record
type AbnormalityStatus string

const (
	StatusUnresolved AbnormalityStatus = "unresolved"
	StatusResolved   AbnormalityStatus = "resolved"
	StatusIgnored    AbnormalityStatus = "ignored"
)

// ValidAbnormalityStatus reports whether s is a known lifecycle state
func ValidAbnormalityStatus(s string) bool {
	switch AbnormalityStatus(s) {
	case StatusUnresolved, StatusResolved, StatusIgnored:
		return true
	}
	return false
}

// Abnormality is a durable detection record, unique per (container_id, log_snippet)
type Abnormality struct {
	ID              int64             `json:"id"`
	ContainerID     string            `json:"container_id"`
	ContainerName   string            `json:"container_name"`
	LogSnippet      string            `json:"log_snippet"`
	AnalysisText    string            `json:"analysis_text"`
	FirstSeen       time.Time         `json:"first_seen"`
	LastSeen        time.Time         `json:"last_seen"`
	Status          AbnormalityStatus `json:"status"`
	ResolutionNotes string            `json:"resolution_notes,omitempty"`
}

// ScanRunState is a point-in-time snapshot of the orchestrator for reporting surfaces
type ScanRunState struct {
	Running           bool           `json:"running"`
	CancelRequested   bool           `json:"cancel_requested"`
	Paused            bool           `json:"paused"`
	CycleID           string         `json:"cycle_id,omitempty"`
	LastOutcome       string         `json:"last_outcome,omitempty"` // completed, cancelled, failed
	LastStarted       *time.Time     `json:"last_started,omitempty"`
	LastCompleted     *time.Time     `json:"last_completed,omitempty"`
	NextScheduled     *time.Time     `json:"next_scheduled,omitempty"`
	LastDuration      *time.Duration `json:"last_duration_ns,omitempty"`
	ContainersTracked int            `json:"containers_tracked"`
}

// SummaryRecord is one row of the append-only summary history
type SummaryRecord struct {
	ID          int64     `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	SummaryText string    `json:"summary_text,omitempty"`
	ErrorText   string    `json:"error_text,omitempty"`
	Status      string    `json:"status"` // success, error, skipped
}
