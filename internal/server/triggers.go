// ABOUTME: HTTP handlers for manual scan and summary triggers.
// ABOUTME: Also exposes cooperative scan stop and scheduler pause/resume.

package server

import (
	"errors"
	"net/http"

	"github.com/logwarden/logwarden/internal/scan"
	"github.com/logwarden/logwarden/internal/summary"

	"github.com/sirupsen/logrus"
)

type ScanController interface {
	TriggerScan() (string, error)
	RequestCancel() error
	SetPaused(paused bool)
}

type SummaryController interface {
	Trigger() error
}

type TriggerHandler struct {
	scans     ScanController
	summaries SummaryController
	logger    *logrus.Logger
}

type ScanTriggerResponse struct {
	Message string `json:"message"`
	CycleID string `json:"cycle_id"`
}

func NewTriggerHandler(scans ScanController, summaries SummaryController, logger *logrus.Logger) *TriggerHandler {
	return &TriggerHandler{
		scans:     scans,
		summaries: summaries,
		logger:    logger,
	}
}

// ScanTrigger starts a scan cycle immediately.
func (h *TriggerHandler) ScanTrigger(w http.ResponseWriter, r *http.Request) {
	cycleID, err := h.scans.TriggerScan()
	if err != nil {
		if errors.Is(err, scan.ErrScanActive) {
			writeError(w, http.StatusConflict, "Scan already in progress.")
			return
		}
		h.logger.WithError(err).Error("Failed to trigger scan")
		writeError(w, http.StatusInternalServerError, "Trigger failed due to internal server error.")
		return
	}

	h.logger.WithField("cycle_id", cycleID).Info("Scan triggered via API")
	writeJSON(w, r, h.logger, http.StatusAccepted, ScanTriggerResponse{
		Message: "Log scan triggered.",
		CycleID: cycleID,
	})
}

// ScanStop signals the running scan cycle to stop at its next safe point.
func (h *TriggerHandler) ScanStop(w http.ResponseWriter, r *http.Request) {
	if err := h.scans.RequestCancel(); err != nil {
		if errors.Is(err, scan.ErrScanIdle) {
			writeError(w, http.StatusConflict, "No scan is currently running.")
			return
		}
		h.logger.WithError(err).Error("Failed to request scan stop")
		writeError(w, http.StatusInternalServerError, "Stop failed due to internal server error.")
		return
	}

	h.logger.Info("Scan stop requested via API")
	writeJSON(w, r, h.logger, http.StatusAccepted, messageResponse{Message: "Stop signal sent to running scan."})
}

// SummaryTrigger starts summary generation immediately.
func (h *TriggerHandler) SummaryTrigger(w http.ResponseWriter, r *http.Request) {
	if err := h.summaries.Trigger(); err != nil {
		if errors.Is(err, summary.ErrSummaryActive) {
			writeError(w, http.StatusConflict, "Summary generation already in progress.")
			return
		}
		h.logger.WithError(err).Error("Failed to trigger summary")
		writeError(w, http.StatusInternalServerError, "Trigger failed due to internal server error.")
		return
	}

	h.logger.Info("Summary generation triggered via API")
	writeJSON(w, r, h.logger, http.StatusAccepted, messageResponse{Message: "Summary generation triggered."})
}

// SchedulerPause suspends scheduled scan cycles. Manual triggers still work.
func (h *TriggerHandler) SchedulerPause(w http.ResponseWriter, r *http.Request) {
	h.scans.SetPaused(true)
	h.logger.Info("Scan schedule paused via API")
	writeJSON(w, r, h.logger, http.StatusOK, messageResponse{Message: "Scan schedule paused."})
}

// SchedulerResume re-enables scheduled scan cycles.
func (h *TriggerHandler) SchedulerResume(w http.ResponseWriter, r *http.Request) {
	h.scans.SetPaused(false)
	h.logger.Info("Scan schedule resumed via API")
	writeJSON(w, r, h.logger, http.StatusOK, messageResponse{Message: "Scan schedule resumed."})
}
