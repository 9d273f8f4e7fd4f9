package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gyssa-prince/student-progress-system/internal/syncer"
)

// handleSyncAll triggers the two-stage run: a full sync, then the
// inactivity check. It responds 200 with both summaries even when
// individual students failed; only orchestration-level faults are errors.
func (s *Server) handleSyncAll(w http.ResponseWriter, r *http.Request) {
	syncSummary, err := s.runner.RunAll(r.Context())
	if err != nil {
		if errors.Is(err, syncer.ErrAlreadyRunning) {
			respondError(w, http.StatusConflict, "already_running", "a sync run is already in progress")
			return
		}
		slog.Error("sync run failed", "error", err)
		respondError(w, http.StatusInternalServerError, "sync_failed", "failed to run sync")
		return
	}

	notifySummary, err := s.notifier.Notify(r.Context(), s.windowDays)
	if err != nil {
		slog.Error("inactivity check failed", "error", err)
		respondError(w, http.StatusInternalServerError, "notify_failed", "sync completed but inactivity check failed")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"sync":   syncSummary,
		"notify": notifySummary,
	})
}
