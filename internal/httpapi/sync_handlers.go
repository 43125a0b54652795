package httpapi

import (
	"context"
	"errors"
	"net/http"

	"activitytracker-engine/internal/config"
	"activitytracker-engine/internal/events"
	"activitytracker-engine/internal/logging"
	"activitytracker-engine/internal/pipeline"
)

type SyncHandler struct {
	Catalog   Catalog
	Cfg       func() config.Config
	Tracker   *pipeline.Tracker
	Hub       *events.Hub
	NewRunner func() (*pipeline.Runner, error)
}

func (h SyncHandler) Jobs(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		WriteError(w, r, http.StatusBadRequest, "bad_request", "limit must be an integer")
		return
	}
	jobs, err := h.Catalog.ListSyncJobs(r.Context(), h.Cfg().Provider.ID, limit)
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "store", err.Error())
		return
	}
	writeJSON(w, jobs)
}

func (h SyncHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.Tracker.Snapshot())
}

// Run starts a sync in the background and answers 202 right away. Progress
// is reported through /events and /sync/status.
func (h SyncHandler) Run(w http.ResponseWriter, r *http.Request) {
	if h.Tracker.Snapshot().Running {
		WriteError(w, r, http.StatusConflict, "already_running", pipeline.ErrAlreadyRunning.Error())
		return
	}

	runner, err := h.NewRunner()
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "runner", err.Error())
		return
	}
	if runner.Events == nil && h.Hub != nil {
		runner.Events = h.Hub
	}

	// The run outlives the request but keeps its request id in the logs.
	ctx := context.WithoutCancel(r.Context())
	go func() {
		_, err := h.Tracker.RunOnce(ctx, runner)
		log := logging.FromContext(ctx)
		switch {
		case errors.Is(err, pipeline.ErrAlreadyRunning):
			log.Info().Msg("sync already running, manual run skipped")
		case err != nil:
			log.Error().Err(err).Msg("manual sync failed")
		}
	}()

	WriteJSON(w, http.StatusAccepted, map[string]any{"ok": true})
}
