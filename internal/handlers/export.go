package handlers

import (
	"errors"
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/mercatus/internal/common"
	"github.com/ternarybob/mercatus/internal/interfaces"
	"github.com/ternarybob/mercatus/internal/services/export"
)

// ExportHandler exposes manual export run control
type ExportHandler struct {
	runner interfaces.ExportRunner
	logger arbor.ILogger
}

func NewExportHandler(runner interfaces.ExportRunner) *ExportHandler {
	return &ExportHandler{
		runner: runner,
		logger: common.GetLogger(),
	}
}

// TriggerExportHandler starts a background export run
func (h *ExportHandler) TriggerExportHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	runID, err := h.runner.StartRun()
	if err != nil {
		if errors.Is(err, export.ErrRunInProgress) {
			WriteError(w, http.StatusConflict, "export already running")
			return
		}
		h.logger.Error().Err(err).Msg("Failed to start export run")
		WriteError(w, http.StatusInternalServerError, "failed to start export run")
		return
	}

	h.logger.Info().Str("run_id", runID).Msg("Export run triggered via API")
	WriteJSON(w, http.StatusAccepted, map[string]string{
		"status": "started",
		"run_id": runID,
	})
}

// ExportStatusHandler reports whether a run is active plus the last
// completed run summary
func (h *ExportHandler) ExportStatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	response := map[string]interface{}{
		"running": h.runner.IsRunning(),
	}
	if last := h.runner.LastRun(); last != nil {
		response["last_run"] = last
	}

	WriteJSON(w, http.StatusOK, response)
}
