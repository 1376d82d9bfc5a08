package interfaces

import (
	"github.com/ternarybob/mercatus/internal/models"
)

// ExportRunner exposes export pipeline control to the HTTP layer.
type ExportRunner interface {
	// StartRun launches an export run in the background and returns its run ID.
	// Returns an error when a run is already in progress.
	StartRun() (string, error)

	// IsRunning reports whether an export run is currently in progress.
	IsRunning() bool

	// LastRun returns a snapshot of the most recently completed run,
	// or nil when no run has finished since startup.
	LastRun() *models.RunSummary
}
