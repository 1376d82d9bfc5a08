package models

import "time"

// DatasetResult records the outcome of one (exchange, dataset) export.
type DatasetResult struct {
	Kind    DatasetKind `json:"kind"`
	Records int         `json:"records"`
	Error   string      `json:"error,omitempty"`
}

// SourceResult records the outcome of one exchange within a run. Success
// reflects only whether the exchange's fetch context could be resolved;
// dataset-level failures are recorded in Datasets without flipping it.
type SourceResult struct {
	Code     string          `json:"code"`
	Name     string          `json:"name"`
	Success  bool            `json:"success"`
	Error    string          `json:"error,omitempty"`
	Datasets []DatasetResult `json:"datasets,omitempty"`
}

// RunSummary is the outcome of one export run across all exchanges.
type RunSummary struct {
	RunID        string         `json:"run_id"`
	StartedAt    time.Time      `json:"started_at"`
	FinishedAt   time.Time      `json:"finished_at"`
	Batches      int            `json:"batches"`
	SourcesTotal int            `json:"sources_total"`
	SourcesOK    int            `json:"sources_ok"`
	Sources      []SourceResult `json:"sources,omitempty"`
}

// Duration returns the wall-clock time the run took.
func (r *RunSummary) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// FailedDatasets counts dataset exports that ended in an error across all sources.
func (r *RunSummary) FailedDatasets() int {
	count := 0
	for _, src := range r.Sources {
		for _, ds := range src.Datasets {
			if ds.Error != "" {
				count++
			}
		}
	}
	return count
}
