package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/mercatus/internal/models"
)

// Sink persists dataset records as JSON files in the output directory.
// Files are named {exchange}_{dataset}.json and replaced whole on every
// write, so API readers never observe a partially written dataset.
type Sink struct {
	dir    string
	logger arbor.ILogger
}

// NewSink creates the output directory if needed and returns a sink
// rooted there.
func NewSink(dir string, logger arbor.ILogger) (*Sink, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}
	return &Sink{dir: dir, logger: logger}, nil
}

// Path returns the dataset file path for an exchange and dataset kind.
func (s *Sink) Path(code string, kind models.DatasetKind) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s_%s.json", code, kind))
}

// Write marshals records with two-space indentation and atomically
// replaces the dataset file.
func (s *Sink) Write(code string, kind models.DatasetKind, records interface{}) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s/%s records: %w", code, kind, err)
	}

	path := s.Path(code, kind)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}

	s.logger.Debug().
		Str("path", path).
		Int("bytes", len(data)).
		Msg("Dataset file written")

	return nil
}

// Read returns the raw JSON bytes of a previously written dataset file.
// The error wraps os.ErrNotExist when no file exists yet.
func (s *Sink) Read(code string, kind models.DatasetKind) ([]byte, error) {
	return os.ReadFile(s.Path(code, kind))
}
