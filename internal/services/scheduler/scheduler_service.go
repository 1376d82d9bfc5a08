package scheduler

import (
	"context"
	"errors"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/mercatus/internal/services/export"
)

// Service runs export runs on a cron schedule
type Service struct {
	export *export.Service
	cron   *cron.Cron
	logger arbor.ILogger
}

// NewService creates a new export scheduler
func NewService(exportService *export.Service, logger arbor.ILogger) *Service {
	return &Service{
		export: exportService,
		cron:   cron.New(cron.WithSeconds()),
		logger: logger,
	}
}

// Start begins scheduled exports. An empty schedule leaves the
// scheduler disabled; exports then only run at startup or on demand.
func (s *Service) Start(schedule string) error {
	if schedule == "" {
		s.logger.Info().Msg("Export scheduler disabled")
		return nil
	}

	if _, err := s.cron.AddFunc(schedule, s.runExport); err != nil {
		return fmt.Errorf("invalid export schedule %q: %w", schedule, err)
	}

	s.cron.Start()
	s.logger.Info().
		Str("schedule", schedule).
		Msg("Export scheduler started")

	return nil
}

// Stop stops the scheduler
func (s *Service) Stop() {
	s.cron.Stop()
	s.logger.Info().Msg("Export scheduler stopped")
}

func (s *Service) runExport() {
	ctx, cancel := context.WithTimeout(context.Background(), export.DefaultRunTimeout)
	defer cancel()

	s.logger.Info().Msg("Starting scheduled export run")

	summary, err := s.export.Run(ctx)
	if errors.Is(err, export.ErrRunInProgress) {
		s.logger.Warn().Msg("Skipping scheduled export: previous run still in progress")
		return
	}
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("Scheduled export run failed")
		return
	}

	s.logger.Info().
		Str("run_id", summary.RunID).
		Int("succeeded", summary.SourcesOK).
		Int("failed", summary.SourcesTotal-summary.SourcesOK).
		Dur("duration", summary.Duration()).
		Msg("Scheduled export run completed")
}
