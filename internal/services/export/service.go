package export

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/mercatus/internal/common"
	"github.com/ternarybob/mercatus/internal/interfaces"
	"github.com/ternarybob/mercatus/internal/models"
)

// ErrRunInProgress indicates an export run is already executing.
// Runs are single-flight; concurrent triggers are rejected, not queued.
var ErrRunInProgress = errors.New("export already running")

// DefaultRunTimeout bounds a full export run across all exchanges.
const DefaultRunTimeout = 30 * time.Minute

// Service drives the batched export pipeline: it walks the exchange
// registry in batches, fetches and normalizes every dataset, and hands
// the records to the sink. Failures are isolated per exchange and per
// dataset; one bad page never aborts the run.
type Service struct {
	client     interfaces.SourceClient
	normalizer *Normalizer
	retry      *RetryPolicy
	sink       *Sink
	logger     arbor.ILogger

	batchSize  int
	batchPause time.Duration
	sleep      func(ctx context.Context, d time.Duration) error

	running atomic.Bool

	mu      sync.RWMutex
	lastRun *models.RunSummary
}

// NewService creates an export service wired to the given source client
// and sink.
func NewService(client interfaces.SourceClient, sink *Sink, config common.ExportConfig, logger arbor.ILogger) *Service {
	return &Service{
		client:     client,
		normalizer: NewNormalizer(logger),
		retry:      NewRetryPolicy(),
		sink:       sink,
		logger:     logger,
		batchSize:  config.BatchSize,
		batchPause: config.BatchPause,
		sleep:      sleepContext,
	}
}

// Run executes a full export run synchronously and returns its summary.
// Returns ErrRunInProgress when another run holds the single-flight slot.
// A context abort ends the run between batches; the partial summary is
// still recorded and returned.
func (s *Service) Run(ctx context.Context) (*models.RunSummary, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer s.running.Store(false)

	return s.run(ctx, common.NewRunID())
}

// StartRun launches an export run in the background and returns its run
// ID immediately. Returns ErrRunInProgress when a run is already active.
func (s *Service) StartRun() (string, error) {
	if !s.running.CompareAndSwap(false, true) {
		return "", ErrRunInProgress
	}

	runID := common.NewRunID()
	common.SafeGo(s.logger, "exportRun", func() {
		defer s.running.Store(false)

		ctx, cancel := context.WithTimeout(context.Background(), DefaultRunTimeout)
		defer cancel()

		s.run(ctx, runID)
	})

	return runID, nil
}

// IsRunning reports whether an export run is currently in progress.
func (s *Service) IsRunning() bool {
	return s.running.Load()
}

// LastRun returns a snapshot of the most recently completed run, or nil
// when no run has finished since startup.
func (s *Service) LastRun() *models.RunSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.lastRun == nil {
		return nil
	}

	summary := *s.lastRun
	summary.Sources = append([]models.SourceResult(nil), s.lastRun.Sources...)
	return &summary
}

func (s *Service) run(ctx context.Context, runID string) (*models.RunSummary, error) {
	logger := s.logger.WithCorrelationId(runID)

	exchanges := models.Exchanges()
	batches := partition(exchanges, s.batchSize)

	summary := &models.RunSummary{
		RunID:        runID,
		StartedAt:    time.Now().UTC(),
		Batches:      len(batches),
		SourcesTotal: len(exchanges),
	}

	logger.Info().
		Int("exchanges", len(exchanges)).
		Int("batches", len(batches)).
		Int("batch_size", s.batchSize).
		Dur("batch_pause", s.batchPause).
		Msg("Starting market data export run")

	for i, batch := range batches {
		logger.Info().
			Int("batch", i+1).
			Int("batches", len(batches)).
			Strs("exchanges", exchangeCodes(batch)).
			Msg("Processing batch")

		for _, exchange := range batch {
			result := s.exportExchange(ctx, logger, exchange)
			summary.Sources = append(summary.Sources, result)
			if result.Success {
				summary.SourcesOK++
			}
		}

		// Pause between batches, not after the final one
		if i < len(batches)-1 {
			logger.Debug().Dur("pause", s.batchPause).Msg("Pausing between batches")
			if err := s.sleep(ctx, s.batchPause); err != nil {
				summary.FinishedAt = time.Now().UTC()
				s.setLastRun(summary)
				logger.Warn().Err(err).Msg("Export run aborted")
				return summary, err
			}
		}
	}

	summary.FinishedAt = time.Now().UTC()
	s.setLastRun(summary)

	logger.Info().
		Int("succeeded", summary.SourcesOK).
		Int("failed", summary.SourcesTotal-summary.SourcesOK).
		Dur("duration", summary.Duration()).
		Msg("Export run complete")

	return summary, nil
}

func (s *Service) exportExchange(ctx context.Context, logger arbor.ILogger, exchange models.Exchange) models.SourceResult {
	result := models.SourceResult{Code: exchange.Code, Name: exchange.Name}

	fetcher, err := s.client.Resolve(exchange)
	if err != nil {
		result.Error = err.Error()
		logger.Error().
			Str("exchange", exchange.Code).
			Err(err).
			Msg("Exchange setup failed")
		return result
	}

	// Setup succeeded: the exchange counts as successful even when
	// individual datasets fail below.
	result.Success = true

	logger.Info().
		Str("exchange", exchange.Code).
		Str("name", exchange.Name).
		Msg("Exporting exchange datasets")

	for _, kind := range models.DatasetKinds() {
		result.Datasets = append(result.Datasets, s.exportDataset(ctx, logger, fetcher, exchange, kind))
	}

	return result
}

func (s *Service) exportDataset(ctx context.Context, logger arbor.ILogger, fetcher interfaces.ExchangeFetcher, exchange models.Exchange, kind models.DatasetKind) models.DatasetResult {
	result := models.DatasetResult{Kind: kind}

	var records interface{}
	var count int

	err := s.retry.ExecuteWithRetry(ctx, logger, func() error {
		table, fetchErr := fetcher.Fetch(ctx, kind)
		if fetchErr != nil {
			return fetchErr
		}

		var normErr error
		records, count, normErr = s.normalizer.Normalize(kind, table)
		return normErr
	})

	if err != nil && !errors.Is(err, ErrNoData) {
		result.Error = err.Error()
		logger.Error().
			Str("exchange", exchange.Code).
			Str("dataset", string(kind)).
			Err(err).
			Msg("Dataset export failed")
		return result
	}

	// An empty table still produces a file so the API serves a stable
	// shape; it just holds zero records.
	if errors.Is(err, ErrNoData) {
		logger.Warn().
			Str("exchange", exchange.Code).
			Str("dataset", string(kind)).
			Msg("No rows returned for dataset")
	}

	if writeErr := s.sink.Write(exchange.Code, kind, records); writeErr != nil {
		result.Error = writeErr.Error()
		logger.Error().
			Str("exchange", exchange.Code).
			Str("dataset", string(kind)).
			Err(writeErr).
			Msg("Dataset write failed")
		return result
	}

	result.Records = count
	logger.Info().
		Str("exchange", exchange.Code).
		Str("dataset", string(kind)).
		Int("records", count).
		Msg("Dataset exported")

	return result
}

func (s *Service) setLastRun(summary *models.RunSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastRun = summary
}

// partition splits exchanges into contiguous batches, preserving
// registry order. Sizes below one degrade to one exchange per batch.
func partition(exchanges []models.Exchange, size int) [][]models.Exchange {
	if size < 1 {
		size = 1
	}

	var batches [][]models.Exchange
	for start := 0; start < len(exchanges); start += size {
		end := start + size
		if end > len(exchanges) {
			end = len(exchanges)
		}
		batches = append(batches, exchanges[start:end])
	}
	return batches
}

func exchangeCodes(exchanges []models.Exchange) []string {
	codes := make([]string, len(exchanges))
	for i, exchange := range exchanges {
		codes[i] = exchange.Code
	}
	return codes
}

func sleepContext(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
