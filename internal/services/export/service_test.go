package export

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/mercatus/internal/common"
	"github.com/ternarybob/mercatus/internal/interfaces"
	"github.com/ternarybob/mercatus/internal/models"
)

// fakeClient implements interfaces.SourceClient for testing
type fakeClient struct {
	resolveFunc func(exchange models.Exchange) (interfaces.ExchangeFetcher, error)
}

func (f *fakeClient) Resolve(exchange models.Exchange) (interfaces.ExchangeFetcher, error) {
	return f.resolveFunc(exchange)
}

// fakeFetcher implements interfaces.ExchangeFetcher for testing
type fakeFetcher struct {
	fetchFunc func(ctx context.Context, kind models.DatasetKind) (*models.RawTable, error)
}

func (f *fakeFetcher) Fetch(ctx context.Context, kind models.DatasetKind) (*models.RawTable, error) {
	return f.fetchFunc(ctx, kind)
}

// marketTable is a plausible table for any dataset kind
func marketTable() *models.RawTable {
	return &models.RawTable{
		Columns: []string{"Ticker", "Name", "Price", "Change", "Volume"},
		Rows: [][]interface{}{
			{"SAFCOM", "Safaricom Plc", "15.2", "1.4", "1200500"},
			{"EQTY", "Equity Group Holdings", "44.0", "0.8", "890100"},
		},
	}
}

func happyClient() *fakeClient {
	return &fakeClient{
		resolveFunc: func(exchange models.Exchange) (interfaces.ExchangeFetcher, error) {
			return &fakeFetcher{
				fetchFunc: func(ctx context.Context, kind models.DatasetKind) (*models.RawTable, error) {
					return marketTable(), nil
				},
			}, nil
		},
	}
}

// newTestService wires a service with a temp sink, fast retries, and a
// pause recorder instead of real sleeps
func newTestService(t *testing.T, client interfaces.SourceClient, pauses *[]time.Duration) *Service {
	t.Helper()

	logger := createTestLogger()
	sink, err := NewSink(t.TempDir(), logger)
	require.NoError(t, err)

	config := common.ExportConfig{
		OutputDir:  sink.dir,
		BatchSize:  3,
		BatchPause: 5 * time.Second,
	}

	svc := NewService(client, sink, config, logger)
	svc.retry = fastRetryPolicy()
	svc.sleep = func(ctx context.Context, d time.Duration) error {
		if pauses != nil {
			*pauses = append(*pauses, d)
		}
		return nil
	}
	return svc
}

func TestServiceRun(t *testing.T) {
	t.Run("walks the registry in batches with pauses between them", func(t *testing.T) {
		var pauses []time.Duration
		svc := newTestService(t, happyClient(), &pauses)

		summary, err := svc.Run(context.Background())
		require.NoError(t, err)

		// Ten exchanges in batches of three
		assert.Equal(t, 4, summary.Batches)
		assert.Equal(t, 10, summary.SourcesTotal)
		assert.Equal(t, 10, summary.SourcesOK)
		require.Len(t, summary.Sources, 10)

		// Registry order is preserved across batches
		assert.Equal(t, "bse", summary.Sources[0].Code)
		assert.Equal(t, "brvm", summary.Sources[1].Code)
		assert.Equal(t, "zse", summary.Sources[9].Code)

		// Pauses between batches only, never after the last
		assert.Equal(t, []time.Duration{5 * time.Second, 5 * time.Second, 5 * time.Second}, pauses)

		// Four dataset files per exchange
		entries, err := os.ReadDir(svc.sink.dir)
		require.NoError(t, err)
		assert.Len(t, entries, 40)

		for _, source := range summary.Sources {
			require.Len(t, source.Datasets, 4)
			for _, dataset := range source.Datasets {
				assert.Equal(t, 2, dataset.Records)
				assert.Empty(t, dataset.Error)
			}
		}
	})

	t.Run("setup failure skips the exchange but not the run", func(t *testing.T) {
		client := &fakeClient{
			resolveFunc: func(exchange models.Exchange) (interfaces.ExchangeFetcher, error) {
				if exchange.Code == "gse" {
					return nil, errors.New("exchange unavailable")
				}
				return &fakeFetcher{
					fetchFunc: func(ctx context.Context, kind models.DatasetKind) (*models.RawTable, error) {
						return marketTable(), nil
					},
				}, nil
			},
		}

		svc := newTestService(t, client, nil)
		summary, err := svc.Run(context.Background())
		require.NoError(t, err)

		assert.Equal(t, 9, summary.SourcesOK)

		var gse models.SourceResult
		for _, source := range summary.Sources {
			if source.Code == "gse" {
				gse = source
			}
		}
		assert.False(t, gse.Success)
		assert.Contains(t, gse.Error, "exchange unavailable")
		assert.Empty(t, gse.Datasets)

		// No files for the failed exchange, later exchanges unaffected
		_, err = svc.sink.Read("gse", models.DatasetIndex)
		assert.True(t, os.IsNotExist(err))
		_, err = svc.sink.Read("jse", models.DatasetIndex)
		assert.NoError(t, err)
	})

	t.Run("dataset failure leaves the exchange successful", func(t *testing.T) {
		var companiesFetches atomic.Int32
		client := &fakeClient{
			resolveFunc: func(exchange models.Exchange) (interfaces.ExchangeFetcher, error) {
				return &fakeFetcher{
					fetchFunc: func(ctx context.Context, kind models.DatasetKind) (*models.RawTable, error) {
						if exchange.Code == "nse" && kind == models.DatasetCompanies {
							companiesFetches.Add(1)
							return nil, errors.New("listed companies page broken")
						}
						return marketTable(), nil
					},
				}, nil
			},
		}

		svc := newTestService(t, client, nil)
		summary, err := svc.Run(context.Background())
		require.NoError(t, err)

		// Setup succeeded everywhere, so every exchange counts
		assert.Equal(t, 10, summary.SourcesOK)

		var nse models.SourceResult
		for _, source := range summary.Sources {
			if source.Code == "nse" {
				nse = source
			}
		}
		require.True(t, nse.Success)
		require.Len(t, nse.Datasets, 4)

		failed := nse.Datasets[3]
		assert.Equal(t, models.DatasetCompanies, failed.Kind)
		assert.Contains(t, failed.Error, "listed companies page broken")

		// The fetch was retried to exhaustion
		assert.Equal(t, int32(3), companiesFetches.Load())

		// Failed dataset has no file; siblings were written
		_, err = svc.sink.Read("nse", models.DatasetCompanies)
		assert.True(t, os.IsNotExist(err))
		_, err = svc.sink.Read("nse", models.DatasetGainers)
		assert.NoError(t, err)
	})

	t.Run("empty table writes an empty dataset file", func(t *testing.T) {
		client := &fakeClient{
			resolveFunc: func(exchange models.Exchange) (interfaces.ExchangeFetcher, error) {
				return &fakeFetcher{
					fetchFunc: func(ctx context.Context, kind models.DatasetKind) (*models.RawTable, error) {
						return &models.RawTable{}, nil
					},
				}, nil
			},
		}

		svc := newTestService(t, client, nil)
		summary, err := svc.Run(context.Background())
		require.NoError(t, err)

		assert.Equal(t, 10, summary.SourcesOK)
		for _, source := range summary.Sources {
			for _, dataset := range source.Datasets {
				assert.Equal(t, 0, dataset.Records)
				assert.Empty(t, dataset.Error)
			}
		}

		data, err := svc.sink.Read("bse", models.DatasetIndex)
		require.NoError(t, err)
		assert.Equal(t, "[]", string(data))
	})

	t.Run("abort between batches keeps the partial summary", func(t *testing.T) {
		svc := newTestService(t, happyClient(), nil)
		svc.sleep = func(ctx context.Context, d time.Duration) error {
			return context.Canceled
		}

		summary, err := svc.Run(context.Background())
		assert.ErrorIs(t, err, context.Canceled)

		// Only the first batch completed
		require.Len(t, summary.Sources, 3)
		assert.False(t, summary.FinishedAt.IsZero())

		last := svc.LastRun()
		require.NotNil(t, last)
		assert.Len(t, last.Sources, 3)
	})
}

// tableClient serves one fixed table for every exchange and kind
func tableClient(table *models.RawTable) *fakeClient {
	return &fakeClient{
		resolveFunc: func(exchange models.Exchange) (interfaces.ExchangeFetcher, error) {
			return &fakeFetcher{
				fetchFunc: func(ctx context.Context, kind models.DatasetKind) (*models.RawTable, error) {
					return table, nil
				},
			}, nil
		},
	}
}

func TestServiceRun_GainersFileContent(t *testing.T) {
	svc := newTestService(t, tableClient(&models.RawTable{
		Rows: [][]interface{}{
			{"SAFCOM", "15.2", "+1.4%"},
			{"", "", ""},
		},
	}), nil)

	_, err := svc.Run(context.Background())
	require.NoError(t, err)

	data, err := svc.sink.Read("nse", models.DatasetGainers)
	require.NoError(t, err)

	// The blank row is dropped rather than defaulted
	var records []map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &records))
	require.Len(t, records, 1)
	assert.Equal(t, "SAFCOM", records[0]["ticker"])
	assert.Equal(t, 15.2, records[0]["price"])
	assert.Equal(t, "+1.4%", records[0]["change"])
}

func TestServiceRun_CompaniesFileContent(t *testing.T) {
	svc := newTestService(t, tableClient(&models.RawTable{
		Columns: []string{"Ticker", "Name", "Volume", "Price", "Change"},
		Rows: [][]interface{}{
			{"EQTY", "Equity Group", "", "", ""},
		},
	}), nil)

	_, err := svc.Run(context.Background())
	require.NoError(t, err)

	data, err := svc.sink.Read("nse", models.DatasetCompanies)
	require.NoError(t, err)

	var records []models.CompanyRecord
	require.NoError(t, json.Unmarshal(data, &records))
	require.Len(t, records, 1)
	assert.Equal(t, models.CompanyRecord{
		Ticker: "EQTY",
		Name:   "Equity Group",
		Volume: "N/A",
		Price:  0,
		Change: 0,
	}, records[0])
}

func TestServiceSingleFlight(t *testing.T) {
	started := make(chan struct{}, 1)
	release := make(chan struct{})

	client := &fakeClient{
		resolveFunc: func(exchange models.Exchange) (interfaces.ExchangeFetcher, error) {
			return &fakeFetcher{
				fetchFunc: func(ctx context.Context, kind models.DatasetKind) (*models.RawTable, error) {
					select {
					case started <- struct{}{}:
					default:
					}
					<-release
					return marketTable(), nil
				},
			}, nil
		},
	}

	svc := newTestService(t, client, nil)

	runID, err := svc.StartRun()
	require.NoError(t, err)
	assert.Contains(t, runID, "run_")

	// Wait until the run is inside its first fetch
	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("export run never started fetching")
	}
	assert.True(t, svc.IsRunning())

	_, err = svc.Run(context.Background())
	assert.ErrorIs(t, err, ErrRunInProgress)

	_, err = svc.StartRun()
	assert.ErrorIs(t, err, ErrRunInProgress)

	close(release)
	require.Eventually(t, func() bool { return !svc.IsRunning() }, 10*time.Second, 10*time.Millisecond)

	last := svc.LastRun()
	require.NotNil(t, last)
	assert.Equal(t, runID, last.RunID)
	assert.Equal(t, 10, last.SourcesTotal)
}

func TestServiceLastRunSnapshot(t *testing.T) {
	svc := newTestService(t, happyClient(), nil)

	assert.Nil(t, svc.LastRun())

	_, err := svc.Run(context.Background())
	require.NoError(t, err)

	first := svc.LastRun()
	require.NotNil(t, first)

	// Mutating the snapshot must not leak into the service
	first.Sources[0].Code = "mutated"

	second := svc.LastRun()
	assert.Equal(t, "bse", second.Sources[0].Code)
}

func TestPartition(t *testing.T) {
	exchanges := models.Exchanges()

	t.Run("splits into contiguous batches", func(t *testing.T) {
		batches := partition(exchanges, 3)
		require.Len(t, batches, 4)
		assert.Len(t, batches[0], 3)
		assert.Len(t, batches[3], 1)
		assert.Equal(t, "bse", batches[0][0].Code)
		assert.Equal(t, "zse", batches[3][0].Code)
	})

	t.Run("oversized batch covers everything", func(t *testing.T) {
		batches := partition(exchanges, 25)
		require.Len(t, batches, 1)
		assert.Len(t, batches[0], len(exchanges))
	})

	t.Run("degenerate size falls back to one per batch", func(t *testing.T) {
		batches := partition(exchanges, 0)
		assert.Len(t, batches, len(exchanges))
	})
}
