package afrimarket

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/mercatus/internal/models"
)

// createTestLogger creates a logger for testing
func createTestLogger() arbor.ILogger {
	return arbor.NewLogger()
}

func mustExchange(t *testing.T, code string) models.Exchange {
	t.Helper()
	exchange, ok := models.FindExchange(code)
	require.True(t, ok)
	return exchange
}

func TestClientResolve(t *testing.T) {
	client := NewClient(WithLogger(createTestLogger()))

	t.Run("known exchange", func(t *testing.T) {
		fetcher, err := client.Resolve(mustExchange(t, "nse"))
		require.NoError(t, err)
		assert.NotNil(t, fetcher)
	})

	t.Run("unknown exchange", func(t *testing.T) {
		_, err := client.Resolve(models.Exchange{Code: "nyse", Name: "New York Stock Exchange"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported exchange")
	})
}

func TestFetcherFetch(t *testing.T) {
	var gotPath, gotUserAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUserAgent = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(gainersPage))
	}))
	defer server.Close()

	client := NewClient(
		WithBaseURL(server.URL),
		WithRateLimit(100),
		WithLogger(createTestLogger()),
	)

	fetcher, err := client.Resolve(mustExchange(t, "nse"))
	require.NoError(t, err)

	table, err := fetcher.Fetch(context.Background(), models.DatasetGainers)
	require.NoError(t, err)

	assert.Equal(t, "/en/stock-markets/nse/gainers", gotPath)
	assert.Equal(t, DefaultUserAgent, gotUserAgent)
	assert.Equal(t, []string{"Company", "Price", "Change"}, table.Columns)
	assert.Len(t, table.Rows, 2)
}

func TestFetcherFetch_DatasetPaths(t *testing.T) {
	paths := map[models.DatasetKind]string{
		models.DatasetIndex:     "/en/stock-markets/jse/index",
		models.DatasetGainers:   "/en/stock-markets/jse/gainers",
		models.DatasetLosers:    "/en/stock-markets/jse/losers",
		models.DatasetCompanies: "/en/stock-markets/jse/listed-companies",
	}

	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(gainersPage))
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL), WithRateLimit(100))
	fetcher, err := client.Resolve(mustExchange(t, "jse"))
	require.NoError(t, err)

	for kind, expected := range paths {
		_, err := fetcher.Fetch(context.Background(), kind)
		require.NoError(t, err)
		assert.Equal(t, expected, gotPath)
	}
}

func TestFetcherFetch_SourceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL), WithRateLimit(100))
	fetcher, err := client.Resolve(mustExchange(t, "bse"))
	require.NoError(t, err)

	_, err = fetcher.Fetch(context.Background(), models.DatasetIndex)
	require.Error(t, err)

	var sourceErr *SourceError
	require.True(t, errors.As(err, &sourceErr))
	assert.Equal(t, http.StatusNotFound, sourceErr.StatusCode)
	assert.Equal(t, "/en/stock-markets/bse/index", sourceErr.Endpoint)
}

func TestFetcherFetch_UnknownKind(t *testing.T) {
	client := NewClient(WithRateLimit(100))
	fetcher, err := client.Resolve(mustExchange(t, "use"))
	require.NoError(t, err)

	_, err = fetcher.Fetch(context.Background(), models.DatasetKind("dividends"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown dataset kind")
}

func TestFetcherFetch_EmptyPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body><p>market closed</p></body></html>"))
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL), WithRateLimit(100))
	fetcher, err := client.Resolve(mustExchange(t, "mse"))
	require.NoError(t, err)

	table, err := fetcher.Fetch(context.Background(), models.DatasetLosers)
	require.NoError(t, err)
	assert.True(t, table.Empty())
}
