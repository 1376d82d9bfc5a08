package interfaces

import (
	"context"

	"github.com/ternarybob/mercatus/internal/models"
)

// SourceClient resolves exchanges against an upstream market-data source.
//
// Resolve is a pure lookup: it fails for exchanges the source does not
// support but performs no network traffic. The returned fetcher carries
// the exchange context for subsequent dataset requests.
type SourceClient interface {
	Resolve(exchange models.Exchange) (ExchangeFetcher, error)
}

// ExchangeFetcher retrieves raw dataset tables for a single exchange.
//
// Fetch performs one upstream request per call and returns the parsed
// table as-is. It does not retry; callers own the retry policy.
type ExchangeFetcher interface {
	Fetch(ctx context.Context, kind models.DatasetKind) (*models.RawTable, error)
}
