package ports

import (
	"context"
	"time"

	"github.com/donkeithross3-commits/ma-tracker-app-sub001/internal/domain"
)

// ChainRequest bounds the contracts a provider has to fetch.
type ChainRequest struct {
	Ticker     string
	StrikeMin  float64
	StrikeMax  float64
	ExpiryFrom time.Time
	ExpiryTo   time.Time
}

// ChainProvider obtains a point-in-time option chain from the market-data connection.
type ChainProvider interface {
	// FetchChain returns the underlying spot and every contract within the requested
	// strike and expiration ranges. Providers may return a superset; the scanner filters.
	FetchChain(ctx context.Context, req ChainRequest) (domain.ChainSnapshot, error)
}
