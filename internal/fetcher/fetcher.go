package fetcher

import (
	"context"

	"github.com/leeinprogress/aws-currency-tracker/internal/rates"
)

// RateFetcher retrieves the current rate table from the upstream provider
// and normalises it into a bundle for one base currency.
type RateFetcher interface {
	FetchBundle(ctx context.Context) (rates.Bundle, error)
}
