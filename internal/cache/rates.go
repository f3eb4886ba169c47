package cache

import (
	"fmt"
	"strings"

	"github.com/dgraph-io/ristretto"

	"github.com/leeinprogress/aws-currency-tracker/internal/rates"
)

// RateCache holds the most recently published bundle per base currency so
// the HTTP API can serve current rates without touching the provider.
type RateCache struct {
	cache *ristretto.Cache
}

// NewRateCache constructs the latest-rates cache.
func NewRateCache(maxItems int64) (*RateCache, error) {
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10 * maxItems,
		MaxCost:     maxItems,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create rate cache: %w", err)
	}
	return &RateCache{cache: c}, nil
}

// SetBundle stores the bundle as the latest for its base currency.
func (c *RateCache) SetBundle(b rates.Bundle) {
	c.cache.Set(toKey(b.BaseCurrency), b, 1)
	c.cache.Wait()
}

// Bundle returns the latest bundle for a base currency, if one was published.
func (c *RateCache) Bundle(baseCurrency string) (rates.Bundle, bool) {
	if v, ok := c.cache.Get(toKey(baseCurrency)); ok {
		b, ok := v.(rates.Bundle)
		return b, ok
	}
	return rates.Bundle{}, false
}

// Close releases cache resources.
func (c *RateCache) Close() { c.cache.Close() }

func toKey(baseCurrency string) string {
	return strings.ToUpper(strings.TrimSpace(baseCurrency))
}
