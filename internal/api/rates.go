package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/leeinprogress/aws-currency-tracker/internal/rates"
)

type quoteResponse struct {
	DisplayName string   `json:"cur_nm"`
	TTS         *float64 `json:"TTS,omitempty"`
	TTB         *float64 `json:"TTB,omitempty"`
	DealBase    *float64 `json:"DEAL_BAS_R,omitempty"`
}

type ratesResponse struct {
	BaseCurrency string                   `json:"base_currency"`
	Rates        map[string]quoteResponse `json:"rates"`
	Timestamp    string                   `json:"timestamp"`
}

// handleGetRates serves the most recently published bundle for a base
// currency from the latest-rates cache.
func (s *Server) handleGetRates(w http.ResponseWriter, r *http.Request) {
	base := chi.URLParam(r, "base")

	bundle, ok := s.cachedBundle(base)
	if !ok {
		writeError(w, http.StatusNotFound, "no rates published for this base currency yet")
		return
	}

	resp := ratesResponse{
		BaseCurrency: bundle.BaseCurrency,
		Rates:        make(map[string]quoteResponse, len(bundle.Quotes)),
		Timestamp:    bundle.Timestamp.UTC().Format(time.RFC3339),
	}
	for code, q := range bundle.Quotes {
		resp.Rates[code] = quoteResponse{
			DisplayName: q.DisplayName,
			TTS:         toFloat(q.TTS),
			TTB:         toFloat(q.TTB),
			DealBase:    toFloat(q.DealBase),
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) cachedBundle(base string) (rates.Bundle, bool) {
	if s.rateCache == nil {
		return rates.Bundle{}, false
	}
	return s.rateCache.Bundle(base)
}

func toFloat(d *decimal.Decimal) *float64 {
	if d == nil {
		return nil
	}
	f := d.InexactFloat64()
	return &f
}
