package rates

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrMalformedBundle marks a rates-updated event that cannot be evaluated.
// The whole pass is aborted; the fetch cycle that produced it is lost.
var ErrMalformedBundle = errors.New("malformed rate bundle")

// Bundle is the result of one fetch cycle: every quote published against a
// single base currency, plus the fetch timestamp. Bundles are immutable once
// published and consumed by exactly one evaluation pass.
type Bundle struct {
	BaseCurrency string
	Quotes       map[string]Quote
	Timestamp    time.Time
}

// Quote looks up the quote for a target currency, case-insensitively.
func (b Bundle) Quote(code string) (Quote, bool) {
	q, ok := b.Quotes[strings.ToUpper(strings.TrimSpace(code))]
	return q, ok
}

// Validate checks the invariants every evaluation pass depends on.
func (b Bundle) Validate() error {
	if strings.TrimSpace(b.BaseCurrency) == "" {
		return fmt.Errorf("%w: missing base currency", ErrMalformedBundle)
	}
	if len(b.Quotes) == 0 {
		return fmt.Errorf("%w: empty rates map", ErrMalformedBundle)
	}
	return nil
}

// flexRate decodes a quote field that may arrive as a JSON number or as a
// comma-formatted string ("1,350.50"). Null, empty, or unparseable values
// decode as absent rather than failing the whole document; a missing field
// is a per-alert skip, not a malformed event.
type flexRate struct {
	value decimal.Decimal
	valid bool
}

func (f *flexRate) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		d, perr := ParseCommaDecimal(s)
		if perr != nil {
			return nil
		}
		f.value, f.valid = d, true
		return nil
	}

	var d decimal.Decimal
	if err := json.Unmarshal(data, &d); err != nil {
		return nil
	}
	f.value, f.valid = d, true
	return nil
}

func (f flexRate) ptr() *decimal.Decimal {
	if !f.valid {
		return nil
	}
	v := f.value
	return &v
}

type quoteDoc struct {
	DisplayName string   `json:"cur_nm"`
	TTS         flexRate `json:"TTS"`
	TTB         flexRate `json:"TTB"`
	DealBase    flexRate `json:"DEAL_BAS_R"`
}

type bundleDoc struct {
	BaseCurrency string              `json:"base_currency"`
	Rates        map[string]quoteDoc `json:"rates"`
	Timestamp    string              `json:"timestamp"`
}

// ParseBundle decodes an inbound rates-updated event document into a Bundle.
// Currency codes are upper-cased. A document without a base currency or
// without any rates fails with ErrMalformedBundle.
func ParseBundle(data []byte) (Bundle, error) {
	var doc bundleDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return Bundle{}, fmt.Errorf("%w: %v", ErrMalformedBundle, err)
	}

	bundle := Bundle{
		BaseCurrency: strings.ToUpper(strings.TrimSpace(doc.BaseCurrency)),
		Quotes:       make(map[string]Quote, len(doc.Rates)),
	}

	for code, q := range doc.Rates {
		bundle.Quotes[strings.ToUpper(strings.TrimSpace(code))] = Quote{
			DisplayName: q.DisplayName,
			TTS:         q.TTS.ptr(),
			TTB:         q.TTB.ptr(),
			DealBase:    q.DealBase.ptr(),
		}
	}

	if doc.Timestamp != "" {
		ts, err := time.Parse(time.RFC3339, doc.Timestamp)
		if err != nil {
			// Tolerate timestamps without a zone designator.
			ts, err = time.Parse("2006-01-02T15:04:05", doc.Timestamp)
		}
		if err == nil {
			bundle.Timestamp = ts
		}
	}

	if err := bundle.Validate(); err != nil {
		return Bundle{}, err
	}
	return bundle, nil
}
