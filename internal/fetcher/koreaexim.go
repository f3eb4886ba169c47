package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/leeinprogress/aws-currency-tracker/internal/rates"
)

// ErrNoRates indicates the provider published nothing for the requested
// date, which happens on weekends and bank holidays. The fetch cycle is
// skipped, not failed.
var ErrNoRates = errors.New("no exchange rates available")

// KoreaEximOptions parameterise the KoreaExim open-API client.
type KoreaEximOptions struct {
	BaseURL      string
	AuthKey      string
	BaseCurrency string
	Timeout      time.Duration
}

// KoreaExim fetches daily exchange rates from the Korea Export-Import Bank
// open API. All quotes are expressed against KRW.
//
// Provider contract note: the API returns a bare JSON array (no result
// envelope) whose items carry UPPER-CASE field names, and rate values are
// comma-formatted strings such as "1,350.50".
type KoreaExim struct {
	opts    KoreaEximOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
	now     func() time.Time
}

// NewKoreaExim constructs a KoreaExim fetcher.
func NewKoreaExim(opts KoreaEximOptions, logger zerolog.Logger) *KoreaExim {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://www.koreaexim.go.kr/ir/HPHKIR020M01"
	}

	return &KoreaExim{
		opts:    opts,
		logger:  logger.With().Str("component", "koreaexim_fetcher").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
		now:     time.Now,
	}
}

type rateItem struct {
	CurUnit  string `json:"CUR_UNIT"`
	CurName  string `json:"CUR_NM"`
	TTS      string `json:"TTS"`
	TTB      string `json:"TTB"`
	DealBase string `json:"DEAL_BAS_R"`
}

// FetchBundle retrieves today's rate table and normalises it into a Bundle.
func (k *KoreaExim) FetchBundle(ctx context.Context) (rates.Bundle, error) {
	if k.opts.AuthKey == "" {
		return rates.Bundle{}, errors.New("koreaexim auth key not configured")
	}

	fetchedAt := k.now().UTC()

	params := url.Values{}
	params.Set("apino", "2")
	params.Set("viewtype", "C")
	params.Set("authkey", k.opts.AuthKey)
	params.Set("searchdate", fetchedAt.Format("20060102"))
	params.Set("data", "AP01")

	endpoint := k.baseURL + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return rates.Bundle{}, fmt.Errorf("create koreaexim request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := k.client.Do(req)
	if err != nil {
		return rates.Bundle{}, fmt.Errorf("fetch koreaexim rates: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return rates.Bundle{}, fmt.Errorf("read koreaexim response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return rates.Bundle{}, fmt.Errorf("koreaexim returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var items []rateItem
	if err := json.Unmarshal(payload, &items); err != nil {
		return rates.Bundle{}, fmt.Errorf("decode koreaexim response: %w", err)
	}

	if len(items) == 0 {
		return rates.Bundle{}, ErrNoRates
	}

	bundle := rates.Bundle{
		BaseCurrency: strings.ToUpper(k.opts.BaseCurrency),
		Quotes:       make(map[string]rates.Quote, len(items)),
		Timestamp:    fetchedAt,
	}

	for _, item := range items {
		code := strings.ToUpper(strings.TrimSpace(item.CurUnit))
		if code == "" {
			continue
		}
		bundle.Quotes[code] = rates.Quote{
			DisplayName: strings.TrimSpace(item.CurName),
			TTS:         parseOptionalRate(item.TTS),
			TTB:         parseOptionalRate(item.TTB),
			DealBase:    parseOptionalRate(item.DealBase),
		}
	}

	if len(bundle.Quotes) == 0 {
		return rates.Bundle{}, ErrNoRates
	}

	k.logger.Info().
		Int("currencies", len(bundle.Quotes)).
		Str("base_currency", bundle.BaseCurrency).
		Msg("fetched exchange rates")

	return bundle, nil
}

// parseOptionalRate treats unparseable provider values as absent so that the
// evaluator skips the affected alerts instead of comparing against zero.
func parseOptionalRate(v string) *decimal.Decimal {
	d, err := rates.ParseCommaDecimal(v)
	if err != nil {
		return nil
	}
	return &d
}

var _ RateFetcher = (*KoreaExim)(nil)
