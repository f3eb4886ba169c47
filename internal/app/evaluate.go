package app

import (
	"context"
	"fmt"
	"os"

	"github.com/leeinprogress/aws-currency-tracker/internal/rates"
)

// EvaluateEvent runs one evaluation pass over a rates-updated event document
// read from a file, against the live alert store. The document uses the same
// shape the fetcher publishes: base_currency, rates map, timestamp.
func (a *App) EvaluateEvent(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read event file: %w", err)
	}

	bundle, err := rates.ParseBundle(data)
	if err != nil {
		return err
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	result, err := a.newEvaluator(store).Evaluate(ctx, bundle)
	if err != nil {
		return err
	}

	a.Logger.Info().
		Int("checked", result.Checked).
		Int("triggered", len(result.Triggered)).
		Strs("alert_ids", result.Triggered).
		Msg("event evaluated")
	return nil
}
