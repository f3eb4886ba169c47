package app

import (
	"context"
)

// FetchOnce executes a single fetch-evaluate cycle immediately, outside the
// scheduler. Useful for smoke-testing a deployment.
func (a *App) FetchOnce(ctx context.Context) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	bundle, err := a.newFetcher().FetchBundle(ctx)
	if err != nil {
		return err
	}

	result, err := a.newEvaluator(store).Evaluate(ctx, bundle)
	if err != nil {
		return err
	}

	a.Logger.Info().
		Int("checked", result.Checked).
		Int("triggered", len(result.Triggered)).
		Strs("alert_ids", result.Triggered).
		Msg("one-shot cycle complete")
	return nil
}
