package evaluator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/leeinprogress/aws-currency-tracker/internal/alerting"
	"github.com/leeinprogress/aws-currency-tracker/internal/metrics"
	"github.com/leeinprogress/aws-currency-tracker/internal/rates"
	"github.com/leeinprogress/aws-currency-tracker/internal/storage"
)

// AlertSource provides the read snapshot an evaluation pass runs against.
type AlertSource interface {
	ListActiveAlertsByBase(ctx context.Context, baseCurrency string) ([]storage.Alert, error)
}

// Options tune notification fan-out.
type Options struct {
	// DispatchWorkers caps concurrent notification sends.
	DispatchWorkers int
	// DispatchTimeout bounds each individual send so a slow delivery cannot
	// stall the rest of the batch.
	DispatchTimeout time.Duration
}

// Evaluator runs one evaluation pass per rate bundle: it reads the active
// alerts for the bundle's base currency, checks each threshold condition,
// and dispatches a notification for every newly satisfied alert. The
// evaluator never writes to the store.
type Evaluator struct {
	alerts   AlertSource
	notifier alerting.Notifier
	opts     Options
	logger   zerolog.Logger
}

// New constructs an Evaluator.
func New(alerts AlertSource, notifier alerting.Notifier, opts Options, logger zerolog.Logger) *Evaluator {
	if opts.DispatchWorkers <= 0 {
		opts.DispatchWorkers = 4
	}
	if opts.DispatchTimeout <= 0 {
		opts.DispatchTimeout = 5 * time.Second
	}
	return &Evaluator{
		alerts:   alerts,
		notifier: notifier,
		opts:     opts,
		logger:   logger.With().Str("component", "evaluator").Logger(),
	}
}

// Evaluate runs a single pass over the given bundle.
//
// Failure semantics: a malformed bundle or a store read failure aborts the
// whole pass; the next fetch cycle is the retry. Per-alert problems (missing
// quote, missing field, unknown condition, dispatch failure) are isolated
// outcomes that never abort the batch.
func (e *Evaluator) Evaluate(ctx context.Context, bundle rates.Bundle) (Result, error) {
	start := time.Now()
	defer func() {
		metrics.EvaluationDuration.Observe(time.Since(start).Seconds())
	}()

	if err := bundle.Validate(); err != nil {
		return Result{}, err
	}

	snapshot, err := e.alerts.ListActiveAlertsByBase(ctx, bundle.BaseCurrency)
	if err != nil {
		return Result{}, fmt.Errorf("read alert snapshot: %w", err)
	}

	checked := 0
	satisfied := make([]alerting.TriggerEvent, 0)

	for _, alert := range snapshot {
		if !alert.IsActive {
			// The store contract excludes inactive alerts; anything that
			// slips through is not evaluated and not counted.
			continue
		}
		checked++

		event, skip := e.check(alert, bundle)
		if skip != "" {
			metrics.AlertSkipsTotal.WithLabelValues(string(skip)).Inc()
			e.logger.Warn().
				Str("alert_id", alert.ID).
				Str("target_currency", alert.TargetCurrency).
				Str("reason", string(skip)).
				Msg("alert skipped")
			continue
		}
		if event != nil {
			satisfied = append(satisfied, *event)
		}
	}
	metrics.AlertsCheckedTotal.Add(float64(checked))

	triggered := e.dispatch(ctx, satisfied)
	metrics.AlertsTriggeredTotal.Add(float64(len(triggered)))

	e.logger.Info().
		Str("base_currency", bundle.BaseCurrency).
		Int("checked", checked).
		Int("triggered", len(triggered)).
		Msg("evaluation pass complete")

	return Result{Checked: checked, Triggered: triggered}, nil
}

// check evaluates a single alert against the bundle. It returns a trigger
// event when the condition is satisfied, a skip reason when the alert cannot
// be evaluated, and neither when the condition is simply not met.
func (e *Evaluator) check(alert storage.Alert, bundle rates.Bundle) (*alerting.TriggerEvent, SkipReason) {
	quote, ok := bundle.Quote(alert.TargetCurrency)
	if !ok {
		return nil, SkipQuoteMissing
	}

	current, ok := quote.Rate(alert.RateType)
	if !ok {
		return nil, SkipFieldMissing
	}

	if !alert.Condition.Valid() {
		return nil, SkipUnknownCondition
	}

	if !alert.Condition.Satisfied(current, alert.TargetRate) {
		return nil, ""
	}

	displayName := quote.DisplayName
	if displayName == "" {
		displayName = alert.TargetCurrency
	}

	return &alerting.TriggerEvent{
		AlertID:        alert.ID,
		Recipient:      alert.TelegramChatID,
		BaseCurrency:   bundle.BaseCurrency,
		TargetCurrency: alert.TargetCurrency,
		DisplayName:    displayName,
		TargetRate:     alert.TargetRate,
		Condition:      alert.Condition,
		RateType:       alert.RateType,
		CurrentRate:    current,
		Timestamp:      bundle.Timestamp,
	}, ""
}

// dispatch fans satisfied alerts out to the notifier through a bounded
// worker pool and returns the IDs that were delivered. One failed send never
// blocks or fails the others.
func (e *Evaluator) dispatch(ctx context.Context, events []alerting.TriggerEvent) []string {
	triggered := make([]string, 0, len(events))
	if len(events) == 0 {
		return triggered
	}

	workers := e.opts.DispatchWorkers
	if workers > len(events) {
		workers = len(events)
	}

	jobs := make(chan alerting.TriggerEvent, len(events))
	for _, ev := range events {
		jobs <- ev
	}
	close(jobs)

	delivered := make(chan string, len(events))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ev := range jobs {
				if e.send(ctx, ev) {
					delivered <- ev.AlertID
				}
			}
		}()
	}
	wg.Wait()
	close(delivered)

	for id := range delivered {
		triggered = append(triggered, id)
	}
	return triggered
}

func (e *Evaluator) send(ctx context.Context, ev alerting.TriggerEvent) bool {
	sendCtx, cancel := context.WithTimeout(ctx, e.opts.DispatchTimeout)
	defer cancel()

	if err := e.notifier.Send(sendCtx, ev.Recipient, alerting.RenderMessage(ev)); err != nil {
		metrics.DispatchFailuresTotal.Inc()
		metrics.AlertSkipsTotal.WithLabelValues(string(SkipDispatchFailed)).Inc()
		e.logger.Error().
			Err(err).
			Str("alert_id", ev.AlertID).
			Str("recipient", ev.Recipient).
			Msg("failed to dispatch notification")
		return false
	}
	return true
}
