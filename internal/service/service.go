package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/leeinprogress/aws-currency-tracker/internal/cache"
	"github.com/leeinprogress/aws-currency-tracker/internal/evaluator"
	"github.com/leeinprogress/aws-currency-tracker/internal/fetcher"
	"github.com/leeinprogress/aws-currency-tracker/internal/metrics"
	"github.com/leeinprogress/aws-currency-tracker/internal/scheduler"
	"github.com/leeinprogress/aws-currency-tracker/internal/storage"
)

// Service orchestrates the fetch-evaluate loop: each scheduler tick pulls a
// fresh rate bundle, publishes it to the cache, and runs one evaluation pass.
type Service struct {
	scheduler *scheduler.Scheduler
	fetcher   fetcher.RateFetcher
	alerts    storage.AlertStore
	evaluator *evaluator.Evaluator
	rateCache *cache.RateCache
	logger    zerolog.Logger

	baseCurrency string
}

// New constructs the tracking service.
func New(sched *scheduler.Scheduler, f fetcher.RateFetcher, alerts storage.AlertStore, eval *evaluator.Evaluator, rateCache *cache.RateCache, baseCurrency string, logger zerolog.Logger) *Service {
	return &Service{
		scheduler:    sched,
		fetcher:      f,
		alerts:       alerts,
		evaluator:    eval,
		rateCache:    rateCache,
		logger:       logger.With().Str("component", "service").Logger(),
		baseCurrency: baseCurrency,
	}
}

// Run begins the scheduled fetch-evaluate loop.
func (s *Service) Run(ctx context.Context) error {
	if s.scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}
	return s.scheduler.Run(ctx, s.ProcessCycle)
}

// ProcessCycle executes a single fetch cycle. Errors are returned for the
// scheduler to log; the next cycle is the implicit retry.
func (s *Service) ProcessCycle(ctx context.Context, cycle time.Time) error {
	count, err := s.alerts.CountActiveAlerts(ctx, s.baseCurrency)
	if err != nil {
		metrics.FetchCyclesTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("count active alerts: %w", err)
	}
	if count == 0 {
		s.logger.Debug().Time("cycle", cycle).Msg("no active alerts; skipping fetch")
		return nil
	}

	bundle, err := s.fetcher.FetchBundle(ctx)
	if err != nil {
		if errors.Is(err, fetcher.ErrNoRates) {
			metrics.FetchCyclesTotal.WithLabelValues("empty").Inc()
			s.logger.Info().Time("cycle", cycle).Msg("provider published no rates; skipping cycle")
			return nil
		}
		metrics.FetchCyclesTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("fetch rates: %w", err)
	}
	metrics.FetchCyclesTotal.WithLabelValues("success").Inc()

	if s.rateCache != nil {
		s.rateCache.SetBundle(bundle)
	}

	result, err := s.evaluator.Evaluate(ctx, bundle)
	if err != nil {
		return fmt.Errorf("evaluate bundle: %w", err)
	}

	s.logger.Info().
		Time("cycle", cycle).
		Int("checked", result.Checked).
		Int("triggered", len(result.Triggered)).
		Strs("alert_ids", result.Triggered).
		Msg("cycle complete")

	return nil
}
