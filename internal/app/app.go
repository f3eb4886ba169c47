package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/leeinprogress/aws-currency-tracker/internal/alerting"
	"github.com/leeinprogress/aws-currency-tracker/internal/api"
	"github.com/leeinprogress/aws-currency-tracker/internal/cache"
	"github.com/leeinprogress/aws-currency-tracker/internal/config"
	"github.com/leeinprogress/aws-currency-tracker/internal/evaluator"
	"github.com/leeinprogress/aws-currency-tracker/internal/fetcher"
	"github.com/leeinprogress/aws-currency-tracker/internal/scheduler"
	"github.com/leeinprogress/aws-currency-tracker/internal/service"
	"github.com/leeinprogress/aws-currency-tracker/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newFetcher() fetcher.RateFetcher {
	return fetcher.NewKoreaExim(fetcher.KoreaEximOptions{
		BaseURL:      a.Config.KoreaExim.BaseURL,
		AuthKey:      a.Config.KoreaExim.AuthKey,
		BaseCurrency: a.Config.KoreaExim.BaseCurrency,
		Timeout:      a.Config.KoreaExim.RequestTimeout,
	}, a.Logger)
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Telegram.BotToken != "" {
		cfg := a.Config.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.APIBase, cfg.RequestTimeout, a.Logger)
	}
	return alerting.NewLogNotifier(a.Logger)
}

func (a *App) newEvaluator(store *storage.Store) *evaluator.Evaluator {
	return evaluator.New(store, a.newNotifier(), evaluator.Options{
		DispatchWorkers: a.Config.Evaluator.DispatchWorkers,
		DispatchTimeout: a.Config.Evaluator.DispatchTimeout,
	}, a.Logger)
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.AutoMigrate {
		if err := storage.Migrate(ctx, a.Config.Database.DSN); err != nil {
			return nil, nil, err
		}
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

func (a *App) newRateCache() (*cache.RateCache, error) {
	return cache.NewRateCache(a.Config.Cache.MaxItems)
}

// Run executes the long-running fetch-evaluate service.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	rateCache, err := a.newRateCache()
	if err != nil {
		return err
	}
	defer rateCache.Close()

	sched := scheduler.New(scheduler.Options{
		Interval:     a.Config.Scheduler.Interval,
		AlignToStart: a.Config.Scheduler.AlignToCycle,
		StartupDelay: a.Config.Scheduler.StartupDelay,
	}, a.Logger)

	svc := service.New(sched, a.newFetcher(), store, a.newEvaluator(store), rateCache, a.Config.KoreaExim.BaseCurrency, a.Logger)

	a.Logger.Info().Msg("starting tracking service")
	err = svc.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("tracking service stopped")
	return nil
}

// Serve runs the HTTP CRUD and rates API.
func (a *App) Serve(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	rateCache, err := a.newRateCache()
	if err != nil {
		return err
	}
	defer rateCache.Close()

	server := api.NewServer(store, store, rateCache, a.Config.Server, a.Config.KoreaExim.BaseCurrency, a.Logger)
	return server.Serve(ctx)
}
