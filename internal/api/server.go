package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/leeinprogress/aws-currency-tracker/internal/cache"
	"github.com/leeinprogress/aws-currency-tracker/internal/config"
	"github.com/leeinprogress/aws-currency-tracker/internal/storage"
)

// Server exposes the CRUD and rates API. Ownership and authentication are
// enforced here; the evaluator never sees this surface.
type Server struct {
	alerts       storage.AlertStore
	users        storage.UserStore
	rateCache    *cache.RateCache
	cfg          config.ServerConfig
	baseCurrency string
	logger       zerolog.Logger
}

// NewServer constructs the API server.
func NewServer(alerts storage.AlertStore, users storage.UserStore, rateCache *cache.RateCache, cfg config.ServerConfig, baseCurrency string, logger zerolog.Logger) *Server {
	return &Server{
		alerts:       alerts,
		users:        users,
		rateCache:    rateCache,
		cfg:          cfg,
		baseCurrency: baseCurrency,
		logger:       logger.With().Str("component", "api").Logger(),
	}
}

// Router builds the HTTP route tree.
func (s *Server) Router() *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(middleware.Heartbeat("/healthz"))

	router.Handle("/metrics", promhttp.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/login", s.handleLogin)

		r.Get("/rates/{base:[A-Za-z]{3}}", s.handleGetRates)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Route("/alerts", func(r chi.Router) {
				r.Post("/", s.handleCreateAlert)
				r.Get("/", s.handleListAlerts)
				r.Get("/{id}", s.handleGetAlert)
				r.Put("/{id}", s.handleUpdateAlert)
				r.Delete("/{id}", s.handleDeleteAlert)
				r.Put("/{id}/toggle", s.handleToggleAlert)
			})
		})
	})

	return router
}

// Serve runs the HTTP server until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.Router(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.cfg.Addr).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info().Msg("http server stopped")
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"detail": message})
}
