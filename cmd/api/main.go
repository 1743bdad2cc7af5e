package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/pricing-engine/internal/app"
	"github.com/noah-isme/pricing-engine/internal/config"
	"github.com/noah-isme/pricing-engine/internal/health"
	"github.com/noah-isme/pricing-engine/internal/obs"
)

const shutdownGrace = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("env", cfg.AppEnv).Str("component", "api").Logger()

	// prices are rendered as JSON numbers, never as quoted strings
	decimal.MarshalJSONWithoutQuotes = true

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	if cfg.MetricsEnabled {
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		obs.MustRegisterDomainMetrics(cfg.MetricsNamespace, registry)
	}

	tp, shutdownTracer, err := obs.InitTracer(ctx, obs.TracingConfig{
		Enabled:       cfg.TracingEnabled,
		ServiceName:   "pricing-api",
		Endpoint:      cfg.OTLPEndpoint,
		SamplingRatio: cfg.TracingSamplingRatio,
		Environment:   cfg.AppEnv,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise tracing")
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			logger.Error().Err(err).Msg("shutdown tracer")
		}
	}()

	openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	infra, err := app.Open(openCtx, cfg, logger, "pricing-api")
	cancel()
	if err != nil {
		logger.Fatal().Err(err).Msg("open infrastructure")
	}
	defer func() {
		if err := infra.Close(); err != nil {
			logger.Error().Err(err).Msg("close infrastructure")
		}
	}()

	if cfg.MigrateOnStart {
		if err := infra.Migrate(ctx, cfg, logger); err != nil {
			logger.Fatal().Err(err).Msg("migrate schema")
		}
	}

	services, err := app.NewServices(infra, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise services")
	}
	handler, err := app.NewRouter(app.RouterConfig{
		Config:         cfg,
		Logger:         logger,
		Infra:          infra,
		Services:       services,
		Registry:       registry,
		TracerProvider: tp,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise router")
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", srv.Addr).
			Bool("memory_store", cfg.UsesMemoryStore()).
			Bool("redis", cfg.HasRedis()).
			Msg("server starting")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server exited unexpectedly")
		}
	case <-ctx.Done():
		health.SetReady(false)
		logger.Info().Msg("draining")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("graceful shutdown")
		}
	}
}
