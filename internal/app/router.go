package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/pricing-engine/internal/assignment"
	"github.com/noah-isme/pricing-engine/internal/catalog"
	"github.com/noah-isme/pricing-engine/internal/common"
	"github.com/noah-isme/pricing-engine/internal/config"
	"github.com/noah-isme/pricing-engine/internal/health"
	"github.com/noah-isme/pricing-engine/internal/obs"
	"github.com/noah-isme/pricing-engine/internal/profile"
	"github.com/noah-isme/pricing-engine/internal/quote"
	"github.com/noah-isme/pricing-engine/internal/ratelimit"
	"github.com/noah-isme/pricing-engine/internal/security"
	"github.com/noah-isme/pricing-engine/internal/special"
)

// RouterConfig carries what the HTTP layer needs beyond the services.
type RouterConfig struct {
	Config         *config.Config
	Logger         zerolog.Logger
	Infra          *Infra
	Services       *Services
	Registry       *prometheus.Registry
	TracerProvider trace.TracerProvider
}

// NewRouter mounts the pricing API under /api/v1.
func NewRouter(rc RouterConfig) (http.Handler, error) {
	cfg, logger := rc.Config, rc.Logger

	limiterStore, err := ratelimit.NewStore(rc.Infra.Redis)
	if err != nil {
		return nil, err
	}
	calcLimiter, err := ratelimit.New(limiterStore, cfg.RateLimitCalculate)
	if err != nil {
		return nil, err
	}
	throttle := ratelimit.Handler{
		Limiter: calcLimiter,
		Key:     ratelimit.ByClient,
		OnError: func(err error) { logger.Warn().Err(err).Msg("rate limiter unavailable") },
	}.Middleware
	idem := common.Idem{R: rc.Infra.Redis, TTL: cfg.IdempotencyTTL, Logger: logger}.Middleware

	catalogHandler := catalog.NewHandler(catalog.HandlerConfig{Service: rc.Services.Catalog, Logger: logger})
	profileHandler := profile.NewHandler(profile.HandlerConfig{Service: rc.Services.Profiles, Logger: logger})
	assignmentHandler := assignment.NewHandler(assignment.HandlerConfig{Service: rc.Services.Assignments, Logger: logger})
	specialHandler := special.NewHandler(special.HandlerConfig{Service: rc.Services.Specials, Logger: logger})
	quoteHandler := quote.NewHandler(quote.HandlerConfig{Service: rc.Services.Quotes, Logger: logger})

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if cfg.TracingEnabled {
		r.Use(obs.Tracing{Service: "pricing-api", TracerProvider: rc.TracerProvider}.Middleware)
	}
	if cfg.MetricsEnabled && rc.Registry != nil {
		r.Use(obs.HTTPObs{Metrics: obs.NewHTTPMetrics(cfg.MetricsNamespace, rc.Registry)}.Middleware)
		r.Handle("/metrics", promhttp.HandlerFor(rc.Registry, promhttp.HandlerOpts{Registry: rc.Registry}))
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(security.Headers{EnableHSTS: cfg.AppEnv == "production"}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins(cfg),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", common.IdempotencyHeader, middleware.RequestIDHeader},
		ExposedHeaders: []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		MaxAge:         300,
	}))

	checks := map[string]health.Check{"store": health.StoreCheck(rc.Infra.Store)}
	if rc.Infra.Redis != nil {
		checks["redis"] = health.RedisCheck(rc.Infra.Redis)
	}
	healthHandler := health.Handler{Checks: checks}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Use(security.BodyLimit{Max: cfg.BodyLimitBytes}.Middleware)

		v.With(throttle).Get("/prices/calculate", quoteHandler.Calculate)

		v.Route("/prices/base", func(b chi.Router) {
			b.Get("/", catalogHandler.List)
			b.Post("/", catalogHandler.Upsert)
			b.With(idem).Post("/bulk", catalogHandler.Bulk)
			b.Get("/{code}", catalogHandler.Get)
		})

		v.Route("/profiles", func(p chi.Router) {
			p.Get("/", profileHandler.List)
			p.Post("/", profileHandler.Save)
			p.Get("/assignments", assignmentHandler.Summaries)
			p.Post("/assign", assignmentHandler.Assign)
			p.Post("/unassign", assignmentHandler.Unassign)
			p.Route("/{id}", func(one chi.Router) {
				one.Get("/", profileHandler.Get)
				one.Delete("/", profileHandler.Delete)
				one.Post("/rules", profileHandler.UpsertRule)
				one.Delete("/rules", profileHandler.RemoveRule)
				one.With(idem).Post("/rules/bulk", profileHandler.BulkApply)
			})
		})

		v.Get("/clients/{clientId}/profiles", assignmentHandler.Effective)

		v.Route("/special-prices", func(s chi.Router) {
			s.Post("/", specialHandler.Upsert)
			s.With(idem).Post("/profile", specialHandler.Replace)
			s.Get("/{clientId}", specialHandler.List)
			s.Delete("/{clientId}", specialHandler.Delete)
			s.Get("/{clientId}/override", specialHandler.Override)
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		common.JSONError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed", nil)
	})
	return r, nil
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}
