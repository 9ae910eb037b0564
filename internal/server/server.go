// Package server exposes the storefront HTTP surface: cart CRUD, the
// calculation endpoint and the recalculation trigger.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/ulule/limiter/v3"
	limiterhttp "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/noah-isme/checkout-core/internal/config"
	"github.com/noah-isme/checkout-core/internal/health"
	"github.com/noah-isme/checkout-core/internal/obs"
)

// Options collects everything the router needs beyond the handlers.
type Options struct {
	Config         *config.Config
	Logger         zerolog.Logger
	Redis          *redis.Client
	HTTPMetrics    *obs.HTTPMetrics
	TracingEnabled bool
	Health         health.Handler
	Carts          *CartHandler
}

// NewRouter assembles the chi router with the full middleware stack.
func NewRouter(opts Options) (http.Handler, error) {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if opts.TracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	if opts.HTTPMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: opts.HTTPMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: opts.Logger}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(opts.Config),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Cart-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if opts.Redis != nil && opts.Config != nil && opts.Config.RateLimitRequests > 0 {
		store, err := limiterredis.NewStoreWithOptions(opts.Redis, limiter.StoreOptions{Prefix: "ratelimit"})
		if err != nil {
			return nil, err
		}
		rate := limiter.Rate{Period: opts.Config.RateLimitWindow, Limit: int64(opts.Config.RateLimitRequests)}
		r.Use(limiterhttp.NewMiddleware(limiter.New(store, rate)).Handler)
	}

	if opts.HTTPMetrics != nil {
		r.Handle("/metrics", promhttp.Handler())
	}
	r.Get("/health/live", opts.Health.Live)
	r.Get("/health/ready", opts.Health.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Route("/carts", func(c chi.Router) {
			c.Post("/", opts.Carts.Create)
			c.Get("/{token}", opts.Carts.Get)
			c.Delete("/{token}", opts.Carts.Delete)
			c.Post("/{token}/items", opts.Carts.AddItem)
			c.Delete("/{token}/items/{itemID}", opts.Carts.RemoveItem)
			c.Put("/{token}/shipping-cost", opts.Carts.SetShippingCost)
			c.Delete("/{token}/shipping-cost", opts.Carts.ClearShippingCost)
			c.Post("/{token}/calculate", opts.Carts.Calculate)
			c.Post("/{token}/recalculate", opts.Carts.Recalculate)
		})
	})

	return r, nil
}

func allowedOrigins(cfg *config.Config) []string {
	if cfg == nil || len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}
