package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/checkout-core/internal/cart"
	"github.com/noah-isme/checkout-core/internal/checkout"
	"github.com/noah-isme/checkout-core/internal/config"
	"github.com/noah-isme/checkout-core/internal/lock"
	"github.com/noah-isme/checkout-core/internal/obs"
	"github.com/noah-isme/checkout-core/internal/price"
	"github.com/noah-isme/checkout-core/internal/queue"
	"github.com/noah-isme/checkout-core/internal/repo"
	"github.com/noah-isme/checkout-core/internal/server"
	"github.com/noah-isme/checkout-core/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().
		Str("env", cfg.AppEnv).
		Str("component", "worker").
		Logger()

	if cfg.MetricsEnabled {
		obs.MustRegisterDomainMetrics("checkout", nil)
	}

	if cfg.OTLPEndpoint != "" {
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "checkout-worker",
			Endpoint:      cfg.OTLPEndpoint,
			Exporter:      "otlp",
			SamplingRatio: 1.0,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool := mustInitDatabase(ctx, cfg, logger)
	defer pool.Close()

	redisClient := mustInitRedis(ctx, cfg, logger)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()

	carts := store.NewCartStore(redisClient, cfg.CartTTL)
	handler := &server.CartHandler{
		Store:      carts,
		Ref:        repo.ReferenceData{Q: pool},
		Calculator: checkout.NewCalculator(),
		Locks:      lock.Locker{R: redisClient},
		Factories:  cart.NewFactoryRegistry(),
		Defaults: server.ChannelDefaults{
			CurrencyID:     cfg.DefaultCurrencyID,
			CurrencyFactor: cfg.DefaultCurrencyFactor,
			TaxState:       price.TaxState(cfg.DefaultTaxState),
			ItemRounding:   price.DefaultRounding(),
			TotalRounding:  price.DefaultRounding(),
		},
	}

	locker := lock.Locker{R: redisClient}
	worker := queue.Worker{
		R:           redisClient,
		Prefix:      cfg.QueuePrefix,
		Concurrency: cfg.WorkerConcurrency,
		Handler: func(ctx context.Context, token string) error {
			return locker.WithLock(ctx, lock.CartKey(token), 30*time.Second, func(ctx context.Context) error {
				return recalculate(ctx, carts, handler, token, logger)
			})
		},
	}

	logger.Info().Int("concurrency", cfg.WorkerConcurrency).Msg("worker starting")
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("worker exited unexpectedly")
	}
	logger.Info().Msg("worker shutdown complete")
}

// recalculate re-runs the calculation pipeline for a stored cart. A token
// whose cart has expired in the meantime is dropped without error.
func recalculate(ctx context.Context, carts *store.CartStore, handler *server.CartHandler, token string, logger zerolog.Logger) error {
	stored, err := carts.Load(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			logger.Debug().Str("cart_token", token).Msg("cart gone, skipping recalculation")
			return nil
		}
		return err
	}

	behavior := cart.NewRecalculationBehavior(cart.PermissionSkipPromotion)
	calculated, err := handler.RunPipeline(ctx, stored, "", behavior)
	if err != nil {
		return err
	}
	if err := carts.Save(ctx, calculated); err != nil {
		return err
	}
	logger.Info().Str("cart_token", token).Msg("cart recalculated")
	return nil
}

func mustInitDatabase(ctx context.Context, cfg *config.Config, logger zerolog.Logger) *pgxpool.Pool {
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse database config")
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "checkout-worker"

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}
	return pool
}

func mustInitRedis(ctx context.Context, cfg *config.Config, logger zerolog.Logger) *redis.Client {
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}
	return redisClient
}
