package bootstrap

import (
	"context"
	"fmt"
	"os"

	"github.com/emekaobi/shortlet-payments/internal/infrastructure/config"
	"github.com/emekaobi/shortlet-payments/internal/infrastructure/observability"
	infraRedis "github.com/emekaobi/shortlet-payments/internal/infrastructure/redis"
	"github.com/emekaobi/shortlet-payments/internal/providers"
	"github.com/emekaobi/shortlet-payments/internal/repository/postgres"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type App struct {
	Config  *config.Config
	Logger  zerolog.Logger
	Pool    *pgxpool.Pool
	Redis   *redis.Client
	Metrics *observability.Metrics
}

func New(ctx context.Context, serviceName string, metricsNamespace string) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger := observability.InitLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.Info().Str("service", serviceName).Msg("Starting")

	if cfg.Observability.EnableTracing {
		tp, err := observability.InitTracer(serviceName, cfg.Observability.JaegerEndpoint)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to initialize tracer, continuing without tracing")
		} else {
			go func() {
				<-ctx.Done()
				observability.Shutdown(context.Background(), tp)
			}()
			logger.Info().Msg("Tracing enabled")
		}
	}

	metrics := observability.NewMetrics(metricsNamespace, nil)
	logger.Info().Msg("Metrics initialized")

	pool, err := postgres.NewPool(ctx, &cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	logger.Info().Msg("Connected to PostgreSQL")

	redisClient, err := infraRedis.NewClient(ctx, &cfg.Redis)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info().Msg("Connected to Redis")

	return &App{
		Config:  cfg,
		Logger:  logger,
		Pool:    pool,
		Redis:   redisClient,
		Metrics: metrics,
	}, nil
}

// ProviderFactory builds the adapter set from configuration. Only rails
// that are enabled and carry a secret key are registered.
func (a *App) ProviderFactory() *providers.Factory {
	factory := providers.NewFactory()

	p := a.Config.Providers
	if p.Paystack.Enabled {
		factory.Register(providers.NewPaystack(p.Paystack.BaseURL, p.Paystack.SecretKey, p.CallTimeout))
		a.Logger.Info().Str("provider", providers.PaystackName).Msg("Provider registered")
	}
	if p.Flutterwave.Enabled {
		factory.Register(providers.NewFlutterwave(p.Flutterwave.BaseURL, p.Flutterwave.SecretKey, p.CallTimeout))
		a.Logger.Info().Str("provider", providers.FlutterwaveName).Msg("Provider registered")
	}
	if p.Mock.Enabled {
		factory.Register(providers.NewMockProvider("mock",
			providers.WithFailureRate(p.Mock.FailureRate),
			providers.WithTimeoutRate(p.Mock.TimeoutRate),
			providers.WithLatency(p.Mock.Latency),
		))
		a.Logger.Warn().Msg("Mock provider registered, do not use in production")
	}

	return factory
}

func (a *App) Close() {
	a.Redis.Close()
	a.Pool.Close()
}
