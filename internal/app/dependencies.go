package app

import (
	"context"
	"fmt"
	"os"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/sales-insight/internal/analytics"
	"github.com/noah-isme/sales-insight/internal/bonus"
	"github.com/noah-isme/sales-insight/internal/config"
	"github.com/noah-isme/sales-insight/internal/dataset"
	"github.com/noah-isme/sales-insight/internal/health"
	"github.com/noah-isme/sales-insight/internal/obs"
	"github.com/noah-isme/sales-insight/internal/pricing"
	"github.com/noah-isme/sales-insight/internal/resilience"
	"github.com/noah-isme/sales-insight/internal/salesreport"
)

// Dependencies holds the connections and strategies shared by the api and worker.
type Dependencies struct {
	Source      dataset.Source
	DB          *pgxpool.Pool
	Redis       *redis.Client
	DataFile    string
	Options     salesreport.Options
	StrategyKey string
	Registerer  prometheus.Registerer
}

// Build connects the configured data source and Redis and resolves strategies.
// Redis is optional; it is nil when REDIS_URL is unset. A nil reg disables metrics.
func Build(ctx context.Context, cfg *config.Config, appName string, reg prometheus.Registerer, logger zerolog.Logger) (*Dependencies, error) {
	opts, key, err := Strategies(cfg)
	if err != nil {
		return nil, err
	}
	deps := &Dependencies{Options: opts, StrategyKey: key, Registerer: reg}

	var source dataset.Source
	switch cfg.DataSource {
	case config.SourcePostgres:
		if cfg.DBMigrate {
			if err := RunMigrations(cfg.DatabaseURL); err != nil {
				return nil, err
			}
			logger.Info().Msg("database migrations applied")
		}
		pool, err := NewPool(ctx, cfg.DatabaseURL, appName)
		if err != nil {
			return nil, err
		}
		deps.DB = pool
		source = dataset.PostgresSource{DB: pool}
	default:
		deps.DataFile = cfg.DataFile
		source = dataset.FileSource{Path: cfg.DataFile}
	}
	deps.Source = ResilientSource(cfg, source, reg, logger)

	if cfg.RedisURL != "" {
		rdb, err := NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			deps.Close()
			return nil, err
		}
		deps.Redis = rdb
	}
	logger.Info().
		Str("source", deps.Source.Name()).
		Str("strategy", key).
		Bool("redis", deps.Redis != nil).
		Msg("dependencies ready")
	return deps, nil
}

// Close releases pooled connections.
func (d *Dependencies) Close() {
	if d == nil {
		return
	}
	if d.DB != nil {
		d.DB.Close()
	}
	if d.Redis != nil {
		_ = d.Redis.Close()
	}
}

// Probes returns readiness checks for the connected dependencies.
func (d *Dependencies) Probes() []health.Probe {
	var probes []health.Probe
	switch {
	case d.DB != nil:
		probes = append(probes, health.Probe{Name: "source", Check: d.DB.Ping})
	case d.DataFile != "":
		path := d.DataFile
		probes = append(probes, health.Probe{Name: "source", Check: func(context.Context) error {
			_, err := os.Stat(path)
			return err
		}})
	}
	if d.Redis != nil {
		probes = append(probes, health.Probe{Name: "redis", Check: func(ctx context.Context) error {
			return d.Redis.Ping(ctx).Err()
		}})
	}
	return probes
}

// ReportService builds the analytics service over d.
func (d *Dependencies) ReportService(cfg *config.Config, logger *zerolog.Logger) *analytics.Service {
	var metrics *obs.ReportMetrics
	if d.Registerer != nil {
		metrics = obs.NewReportMetrics(cfg.MetricsNamespace, d.Registerer)
	}
	return &analytics.Service{
		Source:      d.Source,
		Cache:       analytics.NewCache(d.Redis, cfg.ReportCacheTTL),
		Options:     d.Options,
		StrategyKey: d.StrategyKey,
		Metrics:     metrics,
		Logger:      logger,
	}
}

// ResilientSource wraps src with the configured retry policy and circuit breaker.
func ResilientSource(cfg *config.Config, src dataset.Source, reg prometheus.Registerer, logger zerolog.Logger) dataset.Source {
	breaker := resilience.NewBreaker(cfg.SourceBreakerMinRequests, cfg.SourceBreakerFailureRatio, cfg.SourceBreakerOpenFor).
		WithTarget("source_" + src.Name()).
		WithLogger(logger)
	if reg != nil {
		breaker.WithMetrics(resilience.NewBreakerMetrics(cfg.MetricsNamespace, reg))
	}
	return resilience.Source{
		Next:        src,
		Breaker:     breaker,
		MaxAttempts: cfg.SourceRetryAttempts,
		BaseBackoff: cfg.SourceRetryBackoff,
		Jitter:      0.2,
	}
}

// Strategies resolves the configured revenue and bonus strategies. The returned key
// identifies the configuration in report cache keys.
func Strategies(cfg *config.Config) (salesreport.Options, string, error) {
	revenue, err := pricing.Lookup(cfg.RevenueStrategy)
	if err != nil {
		return salesreport.Options{}, "", err
	}
	tiers := bonus.Tiers{
		TopBps:     cfg.BonusTopBps,
		PodiumBps:  cfg.BonusPodiumBps,
		DefaultBps: cfg.BonusDefaultBps,
		LastBps:    cfg.BonusLastBps,
	}
	bonusStrategy, err := bonus.New(cfg.BonusStrategy, tiers)
	if err != nil {
		return salesreport.Options{}, "", err
	}
	key := fmt.Sprintf("%s:%s:%d-%d-%d-%d", cfg.RevenueStrategy, cfg.BonusStrategy,
		tiers.TopBps, tiers.PodiumBps, tiers.DefaultBps, tiers.LastBps)
	return salesreport.Options{Revenue: revenue, Bonus: bonusStrategy}, key, nil
}

// NewPool opens a pgx pool traced with obs.PGXTracer.
func NewPool(ctx context.Context, databaseURL, appName string) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if appName != "" {
		if poolConfig.ConnConfig.RuntimeParams == nil {
			poolConfig.ConnConfig.RuntimeParams = map[string]string{}
		}
		poolConfig.ConnConfig.RuntimeParams["application_name"] = appName
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// NewRedis connects to Redis with OpenTelemetry tracing enabled.
func NewRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := redisotel.InstrumentTracing(rdb); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("instrument redis tracing: %w", err)
	}
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

// QueueRedis parses REDIS_URL into asynq connection options.
func QueueRedis(url string) (asynq.RedisConnOpt, error) {
	if url == "" {
		return nil, fmt.Errorf("REDIS_URL is required for the report queue")
	}
	opt, err := asynq.ParseRedisURI(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url for queue: %w", err)
	}
	return opt, nil
}

// RunMigrations applies the dataset schema migrations.
func RunMigrations(databaseURL string) error {
	if err := dataset.Migrate(databaseURL); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}
