package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/noah-isme/sales-insight/internal/analytics"
	"github.com/noah-isme/sales-insight/internal/app"
	"github.com/noah-isme/sales-insight/internal/config"
	"github.com/noah-isme/sales-insight/internal/health"
	"github.com/noah-isme/sales-insight/internal/obs"
	"github.com/noah-isme/sales-insight/internal/queue"
	"github.com/noah-isme/sales-insight/internal/ratelimit"
	"github.com/noah-isme/sales-insight/internal/security"
)

const serviceName = "sales-insight-api"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("env", cfg.AppEnv).Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracingEnabled, shutdownTracer := app.InitTracing(ctx, cfg, serviceName, logger)
	defer shutdownTracer()

	var reg prometheus.Registerer
	if cfg.EnablePrometheus {
		reg = prometheus.DefaultRegisterer
	}

	bootCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	deps, err := app.Build(bootCtx, cfg, serviceName, reg, logger)
	cancel()
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise dependencies")
	}
	defer deps.Close()

	reportSvc := deps.ReportService(cfg, &logger)
	reportHandler := &analytics.Handler{Svc: reportSvc}

	if cfg.RedisURL != "" {
		redisOpt, err := app.QueueRedis(cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("configure report queue")
		}
		client := asynq.NewClient(redisOpt)
		defer func() {
			if err := client.Close(); err != nil {
				logger.Error().Err(err).Msg("close queue client")
			}
		}()
		inspector := asynq.NewInspector(redisOpt)
		defer func() {
			if err := inspector.Close(); err != nil {
				logger.Error().Err(err).Msg("close queue inspector")
			}
		}()
		var queueMetrics *queue.Metrics
		if reg != nil {
			queueMetrics = queue.NewMetrics(cfg.MetricsNamespace, reg)
		}
		reportHandler.Queue = queue.Enqueuer{
			Client:    client,
			Queue:     cfg.QueueName,
			MaxRetry:  cfg.QueueMaxRetry,
			Timeout:   cfg.QueueTaskTimeout,
			Metrics:   queueMetrics,
			Exclusive: true,
			Inspector: inspector,
		}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if tracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	if reg != nil {
		buckets := obs.ParseBucketsCSV(cfg.MetricsBucketsMS)
		r.Use(obs.HTTPObs{Metrics: obs.NewHTTPMetrics(cfg.MetricsNamespace, buckets, reg)}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins(cfg),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"Content-Disposition", "Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		MaxAge:         300,
	}))

	if reg != nil {
		r.Handle("/metrics", promhttp.Handler())
	}
	if cfg.EnablePprof {
		r.Mount("/debug/pprof", app.PprofHandler(cfg.PprofUser, cfg.PprofPass))
	}

	healthHandler := health.Handler{Probes: deps.Probes()}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	limit, err := rateLimit(cfg, deps, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("configure rate limit")
	}

	r.Route("/api/v1/reports", func(rep chi.Router) {
		rep.Use(security.Headers{Enable: cfg.SecurityHeaders, EnableHSTS: cfg.SecurityHSTS, NoStore: true}.Middleware)
		if limit != nil {
			rep.Use(limit)
		}
		rep.Get("/sellers", reportHandler.Sellers)
		rep.Post("/sellers", reportHandler.AnalyzeUpload)
		rep.Post("/runs", reportHandler.EnqueueRun)
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server starting")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server exited unexpectedly")
		}
	case <-ctx.Done():
		health.SetReady(false)
		logger.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("graceful shutdown")
		}
	}
}

func rateLimit(cfg *config.Config, deps *app.Dependencies, logger zerolog.Logger) (func(http.Handler) http.Handler, error) {
	if cfg.RateLimit == "" {
		return nil, nil
	}
	l, err := ratelimit.New(cfg.RateLimit, deps.Redis, "sales:ratelimit")
	if err != nil {
		return nil, err
	}
	return ratelimit.Handler{
		Limiter: l,
		OnError: func(err error) { logger.Warn().Err(err).Msg("rate limiter store") },
	}.Middleware, nil
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}
