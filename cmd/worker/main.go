package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/noah-isme/sales-insight/internal/app"
	"github.com/noah-isme/sales-insight/internal/config"
	"github.com/noah-isme/sales-insight/internal/obs"
	"github.com/noah-isme/sales-insight/internal/queue"
)

const serviceName = "sales-insight-worker"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("component", "worker").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	_, shutdownTracer := app.InitTracing(ctx, cfg, serviceName, logger)
	defer shutdownTracer()

	redisOpt, err := app.QueueRedis(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("configure report queue")
	}

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

	var queueMetrics *queue.Metrics
	if reg != nil {
		queueMetrics = queue.NewMetrics(cfg.MetricsNamespace, reg)
	}

	worker := queue.Worker{
		Reports: deps.ReportService(cfg, &logger),
		Metrics: queueMetrics,
		Logger:  &logger,
	}
	srv := queue.NewServer(redisOpt, queue.ServerConfig{
		Queue:           cfg.QueueName,
		Concurrency:     cfg.QueueConcurrency,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)
	if err := srv.Start(queue.NewServeMux(worker)); err != nil {
		logger.Fatal().Err(err).Msg("start worker")
	}
	logger.Info().Str("queue", cfg.QueueName).Int("concurrency", cfg.QueueConcurrency).Msg("worker starting")

	if cfg.ReportSchedule != "" {
		inspector := asynq.NewInspector(redisOpt)
		defer inspector.Close()
		scheduler := queue.NewScheduler(redisOpt, logger, inspector, cfg.QueueName)
		entryID, err := queue.RegisterRefreshSchedule(scheduler, cfg.ReportSchedule,
			queue.TaskOptions(cfg.QueueName, cfg.QueueMaxRetry, cfg.QueueTaskTimeout, true)...)
		if err != nil {
			logger.Fatal().Err(err).Str("schedule", cfg.ReportSchedule).Msg("register report schedule")
		}
		if err := scheduler.Start(); err != nil {
			logger.Fatal().Err(err).Msg("start scheduler")
		}
		defer scheduler.Shutdown()
		logger.Info().Str("entry_id", entryID).Str("schedule", cfg.ReportSchedule).Msg("report schedule registered")
	}

	<-ctx.Done()
	logger.Info().Msg("worker shutting down")
	srv.Shutdown()
	logger.Info().Msg("worker shutdown complete")
}
