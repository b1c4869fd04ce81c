package app_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sales-insight/internal/app"
	"github.com/noah-isme/sales-insight/internal/bonus"
	"github.com/noah-isme/sales-insight/internal/config"
	"github.com/noah-isme/sales-insight/internal/dataset"
	"github.com/noah-isme/sales-insight/internal/pricing"
	"github.com/noah-isme/sales-insight/internal/resilience"
)

func baseConfig() *config.Config {
	return &config.Config{
		AppEnv:           "test",
		DataSource:       config.SourceFile,
		DataFile:         "testdata/missing.json",
		RevenueStrategy:  pricing.StrategySimple,
		BonusStrategy:    bonus.StrategyProfitTiers,
		BonusTopBps:      1500,
		BonusPodiumBps:   1000,
		BonusDefaultBps:  500,
		MetricsNamespace: "test",
	}
}

func TestStrategies(t *testing.T) {
	opts, key, err := app.Strategies(baseConfig())
	require.NoError(t, err)
	require.NotNil(t, opts.Revenue)
	require.NotNil(t, opts.Bonus)
	require.Equal(t, "simple:profit-tiers:1500-1000-500-0", key)
}

func TestStrategiesUnknown(t *testing.T) {
	cfg := baseConfig()
	cfg.RevenueStrategy = "weighted"
	_, _, err := app.Strategies(cfg)
	require.ErrorIs(t, err, pricing.ErrUnknownStrategy)

	cfg = baseConfig()
	cfg.BonusStrategy = "flat"
	_, _, err = app.Strategies(cfg)
	require.Error(t, err)
}

func TestBuildFileSourceWithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	path := filepath.Join(t.TempDir(), "sales.json")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, dataset.Encode(f, dataset.Generate(dataset.GenerateOptions{Seed: 1})))
	require.NoError(t, f.Close())

	cfg := baseConfig()
	cfg.DataFile = path
	cfg.RedisURL = "redis://" + mr.Addr()
	cfg.ReportCacheTTL = time.Minute

	deps, err := app.Build(context.Background(), cfg, "sales-insight-test", prometheus.NewRegistry(), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(deps.Close)

	require.Equal(t, "file", deps.Source.Name())
	require.IsType(t, resilience.Source{}, deps.Source)
	require.NotNil(t, deps.Redis)

	probes := deps.Probes()
	require.Len(t, probes, 2)
	for _, p := range probes {
		require.NoError(t, p.Check(context.Background()), p.Name)
	}

	logger := zerolog.Nop()
	svc := deps.ReportService(cfg, &logger)
	first, err := svc.SellerReport(context.Background())
	require.NoError(t, err)
	require.False(t, first.Cached)
	second, err := svc.SellerReport(context.Background())
	require.NoError(t, err)
	require.True(t, second.Cached)
}

func TestProbesReportMissingFile(t *testing.T) {
	deps := &app.Dependencies{DataFile: filepath.Join(t.TempDir(), "nope.json")}
	probes := deps.Probes()
	require.Len(t, probes, 1)
	require.Error(t, probes[0].Check(context.Background()))
}

func TestQueueRedis(t *testing.T) {
	_, err := app.QueueRedis("")
	require.Error(t, err)

	opt, err := app.QueueRedis("redis://localhost:6379/2")
	require.NoError(t, err)
	require.NotNil(t, opt)
}

func TestPprofHandlerBasicAuth(t *testing.T) {
	h := app.PprofHandler("ops", "secret")

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/cmdline", nil))
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	req := httptest.NewRequest(http.MethodGet, "/cmdline", nil)
	req.SetBasicAuth("ops", "secret")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
}
