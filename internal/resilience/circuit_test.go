package resilience_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sales-insight/internal/resilience"
	"github.com/noah-isme/sales-insight/internal/salesreport"
)

func TestBreakerTransitions(t *testing.T) {
	breaker := resilience.NewBreaker(2, 0.5, 50*time.Millisecond)
	ctx := context.Background()

	require.True(t, breaker.Allow(ctx))
	breaker.Report(ctx, false)
	require.True(t, breaker.Allow(ctx))
	breaker.Report(ctx, false)

	require.False(t, breaker.Allow(ctx), "breaker should open after threshold exceeded")
	require.Equal(t, resilience.Open, breaker.State())

	time.Sleep(60 * time.Millisecond)
	require.True(t, breaker.Allow(ctx), "breaker should admit a probe after cool off")
	require.False(t, breaker.Allow(ctx), "only one probe while half-open")
	breaker.Report(ctx, true)
	require.True(t, breaker.Allow(ctx), "breaker should close after successful probe")
	require.Equal(t, resilience.Closed, breaker.State())
}

func TestBreakerMetricsTransitions(t *testing.T) {
	metrics := resilience.NewBreakerMetrics("test", prometheus.NewRegistry())
	breaker := resilience.NewBreaker(1, 0.5, 20*time.Millisecond).WithTarget("source").WithMetrics(metrics)
	ctx := context.Background()

	require.True(t, breaker.Allow(ctx))
	breaker.Report(ctx, false)
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.State.WithLabelValues("source")))

	require.Eventually(t, func() bool {
		return breaker.Allow(ctx)
	}, 200*time.Millisecond, 5*time.Millisecond)
	require.Equal(t, 2.0, testutil.ToFloat64(metrics.State.WithLabelValues("source")))

	breaker.Report(ctx, true)
	require.Equal(t, 0.0, testutil.ToFloat64(metrics.State.WithLabelValues("source")))
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.Opened.WithLabelValues("source")))
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.Transitions.WithLabelValues("source", "closed", "open")))
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.Transitions.WithLabelValues("source", "open", "half_open")))
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.Transitions.WithLabelValues("source", "half_open", "closed")))
}

func TestBackoffWithJitter(t *testing.T) {
	base := 100 * time.Millisecond
	require.Equal(t, base, resilience.Backoff(base, 1, 0))
	require.Equal(t, base*4, resilience.Backoff(base, 3, 0))

	d := resilience.Backoff(base, 2, 0.2)
	require.GreaterOrEqual(t, d, base*2-(base*2/5))
	require.LessOrEqual(t, d, base*2+(base*2/5))
}

type flakySource struct {
	errs  []error
	calls int
}

func (f *flakySource) Name() string { return "flaky" }

func (f *flakySource) Load(context.Context) (*salesreport.Dataset, error) {
	f.calls++
	if f.calls <= len(f.errs) {
		return nil, f.errs[f.calls-1]
	}
	return &salesreport.Dataset{}, nil
}

func TestSourceRetriesTransientErrors(t *testing.T) {
	next := &flakySource{errs: []error{errors.New("conn reset"), errors.New("conn reset")}}
	src := resilience.Source{Next: next, MaxAttempts: 3, BaseBackoff: time.Millisecond}

	data, err := src.Load(context.Background())
	require.NoError(t, err)
	require.NotNil(t, data)
	require.Equal(t, 3, next.calls)
	require.Equal(t, "flaky", src.Name())
}

func TestSourceDoesNotRetryValidation(t *testing.T) {
	next := &flakySource{errs: []error{fmt.Errorf("decode: %w", salesreport.ErrInvalidSellers)}}
	breaker := resilience.NewBreaker(1, 0.5, time.Minute)
	src := resilience.Source{Next: next, Breaker: breaker, MaxAttempts: 3, BaseBackoff: time.Millisecond}

	_, err := src.Load(context.Background())
	require.ErrorIs(t, err, salesreport.ErrInvalidSellers)
	require.Equal(t, 1, next.calls)
	require.Equal(t, resilience.Closed, breaker.State())
}

func TestSourceOpensBreaker(t *testing.T) {
	boom := errors.New("db down")
	next := &flakySource{errs: []error{boom, boom, boom, boom}}
	breaker := resilience.NewBreaker(2, 0.5, time.Minute)
	src := resilience.Source{Next: next, Breaker: breaker, MaxAttempts: 4, BaseBackoff: time.Millisecond}

	_, err := src.Load(context.Background())
	require.ErrorIs(t, err, resilience.ErrOpenCircuit)
	require.ErrorIs(t, err, boom)
	require.Equal(t, 2, next.calls)

	_, err = src.Load(context.Background())
	require.ErrorIs(t, err, resilience.ErrOpenCircuit)
	require.Equal(t, 2, next.calls)
}

func TestSourceStopsOnCancel(t *testing.T) {
	next := &flakySource{errs: []error{errors.New("timeout"), errors.New("timeout")}}
	src := resilience.Source{Next: next, MaxAttempts: 5, BaseBackoff: time.Hour}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := src.Load(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, 1, next.calls)
}
