package resilience

import (
	"context"
	"fmt"
	"time"

	"github.com/noah-isme/sales-insight/internal/dataset"
	"github.com/noah-isme/sales-insight/internal/salesreport"
)

// Source wraps a dataset source with retries and a circuit breaker. Datasets rejected by
// validation are returned immediately and count as a healthy call.
type Source struct {
	Next        dataset.Source
	Breaker     *Breaker
	MaxAttempts int
	BaseBackoff time.Duration
	Jitter      float64
}

// Name reports the wrapped source's name.
func (s Source) Name() string {
	if s.Next == nil {
		return "unknown"
	}
	return s.Next.Name()
}

// Load calls the wrapped source until it succeeds, fails validation, or attempts run out.
func (s Source) Load(ctx context.Context) (*salesreport.Dataset, error) {
	if s.Next == nil {
		return nil, fmt.Errorf("resilience: source not configured")
	}
	attempts := s.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if s.Breaker != nil && !s.Breaker.Allow(ctx) {
			if lastErr != nil {
				return nil, fmt.Errorf("%w: %w", ErrOpenCircuit, lastErr)
			}
			return nil, ErrOpenCircuit
		}
		data, err := s.Next.Load(ctx)
		healthy := err == nil || salesreport.IsValidationError(err)
		if s.Breaker != nil {
			s.Breaker.Report(ctx, healthy)
		}
		if healthy {
			return data, err
		}
		lastErr = err
		if ctx.Err() != nil || attempt == attempts {
			break
		}

		timer := time.NewTimer(Backoff(s.BaseBackoff, attempt, s.Jitter))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("%w: %w", ctx.Err(), lastErr)
		case <-timer.C:
		}
	}
	return nil, lastErr
}
