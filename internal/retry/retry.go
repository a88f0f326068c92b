// Package retry wraps github.com/sethvargo/go-retry with the backoff
// schedule spec §7 names for transient backend failures, so the
// telemetry metrics and logs clients retry the same way instead of each
// hand-rolling its own loop.
package retry

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/recist-project/recist/internal/errors"
	sharederrors "github.com/recist-project/recist/pkg/shared/errors"
)

// Schedule is the exponential backoff profile applied to a retried call.
type Schedule struct {
	Base       time.Duration
	MaxRetries uint64
}

// DefaultSchedule matches spec §7's backoff: 1s base, capped at 5 retries.
func DefaultSchedule() Schedule {
	return Schedule{Base: time.Second, MaxRetries: 5}
}

// Do runs fn under the schedule's exponential backoff, retrying only
// when fn's error is one spec §7 classifies as transient
// (BackendUnavailable, BackendTimeout, Network, Timeout, RateLimit).
func Do(ctx context.Context, schedule Schedule, fn func(ctx context.Context) error) error {
	backoff := retry.NewExponential(schedule.Base)
	backoff = retry.WithMaxRetries(schedule.MaxRetries, backoff)

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if isRetryable(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

// isRetryable checks the *AppError taxonomy first; for a plain error
// from a library that doesn't go through internal/errors (e.g. a raw
// net.Error from the Prometheus/Loki HTTP clients), it falls back to
// pkg/shared/errors' substring heuristic.
func isRetryable(err error) bool {
	for _, t := range []errors.ErrorType{
		errors.ErrorTypeBackendUnavailable, errors.ErrorTypeBackendTimeout,
		errors.ErrorTypeNetwork, errors.ErrorTypeTimeout, errors.ErrorTypeRateLimit,
	} {
		if errors.IsType(err, t) {
			return true
		}
	}
	return sharederrors.IsRetryable(err)
}
