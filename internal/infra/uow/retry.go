package uow

import (
	"context"
	"log/slog"
	"time"

	"offer-relay/internal/pkg/errs"

	"github.com/cenkalti/backoff/v4"
)

var (
	errTransactionBegin   = errs.New("failed to begin transaction")
	errTransactionCommit  = errs.New("failed to commit transaction")
	errMaxRetriesExceeded = errs.New("transaction failed after max retries")
)

type retryPolicy struct {
	maxRetries int
	base       time.Duration
	retryable  func(error) bool
}

func defaultRetryPolicy(retryable func(error) bool) retryPolicy {
	return retryPolicy{maxRetries: 3, base: 100 * time.Millisecond, retryable: retryable}
}

// backOff doubles the wait from base with 20% jitter and stops after maxRetries.
func (p retryPolicy) backOff(ctx context.Context) backoff.BackOffContext {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = p.base
	exp.Multiplier = 2
	exp.RandomizationFactor = 0.2
	exp.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(p.maxRetries)), ctx) // #nosec G115 -- maxRetries is a small constant
}

// run repeats attempt while it fails with a retryable error. Once retries are exhausted the error is
// marked as store contention so callers can defer work instead of failing.
func (p retryPolicy) run(ctx context.Context, logger *slog.Logger, attempt func() error) error {
	attempts := 0
	err := backoff.RetryNotify(func() error {
		attempts++
		err := attempt()
		if err != nil && !p.retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, p.backOff(ctx), func(err error, wait time.Duration) {
		logger.Warn("retrying transaction due to retryable error",
			"attempt", attempts,
			"wait_ms", wait.Milliseconds(),
			"error", err.Error())
	})
	if err == nil {
		return nil
	}

	if ctx.Err() == nil && p.retryable(err) {
		logger.Error("transaction failed after max retries",
			"attempts", attempts,
			"error", err.Error())
		return errs.Mark(errs.Mark(err, errMaxRetriesExceeded), errs.ErrStoreContention)
	}
	return err
}
