// Package retry runs an operation with a fixed-delay bounded retry.
package retry

import (
	"context"
	"log/slog"
	"time"

	goretry "github.com/sethvargo/go-retry"
)

// Policy bounds a retried operation.
type Policy struct {
	// Maximum is the total number of attempts. Values below 1 mean 1.
	Maximum int
	// Delay is the fixed pause between attempts.
	Delay time.Duration
}

// Func is one attempt; attempt counts from 1.
type Func func(ctx context.Context, attempt int) error

// Do runs fn until it succeeds or the policy's attempts are exhausted. No
// delay follows the final attempt. The error of the last attempt is returned.
func Do(ctx context.Context, p Policy, logger *slog.Logger, fn Func) error {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	maximum := max(p.Maximum, 1)
	delay := max(p.Delay, time.Nanosecond)

	backoff := goretry.WithMaxRetries(uint64(maximum-1), goretry.NewConstant(delay))

	attempt := 0
	return goretry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		err := fn(ctx, attempt)
		if err == nil {
			if attempt > 1 {
				logger.Info("attempt succeeded", slog.Int("attempt", attempt), slog.Int("maximum", maximum))
			}
			return nil
		}
		logger.Warn("attempt failed",
			slog.Int("attempt", attempt),
			slog.Int("maximum", maximum),
			slog.String("error", err.Error()))
		if attempt < maximum {
			logger.Info("retrying", slog.Duration("delay", p.Delay))
		}
		return goretry.RetryableError(err)
	})
}
