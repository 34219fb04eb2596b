package aerrors

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"auroraview/internal/alog"
)

// RetryConfig configures exponential backoff with jitter, grounded on
// the teacher's internal/errors.RetryConfig.
type RetryConfig struct {
	MaxAttempts  int
	BaseDelay    time.Duration
	MaxDelay     time.Duration
	JitterFactor float64
}

// DefaultRetryConfig matches the teacher's defaults: MaxAttempts 3
// (Retry makes up to 4 calls: the first plus 3 retries), 1s base
// delay, 30s cap, ±25% jitter.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		BaseDelay:    1 * time.Second,
		MaxDelay:     30 * time.Second,
		JitterFactor: 0.25,
	}
}

// RetryableFunc is retried by Retry until it succeeds, the context is
// cancelled, or attempts are exhausted.
type RetryableFunc func(ctx context.Context) error

// Retry executes fn with exponential backoff. Permanent taxonomy kinds
// (NotFound, InvalidArgument, ScopeDenied, LicenseFailure,
// StateViolation) abort immediately; every other error, plain
// (non-taxonomy) errors included, is retried.
func Retry(ctx context.Context, cfg RetryConfig, logger *alog.Logger, fn RetryableFunc) error {
	if logger == nil {
		logger = alog.Packer
	}
	var lastErr error
	for attempt := 0; attempt <= cfg.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled: %w", ctx.Err())
		default:
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}

		var te *Error
		if isTaxonomyPermanent(lastErr, &te) {
			return lastErr
		}

		if attempt == cfg.MaxAttempts {
			break
		}

		delay := backoffDelay(cfg, attempt)
		logger.Debug("retrying after %v (attempt %d/%d): %v", delay, attempt+1, cfg.MaxAttempts, lastErr)
		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled: %w", ctx.Err())
		case <-time.After(delay):
		}
	}
	return fmt.Errorf("exhausted %d attempts: %w", cfg.MaxAttempts+1, lastErr)
}

func isTaxonomyPermanent(err error, te **Error) bool {
	if err == nil {
		return false
	}
	if !asError(err, te) {
		return false
	}
	switch (*te).Kind {
	case NotFound, InvalidArgument, ScopeDenied, LicenseFailure, StateViolation:
		return true
	default:
		return false
	}
}

func asError(err error, te **Error) bool {
	type unwrapper interface{ Unwrap() error }
	for err != nil {
		if e, ok := err.(*Error); ok {
			*te = e
			return true
		}
		u, ok := err.(unwrapper)
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

func backoffDelay(cfg RetryConfig, attempt int) time.Duration {
	base := float64(cfg.BaseDelay) * math.Pow(2, float64(attempt))
	if base > float64(cfg.MaxDelay) {
		base = float64(cfg.MaxDelay)
	}
	jitter := base * cfg.JitterFactor * (rand.Float64()*2 - 1)
	d := time.Duration(base + jitter)
	if d < 0 {
		d = cfg.BaseDelay
	}
	return d
}
