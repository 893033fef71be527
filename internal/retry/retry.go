// Package retry runs an operation a bounded number of times with exponential
// backoff. The caller decides which failures are worth another attempt by
// supplying a classifier; anything it rejects stops the loop immediately.
package retry

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
)

// Policy configures retry behavior.
type Policy struct {
	MaxAttempts  int           // total attempts including the first
	InitialDelay time.Duration // delay after the first failure
	MaxDelay     time.Duration // cap on any single delay (0 = no cap)
	Multiplier   float64       // growth factor between delays
}

// ImageGenPolicy is the image generation schedule: two attempts, waiting 2s
// after the first failure (a third attempt would wait 4s).
func ImageGenPolicy() Policy {
	return Policy{
		MaxAttempts:  2,
		InitialDelay: 2 * time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
}

// Result describes how a Do call finished.
type Result struct {
	Attempts      int
	Success       bool
	TotalDuration time.Duration
	LastError     error
}

// Func is a retryable operation. attempt starts at 1.
type Func func(ctx context.Context, attempt int) error

// Classifier reports whether err may succeed on another attempt.
type Classifier func(err error) bool

// Always treats every error as retryable.
func Always(error) bool { return true }

// Do executes fn until it succeeds, the classifier rejects an error, attempts
// run out, or ctx is cancelled.
func Do(ctx context.Context, p Policy, retryable Classifier, fn Func) *Result {
	logger := zerolog.Ctx(ctx)
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if retryable == nil {
		retryable = Always
	}
	start := time.Now()
	res := &Result{}

	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		res.Attempts = attempt

		err := fn(ctx, attempt)
		if err == nil {
			res.Success = true
			res.LastError = nil
			res.TotalDuration = time.Since(start)
			if attempt > 1 {
				logger.Info().
					Int("attempts", attempt).
					Dur("total", res.TotalDuration).
					Msg("operation succeeded after retry")
			}
			return res
		}
		res.LastError = err

		if !retryable(err) {
			logger.Warn().Err(err).Int("attempt", attempt).Msg("non-retryable failure")
			break
		}
		if attempt >= p.MaxAttempts {
			logger.Error().Err(err).Int("attempts", attempt).Msg("operation failed after max attempts")
			break
		}
		if ctx.Err() != nil {
			res.LastError = ctx.Err()
			break
		}

		delay := Delay(p, attempt)
		logger.Warn().
			Err(err).
			Int("attempt", attempt).
			Int("max_attempts", p.MaxAttempts).
			Dur("delay", delay).
			Msg("operation failed, retrying")

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			res.LastError = ctx.Err()
			res.TotalDuration = time.Since(start)
			return res
		}
	}

	res.TotalDuration = time.Since(start)
	return res
}

// Err converts an unsuccessful Result into an error wrapping LastError.
func (r *Result) Err() error {
	if r == nil || r.Success {
		return nil
	}
	return fmt.Errorf("failed after %d attempts: %w", r.Attempts, r.LastError)
}

// Delay returns the wait after the given failed attempt:
// InitialDelay * Multiplier^(attempt-1), capped at MaxDelay.
func Delay(p Policy, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	mult := p.Multiplier
	if mult <= 0 {
		mult = 1
	}
	d := float64(p.InitialDelay) * math.Pow(mult, float64(attempt-1))
	if p.MaxDelay > 0 && d > float64(p.MaxDelay) {
		d = float64(p.MaxDelay)
	}
	return time.Duration(d)
}
