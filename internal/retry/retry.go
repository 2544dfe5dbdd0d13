// Package retry wraps an arbitrary operation with bounded retries,
// exponential backoff, and mid-retry credential refresh. Attempts are
// strictly sequential; the executor keeps no state between calls.
package retry

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/sciqlabs/tutorlink/internal/logging"
	"github.com/sciqlabs/tutorlink/internal/metrics"
	"github.com/sciqlabs/tutorlink/internal/neterr"
)

// ErrMaxRetriesExceeded is a safety net for the case where the attempt loop
// exits without a classified terminal failure. Classification is total, so
// it should not normally surface.
var ErrMaxRetriesExceeded = errors.New("max retries exceeded")

// Policy configures the attempt loop. The delay before attempt n (n >= 2)
// is InitialDelay * BackoffMultiplier^(n-2); a retry immediately after a
// successful token refresh uses zero delay instead.
type Policy struct {
	MaxAttempts       int
	InitialDelay      time.Duration
	BackoffMultiplier float64
}

// DefaultPolicy returns the standard policy: 3 attempts, 1s initial delay,
// 1.5 multiplier.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 3, InitialDelay: time.Second, BackoffMultiplier: 1.5}
}

func (p Policy) normalized() Policy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.BackoffMultiplier <= 0 {
		p.BackoffMultiplier = 1
	}
	return p
}

// delayBefore returns the wait preceding attempt n (n >= 2).
func (p Policy) delayBefore(n int) time.Duration {
	return time.Duration(float64(p.InitialDelay) * math.Pow(p.BackoffMultiplier, float64(n-2)))
}

type options struct {
	onTokenExpired  func(ctx context.Context) error
	onRefreshFailed func(ctx context.Context)
	classify        func(err error) *neterr.NetworkError
	log             logging.Logger
}

type Option func(*options)

// WithOnTokenExpired installs the credential-refresh hook invoked when an
// attempt fails with a token_invalid classification. A successful refresh
// leads to an immediate retry with zero delay.
func WithOnTokenExpired(fn func(ctx context.Context) error) Option {
	return func(o *options) { o.onTokenExpired = fn }
}

// WithOnRefreshFailed installs a side effect (typically clearing cached
// credentials) run when the refresh hook itself fails.
func WithOnRefreshFailed(fn func(ctx context.Context)) Option {
	return func(o *options) { o.onRefreshFailed = fn }
}

// WithClassifier overrides the default classifier, e.g. for gRPC callers.
func WithClassifier(fn func(err error) *neterr.NetworkError) Option {
	return func(o *options) { o.classify = fn }
}

func WithLogger(log logging.Logger) Option {
	return func(o *options) { o.log = log }
}

// Do runs op under the given policy and returns its result.
//
// Attempt loop: on success the value is returned immediately. On failure
// the error is classified; the last allowed attempt re-raises the original
// failure. A token_invalid failure triggers the refresh hook once per call:
// if the refresh succeeds the next attempt starts with zero delay, if it
// fails the original failure is re-raised (never the refresh failure).
// Retryable transport failures wait out the backoff delay, which aborts on
// ctx cancellation. Non-retryable failures re-raise immediately.
//
// Do imposes no overall deadline of its own; callers needing a wall-clock
// ceiling wrap ctx.
func Do[T any](ctx context.Context, policy Policy, op func(ctx context.Context) (T, error), opts ...Option) (T, error) {
	var zero T

	o := options{classify: neterr.Classify, log: logging.NewNopLogger()}
	for _, opt := range opts {
		opt(&o)
	}

	policy = policy.normalized()
	refreshed := false

	for attempt := 1; ; attempt++ {
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}

		ne := o.classify(err)
		metrics.RetryAttempts.WithLabelValues(string(ne.Kind)).Inc()

		if attempt >= policy.MaxAttempts {
			return zero, err
		}

		if ne.Kind == neterr.KindTokenInvalid {
			// one refresh per call; a second token failure after a
			// successful refresh means refreshing does not help
			if o.onTokenExpired == nil || refreshed {
				return zero, err
			}
			refreshed = true
			if refreshErr := o.onTokenExpired(ctx); refreshErr != nil {
				metrics.TokenRefreshes.WithLabelValues("failure").Inc()
				o.log.Warn(ctx, "token refresh failed", "error", refreshErr)
				if o.onRefreshFailed != nil {
					o.onRefreshFailed(ctx)
				}
				return zero, err
			}
			metrics.TokenRefreshes.WithLabelValues("success").Inc()
			o.log.Debug(ctx, "token refreshed, retrying without delay", "attempt", attempt)
			continue
		}

		if !ne.Retryable {
			return zero, err
		}

		delay := policy.delayBefore(attempt + 1)
		o.log.Debug(ctx, "retrying after backoff",
			"attempt", attempt, "delay", delay, "kind", string(ne.Kind))

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}
	}
}
