// Package retry applies bounded retry budgets to individual call sites.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/juju/clock"
	jujuretry "github.com/juju/retry"
	"go.uber.org/zap"

	"github.com/younsl/ec2utils/internal/logger"
)

// Policy describes the retry budget of one call site
type Policy struct {
	Name string
	// Attempts is the total number of calls, including the first one
	Attempts int
	Delay    time.Duration
	// BackoffFactor multiplies the delay after each failed attempt.
	// Values <= 1 keep the delay fixed.
	BackoffFactor float64
	// Retryable decides whether an error is worth another attempt.
	// Errors it rejects are returned immediately. Nil retries everything.
	Retryable func(error) bool
	Clock     clock.Clock
}

// ExhaustedError is returned when every attempt of a policy failed with a
// retryable error
type ExhaustedError struct {
	Name     string
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s: giving up after %d attempts: %v", e.Name, e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// Call runs fn until it succeeds, returns a non-retryable error, the attempt
// budget is spent or ctx is done.
func (p Policy) Call(ctx context.Context, fn func() error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	delay := p.Delay
	if delay <= 0 {
		delay = time.Millisecond
	}
	clk := p.Clock
	if clk == nil {
		clk = clock.WallClock
	}

	args := jujuretry.CallArgs{
		Func:     fn,
		Attempts: attempts,
		Delay:    delay,
		Clock:    clk,
		Stop:     ctx.Done(),
		IsFatalError: func(err error) bool {
			return p.Retryable != nil && !p.Retryable(err)
		},
		NotifyFunc: func(err error, attempt int) {
			logger.GetLogger().Debug("Retryable call failed",
				zap.String("call", p.Name),
				zap.Int("attempt", attempt),
				zap.Int("attempts", attempts),
				zap.Error(err))
		},
	}
	if p.BackoffFactor > 1 {
		factor := p.BackoffFactor
		args.BackoffFunc = func(delay time.Duration, _ int) time.Duration {
			return time.Duration(float64(delay) * factor)
		}
	}

	err := jujuretry.Call(args)
	switch {
	case err == nil:
		return nil
	case jujuretry.IsAttemptsExceeded(err):
		return &ExhaustedError{Name: p.Name, Attempts: attempts, Err: jujuretry.LastError(err)}
	case jujuretry.IsRetryStopped(err):
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return jujuretry.LastError(err)
	default:
		return err
	}
}

// IsExhausted reports whether err came from a spent retry budget
func IsExhausted(err error) bool {
	var exhausted *ExhaustedError
	return errors.As(err, &exhausted)
}
