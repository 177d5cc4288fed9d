// Package retry runs fallible operations under a fixed-delay attempt budget.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ErrExhausted is wrapped by the error Do returns when every attempt failed.
var ErrExhausted = errors.New("retries exhausted")

// Policy is a fixed-delay retry budget. Attempts counts the first call.
type Policy struct {
	Attempts int
	Delay    time.Duration
}

// Default makes three attempts, 500ms apart.
var Default = Policy{Attempts: 3, Delay: 500 * time.Millisecond}

func (p Policy) attempts() int {
	if p.Attempts < 1 {
		return 1
	}
	return p.Attempts
}

// Permanent marks err as not worth retrying. Do returns it unwrapped.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Do calls op until it succeeds, returns a Permanent error, ctx is done, or
// the policy runs out of attempts.
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	max := p.attempts()
	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(p.Delay), uint64(max-1)),
		ctx,
	)

	calls := 0
	permanent := false
	res, err := backoff.RetryWithData(func() (T, error) {
		calls++
		v, err := op(ctx)
		var perr *backoff.PermanentError
		if errors.As(err, &perr) {
			permanent = true
		}
		return v, err
	}, b)
	if err == nil {
		return res, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, ctxErr
	}
	if permanent || calls < max {
		return res, err
	}
	return res, fmt.Errorf("%w after %d attempts: %w", ErrExhausted, calls, err)
}
