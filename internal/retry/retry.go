// Package retry implements the bounded retry policy applied to connection
// setup, transaction submission, and venue operations.
//
// A budget of R permits at most R+1 invocations in total. Exhaustion is
// detected by increment-and-compare: the counter starts at zero and is
// incremented before each retry, and the loop stops when it equals the
// budget. Exhaustion is not an error; the terminal result is returned for
// the caller to inspect.
package retry

import (
	"context"
	"time"
)

// Do invokes op until accept returns true for its result or the budget is
// exhausted. An error from op is terminal and returned immediately: errors
// signal broken attempts (bad spec, bad key), not retriable outcomes.
func Do[T any](ctx context.Context, retries int, accept func(T) bool, op func(context.Context) (T, error)) (T, error) {
	result, err := op(ctx)
	if err != nil {
		return result, err
	}

	retried := 0
	for !accept(result) && retried != retries {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		retried++

		result, err = op(ctx)
		if err != nil {
			return result, err
		}
	}

	return result, nil
}

// Until invokes op until it reports success or the budget is exhausted,
// sleeping backoff between attempts. It reports the final outcome; the
// caller decides whether exhaustion is fatal.
func Until(ctx context.Context, retries int, backoff time.Duration, op func(context.Context) bool) bool {
	ok := op(ctx)

	retried := 0
	for !ok && retried != retries {
		select {
		case <-ctx.Done():
			return false
		case <-time.After(backoff):
		}
		retried++

		ok = op(ctx)
	}

	return ok
}
