package db

import (
	"context"
	"errors"
	"time"
)

const retryBackoff = 20 * time.Millisecond

// RetryOnConflict runs fn until it returns something other than
// ErrConcurrentModification, at most attempts times. fn must re-read the
// state it writes on every call.
func RetryOnConflict(ctx context.Context, attempts int, fn func(ctx context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		err = fn(ctx)
		if !errors.Is(err, ErrConcurrentModification) {
			return err
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(i+1) * retryBackoff):
		}
	}
	return err
}
