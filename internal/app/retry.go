package app

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/mvidala/gavel/internal/domain"
)

const (
	conflictRetries = 2
	conflictBackoff = 25 * time.Millisecond
)

// retryConflicts re-runs fn when it fails with ErrConcurrencyConflict, so
// transient lock contention is absorbed before an error reaches the caller.
// Any other error aborts immediately.
func retryConflicts(ctx context.Context, fn func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(conflictRetries, retry.NewConstant(conflictBackoff))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if errors.Is(err, domain.ErrConcurrencyConflict) {
			return retry.RetryableError(err)
		}
		return err
	})
}
