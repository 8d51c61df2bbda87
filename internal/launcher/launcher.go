// Package launcher implements the narrow retry dispatch spec §5 and §7
// describe for StoredQueryLauncher: scanner/updater construction is
// retried exactly once on ClosedIndex or LockFailure, by refetching the
// launcher from the table, and every other failure is rethrown
// unchanged.
package launcher

import (
	"context"
	"errors"

	"rowtable/internal/rowerr"
)

// Source (re)obtains the launcher value T from its owning table. Calling
// it twice for the same StoredQueryLauncher must be safe: it's exactly
// what happens on a retry.
type Source[T any] func(ctx context.Context) (T, error)

// StoredQueryLauncher holds the means of (re)fetching a launcher value
// from its table; Launch uses it to drive the retry described in spec §7.
type StoredQueryLauncher[T any] struct {
	fetch Source[T]
}

// New builds a StoredQueryLauncher around fetch.
func New[T any](fetch Source[T]) *StoredQueryLauncher[T] {
	return &StoredQueryLauncher[T]{fetch: fetch}
}

// Launch runs build against a freshly-fetched launcher value, per spec
// §7's "StoredQueryLauncher.retry retries only ClosedIndex and
// LockFailure, once; any other error propagates immediately." build is
// typically a scanner/updater constructor closing over a Controller and
// RowEvaluator; R is whatever it returns.
//
// Launch is a standalone function, not a method, because Go methods
// cannot introduce type parameters beyond their receiver's — R varies
// per call site while T is fixed for the launcher's lifetime.
func Launch[T, R any](ctx context.Context, l *StoredQueryLauncher[T], build func(ctx context.Context, launcher T) (R, error)) (R, error) {
	var zero R

	launcherVal, err := l.fetch(ctx)
	if err != nil {
		return zero, err
	}
	result, err := build(ctx, launcherVal)
	if err == nil {
		return result, nil
	}
	if !isRetryable(err) {
		return zero, err
	}

	launcherVal, fetchErr := l.fetch(ctx)
	if fetchErr != nil {
		return zero, fetchErr
	}
	return build(ctx, launcherVal)
}

func isRetryable(err error) bool {
	return errors.Is(err, rowerr.ErrClosedIndex) || errors.Is(err, rowerr.ErrLockFailure)
}
