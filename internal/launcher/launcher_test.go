package launcher

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rowtable/internal/rowerr"
)

func TestLaunchSucceedsOnFirstAttemptWithNoRetry(t *testing.T) {
	fetches := 0
	l := New(func(context.Context) (int, error) {
		fetches++
		return fetches, nil
	})

	result, err := Launch(context.Background(), l, func(_ context.Context, launcherVal int) (string, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 1, fetches)
}

func TestLaunchRetriesOnceOnClosedIndex(t *testing.T) {
	fetches := 0
	l := New(func(context.Context) (int, error) {
		fetches++
		return fetches, nil
	})

	attempts := 0
	result, err := Launch(context.Background(), l, func(_ context.Context, launcherVal int) (int, error) {
		attempts++
		if attempts == 1 {
			return 0, rowerr.ErrClosedIndex
		}
		return launcherVal, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result) // second fetch produced launcherVal == 2
	assert.Equal(t, 2, fetches)
	assert.Equal(t, 2, attempts)
}

func TestLaunchRetriesOnceOnLockFailure(t *testing.T) {
	l := New(func(context.Context) (int, error) { return 0, nil })

	attempts := 0
	_, err := Launch(context.Background(), l, func(context.Context, int) (int, error) {
		attempts++
		if attempts == 1 {
			return 0, rowerr.ErrLockFailure
		}
		return 1, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
}

func TestLaunchDoesNotRetryOtherErrors(t *testing.T) {
	boom := errors.New("boom")
	l := New(func(context.Context) (int, error) { return 0, nil })

	attempts := 0
	_, err := Launch(context.Background(), l, func(context.Context, int) (int, error) {
		attempts++
		return 0, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, attempts)
}

func TestLaunchPropagatesSecondFailureUnchanged(t *testing.T) {
	l := New(func(context.Context) (int, error) { return 0, nil })

	attempts := 0
	boom := errors.New("still broken")
	_, err := Launch(context.Background(), l, func(context.Context, int) (int, error) {
		attempts++
		if attempts == 1 {
			return 0, rowerr.ErrClosedIndex
		}
		return 0, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, attempts)
}
