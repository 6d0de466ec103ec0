package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type taggedErr struct {
	retryable bool
}

func (e *taggedErr) Error() string { return "tagged" }

func classify(err error) bool {
	var terr *taggedErr
	if errors.As(err, &terr) {
		return terr.retryable
	}
	return false
}

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	got, err := Do(context.Background(), Policy{MaxRetries: 3, BaseDelay: time.Millisecond, Retryable: classify}, func() (int, error) {
		calls++
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 1, calls)
}

func TestDo_RetriesWhileRetryable(t *testing.T) {
	calls := 0
	got, err := Do(context.Background(), Policy{MaxRetries: 3, BaseDelay: time.Millisecond, Retryable: classify}, func() (string, error) {
		calls++
		if calls < 3 {
			return "", &taggedErr{retryable: true}
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 3, calls)
}

func TestDo_StopsOnNonRetryable(t *testing.T) {
	nonRetryable := &taggedErr{retryable: false}
	calls := 0
	_, err := Do(context.Background(), Policy{MaxRetries: 5, BaseDelay: time.Millisecond, Retryable: classify}, func() (int, error) {
		calls++
		return 0, nonRetryable
	})

	// Surfaced unchanged, despite remaining budget
	assert.ErrorIs(t, err, nonRetryable)
	assert.Equal(t, 1, calls)
}

func TestDo_ExhaustsBudgetAndSurfacesLastError(t *testing.T) {
	lastErr := &taggedErr{retryable: true}
	calls := 0
	_, err := Do(context.Background(), Policy{MaxRetries: 2, BaseDelay: time.Millisecond, Retryable: classify}, func() (int, error) {
		calls++
		return 0, lastErr
	})

	assert.ErrorIs(t, err, lastErr)
	assert.Equal(t, 3, calls) // first attempt + 2 retries
}

func TestDo_ZeroRetriesRunsOnce(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), Policy{MaxRetries: 0, BaseDelay: time.Millisecond, Retryable: classify}, func() (int, error) {
		calls++
		return 0, &taggedErr{retryable: true}
	})

	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_OnRetryObservesAttempts(t *testing.T) {
	var attempts []int
	policy := Policy{
		MaxRetries: 2,
		BaseDelay:  time.Millisecond,
		Retryable:  classify,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			attempts = append(attempts, attempt)
		},
	}

	_, err := Do(context.Background(), policy, func() (int, error) {
		return 0, &taggedErr{retryable: true}
	})

	assert.Error(t, err)
	assert.Equal(t, []int{1, 2}, attempts)
}

func TestDo_NilClassifierRetriesEverything(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), Policy{MaxRetries: 2, BaseDelay: time.Millisecond}, func() (int, error) {
		calls++
		return 0, errors.New("plain failure")
	})

	assert.Error(t, err)
	assert.Equal(t, 3, calls)
}
