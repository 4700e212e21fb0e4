package poll

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUntil_ReturnsOnFirstDone(t *testing.T) {
	calls := 0
	got, err := Until(context.Background(), Config{Interval: time.Millisecond, MaxAttempts: 5},
		func(ctx context.Context, attempt int) (string, bool, error) {
			calls++
			return "ready", attempt == 3, nil
		})

	require.NoError(t, err)
	assert.Equal(t, "ready", got)
	assert.Equal(t, 3, calls)
}

func TestUntil_StopsOnCheckError(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	_, err := Until(context.Background(), Config{Interval: time.Millisecond, MaxAttempts: 10},
		func(ctx context.Context, attempt int) (int, bool, error) {
			calls++
			return attempt, false, boom
		})

	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestUntil_ExhaustsAfterMaxAttempts(t *testing.T) {
	calls := 0
	got, err := Until(context.Background(), Config{Interval: time.Millisecond, MaxAttempts: 4},
		func(ctx context.Context, attempt int) (int, bool, error) {
			calls++
			return attempt, false, nil
		})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExhausted)

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 4, exhausted.Attempts)
	assert.Equal(t, 4, calls)
	assert.Equal(t, 4, got, "last observed value is returned")
}

func TestUntil_PacesAttempts(t *testing.T) {
	interval := 20 * time.Millisecond
	start := time.Now()
	_, err := Until(context.Background(), Config{Interval: interval, MaxAttempts: 3},
		func(ctx context.Context, attempt int) (struct{}, bool, error) {
			return struct{}{}, false, nil
		})
	elapsed := time.Since(start)

	require.ErrorIs(t, err, ErrExhausted)
	// Two waits separate three attempts.
	assert.GreaterOrEqual(t, elapsed, 2*interval-5*time.Millisecond)
}

func TestUntil_CancelledDuringWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	done := make(chan error, 1)
	go func() {
		_, err := Until(ctx, Config{Interval: time.Hour, MaxAttempts: 3},
			func(ctx context.Context, attempt int) (int, bool, error) {
				calls++
				return attempt, false, nil
			})
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Until did not observe cancellation")
	}
	assert.Equal(t, 1, calls)
}

func TestUntil_DeadlineBeforeNextAttempt(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	calls := 0
	start := time.Now()
	_, err := Until(ctx, Config{Interval: time.Second, MaxAttempts: 5},
		func(ctx context.Context, attempt int) (int, bool, error) {
			calls++
			return attempt, false, nil
		})
	elapsed := time.Since(start)

	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, ErrExhausted)
	assert.Equal(t, 1, calls)
	assert.GreaterOrEqual(t, elapsed, 40*time.Millisecond, "waits for the deadline instead of failing early")
	assert.Less(t, elapsed, time.Second)
}

func TestUntil_CancelledBeforeFirstAttempt(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	_, err := Until(ctx, DefaultConfig(), func(ctx context.Context, attempt int) (int, bool, error) {
		calls++
		return attempt, true, nil
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}

func TestUntil_NilCheck(t *testing.T) {
	_, err := Until[int](context.Background(), DefaultConfig(), nil)
	require.Error(t, err)
}

func TestConfig_Defaults(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 2*time.Second, cfg.Interval)
	assert.Equal(t, 30, cfg.MaxAttempts)
	assert.Equal(t, 60*time.Second, cfg.WorstCaseWait())

	assert.Equal(t, DefaultMaxAttempts, Config{}.attempts())
}
