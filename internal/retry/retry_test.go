package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anna-belle-zhang/syncflow-unity-catalog-ai-platform/internal/config"
)

func fastConfig() Config {
	return Config{
		MaxAttempts:   3,
		BaseDelay:     time.Millisecond,
		MaxDelay:      5 * time.Millisecond,
		BackoffFactor: 2.0,
	}
}

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(), nil, "op", func(ctx context.Context) error {
		calls++
		return nil
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_RetriesTransientThenSucceeds(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(), nil, "op", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	calls := 0
	wantErr := errors.New("still failing")
	err := Do(context.Background(), fastConfig(), nil, "op", func(ctx context.Context) error {
		calls++
		return wantErr
	}, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, wantErr)
	assert.Equal(t, 3, calls)
}

func TestDo_NonRetryableStopsImmediately(t *testing.T) {
	calls := 0
	fatal := errors.New("fatal")
	err := Do(context.Background(), fastConfig(), nil, "op", func(ctx context.Context) error {
		calls++
		return fatal
	}, func(err error) bool { return false })

	assert.ErrorIs(t, err, fatal)
	assert.Equal(t, 1, calls)
}

func TestDo_RetryableClassifier(t *testing.T) {
	transient := errors.New("transient")
	fatal := errors.New("fatal")

	calls := 0
	err := Do(context.Background(), fastConfig(), nil, "op", func(ctx context.Context) error {
		calls++
		if calls == 1 {
			return transient
		}
		return fatal
	}, func(err error) bool { return errors.Is(err, transient) })

	assert.ErrorIs(t, err, fatal)
	assert.Equal(t, 2, calls)
}

func TestDo_ContextCancelledBeforeAttempt(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := Do(ctx, fastConfig(), nil, "op", func(ctx context.Context) error {
		calls++
		return nil
	}, nil)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, calls)
}

func TestDo_ContextCancelledDuringBackoff(t *testing.T) {
	cfg := Config{
		MaxAttempts:   5,
		BaseDelay:     time.Hour, // never completes without a cancel
		BackoffFactor: 2.0,
	}

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- Do(ctx, cfg, nil, "op", func(ctx context.Context) error {
			calls++
			return errors.New("transient")
		}, nil)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	case <-time.After(time.Second):
		t.Fatal("Do did not return after context cancellation")
	}
}

func TestDo_ZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Config{}, nil, "op", func(ctx context.Context) error {
		calls++
		return nil
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestFromConfig(t *testing.T) {
	policy := FromConfig(&config.RetryConfig{
		MaxAttempts:   7,
		BaseDelaySecs: 0.5,
		MaxDelaySecs:  10,
		BackoffFactor: 3,
		JitterFactor:  0.1,
	})

	assert.Equal(t, 7, policy.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, policy.BaseDelay)
	assert.Equal(t, 10*time.Second, policy.MaxDelay)
	assert.Equal(t, 3.0, policy.BackoffFactor)
	assert.Equal(t, 0.1, policy.JitterFactor)
}

func TestFromConfig_NilUsesDefaults(t *testing.T) {
	policy := FromConfig(nil)
	assert.Equal(t, DefaultConfig(), policy)
}
