package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTransient = errors.New("rate limited")

func fastConfig() Config {
	return Config{MaxRetries: 3, BaseBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond}
}

func always(error) bool { return true }
func never(error) bool  { return false }

func TestDoSucceedsFirstTry(t *testing.T) {
	calls := 0
	got, err := Do(t.Context(), fastConfig(), "test", always, func() (string, error) {
		calls++
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 1, calls)
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	calls := 0
	got, err := Do(t.Context(), fastConfig(), "test", always, func() (int, error) {
		calls++
		if calls < 3 {
			return 0, errTransient
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 3, calls)
}

func TestDoStopsOnPermanentError(t *testing.T) {
	permanent := errors.New("invalid api key")
	calls := 0
	_, err := Do(t.Context(), fastConfig(), "test", never, func() (int, error) {
		calls++
		return 0, permanent
	})
	require.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestDoExhaustsRetries(t *testing.T) {
	cfg := fastConfig()
	calls := 0
	_, err := Do(t.Context(), cfg, "describe-chart", always, func() (int, error) {
		calls++
		return 0, errTransient
	})
	require.ErrorIs(t, err, errTransient)
	assert.Equal(t, cfg.MaxRetries+1, calls)
	assert.Contains(t, err.Error(), "describe-chart")
}

func TestDoHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cfg := Config{MaxRetries: 5, BaseBackoff: time.Hour, MaxBackoff: time.Hour}

	calls := 0
	done := make(chan error, 1)
	go func() {
		_, err := Do(ctx, cfg, "test", always, func() (int, error) {
			calls++
			return 0, errTransient
		})
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	case <-time.After(time.Second):
		t.Fatal("Do did not return after cancellation")
	}
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, Default().Validate())
	assert.Error(t, Config{MaxRetries: -1}.Validate())
	assert.Error(t, Config{BaseBackoff: -time.Second}.Validate())
}
