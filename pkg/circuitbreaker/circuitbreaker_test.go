package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errRelay = errors.New("relay down")

func failing(context.Context) error    { return errRelay }
func succeeding(context.Context) error { return nil }

func TestCircuitBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	var transitions []string
	cb := New(Settings{
		Name:             "test",
		FailureThreshold: 3,
		OnStateChange: func(name string, from, to State) {
			transitions = append(transitions, from.String()+">"+to.String())
		},
	})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, cb.Execute(ctx, failing), errRelay)
	}
	assert.Equal(t, StateOpen, cb.State())
	assert.Equal(t, []string{"closed>open"}, transitions)

	// While open, calls fail fast without reaching the dependency.
	called := false
	err := cb.Execute(ctx, func(context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestCircuitBreaker_SuccessResetsFailureStreak(t *testing.T) {
	cb := New(Settings{FailureThreshold: 3})
	ctx := context.Background()

	require.Error(t, cb.Execute(ctx, failing))
	require.Error(t, cb.Execute(ctx, failing))
	require.NoError(t, cb.Execute(ctx, succeeding))
	require.Error(t, cb.Execute(ctx, failing))
	require.Error(t, cb.Execute(ctx, failing))

	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_ProbeSuccessClosesCircuit(t *testing.T) {
	cb := New(Settings{
		FailureThreshold: 1,
		SuccessThreshold: 2,
		CoolDown:         10 * time.Millisecond,
	})
	ctx := context.Background()

	require.Error(t, cb.Execute(ctx, failing))
	require.Equal(t, StateOpen, cb.State())

	time.Sleep(15 * time.Millisecond)

	// The first probe flips to half-open; two successes close it.
	require.NoError(t, cb.Execute(ctx, succeeding))
	assert.Equal(t, StateHalfOpen, cb.State())
	require.NoError(t, cb.Execute(ctx, succeeding))
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_ProbeFailureReopens(t *testing.T) {
	cb := New(Settings{
		FailureThreshold: 1,
		CoolDown:         10 * time.Millisecond,
	})
	ctx := context.Background()

	require.Error(t, cb.Execute(ctx, failing))
	time.Sleep(15 * time.Millisecond)

	require.ErrorIs(t, cb.Execute(ctx, failing), errRelay)
	assert.Equal(t, StateOpen, cb.State())
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb := New(Settings{FailureThreshold: 1})
	require.Error(t, cb.Execute(context.Background(), failing))
	require.Equal(t, StateOpen, cb.State())

	cb.Reset()
	assert.Equal(t, StateClosed, cb.State())
	assert.NoError(t, cb.Execute(context.Background(), succeeding))
}
