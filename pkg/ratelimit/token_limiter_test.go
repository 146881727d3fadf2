package ratelimit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitConsumesBudget(t *testing.T) {
	l := NewTokenLimiter(1000)

	require.NoError(t, l.Wait(context.Background(), 400))
	assert.Equal(t, 600, l.GetRemaining())

	require.NoError(t, l.Wait(context.Background(), 600))
	assert.Equal(t, 0, l.GetRemaining())
}

func TestWaitClampsOversizedRequest(t *testing.T) {
	l := NewTokenLimiter(100)

	// A single request larger than the whole budget must not deadlock.
	require.NoError(t, l.Wait(context.Background(), 500))
	assert.Equal(t, 0, l.GetRemaining())
}

func TestWaitHonorsContextWhenExhausted(t *testing.T) {
	l := NewTokenLimiter(10)
	require.NoError(t, l.Wait(context.Background(), 10))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, l.Wait(ctx, 5), context.Canceled)
}
