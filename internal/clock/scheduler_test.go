package clock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWaitReturnsImmediatelyForNonPositiveDelay(t *testing.T) {
	s := NewScheduler()
	start := time.Now()
	require.NoError(t, s.Wait(context.Background(), 0))
	require.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestWaitReturnsAfterDelayElapses(t *testing.T) {
	s := NewScheduler()
	start := time.Now()
	require.NoError(t, s.Wait(context.Background(), 20*time.Millisecond))
	require.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestWaitHonorsContextCancellation(t *testing.T) {
	s := NewScheduler()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Wait(ctx, time.Second)
	require.ErrorIs(t, err, context.Canceled)
}
