package s3upload

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackoffWindow(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{attempt: -1, want: 0},
		{attempt: 0, want: 0},
		{attempt: 1, want: 200 * time.Millisecond},
		{attempt: 2, want: 400 * time.Millisecond},
		{attempt: 3, want: 800 * time.Millisecond},
		{attempt: 10, want: 102400 * time.Millisecond},
		{attempt: 1000, want: BaseRetryDelay << maxBackoffShift},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, backoffWindow(tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestBackoff_Bounds(t *testing.T) {
	c := newClient(nil, WithRandSource(rand.NewSource(7)))

	assert.Zero(t, c.backoff(0))

	for attempt := 1; attempt <= 6; attempt++ {
		window := backoffWindow(attempt)
		var maxSeen time.Duration
		for i := 0; i < 500; i++ {
			d := c.backoff(attempt)
			require.GreaterOrEqual(t, d, time.Duration(0))
			require.Less(t, d, window)
			maxSeen = max(maxSeen, d)
		}
		// draws cover the upper half of the window, not just a fixed delay
		assert.Greater(t, maxSeen, window/2, "attempt %d", attempt)
	}
}

func TestBackoff_Deterministic(t *testing.T) {
	a := newClient(nil, WithRandSource(rand.NewSource(99)))
	b := newClient(nil, WithRandSource(rand.NewSource(99)))

	for attempt := 1; attempt < 5; attempt++ {
		assert.Equal(t, a.backoff(attempt), b.backoff(attempt))
	}
}

func TestSleepContext(t *testing.T) {
	assert.NoError(t, sleepContext(context.Background(), 0))
	assert.NoError(t, sleepContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepContext(ctx, 0), context.Canceled)

	start := time.Now()
	assert.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}
