package s3upload

import (
	"context"
	"time"
)

// maxBackoffShift caps the exponent so the backoff window cannot overflow.
const maxBackoffShift = 30

// backoffWindow returns the exclusive upper bound of the delay before attempt n.
// Attempt 0 has no delay.
func backoffWindow(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	return BaseRetryDelay << min(attempt, maxBackoffShift)
}

// backoff draws the delay before attempt n uniformly from [0, BaseRetryDelay*2^n).
func (c *UploadClient) backoff(attempt int) time.Duration {
	window := backoffWindow(attempt)
	if window <= 0 {
		return 0
	}

	c.rngMu.Lock()
	defer c.rngMu.Unlock()
	return time.Duration(c.rng.Int63n(int64(window)))
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
