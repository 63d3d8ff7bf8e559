package peer

import (
	"context"
	"fmt"
	"time"
)

// backoff is the schedule for the initial connection attempts. Once
// connected, reconnects are handled by the NATS client itself.
type backoff struct {
	attempts int
	initial  time.Duration
	max      time.Duration
}

func (b backoff) do(ctx context.Context, fn func() error) error {
	attempts := b.attempts
	if attempts <= 0 {
		attempts = 1
	}
	delay := b.initial
	if delay <= 0 {
		delay = 100 * time.Millisecond
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if lastErr = fn(); lastErr == nil {
			return nil
		}
		if attempt == attempts {
			break
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("canceled after %d attempts: %w", attempt, ctx.Err())
		case <-timer.C:
		}

		delay *= 2
		if b.max > 0 && delay > b.max {
			delay = b.max
		}
	}
	return fmt.Errorf("failed after %d attempts: %w", attempts, lastErr)
}
