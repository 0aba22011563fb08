package settle

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTimeout is returned by Wait when the page kept changing for every attempt.
var ErrTimeout = errors.New("timed out waiting for page to settle")

// Probe reports whether the page is still changing.
type Probe func(ctx context.Context) (changing bool, err error)

// WaitOptions bound a Wait loop. Zero values pick 250ms and 40 attempts.
type WaitOptions struct {
	Interval    time.Duration
	MaxAttempts int
}

// DetectorProbe adapts a detector with a fixed settle window.
func DetectorProbe(d *Detector, timeout time.Duration) Probe {
	return func(context.Context) (bool, error) {
		return d.IsPageChanging(timeout), nil
	}
}

// Wait polls probe until it reports the page settled. It returns ErrTimeout
// once the attempts are used up, a wrapped probe error, or ctx.Err().
func Wait(ctx context.Context, probe Probe, opts WaitOptions) error {
	interval := opts.Interval
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	attempts := opts.MaxAttempts
	if attempts <= 0 {
		attempts = 40
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for i := 0; i < attempts; i++ {
		changing, err := probe(ctx)
		if err != nil {
			return fmt.Errorf("probe page: %w", err)
		}
		if !changing {
			return nil
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return fmt.Errorf("%w after %d attempts", ErrTimeout, attempts)
}
