package worker

import (
	"context"
	"time"
)

// backoff computes capped exponential delays for transient failures. Not
// safe for concurrent use; each loop owns its own instance.
type backoff struct {
	base time.Duration
	cap  time.Duration
	next time.Duration
}

func newBackoff(base, cap time.Duration) *backoff {
	if cap < base {
		cap = base
	}
	return &backoff{base: base, cap: cap, next: base}
}

// Next returns the delay to apply for the current failure and doubles the
// next one, up to the cap. The sequence is monotonically non-decreasing.
func (b *backoff) Next() time.Duration {
	d := b.next
	b.next *= 2
	if b.next > b.cap {
		b.next = b.cap
	}
	return d
}

// Reset returns the sequence to the base delay after a success.
func (b *backoff) Reset() {
	b.next = b.base
}

// sleepCtx sleeps for d unless ctx is cancelled first, reporting whether the
// full duration elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
