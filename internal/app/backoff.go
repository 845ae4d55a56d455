package app

import "time"

// Default backoff configuration values.
const (
	DefaultBackoffInitial = 8 * time.Millisecond
	DefaultBackoffMax     = 30 * time.Second
)

// backoff implements capped exponential backoff.
// It only computes delays; callers decide how to wait.
type backoff struct {
	initial time.Duration
	max     time.Duration
	current time.Duration
}

// newBackoff creates a new backoff with the given initial and max durations.
func newBackoff(initial, max time.Duration) *backoff {
	if initial <= 0 {
		initial = DefaultBackoffInitial
	}
	if max < initial {
		max = initial
	}
	return &backoff{
		initial: initial,
		max:     max,
		current: initial,
	}
}

// Next returns the delay to apply for this failure and doubles it for the
// next one, up to max.
func (b *backoff) Next() time.Duration {
	d := b.current
	if b.current < b.max {
		b.current *= 2
		if b.current > b.max {
			b.current = b.max
		}
	}
	return d
}

// Reset resets the backoff to the initial duration.
func (b *backoff) Reset() {
	b.current = b.initial
}

// Current returns the delay the next failure will get.
func (b *backoff) Current() time.Duration {
	return b.current
}
