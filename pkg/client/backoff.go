package client

import (
	"math"
	"math/rand"
	"time"
)

// BackoffStrategy computes the pause before a retry. Attempt numbering is
// zero-based: Next(0) is the pause before the first retry.
type BackoffStrategy interface {
	Next(attempt int) time.Duration
}

// ExponentialBackoff grows the pause geometrically up to a ceiling and
// spreads concurrent retries with symmetric jitter.
type ExponentialBackoff struct {
	Base   time.Duration // pause before the first retry
	Max    time.Duration // ceiling applied before jitter
	Factor float64       // growth per attempt
	Jitter float64       // fraction of the pause, in [0, 1]
}

// DefaultBackoff suits the daemon round trip: 100ms doubling to a 5s
// ceiling with 20% jitter.
func DefaultBackoff() *ExponentialBackoff {
	return &ExponentialBackoff{
		Base:   100 * time.Millisecond,
		Max:    5 * time.Second,
		Factor: 2.0,
		Jitter: 0.2,
	}
}

// Next returns the pause before retry number attempt.
func (b *ExponentialBackoff) Next(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	pause := float64(b.Base) * math.Pow(b.Factor, float64(attempt))
	if ceiling := float64(b.Max); pause > ceiling {
		pause = ceiling
	}
	if b.Jitter > 0 {
		pause *= 1 + b.Jitter*(2*rand.Float64()-1)
	}
	if pause < 0 {
		pause = 0
	}
	return time.Duration(pause)
}
