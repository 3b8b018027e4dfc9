// Package retry is the capped exponential backoff policy shared by every
// adapter calling an upstream collaborator: after a failed first call,
// up to MaxRetries more attempts at 250ms -> 1s -> 4s, no randomization,
// no overall elapsed-time cap beyond the attempt count.
package retry

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// MaxRetries is how many times the crime feed and routing provider
// adapters retry after the initial attempt, one per backoff tier.
const MaxRetries = 3

// Policy returns a fresh backoff.BackOff honoring the shared retry ladder.
// Callers should get a new instance per call rather than share one across
// goroutines (ExponentialBackOff is not safe for concurrent reuse).
func Policy() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 250 * time.Millisecond
	b.Multiplier = 4
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()
	return backoff.WithMaxRetries(b, MaxRetries)
}
