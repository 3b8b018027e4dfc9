// Package domain holds the Event Store's types and ports, free of any
// storage or transport detail.
package domain

import (
	"time"

	"github.com/paulmach/orb"
)

// CrimeEvent is an immutable past incident as persisted by the Event
// Store. Descriptive fields are opaque to scoring and carried through only
// for operator/debugging context.
type CrimeEvent struct {
	ExternalID  string
	Month       time.Time // first-of-month, UTC
	Category    string    // normalized against the category table before storage
	Location    orb.Point // lon, lat
	ForceID     string
	OutputArea  string
	LocationTxt string
}

// Bucket is the key every aggregation folds events into: one hex cell for
// one month.
type Bucket struct {
	H3    string
	Month time.Time
}

// IngestReport summarizes one upsert_events call.
type IngestReport struct {
	Accepted  int
	Malformed int
	Sample    []string // up to a handful of malformed-event descriptions
}

// MalformedRatio returns the fraction of a batch that was malformed,
// excluding empty batches (reported as 0).
func (r IngestReport) MalformedRatio() float64 {
	total := r.Accepted + r.Malformed
	if total == 0 {
		return 0
	}
	return float64(r.Malformed) / float64(total)
}
