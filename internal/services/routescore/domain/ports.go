package domain

import (
	"context"
	"time"

	"github.com/paulmach/orb"
)

// ServicePort is the Route Scorer's public surface.
type ServicePort interface {
	// ScoreBatch scores every candidate, cancelling outstanding work once
	// the deadline elapses. Returns an error if zero candidates
	// completed before the deadline.
	ScoreBatch(ctx context.Context, candidates []Candidate, q Query) (BatchResult, error)
}

// StorageRepo reads SafetyCell rows back for a segment's buffered
// footprint.
type StorageRepo interface {
	// CellsForFootprint returns every non-stale cell whose h3_index is in
	// h3s and whose month is in months -- the candidate set after spatial
	// intersection has already narrowed h3s down.
	CellsForFootprint(ctx context.Context, h3s []string, months []time.Time) ([]CellRow, error)
}

// SpatialIndex is the seam over the in-process H3 spatial index, kept as
// an interface here so the service never imports gridindex/geo directly
// and stays testable with a fake.
type SpatialIndex interface {
	CellsNearSegment(vertices orb.LineString, bufferMeters float64) ([]string, error)
}
