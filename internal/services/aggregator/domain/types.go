// Package domain holds the Aggregator's types and ports.
package domain

import (
	"time"

	"github.com/paulmach/orb"
)

// CellBucket is the in-memory fold target for one (h3, month) pair during
// a rebuild or month ingest: the base weighted count, with recency and
// time-of-day applied only at query time.
type CellBucket struct {
	H3             string
	Month          time.Time
	CrimeCountTotal int
	CrimeCountWeighted float64
	Stats          map[string]int
}

// SafetyCell is the persisted (spatial, temporal) aggregate bucket, the
// unit all reads operate on.
type SafetyCell struct {
	CellID             string
	H3Index            string
	Month              time.Time
	CrimeCountTotal    int
	CrimeCountWeighted float64
	Stats              map[string]int
	Geom               orb.Polygon
	UpdatedAt          time.Time
}

// RebuildReport summarizes one rebuild(N) or ingest_month call.
type RebuildReport struct {
	MonthsProcessed int
	CellsUpserted   int
	EventsScanned   int
	EventsSkipped   int // events whose location failed to index
}

// HealthReport summarizes one validate-grid-health admin pass.
type HealthReport struct {
	Sampled       int
	Inconsistent  int
	BadCellIDs    []string // up to a handful, for operator triage
}
