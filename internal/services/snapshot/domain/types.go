// Package domain holds the Snapshot Service's types and ports.
package domain

import (
	"time"

	"github.com/paulmach/orb"

	"saferoute/internal/core/scoring"
)

// BBox is a (min_lon, min_lat, max_lon, max_lat) query window.
type BBox struct {
	MinLon, MinLat, MaxLon, MaxLat float64
}

// Query is the Snapshot Service's input.
type Query struct {
	BBox           BBox
	LookbackMonths int
	TimeOfDay      scoring.TimeOfDay // empty means unspecified
}

// CellRow is one persisted (h3, month) bucket read back from storage --
// the Snapshot Service's view of a SafetyCell, independent of how the
// Aggregator happens to store it.
type CellRow struct {
	H3Index            string
	Month              time.Time
	CrimeCountTotal    int
	CrimeCountWeighted float64
	Stats              map[string]int
	Geom               orb.Polygon
}

// Cell is one output row: a single h3_index folded across the lookback
// window.
type Cell struct {
	H3Index         string
	Geom            orb.Polygon
	CrimeCountTotal int
	CrimeBreakdown  map[string]int // zero-count categories omitted
	RiskScore       float64        // rounded to 3 decimals
	SafetyScore     float64        // rounded to 1 decimal
	RiskClass       string
}

// Summary aggregates across all emitted cells.
type Summary struct {
	CellCount     int
	TotalCrimes   int
	MeanSafety    float64
	ArgMaxRiskH3  string
	ArgMinRiskH3  string
}

// Meta echoes the query and grid constants the frontend needs to render
// a response without hardcoding them.
type Meta struct {
	BBox            BBox
	CellSizeMeters  float64
	GridType        string
	MonthsIncluded  []time.Time
}

// Snapshot is the Snapshot Service's full output.
type Snapshot struct {
	Cells   []Cell
	Summary Summary
	Meta    Meta
}
