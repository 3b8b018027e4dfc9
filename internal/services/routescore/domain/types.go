// Package domain holds the Route Scorer's types and ports, free of any
// storage, geometry, or transport detail.
package domain

import (
	"time"

	"github.com/paulmach/orb"

	"saferoute/internal/core/scoring"
)

// Candidate is one provider-supplied route to score; the Route Scorer
// never generates a polyline itself.
type Candidate struct {
	ID       string
	Polyline orb.LineString // ordered (lon, lat) vertices, >= 2
	Distance float64        // meters, as reported by the routing provider
	Duration time.Duration  // as reported by the routing provider
}

// Query is the Route Scorer's input shared across every candidate in a
// batch.
type Query struct {
	LookbackMonths    int
	TimeOfDay         scoring.TimeOfDay // empty means unspecified
	CategoryOverrides map[string]float64 // multiplicative modifier, applied after harm weight
}

// CellRow is one persisted (h3, month) bucket read back for a segment's
// buffered footprint.
type CellRow struct {
	H3Index            string
	Month              time.Time
	CrimeCountTotal    int
	CrimeCountWeighted float64
	Stats              map[string]int
}

// Segment is one ~100 m scoring atom of a polyline.
type Segment struct {
	Index int
	// Vertices is the segment's underlying sub-polyline.
	Vertices orb.LineString
	Midpoint orb.Point
	// RawWeighted is the sum of w_cell_group across intersecting cells
	// (unmeaned); hotspot detection thresholds on this value.
	RawWeighted float64
	// MeanWeighted is (1/|cells|) . RawWeighted, the segment's risk input;
	// route aggregation means this across every segment.
	MeanWeighted float64
	CellCount    int
}

// HotspotLevel classifies a hotspot segment.
type HotspotLevel string

// Hotspot severity levels.
const (
	HotspotHigh     HotspotLevel = "high"
	HotspotCritical HotspotLevel = "critical"
)

// Hotspot is a segment whose raw weighted sum crosses the reporting
// threshold.
type Hotspot struct {
	SegmentIndex int
	Midpoint     orb.Point
	RiskLevel    HotspotLevel
	Description  string
	RiskScore    float64
}

// Route is one scored candidate's full output.
type Route struct {
	CandidateID    string
	Distance       float64
	Duration       time.Duration
	Segments       []Segment
	RiskScore      float64
	SafetyScore    float64
	RiskClass      string
	IsRecommended  bool
	Hotspots       []Hotspot
	CrimeBreakdown map[string]int
}

// BatchResult is the Route Scorer's output for a batch of candidates.
// Routes omits any candidate that did not complete before the deadline;
// Incomplete records how many did not.
type BatchResult struct {
	Routes     []Route
	Incomplete int
}
