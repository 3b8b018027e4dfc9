// Package domain holds the safety API's wire-level request and response
// shapes, kept separate from the engine services' own domain types so a
// change to the wire format never touches scoring, aggregation, or storage.
package domain

// BBoxInput is a (min_lon, min_lat, max_lon, max_lat) query window as it
// arrives over the wire.
type BBoxInput struct {
	MinLon float64 `json:"min_lon" validate:"required"`
	MinLat float64 `json:"min_lat" validate:"required"`
	MaxLon float64 `json:"max_lon" validate:"required"`
	MaxLat float64 `json:"max_lat" validate:"required"`
}

// SnapshotInput is the bbox + lookback-window query for a grid snapshot.
type SnapshotInput struct {
	BBox           BBoxInput `json:"bbox" validate:"required"`
	LookbackMonths int       `json:"lookback_months" validate:"required,min=1,max=24"`
	TimeOfDay      string    `json:"time_of_day" validate:"omitempty,oneof=night morning day evening"`
}

// CellOutput is one h3 cell folded across the lookback window.
type CellOutput struct {
	H3Index         string         `json:"h3_index"`
	Polygon         [][2]float64   `json:"polygon"`
	CrimeCountTotal int            `json:"crime_count_total"`
	CrimeBreakdown  map[string]int `json:"crime_breakdown"`
	RiskScore       float64        `json:"risk_score"`
	SafetyScore     float64        `json:"safety_score"`
	RiskClass       string         `json:"risk_class"`
}

// SummaryOutput aggregates across every cell in a snapshot.
type SummaryOutput struct {
	CellCount    int     `json:"cell_count"`
	TotalCrimes  int     `json:"total_crimes"`
	MeanSafety   float64 `json:"mean_safety"`
	ArgMaxRiskH3 string  `json:"arg_max_risk_h3,omitempty"`
	ArgMinRiskH3 string  `json:"arg_min_risk_h3,omitempty"`
}

// MetaOutput echoes the query and grid constants a client needs without
// hardcoding them.
type MetaOutput struct {
	BBox           BBoxInput `json:"bbox"`
	CellSizeMeters float64   `json:"cell_size_meters"`
	GridType       string    `json:"grid_type"`
	MonthsIncluded []string  `json:"months_included"`
}

// SnapshotOutput is the full grid snapshot response.
type SnapshotOutput struct {
	Cells   []CellOutput  `json:"cells"`
	Summary SummaryOutput `json:"summary"`
	Meta    MetaOutput    `json:"meta"`
}

// RouteCandidateInput is one provider-supplied route to score.
type RouteCandidateInput struct {
	ID              string       `json:"id" validate:"required"`
	Polyline        [][2]float64 `json:"polyline" validate:"required,min=2,dive,lonlat"`
	DistanceMeters  float64      `json:"distance_meters" validate:"required,gt=0"`
	DurationSeconds float64      `json:"duration_seconds" validate:"required,gt=0"`
}

// RouteScoreInput is a batch scoring request shared across every candidate.
type RouteScoreInput struct {
	Candidates        []RouteCandidateInput `json:"candidates" validate:"required,min=1,max=10,dive"`
	LookbackMonths    int                   `json:"lookback_months" validate:"required,min=1,max=24"`
	TimeOfDay         string                `json:"time_of_day" validate:"omitempty,oneof=night morning day evening"`
	CategoryOverrides map[string]float64    `json:"category_overrides" validate:"omitempty,dive,gt=0"`
}

// HotspotOutput is a segment whose risk crosses the reporting threshold.
type HotspotOutput struct {
	SegmentIndex int     `json:"segment_index"`
	Midpoint     [2]float64 `json:"midpoint"`
	RiskLevel    string  `json:"risk_level"`
	Description  string  `json:"description"`
	RiskScore    float64 `json:"risk_score"`
}

// SegmentOutput is one scored segment of a candidate's polyline.
type SegmentOutput struct {
	Index        int     `json:"index"`
	Midpoint     [2]float64 `json:"midpoint"`
	RawWeighted  float64 `json:"raw_weighted"`
	MeanWeighted float64 `json:"mean_weighted"`
	CellCount    int     `json:"cell_count"`
}

// RouteOutput is one scored candidate.
type RouteOutput struct {
	CandidateID    string          `json:"candidate_id"`
	DistanceMeters float64         `json:"distance_meters"`
	DurationSeconds float64        `json:"duration_seconds"`
	Segments       []SegmentOutput `json:"segments"`
	RiskScore      float64         `json:"risk_score"`
	SafetyScore    float64         `json:"safety_score"`
	RiskClass      string          `json:"risk_class"`
	IsRecommended  bool            `json:"is_recommended"`
	Hotspots       []HotspotOutput `json:"hotspots"`
	CrimeBreakdown map[string]int  `json:"crime_breakdown"`
}

// RouteScoreOutput is the batch scoring response. Incomplete counts
// candidates that did not finish before the deadline and are therefore
// absent from Routes.
type RouteScoreOutput struct {
	Routes     []RouteOutput `json:"routes"`
	Incomplete int           `json:"incomplete"`
}

// SafeRoutePreferences tunes the scoring of provider-fetched candidates.
// A zero LookbackMonths falls back to the service default.
type SafeRoutePreferences struct {
	LookbackMonths  int                `json:"lookback_months" validate:"omitempty,min=1,max=24"`
	TimeOfDay       string             `json:"time_of_day" validate:"omitempty,oneof=night morning day evening"`
	CategoryWeights map[string]float64 `json:"category_weights" validate:"omitempty,dive,gt=0"`
}

// SafeRouteInput asks the routing provider for candidates between origin
// and destination, then scores them.
type SafeRouteInput struct {
	Origin      [2]float64           `json:"origin" validate:"required,lonlat"`
	Destination [2]float64           `json:"destination" validate:"required,lonlat"`
	Mode        string               `json:"mode" validate:"required,oneof=foot-walking cycling-regular"`
	Preferences SafeRoutePreferences `json:"preferences"`
}

// RebuildInput drives the full-grid rebuild admin operation.
type RebuildInput struct {
	Months int `json:"months" validate:"required,min=1,max=60"`
}

// IngestMonthInput drives the single-month ingest admin operation.
type IngestMonthInput struct {
	Year  int `json:"year" validate:"required,min=2000,max=2100"`
	Month int `json:"month" validate:"required,min=1,max=12"`
}

// ValidateGridHealthInput drives the read-only consistency check.
// SampleSize of 0 lets the service apply its own default.
type ValidateGridHealthInput struct {
	SampleSize int `json:"sample_size" validate:"omitempty,min=1,max=10000"`
}

// RebuildOutput reports what a rebuild or month ingest touched.
type RebuildOutput struct {
	MonthsProcessed int `json:"months_processed"`
	CellsUpserted   int `json:"cells_upserted"`
	EventsScanned   int `json:"events_scanned"`
	EventsSkipped   int `json:"events_skipped"`
}

// GridHealthOutput reports a validate-grid-health pass.
type GridHealthOutput struct {
	Sampled      int      `json:"sampled"`
	Inconsistent int      `json:"inconsistent"`
	BadCellIDs   []string `json:"bad_cell_ids,omitempty"`
}
