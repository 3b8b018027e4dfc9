// Package service adapts the safety API's wire-level DTOs onto the
// Snapshot Service, Route Scorer, and Aggregator ports, so the HTTP layer
// never imports an engine service's domain package directly.
package service

import (
	"context"
	"time"

	"github.com/paulmach/orb"

	"saferoute/internal/adapters/routingprovider"
	"saferoute/internal/core/scoring"
	perrs "saferoute/internal/platform/errors"
	apidomain "saferoute/internal/services/api/safety/domain"
	aggdomain "saferoute/internal/services/aggregator/domain"
	rsdomain "saferoute/internal/services/routescore/domain"
	snapdomain "saferoute/internal/services/snapshot/domain"
)

// defaultLookbackMonths is applied when a safe-routes request leaves the
// preference unset.
const defaultLookbackMonths = 12

// RoutingPort is the black-box routing provider the safe-routes flow
// forwards origin/destination pairs to.
type RoutingPort interface {
	Route(ctx context.Context, req routingprovider.Request) ([]routingprovider.Candidate, error)
}

// Service wires the engine ports a safety API call can reach.
type Service struct {
	snapshot   snapdomain.ServicePort
	routeScore rsdomain.ServicePort
	aggregator aggdomain.ServicePort
	router     RoutingPort
}

// New constructs the safety API facade over the engine ports. router may
// be nil, in which case the safe-routes flow reports the provider as
// unavailable while direct candidate scoring keeps working.
func New(snapshot snapdomain.ServicePort, routeScore rsdomain.ServicePort, aggregator aggdomain.ServicePort, router RoutingPort) *Service {
	return &Service{snapshot: snapshot, routeScore: routeScore, aggregator: aggregator, router: router}
}

// Snapshot resolves a grid snapshot for the given bbox and window.
func (s *Service) Snapshot(ctx context.Context, in apidomain.SnapshotInput) (apidomain.SnapshotOutput, error) {
	q := snapdomain.Query{
		BBox: snapdomain.BBox{
			MinLon: in.BBox.MinLon,
			MinLat: in.BBox.MinLat,
			MaxLon: in.BBox.MaxLon,
			MaxLat: in.BBox.MaxLat,
		},
		LookbackMonths: in.LookbackMonths,
		TimeOfDay:      scoring.TimeOfDay(in.TimeOfDay),
	}
	snap, err := s.snapshot.Snapshot(ctx, q)
	if err != nil {
		return apidomain.SnapshotOutput{}, err
	}
	return toSnapshotOutput(snap), nil
}

// ScoreRoutes scores every candidate in the batch.
func (s *Service) ScoreRoutes(ctx context.Context, in apidomain.RouteScoreInput) (apidomain.RouteScoreOutput, error) {
	candidates := make([]rsdomain.Candidate, len(in.Candidates))
	for i, c := range in.Candidates {
		candidates[i] = rsdomain.Candidate{
			ID:       c.ID,
			Polyline: toLineString(c.Polyline),
			Distance: c.DistanceMeters,
			Duration: time.Duration(c.DurationSeconds * float64(time.Second)),
		}
	}
	q := rsdomain.Query{
		LookbackMonths:    in.LookbackMonths,
		TimeOfDay:         scoring.TimeOfDay(in.TimeOfDay),
		CategoryOverrides: in.CategoryOverrides,
	}
	result, err := s.routeScore.ScoreBatch(ctx, candidates, q)
	if err != nil {
		return apidomain.RouteScoreOutput{}, err
	}
	return toRouteScoreOutput(result), nil
}

// SafeRoutes fetches candidate polylines from the routing provider for an
// origin/destination pair, then scores them like any other batch.
func (s *Service) SafeRoutes(ctx context.Context, in apidomain.SafeRouteInput) (apidomain.RouteScoreOutput, error) {
	if s.router == nil {
		return apidomain.RouteScoreOutput{}, perrs.Unavailablef("safety: routing provider not configured")
	}
	provided, err := s.router.Route(ctx, routingprovider.Request{
		Origin:      orb.Point{in.Origin[0], in.Origin[1]},
		Destination: orb.Point{in.Destination[0], in.Destination[1]},
		Mode:        routingprovider.Mode(in.Mode),
	})
	if err != nil {
		return apidomain.RouteScoreOutput{}, err
	}
	if len(provided) == 0 {
		return apidomain.RouteScoreOutput{}, perrs.Unavailablef("safety: routing provider returned no candidates")
	}

	candidates := make([]rsdomain.Candidate, len(provided))
	for i, c := range provided {
		candidates[i] = rsdomain.Candidate{
			ID:       c.ID,
			Polyline: c.Polyline,
			Distance: c.Distance,
			Duration: c.Duration,
		}
	}
	lookback := in.Preferences.LookbackMonths
	if lookback == 0 {
		lookback = defaultLookbackMonths
	}
	q := rsdomain.Query{
		LookbackMonths:    lookback,
		TimeOfDay:         scoring.TimeOfDay(in.Preferences.TimeOfDay),
		CategoryOverrides: in.Preferences.CategoryWeights,
	}
	result, err := s.routeScore.ScoreBatch(ctx, candidates, q)
	if err != nil {
		return apidomain.RouteScoreOutput{}, err
	}
	return toRouteScoreOutput(result), nil
}

// Rebuild recomputes the whole grid over the last N months.
func (s *Service) Rebuild(ctx context.Context, in apidomain.RebuildInput) (apidomain.RebuildOutput, error) {
	report, err := s.aggregator.Rebuild(ctx, in.Months)
	if err != nil {
		return apidomain.RebuildOutput{}, err
	}
	return toRebuildOutput(report), nil
}

// IngestMonth fetches/imports one month's events then re-aggregates it.
func (s *Service) IngestMonth(ctx context.Context, in apidomain.IngestMonthInput) (apidomain.RebuildOutput, error) {
	report, err := s.aggregator.IngestMonth(ctx, in.Year, time.Month(in.Month))
	if err != nil {
		return apidomain.RebuildOutput{}, err
	}
	return toRebuildOutput(report), nil
}

// ValidateGridHealth re-checks consistency invariants over a sample of cells.
func (s *Service) ValidateGridHealth(ctx context.Context, in apidomain.ValidateGridHealthInput) (apidomain.GridHealthOutput, error) {
	sample := in.SampleSize
	if sample == 0 {
		sample = 500
	}
	report, err := s.aggregator.ValidateGridHealth(ctx, sample)
	if err != nil {
		return apidomain.GridHealthOutput{}, err
	}
	return apidomain.GridHealthOutput{
		Sampled:      report.Sampled,
		Inconsistent: report.Inconsistent,
		BadCellIDs:   report.BadCellIDs,
	}, nil
}

func toLineString(pts [][2]float64) orb.LineString {
	ls := make(orb.LineString, len(pts))
	for i, p := range pts {
		ls[i] = orb.Point{p[0], p[1]}
	}
	return ls
}

func toPolygonOutput(p orb.Polygon) [][2]float64 {
	if len(p) == 0 {
		return nil
	}
	ring := p[0]
	out := make([][2]float64, len(ring))
	for i, pt := range ring {
		out[i] = [2]float64{pt.Lon(), pt.Lat()}
	}
	return out
}

func toSnapshotOutput(snap snapdomain.Snapshot) apidomain.SnapshotOutput {
	cells := make([]apidomain.CellOutput, len(snap.Cells))
	for i, c := range snap.Cells {
		cells[i] = apidomain.CellOutput{
			H3Index:         c.H3Index,
			Polygon:         toPolygonOutput(c.Geom),
			CrimeCountTotal: c.CrimeCountTotal,
			CrimeBreakdown:  c.CrimeBreakdown,
			RiskScore:       c.RiskScore,
			SafetyScore:     c.SafetyScore,
			RiskClass:       c.RiskClass,
		}
	}
	months := make([]string, len(snap.Meta.MonthsIncluded))
	for i, m := range snap.Meta.MonthsIncluded {
		months[i] = m.Format("2006-01")
	}
	return apidomain.SnapshotOutput{
		Cells: cells,
		Summary: apidomain.SummaryOutput{
			CellCount:    snap.Summary.CellCount,
			TotalCrimes:  snap.Summary.TotalCrimes,
			MeanSafety:   snap.Summary.MeanSafety,
			ArgMaxRiskH3: snap.Summary.ArgMaxRiskH3,
			ArgMinRiskH3: snap.Summary.ArgMinRiskH3,
		},
		Meta: apidomain.MetaOutput{
			BBox: apidomain.BBoxInput{
				MinLon: snap.Meta.BBox.MinLon,
				MinLat: snap.Meta.BBox.MinLat,
				MaxLon: snap.Meta.BBox.MaxLon,
				MaxLat: snap.Meta.BBox.MaxLat,
			},
			CellSizeMeters: snap.Meta.CellSizeMeters,
			GridType:       snap.Meta.GridType,
			MonthsIncluded: months,
		},
	}
}

func toRouteScoreOutput(result rsdomain.BatchResult) apidomain.RouteScoreOutput {
	routes := make([]apidomain.RouteOutput, len(result.Routes))
	for i, r := range result.Routes {
		segments := make([]apidomain.SegmentOutput, len(r.Segments))
		for j, sg := range r.Segments {
			segments[j] = apidomain.SegmentOutput{
				Index:        sg.Index,
				Midpoint:     [2]float64{sg.Midpoint.Lon(), sg.Midpoint.Lat()},
				RawWeighted:  sg.RawWeighted,
				MeanWeighted: sg.MeanWeighted,
				CellCount:    sg.CellCount,
			}
		}
		hotspots := make([]apidomain.HotspotOutput, len(r.Hotspots))
		for j, h := range r.Hotspots {
			hotspots[j] = apidomain.HotspotOutput{
				SegmentIndex: h.SegmentIndex,
				Midpoint:     [2]float64{h.Midpoint.Lon(), h.Midpoint.Lat()},
				RiskLevel:    string(h.RiskLevel),
				Description:  h.Description,
				RiskScore:    h.RiskScore,
			}
		}
		routes[i] = apidomain.RouteOutput{
			CandidateID:     r.CandidateID,
			DistanceMeters:  r.Distance,
			DurationSeconds: r.Duration.Seconds(),
			Segments:        segments,
			RiskScore:       r.RiskScore,
			SafetyScore:     r.SafetyScore,
			RiskClass:       r.RiskClass,
			IsRecommended:   r.IsRecommended,
			Hotspots:        hotspots,
			CrimeBreakdown:  r.CrimeBreakdown,
		}
	}
	return apidomain.RouteScoreOutput{Routes: routes, Incomplete: result.Incomplete}
}

func toRebuildOutput(r aggdomain.RebuildReport) apidomain.RebuildOutput {
	return apidomain.RebuildOutput{
		MonthsProcessed: r.MonthsProcessed,
		CellsUpserted:   r.CellsUpserted,
		EventsScanned:   r.EventsScanned,
		EventsSkipped:   r.EventsSkipped,
	}
}
