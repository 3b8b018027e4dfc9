// Package service implements the Route Scorer: polyline segmentation,
// per-segment cell intersection via the spatial index, and segment/route
// risk aggregation sharing the scoring package's single Risk function with
// the Snapshot Service.
package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/paulmach/orb"

	"saferoute/internal/core/category"
	"saferoute/internal/core/scoring"
	"saferoute/internal/platform/cache"
	"saferoute/internal/platform/geo"
	"saferoute/internal/platform/logger"

	perrs "saferoute/internal/platform/errors"
	rsdomain "saferoute/internal/services/routescore/domain"
)

const (
	minLookbackMonths = 1
	maxLookbackMonths = 24

	// hotspotThreshold is the raw weighted sum at or above which a segment
	// is reported as a hotspot.
	hotspotThreshold = 50.0
	// criticalThreshold distinguishes "high" from "critical" hotspots.
	criticalThreshold = 100.0

	// DefaultDeadline bounds batch scoring latency.
	DefaultDeadline = 5 * time.Second
)

// Service implements rsdomain.ServicePort.
type Service struct {
	repo     rsdomain.StorageRepo
	index    rsdomain.SpatialIndex
	cats     category.Table
	cache    *cache.Cache
	deadline time.Duration
	log      logger.Logger
	now      func() time.Time
}

// New constructs the Route Scorer. c may be nil (every query misses);
// deadline <= 0 uses DefaultDeadline.
func New(repo rsdomain.StorageRepo, index rsdomain.SpatialIndex, cats category.Table, c *cache.Cache, deadline time.Duration, log logger.Logger) *Service {
	if repo == nil {
		panic("routescore.Service requires a non nil StorageRepo")
	}
	if index == nil {
		panic("routescore.Service requires a non nil SpatialIndex")
	}
	if deadline <= 0 {
		deadline = DefaultDeadline
	}
	return &Service{repo: repo, index: index, cats: cats, cache: c, deadline: deadline, log: log, now: time.Now}
}

var _ rsdomain.ServicePort = (*Service)(nil)

// ScoreBatch scores every candidate concurrently, each against the shared
// deadline. If the deadline elapses, outstanding candidates are abandoned;
// partial results are returned if at least one candidate completed, else
// the call fails as a timeout.
func (s *Service) ScoreBatch(ctx context.Context, candidates []rsdomain.Candidate, q rsdomain.Query) (rsdomain.BatchResult, error) {
	if err := validateQuery(q); err != nil {
		return rsdomain.BatchResult{}, err
	}
	if len(candidates) == 0 {
		return rsdomain.BatchResult{}, perrs.InvalidArgf("routescore: empty candidate batch")
	}
	for _, c := range candidates {
		if err := validateCandidate(c); err != nil {
			return rsdomain.BatchResult{}, err
		}
	}

	now := s.now()
	key := cache.Fingerprint("routescore", batchKey(candidates), q.LookbackMonths, string(q.TimeOfDay), q.CategoryOverrides, now)
	var cached rsdomain.BatchResult
	if hit, err := s.cache.Get(ctx, key, &cached); err != nil {
		return rsdomain.BatchResult{}, err
	} else if hit {
		return cached, nil
	}

	parent := ctx
	ctx, cancel := context.WithTimeout(ctx, s.deadline)
	defer cancel()

	type result struct {
		route rsdomain.Route
		err   error
	}
	results := make([]result, len(candidates))
	var wg sync.WaitGroup
	for i, c := range candidates {
		wg.Add(1)
		go func(i int, c rsdomain.Candidate) {
			defer wg.Done()
			route, err := s.scoreOne(ctx, c, q, now)
			results[i] = result{route: route, err: err}
		}(i, c)
	}

	// Every goroutine observes ctx.Done() on its next segment or repo call
	// and returns promptly, so waiting here never blocks past the
	// deadline -- no separate select/race on partially-written results.
	wg.Wait()

	var batch rsdomain.BatchResult
	var firstErr error
	for i := range results {
		r := results[i]
		if r.err != nil || r.route.CandidateID == "" {
			batch.Incomplete++
			if r.err != nil {
				s.log.Warn().Str("candidate", candidates[i].ID).Err(r.err).Msg("routescore: candidate did not complete")
			}
			if firstErr == nil && r.err != nil && !errors.Is(r.err, context.DeadlineExceeded) && !errors.Is(r.err, context.Canceled) {
				firstErr = r.err
			}
			continue
		}
		batch.Routes = append(batch.Routes, r.route)
	}
	if len(batch.Routes) == 0 {
		if firstErr != nil {
			return rsdomain.BatchResult{}, firstErr
		}
		return rsdomain.BatchResult{}, perrs.Timeoutf("routescore: deadline elapsed, zero candidates completed")
	}

	markRecommended(batch.Routes)
	// write through on the parent context so a just-expired scoring
	// deadline doesn't fail a batch that did complete
	if err := s.cache.Set(parent, key, batch); err != nil {
		return rsdomain.BatchResult{}, err
	}
	s.log.Debug().
		Int("lookback_months", q.LookbackMonths).
		Str("time_of_day", string(q.TimeOfDay)).
		Int("candidates", len(candidates)).
		Int("incomplete", batch.Incomplete).
		Msg("routescore: batch scored")
	return batch, nil
}

// batchKey renders a candidate batch as the cache fingerprint's shapeKey:
// every polyline's vertices plus the provider metadata the tie-break
// depends on.
func batchKey(candidates []rsdomain.Candidate) string {
	var b strings.Builder
	for _, c := range candidates {
		b.WriteString(c.ID)
		b.WriteByte('|')
		b.WriteString(strconv.FormatFloat(c.Distance, 'f', 1, 64))
		b.WriteByte('|')
		b.WriteString(c.Duration.String())
		for _, p := range c.Polyline {
			b.WriteByte(';')
			b.WriteString(strconv.FormatFloat(p.Lon(), 'f', 6, 64))
			b.WriteByte(',')
			b.WriteString(strconv.FormatFloat(p.Lat(), 'f', 6, 64))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// scoreOne segments the candidate's polyline, scores and folds each
// segment, then reduces the segment means into one route-level risk score.
func (s *Service) scoreOne(ctx context.Context, c rsdomain.Candidate, q rsdomain.Query, now time.Time) (rsdomain.Route, error) {
	segs := geo.Segmentize(c.Polyline)
	cats := weightView{base: s.cats, overrides: q.CategoryOverrides}
	months := scoring.MonthWindow(q.LookbackMonths, now)

	route := rsdomain.Route{
		CandidateID:    c.ID,
		Distance:       c.Distance,
		Duration:       c.Duration,
		CrimeBreakdown: map[string]int{},
	}

	var weightedSum float64
	for _, sg := range segs {
		if err := ctx.Err(); err != nil {
			return rsdomain.Route{}, err
		}
		seg, err := s.scoreSegment(ctx, sg, cats, q.TimeOfDay, months, now, route.CrimeBreakdown)
		if err != nil {
			return rsdomain.Route{}, err
		}
		route.Segments = append(route.Segments, seg)
		weightedSum += seg.MeanWeighted
		if seg.RawWeighted >= hotspotThreshold {
			route.Hotspots = append(route.Hotspots, hotspotFor(seg))
		}
	}

	wRoute := 0.0
	if len(segs) > 0 {
		wRoute = weightedSum / float64(len(segs))
	}
	risk := scoring.Risk(wRoute)
	route.RiskScore = scoring.Round(risk, 3)
	route.SafetyScore = scoring.SafetyScore(risk)
	route.RiskClass = scoring.RiskClass(route.SafetyScore)
	return route, nil
}

// scoreSegment intersects one segment against the grid, folds by h3
// across the lookback window, and reduces to the segment's mean weighted
// value. It also folds the segment's cells into the route-level unweighted
// crime breakdown.
func (s *Service) scoreSegment(
	ctx context.Context,
	sg geo.Segment,
	cats scoring.CategoryWeights,
	tod scoring.TimeOfDay,
	months []time.Time,
	now time.Time,
	breakdown map[string]int,
) (rsdomain.Segment, error) {
	h3s, err := s.index.CellsNearSegment(sg.Vertices, geo.BufferMeters)
	if err != nil {
		return rsdomain.Segment{}, perrs.WrapIf(err, perrs.ErrorCodeDB, "routescore: cells near segment")
	}
	out := rsdomain.Segment{Index: sg.Index, Vertices: sg.Vertices, Midpoint: sg.Midpoint()}
	if len(h3s) == 0 {
		return out, nil
	}

	rows, err := s.repo.CellsForFootprint(ctx, h3s, months)
	if err != nil {
		return rsdomain.Segment{}, perrs.WrapIf(err, perrs.ErrorCodeDB, "routescore: cells for footprint")
	}

	groups := map[string]*scoring.FoldGroup{}
	for _, row := range rows {
		g, ok := groups[row.H3Index]
		if !ok {
			g = &scoring.FoldGroup{}
			groups[row.H3Index] = g
		}
		k := scoring.MonthsAgo(row.Month, now)
		wCell := cellWeight(cats, row.Stats, tod, row.CrimeCountWeighted)
		g.Add(wCell, k, row.Stats)
		for cat, n := range row.Stats {
			breakdown[cat] += n
		}
	}

	out.CellCount = len(groups)
	for _, g := range groups {
		out.RawWeighted += g.W
	}
	if out.CellCount > 0 {
		out.MeanWeighted = out.RawWeighted / float64(out.CellCount)
	}
	return out, nil
}

// cellWeight recomputes a cell's weighted contribution from its stats
// whenever a time-of-day filter or category override is in play; with
// neither, the persisted crime_count_weighted is reused unchanged, the
// same fallback the Snapshot Service relies on.
func cellWeight(cats scoring.CategoryWeights, stats map[string]int, tod scoring.TimeOfDay, persisted float64) float64 {
	wv, hasOverrides := cats.(weightView)
	if tod == "" && !(hasOverrides && len(wv.overrides) > 0) {
		return persisted
	}
	var w float64
	for cat, n := range stats {
		w += float64(n) * cats.HarmWeight(cat) * cats.ToDMultiplier(cat, tod)
	}
	return w
}

// weightView wraps category.Table with the query-time multiplicative
// category overrides a route query allows, applied after harm weight.
type weightView struct {
	base      category.Table
	overrides map[string]float64
}

func (w weightView) HarmWeight(id string) float64 {
	h := w.base.HarmWeight(id)
	if m, ok := w.overrides[id]; ok {
		h *= m
	}
	return h
}

func (w weightView) ToDMultiplier(id string, b scoring.TimeOfDay) float64 {
	return w.base.ToDMultiplier(id, b)
}

var _ scoring.CategoryWeights = weightView{}

func hotspotFor(seg rsdomain.Segment) rsdomain.Hotspot {
	level := rsdomain.HotspotHigh
	if seg.RawWeighted > criticalThreshold {
		level = rsdomain.HotspotCritical
	}
	return rsdomain.Hotspot{
		SegmentIndex: seg.Index,
		Midpoint:     seg.Midpoint,
		RiskLevel:    level,
		Description:  fmt.Sprintf("elevated reported crime near segment %d", seg.Index),
		RiskScore:    scoring.Round(scoring.Risk(seg.MeanWeighted), 3),
	}
}

// markRecommended flags the single highest-safety route, tie-broken by
// shorter distance then shorter duration.
func markRecommended(routes []rsdomain.Route) {
	if len(routes) == 0 {
		return
	}
	best := 0
	for i := 1; i < len(routes); i++ {
		if better(routes[i], routes[best]) {
			best = i
		}
	}
	routes[best].IsRecommended = true
}

func better(a, b rsdomain.Route) bool {
	if a.SafetyScore != b.SafetyScore {
		return a.SafetyScore > b.SafetyScore
	}
	if a.Distance != b.Distance {
		return a.Distance < b.Distance
	}
	return a.Duration < b.Duration
}

func validateQuery(q rsdomain.Query) error {
	if q.LookbackMonths < minLookbackMonths || q.LookbackMonths > maxLookbackMonths {
		return perrs.InvalidArgf("routescore: lookback_months must be in [%d,%d], got %d", minLookbackMonths, maxLookbackMonths, q.LookbackMonths)
	}
	if q.TimeOfDay != "" && !q.TimeOfDay.Valid() {
		return perrs.InvalidArgf("routescore: unknown time_of_day %q", q.TimeOfDay)
	}
	return nil
}

func validateCandidate(c rsdomain.Candidate) error {
	if len(c.Polyline) < 2 {
		return perrs.InvalidArgf("routescore: candidate %s has fewer than 2 vertices", c.ID)
	}
	if len(c.Polyline) == 2 && samePoint(c.Polyline[0], c.Polyline[1]) {
		return perrs.InvalidArgf("routescore: candidate %s is a single point repeated", c.ID)
	}
	return nil
}

func samePoint(a, b orb.Point) bool { return a.Lon() == b.Lon() && a.Lat() == b.Lat() }
