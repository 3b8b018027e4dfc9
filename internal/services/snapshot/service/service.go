// Package service implements the Snapshot Service: folding persisted
// SafetyCell rows into a bbox + lookback-window view, fronted by the
// read-through cache.
package service

import (
	"context"
	"sort"
	"strconv"
	"time"

	"saferoute/internal/core/category"
	"saferoute/internal/core/scoring"
	"saferoute/internal/platform/cache"
	perrs "saferoute/internal/platform/errors"
	"saferoute/internal/platform/logger"
	snapdomain "saferoute/internal/services/snapshot/domain"
)

const (
	minLookbackMonths = 1
	maxLookbackMonths = 24
)

// Service implements snapdomain.ServicePort over a StorageRepo and the
// shared scoring primitives.
type Service struct {
	repo  snapdomain.StorageRepo
	cats  category.Table
	cache *cache.Cache
	log   logger.Logger
	now   func() time.Time
}

// New constructs the Snapshot Service. cache may be nil, in which case
// every query is a miss (Cache.Get/Set are no-ops on a nil receiver).
func New(repo snapdomain.StorageRepo, cats category.Table, c *cache.Cache, log logger.Logger) *Service {
	if repo == nil {
		panic("snapshot.Service requires a non nil StorageRepo")
	}
	return &Service{repo: repo, cats: cats, cache: c, log: log, now: time.Now}
}

var _ snapdomain.ServicePort = (*Service)(nil)

// Snapshot resolves the month window, queries cells intersecting bbox,
// folds by h3_index across months using the shared FoldGroup accumulator,
// then scores each group through scoring.Risk so a hexagon and a
// single-cell route segment are provably the same function.
func (s *Service) Snapshot(ctx context.Context, q snapdomain.Query) (snapdomain.Snapshot, error) {
	if err := validateQuery(q); err != nil {
		return snapdomain.Snapshot{}, err
	}

	now := s.now()
	key := cache.Fingerprint("snapshot", bboxKey(q.BBox), q.LookbackMonths, string(q.TimeOfDay), nil, now)

	var cached snapdomain.Snapshot
	if hit, err := s.cache.Get(ctx, key, &cached); err != nil {
		return snapdomain.Snapshot{}, err
	} else if hit {
		return cached, nil
	}

	months := scoring.MonthWindow(q.LookbackMonths, now)
	rows, err := s.repo.CellsInBBoxMonths(ctx, q.BBox, months)
	if err != nil {
		return snapdomain.Snapshot{}, perrs.WrapIf(err, perrs.ErrorCodeDB, "snapshot: query cells")
	}

	groups := map[string]*scoring.FoldGroup{}
	geoms := map[string]snapdomain.CellRow{}
	totals := map[string]int{}

	for _, row := range rows {
		if inconsistent(row) {
			// excluded from scoring, not fatal; a repair pass picks it up
			s.log.Warn().
				Str("h3", row.H3Index).
				Time("month", row.Month).
				Err(perrs.Inconsistentf("snapshot: stats do not sum to crime_count_total")).
				Msg("snapshot: excluding inconsistent cell")
			continue
		}
		g, ok := groups[row.H3Index]
		if !ok {
			g = &scoring.FoldGroup{}
			groups[row.H3Index] = g
		}
		k := scoring.MonthsAgo(row.Month, now)
		wCell := scoring.WeightedCell(row.Stats, s.cats, q.TimeOfDay, row.CrimeCountWeighted)
		g.Add(wCell, k, row.Stats)
		totals[row.H3Index] += row.CrimeCountTotal
		geoms[row.H3Index] = row
	}

	cells := make([]snapdomain.Cell, 0, len(groups))
	for h3, g := range groups {
		risk := scoring.Risk(g.W)
		safety := scoring.SafetyScore(risk)
		cells = append(cells, snapdomain.Cell{
			H3Index:         h3,
			Geom:            geoms[h3].Geom,
			CrimeCountTotal: totals[h3],
			CrimeBreakdown:  nonZero(g.Stats),
			RiskScore:       round3(risk),
			SafetyScore:     safety,
			RiskClass:       scoring.RiskClass(safety),
		})
	}
	sort.Slice(cells, func(i, j int) bool { return cells[i].H3Index < cells[j].H3Index })

	out := snapdomain.Snapshot{
		Cells:   cells,
		Summary: summarize(cells),
		Meta: snapdomain.Meta{
			BBox:           q.BBox,
			CellSizeMeters: 73,
			GridType:       "h3_hexagonal",
			MonthsIncluded: months,
		},
	}

	if err := s.cache.Set(ctx, key, out); err != nil {
		return snapdomain.Snapshot{}, err
	}
	s.log.Debug().
		Int("lookback_months", q.LookbackMonths).
		Str("time_of_day", string(q.TimeOfDay)).
		Int("cells", len(cells)).
		Msg("snapshot computed")
	return out, nil
}

// validateQuery enforces the closed enumerations a query must satisfy:
// lookback in [1,24] and a recognized (or empty) time_of_day.
func validateQuery(q snapdomain.Query) error {
	if q.LookbackMonths < minLookbackMonths || q.LookbackMonths > maxLookbackMonths {
		return perrs.InvalidArgf("snapshot: lookback_months must be in [%d,%d], got %d", minLookbackMonths, maxLookbackMonths, q.LookbackMonths)
	}
	if q.TimeOfDay != "" && !q.TimeOfDay.Valid() {
		return perrs.InvalidArgf("snapshot: unknown time_of_day %q", q.TimeOfDay)
	}
	if q.BBox.MinLon >= q.BBox.MaxLon || q.BBox.MinLat >= q.BBox.MaxLat {
		return perrs.InvalidArgf("snapshot: degenerate bbox")
	}
	return nil
}

// inconsistent re-checks a single row's stats-vs-total consistency at read
// time: the offending cell is excluded, scoring continues.
func inconsistent(row snapdomain.CellRow) bool {
	sum := 0
	for _, n := range row.Stats {
		sum += n
	}
	return sum != row.CrimeCountTotal
}

func nonZero(stats scoring.StatsBucket) map[string]int {
	out := make(map[string]int, len(stats))
	for cat, n := range stats {
		if n > 0 {
			out[cat] = n
		}
	}
	return out
}

func summarize(cells []snapdomain.Cell) snapdomain.Summary {
	var sum snapdomain.Summary
	if len(cells) == 0 {
		return sum
	}
	sum.CellCount = len(cells)

	// cells arrives sorted ascending by H3Index, so the first cell to reach
	// a new max/min also wins any tie, giving ties the lexicographically
	// smallest h3_index.
	var safetySum float64
	maxRisk, minRisk := -1.0, 2.0
	for _, c := range cells {
		sum.TotalCrimes += c.CrimeCountTotal
		safetySum += c.SafetyScore
		if c.RiskScore > maxRisk {
			maxRisk = c.RiskScore
			sum.ArgMaxRiskH3 = c.H3Index
		}
		if c.RiskScore < minRisk {
			minRisk = c.RiskScore
			sum.ArgMinRiskH3 = c.H3Index
		}
	}
	sum.MeanSafety = round1(safetySum / float64(len(cells)))
	return sum
}

// bboxKey renders a bbox as the cache fingerprint's shapeKey.
func bboxKey(b snapdomain.BBox) string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', 6, 64) }
	return f(b.MinLon) + "," + f(b.MinLat) + "," + f(b.MaxLon) + "," + f(b.MaxLat)
}

func round3(v float64) float64 { return scoring.Round(v, 3) }
func round1(v float64) float64 { return scoring.Round(v, 1) }
