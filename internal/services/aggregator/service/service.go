// Package service implements the Aggregator: folding Event Store rows into
// (h3, month) SafetyCell buckets using base (non recency/time-of-day
// adjusted) weighted counts.
package service

import (
	"context"
	"time"

	"saferoute/internal/core/category"
	"saferoute/internal/core/gridindex"
	"saferoute/internal/core/scoring"
	"saferoute/internal/modkit/repokit"
	"saferoute/internal/platform/cache"
	perrs "saferoute/internal/platform/errors"
	"saferoute/internal/platform/logger"
	aggdomain "saferoute/internal/services/aggregator/domain"
	"saferoute/internal/services/aggregator/guardrails"
	eventsdomain "saferoute/internal/services/events/domain"
)

// Service implements aggdomain.ServicePort.
type Service struct {
	db       repokit.TxRunner
	binder   repokit.Binder[aggdomain.StorageRepo]
	events   eventsdomain.ServicePort
	cats     category.Table
	cache    *cache.Cache
	log      logger.Logger
	monthLease func(ctx context.Context, year int, month time.Month, do func(context.Context, repokit.Queryer) error) error
	tableLease func(ctx context.Context, do func(context.Context, repokit.Queryer) error) error
}

// New constructs the Aggregator service. c may be nil, in which case the
// cache bump at the end of a successful rebuild/ingest is a no-op.
func New(
	db repokit.TxRunner,
	binder repokit.Binder[aggdomain.StorageRepo],
	events eventsdomain.ServicePort,
	cats category.Table,
	c *cache.Cache,
	log logger.Logger,
) *Service {
	if db == nil {
		panic("aggregator.Service requires a non nil TxRunner")
	}
	if binder == nil {
		panic("aggregator.Service requires a non nil StorageRepo binder")
	}
	if events == nil {
		panic("aggregator.Service requires a non nil events ServicePort")
	}
	return &Service{
		db:         db,
		binder:     binder,
		events:     events,
		cats:       cats,
		cache:      c,
		log:        log,
		monthLease: guardrails.MonthLease(db),
		tableLease: guardrails.TableLease(db),
	}
}

var _ aggdomain.ServicePort = (*Service)(nil)

// Rebuild recomputes the grid over the last N months relative to now,
// holding the table-wide lease for the whole call so readers see either
// the old grid or the fully rebuilt one, never a partial mix.
func (s *Service) Rebuild(ctx context.Context, months int) (aggdomain.RebuildReport, error) {
	if months <= 0 {
		return aggdomain.RebuildReport{}, perrs.InvalidArgf("aggregator: months must be positive, got %d", months)
	}

	var report aggdomain.RebuildReport
	err := s.tableLease(ctx, func(ctx context.Context, q repokit.Queryer) error {
		monthSet := scoring.MonthWindow(months, time.Now())

		for _, m := range monthSet {
			res, err := s.ingestOneMonth(ctx, q, m.Year(), m.Month())
			if err != nil {
				return err
			}
			report.EventsScanned += res.scanned
			report.EventsSkipped += res.skipped
			report.CellsUpserted += res.upserted
		}
		report.MonthsProcessed = len(monthSet)

		return s.binder.Bind(q).MarkStaleOutsideWindow(ctx, monthSet)
	})
	if err != nil {
		return aggdomain.RebuildReport{}, err
	}
	if err := s.cache.BumpVersion(ctx); err != nil {
		return aggdomain.RebuildReport{}, err
	}
	s.log.Info().
		Int("lookback_months", months).
		Int("cells_upserted", report.CellsUpserted).
		Int("events_scanned", report.EventsScanned).
		Int("events_skipped", report.EventsSkipped).
		Msg("aggregator: rebuild complete")
	return report, nil
}

// IngestMonth fetches/imports one month's events and re-aggregates that
// month only, holding a month-scoped lease so a second concurrent call for
// the same month fails fast with Busy instead of racing.
func (s *Service) IngestMonth(ctx context.Context, year int, month time.Month) (aggdomain.RebuildReport, error) {
	var report aggdomain.RebuildReport
	err := s.monthLease(ctx, year, month, func(ctx context.Context, q repokit.Queryer) error {
		res, err := s.ingestOneMonth(ctx, q, year, month)
		report.EventsScanned = res.scanned
		report.EventsSkipped = res.skipped
		report.CellsUpserted = res.upserted
		report.MonthsProcessed = 1
		return err
	})
	if err != nil {
		return aggdomain.RebuildReport{}, err
	}
	if err := s.cache.BumpVersion(ctx); err != nil {
		return aggdomain.RebuildReport{}, err
	}
	s.log.Info().
		Time("month", time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)).
		Int("cells_upserted", report.CellsUpserted).
		Int("events_scanned", report.EventsScanned).
		Int("events_skipped", report.EventsSkipped).
		Msg("aggregator: month ingest complete")
	return report, nil
}

// defaultHealthSample bounds how many cells validate-grid-health inspects
// per call when the caller doesn't specify a sample size.
const defaultHealthSample = 500

// ValidateGridHealth re-checks consistency invariants over a sample of
// cells, for operator triage. It never repairs anything:
// an inconsistency is logged and counted, matching how a read path
// excludes the offending cell and continues rather than failing the call.
func (s *Service) ValidateGridHealth(ctx context.Context, sampleSize int) (aggdomain.HealthReport, error) {
	if sampleSize <= 0 {
		sampleSize = defaultHealthSample
	}
	cells, err := s.binder.Bind(s.db).SampleCells(ctx, sampleSize)
	if err != nil {
		return aggdomain.HealthReport{}, err
	}

	var report aggdomain.HealthReport
	report.Sampled = len(cells)
	for _, c := range cells {
		if ok, reason := s.checkInvariants(c); !ok {
			report.Inconsistent++
			if len(report.BadCellIDs) < 10 {
				report.BadCellIDs = append(report.BadCellIDs, c.CellID)
			}
			s.log.Warn().
				Str("cell_id", c.CellID).
				Str("h3", c.H3Index).
				Time("month", c.Month).
				Err(perrs.Inconsistentf("aggregator: %s", reason)).
				Msg("aggregator: inconsistent cell")
		}
	}
	return report, nil
}

// invariantTolerance is the float slack allowed between stored and
// recomputed crime_count_weighted.
const invariantTolerance = 1e-6

// checkInvariants re-validates one cell: the stats histogram sums to
// the total, the weighted count matches the harm-weighted stats within
// float tolerance, and the h3 index still parses at resolution 10.
func (s *Service) checkInvariants(c aggdomain.SafetyCell) (bool, string) {
	sum := 0
	var wantWeighted float64
	for cat, n := range c.Stats {
		sum += n
		wantWeighted += float64(n) * s.cats.HarmWeight(cat)
	}
	if sum != c.CrimeCountTotal {
		return false, "crime_count_total does not match sum of stats"
	}
	if diff := c.CrimeCountWeighted - wantWeighted; diff > invariantTolerance || diff < -invariantTolerance {
		return false, "crime_count_weighted does not match harm-weighted stats"
	}
	if _, err := gridindex.ResolutionOf(gridindex.H3Index(c.H3Index)); err != nil {
		return false, "h3_index invalid at resolution 10"
	}
	return true, ""
}

// monthResult tallies one month's fold.
type monthResult struct {
	scanned  int
	skipped  int
	upserted int
}

// ingestOneMonth streams one month's events, folds them into per-h3
// buckets using base weighted counts (no recency, no time-of-day -- those
// are query-side multipliers), and upserts the resulting cells. Events
// whose location fails to index are skipped and counted, not fatal.
func (s *Service) ingestOneMonth(ctx context.Context, q repokit.Queryer, year int, month time.Month) (monthResult, error) {
	var res monthResult
	buckets := map[string]*aggdomain.CellBucket{}
	monthStart := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)

	err := s.events.EventsInMonth(ctx, year, month, func(e eventsdomain.CrimeEvent) error {
		res.scanned++
		h3, err := gridindex.CellOf(e.Location.Lat(), e.Location.Lon())
		if err != nil {
			res.skipped++
			s.log.Warn().Str("external_id", e.ExternalID).Err(err).Msg("aggregator: unindexable event location")
			return nil
		}

		b, ok := buckets[string(h3)]
		if !ok {
			b = &aggdomain.CellBucket{H3: string(h3), Month: monthStart, Stats: map[string]int{}}
			buckets[string(h3)] = b
		}
		b.CrimeCountTotal++
		b.CrimeCountWeighted += s.cats.HarmWeight(e.Category)
		b.Stats[e.Category]++
		return nil
	})
	if err != nil {
		return res, perrs.Wrapf(err, perrs.ErrorCodeDB, "aggregator: stream events for %04d-%02d", year, month)
	}

	cells := make([]aggdomain.SafetyCell, 0, len(buckets))
	for h3, b := range buckets {
		geom, err := gridindex.BoundaryOf(gridindex.H3Index(h3))
		if err != nil {
			return res, perrs.Wrapf(err, perrs.ErrorCodeInvalidArgument, "aggregator: boundary of %s", h3)
		}
		cells = append(cells, aggdomain.SafetyCell{
			CellID:             gridindex.CellID(gridindex.H3Index(h3), year, int(month)),
			H3Index:            h3,
			Month:              b.Month,
			CrimeCountTotal:    b.CrimeCountTotal,
			CrimeCountWeighted: b.CrimeCountWeighted,
			Stats:              b.Stats,
			Geom:               geom,
			UpdatedAt:          time.Now().UTC(),
		})
	}

	if err := s.binder.Bind(q).UpsertCells(ctx, cells); err != nil {
		return res, err
	}
	res.upserted = len(cells)
	return res, nil
}
