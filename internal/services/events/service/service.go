// Package service implements the Event Store's ingestion and query
// operations over the repo seam.
package service

import (
	"context"
	"time"

	"saferoute/internal/core/category"
	"saferoute/internal/modkit/repokit"
	perrs "saferoute/internal/platform/errors"
	"saferoute/internal/services/events/domain"
)

// malformedThreshold is the fraction of a batch that can be malformed
// before ingestion is aborted with UpstreamUnavailable.
const malformedThreshold = 0.10

// maxSample caps how many malformed descriptions accompany the error.
const maxSample = 5

// Service implements domain.ServicePort over a StorageRepo binder.
type Service struct {
	db     repokit.TxRunner
	binder repokit.Binder[domain.StorageRepo]
	cats   category.Table
}

// New constructs the Event Store service.
func New(db repokit.TxRunner, binder repokit.Binder[domain.StorageRepo], cats category.Table) *Service {
	if db == nil {
		panic("events.Service requires a non nil TxRunner")
	}
	if binder == nil {
		panic("events.Service requires a non nil StorageRepo binder")
	}
	return &Service{db: db, binder: binder, cats: cats}
}

var _ domain.ServicePort = (*Service)(nil)

// UpsertEvents normalizes categories, skips malformed rows,
// and upserts the rest idempotently by ExternalID.
func (s *Service) UpsertEvents(ctx context.Context, batch []domain.CrimeEvent) (domain.IngestReport, error) {
	var report domain.IngestReport
	clean := make([]domain.CrimeEvent, 0, len(batch))

	for _, e := range batch {
		if !validEvent(e) {
			report.Malformed++
			if len(report.Sample) < maxSample {
				report.Sample = append(report.Sample, "invalid event: "+e.ExternalID)
			}
			continue
		}
		e.Category = s.cats.Normalize(e.Category)
		clean = append(clean, e)
	}

	if len(batch) > 0 {
		ratio := float64(report.Malformed) / float64(len(batch))
		if ratio > malformedThreshold {
			return report, perrs.Unavailablef(
				"events: malformed rate %.1f%% exceeds threshold, sample=%v",
				ratio*100, report.Sample,
			)
		}
	}

	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		inserted, updated, err := s.binder.Bind(q).UpsertBatch(ctx, clean)
		report.Accepted = inserted + updated
		return err
	})
	if err != nil {
		return report, perrs.WrapIf(err, perrs.ErrorCodeDB, "events: upsert batch")
	}
	return report, nil
}

// EventsInMonth streams events for one month.
func (s *Service) EventsInMonth(ctx context.Context, year int, month time.Month, fn domain.EachEvent) error {
	return s.binder.Bind(s.db).EachInMonth(ctx, year, month, fn)
}

// EventsInBBoxBetween streams events inside bbox across a month range.
func (s *Service) EventsInBBoxBetween(ctx context.Context, bbox domain.BBox, from, to time.Time, fn domain.EachEvent) error {
	return s.binder.Bind(s.db).EachInBBoxBetween(ctx, bbox, from, to, fn)
}

// validEvent rejects events missing a dedup key or carrying an
// out-of-range coordinate; these are the "malformed" rows a batch counts
// rather than fails on.
func validEvent(e domain.CrimeEvent) bool {
	if e.ExternalID == "" {
		return false
	}
	lon, lat := e.Location.Lon(), e.Location.Lat()
	if lon < -180 || lon > 180 || lat < -90 || lat > 90 {
		return false
	}
	if lon == 0 && lat == 0 {
		return false
	}
	return true
}
