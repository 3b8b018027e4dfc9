package domain

import (
	"context"
	"time"
)

// BBox is a (min_lon, min_lat, max_lon, max_lat) query window.
type BBox struct {
	MinLon, MinLat, MaxLon, MaxLat float64
}

// EachEvent is the streaming callback used instead of returning a
// materialized slice; returning an error aborts iteration.
type EachEvent func(CrimeEvent) error

// ServicePort is the Event Store's public surface, consumed by the
// Aggregator and registered for cross-module lookups.
type ServicePort interface {
	// UpsertEvents is idempotent on ExternalID: re-ingesting the same batch
	// leaves totals unchanged. Malformed events are skipped and counted; if
	// more than 10% of a batch is malformed the call fails with
	// UpstreamUnavailable and a sample of the bad rows.
	UpsertEvents(ctx context.Context, batch []CrimeEvent) (IngestReport, error)

	// EventsInMonth streams every event whose Month equals the given
	// year/month, in no particular order.
	EventsInMonth(ctx context.Context, year int, month time.Month, fn EachEvent) error

	// EventsInBBoxBetween streams every event inside bbox whose Month falls
	// in [from, to] inclusive, both first-of-month.
	EventsInBBoxBetween(ctx context.Context, bbox BBox, from, to time.Time, fn EachEvent) error
}

// StorageRepo is the persistence seam behind the service. A hybrid
// implementation binds Postgres for the dedup ledger and ClickHouse for the
// bulk fact table, mirroring the platform's hybrid store pattern.
type StorageRepo interface {
	// EnsureSchema creates any backing tables the repo owns (the
	// ClickHouse fact table); idempotent, run at boot.
	EnsureSchema(ctx context.Context) error

	// UpsertBatch idempotently stores events keyed by ExternalID, returning
	// how many were newly inserted vs. overwritten. Malformed rows (bad
	// category after normalization is not malformed; a missing external_id
	// or invalid coordinate is) are the caller's responsibility to filter
	// before calling this.
	UpsertBatch(ctx context.Context, batch []CrimeEvent) (inserted, updated int, err error)

	EachInMonth(ctx context.Context, year int, month time.Month, fn EachEvent) error
	EachInBBoxBetween(ctx context.Context, bbox BBox, from, to time.Time, fn EachEvent) error
}
