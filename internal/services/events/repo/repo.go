// Package repo is the Event Store's persistence layer: Postgres holds the
// external-id dedup ledger (idempotent upsert needs synchronous
// read-your-writes), ClickHouse holds the fact table the Aggregator
// streams. The fact table is a ReplacingMergeTree versioned by
// ingested_at and ordered by external_id, and every scan reads FINAL, so
// replaying a month collapses to one row per event instead of
// double-counting.
package repo

import (
	"context"
	"time"

	"github.com/paulmach/orb"

	"saferoute/internal/modkit/repokit"
	"saferoute/internal/platform/store"
	"saferoute/internal/services/events/domain"
)

// NewHybrid constructs a hybrid storage binder over Postgres (ledger) and
// ClickHouse (facts).
func NewHybrid(ch store.Clickhouse) repokit.Binder[domain.StorageRepo] {
	return &hybridBinder{ch: ch}
}

type hybridBinder struct{ ch store.Clickhouse }

func (b *hybridBinder) Bind(q repokit.Queryer) domain.StorageRepo {
	return &hybridStore{pg: q, ch: b.ch}
}

type hybridStore struct {
	pg repokit.Queryer
	ch store.Clickhouse
}

// factTableDDL creates the ClickHouse fact table. ReplacingMergeTree
// versioned by ingested_at dedups replayed external_ids at merge time;
// FINAL on the read side makes the collapse visible immediately.
const factTableDDL = `
	create table if not exists crime_events (
		external_id String,
		month Date,
		category LowCardinality(String),
		lon Float64,
		lat Float64,
		force_id LowCardinality(String),
		output_area String,
		location_text String,
		ingested_at DateTime
	)
	engine = ReplacingMergeTree(ingested_at)
	partition by toYYYYMM(month)
	order by (external_id)
`

// eventRow is the ClickHouse wire shape for one crime event.
type eventRow struct {
	ExternalID string    `ch:"external_id"`
	Month      time.Time `ch:"month"`
	Category   string    `ch:"category"`
	Lon        float64   `ch:"lon"`
	Lat        float64   `ch:"lat"`
	ForceID    string    `ch:"force_id"`
	OutputArea string    `ch:"output_area"`
	LocationTx string    `ch:"location_text"`
}

func toRow(e domain.CrimeEvent) eventRow {
	return eventRow{
		ExternalID: e.ExternalID,
		Month:      e.Month,
		Category:   e.Category,
		Lon:        e.Location.Lon(),
		Lat:        e.Location.Lat(),
		ForceID:    e.ForceID,
		OutputArea: e.OutputArea,
		LocationTx: e.LocationTxt,
	}
}

// EnsureSchema creates the ClickHouse fact table if it does not exist.
// Safe to run on every boot; a nil CH seam is a no-op.
func (s *hybridStore) EnsureSchema(ctx context.Context) error {
	if s.ch == nil {
		return nil
	}
	return s.ch.Exec(ctx, factTableDDL)
}

// UpsertBatch writes the dedup ledger row in Postgres (authoritative,
// idempotent by external_id) and appends the same rows to the ClickHouse
// fact table used by aggregation scans. Replayed rows share their
// external_id with an earlier insert and collapse in the
// ReplacingMergeTree, so totals are unchanged on replay.
func (s *hybridStore) UpsertBatch(ctx context.Context, batch []domain.CrimeEvent) (inserted, updated int, err error) {
	for _, e := range batch {
		row := s.pg.QueryRow(ctx, `
			insert into crime_event_ledger (external_id, month, category, lon, lat, force_id, output_area, location_text)
			values ($1, $2, $3, $4, $5, $6, $7, $8)
			on conflict (external_id) do update set
				month = excluded.month,
				category = excluded.category,
				lon = excluded.lon,
				lat = excluded.lat,
				force_id = excluded.force_id,
				output_area = excluded.output_area,
				location_text = excluded.location_text
			returning (xmax = 0) as was_insert
		`, e.ExternalID, e.Month, e.Category, e.Location.Lon(), e.Location.Lat(), e.ForceID, e.OutputArea, e.LocationTxt)
		var wasInsert bool
		if err := row.Scan(&wasInsert); err != nil {
			return inserted, updated, err
		}
		if wasInsert {
			inserted++
		} else {
			updated++
		}
	}

	if s.ch == nil || len(batch) == 0 {
		return inserted, updated, nil
	}
	ingestedAt := time.Now().UTC()
	rows := make([][]any, len(batch))
	for i, e := range batch {
		r := toRow(e)
		rows[i] = []any{r.ExternalID, r.Month, r.Category, r.Lon, r.Lat, r.ForceID, r.OutputArea, r.LocationTx, ingestedAt}
	}
	if err := s.ch.Insert(ctx, "crime_events", rows); err != nil {
		return inserted, updated, err
	}
	return inserted, updated, nil
}

// EachInMonth streams events for one month from ClickHouse, the engine's
// bulk scan path for rebuild/ingest_month. FINAL collapses replayed rows
// to the latest version per external_id before the fold sees them.
func (s *hybridStore) EachInMonth(ctx context.Context, year int, month time.Month, fn domain.EachEvent) error {
	if s.ch == nil {
		return nil
	}
	monthStart := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	rows, err := s.ch.Query(ctx, `
		select external_id, month, category, lon, lat, force_id, output_area, location_text
		from crime_events final
		where month = ?
	`, monthStart)
	if err != nil {
		return err
	}
	defer rows.Close()
	return scanEach(rows, fn)
}

// EachInBBoxBetween streams events inside bbox whose month falls in
// [from, to] inclusive, from ClickHouse.
func (s *hybridStore) EachInBBoxBetween(ctx context.Context, bbox domain.BBox, from, to time.Time, fn domain.EachEvent) error {
	if s.ch == nil {
		return nil
	}
	rows, err := s.ch.Query(ctx, `
		select external_id, month, category, lon, lat, force_id, output_area, location_text
		from crime_events final
		where month >= ? and month <= ?
		  and lon >= ? and lon <= ? and lat >= ? and lat <= ?
	`, from, to, bbox.MinLon, bbox.MaxLon, bbox.MinLat, bbox.MaxLat)
	if err != nil {
		return err
	}
	defer rows.Close()
	return scanEach(rows, fn)
}

func scanEach(rows store.Rows, fn domain.EachEvent) error {
	return store.Each(rows, func(row store.Row) error {
		var r eventRow
		if err := row.Scan(&r.ExternalID, &r.Month, &r.Category, &r.Lon, &r.Lat, &r.ForceID, &r.OutputArea, &r.LocationTx); err != nil {
			return err
		}
		return fn(domain.CrimeEvent{
			ExternalID:  r.ExternalID,
			Month:       r.Month,
			Category:    r.Category,
			Location:    orb.Point{r.Lon, r.Lat},
			ForceID:     r.ForceID,
			OutputArea:  r.OutputArea,
			LocationTxt: r.LocationTx,
		})
	})
}
