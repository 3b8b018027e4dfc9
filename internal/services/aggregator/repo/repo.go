// Package repo persists SafetyCell rows in Postgres. A unique index on
// cell_id and a GiST spatial index on geom back the per-month upsert and the
// snapshot/route bbox queries respectively.
package repo

import (
	"context"
	"encoding/json"
	"time"

	"github.com/paulmach/orb/encoding/wkb"

	"saferoute/internal/modkit/repokit"
	perrs "saferoute/internal/platform/errors"
	"saferoute/internal/platform/store"
	"saferoute/internal/services/aggregator/domain"
)

// PG is a binder that binds the repo to a Queryer or TxRunner.
type PG struct{}

// NewPG returns a binder for the SafetyCell repo.
func NewPG() repokit.Binder[domain.StorageRepo] { return PG{} }

// Bind wires a Queryer to the repo.
func (PG) Bind(q repokit.Queryer) domain.StorageRepo { return &queries{q: q} }

type queries struct{ q repokit.Queryer }

// UpsertCells writes every SafetyCell, keyed by cell_id, within the
// caller's transaction: a single transaction per rebuild guarantees
// readers see a rebuild fully or not at all.
func (r *queries) UpsertCells(ctx context.Context, cells []domain.SafetyCell) error {
	for _, c := range cells {
		stats, err := json.Marshal(c.Stats)
		if err != nil {
			return perrs.Wrapf(err, perrs.ErrorCodeJSON, "aggregator: marshal stats for %s", c.CellID)
		}
		geomBytes, err := wkb.Marshal(c.Geom)
		if err != nil {
			return perrs.Wrapf(err, perrs.ErrorCodeDB, "aggregator: marshal geom for %s", c.CellID)
		}
		_, err = r.q.Exec(ctx, `
			insert into safety_cells (
				cell_id, h3_index, month, crime_count_total, crime_count_weighted, stats, geom, updated_at, stale
			) values ($1, $2, $3, $4, $5, $6, st_setsrid(st_geomfromwkb($7), 4326), now(), false)
			on conflict (cell_id) do update set
				crime_count_total = excluded.crime_count_total,
				crime_count_weighted = excluded.crime_count_weighted,
				stats = excluded.stats,
				geom = excluded.geom,
				updated_at = now(),
				stale = false
		`, c.CellID, c.H3Index, c.Month, c.CrimeCountTotal, c.CrimeCountWeighted, stats, geomBytes)
		if err != nil {
			return perrs.Wrapf(err, perrs.ErrorCodeDB, "aggregator: upsert cell %s", c.CellID)
		}
	}
	return nil
}

// MarkStaleOutsideWindow flags every cell whose month is not in
// keepMonths as stale, without deleting it.
func (r *queries) MarkStaleOutsideWindow(ctx context.Context, keepMonths []time.Time) error {
	months := make([]time.Time, len(keepMonths))
	copy(months, keepMonths)
	_, err := r.q.Exec(ctx, `
		update safety_cells
		   set stale = true
		 where not (month = any($1))
		   and stale = false
	`, months)
	if err != nil {
		return perrs.Wrapf(err, perrs.ErrorCodeDB, "aggregator: mark stale")
	}
	return nil
}

// SampleCells reads up to limit cells, most recently updated first, for
// validate-grid-health to re-check consistency invariants against.
func (r *queries) SampleCells(ctx context.Context, limit int) ([]domain.SafetyCell, error) {
	out, err := store.Many(ctx, r.q, func(row store.Row) (domain.SafetyCell, error) {
		var (
			c         domain.SafetyCell
			statsJSON []byte
		)
		if err := row.Scan(&c.CellID, &c.H3Index, &c.Month, &c.CrimeCountTotal, &c.CrimeCountWeighted, &statsJSON, &c.UpdatedAt); err != nil {
			return c, err
		}
		if err := json.Unmarshal(statsJSON, &c.Stats); err != nil {
			return c, perrs.Wrapf(err, perrs.ErrorCodeJSON, "aggregator: unmarshal sampled stats")
		}
		return c, nil
	}, `
		select cell_id, h3_index, month, crime_count_total, crime_count_weighted, stats, updated_at
		  from safety_cells
		 order by updated_at desc
		 limit $1
	`, limit)
	if err != nil {
		return nil, perrs.WrapIf(err, perrs.ErrorCodeDB, "aggregator: sample cells")
	}
	return out, nil
}
