// Package repo reads SafetyCell rows for the Snapshot Service out of the
// same safety_cells table the Aggregator writes.
package repo

import (
	"context"
	"encoding/json"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"

	"saferoute/internal/modkit/repokit"
	perrs "saferoute/internal/platform/errors"
	"saferoute/internal/platform/store"
	"saferoute/internal/services/snapshot/domain"
)

// PG is a binder that binds the repo to a Queryer.
type PG struct{}

// NewPG returns a binder for the read-only snapshot repo.
func NewPG() repokit.Binder[domain.StorageRepo] { return PG{} }

// Bind wires a Queryer to the repo.
func (PG) Bind(q repokit.Queryer) domain.StorageRepo { return &queries{q: q} }

type queries struct{ q repokit.Queryer }

// CellsInBBoxMonths spatially filters by bbox via a GiST intersects test
// and temporally by month set, skipping cells marked stale by a rebuild
// that dropped them from the retained window.
func (r *queries) CellsInBBoxMonths(ctx context.Context, bbox domain.BBox, months []time.Time) ([]domain.CellRow, error) {
	out, err := store.Many(ctx, r.q, func(row store.Row) (domain.CellRow, error) {
		var (
			c         domain.CellRow
			statsJSON []byte
			geomBytes []byte
		)
		if err := row.Scan(&c.H3Index, &c.Month, &c.CrimeCountTotal, &c.CrimeCountWeighted, &statsJSON, &geomBytes); err != nil {
			return c, err
		}
		if err := json.Unmarshal(statsJSON, &c.Stats); err != nil {
			return c, perrs.Wrapf(err, perrs.ErrorCodeJSON, "snapshot: unmarshal stats")
		}
		geom, err := wkb.Unmarshal(geomBytes)
		if err != nil {
			return c, perrs.Wrapf(err, perrs.ErrorCodeDB, "snapshot: unmarshal geom")
		}
		poly, ok := geom.(orb.Polygon)
		if !ok {
			return c, perrs.Internalf("snapshot: geom for %s is not a polygon", c.H3Index)
		}
		c.Geom = poly
		return c, nil
	}, `
		select h3_index, month, crime_count_total, crime_count_weighted, stats, geom
		  from safety_cells
		 where stale = false
		   and month = any($1)
		   and st_intersects(geom, st_makeenvelope($2, $3, $4, $5, 4326))
	`, months, bbox.MinLon, bbox.MinLat, bbox.MaxLon, bbox.MaxLat)
	if err != nil {
		return nil, perrs.WrapIf(err, perrs.ErrorCodeDB, "snapshot: query cells in bbox")
	}
	return out, nil
}
