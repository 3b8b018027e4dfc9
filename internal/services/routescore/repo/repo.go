// Package repo reads SafetyCell rows for the Route Scorer out of the same
// safety_cells table the Aggregator writes and the Snapshot Service reads.
package repo

import (
	"context"
	"encoding/json"
	"time"

	"saferoute/internal/modkit/repokit"
	perrs "saferoute/internal/platform/errors"
	"saferoute/internal/platform/store"
	"saferoute/internal/services/routescore/domain"
)

// PG is a binder that binds the repo to a Queryer.
type PG struct{}

// NewPG returns a binder for the read-only route-score repo.
func NewPG() repokit.Binder[domain.StorageRepo] { return PG{} }

// Bind wires a Queryer to the repo.
func (PG) Bind(q repokit.Queryer) domain.StorageRepo { return &queries{q: q} }

type queries struct{ q repokit.Queryer }

// CellsForFootprint reads every non-stale cell among h3s whose month is in
// months, the narrowed candidate set after the spatial index has already
// reduced the full grid to one segment's buffered footprint.
func (r *queries) CellsForFootprint(ctx context.Context, h3s []string, months []time.Time) ([]domain.CellRow, error) {
	if len(h3s) == 0 {
		return nil, nil
	}
	out, err := store.Many(ctx, r.q, func(row store.Row) (domain.CellRow, error) {
		var (
			c         domain.CellRow
			statsJSON []byte
		)
		if err := row.Scan(&c.H3Index, &c.Month, &c.CrimeCountTotal, &c.CrimeCountWeighted, &statsJSON); err != nil {
			return c, err
		}
		if err := json.Unmarshal(statsJSON, &c.Stats); err != nil {
			return c, perrs.Wrapf(err, perrs.ErrorCodeJSON, "routescore: unmarshal stats")
		}
		return c, nil
	}, `
		select h3_index, month, crime_count_total, crime_count_weighted, stats
		  from safety_cells
		 where stale = false
		   and h3_index = any($1)
		   and month = any($2)
	`, h3s, months)
	if err != nil {
		return nil, perrs.WrapIf(err, perrs.ErrorCodeDB, "routescore: query cells for footprint")
	}
	return out, nil
}
