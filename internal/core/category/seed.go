package category

import (
	"context"
	"encoding/json"

	"saferoute/internal/modkit/repokit"
	perrs "saferoute/internal/platform/errors"
)

// Seed idempotently upserts every entry of t into the categories table, so
// an operator can inspect the active taxonomy (and join against it) without
// reading config files. Safe to run on every boot.
func Seed(ctx context.Context, q repokit.Queryer, t Table) error {
	for _, id := range t.IDs() {
		c := t.byID[id]
		tod, err := json.Marshal(c.ToD)
		if err != nil {
			return perrs.Wrapf(err, perrs.ErrorCodeJSON, "category: marshal tod for %s", c.ID)
		}
		_, err = q.Exec(ctx, `
			insert into categories (id, harm_weight, tod_multipliers)
			values ($1, $2, $3)
			on conflict (id) do update set
				harm_weight = excluded.harm_weight,
				tod_multipliers = excluded.tod_multipliers
		`, c.ID, c.HarmWeight, tod)
		if err != nil {
			return perrs.Wrapf(err, perrs.ErrorCodeDB, "category: seed %s", c.ID)
		}
	}
	return nil
}
