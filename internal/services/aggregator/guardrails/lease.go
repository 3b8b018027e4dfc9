// Package guardrails holds the Aggregator's concurrency controls: the
// advisory lock that disallows two concurrent rebuilds of the same month,
// and the process-wide lock rebuild(N) takes over the whole table.
package guardrails

import (
	"context"
	"crypto/sha1"
	"encoding/binary"
	"time"

	"saferoute/internal/modkit/repokit"
	perrs "saferoute/internal/platform/errors"
)

// processWideKey is the advisory lock id rebuild(N) holds for its whole
// duration -- coarse and correct; finer-grained locking is future work.
const processWideKey int64 = 0x5afe5afe5afe

// MonthLease wraps do in a transaction-scoped advisory lock keyed by
// (year, month), handing do the transaction's own Queryer so every write
// it makes lands inside the locked transaction. A second concurrent caller
// for the same month fails with a Busy error instead of blocking.
func MonthLease(db repokit.TxRunner) func(ctx context.Context, year int, month time.Month, do func(context.Context, repokit.Queryer) error) error {
	return func(ctx context.Context, year int, month time.Month, do func(context.Context, repokit.Queryer) error) error {
		key := monthKey(year, month)
		return db.Tx(ctx, func(q repokit.Queryer) error {
			ok, err := tryLock(ctx, q, key)
			if err != nil {
				return err
			}
			if !ok {
				return perrs.Busyf("aggregator: rebuild already running for %04d-%02d", year, month)
			}
			return do(ctx, q)
		})
	}
}

// TableLease wraps do in the coarse process-wide lock rebuild(N) holds,
// handing do the locked transaction's Queryer for the same reason.
func TableLease(db repokit.TxRunner) func(ctx context.Context, do func(context.Context, repokit.Queryer) error) error {
	return func(ctx context.Context, do func(context.Context, repokit.Queryer) error) error {
		return db.Tx(ctx, func(q repokit.Queryer) error {
			ok, err := tryLock(ctx, q, processWideKey)
			if err != nil {
				return err
			}
			if !ok {
				return perrs.Busyf("aggregator: rebuild already running")
			}
			return do(ctx, q)
		})
	}
}

func tryLock(ctx context.Context, q repokit.Queryer, key int64) (bool, error) {
	row := q.QueryRow(ctx, `select pg_try_advisory_xact_lock($1)`, key)
	var ok bool
	if err := row.Scan(&ok); err != nil {
		return false, perrs.Wrapf(err, perrs.ErrorCodeDB, "aggregator: advisory lock")
	}
	return ok, nil
}

func monthKey(year int, month time.Month) int64 {
	sum := sha1.Sum([]byte(time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).Format(time.RFC3339)))
	return int64(binary.BigEndian.Uint64(sum[:8]))
}
