// Package cache implements the read-through response cache in front of the
// snapshot and route-scoring services. Entries are keyed by a
// deterministic fingerprint of the query and carry the aggregation version
// they were produced under, so a rebuild invalidates every entry produced
// before it without having to enumerate or delete keys.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	perrs "saferoute/internal/platform/errors"
	"saferoute/internal/platform/logger"
)

// DefaultTTL bounds staleness to "at most one TTL window after ingestion".
const DefaultTTL = 15 * time.Minute

// versionKey holds the monotonic aggregation version counter, bumped by
// every successful rebuild or month ingest.
const versionKey = "saferoute:grid:version"

// Cache is the read-through cache seam used by the snapshot and route
// scorer services. A nil *Cache is valid and behaves as an always-miss,
// always-no-op cache so callers can run without Redis configured.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
	log logger.Logger
}

// New wraps an existing redis client. ttl <= 0 uses DefaultTTL.
func New(rdb *redis.Client, ttl time.Duration, log logger.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{rdb: rdb, ttl: ttl, log: log}
}

// Fingerprint deterministically hashes a query's cache-relevant parameters.
// operation distinguishes snapshot vs route-score keys; shapeKey is a bbox
// string or polyline hash; the rest mirror the rest of a query's cache-
// relevant parameters.
func Fingerprint(operation, shapeKey string, lookbackMonths int, timeOfDay string, categoryOverrides map[string]float64, currentMonth time.Time) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%d|%s|%04d%02d", operation, shapeKey, lookbackMonths, timeOfDay,
		currentMonth.Year(), currentMonth.Month())
	if len(categoryOverrides) > 0 {
		enc, _ := json.Marshal(categoryOverrides)
		h.Write(enc)
	}
	return "saferoute:q:" + hex.EncodeToString(h.Sum(nil))
}

// entry is the on-wire cache payload: the response plus the version it was
// produced under.
type entry struct {
	Version int64           `json:"v"`
	Body    json.RawMessage `json:"b"`
}

// Get returns the cached value for key if present and not stale (its
// version is not older than the current aggregation version). A stale
// entry is treated as a miss, never surfaced as an error: staleness is
// an internal cache concern, not a caller-visible one.
func (c *Cache) Get(ctx context.Context, key string, dst any) (bool, error) {
	if c == nil || c.rdb == nil {
		return false, nil
	}
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, perrs.Wrapf(err, perrs.ErrorCodeUnavailable, "cache: get %s", key)
	}

	var e entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return false, nil
	}
	cur, err := c.version(ctx)
	if err != nil {
		return false, err
	}
	if e.Version < cur {
		c.log.Debug().Str("key", key).Int64("entry_version", e.Version).Int64("current_version", cur).Msg("cache stale, treating as miss")
		return false, nil
	}
	if err := json.Unmarshal(e.Body, dst); err != nil {
		return false, nil
	}
	c.log.Debug().Str("key", key).Msg("cache hit")
	return true, nil
}

// Set stores v under key, stamped with the current aggregation version.
func (c *Cache) Set(ctx context.Context, key string, v any) error {
	if c == nil || c.rdb == nil {
		return nil
	}
	cur, err := c.version(ctx)
	if err != nil {
		return err
	}
	body, err := json.Marshal(v)
	if err != nil {
		return perrs.Wrapf(err, perrs.ErrorCodeJSON, "cache: marshal entry")
	}
	enc, err := json.Marshal(entry{Version: cur, Body: body})
	if err != nil {
		return perrs.Wrapf(err, perrs.ErrorCodeJSON, "cache: marshal envelope")
	}
	if err := c.rdb.Set(ctx, key, enc, c.ttl).Err(); err != nil {
		return perrs.Wrapf(err, perrs.ErrorCodeUnavailable, "cache: set %s", key)
	}
	return nil
}

// BumpVersion increments the monotonic aggregation version, invalidating
// every entry cached before this call. It is invoked by the Aggregator at
// the end of a successful rebuild or month ingest.
func (c *Cache) BumpVersion(ctx context.Context) error {
	if c == nil || c.rdb == nil {
		return nil
	}
	if err := c.rdb.Incr(ctx, versionKey).Err(); err != nil {
		return perrs.Wrapf(err, perrs.ErrorCodeUnavailable, "cache: bump version")
	}
	c.log.Info().Msg("cache version bumped")
	return nil
}

func (c *Cache) version(ctx context.Context) (int64, error) {
	s, err := c.rdb.Get(ctx, versionKey).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, perrs.Wrapf(err, perrs.ErrorCodeUnavailable, "cache: read version")
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, nil
	}
	return v, nil
}
