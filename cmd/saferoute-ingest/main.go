package main

import (
	"context"
	"flag"
	"time"

	"github.com/redis/go-redis/v9"

	"saferoute/internal/platform/config"
	"saferoute/internal/platform/logger"
	"saferoute/internal/platform/store"

	"saferoute/internal/core/version"

	"saferoute/internal/adapters/crimefeed"
	"saferoute/internal/services/api"
)

func main() {
	root := config.New()
	dbCfg := root.Prefix("SERVICE_PGSQL_")
	chCfg := root.Prefix("SERVICE_CLICKHOUSE_")
	cacheCfg := root.Prefix("SAFEROUTE_CACHE_")
	feedCfg := root.Prefix("SAFEROUTE_CRIMEFEED_")
	gridCfg := root.Prefix("SAFEROUTE_GRID_")

	l := logger.Get()

	var (
		fYear   = flag.Int("year", 0, "calendar year to ingest")
		fMonth  = flag.Int("month", 0, "calendar month (1-12) to ingest")
		fLatest = flag.Bool("latest", false, "ingest the current calendar month")
	)
	flag.Parse()

	if *fLatest {
		now := time.Now().UTC()
		*fYear, *fMonth = now.Year(), int(now.Month())
	}
	if *fYear <= 0 || *fMonth < 1 || *fMonth > 12 {
		l.Panic().Msg("must provide -year and -month (1-12), or -latest")
	}

	st, err := store.Open(
		context.Background(),
		store.Config{
			PG: store.PGConfig{
				Enabled:     true,
				URL:         dbCfg.MustString("DBURL"),
				MaxConns:    int32(dbCfg.MayInt("MAX_CONNS", 4)),
				SlowQueryMs: dbCfg.MayInt("SLOW_MS", 500),
				LogSQL:      dbCfg.MayBool("LOG_SQL", true),
			},
			CH: store.CHConfig{
				Enabled:    chCfg.MayBool("ENABLED", true),
				URL:        chCfg.MayString("DBURL", ""),
				LogSQL:     chCfg.MayBool("LOG_SQL", false),
				ClientName: "ingest",
				ClientTag:  version.Short(),
			},
		},
		store.WithLogger(*l),
	)
	if err != nil {
		l.Panic().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()

	var rdb *redis.Client
	if addr := cacheCfg.MayString("REDIS_ADDR", ""); addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr: addr,
			DB:   cacheCfg.MayInt("REDIS_DB", 0),
		})
		defer rdb.Close()
	}

	eng := api.BuildEngine(root, st, l, rdb)
	ctx := context.Background()

	feed := crimefeed.New(feedCfg.MustString("BASEURL"), nil)
	minLon, minLat, maxLon, maxLat := gridCfg.MustBBox("BBOX")
	tile := crimefeed.Tile{MinLon: minLon, MinLat: minLat, MaxLon: maxLon, MaxLat: maxLat}

	events, err := feed.Fetch(ctx, *fYear, time.Month(*fMonth), []crimefeed.Tile{tile})
	if err != nil {
		l.Fatal().Err(err).Msg("crimefeed.Fetch failed")
	}

	ingestReport, err := eng.Events.UpsertEvents(ctx, events)
	if err != nil {
		l.Fatal().Err(err).Msg("events.UpsertEvents failed")
	}
	l.Info().
		Int("accepted", ingestReport.Accepted).
		Int("malformed", ingestReport.Malformed).
		Msg("event ingest complete")

	report, err := eng.Aggregator.IngestMonth(ctx, *fYear, time.Month(*fMonth))
	if err != nil {
		l.Fatal().Err(err).Msg("aggregator.IngestMonth failed")
	}
	l.Info().
		Int("cells_upserted", report.CellsUpserted).
		Int("events_scanned", report.EventsScanned).
		Int("events_skipped", report.EventsSkipped).
		Msg("month ingest complete")
}
