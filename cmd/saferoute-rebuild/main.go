package main

import (
	"context"
	"flag"

	"github.com/redis/go-redis/v9"

	"saferoute/internal/platform/config"
	"saferoute/internal/platform/logger"
	"saferoute/internal/platform/store"

	"saferoute/internal/core/version"

	"saferoute/internal/services/api"
)

func main() {
	root := config.New()
	dbCfg := root.Prefix("SERVICE_PGSQL_")
	chCfg := root.Prefix("SERVICE_CLICKHOUSE_")
	cacheCfg := root.Prefix("SAFEROUTE_CACHE_")

	l := logger.Get()

	var (
		fMonths       = flag.Int("months", 0, "rebuild the grid over the last N months")
		fValidateOnly = flag.Bool("validate-only", false, "only re-check grid consistency, don't rebuild")
		fSampleSize   = flag.Int("sample-size", 0, "cells to sample for --validate-only (0 uses the service default)")
	)
	flag.Parse()

	if !*fValidateOnly && *fMonths <= 0 {
		l.Panic().Msg("must provide -months > 0 (unless --validate-only)")
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
				ClientName: "rebuild",
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

	if *fValidateOnly {
		report, err := eng.Aggregator.ValidateGridHealth(ctx, *fSampleSize)
		if err != nil {
			l.Fatal().Err(err).Msg("validate-grid-health failed")
		}
		l.Info().
			Int("sampled", report.Sampled).
			Int("inconsistent", report.Inconsistent).
			Msg("validate-grid-health complete")
		return
	}

	report, err := eng.Aggregator.Rebuild(ctx, *fMonths)
	if err != nil {
		l.Fatal().Err(err).Msg("rebuild failed")
	}
	l.Info().
		Int("months_processed", report.MonthsProcessed).
		Int("cells_upserted", report.CellsUpserted).
		Int("events_scanned", report.EventsScanned).
		Int("events_skipped", report.EventsSkipped).
		Msg("rebuild complete")
}
