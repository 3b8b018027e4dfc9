// @title         SafeRoute API
// @version       0.1.0
// @description   Crime-risk grid snapshots, route scoring, and grid admin operations

package main

import (
	"context"

	"github.com/redis/go-redis/v9"

	"saferoute/internal/platform/config"
	"saferoute/internal/platform/logger"
	phttp "saferoute/internal/platform/net/http"
	"saferoute/internal/platform/store"

	"saferoute/internal/core/version"

	"saferoute/internal/services/api"
)

func main() {
	root := config.New()
	apiCfg := root.Prefix("CORE_API_")
	dbCfg := root.Prefix("SERVICE_PGSQL_")
	chCfg := root.Prefix("SERVICE_CLICKHOUSE_")
	cacheCfg := root.Prefix("SAFEROUTE_CACHE_")

	l := logger.Get()

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
				ClientName: "api",
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

	srv := phttp.NewServer(apiCfg)

	api.Mount(
		srv.Router(),
		api.Options{
			Config:         root,
			Store:          st,
			Logger:         l,
			CacheRDB:       rdb,
			EnableSwagger:  apiCfg.MayBool("SWAGGER", true),
			EnableProfiler: apiCfg.MayBool("PROFILER", false),
		},
	)

	if err := srv.Run(context.Background()); err != nil {
		l.Panic().Err(err).Msg("http server stopped")
	}
}
