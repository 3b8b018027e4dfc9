// Package api provides the HTTP API for the application.
package api

import (
	"context"

	"github.com/redis/go-redis/v9"

	"saferoute/internal/adapters/routingprovider"
	"saferoute/internal/core/category"
	"saferoute/internal/modkit"
	"saferoute/internal/modkit/httpkit"
	"saferoute/internal/modkit/module"
	"saferoute/internal/modkit/swaggerkit"
	"saferoute/internal/platform/cache"
	"saferoute/internal/platform/config"
	"saferoute/internal/platform/logger"
	phttp "saferoute/internal/platform/net/http"
	"saferoute/internal/platform/store"

	metamod "saferoute/internal/services/api/meta/module"
	safetymod "saferoute/internal/services/api/safety/module"
	safetysvc "saferoute/internal/services/api/safety/service"

	aggdomain "saferoute/internal/services/aggregator/domain"
	aggregatorrepo "saferoute/internal/services/aggregator/repo"
	aggregatorsvc "saferoute/internal/services/aggregator/service"

	eventsdomain "saferoute/internal/services/events/domain"
	eventsrepo "saferoute/internal/services/events/repo"
	eventssvc "saferoute/internal/services/events/service"

	rsdomain "saferoute/internal/services/routescore/domain"
	routescorerepo "saferoute/internal/services/routescore/repo"
	routescoresvc "saferoute/internal/services/routescore/service"
	"saferoute/internal/services/routescore/spatial"

	snapdomain "saferoute/internal/services/snapshot/domain"
	snapshotrepo "saferoute/internal/services/snapshot/repo"
	snapshotsvc "saferoute/internal/services/snapshot/service"
)

// Options are the API options.
type Options struct {
	Config         config.Conf
	Store          *store.Store
	Logger         *logger.Logger
	CacheRDB       *redis.Client // nil disables the read-through cache
	EnableSwagger  bool
	EnableProfiler bool
}

// Engine bundles the constructed engine services so admin-job binaries can
// drive Rebuild/IngestMonth/ValidateGridHealth without an HTTP round trip,
// and so Mount can wire the safety module over exactly what a job would
// have used had it gone through HTTP instead.
type Engine struct {
	Events     eventsdomain.ServicePort
	Aggregator aggdomain.ServicePort
	Snapshot   snapdomain.ServicePort
	RouteScore rsdomain.ServicePort
	Router     safetysvc.RoutingPort
	Categories category.Table
}

// BuildEngine constructs the Event Store, Aggregator, Snapshot Service, and
// Route Scorer over the given store and optional cache. It has no HTTP
// dependency, so admin-job binaries (saferoute-ingest, saferoute-rebuild)
// can call it directly without mounting a router.
func BuildEngine(cfg config.Conf, st *store.Store, log *logger.Logger, rdb *redis.Client) Engine {
	engineCfg := cfg.Prefix("SAFEROUTE_SCORING_")
	cats, err := category.Load(engineCfg.MayString("CATEGORY_PATH", ""))
	if err != nil {
		log.Panic().Err(err).Msg("category.Load failed")
	}

	cacheCfg := cfg.Prefix("SAFEROUTE_CACHE_")
	var c *cache.Cache
	if rdb != nil {
		ttl := cacheCfg.MayDuration("TTL", cache.DefaultTTL)
		c = cache.New(rdb, ttl, *log)
	}

	if st.PG != nil {
		if err := category.Seed(context.Background(), st.PG, cats); err != nil {
			log.Panic().Err(err).Msg("category.Seed failed")
		}
	}

	evRepo := eventsrepo.NewHybrid(st.CH)
	if err := evRepo.Bind(st.PG).EnsureSchema(context.Background()); err != nil {
		log.Panic().Err(err).Msg("events: ensure fact table failed")
	}
	evSvc := eventssvc.New(st.PG, evRepo, cats)

	aggSvc := aggregatorsvc.New(st.PG, aggregatorrepo.NewPG(), evSvc, cats, c, *log)

	snapRepo := snapshotrepo.NewPG().Bind(st.PG)
	snapSvc := snapshotsvc.New(snapRepo, cats, c, *log)

	deadline := engineCfg.MayDuration("ROUTE_DEADLINE", routescoresvc.DefaultDeadline)
	rsRepo := routescorerepo.NewPG().Bind(st.PG)
	rsSvc := routescoresvc.New(rsRepo, spatial.New(), cats, c, deadline, *log)

	var router safetysvc.RoutingPort
	if base := cfg.Prefix("SAFEROUTE_ROUTING_").MayString("BASEURL", ""); base != "" {
		router = routingprovider.New(base, nil)
	}

	return Engine{Events: evSvc, Aggregator: aggSvc, Snapshot: snapSvc, RouteScore: rsSvc, Router: router, Categories: cats}
}

// Mount builds the engine services over the given store and cache, then
// mounts the safety module on the router. The returned Engine is also what
// the admin-job binaries drive directly, without going through HTTP.
func Mount(r phttp.Router, opt Options) Engine {
	deps := modkit.Deps{
		Cfg: opt.Config,
		PG:  opt.Store.PG,
		CH:  opt.Store.CH,
		Log: *opt.Logger,
	}

	eng := BuildEngine(opt.Config, opt.Store, opt.Logger, opt.CacheRDB)

	safety := safetymod.New(deps, modkit.WithPorts(safetymod.Ports{
		Snapshot:   eng.Snapshot,
		RouteScore: eng.RouteScore,
		Aggregator: eng.Aggregator,
		Router:     eng.Router,
	}))
	meta := metamod.New(deps, opt.Store)

	httpkit.MountAPIV1(r, httpkit.CommonStack(), func(api httpkit.Router) {
		swaggerkit.Mount(r, opt.EnableSwagger)
		phttp.MountProfiler(r, "/debug", opt.EnableProfiler)

		module.Register(safety.Name(), safety.Ports())
		safety.MountRoutes(api)
		meta.MountRoutes(api)
	})

	return eng
}
