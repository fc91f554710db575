// Package app wires configuration, cache, quote source, snapshot service,
// feed hub, and HTTP router into a runnable application.
package app

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/adisurya/bandarpulse/config"
	"github.com/adisurya/bandarpulse/internal/api"
	"github.com/adisurya/bandarpulse/internal/hub"
	"github.com/adisurya/bandarpulse/internal/logger"
	"github.com/adisurya/bandarpulse/internal/quote"
	"github.com/adisurya/bandarpulse/internal/summary"
)

// redisOpener is an indirection for unit testing.
var redisOpener = func(cfg config.CacheConfig) redis.Cmdable {
	return redis.NewClient(&redis.Options{
		Addr: cfg.Addr,
		DB:   cfg.DB,
	})
}

// InitializeApp sets up all application dependencies and returns a fully
// configured Gin router, the feed hub (so the caller can run the
// broadcast loop), a cleanup function for graceful shutdown, and any error
// encountered during initialization.
//
// Responsibilities:
//   - Builds the snapshot cache (redis when configured and reachable,
//     otherwise an in-process TTL cache).
//   - Builds the quote source and the snapshot service on top of it.
//   - Creates the feed hub and the HTTP handler layer.
//   - Configures the Gin router with all routes.
//   - Registers health and readiness probes.
//
// Returns:
//   - *gin.Engine: the configured Gin HTTP router.
//   - *hub.Hub: the feed hub; the caller must drive hub.Run.
//   - func(): cleanup function to be executed on shutdown.
//   - error: any initialization error that occurred.
func InitializeApp() (*gin.Engine, *hub.Hub, func(), error) {
	cfg := config.AppConfig
	log := logger.Component("app")

	// Snapshot cache: redis when enabled and reachable, else in-process.
	// A down redis degrades to the local cache instead of failing startup;
	// the feed can run single-instance without it.
	cache := buildCache(cfg.Cache)

	// Quote source: "static" keeps runs offline (tests, demos).
	var quotes quote.Source
	if cfg.Quote.BaseURL == "static" {
		quotes = quote.NewStaticSource(nil)
	} else {
		quotes = quote.NewYahooSource(cfg.Quote.BaseURL, cfg.Quote.Timeout)
	}

	gen := summary.NewGenerator(quotes)
	svc := summary.NewService(cache, gen, cfg.Summary.OverrideFile, cfg.Cache.TTL)

	feedHub := hub.New(svc, cfg.Feed.Interval)

	handler := api.NewHandler(svc)
	router := api.NewRouter(handler, api.NewFeedHandler(feedHub))

	healthHandler := api.NewHealthHandler(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return svc.Ping(ctx)
	})
	healthHandler.Register(router)

	cleanup := func() {
		log.Info().Msg("application shut down")
	}

	return router, feedHub, cleanup, nil
}

// buildCache returns the configured snapshot cache implementation.
func buildCache(cfg config.CacheConfig) summary.Cache {
	log := logger.Component("app")
	if !cfg.UseRedis {
		return summary.NewMemoryCache(0)
	}

	rdb := redisOpener(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Str("addr", cfg.Addr).Msg("redis unreachable, falling back to in-process cache")
		return summary.NewMemoryCache(0)
	}

	log.Info().Str("addr", cfg.Addr).Msg("redis cache connected")
	return summary.NewRedisCache(rdb)
}
