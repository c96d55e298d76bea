package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"

	httpapi "github.com/i474232898/crag-cast/internal/api/http"
	"github.com/i474232898/crag-cast/internal/config"
	"github.com/i474232898/crag-cast/internal/crag"
	"github.com/i474232898/crag-cast/internal/logger"
	"github.com/i474232898/crag-cast/internal/scheduler"
	"github.com/i474232898/crag-cast/internal/store"
	"github.com/i474232898/crag-cast/internal/weather"
	"github.com/i474232898/crag-cast/internal/weather/providers"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal(err)
	}
	if err := logger.SetLevel(cfg.LogLevel); err != nil {
		logger.Warn("unknown LOG_LEVEL, using info")
	}

	// Both datasets are required; without them there is nothing to serve.
	ds, err := crag.LoadDataset(cfg.CragDataPath, cfg.WeatherDataPath)
	if err != nil {
		logger.Fatal(err)
	}
	catalog := crag.NewCatalog(ds)

	// Shared HTTP client for outbound forecast calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}
	provider := providers.NewOpenMeteoProvider(httpClient, providers.WithBaseURL(cfg.ForecastBaseURL))

	sched := scheduler.New(cfg.CacheSweepInterval)

	var cache weather.Cache
	switch cfg.CacheBackend {
	case config.CacheRedis:
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		redisStore, err := store.NewRedisStore(ctx, store.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   "cragcast:",
		})
		cancel()
		if err != nil {
			logger.Fatal(err)
		}
		defer redisStore.Close()
		cache = redisStore
	default:
		memStore := store.NewMemoryStore(0)
		sched.Register("weather", memStore)
		cache = memStore
	}

	service := weather.NewService(provider, cache, cfg.WeatherCacheTTL,
		weather.WithCallTimeout(cfg.WeatherCallTimeout))

	// Janitor for expired in-memory cache entries.
	if err := sched.Start(); err != nil {
		logger.Fatal(err)
	}
	defer sched.Stop()

	app := httpapi.NewApp(httpapi.Deps{
		Catalog: catalog,
		Weather: service,
		Options: httpapi.Options{
			DefaultPerPage: cfg.DefaultPerPage,
			MaxPerPage:     cfg.MaxPerPage,
			NearbyRadiusKm: cfg.NearbyRadiusKm,
			NearbyLimit:    cfg.NearbyLimit,
		},
	}, fiberlogger.New(fiberlogger.Config{
		Format: "${time} ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
	}))

	// Start server with graceful shutdown
	go func() {
		logger.WithFields(logger.Fields{
			"port":          cfg.Port,
			"cache_backend": cfg.CacheBackend,
			"crags":         catalog.CragCount(),
		}).Info("crag-cast listening")
		if err := app.Listen(":" + cfg.Port); err != nil {
			logger.WithFields(logger.Fields{"error": err.Error()}).Warn("fiber server stopped")
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.WithFields(logger.Fields{"error": err.Error()}).Warn("error during shutdown")
	}
}
