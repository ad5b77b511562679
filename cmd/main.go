package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ainewz/pipeline/internal/api"
	"github.com/ainewz/pipeline/internal/assets"
	"github.com/ainewz/pipeline/internal/cache"
	"github.com/ainewz/pipeline/internal/composer"
	"github.com/ainewz/pipeline/internal/config"
	"github.com/ainewz/pipeline/internal/curate"
	"github.com/ainewz/pipeline/internal/dedup"
	"github.com/ainewz/pipeline/internal/fetcher"
	"github.com/ainewz/pipeline/internal/logger"
	"github.com/ainewz/pipeline/internal/middleware"
	"github.com/ainewz/pipeline/internal/store"
)

func main() {
	cfg := config.Load()

	output := "stdout"
	if cfg.LogFile != "" {
		output = cfg.LogFile
	}
	if err := logger.Init(logger.Config{
		Level:  cfg.LogLevel,
		Output: output,
		Pretty: cfg.Env == "development",
	}); err != nil {
		panic(err)
	}

	log := logger.Get()
	log.Info().Msg("starting pipeline")

	ctx := context.Background()

	// Postgres when configured, in-process store otherwise.
	var st store.Store
	if cfg.DatabaseURL != "" {
		pg, err := store.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to postgres")
		}
		st = pg
		log.Info().Msg("using postgres store")
	} else {
		st = store.NewMemoryStore()
		log.Warn().Msg("DATABASE_URL not set, using in-memory store")
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Error().Err(err).Msg("error closing store")
		}
	}()

	// Same fallback for the failed-lookup cache.
	var failedLookups cache.TTLCache
	if cfg.RedisURL != "" {
		rc, err := cache.NewRedisCache(cfg.RedisURL, "assets:failed:")
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		failedLookups = rc
		log.Info().Msg("using redis cache")
	} else {
		failedLookups = cache.NewMemoryCache()
		log.Warn().Msg("REDIS_URL not set, using in-memory cache")
	}
	defer func() {
		if err := failedLookups.Close(); err != nil {
			log.Error().Err(err).Msg("error closing cache")
		}
	}()

	if cfg.SeedPath != "" {
		if _, err := os.Stat(cfg.SeedPath); err == nil {
			n, err := store.SeedSources(ctx, st, cfg.SeedPath)
			if err != nil {
				log.Fatal().Err(err).Str("path", cfg.SeedPath).Msg("failed to seed sources")
			}
			log.Info().Int("sources", n).Str("path", cfg.SeedPath).Msg("seeded sources")
		}
	}

	resolver := assets.NewResolver(failedLookups, assets.Options{
		PageTimeout:  cfg.PageTimeout,
		MaxRedirects: cfg.MaxRedirects,
		UserAgent:    cfg.UserAgent,
		MinImageArea: cfg.MinImageArea,
		FailureTTL:   cfg.AssetCacheTTL,
	})
	detector := dedup.NewDetector(st, cfg.DedupPrefix, dedup.DefaultThreshold)
	fetchSvc := fetcher.NewService(st, detector, resolver, fetcher.Options{
		Timeout:      cfg.FeedTimeout,
		MaxRedirects: cfg.MaxRedirects,
		UserAgent:    cfg.UserAgent,
	})
	curator := curate.NewEngine(st)
	composerClient := composer.NewClient(cfg.AIApiKey, cfg.AIModel, cfg.AITimeout)

	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.HTTPTimeout,
		WriteTimeout: cfg.HTTPTimeout,
		IdleTimeout:  120 * time.Second,
		ErrorHandler: middleware.ErrorHandler,
	})

	api.SetupRoutes(app, api.NewHandlers(st, fetchSvc, curator, composerClient))

	go func() {
		log.Info().Str("port", cfg.Port).Msg("starting server")
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited")
}
