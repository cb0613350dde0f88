package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"listing-generator/internal/config"
	"listing-generator/internal/database"
	"listing-generator/internal/gemini"
	"listing-generator/internal/generation"
	"listing-generator/internal/handlers"
	"listing-generator/internal/logger"
	"listing-generator/internal/middleware"
	"listing-generator/internal/supabase"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.New(cfg.Environment)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	geminiClient, err := gemini.NewClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize gemini client")
	}
	log.Info().Str("model", geminiClient.Model()).Msg("gemini client initialized")

	patterns := cfg.GeminiSchemaFallbackPatterns
	if len(patterns) == 0 {
		patterns = generation.DefaultSchemaRejectionPatterns
	}
	schemaRejection, err := generation.NewSchemaRejection(patterns)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid GEMINI_SCHEMA_FALLBACK_PATTERNS")
	}

	service := generation.NewService(geminiClient,
		generation.WithImageFetcher(generation.NewImageDownloader().WithTimeout(cfg.ImageFetchTimeout)),
		generation.WithSchemaRejection(schemaRejection),
		generation.WithLogger(appLogger),
	)

	// The listings API needs direct database access; generation works without it.
	var store handlers.ListingStore
	if cfg.DatabaseURL == "" {
		log.Warn().Msg("DATABASE_URL not set, listings API disabled and migrations skipped")
	} else {
		dbClient, err := supabase.NewDatabaseClient(cfg.DatabaseURL)
		if err != nil {
			log.Warn().Err(err).Msg("failed to initialize database client, listings API disabled")
		} else {
			defer dbClient.Close()
			store = dbClient
			runMigrations(ctx, cfg.DatabaseURL)
		}
	}

	router := gin.New()
	router.Use(logger.GinMiddleware(appLogger))
	router.Use(gin.Recovery())

	handlers.RegisterRoutes(router,
		middleware.AuthMiddleware(cfg),
		handlers.NewGenerateHandler(service),
		handlers.NewListingsHandler(store),
	)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("port", cfg.Port).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Info().Msg("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("shutdown with error")
	} else {
		log.Info().Msg("shutdown complete")
	}
}

func runMigrations(ctx context.Context, dbURL string) {
	migrator, err := database.NewMigrator(dbURL)
	if err != nil {
		log.Warn().Err(err).Msg("failed to initialize migrator")
		return
	}
	defer migrator.Close()

	if err := migrator.Run(ctx); err != nil {
		log.Warn().Err(err).Msg("migration failed")
		return
	}
	log.Info().Msg("migrations completed successfully")
}
