package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"listing-generator/internal/apiclient"
	"listing-generator/internal/config"
	"listing-generator/internal/localstate"
	"listing-generator/internal/logger"
	"listing-generator/internal/orchestrator"
	"listing-generator/internal/progress"
	"listing-generator/internal/session"
	"listing-generator/internal/supabase"
)

func main() {
	cfg, err := config.LoadClient()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.New(cfg.Environment)

	store, err := localstate.Open(cfg.StatePath, cfg.StatePassphrase)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.StatePath).Msg("failed to open local state")
	}
	defer store.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sessions := supabase.NewSessionManager(supabase.NewAuthClient(cfg.SupabaseURL, cfg.SupabaseAnonKey), store)

	indicator := progress.New(progress.WithOnChange(func(s progress.State) {
		if s.Visible {
			fmt.Fprintf(os.Stdout, "  %s\n", s.Label())
		}
	}))

	orch := orchestrator.New(orchestrator.Deps{
		Sessions: sessions,
		Validator: session.NewValidator(session.Expectation{
			Issuer:     session.IssuerFor(cfg.SupabaseURL),
			ProjectRef: cfg.SupabaseProjectRef,
		}),
		Uploader:  supabase.NewStorageClient(cfg.SupabaseURL, cfg.SupabaseAnonKey, cfg.SupabaseStorageBucket, sessions),
		Generator: apiclient.New(cfg.APIBaseURL, cfg.SupabaseAnonKey),
		Listings:  supabase.NewListingsClient(cfg.SupabaseURL, cfg.SupabaseAnonKey, sessions),
		Store:     store,
		Progress:  indicator,
		OnRedirect: func(r orchestrator.Redirect) {
			fmt.Fprintf(os.Stdout, "%s\nSign in again with: login <email> (%s)\n", r.Notice, r.URL())
		},
		Logger: appLogger,
	})

	// Resume a stored session, if any, so its saved draft comes back.
	if _, err := sessions.Current(ctx); err == nil {
		if err := orch.Load(ctx); err != nil {
			appLogger.Debug().Err(err).Msg("stored session not usable")
		}
	}

	if err := newShell(orch, sessions, os.Stdin, os.Stdout).run(ctx); err != nil {
		log.Error().Err(err).Msg("input error")
	}
}
