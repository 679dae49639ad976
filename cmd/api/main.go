package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"MealVibe/internal/aiservice"
	"MealVibe/internal/auth"
	"MealVibe/internal/client"
	"MealVibe/internal/config"
	"MealVibe/internal/database"
	"MealVibe/internal/logging"
	"MealVibe/internal/meals"
	"MealVibe/internal/server"
	"MealVibe/internal/utility"
	"MealVibe/internal/wizard"
	"MealVibe/internal/wizardapi"
)

// gracefulShutdown waits for ctx to end and gives in-flight requests 10
// seconds to finish.
func gracefulShutdown(ctx context.Context, apiServer *http.Server) error {
	<-ctx.Done()
	log.Info().Msg("shutting down gracefully, press Ctrl+C again to force")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		return err
	}
	log.Info().Msg("server exiting")
	return nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	logFile, err := logging.Setup(logging.Options{
		Level:  cfg.LogLevel,
		Pretty: !cfg.IsProduction(),
		File:   cfg.LogFile,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up logging")
	}
	defer logFile.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewService(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("could not open user store")
	}
	defer db.Close()

	jwtSecret := cfg.JWTSecret
	if jwtSecret == "" {
		if jwtSecret, err = utility.GenerateSecureToken(32); err != nil {
			log.Fatal().Err(err).Msg("failed to generate token secret")
		}
		log.Warn().Msg("JWT_SECRET_KEY is not set, tokens will not survive a restart")
	}
	authSvc, err := auth.NewService(db, jwtSecret)
	if err != nil {
		log.Fatal().Err(err).Msg("could not initialize authentication")
	}

	recommender, scanner, provider := buildAI(ctx, cfg)

	hub := utility.NewHub()
	registry := wizardapi.NewRegistry(cfg.MaxSessions, cfg.SessionTTL, hub)
	wiz := wizardapi.NewHandler(registry, hub, wizardapi.Options{
		Recommender: recommender,
		Scanner:     scanner,
		Profiles:    authSvc,
		Cookies:     wizardapi.NewCookieStore(cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction()),
		ScanWait:    cfg.ScanWait,
		ScanTimeout: cfg.ScanTimeout,
	})

	apiServer := server.NewServer(server.Deps{
		Port:     cfg.Port,
		DB:       db,
		Auth:     authSvc,
		Meals:    meals.NewHandler(recommender, scanner),
		Wizard:   wiz,
		Provider: provider,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", apiServer.Addr).Str("env", cfg.AppEnv).Str("provider", provider).Msg("server listening")
		if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return gracefulShutdown(gctx, apiServer)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("http server error")
		logFile.Close()
		os.Exit(1)
	}
	log.Info().Msg("graceful shutdown complete")
}

// buildAI returns the recommendation and scan backends. RECOMMENDER_URL
// delegates both to another MealVibe server.
func buildAI(ctx context.Context, cfg *config.Config) (wizard.Recommender, wizard.Scanner, string) {
	if cfg.RecommenderURL != "" {
		remote := client.New(cfg.RecommenderURL, client.WithRetries(cfg.AIMaxRetries))
		return remote, remote, "remote:" + cfg.RecommenderURL
	}

	ai, err := aiservice.NewFromConfig(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("could not initialize AI provider")
	}
	return ai, ai, ai.Provider()
}
