package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/szlgbiliard/biliard-api/internal/config"
	"github.com/szlgbiliard/biliard-api/internal/constants"
	"github.com/szlgbiliard/biliard-api/internal/db"
	"github.com/szlgbiliard/biliard-api/internal/live"
	"github.com/szlgbiliard/biliard-api/internal/logger"
	"github.com/szlgbiliard/biliard-api/internal/middleware"
	"github.com/szlgbiliard/biliard-api/internal/service"
)

func main() {
	log := logger.New(zerolog.InfoLevel)

	cfg, err := config.Load(log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	log = logger.New(cfg.ZerologLevel())

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer database.Close()

	if err := db.RunMigrations(database, cfg.MigrationsDir); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	auth := middleware.NewAuthenticator(cfg.JWTSecret)
	hub := live.NewHub(log)
	matchService := service.NewMatchService(database, hub, log)
	profileService := service.NewProfileService(database)
	authService := service.NewAuthService(database, auth, log)

	router := newRouter(cfg, log, auth, hub, matchService, profileService, authService)
	server := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Info().Str("addr", cfg.ServerAddr).Msg("server starting")
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Error().Err(err).Msg("server exited")
		os.Exit(1)
	}
	log.Info().Msg("server stopped")
}
