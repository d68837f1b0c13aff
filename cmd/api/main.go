package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pet-health-records/internal/adapters/auth/jwtverifier"
	"pet-health-records/internal/adapters/pets/petsvc"
	pg "pet-health-records/internal/adapters/storage/postgres"
	"pet-health-records/internal/config"
	"pet-health-records/internal/platform/logger"
	"pet-health-records/internal/ports/auth"
	"pet-health-records/internal/router"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config error: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logger.New(logger.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		App:    cfg.AppName,
	})

	petClient, err := petsvc.NewClient(petsvc.Config{
		BaseURL: cfg.PetServiceURL,
		APIKey:  cfg.PetServiceAPIKey,
		Timeout: cfg.PetServiceTimeout(),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("pet service client")
	}

	// Sin JWT_SECRET queda el modo dev (X-Debug-User-ID).
	var verifier auth.AuthVerifier
	if cfg.JWTSecret != "" {
		verifier = jwtverifier.New(cfg.JWTSecret)
	} else if cfg.IsProduction() {
		log.Fatal().Msg("JWT_SECRET is required in production")
	}

	opts := router.Options{
		Log:          log,
		AuthVerifier: verifier,
		PetResolver:  petsvc.NewResolver(petClient),
	}

	if cfg.DBDSN != "" {
		db, err := pg.Open(cfg.DBDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("postgres open")
		}
		defer db.Close()
		opts.DB = db
		log.Info().Msg("using postgres storage")
	} else {
		log.Warn().Msg("DB_DSN not set, using in-memory storage")
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router.NewRouter(opts),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("env", cfg.Env).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	log.Info().Msg("server stopped")
}
