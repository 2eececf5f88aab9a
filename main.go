package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"equiherds-backend/auth"
	"equiherds-backend/config"
	"equiherds-backend/database"
	"equiherds-backend/logging"
	"equiherds-backend/routes"
)

func main() {
	started := time.Now()

	// ---- Configuration (.env optional, environment wins)
	cfg, err := config.Load(".env")
	if err != nil {
		var ce *config.ConfigurationError
		if errors.As(err, &ce) {
			fmt.Fprintln(os.Stderr, "configuration error:", ce)
		} else {
			fmt.Fprintln(os.Stderr, "failed to load configuration:", err)
		}
		os.Exit(1)
	}

	log := logging.New(logging.Config{
		Service: "equiherds-backend",
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
	})

	// ---- Credentials
	passwords, err := auth.NewPasswordHasher(cfg.Auth.BcryptCost)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid password hashing cost")
	}
	tokens, err := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, auth.WithIssuer(cfg.Auth.Issuer))
	if err != nil {
		log.Fatal().Err(err).Msg("token service")
	}

	// ---- Store: connected lazily on the first request, migrated once per handle
	opts := database.OptionsFromConfig(cfg.Database)
	opts.OnConnect = database.AutoMigrate
	mgr := database.NewManager(database.NewPostgresDialer(cfg.Database, log), opts, log)

	// ---- HTTP
	app := routes.NewApp(routes.Deps{
		Manager:         mgr,
		Users:           database.NewGormUserStore(mgr),
		Tokens:          tokens,
		Passwords:       passwords,
		Logger:          log,
		Started:         started,
		AllowedOrigins:  cfg.AllowedOrigins,
		BodyLimit:       cfg.BodyLimitBytes(),
		RateLimitMax:    cfg.RateLimitMax,
		RateLimitWindow: cfg.RateLimitWindow,
	})

	log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("API server starting")
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
