// cmd/server/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/codr1/matchday/internal/api/schedules"
	"github.com/codr1/matchday/internal/config"
	"github.com/codr1/matchday/internal/db"
	"github.com/codr1/matchday/internal/email"
	"github.com/codr1/matchday/internal/ratelimit"
	"github.com/codr1/matchday/internal/scheduler"
	"github.com/codr1/matchday/internal/sessions"
)

const shutdownTimeout = 30 * time.Second

func setupLogger(environment string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		return
	}
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

func newNotifier(cfg *config.Config) (*email.Notifier, error) {
	if !cfg.Notifications.Enabled {
		log.Info().Msg("Publish notifications disabled")
		return nil, nil
	}
	client, err := email.NewSESClient(
		cfg.Notifications.AccessKeyID,
		cfg.Notifications.SecretAccessKey,
		cfg.Notifications.Region,
		cfg.Notifications.Sender,
	)
	if err != nil {
		return nil, fmt.Errorf("create ses client: %w", err)
	}
	return email.NewNotifier(client, cfg.Notifications.OrganizerEmail, cfg.Notifications.Sender), nil
}

func main() {
	configPath := flag.String("config", "config.yaml", "Path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *configPath).Msg("Failed to load configuration")
	}

	setupLogger(cfg.App.Environment)

	database, err := db.NewFromConfig(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer database.Close()

	notifier, err := newNotifier(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to configure notifications")
	}

	sessionStore := sessions.NewStore(nil)
	schedules.InitHandlers(database, sessionStore, cfg, notifier)

	if err := scheduler.Init(); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize scheduler")
	}
	svc, err := scheduler.ServiceInstance()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load scheduler")
	}
	if err := scheduler.RegisterSessionSweep(svc, sessionStore, cfg.Scheduling.SweepCron, cfg.SessionIdleTimeout()); err != nil {
		log.Fatal().Err(err).Msg("Failed to register session sweep")
	}
	if err := scheduler.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start scheduler")
	}

	limiter := ratelimit.New(&ratelimit.Config{
		Window:       time.Minute,
		MaxPerWindow: cfg.RateLimit.RequestsPerMinute,
		TrustProxy:   cfg.RateLimit.TrustProxy,
	})
	defer limiter.Close()

	server := newServer(cfg, limiter)

	// Setup graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Run server
	g.Go(func() error {
		log.Info().Int("port", cfg.App.Port).Str("app", cfg.App.Name).Msg("Starting server")
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Wait for interrupt signal
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		log.Info().Msg("Shutting down server")
		if err := scheduler.Stop(); err != nil {
			log.Error().Err(err).Msg("Failed to stop scheduler")
		}
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Server terminated with error")
		os.Exit(1)
	}
}
