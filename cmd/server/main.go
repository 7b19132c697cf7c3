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

	"github.com/rmarchetti/turnera/internal/booking"
	"github.com/rmarchetti/turnera/internal/config"
	"github.com/rmarchetti/turnera/internal/db"
	"github.com/rmarchetti/turnera/internal/email"
	"github.com/rmarchetti/turnera/internal/ratelimit"
	"github.com/rmarchetti/turnera/internal/scheduler"
	"github.com/rmarchetti/turnera/internal/store"
)

func setupLogger(environment string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	setupLogger(cfg.App.Environment)

	database, err := db.NewFromConfig(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer database.Close()

	tenants := store.NewTenants(database, store.TenantDefaults{
		SlotGranularityMinutes: cfg.Booking.SlotGranularityMinutes,
		DailyCapPerCustomer:    cfg.Booking.DailyCapPerCustomer,
		DefaultServiceMinutes:  cfg.Booking.DefaultServiceMinutes,
	})
	bookings := store.NewBookings(database)

	var notifier booking.NotificationSink
	if cfg.Email.Enabled {
		sesClient, err := email.NewSESClient(
			cfg.Email.AccessKeyID,
			cfg.Email.SecretAccessKey,
			cfg.Email.Region,
			cfg.Email.Sender,
		)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize SES client")
		}
		notifier = email.NewNotifier(sesClient)
		log.Info().Str("region", cfg.Email.Region).Msg("Email confirmations enabled")
	} else {
		log.Info().Msg("Email confirmations disabled")
	}

	bookingService := booking.NewService(tenants, bookings, notifier)

	limiter := ratelimit.New(limiterConfig(cfg))
	defer limiter.Close()

	if err := scheduler.Init(); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize scheduler")
	}
	if err := scheduler.RegisterPurgeJob(bookings, cfg.Booking.RetentionDays); err != nil {
		log.Fatal().Err(err).Msg("Failed to register purge job")
	}
	if err := scheduler.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start scheduler")
	}
	defer func() {
		if err := scheduler.Stop(); err != nil {
			log.Error().Err(err).Msg("Failed to stop scheduler")
		}
	}()

	server := newServer(cfg, bookingService, tenants, bookings, limiter)

	// Setup graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Int("port", cfg.App.Port).Msg("Starting server")
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		log.Info().Msg("Shutting down server")
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

func limiterConfig(cfg *config.Config) *ratelimit.Config {
	limits := ratelimit.DefaultConfig()
	if cfg.RateLimit.SubmitCooldownSeconds > 0 {
		limits.SubmitCooldown = time.Duration(cfg.RateLimit.SubmitCooldownSeconds) * time.Second
	}
	if cfg.RateLimit.SubmitMaxPerHour > 0 {
		limits.SubmitMaxPerHour = cfg.RateLimit.SubmitMaxPerHour
	}
	if cfg.RateLimit.SubmitMaxIPPerHour > 0 {
		limits.SubmitMaxIPPerHour = cfg.RateLimit.SubmitMaxIPPerHour
	}
	return limits
}
