package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"impactfamilies/internal/config"
	"impactfamilies/internal/database"
	"impactfamilies/internal/handlers"
	"impactfamilies/internal/logger"
	"impactfamilies/internal/repository"
	"impactfamilies/internal/service"
)

const (
	loginAttempts = 5
	loginWindow   = time.Minute
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg)

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database with config (supports sqlite, postgres, mysql)
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	log.Info().Str("type", cfg.DatabaseType).Msg("database connection established")

	if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
		return err
	}
	log.Info().Msg("migrations completed")

	// Initialize repositories
	leaderRepo := repository.NewLeaderRepository(db)
	familyRepo := repository.NewFamilyRepository(db)
	memberRepo := repository.NewMemberRepository(db)

	authService, err := service.NewAuthService(cfg.SitePassword, cfg.SitePasswordHash, cfg.SessionSecret, cfg.SessionDuration, log)
	if errors.Is(err, service.ErrNoSessionSecret) {
		return fmt.Errorf("SESSION_SECRET must be set: %w", err)
	}
	if err != nil {
		return err
	}
	if cfg.SitePassword == "" && cfg.SitePasswordHash == "" {
		log.Warn().Msg("SITE_PASSWORD is not set, logins will be refused")
	}

	mailer, err := assignmentMailer(ctx, cfg, log)
	if err != nil {
		return err
	}

	links := service.NewLinkBuilder(service.NotificationConfig{
		BaseURL:     cfg.AppBaseURL,
		CountryCode: cfg.DefaultCountryCode,
	})

	services := handlers.Services{
		Members:    service.NewMemberService(memberRepo, log),
		Families:   service.NewFamilyService(familyRepo, leaderRepo, memberRepo, log),
		Leaders:    service.NewLeaderService(leaderRepo, log),
		Assignment: service.NewAssignmentService(memberRepo, familyRepo, links, mailer, log),
		FollowUp:   service.NewFollowUpService(memberRepo, log),
		Statistics: service.NewStatisticsService(memberRepo, log),
		Auth:       authService,
	}

	validate, trans, err := handlers.NewValidator()
	if err != nil {
		return err
	}

	if cfg.TrustProxy {
		log.Info().Msg("TRUST_PROXY is set, client IPs come from forwarding headers")
	}

	h := handlers.NewHandlers(services, cfg.Env, validate, trans, log)
	m := handlers.NewMiddleware(authService, handlers.MiddlewareConfig{
		LoginAttempts: loginAttempts,
		LoginWindow:   loginWindow,
		TrustProxy:    cfg.TrustProxy,
	}, log)

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      handlers.NewRouter(h, m),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// assignmentMailer returns nil when assignment e-mails are off, so the
// assignment service skips them entirely
func assignmentMailer(ctx context.Context, cfg *config.Config, log zerolog.Logger) (service.AssignmentMailer, error) {
	if !cfg.AssignmentEmail {
		return nil, nil
	}

	emailService, err := service.NewEmailService(ctx, cfg.AWSRegion, cfg.SESFromEmail, cfg.SESFromName, cfg.EmailDebug, log)
	if err != nil {
		return nil, err
	}
	if !emailService.IsEnabled() {
		log.Info().Msg("SES_FROM_EMAIL is not set, assignment e-mails are disabled")
		return nil, nil
	}
	return emailService, nil
}
