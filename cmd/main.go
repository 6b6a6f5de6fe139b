package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/deltacrown/deltacrown/brackets"
	"github.com/deltacrown/deltacrown/config"
	"github.com/deltacrown/deltacrown/db"
	"github.com/deltacrown/deltacrown/handlers"
	"github.com/deltacrown/deltacrown/middleware"
	"github.com/deltacrown/deltacrown/repositories"
	api "github.com/deltacrown/deltacrown/routes"
	"github.com/deltacrown/deltacrown/services"
	"github.com/deltacrown/deltacrown/storage"
	_ "github.com/lib/pq"
)

const migrationsDir = "migrations"

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		}
	}()
	logger.Info("database connection established")

	if err := db.Migrate(dbConn, migrationsDir); err != nil {
		logger.Error("failed to run migrations", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("migrations applied")

	var evidenceStore storage.EvidenceStore
	if cfg.R2Configured() {
		evidenceStore, err = storage.NewCloudflareR2Store(storage.CloudflareR2Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize R2 evidence store", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("R2 evidence store initialized")
	} else {
		logger.Warn("R2 not configured, dispute evidence uploads disabled")
	}

	wsHub := brackets.NewHub(logger)
	go wsHub.Run()

	userRepo := repositories.NewPostgresUserRepository(dbConn)
	teamRepo := repositories.NewPostgresTeamRepository(dbConn)
	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	registrationRepo := repositories.NewPostgresRegistrationRepository(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	disputeRepo := repositories.NewPostgresDisputeRepository(dbConn)
	notificationRepo := repositories.NewPostgresNotificationRepository(dbConn)
	statsRepo := repositories.NewPostgresTeamStatsRepository(dbConn)

	notifier := services.NewHubNotifier(notificationRepo, wsHub, logger)
	matchService := services.NewMatchService(dbConn, matchRepo, tournamentRepo, registrationRepo, teamRepo, disputeRepo, notifier, logger)
	tournamentService := services.NewTournamentService(dbConn, tournamentRepo, userRepo, notifier, logger)
	registrationService := services.NewRegistrationService(dbConn, registrationRepo, tournamentRepo, teamRepo, matchService, notifier, logger)
	bracketService := services.NewBracketService(dbConn, tournamentRepo, registrationRepo, matchRepo, matchService, notifier, logger)
	schedulerService := services.NewSchedulerService(dbConn, tournamentRepo, matchRepo, notifier, logger)
	checkinService := services.NewCheckinService(tournamentRepo, matchRepo, registrationRepo, userRepo, notifier, logger)
	statsService := services.NewStatsService(statsRepo, matchRepo, teamRepo, registrationRepo, logger)
	disputeService := services.NewDisputeService(disputeRepo, matchRepo, evidenceStore, logger)
	notificationService := services.NewNotificationService(notificationRepo)
	logger.Info("services initialized")

	// Background loop: auto-start due tournaments, fill schedules, open
	// check-in windows.
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go func() {
		ticker := time.NewTicker(cfg.SweepInterval)
		defer ticker.Stop()
		logger.Info("background sweep started", slog.Duration("interval", cfg.SweepInterval))

		sweep := func() {
			now := time.Now()
			if _, err := tournamentService.AutoStatusSweep(sweepCtx, now); err != nil {
				logger.Error("status sweep failed", slog.Any("error", err))
			}
			if err := schedulerService.SweepRunning(sweepCtx); err != nil {
				logger.Error("schedule sweep failed", slog.Any("error", err))
			}
			if _, err := checkinService.Sweep(sweepCtx, now); err != nil {
				logger.Error("check-in sweep failed", slog.Any("error", err))
			}
		}

		sweep()
		for {
			select {
			case <-ticker.C:
				sweep()
			case <-sweepCtx.Done():
				return
			}
		}
	}()

	auth := middleware.NewAuth(cfg.JWTSecretKey)
	router := api.InitRoutes(auth, api.Handlers{
		Tournament:   handlers.NewTournamentHandler(tournamentService, schedulerService),
		Registration: handlers.NewRegistrationHandler(registrationService),
		Match:        handlers.NewMatchHandler(matchService, registrationService, bracketService),
		Dispute:      handlers.NewDisputeHandler(disputeService, matchService),
		Stats:        handlers.NewStatsHandler(statsService),
		Notification: handlers.NewNotificationHandler(notificationService),
		WebSocket:    handlers.NewWebSocketHandler(wsHub, logger),
	})
	logger.Info("routes configured")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		stopSweep()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if err := server.Close(); err != nil {
				logger.Error("forced close failed", slog.Any("error", err))
			}
		}
		logger.Info("server stopped")
	}
}
