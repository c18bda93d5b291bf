package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/tradebook/internal/config"
	"github.com/aristath/tradebook/internal/database"
	"github.com/aristath/tradebook/internal/events"
	"github.com/aristath/tradebook/internal/locking"
	"github.com/aristath/tradebook/internal/modules/accounting"
	"github.com/aristath/tradebook/internal/modules/auth"
	"github.com/aristath/tradebook/internal/modules/ledger"
	"github.com/aristath/tradebook/internal/modules/quotes"
	"github.com/aristath/tradebook/internal/scheduler"
	"github.com/aristath/tradebook/internal/server"
	"github.com/aristath/tradebook/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fallback := logger.New(logger.Config{Level: "info"})
		fallback.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize logger
	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Msg("Starting Tradebook")

	// Initialize database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := initSchemas(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize schema")
	}

	// Shared infrastructure
	eventManager := events.NewManager(log)
	lockManager := locking.NewManager()

	// Repositories
	quoteRepo := quotes.NewRepository(db.Conn(), log)
	ledgerRepo := ledger.NewRepository(db.Conn(), log)
	positionRepo := accounting.NewPositionRepository(db.Conn(), log)
	snapshotRepo := accounting.NewSnapshotRepository(db.Conn(), log)
	authRepo := auth.NewRepository(db.Conn(), log)

	// Seed the admin account so a fresh install can fetch a key
	if _, err := authRepo.EnsureUser(cfg.AdminUsername, cfg.AdminPassword); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed admin user")
	}

	bookService := accounting.NewService(
		quoteRepo, ledgerRepo, positionRepo, snapshotRepo,
		lockManager, eventManager, log,
	)

	// Scheduler with the daily valuation snapshot
	sched := scheduler.New(log)
	if err := sched.AddJob(cfg.SnapshotSchedule, accounting.NewSnapshotJob(bookService, log)); err != nil {
		log.Fatal().Err(err).Msg("Failed to register snapshot job")
	}
	sched.Start()
	defer sched.Stop()

	// Initialize HTTP server
	srv := server.New(server.Config{
		Port:       cfg.Port,
		Log:        log,
		DevMode:    cfg.DevMode,
		Auth:       auth.NewHandler(authRepo, log),
		Quotes:     quotes.NewHandler(quoteRepo, eventManager, log),
		Stream:     quotes.NewStreamHandler(eventManager, log),
		Accounting: accounting.NewHandler(bookService, log),
		System:     server.NewSystemHandlers(log, db),
	})

	// Start server in goroutine
	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}

func initSchemas(db *database.DB) error {
	if err := quotes.InitSchema(db.Conn()); err != nil {
		return err
	}
	if err := ledger.InitSchema(db.Conn()); err != nil {
		return err
	}
	if err := accounting.InitSchema(db.Conn()); err != nil {
		return err
	}
	return auth.InitSchema(db.Conn())
}
