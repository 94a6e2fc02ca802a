package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/blockedby/repost-tracer/internal/collector"
	"github.com/blockedby/repost-tracer/internal/config"
	"github.com/blockedby/repost-tracer/internal/database"
	"github.com/blockedby/repost-tracer/internal/logger"
	"github.com/blockedby/repost-tracer/internal/migrator"
	"github.com/blockedby/repost-tracer/internal/nats"
	"github.com/blockedby/repost-tracer/internal/publisher"
	"github.com/blockedby/repost-tracer/internal/repository"
	"github.com/blockedby/repost-tracer/internal/scanner"
	"github.com/blockedby/repost-tracer/internal/telegram"
	"github.com/blockedby/repost-tracer/internal/web"
	"github.com/blockedby/repost-tracer/migrations"
)

func main() {
	// 1. Load config
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// 2. Initialize logger
	if err := logger.Init(cfg.LogLevel, cfg.LogFile); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	log := logger.Get()
	log.Info().Msg("starting repost collector")

	if cfg.TGApiID == 0 || cfg.TGApiHash == "" {
		log.Fatal().Msg("TG_API_ID and TG_API_HASH are required")
	}

	// 3. Setup context with graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info().Msg("received shutdown signal")
		cancel()
	}()

	// 4. Connect to database (optional)
	var (
		reports  collector.ReportStore
		taskLogs collector.TaskLogStore
		runs     collector.RunReader
		logsRead collector.TaskLogReader
	)
	if cfg.DatabaseURL != "" {
		db, err := database.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer db.Close()

		m, err := migrator.NewWithFS(migrations.FS)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to load migrations")
		}
		if err := m.Up(ctx, cfg.DatabaseURL); err != nil {
			log.Fatal().Err(err).Msg("failed to run migrations")
		}
		if version, dirty, err := m.Version(ctx, cfg.DatabaseURL); err == nil {
			log.Info().Uint("version", version).Bool("dirty", dirty).Msg("schema migrated")
		}

		reportsRepo := repository.NewReportsRepository(db.Pool)
		taskLogRepo := repository.NewTaskLogRepository(db.GORM)
		if err := taskLogRepo.Migrate(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to migrate task logs")
		}

		reports, runs = reportsRepo, reportsRepo
		taskLogs, logsRead = taskLogRepo, taskLogRepo
	} else {
		log.Warn().Msg("DATABASE_URL not set, reports are kept in memory only")
	}

	// 5. Connect to NATS (optional)
	var pub collector.EventPublisher
	if cfg.NatsURL != "" {
		nc, err := nats.New(ctx, cfg.NatsURL)
		if err != nil {
			log.Warn().Err(err).Msg("failed to connect to nats, publishing disabled")
		} else {
			defer nc.Close()
			if err := nc.EnsureRepostsStream(ctx); err != nil {
				log.Warn().Err(err).Msg("failed to ensure stream")
			}
			pub = publisher.NewNATSPublisher(nc)
		}
	}

	// 6. Telegram backend and scan pipeline
	connector := scanner.NewTelegramConnector(telegram.NewConnector(cfg))
	resolver := scanner.NewResolver(cfg.MinParticipants, log.Component("resolver"))
	sc := scanner.NewScanner(connector, resolver, log.Component("scanner"))
	orchestrator := scanner.NewOrchestrator(sc, cfg.ScanConcurrency, log.Component("orchestrator"))

	// 7. WebSocket hub
	hub := web.NewHub()
	go hub.Run()

	// 8. Collector service, manager and handlers
	svc := collector.NewService(orchestrator, reports, taskLogs, pub, hub, log.Component("collector"))
	scanManager := collector.NewScanManager(svc)

	sessions := func() ([]telegram.SessionHandle, error) {
		return telegram.Discover(cfg.SessionsDir)
	}
	handler := collector.NewHandler(scanManager, sessions, runs, logsRead, cfg.MaxChannels)

	// 9. Start server
	server := web.NewServer(&web.Config{Port: cfg.HTTPPort}, collector.NewRouter(handler, hub))

	log.Info().Int("port", cfg.HTTPPort).Str("sessions_dir", cfg.SessionsDir).Msg("starting http server")
	go func() {
		if err := server.Start(); err != nil {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// 10. Wait for shutdown
	<-ctx.Done()
	log.Info().Msg("shutting down services...")

	scanManager.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Stop(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("server shutdown")
	}

	log.Info().Msg("shutdown complete")
}
