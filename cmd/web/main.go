package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AdamBeresnev/tourney/internal/config"
	"github.com/AdamBeresnev/tourney/internal/db"
	"github.com/AdamBeresnev/tourney/internal/eventlog"
	"github.com/AdamBeresnev/tourney/internal/reminder"
	"github.com/AdamBeresnev/tourney/internal/service"
	"github.com/AdamBeresnev/tourney/internal/store"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	setupLogger(cfg)

	clock := clockwork.NewRealClock()

	snapshots, closeStore, err := openStore(cfg, clock)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.StoreBackend).Msg("failed to open store")
	}
	defer closeStore()

	var notifier reminder.Notifier = reminder.LogNotifier{}
	if cfg.NATSURL != "" {
		nc, err := reminder.Connect(cfg.NATSURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to NATS")
		}
		defer nc.Drain()
		notifier = reminder.NewNATSNotifier(nc, cfg.NATSSubject)
		log.Info().Str("url", cfg.NATSURL).Str("subject", cfg.NATSSubject).Msg("publishing notifications to NATS")
	}

	scheduler := reminder.NewScheduler(clock, notifier)
	defer scheduler.Stop()

	manager := service.NewManager(snapshots, cfg.Defaults,
		service.WithClock(clock),
		service.WithEventLogger(eventlog.NewLogger(cfg.EventLogDir, clock)),
		service.WithReminders(scheduler),
		service.WithAnnouncer(notifier),
	)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           newRouter(manager, clock),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

func setupLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

func openStore(cfg *config.Config, clock clockwork.Clock) (store.SnapshotStore, func(), error) {
	if cfg.StoreBackend != config.BackendSQLite {
		log.Info().Str("dir", cfg.DataDir).Msg("using file snapshots")
		return store.NewFileStore(cfg.DataDir, clock), func() {}, nil
	}

	database, err := db.InitDB(cfg.SQLitePath)
	if err != nil {
		return nil, nil, err
	}
	if err := db.RunMigrations(database.DB); err != nil {
		database.Close()
		return nil, nil, err
	}
	return store.NewSQLStore(database, clock), func() { database.Close() }, nil
}
