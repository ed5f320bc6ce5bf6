package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/lexibot/internal/bot"
	"github.com/example/lexibot/internal/config"
	"github.com/example/lexibot/internal/database"
	"github.com/example/lexibot/internal/logger"
	"github.com/example/lexibot/internal/progress"
	"github.com/example/lexibot/internal/reminder"
	"github.com/example/lexibot/internal/report"
	"github.com/example/lexibot/internal/session"
	"github.com/example/lexibot/internal/srs"
)

func main() {
	cfg := config.Load()

	logg, err := logger.New(cfg.LogMode)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logg.Sync()

	if cfg.DatabaseDriver == "sqlite3" {
		if err := os.MkdirAll("data", 0755); err != nil {
			logg.Fatalw("failed to create data directory", "error", err)
		}
	}

	db, err := database.Connect(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		logg.Fatalw("failed to connect to database", "error", err)
	}
	defer db.Close()

	progressRepo := database.NewProgressRepository(db)
	wordRepo := database.NewWordRepository(db)
	userRepo := database.NewUserRepository(db)

	svc := progress.NewService(progressRepo, wordRepo, srs.New())
	planner := session.NewPlanner(progressRepo, wordRepo)
	exporter := report.NewExporter(progressRepo, wordRepo)

	b, err := bot.New(cfg, userRepo, wordRepo, svc, planner, exporter, logg)
	if err != nil {
		logg.Fatalw("failed to create bot", "error", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.RemindersEnabled {
		r := reminder.New(userRepo, svc, b, logg, cfg.ReminderStartHour, cfg.ReminderEndHour)
		r.Start()
		defer r.Stop()
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		sig := <-sigChan
		logg.Infow("received signal, shutting down", "signal", sig)
		cancel()
	}()

	if err := b.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Errorw("bot stopped with error", "error", err)
	}
	logg.Infow("bot stopped")
}
