package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	dbfs "github.com/garnizeh/terapia/db"
	"github.com/garnizeh/terapia/internal/config"
	"github.com/garnizeh/terapia/internal/db"
	"github.com/garnizeh/terapia/internal/notifications"
	"github.com/garnizeh/terapia/internal/repository/sqlstore"
)

// dispatch runs one reminder pass and exits, for hosts that schedule it with cron.
func main() {
	var configPath = flag.String("config", "", "Path to config YAML file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.Error("failed to load config", slog.Any("err", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if cfg.Dispatch.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Dispatch.Timeout)
		defer cancel()
	}

	conn, err := db.New(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		logger.Error("failed to open DB", slog.Any("err", err))
		os.Exit(1)
	}
	defer conn.Close()
	if err := db.Migrate(ctx, conn, dbfs.Migrations); err != nil {
		logger.Error("migrate", slog.Any("err", err))
		os.Exit(1)
	}
	store := sqlstore.New(conn, logger)

	validator, err := notifications.NewMetadataValidator()
	if err != nil {
		logger.Error("metadata schemas", slog.Any("err", err))
		os.Exit(1)
	}
	notifier := notifications.NewService(store, validator, nil, logger)
	report := notifications.NewDispatcher(store, store, store, notifier, logger).Dispatch(ctx)

	logger.Info("dispatch finished", slog.Any("report", report))
	if report.Failed() {
		os.Exit(1)
	}
}
