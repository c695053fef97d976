package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/garnizeh/terapia/api"
	dbfs "github.com/garnizeh/terapia/db"
	"github.com/garnizeh/terapia/internal/analytics"
	"github.com/garnizeh/terapia/internal/auth"
	"github.com/garnizeh/terapia/internal/availability"
	"github.com/garnizeh/terapia/internal/config"
	"github.com/garnizeh/terapia/internal/db"
	"github.com/garnizeh/terapia/internal/jobs"
	"github.com/garnizeh/terapia/internal/messaging"
	"github.com/garnizeh/terapia/internal/notifications"
	"github.com/garnizeh/terapia/internal/realtime"
	"github.com/garnizeh/terapia/internal/repository/sqlstore"
	"github.com/garnizeh/terapia/internal/sessions"
	"github.com/garnizeh/terapia/internal/specialists"
	"github.com/garnizeh/terapia/internal/storage"
	"github.com/garnizeh/terapia/pkg/ollama"
	"github.com/garnizeh/terapia/pkg/payments"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	var configPath = flag.String("config", "", "Path to config YAML file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load config", slog.Any("err", err))
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", slog.Any("err", err))
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}))
	slog.SetDefault(logger)
	api.SetLogger(logger)
	ollama.SetLogger(logger)
	payments.SetLogger(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", slog.Any("err", err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting terapia", slog.String("version", version), slog.String("build_time", buildTime))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn, err := db.New(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := db.Migrate(ctx, conn, dbfs.Migrations); err != nil {
		return err
	}
	store := sqlstore.New(conn, logger)

	g, gctx := errgroup.WithContext(ctx)

	broker := realtime.NewBroker(logger, 64)
	var denylist auth.Denylist = auth.NewMemoryDenylist()
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return err
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return err
		}
		denylist = auth.NewRedisDenylist(rdb, "")
		bridge := realtime.NewRedisBridge(rdb, cfg.Redis.Channel, broker, logger)
		g.Go(func() error {
			if err := bridge.Run(gctx); err != nil {
				logger.Error("realtime bridge stopped; events stay local", slog.Any("err", err))
			}
			return nil
		})
		logger.Info("redis enabled", slog.String("channel", cfg.Redis.Channel))
	}

	validator, err := notifications.NewMetadataValidator()
	if err != nil {
		return err
	}
	notifier := notifications.NewService(store, validator, broker, logger)
	dispatcher := notifications.NewDispatcher(store, store, store, notifier, logger)

	specialistSvc := specialists.NewService(store, store, logger)
	var assistant api.HealthChecker
	if cfg.Assistant.Enabled {
		client, err := ollama.NewDefaultClient(cfg.Assistant.Config)
		if err != nil {
			return err
		}
		defer client.Close()
		specialistSvc.WithDrafter(ollama.NewDrafter(client, cfg.Assistant.Model), cfg.Assistant.Timeout)
		assistant = client
	}

	var payClient *payments.Client
	if cfg.PaymentsEnabled() {
		payClient, err = payments.NewClient(cfg.Payments, nil)
		if err != nil {
			return err
		}
	}

	files, err := storage.NewLocal(cfg.Storage.Dir, cfg.Storage.PublicBaseURL, cfg.Storage.MaxBytes, logger)
	if err != nil {
		return err
	}

	deps := api.Deps{
		DB:            conn,
		Assistant:     assistant,
		Profiles:      store,
		Auth:          auth.NewService(store, auth.NewIssuer(cfg.JWTSecret, cfg.TokenDuration), denylist, logger),
		Sessions:      sessions.NewService(store, store, notifier, broker, logger),
		Specialists:   specialistSvc,
		Availability:  availability.NewService(store, logger),
		Messaging:     messaging.NewService(store, broker, logger),
		Notifications: notifier,
		Dispatcher:    dispatcher,
		Analytics:     analytics.NewService(store, store, store, store),
		Payments:      payClient,
		Feed:          broker,
		Uploads:       files,
		Files:         files.Handler(),
	}

	pool := jobs.NewWorkerPool(store, map[string]jobs.Handler{
		notifications.JobType: dispatcher.HandleJob,
	}, logger, cfg.Workers)
	pool.Start(gctx)
	defer pool.Stop()

	if cfg.Dispatch.Enabled {
		sched := jobs.NewScheduler(store, notifications.JobType, cfg.Dispatch.Interval, logger)
		g.Go(func() error {
			sched.Run(gctx)
			return nil
		})
	}

	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      api.SetupRoutes(cfg, version, buildTime, deps),
		ReadTimeout:  cfg.APITimeout,
		WriteTimeout: cfg.APITimeout,
		IdleTimeout:  60 * time.Second,
	}

	g.Go(func() error {
		logger.Info("server starting", slog.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")

		// Give outstanding requests 30 seconds to complete
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	logger.Info("server exited")
	return err
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
