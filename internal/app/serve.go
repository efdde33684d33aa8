package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/stagelink/backend/internal/config"
	"github.com/stagelink/backend/internal/db"
	"github.com/stagelink/backend/internal/httpserver"
	"github.com/stagelink/backend/internal/logging"
)

func serve(ctx context.Context, cfg config.Config, out io.Writer) error {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger := logging.New(out, level)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var pool db.Pool
	if cfg.Storage == config.StoragePostgres {
		pgPool, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pgPool.Close()
		pool = pgPool
	}

	application, err := buildApplication(ctx, pool, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := application.Close(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("shutdown cleanup failed", "error", err)
		}
	}()

	srv := httpserver.New(fmt.Sprintf(":%d", cfg.AppPort), application.Handler(logger))
	logger.Info("starting http server",
		"port", cfg.AppPort,
		"storage", cfg.Storage,
		"events", cfg.NATSURL != "",
		"avatars", cfg.ObjectStore.Enabled(),
	)

	if err := srv.Run(ctx); err != nil {
		return err
	}
	logger.Info("http server stopped")
	return nil
}
