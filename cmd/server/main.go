package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"hemolink/internal/platform/config"
	"hemolink/internal/platform/httpserver"
	"hemolink/internal/platform/logger"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in the internal service packages.
func main() {
	_ = godotenv.Load(".env")
	cfg := config.FromEnv()
	log := logger.New(os.Stdout, cfg.LogLevel, cfg.LogJSON)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := build(ctx, cfg, log)
	if err != nil {
		log.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	srv := httpserver.New(cfg.Server.Addr, app.router)
	go func() {
		log.Info("starting hemolink",
			"addr", cfg.Server.Addr,
			"postgres", cfg.Postgres.URL != "",
			"redis", cfg.Redis.URL != "",
			"channel", app.channelName,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}
