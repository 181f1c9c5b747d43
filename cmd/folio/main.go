// Package main is the entry point for the folio API server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"folio/config"
	"folio/internal/app"
	"folio/internal/logging"
	"folio/internal/version"
)

func main() {
	versionFlag := flag.Bool("version", false, "Print version information")
	flag.Parse()

	if *versionFlag {
		fmt.Println(version.Info())
		os.Exit(0)
	}

	result, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := result.Config

	logger := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	slog.SetDefault(logger)

	logger.Info("starting folio",
		"version", version.Version,
		"commit", version.Commit,
		"build_date", version.Date,
	)

	application, err := app.New(context.Background(), app.Config{
		AppConfig: result,
		Logger:    logger,
	})
	if err != nil {
		logger.Error("failed to initialize application", "error", err)
		os.Exit(1)
	}

	// Handle graceful shutdown
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := application.Shutdown(ctx); err != nil {
			logger.Error("shutdown error", "error", err)
		}
	}()

	if err := application.Start(":" + cfg.Server.Port); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
	<-stopped
}
