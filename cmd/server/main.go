package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mcwatch/internal/api"
	"mcwatch/internal/app"
	"mcwatch/internal/config"
	"mcwatch/internal/logger"
	"mcwatch/internal/updater"
)

func main() {
	config.LoadEnv()

	configDir, err := config.Dir()
	if err != nil {
		log.Fatalf("Error getting user config directory: %v", err)
	}

	cfg, err := config.LoadConfig(configDir)
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}
	logger.Init(cfg.LogFormat, logger.ParseLevel(cfg.LogLevel))

	logger.Info("Starting mcwatch daemon",
		"version", updater.CurrentVersion,
		"store", cfg.StoreBackend,
		"interval", cfg.PollInterval.Std(),
		"timeout", cfg.PollTimeout.Std(),
		"max_concurrent", cfg.MaxConcurrent,
	)

	container := app.Open(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	container.Start(ctx)

	apiServer := api.NewAPIServer(container)
	listenAddr := fmt.Sprintf(":%d", cfg.Port)

	errCh := make(chan error, 1)
	go func() {
		errCh <- apiServer.Start(listenAddr)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("API server failed", "error", err)
		}
	case <-ctx.Done():
		logger.Info("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("API shutdown incomplete", "error", err)
	}
	if err := container.Close(); err != nil {
		logger.Error("Failed to close store", "error", err)
		os.Exit(1)
	}
}
