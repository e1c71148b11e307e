package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/streamvault/upload-gateway/internal/server"
	"github.com/streamvault/upload-gateway/pkg/config"
	"github.com/streamvault/upload-gateway/pkg/container"
	"github.com/streamvault/upload-gateway/pkg/logger"
)

func main() {
	// Initialize basic logger for startup
	startupLogger := logger.New(logger.Config{
		Level:  "info",
		Format: "text",
	})

	startupLogger.Info("Starting Upload Gateway")

	// Load configuration
	cfg, err := config.LoadConfig(startupLogger)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize configured logger
	appLogger := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	appLogger.Info("Configuration loaded",
		"env", cfg.Env,
		"addr", cfg.Server.Addr(),
		"storage", cfg.Storage.Provider,
		"bucket", cfg.Storage.Bucket,
		"publisher", cfg.Bus.Publisher,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize container
	cnt, err := container.New(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Error("Failed to initialize container", "error", err)
		log.Fatalf("Failed to initialize container: %v", err)
	}
	defer func() {
		if err := cnt.Close(); err != nil {
			appLogger.Error("Error closing container", "error", err)
		}
	}()

	router := server.NewRouter(cfg.Server, cnt.Handler, cnt.MetricsHandler, appLogger)
	srv := server.New(cfg.Server, router, appLogger)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		appLogger.Error("Upload Gateway stopped with error", "error", err)
		return
	}

	appLogger.Info("Upload Gateway stopped")
}
