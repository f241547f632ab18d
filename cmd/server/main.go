package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"github.com/lychee-technology/classifieds"
	"github.com/lychee-technology/classifieds/factory"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// loadConfig overlays environment variables, optionally from a .env file,
// on the defaults.
func loadConfig() (*classifieds.Config, error) {
	_ = godotenv.Load()

	config := classifieds.DefaultConfig()
	if err := env.Parse(config); err != nil {
		return nil, fmt.Errorf("env.Parse: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func newLogger(cfg classifieds.LoggingConfig) (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	}
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	return zapCfg.Build()
}

func main() {
	config, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(config.Logging)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)
	sugar := logger.Sugar()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := factory.NewPool(ctx, config.Database)
	if err != nil {
		sugar.Fatalf("failed to create database pool: %v", err)
	}
	defer pool.Close()

	registry := prometheus.NewRegistry()
	services, err := factory.NewServicesWithConfig(ctx, config, pool, registry)
	if err != nil {
		sugar.Fatalf("failed to initialize services: %v", err)
	}
	defer services.Close()

	server := &Server{
		listings:       services.Listings,
		categories:     services.Categories,
		comments:       services.Comments,
		users:          services.Users,
		blobs:          services.Blobs,
		actors:         services.Actors,
		maxUploadBytes: config.Server.MaxUploadBytes,
		gatherer:       registry,
	}
	if services.LocalBlobs != nil {
		server.imageRoot = services.LocalBlobs.Root()
		server.imagePrefix = services.LocalBlobs.URLPrefix()
	}

	httpServer := &http.Server{
		Addr:         ":" + config.Server.Port,
		Handler:      server.Routes(),
		ReadTimeout:  config.Server.ReadTimeout,
		WriteTimeout: config.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), config.Server.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			sugar.Errorw("http server shutdown", "error", err)
		}
	}()

	sugar.Infow("starting server", "port", config.Server.Port)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		sugar.Fatalf("server error: %v", err)
	}
	sugar.Info("server stopped")
}
