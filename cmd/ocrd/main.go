package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/joseph-ayodele/ocr-service/internal/app"
	"github.com/joseph-ayodele/ocr-service/internal/common"
	"github.com/joseph-ayodele/ocr-service/internal/server"
)

func main() {
	cfg, err := app.LoadConfig()
	if err != nil {
		app.NewLogger(slog.LevelInfo).Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := app.NewLogger(cfg.Log.Level)

	if err := run(cfg, logger); err != nil {
		logger.Error("ocrd stopped with error", "error", err)
		os.Exit(1)
	}
}

// run returns only after every deferred cleanup (temp dir purge included)
// has run.
func run(cfg *common.Config, logger *slog.Logger) error {
	// Context with signal
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := app.Build(cfg, logger)
	defer func() {
		if err := c.Store.Purge(); err != nil {
			logger.Error("failed to purge temp dir", "dir", c.Store.Dir(), "error", err)
		}
	}()

	gin.SetMode(gin.ReleaseMode)
	h := server.NewHandler(c.Pipeline, c.Store, cfg.Files.MaxFileSize, cfg.Server.ServiceName, logger)
	router := server.NewRouter(h, server.RouterConfig{AllowedOrigins: cfg.Server.AllowedOrigins}, logger)
	httpServer := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// gRPC health endpoint for orchestrators
	var hs *server.HealthServer
	if cfg.Server.GRPCAddr != "" {
		var err error
		hs, err = server.ListenHealth(cfg.Server.GRPCAddr, cfg.Server.ServiceName, logger)
		if err != nil {
			return err
		}
		go func() {
			if err := hs.Serve(); err != nil {
				logger.Error("grpc serve failed", "error", err)
				stop()
			}
		}()
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP serving", "addr", cfg.Server.HTTPAddr, "service", cfg.Server.ServiceName)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- fmt.Errorf("http serve: %w", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if hs != nil {
		hs.Stop()
	}
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", "error", err)
	}
	logger.Info("stopped")

	select {
	case err := <-serveErr:
		return err
	default:
		return nil
	}
}
