package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"equipment-tracker-backend/internal/api"
	"equipment-tracker-backend/internal/auth"
	"equipment-tracker-backend/internal/db"
	"equipment-tracker-backend/internal/mw"
	"equipment-tracker-backend/internal/notification"
	"equipment-tracker-backend/internal/registry"
)

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(*configPath)
		},
	}
}

func runServer(configPath string) error {
	a, err := bootstrap(configPath)
	if err != nil {
		return err
	}
	defer a.close()
	logger := a.log

	// Create a context that can be cancelled
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := db.Seed(ctx, a.db, a.cfg.Auth.SeedUsers, logger); err != nil {
		return fmt.Errorf("failed to seed database: %w", err)
	}

	responseCache := mw.NewResponseCache(a.cfg.Server.CacheTTL())
	opts := []registry.Option{
		registry.WithCache(responseCache),
		registry.WithReportMaxLines(a.cfg.Storage.ReportMaxLines),
	}

	var webpushOptions *webpush.Options
	if a.cfg.Push.Enabled() {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  a.cfg.Push.PublicKey,
			VAPIDPrivateKey: a.cfg.Push.PrivateKey,
			Subscriber:      a.cfg.Push.Subject,
			TTL:             a.cfg.Push.TTL,
		}
		workerPool := notification.NewWorkerPool(a.cfg.WorkerPool.Size, a.store, webpushOptions, logger)
		workerPool.Start(ctx)
		opts = append(opts, registry.WithNotifier(workerPool))
		logger.Info("room notifications enabled", zap.Int("workers", a.cfg.WorkerPool.Size))
	} else {
		logger.Warn("VAPID keys are not configured; room notifications are disabled")
	}

	reg := registry.NewService(a.store, a.storage, a.index, logger, opts...)
	tokens := auth.NewTokenManager(a.cfg.Auth.Secret, a.cfg.Auth.SessionTTL)
	handler := api.NewHandler(a.store, reg, tokens, webpushOptions, a.cfg.Auth.CookieSecure)

	gin.SetMode(gin.ReleaseMode)
	router := api.NewRouter(handler, responseCache, a.cfg.Server, logger)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start the server in a goroutine
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server starting", zap.Int("port", a.cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Setup signal handling for graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Info("shutdown signal received, stopping services")
	case err := <-serverErr:
		return fmt.Errorf("HTTP server ListenAndServe: %w", err)
	}

	// Create a deadline to wait for.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP server Shutdown: %w", err)
	}
	cancel()

	logger.Info("server gracefully stopped")
	return nil
}
