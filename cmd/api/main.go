package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"Debate_Community/internal/app"
	"Debate_Community/internal/config"
	"Debate_Community/internal/router"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		app.NewLogger("info", true).Error("load config", "err", err)
		os.Exit(1)
	}
	logger := app.NewLogger(cfg.LogLevel, true)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Error("bootstrap failed", "err", err)
		os.Exit(1)
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error("close resources", "err", err)
		}
	}()
	a.RunBackground(ctx)

	gin.SetMode(gin.ReleaseMode)
	r := router.InitRouter(router.Deps{
		Debates:       a.Debates,
		Anonymizer:    a.Anonymizer,
		Notifications: a.Notifications,
		Verifier:      a.Verifier,
		Gatherer:      a.Registry,
		Logger:        logger,
	})
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("http server listening", "addr", cfg.Addr, "store", cfg.StoreDriver, "classifier", cfg.Classifier)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "err", err)
			cancel()
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info("received signal, shutting down", "signal", sig.String())
	case <-ctx.Done():
	}
	cancel()

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown", "err", err)
	}
}
