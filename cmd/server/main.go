package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/arnavshah/quorum-scheduler-api/pkg/config"
	"github.com/arnavshah/quorum-scheduler-api/pkg/database"
	"github.com/arnavshah/quorum-scheduler-api/pkg/gatherings"
	"github.com/arnavshah/quorum-scheduler-api/pkg/handlers"
	"github.com/arnavshah/quorum-scheduler-api/pkg/overflow"
)

func main() {
	config.LoadEnv()
	cfg := config.Load()
	logger := cfg.NewLogger(os.Stdout)

	if cfg.GinMode == "" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(cfg.GinMode)
	}

	db, err := database.Open(cfg.DatabaseURL, cfg.DataPath)
	if err != nil {
		logger.Error("database init failed", "error", err)
		os.Exit(1)
	}
	logger.Info("database ready", "postgres", cfg.DatabaseURL != "")

	dispatcher := overflow.New(cfg.RedisAddr, logger)
	defer dispatcher.Close()

	registry := gatherings.NewRegistry(cfg.MaxAvailabilitySets, dispatcher, logger)
	h := handlers.New(cfg, db, registry, logger)
	defer h.Close()

	if err := h.Auth.EnsureAdminExists(db, cfg.AdminUsername, cfg.AdminPassword, logger); err != nil {
		logger.Error("admin bootstrap failed", "error", err)
	}

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	h.Routes(r)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("could not run server", "error", err)
			os.Exit(1)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
	logger.Info("server stopped")
}
