package handler

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/arnavshah/quorum-scheduler-api/pkg/config"
	"github.com/arnavshah/quorum-scheduler-api/pkg/database"
	"github.com/arnavshah/quorum-scheduler-api/pkg/gatherings"
	"github.com/arnavshah/quorum-scheduler-api/pkg/handlers"
	"github.com/arnavshah/quorum-scheduler-api/pkg/overflow"
)

var r *gin.Engine

func init() {
	// Load .env if it exists (for local testing with vercel dev)
	config.LoadEnv()
	cfg := config.Load()
	logger := cfg.NewLogger(os.Stdout)

	db, err := database.Open(cfg.DatabaseURL, cfg.DataPath)
	if err != nil {
		panic(err)
	}

	registry := gatherings.NewRegistry(cfg.MaxAvailabilitySets, overflow.New(cfg.RedisAddr, logger), logger)
	h := handlers.New(cfg, db, registry, logger)
	if err := h.Auth.EnsureAdminExists(db, cfg.AdminUsername, cfg.AdminPassword, logger); err != nil {
		logger.Error("admin bootstrap failed", "error", err)
	}

	gin.SetMode(gin.ReleaseMode)
	r = gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	h.Routes(r)
}

// Handler is the entry point for Vercel Go Runtime
func Handler(w http.ResponseWriter, req *http.Request) {
	r.ServeHTTP(w, req)
}
