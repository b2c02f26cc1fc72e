package handlers

import (
	"embed"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/arnavshah/quorum-scheduler-api/pkg/auth"
	"github.com/arnavshah/quorum-scheduler-api/pkg/calendar"
	"github.com/arnavshah/quorum-scheduler-api/pkg/config"
	"github.com/arnavshah/quorum-scheduler-api/pkg/database"
	"github.com/arnavshah/quorum-scheduler-api/pkg/gatherings"
	"github.com/arnavshah/quorum-scheduler-api/pkg/ratelimit"
	"github.com/arnavshah/quorum-scheduler-api/pkg/scheduler"
	"github.com/arnavshah/quorum-scheduler-api/pkg/validation"
)

//go:embed static/*
var staticEmbed embed.FS

const requestIDHeader = "X-Request-ID"

// Handler contains dependencies for the route handlers
type Handler struct {
	DB         *gorm.DB
	Auth       *auth.Service
	Gatherings *gatherings.Registry
	Validator  *validation.Validator
	Limiter    *ratelimit.KeyedLimiter
	Config     *config.Config
	Logger     *slog.Logger

	now func() time.Time
}

// New wires a handler from the service configuration
func New(cfg *config.Config, db *gorm.DB, registry *gatherings.Registry, logger *slog.Logger) *Handler {
	return &Handler{
		DB:         db,
		Auth:       auth.NewService(cfg.JWTSecret, cfg.APIMasterSecret),
		Gatherings: registry,
		Validator:  validation.New(),
		Limiter:    ratelimit.New(cfg.RateLimitRPS, cfg.RateLimitBurst, 10*time.Minute),
		Config:     cfg,
		Logger:     logger,
		now:        time.Now,
	}
}

// Close stops background work owned by the handler
func (h *Handler) Close() {
	h.Limiter.Stop()
}

func bearer(c *gin.Context) string {
	return strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
}

// RequestID tags every request with an id, reusing the caller's if sent
func (h *Handler) RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Set("requestID", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// AuthMiddleware verifies the JWT token for admin routes
func (h *Handler) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearer(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		claims, err := h.Auth.VerifyToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		c.Set("username", claims.Username)
		c.Next()
	}
}

// APIKeyMiddleware verifies the HMAC API key, then applies the per-key
// token bucket and the key's daily quota
func (h *Handler) APIKeyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := bearer(c)
		if key == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "API Key required"})
			return
		}

		name, err := h.Auth.VerifyHMACKey(key)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid API Key signature"})
			return
		}

		if !h.Limiter.Allow(key) {
			h.Logger.Warn("rate limited", "key_name", name, "request_id", c.GetString("requestID"))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
			return
		}

		now := h.now()
		apiKey, err := database.FindOrCreateKey(h.DB, key, name, auth.KeyPreview(key), now)
		if err != nil {
			h.Logger.Error("api key lookup failed", "key_name", name, "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Could not load API key"})
			return
		}

		used, err := database.RequestsOn(h.DB, apiKey.ID, now.Format("2006-01-02"))
		if err == nil && apiKey.RateLimit > 0 && used >= apiKey.RateLimit {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Daily request limit reached"})
			return
		}

		c.Set("apiKey", apiKey)
		c.Set("userID", name)
		c.Next()
	}
}

// RecordUsage adds the request to the calling key's usage for today
func (h *Handler) RecordUsage(c *gin.Context, delta database.UsageDelta) {
	apiKeyRaw, exists := c.Get("apiKey")
	if !exists {
		return
	}
	apiKey := apiKeyRaw.(*database.APIKey)

	if err := database.RecordUsage(h.DB, apiKey.ID, h.now().Format("2006-01-02"), delta); err != nil {
		h.Logger.Error("record usage failed", "key_id", apiKey.ID, "error", err)
	}
}

// bind decodes and validates the JSON body into dst
func (h *Handler) bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	if err := h.Validator.Validate(dst); err != nil {
		h.respondError(c, err)
		return false
	}
	return true
}

func statusFor(err error) int {
	var verr *validation.Error
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, gatherings.ErrGatheringNotFound):
		return http.StatusNotFound
	case errors.Is(err, gatherings.ErrAlreadySubmitted),
		errors.Is(err, gatherings.ErrNotPublished),
		errors.Is(err, scheduler.ErrInvalidTransition),
		errors.Is(err, scheduler.ErrResponseFinalized),
		errors.Is(err, calendar.ErrNotConfirmed):
		return http.StatusConflict
	case errors.Is(err, scheduler.ErrInfeasibleWindow),
		errors.Is(err, scheduler.ErrNoViableOptions),
		errors.Is(err, scheduler.ErrAmbiguousQuorum):
		return http.StatusUnprocessableEntity
	case errors.Is(err, scheduler.ErrInvalidDuration),
		errors.Is(err, scheduler.ErrQuorumTooLow),
		errors.Is(err, scheduler.ErrCapacityBelowQuorum),
		errors.Is(err, scheduler.ErrNoAvailabilitySets),
		errors.Is(err, scheduler.ErrTooManyAvailabilitySets),
		errors.Is(err, scheduler.ErrInvalidWindow),
		errors.Is(err, scheduler.ErrNotRankable),
		errors.Is(err, scheduler.ErrRankingFull),
		errors.Is(err, scheduler.ErrUnknownSlot):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.Logger.Error("request failed", "path", c.FullPath(), "request_id", c.GetString("requestID"), "error", err)
		c.JSON(status, gin.H{"error": "Internal server error"})
		return
	}

	var verr *validation.Error
	if errors.As(err, &verr) {
		c.JSON(status, gin.H{"error": verr.Message, "details": verr.Fields})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// Login handles admin login
func (h *Handler) Login(c *gin.Context) {
	var req struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}
	if !h.bind(c, &req) {
		return
	}

	var user database.MasterUser
	if err := h.DB.Where("username = ?", req.Username).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	if !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	token, err := h.Auth.CreateToken(user.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not create token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"access_token": token, "token_type": "bearer"})
}

// GenerateKey creates a new API key using the HMAC strategy
func (h *Handler) GenerateKey(c *gin.Context) {
	var req struct {
		Name      string `json:"name" validate:"required,max=100"`
		RateLimit int    `json:"rate_limit" validate:"gte=0"`
	}
	if !h.bind(c, &req) {
		return
	}

	if req.RateLimit == 0 {
		req.RateLimit = h.Config.DefaultRateLimit
	}

	key := h.Auth.GenerateHMACKey(req.Name)
	apiKey := database.APIKey{
		Key:        key,
		Name:       req.Name,
		KeyPreview: auth.KeyPreview(key),
		RateLimit:  req.RateLimit,
	}

	if err := h.DB.Create(&apiKey).Error; err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Could not create key record"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":   apiKey.ID,
		"name": req.Name,
		"key":  key,
	})
}

// ListKeys returns all API keys
func (h *Handler) ListKeys(c *gin.Context) {
	var keys []database.APIKey
	if err := h.DB.Order("id").Find(&keys).Error; err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"keys": keys})
}

func keyID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid key id"})
		return 0, false
	}
	return uint(id), true
}

// RevokeKey deletes an API key
func (h *Handler) RevokeKey(c *gin.Context) {
	id, ok := keyID(c)
	if !ok {
		return
	}
	res := h.DB.Delete(&database.APIKey{}, id)
	if res.Error != nil {
		h.respondError(c, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Key not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Key revoked"})
}

// UpdateKeyLimit updates the daily rate limit for a key
func (h *Handler) UpdateKeyLimit(c *gin.Context) {
	id, ok := keyID(c)
	if !ok {
		return
	}
	var req struct {
		RateLimit int `json:"rate_limit" form:"rate_limit"`
	}

	// Try JSON first, then Form/Query
	if err := c.ShouldBindJSON(&req); err != nil {
		if err := c.ShouldBindQuery(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "rate_limit is required"})
			return
		}
	}

	if req.RateLimit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid rate limit"})
		return
	}

	res := h.DB.Model(&database.APIKey{}).Where("id = ?", id).Update("rate_limit", req.RateLimit)
	if res.Error != nil {
		h.respondError(c, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Key not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Rate limit updated successfully"})
}

// GetUsage returns usage stats for a key
func (h *Handler) GetUsage(c *gin.Context) {
	id, ok := keyID(c)
	if !ok {
		return
	}
	usage, err := database.UsageHistory(h.DB, id, 30)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"usage": usage})
}

// AdminInterface serves the admin web interface from embedded files
func (h *Handler) AdminInterface(c *gin.Context) {
	data, err := staticEmbed.ReadFile("static/index.html")
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "static/index.html not found in embedded FS"})
		return
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", data)
}

// GetStaticFS returns the embedded filesystem for static assets
func (h *Handler) GetStaticFS() http.FileSystem {
	sub, err := fs.Sub(staticEmbed, "static")
	if err != nil {
		panic(err)
	}
	return http.FS(sub)
}
