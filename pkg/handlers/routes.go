package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const version = "1.0.0"

// Routes registers every endpoint on r
func (h *Handler) Routes(r *gin.Engine) {
	r.Use(h.RequestID())

	// Admin interface - serve static files from embedded FS
	r.StaticFS("/static", h.GetStaticFS())

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Quorum Scheduler API",
			"version": version,
		})
	})

	r.GET("/admin", h.AdminInterface)
	r.POST("/admin/login", h.Login)

	admin := r.Group("/admin")
	admin.Use(h.AuthMiddleware())
	{
		admin.POST("/keys", h.GenerateKey)
		admin.GET("/keys", h.ListKeys)
		admin.PUT("/keys/:id", h.UpdateKeyLimit)
		admin.DELETE("/keys/:id", h.RevokeKey)
		admin.GET("/usage/:id", h.GetUsage)
	}

	api := r.Group("/api")
	api.Use(h.APIKeyMiddleware())
	{
		api.POST("/availability/gaps", h.Gaps)
		api.POST("/availability/locations", h.LocationAvailability)
		api.POST("/slots", h.Slots)
		api.POST("/options", h.Options)
		api.POST("/validate", h.ValidateInput)
		api.GET("/usage", h.GetMyUsage)

		api.POST("/gatherings", h.CreateGathering)
		api.GET("/gatherings/:id", h.GetGathering)
		api.PUT("/gatherings/:id/quorum", h.SetQuorum)
		api.POST("/gatherings/:id/publish", h.PublishGathering)
		api.POST("/gatherings/:id/responses", h.SubmitResponse)
		api.GET("/gatherings/:id/results", h.Results)
		api.GET("/gatherings/:id/results/csv", h.ResultsCSV)
		api.GET("/gatherings/:id/calendar.ics", h.Calendar)
	}
}
