package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arnavshah/quorum-scheduler-api/pkg/database"
	"github.com/arnavshah/quorum-scheduler-api/pkg/models"
	"github.com/arnavshah/quorum-scheduler-api/pkg/scheduler"
	"github.com/arnavshah/quorum-scheduler-api/pkg/validation"
)

// ValidateInput checks a gathering draft without storing it
func (h *Handler) ValidateInput(c *gin.Context) {
	var input models.GatheringInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"valid": false,
			"error": err.Error(),
		})
		return
	}

	if err := h.Validator.Validate(&input); err != nil {
		var verr *validation.Error
		if errors.As(err, &verr) {
			c.JSON(http.StatusOK, gin.H{"valid": false, "error": verr.Message, "details": verr.Fields})
			return
		}
		h.respondError(c, err)
		return
	}

	g := models.Gathering{
		DurationMinutes:  input.DurationMinutes,
		Quorum:           input.Quorum,
		Capacity:         input.Capacity,
		Format:           input.Format,
		AvailabilitySets: input.AvailabilitySets,
		Locations:        input.Locations,
	}
	if g.Format == "" {
		g.Format = models.FormatInPerson
	}
	if err := scheduler.ValidateDraft(&g, h.Config.MaxAvailabilitySets); err != nil {
		c.JSON(http.StatusOK, gin.H{"valid": false, "error": err.Error()})
		return
	}

	viable := scheduler.ViableOptionCount(&g)
	h.RecordUsage(c, database.UsageDelta{Options: viable})

	c.JSON(http.StatusOK, gin.H{
		"valid":       true,
		"publishable": viable > 0,
		"stats": gin.H{
			"time_slot_count":        len(scheduler.TimeSlots(&g)),
			"viable_location_count":  len(scheduler.ViableLocations(g.Locations, g.Capacity)),
			"viable_option_count":    viable,
			"availability_set_count": len(g.AvailabilitySets),
		},
	})
}
