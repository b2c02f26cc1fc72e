package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arnavshah/quorum-scheduler-api/pkg/database"
	"github.com/arnavshah/quorum-scheduler-api/pkg/models"
	"github.com/arnavshah/quorum-scheduler-api/pkg/scheduler"
)

func hours(minutes int) float64 {
	return float64(minutes) / 60
}

// Gaps returns the free gaps of a window, its match level and a labelled
// breakdown of busy and free time
func (h *Handler) Gaps(c *gin.Context) {
	var in models.GapsRequest
	if !h.bind(c, &in) {
		return
	}

	gaps := scheduler.ComputeGaps(in.Busy, in.Window)
	h.RecordUsage(c, database.UsageDelta{})

	c.JSON(http.StatusOK, models.GapsResponse{
		Gaps:     gaps,
		Level:    scheduler.Classify(gaps, in.Window, hours(in.DurationMinutes)),
		Segments: scheduler.Describe(in.Busy, in.Window),
	})
}

// LocationAvailability rates each location across the candidate dates
func (h *Handler) LocationAvailability(c *gin.Context) {
	var in models.LocationsRequest
	if !h.bind(c, &in) {
		return
	}

	resolver := scheduler.NewResolver(in.Schedules)
	result := make([]models.LocationAvailability, 0, len(in.Locations))
	for _, loc := range in.Locations {
		result = append(result, resolver.OverallAvailability(loc.ID, in.AvailabilitySets, hours(in.DurationMinutes)))
	}
	h.RecordUsage(c, database.UsageDelta{})

	c.JSON(http.StatusOK, gin.H{"locations": result})
}

// Slots returns the start range of a window after commute buffers and the
// back-to-back slots that fit in it
func (h *Handler) Slots(c *gin.Context) {
	var in models.SlotsRequest
	if !h.bind(c, &in) {
		return
	}

	dur := hours(in.DurationMinutes)
	plan := scheduler.PlanWindow(in.Window, dur, hours(in.CommuteMinutes), in.ProtectCommute)

	resp := models.SlotsResponse{
		Bounds:       plan.Bounds,
		Effective:    plan.Effective,
		DefaultStart: plan.DefaultStart,
		Slots:        plan.Slots,
		Infeasible:   plan.Infeasible,
	}
	if in.CurrentStart != nil {
		clamped := scheduler.ClampStart(plan.Bounds, *in.CurrentStart)
		resp.ClampedStart = &clamped
		resp.Adjusted = scheduler.IsAdjusted(plan.DefaultStart, clamped)
	}
	h.RecordUsage(c, database.UsageDelta{})

	c.JSON(http.StatusOK, resp)
}

// Options lists what a draft gathering would offer invitees
func (h *Handler) Options(c *gin.Context) {
	var in models.OptionsRequest
	if !h.bind(c, &in) {
		return
	}
	if in.Format == "" {
		in.Format = models.FormatInPerson
	}

	slots := scheduler.DeriveTimeSlots(in.AvailabilitySets, in.Locations, in.Format)
	viable := scheduler.ViableLocations(in.Locations, in.Capacity)
	count := scheduler.CountViableOptions(scheduler.TotalDates(in.AvailabilitySets), len(viable), in.Format)
	options := scheduler.CandidateOptions(slots, in.Capacity, in.Format, scheduler.NewResolver(in.Schedules), hours(in.DurationMinutes))

	h.RecordUsage(c, database.UsageDelta{Options: len(options)})

	c.JSON(http.StatusOK, models.OptionsResponse{
		TimeSlots:       slots,
		ViableLocations: viable,
		Options:         options,
		ViableCount:     count,
		Publishable:     count > 0,
	})
}
