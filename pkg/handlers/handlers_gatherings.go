package handlers

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arnavshah/quorum-scheduler-api/pkg/calendar"
	"github.com/arnavshah/quorum-scheduler-api/pkg/database"
	"github.com/arnavshah/quorum-scheduler-api/pkg/models"
)

// CreateGathering stores a draft gathering
func (h *Handler) CreateGathering(c *gin.Context) {
	var in models.GatheringInput
	if !h.bind(c, &in) {
		return
	}

	g, err := h.Gatherings.Create(in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.RecordUsage(c, database.UsageDelta{Gatherings: 1})

	c.JSON(http.StatusCreated, g)
}

// SetQuorum changes a draft's quorum
func (h *Handler) SetQuorum(c *gin.Context) {
	var req struct {
		Quorum int `json:"quorum" validate:"gte=2"`
	}
	if !h.bind(c, &req) {
		return
	}

	g, err := h.Gatherings.SetQuorum(c.Param("id"), req.Quorum)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.RecordUsage(c, database.UsageDelta{})

	c.JSON(http.StatusOK, g)
}

// PublishGathering opens a draft for responses
func (h *Handler) PublishGathering(c *gin.Context) {
	g, err := h.Gatherings.Publish(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.RecordUsage(c, database.UsageDelta{})

	c.JSON(http.StatusOK, g)
}

// GetGathering returns a gathering with its quorum progress per slot
func (h *Handler) GetGathering(c *gin.Context) {
	view, err := h.Gatherings.Get(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	view.ShareURL = fmt.Sprintf("%s/api/gatherings/%s", h.Config.PublicBaseURL, view.Gathering.ID)
	h.RecordUsage(c, database.UsageDelta{})

	c.JSON(http.StatusOK, view)
}

// SubmitResponse records one invitee's final response
func (h *Handler) SubmitResponse(c *gin.Context) {
	var in models.ResponseInput
	if !h.bind(c, &in) {
		return
	}

	decision, err := h.Gatherings.Submit(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.RecordUsage(c, database.UsageDelta{Responses: 1})

	c.JSON(http.StatusCreated, decision)
}

// Results returns the current decision for a gathering
func (h *Handler) Results(c *gin.Context) {
	res, err := h.Gatherings.Results(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.RecordUsage(c, database.UsageDelta{})

	c.JSON(http.StatusOK, res)
}

// ResultsCSV exports the confirmed and waitlisted invitees of a confirmed gathering
func (h *Handler) ResultsCSV(c *gin.Context) {
	id := c.Param("id")
	res, err := h.Gatherings.Results(id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if res.Decision.Status != models.StatusConfirmed || res.Decision.Capacity == nil {
		h.respondError(c, fmt.Errorf("%w: %s", calendar.ErrNotConfirmed, id))
		return
	}

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	writer.Write([]string{"invitee_id", "status", "position", "slot_id"})
	for i, inv := range res.Decision.Capacity.Confirmed {
		writer.Write([]string{inv, "confirmed", fmt.Sprint(i + 1), string(res.Decision.WinningSlot)})
	}
	for i, inv := range res.Decision.Capacity.Waitlisted {
		writer.Write([]string{inv, "waitlisted", fmt.Sprint(i + 1), string(res.Decision.WinningSlot)})
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		h.respondError(c, err)
		return
	}
	h.RecordUsage(c, database.UsageDelta{})

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", id+"-roster.csv"))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// Calendar downloads the confirmed gathering as an .ics file
func (h *Handler) Calendar(c *gin.Context) {
	g, attendees, err := h.Gatherings.Roster(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := calendar.Write(&buf, &g, attendees, h.now()); err != nil {
		h.respondError(c, err)
		return
	}
	h.RecordUsage(c, database.UsageDelta{})

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", g.Slug+".ics"))
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", buf.Bytes())
}
