// Package calendar renders confirmed gatherings as iCalendar data.
package calendar

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-ical"

	"github.com/arnavshah/quorum-scheduler-api/pkg/models"
	"github.com/arnavshah/quorum-scheduler-api/pkg/scheduler"
)

const productID = "-//quorum-scheduler//EN"

// ErrNotConfirmed is returned for gatherings without a confirmed slot
var ErrNotConfirmed = errors.New("gathering is not confirmed")

// Build returns a calendar with one event for the gathering's confirmed
// slot, starting at the suggested start of its window. Attendees are listed
// in the description.
func Build(g *models.Gathering, attendees []string, stamp time.Time) (*ical.Calendar, error) {
	if g.Status != models.StatusConfirmed || g.ConfirmedSlot == "" {
		return nil, fmt.Errorf("%w: %s", ErrNotConfirmed, g.ID)
	}

	var slot *models.TimeSlot
	for _, s := range scheduler.TimeSlots(g) {
		if s.ID == g.ConfirmedSlot {
			slot = &s
			break
		}
	}
	if slot == nil {
		return nil, fmt.Errorf("confirmed slot %s is not offered by %s", g.ConfirmedSlot, g.ID)
	}

	loc := time.UTC
	if g.TimeZone != "" {
		var err error
		if loc, err = time.LoadLocation(g.TimeZone); err != nil {
			return nil, fmt.Errorf("time zone %q: %w", g.TimeZone, err)
		}
	}

	begin := scheduler.DefaultStart(slot.Window, g.DurationHours())
	start, err := slot.Date.At(begin, loc)
	if err != nil {
		return nil, fmt.Errorf("slot date %q: %w", slot.Date, err)
	}
	end := start.Add(time.Duration(g.DurationMinutes) * time.Minute)

	event := ical.NewEvent()
	event.Props.SetText(ical.PropUID, fmt.Sprintf("%s-%s", g.ID, g.ConfirmedSlot))
	event.Props.SetText(ical.PropSummary, g.Title)
	event.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())
	event.Props.SetDateTime(ical.PropDateTimeStart, start)
	event.Props.SetDateTime(ical.PropDateTimeEnd, end)

	if where := venue(g, slot); where != "" {
		event.Props.SetText(ical.PropLocation, where)
	}
	if len(attendees) > 0 {
		event.Props.SetText(ical.PropDescription, "Attending: "+strings.Join(attendees, ", "))
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)
	cal.Children = append(cal.Children, event.Component)
	return cal, nil
}

// venue names the first location of the slot that seats the gathering
func venue(g *models.Gathering, slot *models.TimeSlot) string {
	if g.Format == models.FormatVirtual {
		return ""
	}
	viable := scheduler.ViableLocations(slot.Locations, g.Capacity)
	if len(viable) == 0 {
		return ""
	}
	l := viable[0]
	if l.Address == "" {
		return l.Name
	}
	return l.Name + ", " + l.Address
}

// Write encodes the calendar for the gathering to w
func Write(w io.Writer, g *models.Gathering, attendees []string, stamp time.Time) error {
	cal, err := Build(g, attendees, stamp)
	if err != nil {
		return err
	}
	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("encode calendar: %w", err)
	}
	return nil
}
