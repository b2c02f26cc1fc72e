package scheduler

import (
	"github.com/arnavshah/quorum-scheduler-api/pkg/models"
)

// Resolver turns location schedules into busy intervals for concrete dates
type Resolver struct {
	Schedules map[string]models.LocationSchedule
}

// NewResolver indexes schedules by location id. A later schedule for the
// same location replaces an earlier one.
func NewResolver(schedules []models.LocationSchedule) *Resolver {
	index := make(map[string]models.LocationSchedule, len(schedules))
	for _, s := range schedules {
		index[s.LocationID] = s
	}
	return &Resolver{Schedules: index}
}

// BusyOn returns the busy intervals of a location on a date. Unknown
// locations are fully free.
func (r *Resolver) BusyOn(locationID string, date models.DateKey) []models.BusyInterval {
	schedule, ok := r.Schedules[locationID]
	if !ok {
		return []models.BusyInterval{}
	}
	return BusyOn(schedule, date)
}

// BusyOn merges a schedule's recurring intervals for the date's weekday with
// its one-off intervals falling on that date
func BusyOn(schedule models.LocationSchedule, date models.DateKey) []models.BusyInterval {
	busy := []models.BusyInterval{}

	if t, err := date.Time(); err == nil {
		for _, r := range schedule.Recurring {
			if r.Weekday == t.Weekday() {
				busy = append(busy, r.BusyInterval)
			}
		}
	}

	for _, o := range schedule.OneOff {
		if d, ok := ResolveDate(schedule.Anchor, o); ok && d == date {
			busy = append(busy, o.BusyInterval)
		}
	}
	return busy
}

// ResolveDate returns the absolute date of a one-off entry
func ResolveDate(anchor models.DateKey, entry models.DatedBusy) (models.DateKey, bool) {
	if entry.Date != "" {
		return entry.Date, true
	}
	if entry.OffsetDays == nil {
		return "", false
	}
	base, err := anchor.Time()
	if err != nil {
		return "", false
	}
	return models.DateKey(base.AddDate(0, 0, *entry.OffsetDays).Format(models.DateLayout)), true
}

// OverallAvailability rates a location across every date of every set.
// Green needs all dates green; a single green or amber date makes it amber.
func (r *Resolver) OverallAvailability(locationID string, sets []models.AvailabilitySet, durationHours float64) models.LocationAvailability {
	result := models.LocationAvailability{
		LocationID: locationID,
		Level:      models.MatchRed,
		PerDate:    []models.DateLevel{},
	}

	allGreen, anyUsable := true, false
	for _, set := range sets {
		for _, date := range set.Dates {
			level := Level(r.BusyOn(locationID, date), set.Window, durationHours)
			result.PerDate = append(result.PerDate, models.DateLevel{
				Date:   date,
				Window: set.Window,
				Level:  level,
			})
			if level != models.MatchGreen {
				allGreen = false
			}
			if level != models.MatchRed {
				anyUsable = true
			}
		}
	}

	switch {
	case len(result.PerDate) > 0 && allGreen:
		result.Level = models.MatchGreen
	case anyUsable:
		result.Level = models.MatchAmber
	}
	return result
}
