package scheduler

import (
	"fmt"
	"sort"

	"github.com/arnavshah/quorum-scheduler-api/pkg/models"
)

// NewSlotID builds the id of a date and window. Ids sort chronologically.
func NewSlotID(date models.DateKey, window models.Window) models.SlotID {
	return models.SlotID(fmt.Sprintf("%sT%s-%s", date, window.Start.Clock(), window.End.Clock()))
}

// DeriveTimeSlots groups every (date, window) pair of the availability sets
// and attaches the locations. Virtual gatherings get one slot without
// locations per pair. Slots come back in chronological order.
func DeriveTimeSlots(sets []models.AvailabilitySet, locations []models.Location, format models.Format) []models.TimeSlot {
	byID := make(map[models.SlotID]*models.TimeSlot)
	for _, set := range sets {
		for _, date := range set.Dates {
			id := NewSlotID(date, set.Window)
			if _, ok := byID[id]; ok {
				continue
			}
			slot := &models.TimeSlot{
				ID:        id,
				Date:      date,
				Window:    set.Window,
				Locations: []models.Location{},
			}
			if format != models.FormatVirtual {
				slot.Locations = append(slot.Locations, locations...)
			}
			byID[id] = slot
		}
	}

	slots := make([]models.TimeSlot, 0, len(byID))
	for _, s := range byID {
		slots = append(slots, *s)
	}
	sort.Slice(slots, func(i, j int) bool {
		return slots[i].ID < slots[j].ID
	})
	return slots
}

// ViableLocations keeps the locations that can seat the capacity
func ViableLocations(locations []models.Location, capacity int) []models.Location {
	viable := []models.Location{}
	for _, l := range locations {
		if l.Capacity >= capacity {
			viable = append(viable, l)
		}
	}
	return viable
}

// TotalDates counts the distinct (date, window) pairs across all
// availability sets, which is the number of derived time slots
func TotalDates(sets []models.AvailabilitySet) int {
	seen := make(map[models.SlotID]struct{})
	for _, set := range sets {
		for _, date := range set.Dates {
			seen[NewSlotID(date, set.Window)] = struct{}{}
		}
	}
	return len(seen)
}

// CountViableOptions returns how many concrete options a gathering offers.
// Zero means the gathering cannot be published.
func CountViableOptions(totalDates, viableLocationCount int, format models.Format) int {
	if format == models.FormatVirtual {
		return totalDates
	}
	return totalDates * viableLocationCount
}

// CandidateOptions expands time slots into concrete options over the
// viable locations, rating each against the location's schedule
func CandidateOptions(slots []models.TimeSlot, capacity int, format models.Format, resolver *Resolver, durationHours float64) []models.CandidateOption {
	options := []models.CandidateOption{}
	for _, slot := range slots {
		if format == models.FormatVirtual {
			options = append(options, models.CandidateOption{
				ID:     string(slot.ID),
				SlotID: slot.ID,
				Date:   slot.Date,
				Window: slot.Window,
				Level:  Level(nil, slot.Window, durationHours),
			})
			continue
		}

		for _, loc := range ViableLocations(slot.Locations, capacity) {
			loc := loc
			var busy []models.BusyInterval
			if resolver != nil {
				busy = resolver.BusyOn(loc.ID, slot.Date)
			}
			options = append(options, models.CandidateOption{
				ID:       string(slot.ID) + "@" + loc.ID,
				SlotID:   slot.ID,
				Date:     slot.Date,
				Window:   slot.Window,
				Location: &loc,
				Level:    Level(busy, slot.Window, durationHours),
			})
		}
	}
	return options
}
