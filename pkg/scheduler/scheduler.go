// Package scheduler matches availability windows, location schedules and
// commute constraints into meeting options, and decides when a gathering
// reaches quorum. It is pure computation over caller-supplied data.
package scheduler

import (
	"github.com/arnavshah/quorum-scheduler-api/pkg/models"
)

// Scheduler bundles a gathering with the location schedules it is planned against
type Scheduler struct {
	Gathering *models.Gathering
	Resolver  *Resolver
}

// NewScheduler creates a new scheduler instance
func NewScheduler(g *models.Gathering, schedules []models.LocationSchedule) *Scheduler {
	return &Scheduler{
		Gathering: g,
		Resolver:  NewResolver(schedules),
	}
}

// DurationHours returns the gathering's duration in hours
func (s *Scheduler) DurationHours() float64 {
	return s.Gathering.DurationHours()
}

// TimeSlots derives the distinct date and window groupings
func (s *Scheduler) TimeSlots() []models.TimeSlot {
	return TimeSlots(s.Gathering)
}

// ViableLocations returns the locations that seat the gathering's capacity
func (s *Scheduler) ViableLocations() []models.Location {
	return ViableLocations(s.Gathering.Locations, s.Gathering.Capacity)
}

// Options expands the time slots into rated candidate options
func (s *Scheduler) Options() []models.CandidateOption {
	return CandidateOptions(s.TimeSlots(), s.Gathering.Capacity, s.Gathering.Format, s.Resolver, s.DurationHours())
}

// ViableOptionCount counts the options available at publish time
func (s *Scheduler) ViableOptionCount() int {
	return ViableOptionCount(s.Gathering)
}

// LocationAvailability rates every selected location across all candidate dates
func (s *Scheduler) LocationAvailability() []models.LocationAvailability {
	result := make([]models.LocationAvailability, 0, len(s.Gathering.Locations))
	for _, loc := range s.Gathering.Locations {
		result = append(result, s.Resolver.OverallAvailability(loc.ID, s.Gathering.AvailabilitySets, s.DurationHours()))
	}
	return result
}

// SlotPlan is the draggable range and carved slots of one window for one invitee
type SlotPlan struct {
	Bounds       models.Bounds          `json:"bounds"`
	Effective    models.Window          `json:"effective_window"`
	DefaultStart models.TimePoint       `json:"default_start"`
	Slots        []models.CandidateSlot `json:"slots"`
	Infeasible   bool                   `json:"infeasible"`
}

// PlanWindow computes the start bounds, suggested start and carved slots of
// a window given a commute. The suggested start is kept inside the bounds.
// When the commute leaves no valid start the plan falls back to the
// unconstrained window and is marked infeasible.
func PlanWindow(window models.Window, durationHours, commuteHours float64, protectCommute bool) SlotPlan {
	var plan SlotPlan

	bounds, err := EffectiveBounds(window, durationHours, commuteHours, protectCommute)
	if err != nil {
		plan.Infeasible = true
		bounds, _ = EffectiveBounds(window, durationHours, 0, false)
	}
	plan.Bounds = bounds
	plan.DefaultStart = ClampStart(bounds, DefaultStart(window, durationHours))
	plan.Effective = models.Window{Start: bounds.MinStart, End: bounds.MaxStart + models.TimePoint(durationHours)}
	plan.Slots = Carve(plan.Effective, durationHours)
	return plan
}
