package scheduler

import (
	"errors"
	"fmt"
	"time"

	"github.com/arnavshah/quorum-scheduler-api/pkg/models"
)

// DefaultMaxAvailabilitySets caps the availability sets of one gathering
const DefaultMaxAvailabilitySets = 5

// ValidateThresholds checks duration, quorum and capacity
func ValidateThresholds(g *models.Gathering) error {
	if g.DurationMinutes <= 0 {
		return ErrInvalidDuration
	}
	if g.Quorum < 2 {
		return ErrQuorumTooLow
	}
	if g.Capacity < g.Quorum {
		return fmt.Errorf("%w: capacity %d, quorum %d", ErrCapacityBelowQuorum, g.Capacity, g.Quorum)
	}
	return nil
}

// ValidateDraft checks everything Publish needs except the option count
func ValidateDraft(g *models.Gathering, maxSets int) error {
	if err := ValidateThresholds(g); err != nil {
		return err
	}
	if len(g.AvailabilitySets) == 0 {
		return ErrNoAvailabilitySets
	}
	if maxSets > 0 && len(g.AvailabilitySets) > maxSets {
		return fmt.Errorf("%w: %d, limit %d", ErrTooManyAvailabilitySets, len(g.AvailabilitySets), maxSets)
	}
	for i, set := range g.AvailabilitySets {
		if !set.Window.Valid() {
			return fmt.Errorf("availability set %d: %w", i+1, ErrInvalidWindow)
		}
	}
	return nil
}

// SetQuorum changes the quorum and raises capacity to match when needed
func SetQuorum(g *models.Gathering, quorum int) {
	g.Quorum = quorum
	if g.Capacity < quorum {
		g.Capacity = quorum
	}
}

// TimeSlots derives the gathering's time slots
func TimeSlots(g *models.Gathering) []models.TimeSlot {
	return DeriveTimeSlots(g.AvailabilitySets, g.Locations, g.Format)
}

// ViableOptionCount counts the gathering's concrete options at its capacity
func ViableOptionCount(g *models.Gathering) int {
	viable := ViableLocations(g.Locations, g.Capacity)
	return CountViableOptions(TotalDates(g.AvailabilitySets), len(viable), g.Format)
}

// Publish moves a draft to published once it validates and offers at least
// one viable option
func Publish(g *models.Gathering, maxSets int, at time.Time) error {
	if g.Status != models.StatusDraft {
		return fmt.Errorf("%w: publish from %s", ErrInvalidTransition, g.Status)
	}
	if err := ValidateDraft(g, maxSets); err != nil {
		return err
	}
	if ViableOptionCount(g) == 0 {
		return ErrNoViableOptions
	}
	g.Status = models.StatusPublished
	g.PublishedAt = &at
	return nil
}

// Evaluate tallies the responses and decides the gathering's state. A
// published gathering is confirmed on the first evaluation where a slot's
// first-choice count reaches quorum; a confirmed one keeps its slot and
// only re-seats attendees. Evaluate never mutates g; callers apply the
// decision with Confirm.
func Evaluate(g *models.Gathering, responses []models.InviteeResponse) (models.Decision, error) {
	decision := models.Decision{
		Status:      g.Status,
		FirstChoice: FirstChoiceTally(responses),
		Total:       TotalTally(responses),
	}

	switch g.Status {
	case models.StatusConfirmed:
		decision.WinningSlot = g.ConfirmedSlot
		decision.WinningCount = decision.FirstChoice[g.ConfirmedSlot]
	case models.StatusPublished:
		slot, count, err := ResolveWinner(decision.FirstChoice, g.Quorum, g.TieBreak)
		if err != nil {
			var amb *AmbiguousQuorumError
			if errors.As(err, &amb) {
				decision.Ambiguous = amb.Slots
			}
			return decision, err
		}
		if slot == "" {
			return decision, nil
		}
		decision.Status = models.StatusConfirmed
		decision.WinningSlot = slot
		decision.WinningCount = count
	default:
		return decision, nil
	}

	capacity := EvaluateCapacity(AttendeesFor(responses, decision.WinningSlot), g.Capacity, g.OverflowEnabled)
	decision.Capacity = &capacity
	return decision, nil
}

// Confirm fixes the winning slot of a published gathering
func Confirm(g *models.Gathering, slot models.SlotID, at time.Time) error {
	if g.Status != models.StatusPublished {
		return fmt.Errorf("%w: confirm from %s", ErrInvalidTransition, g.Status)
	}
	g.Status = models.StatusConfirmed
	g.ConfirmedSlot = slot
	g.ConfirmedAt = &at
	return nil
}
