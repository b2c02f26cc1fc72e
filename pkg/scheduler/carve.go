package scheduler

import (
	"github.com/arnavshah/quorum-scheduler-api/pkg/models"
)

// Carve splits a window into back-to-back slots of the given duration.
// The step equals the duration, so slots never overlap. A duration longer
// than the window yields no slots.
func Carve(effective models.Window, durationHours float64) []models.CandidateSlot {
	slots := []models.CandidateSlot{}
	if durationHours <= 0 {
		return slots
	}

	limit := float64(effective.End) + Epsilon
	for i := 0; ; i++ {
		start := float64(effective.Start) + float64(i)*durationHours
		if start+durationHours > limit {
			break
		}
		slots = append(slots, models.CandidateSlot{
			Start: models.TimePoint(start),
			End:   models.TimePoint(start + durationHours),
		})
	}
	return slots
}

// Fits reports whether at least one slot of the duration can be carved
func Fits(effective models.Window, durationHours float64) bool {
	return len(Carve(effective, durationHours)) > 0
}
