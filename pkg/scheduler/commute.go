package scheduler

import (
	"math"

	"github.com/arnavshah/quorum-scheduler-api/pkg/models"
)

const (
	// AdjustThreshold is the smallest start change, in hours, that counts as a deliberate move
	AdjustThreshold = 0.08
	// DragGranularity snaps interactive drags to 5 minutes
	DragGranularity = 5.0 / 60
	// DefaultGranularity snaps suggested starts to the half hour
	DefaultGranularity = 0.5
)

// EffectiveBounds returns the earliest and latest start of a meeting in a
// window. With protectCommute the commute is kept free at both ends of the
// window. Collapsed bounds come back together with an InfeasibleWindowError.
func EffectiveBounds(window models.Window, durationHours, commuteHours float64, protectCommute bool) (models.Bounds, error) {
	bounds := models.Bounds{
		MinStart: window.Start,
		MaxStart: window.End - models.TimePoint(durationHours),
	}
	if protectCommute {
		bounds.MinStart = models.TimePoint(math.Min(
			float64(window.Start)+commuteHours,
			float64(window.End)-durationHours,
		))
		bounds.MaxStart = models.TimePoint(math.Max(
			float64(window.End)-commuteHours-durationHours,
			float64(window.Start),
		))
	}

	if bounds.MinStart > bounds.MaxStart {
		return bounds, &InfeasibleWindowError{Window: window, Bounds: bounds}
	}
	return bounds, nil
}

// EffectiveWindow narrows a window to the range a carved slot may occupy
func EffectiveWindow(window models.Window, durationHours, commuteHours float64, protectCommute bool) (models.Window, error) {
	bounds, err := EffectiveBounds(window, durationHours, commuteHours, protectCommute)
	if err != nil {
		return models.Window{}, err
	}
	return models.Window{
		Start: bounds.MinStart,
		End:   bounds.MaxStart + models.TimePoint(durationHours),
	}, nil
}

// DefaultStart centers the duration in the window on a half-hour boundary
func DefaultStart(window models.Window, durationHours float64) models.TimePoint {
	centered := float64(window.Start) + (window.Span()-durationHours)/2
	start := Snap(models.TimePoint(centered), DefaultGranularity)

	latest := window.End - models.TimePoint(durationHours)
	if start > latest {
		start = latest
	}
	if start < window.Start {
		start = window.Start
	}
	return start
}

// IsAdjusted reports whether current was moved away from suggested
func IsAdjusted(suggested, current models.TimePoint) bool {
	return math.Abs(float64(current-suggested)) > AdjustThreshold
}

// Snap rounds a value to the nearest multiple of granularity
func Snap(value models.TimePoint, granularityHours float64) models.TimePoint {
	if granularityHours <= 0 {
		return value
	}
	return models.TimePoint(math.Round(float64(value)/granularityHours) * granularityHours)
}

// ClampStart keeps a dragged start inside the bounds
func ClampStart(bounds models.Bounds, start models.TimePoint) models.TimePoint {
	if start < bounds.MinStart {
		return bounds.MinStart
	}
	if start > bounds.MaxStart {
		return bounds.MaxStart
	}
	return start
}
