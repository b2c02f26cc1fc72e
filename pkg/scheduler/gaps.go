package scheduler

import (
	"sort"

	"github.com/arnavshah/quorum-scheduler-api/pkg/models"
)

// Epsilon absorbs floating error in fractional-hour comparisons
const Epsilon = 0.01

const lengthTolerance = 1e-9

// clip trims busy intervals to the window, drops the ones outside it and
// sorts the rest by start
func clip(busy []models.BusyInterval, window models.Window) []models.BusyInterval {
	clipped := make([]models.BusyInterval, 0, len(busy))
	for _, b := range busy {
		start, end := b.Start, b.End
		if start < window.Start {
			start = window.Start
		}
		if end > window.End {
			end = window.End
		}
		if start >= end {
			continue
		}
		clipped = append(clipped, models.BusyInterval{Start: start, End: end, Label: b.Label})
	}

	sort.SliceStable(clipped, func(i, j int) bool {
		return clipped[i].Start < clipped[j].Start
	})
	return clipped
}

// ComputeGaps returns the free ranges of a window left uncovered by busy intervals
func ComputeGaps(busy []models.BusyInterval, window models.Window) []models.Gap {
	gaps := []models.Gap{}
	cursor := window.Start

	for _, b := range clip(busy, window) {
		if b.Start > cursor {
			gaps = append(gaps, models.Gap{Start: cursor, End: b.Start})
		}
		if b.End > cursor {
			cursor = b.End
		}
	}

	if cursor < window.End {
		gaps = append(gaps, models.Gap{Start: cursor, End: window.End})
	}
	return gaps
}

// Classify rates how a duration fits into a window given its free gaps.
// Green when the whole window is free, amber when one gap holds the
// duration, red otherwise.
func Classify(gaps []models.Gap, window models.Window, durationHours float64) models.MatchLevel {
	var totalFree float64
	for _, g := range gaps {
		totalFree += g.Length()
	}

	if totalFree >= window.Span()-Epsilon {
		return models.MatchGreen
	}

	if durationHours > 0 {
		for _, g := range gaps {
			if g.Length()+lengthTolerance >= durationHours {
				return models.MatchAmber
			}
		}
	}
	return models.MatchRed
}

// Level is ComputeGaps followed by Classify
func Level(busy []models.BusyInterval, window models.Window, durationHours float64) models.MatchLevel {
	return Classify(ComputeGaps(busy, window), window, durationHours)
}

// Describe itemizes a window as alternating free and busy segments in time
// order. Overlapping busy intervals are merged into one segment whose label
// joins theirs.
func Describe(busy []models.BusyInterval, window models.Window) []models.Segment {
	var segments []models.Segment
	cursor := window.Start

	for _, b := range clip(busy, window) {
		if b.Start > cursor {
			segments = append(segments, freeSegment(cursor, b.Start))
		}
		if n := len(segments); n > 0 && !segments[n-1].Free && b.Start <= segments[n-1].End {
			last := &segments[n-1]
			if b.End > last.End {
				last.End = b.End
			}
			if b.Label != "" && b.Label != last.Label {
				last.Label += " / " + b.Label
			}
		} else {
			label := b.Label
			if label == "" {
				label = "Busy"
			}
			segments = append(segments, models.Segment{Start: b.Start, End: b.End, Label: label})
		}
		if b.End > cursor {
			cursor = b.End
		}
	}

	if cursor < window.End {
		segments = append(segments, freeSegment(cursor, window.End))
	}
	return segments
}

func freeSegment(start, end models.TimePoint) models.Segment {
	return models.Segment{
		Start: start,
		End:   end,
		Free:  true,
		Label: "Free " + start.Label() + " - " + end.Label(),
	}
}
