package scheduler

import (
	"errors"
	"sort"

	"github.com/arnavshah/quorum-scheduler-api/pkg/models"
)

// FirstChoiceTally counts each response's rank-1 slot
func FirstChoiceTally(responses []models.InviteeResponse) map[models.SlotID]int {
	tally := make(map[models.SlotID]int)
	for _, r := range responses {
		if first := r.Rankings[0]; first != "" {
			tally[first]++
		}
	}
	return tally
}

// TotalTally counts, once per response, every slot the invitee ranked or
// marked works or proposed
func TotalTally(responses []models.InviteeResponse) map[models.SlotID]int {
	tally := make(map[models.SlotID]int)
	for _, r := range responses {
		counted := make(map[models.SlotID]bool)
		for _, slot := range r.Rankings {
			if slot != "" {
				counted[slot] = true
			}
		}
		for slot, d := range r.PerSlotState {
			if d.Rankable() {
				counted[slot] = true
			}
		}
		for slot := range counted {
			tally[slot]++
		}
	}
	return tally
}

// WinningSlot returns the slot with the highest count among those at or
// above quorum. An empty id with a nil error means no slot reached quorum.
// Several slots sharing the highest count give an AmbiguousQuorumError.
func WinningSlot(tally map[models.SlotID]int, quorum int) (models.SlotID, int, error) {
	best := 0
	var leaders []models.SlotID
	for slot, count := range tally {
		if count < quorum {
			continue
		}
		switch {
		case count > best:
			best = count
			leaders = []models.SlotID{slot}
		case count == best:
			leaders = append(leaders, slot)
		}
	}

	switch len(leaders) {
	case 0:
		return "", 0, nil
	case 1:
		return leaders[0], best, nil
	}
	sort.Slice(leaders, func(i, j int) bool { return leaders[i] < leaders[j] })
	return "", best, &AmbiguousQuorumError{Slots: leaders, Count: best}
}

// ResolveWinner applies a tie-break policy to WinningSlot. The earliest
// policy picks the chronologically first tied slot; strict keeps the error.
func ResolveWinner(tally map[models.SlotID]int, quorum int, policy models.TieBreak) (models.SlotID, int, error) {
	slot, count, err := WinningSlot(tally, quorum)
	if err == nil || policy == models.TieBreakStrict {
		return slot, count, err
	}
	var amb *AmbiguousQuorumError
	if errors.As(err, &amb) {
		return amb.Slots[0], amb.Count, nil
	}
	return slot, count, err
}

// AttendeesFor lists, in response order, the invitees who marked the slot
// works or proposed
func AttendeesFor(responses []models.InviteeResponse, slot models.SlotID) []string {
	attendees := []string{}
	for _, r := range responses {
		if r.PerSlotState[slot].Rankable() {
			attendees = append(attendees, r.InviteeID)
		}
	}
	return attendees
}

// EvaluateCapacity seats attendees first come first served up to capacity
// and waitlists the rest
func EvaluateCapacity(attendees []string, capacity int, overflowEnabled bool) models.CapacityResult {
	if capacity < 0 {
		capacity = 0
	}
	cut := min(capacity, len(attendees))

	result := models.CapacityResult{
		Confirmed:     append([]string{}, attendees[:cut]...),
		Waitlisted:    append([]string{}, attendees[cut:]...),
		NeedsOverflow: len(attendees) > capacity,
	}
	result.CreateOverflow = result.NeedsOverflow && overflowEnabled
	return result
}
