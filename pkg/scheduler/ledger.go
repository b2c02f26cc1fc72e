package scheduler

import (
	"fmt"
	"time"

	"github.com/arnavshah/quorum-scheduler-api/pkg/models"
)

// Ledger records one invitee's dispositions and ranked choices while they
// respond. Ranked slots are always marked works or proposed. Rank positions
// stay where they were put: removing rank 1 leaves a hole, it does not
// promote rank 2.
type Ledger struct {
	response models.InviteeResponse
	known    map[models.SlotID]bool
}

// NewLedger starts an empty response over the gathering's time slots
func NewLedger(inviteeID string, slots []models.TimeSlot) *Ledger {
	known := make(map[models.SlotID]bool, len(slots))
	for _, s := range slots {
		known[s.ID] = true
	}
	return &Ledger{
		response: models.InviteeResponse{
			InviteeID:      inviteeID,
			PerSlotState:   make(map[models.SlotID]models.Disposition),
			CommuteMinutes: make(map[string]int),
			AdjustedStart:  make(map[models.SlotID]*models.TimePoint),
		},
		known: known,
	}
}

// LoadLedger rebuilds a ledger from a submitted response and rejects it if
// it breaks the ranking rules
func LoadLedger(resp models.InviteeResponse, slots []models.TimeSlot) (*Ledger, error) {
	l := NewLedger(resp.InviteeID, slots)

	for slot, d := range resp.PerSlotState {
		if err := l.SetDisposition(slot, d); err != nil {
			return nil, err
		}
	}

	seen := make(map[models.SlotID]bool)
	for pos, slot := range resp.Rankings {
		if slot == "" {
			continue
		}
		if !l.known[slot] {
			return nil, fmt.Errorf("rank %d: %w: %s", pos+1, ErrUnknownSlot, slot)
		}
		if seen[slot] {
			return nil, fmt.Errorf("rank %d: slot %s ranked twice", pos+1, slot)
		}
		if !l.response.PerSlotState[slot].Rankable() {
			return nil, fmt.Errorf("rank %d: %w: %s", pos+1, ErrNotRankable, slot)
		}
		seen[slot] = true
		l.response.Rankings[pos] = slot
	}

	for name, minutes := range resp.CommuteMinutes {
		l.SetCommute(name, minutes)
	}
	for slot, start := range resp.AdjustedStart {
		if err := l.SetAdjustedStart(slot, start); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// SetDisposition records the invitee's answer for a slot. Anything other
// than works or proposed evicts the slot from the rankings.
func (l *Ledger) SetDisposition(slot models.SlotID, d models.Disposition) error {
	if err := l.writable(slot); err != nil {
		return err
	}

	switch d {
	case models.DispositionUnset:
		delete(l.response.PerSlotState, slot)
	case models.DispositionWorks, models.DispositionProposed, models.DispositionDoesntWork:
		l.response.PerSlotState[slot] = d
	default:
		return fmt.Errorf("unknown disposition %q", d)
	}

	if !d.Rankable() {
		l.evict(slot)
	}
	return nil
}

// ToggleRank ranks an unranked slot in the first free position, or removes
// a ranked slot leaving its position empty. It returns the 1-based rank the
// slot now holds, or 0 when it was removed.
func (l *Ledger) ToggleRank(slot models.SlotID) (int, error) {
	if err := l.writable(slot); err != nil {
		return 0, err
	}

	if pos := l.RankOf(slot); pos > 0 {
		l.response.Rankings[pos-1] = ""
		return 0, nil
	}

	if !l.response.PerSlotState[slot].Rankable() {
		return 0, ErrNotRankable
	}
	if l.RankedCount() >= l.RankCapacity() {
		return 0, ErrRankingFull
	}

	for i, s := range l.response.Rankings {
		if s == "" {
			l.response.Rankings[i] = slot
			return i + 1, nil
		}
	}
	return 0, ErrRankingFull
}

// RankOf returns the 1-based rank of a slot, or 0 when unranked
func (l *Ledger) RankOf(slot models.SlotID) int {
	for i, s := range l.response.Rankings {
		if s == slot {
			return i + 1
		}
	}
	return 0
}

// RankedCount returns the number of filled rank positions
func (l *Ledger) RankedCount() int {
	n := 0
	for _, s := range l.response.Rankings {
		if s != "" {
			n++
		}
	}
	return n
}

// RankCapacity is the smaller of MaxRanks and the number of rankable slots
func (l *Ledger) RankCapacity() int {
	eligible := 0
	for _, d := range l.response.PerSlotState {
		if d.Rankable() {
			eligible++
		}
	}
	return min(models.MaxRanks, eligible)
}

// SetCommute stores the invitee's commute to a location in minutes
func (l *Ledger) SetCommute(locationName string, minutes int) {
	if l.response.Finalized {
		return
	}
	if minutes < 0 {
		minutes = 0
	}
	l.response.CommuteMinutes[locationName] = minutes
}

// SetAdjustedStart stores the start the invitee dragged a slot to. A nil
// start clears it.
func (l *Ledger) SetAdjustedStart(slot models.SlotID, start *models.TimePoint) error {
	if err := l.writable(slot); err != nil {
		return err
	}
	if start == nil {
		delete(l.response.AdjustedStart, slot)
		return nil
	}
	v := *start
	l.response.AdjustedStart[slot] = &v
	return nil
}

// Finalize freezes the response and returns it
func (l *Ledger) Finalize(at time.Time) models.InviteeResponse {
	l.response.Finalized = true
	l.response.SubmittedAt = at
	return l.Response()
}

// Response returns a copy of the response as recorded so far
func (l *Ledger) Response() models.InviteeResponse {
	r := l.response
	r.PerSlotState = make(map[models.SlotID]models.Disposition, len(l.response.PerSlotState))
	for k, v := range l.response.PerSlotState {
		r.PerSlotState[k] = v
	}
	r.CommuteMinutes = make(map[string]int, len(l.response.CommuteMinutes))
	for k, v := range l.response.CommuteMinutes {
		r.CommuteMinutes[k] = v
	}
	r.AdjustedStart = make(map[models.SlotID]*models.TimePoint, len(l.response.AdjustedStart))
	for k, v := range l.response.AdjustedStart {
		start := *v
		r.AdjustedStart[k] = &start
	}
	return r
}

func (l *Ledger) writable(slot models.SlotID) error {
	if l.response.Finalized {
		return ErrResponseFinalized
	}
	if !l.known[slot] {
		return fmt.Errorf("%w: %s", ErrUnknownSlot, slot)
	}
	return nil
}

func (l *Ledger) evict(slot models.SlotID) {
	for i, s := range l.response.Rankings {
		if s == slot {
			l.response.Rankings[i] = ""
		}
	}
}
