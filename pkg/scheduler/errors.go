package scheduler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/arnavshah/quorum-scheduler-api/pkg/models"
)

// Engine error kinds. All of them are recoverable.
var (
	ErrInfeasibleWindow        = errors.New("commute buffers leave no valid start in window")
	ErrAmbiguousQuorum         = errors.New("several slots tie for the winning count")
	ErrInvalidDuration         = errors.New("duration must be positive")
	ErrQuorumTooLow            = errors.New("quorum must be at least 2")
	ErrCapacityBelowQuorum     = errors.New("capacity must be at least quorum")
	ErrNoViableOptions         = errors.New("gathering has no viable options")
	ErrNoAvailabilitySets      = errors.New("at least one availability set is required")
	ErrTooManyAvailabilitySets = errors.New("too many availability sets")
	ErrInvalidWindow           = errors.New("window start must be before end within one day on whole minutes")
	ErrNotRankable             = errors.New("slot must be marked works or proposed before ranking")
	ErrRankingFull             = errors.New("no ranking position left")
	ErrUnknownSlot             = errors.New("unknown slot")
	ErrResponseFinalized       = errors.New("response already submitted")
	ErrInvalidTransition       = errors.New("invalid gathering state transition")
)

// InfeasibleWindowError carries the collapsed bounds of a window
type InfeasibleWindowError struct {
	Window models.Window
	Bounds models.Bounds
}

func (e *InfeasibleWindowError) Error() string {
	return fmt.Sprintf("%v: min start %s is after max start %s in %s-%s",
		ErrInfeasibleWindow, e.Bounds.MinStart.Clock(), e.Bounds.MaxStart.Clock(),
		e.Window.Start.Clock(), e.Window.End.Clock())
}

func (e *InfeasibleWindowError) Unwrap() error {
	return ErrInfeasibleWindow
}

// AmbiguousQuorumError lists the slots sharing the highest count at quorum
type AmbiguousQuorumError struct {
	Slots []models.SlotID
	Count int
}

func (e *AmbiguousQuorumError) Error() string {
	ids := make([]string, len(e.Slots))
	for i, s := range e.Slots {
		ids[i] = string(s)
	}
	return fmt.Sprintf("%v: %s at %d", ErrAmbiguousQuorum, strings.Join(ids, ", "), e.Count)
}

func (e *AmbiguousQuorumError) Unwrap() error {
	return ErrAmbiguousQuorum
}
