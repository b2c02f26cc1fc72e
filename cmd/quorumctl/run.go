package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/arnavshah/quorum-scheduler-api/pkg/gatherings"
	"github.com/arnavshah/quorum-scheduler-api/pkg/models"
	"github.com/arnavshah/quorum-scheduler-api/pkg/overflow"
	"github.com/arnavshah/quorum-scheduler-api/pkg/scheduler"
	"github.com/arnavshah/quorum-scheduler-api/pkg/validation"
)

// replayFile is the input of the evaluate command
type replayFile struct {
	Gathering models.GatheringInput  `json:"gathering"`
	Responses []models.ResponseInput `json:"responses"`
}

// replayStep is the decision after one replayed response
type replayStep struct {
	InviteeID string          `json:"invitee_id"`
	Status    models.Status   `json:"status"`
	Leading   models.SlotID   `json:"winning_slot,omitempty"`
	Ambiguous []models.SlotID `json:"ambiguous,omitempty"`
	Error     string          `json:"error,omitempty"`
}

type replayResult struct {
	Gathering models.Gathering `json:"gathering"`
	Steps     []replayStep     `json:"steps"`
	Decision  models.Decision  `json:"decision"`
	Error     string           `json:"error,omitempty"`
}

func runOptions(r io.Reader, w io.Writer) error {
	var in models.OptionsRequest
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		return fmt.Errorf("decode plan: %w", err)
	}
	if err := validation.New().Validate(&in); err != nil {
		return err
	}
	if in.Format == "" {
		in.Format = models.FormatInPerson
	}

	slots := scheduler.DeriveTimeSlots(in.AvailabilitySets, in.Locations, in.Format)
	viable := scheduler.ViableLocations(in.Locations, in.Capacity)
	count := scheduler.CountViableOptions(scheduler.TotalDates(in.AvailabilitySets), len(viable), in.Format)

	return writeJSON(w, models.OptionsResponse{
		TimeSlots:       slots,
		ViableLocations: viable,
		Options:         scheduler.CandidateOptions(slots, in.Capacity, in.Format, scheduler.NewResolver(in.Schedules), float64(in.DurationMinutes)/60),
		ViableCount:     count,
		Publishable:     count > 0,
	})
}

func runEvaluate(ctx context.Context, r io.Reader, w io.Writer, logger *slog.Logger) error {
	var in replayFile
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		return fmt.Errorf("decode gathering: %w", err)
	}
	v := validation.New()
	if err := v.Validate(&in.Gathering); err != nil {
		return err
	}

	registry := gatherings.NewRegistry(scheduler.DefaultMaxAvailabilitySets, overflow.NewLogDispatcher(logger), logger)
	g, err := registry.Create(in.Gathering)
	if err != nil {
		return err
	}
	if _, err := registry.Publish(g.ID); err != nil {
		return err
	}

	result := replayResult{Steps: make([]replayStep, 0, len(in.Responses))}
	for _, resp := range in.Responses {
		step := replayStep{InviteeID: resp.InviteeID}
		if err := v.Validate(&resp); err != nil {
			step.Error = err.Error()
			result.Steps = append(result.Steps, step)
			continue
		}
		decision, err := registry.Submit(ctx, g.ID, resp)
		if err != nil {
			step.Error = err.Error()
		}
		step.Status = decision.Status
		step.Leading = decision.WinningSlot
		step.Ambiguous = decision.Ambiguous
		result.Steps = append(result.Steps, step)
	}

	res, err := registry.Results(g.ID)
	if err != nil {
		return err
	}
	view, err := registry.Get(g.ID)
	if err != nil {
		return err
	}
	result.Gathering = view.Gathering
	result.Decision = res.Decision
	result.Error = res.Error
	return writeJSON(w, result)
}
