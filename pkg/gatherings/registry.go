// Package gatherings keeps the live gatherings of one process and applies
// submissions to them one at a time.
package gatherings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gosimple/slug"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/arnavshah/quorum-scheduler-api/pkg/models"
	"github.com/arnavshah/quorum-scheduler-api/pkg/overflow"
	"github.com/arnavshah/quorum-scheduler-api/pkg/scheduler"
)

const idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

var (
	ErrGatheringNotFound = errors.New("gathering not found")
	ErrAlreadySubmitted  = errors.New("invitee already submitted a response")
	ErrNotPublished      = errors.New("gathering is not accepting responses")
)

type entry struct {
	mu           sync.Mutex
	gathering    models.Gathering
	schedules    []models.LocationSchedule
	responses    []models.InviteeResponse
	submitted    map[string]bool
	overflowSent bool
}

// Registry holds gatherings in memory. Each gathering has its own lock so
// submissions to it are evaluated against a consistent response set.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry

	maxSets    int
	dispatcher overflow.Dispatcher
	logger     *slog.Logger
	now        func() time.Time
}

// NewRegistry creates an empty registry
func NewRegistry(maxSets int, dispatcher overflow.Dispatcher, logger *slog.Logger) *Registry {
	if maxSets <= 0 {
		maxSets = scheduler.DefaultMaxAvailabilitySets
	}
	return &Registry{
		entries:    make(map[string]*entry),
		maxSets:    maxSets,
		dispatcher: dispatcher,
		logger:     logger,
		now:        time.Now,
	}
}

// Create stores a new draft gathering
func (r *Registry) Create(in models.GatheringInput) (models.Gathering, error) {
	suffix, err := gonanoid.Generate(idAlphabet, 10)
	if err != nil {
		return models.Gathering{}, fmt.Errorf("generate gathering id: %w", err)
	}

	g := models.Gathering{
		ID:               "gth-" + suffix,
		Title:            strings.TrimSpace(in.Title),
		DurationMinutes:  in.DurationMinutes,
		Quorum:           in.Quorum,
		Capacity:         in.Capacity,
		OverflowEnabled:  in.OverflowEnabled,
		Format:           in.Format,
		TieBreak:         in.TieBreak,
		TimeZone:         in.TimeZone,
		Status:           models.StatusDraft,
		AvailabilitySets: append([]models.AvailabilitySet(nil), in.AvailabilitySets...),
		Locations:        append([]models.Location(nil), in.Locations...),
		CreatedAt:        r.now().UTC(),
	}
	if g.Format == "" {
		g.Format = models.FormatInPerson
	}
	if g.TieBreak == "" {
		g.TieBreak = models.TieBreakEarliest
	}
	if g.TimeZone == "" {
		g.TimeZone = "UTC"
	}
	for i := range g.AvailabilitySets {
		if g.AvailabilitySets[i].ID == "" {
			g.AvailabilitySets[i].ID = fmt.Sprintf("set-%d", i+1)
		}
	}
	if s := slug.Make(g.Title); s != "" {
		g.Slug = s + "-" + suffix
	} else {
		g.Slug = suffix
	}

	if err := scheduler.ValidateDraft(&g, r.maxSets); err != nil {
		return models.Gathering{}, err
	}

	r.mu.Lock()
	r.entries[g.ID] = &entry{
		gathering: g,
		schedules: in.Schedules,
		submitted: make(map[string]bool),
	}
	r.mu.Unlock()

	r.logger.Info("gathering created", "gathering_id", g.ID, "title", g.Title, "quorum", g.Quorum, "capacity", g.Capacity)
	return g, nil
}

func (r *Registry) lookup(id string) (*entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrGatheringNotFound, id)
	}
	return e, nil
}

// Len returns the number of gatherings held
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// SetQuorum changes a draft's quorum, raising capacity to match
func (r *Registry) SetQuorum(id string, quorum int) (models.Gathering, error) {
	e, err := r.lookup(id)
	if err != nil {
		return models.Gathering{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.gathering.Status != models.StatusDraft {
		return models.Gathering{}, fmt.Errorf("%w: quorum is fixed once published", scheduler.ErrInvalidTransition)
	}
	g := e.gathering
	scheduler.SetQuorum(&g, quorum)
	if err := scheduler.ValidateThresholds(&g); err != nil {
		return models.Gathering{}, err
	}
	e.gathering = g
	return g, nil
}

// Publish opens a draft for responses
func (r *Registry) Publish(id string) (models.Gathering, error) {
	e, err := r.lookup(id)
	if err != nil {
		return models.Gathering{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := scheduler.Publish(&e.gathering, r.maxSets, r.now().UTC()); err != nil {
		return models.Gathering{}, err
	}
	r.logger.Info("gathering published",
		"gathering_id", id,
		"viable_options", scheduler.ViableOptionCount(&e.gathering))
	return e.gathering, nil
}

// Get returns the gathering with its slots, options and quorum progress
func (r *Registry) Get(id string) (models.GatheringView, error) {
	e, err := r.lookup(id)
	if err != nil {
		return models.GatheringView{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	s := scheduler.NewScheduler(&e.gathering, e.schedules)
	slots := s.TimeSlots()
	tally := scheduler.FirstChoiceTally(e.responses)

	progress := make(map[models.SlotID]models.QuorumProgress, len(slots))
	for _, slot := range slots {
		progress[slot.ID] = models.QuorumProgress{Count: tally[slot.ID], Quorum: e.gathering.Quorum}
	}

	return models.GatheringView{
		Gathering:     e.gathering,
		TimeSlots:     slots,
		Options:       s.Options(),
		Progress:      progress,
		ResponseCount: len(e.responses),
	}, nil
}

// Submit records an invitee's response and re-evaluates the gathering.
// The first evaluation that reaches quorum confirms it. An ambiguous tally
// does not reject the response; the returned decision lists the tied slots.
func (r *Registry) Submit(ctx context.Context, id string, in models.ResponseInput) (models.Decision, error) {
	e, err := r.lookup(id)
	if err != nil {
		return models.Decision{}, err
	}

	e.mu.Lock()
	decision, req, err := r.submitLocked(e, in)
	e.mu.Unlock()
	if err != nil {
		return decision, err
	}

	if req != nil {
		r.dispatchOverflow(ctx, e, *req)
	}
	return decision, nil
}

func (r *Registry) submitLocked(e *entry, in models.ResponseInput) (models.Decision, *overflow.Request, error) {
	g := &e.gathering
	if g.Status == models.StatusDraft {
		return models.Decision{}, nil, fmt.Errorf("%w: %s is a draft", ErrNotPublished, g.ID)
	}
	if e.submitted[in.InviteeID] {
		return models.Decision{}, nil, fmt.Errorf("%w: %s", ErrAlreadySubmitted, in.InviteeID)
	}

	ledger, err := scheduler.LoadLedger(models.InviteeResponse{
		InviteeID:      in.InviteeID,
		PerSlotState:   in.PerSlotState,
		Rankings:       in.Rankings,
		CommuteMinutes: in.CommuteMinutes,
		AdjustedStart:  in.AdjustedStart,
	}, scheduler.TimeSlots(g))
	if err != nil {
		return models.Decision{}, nil, err
	}

	now := r.now().UTC()
	e.responses = append(e.responses, ledger.Finalize(now))
	e.submitted[in.InviteeID] = true
	r.logger.Info("response submitted", "gathering_id", g.ID, "invitee_id", in.InviteeID, "responses", len(e.responses))

	decision, err := scheduler.Evaluate(g, e.responses)
	if err != nil {
		if errors.Is(err, scheduler.ErrAmbiguousQuorum) {
			r.logger.Warn("quorum reached by several slots", "gathering_id", g.ID, "slots", decision.Ambiguous)
			return decision, nil, nil
		}
		return decision, nil, err
	}

	if decision.Status == models.StatusConfirmed && g.Status == models.StatusPublished {
		if err := scheduler.Confirm(g, decision.WinningSlot, now); err != nil {
			return decision, nil, err
		}
		r.logger.Info("gathering confirmed",
			"gathering_id", g.ID,
			"slot_id", decision.WinningSlot,
			"first_choice", decision.WinningCount)
	}

	if decision.Capacity == nil || !decision.Capacity.CreateOverflow || e.overflowSent {
		return decision, nil, nil
	}
	e.overflowSent = true
	req := overflow.NewRequest(g, *decision.Capacity, now)
	return decision, &req, nil
}

func (r *Registry) dispatchOverflow(ctx context.Context, e *entry, req overflow.Request) {
	if err := r.dispatcher.Dispatch(ctx, req); err != nil {
		r.logger.Error("overflow dispatch failed", "gathering_id", req.GatheringID, "error", err)
		e.mu.Lock()
		e.overflowSent = false
		e.mu.Unlock()
	}
}

// Results evaluates the current responses without changing the gathering
func (r *Registry) Results(id string) (models.ResultsResponse, error) {
	e, err := r.lookup(id)
	if err != nil {
		return models.ResultsResponse{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return resultsLocked(e)
}

// Roster returns the gathering together with its confirmed attendees, both
// read under one lock. Attendees are nil until a slot is confirmed.
func (r *Registry) Roster(id string) (models.Gathering, []string, error) {
	e, err := r.lookup(id)
	if err != nil {
		return models.Gathering{}, nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	res, err := resultsLocked(e)
	if err != nil {
		return models.Gathering{}, nil, err
	}
	var attendees []string
	if e.gathering.Status == models.StatusConfirmed && res.Decision.Capacity != nil {
		attendees = append(attendees, res.Decision.Capacity.Confirmed...)
	}
	return e.gathering, attendees, nil
}

func resultsLocked(e *entry) (models.ResultsResponse, error) {
	res := models.ResultsResponse{GatheringID: e.gathering.ID}
	decision, err := scheduler.Evaluate(&e.gathering, e.responses)
	res.Decision = decision
	if err != nil {
		if !errors.Is(err, scheduler.ErrAmbiguousQuorum) {
			return res, err
		}
		res.Error = err.Error()
	}
	return res, nil
}

// Responses returns the submitted responses in submission order
func (r *Registry) Responses(id string) ([]models.InviteeResponse, error) {
	e, err := r.lookup(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]models.InviteeResponse(nil), e.responses...), nil
}

// List returns all gatherings ordered by creation time
func (r *Registry) List() []models.Gathering {
	r.mu.RLock()
	entries := make([]*entry, 0, len(r.entries))
	for _, e := range r.entries {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	list := make([]models.Gathering, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		list = append(list, e.gathering)
		e.mu.Unlock()
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID < list[j].ID
		}
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
	return list
}
