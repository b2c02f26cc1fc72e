package models

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the layout of a DateKey
const DateLayout = "2006-01-02"

// TimePoint is a time of day in fractional hours, e.g. 13.5 is 1:30 PM
type TimePoint float64

// Clock formats the point as a 24-hour "HH:MM" string
func (t TimePoint) Clock() string {
	h, m := t.split()
	return fmt.Sprintf("%02d:%02d", h, m)
}

// Label formats the point as a 12-hour display string such as "1:30 PM"
func (t TimePoint) Label() string {
	h, m := t.split()
	suffix := "AM"
	if h >= 12 && h < 24 {
		suffix = "PM"
	}
	h12 := h % 12
	if h12 == 0 {
		h12 = 12
	}
	return fmt.Sprintf("%d:%02d %s", h12, m, suffix)
}

// OnMinute reports whether the point falls on a whole minute
func (t TimePoint) OnMinute() bool {
	m := float64(t) * 60
	return math.Abs(m-math.Round(m)) < 1e-6
}

func (t TimePoint) split() (int, int) {
	total := int(math.Round(float64(t) * 60))
	return total / 60, total % 60
}

// ParseClock parses an "HH:MM" string into a TimePoint
func ParseClock(s string) (TimePoint, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 24 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 || (h == 24 && m != 0) {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	return TimePoint(float64(h) + float64(m)/60), nil
}

// DateKey is a calendar date in YYYY-MM-DD form
type DateKey string

// Time parses the date key as midnight UTC
func (d DateKey) Time() (time.Time, error) {
	return time.Parse(DateLayout, string(d))
}

// At returns the instant at time of day t on this date in loc
func (d DateKey) At(t TimePoint, loc *time.Location) (time.Time, error) {
	day, err := time.ParseInLocation(DateLayout, string(d), loc)
	if err != nil {
		return time.Time{}, err
	}
	return day.Add(time.Duration(math.Round(float64(t)*60)) * time.Minute), nil
}

// Window is a usable range within a single day
type Window struct {
	Start TimePoint `json:"start" validate:"gte=0,lt=24,minute"`
	End   TimePoint `json:"end" validate:"gt=0,lte=24,gtfield=Start,minute"`
}

// Span returns the window length in hours
func (w Window) Span() float64 {
	return float64(w.End - w.Start)
}

// Valid reports whether the window is a non-empty range within one day
// whose bounds fall on whole minutes
func (w Window) Valid() bool {
	return w.Start >= 0 && w.End <= 24 && w.Start < w.End && w.Start.OnMinute() && w.End.OnMinute()
}

// BusyInterval is a labelled range during which a resource is unavailable
type BusyInterval struct {
	Start TimePoint `json:"start"`
	End   TimePoint `json:"end"`
	Label string    `json:"label,omitempty"`
}

// Gap is a contiguous free range of a window
type Gap struct {
	Start TimePoint `json:"start"`
	End   TimePoint `json:"end"`
}

// Length returns the gap length in hours
func (g Gap) Length() float64 {
	return float64(g.End - g.Start)
}

// Segment is one entry of a window itemization, free or busy
type Segment struct {
	Start TimePoint `json:"start"`
	End   TimePoint `json:"end"`
	Free  bool      `json:"free"`
	Label string    `json:"label"`
}

// MatchLevel summarizes how well a duration fits into a window
type MatchLevel string

const (
	MatchGreen MatchLevel = "green"
	MatchAmber MatchLevel = "amber"
	MatchRed   MatchLevel = "red"
)

// AvailabilitySet is a block of candidate dates sharing one time window
type AvailabilitySet struct {
	ID     string    `json:"id"`
	Dates  []DateKey `json:"dates" validate:"required,min=1,unique,dive,datetime=2006-01-02"`
	Window Window    `json:"window" validate:"required"`
}

// Location is a bookable venue
type Location struct {
	ID       string `json:"id" validate:"required"`
	Name     string `json:"name" validate:"required"`
	Address  string `json:"address,omitempty"`
	Capacity int    `json:"capacity" validate:"gt=0"`
}

// RecurringBusy is a busy interval repeating on a weekday
type RecurringBusy struct {
	Weekday time.Weekday `json:"weekday"`
	BusyInterval
}

// DatedBusy is a one-off busy interval on an absolute date, or on a day
// offset from the schedule anchor when Date is empty
type DatedBusy struct {
	Date       DateKey `json:"date,omitempty"`
	OffsetDays *int    `json:"offset_days,omitempty"`
	BusyInterval
}

// LocationSchedule holds the recurring and one-off busy intervals of a location
type LocationSchedule struct {
	LocationID string          `json:"location_id"`
	Anchor     DateKey         `json:"anchor,omitempty"`
	Recurring  []RecurringBusy `json:"recurring,omitempty"`
	OneOff     []DatedBusy     `json:"one_off,omitempty"`
}

// DateLevel is the match level of one candidate date
type DateLevel struct {
	Date   DateKey    `json:"date"`
	Window Window     `json:"window"`
	Level  MatchLevel `json:"level"`
}

// LocationAvailability aggregates per-date match levels for a location
type LocationAvailability struct {
	LocationID string      `json:"location_id"`
	Level      MatchLevel  `json:"level"`
	PerDate    []DateLevel `json:"per_date"`
}

// Format is the meeting format of a gathering
type Format string

const (
	FormatInPerson Format = "in_person"
	FormatVirtual  Format = "virtual"
)

// SlotID identifies a date and time window, "2025-03-14T09:00-17:00"
type SlotID string

// TimeSlot is a distinct date and window with the locations sharing it
type TimeSlot struct {
	ID        SlotID     `json:"id"`
	Date      DateKey    `json:"date"`
	Window    Window     `json:"window"`
	Locations []Location `json:"locations"`
}

// CandidateOption is one concrete bookable date, window and location
type CandidateOption struct {
	ID       string     `json:"id"`
	SlotID   SlotID     `json:"slot_id"`
	Date     DateKey    `json:"date"`
	Window   Window     `json:"window"`
	Location *Location  `json:"location,omitempty"`
	Level    MatchLevel `json:"level,omitempty"`
}

// CandidateSlot is one fixed-length start time carved from a window
type CandidateSlot struct {
	Start TimePoint `json:"start"`
	End   TimePoint `json:"end"`
}

// Bounds is the allowed range for a meeting start inside a window
type Bounds struct {
	MinStart TimePoint `json:"min_start"`
	MaxStart TimePoint `json:"max_start"`
}

// Disposition is an invitee's answer for a time slot
type Disposition string

const (
	DispositionUnset      Disposition = ""
	DispositionWorks      Disposition = "works"
	DispositionProposed   Disposition = "proposed"
	DispositionDoesntWork Disposition = "doesnt-work"
)

// Rankable reports whether a slot with this disposition may be ranked
func (d Disposition) Rankable() bool {
	return d == DispositionWorks || d == DispositionProposed
}

// MaxRanks is the number of ranking positions per invitee
const MaxRanks = 3

// InviteeResponse is one invitee's input for a gathering
type InviteeResponse struct {
	InviteeID      string                 `json:"invitee_id"`
	PerSlotState   map[SlotID]Disposition `json:"per_slot_state"`
	Rankings       [MaxRanks]SlotID       `json:"rankings"`
	CommuteMinutes map[string]int         `json:"commute_minutes,omitempty"`
	AdjustedStart  map[SlotID]*TimePoint  `json:"adjusted_start,omitempty"`
	Finalized      bool                   `json:"finalized"`
	SubmittedAt    time.Time              `json:"submitted_at,omitempty"`
}

// Status is the lifecycle state of a gathering
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
	StatusConfirmed Status = "confirmed"
)

// TieBreak selects how equal first-choice counts at quorum are resolved
type TieBreak string

const (
	TieBreakEarliest TieBreak = "earliest"
	TieBreakStrict   TieBreak = "strict"
)

// Gathering holds the thresholds and lifecycle state of a planned meeting
type Gathering struct {
	ID               string            `json:"id"`
	Title            string            `json:"title"`
	Slug             string            `json:"slug"`
	DurationMinutes  int               `json:"duration_minutes"`
	Quorum           int               `json:"quorum"`
	Capacity         int               `json:"capacity"`
	OverflowEnabled  bool              `json:"overflow_enabled"`
	Format           Format            `json:"format"`
	TieBreak         TieBreak          `json:"tie_break"`
	TimeZone         string            `json:"time_zone,omitempty"`
	Status           Status            `json:"status"`
	ConfirmedSlot    SlotID            `json:"confirmed_slot,omitempty"`
	AvailabilitySets []AvailabilitySet `json:"availability_sets"`
	Locations        []Location        `json:"locations,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	PublishedAt      *time.Time        `json:"published_at,omitempty"`
	ConfirmedAt      *time.Time        `json:"confirmed_at,omitempty"`
}

// DurationHours returns the meeting duration in hours
func (g *Gathering) DurationHours() float64 {
	return float64(g.DurationMinutes) / 60
}

// CapacityResult partitions attendees of a confirmed slot
type CapacityResult struct {
	Confirmed      []string `json:"confirmed"`
	Waitlisted     []string `json:"waitlisted"`
	NeedsOverflow  bool     `json:"needs_overflow"`
	CreateOverflow bool     `json:"create_overflow"`
}

// Decision is the result of evaluating a gathering's responses
type Decision struct {
	Status       Status          `json:"status"`
	FirstChoice  map[SlotID]int  `json:"first_choice"`
	Total        map[SlotID]int  `json:"total"`
	WinningSlot  SlotID          `json:"winning_slot,omitempty"`
	WinningCount int             `json:"winning_count,omitempty"`
	Ambiguous    []SlotID        `json:"ambiguous,omitempty"`
	Capacity     *CapacityResult `json:"capacity,omitempty"`
}
