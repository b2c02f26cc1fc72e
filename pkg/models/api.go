package models

// GapsRequest asks for the free gaps and match level of one window
type GapsRequest struct {
	Busy            []BusyInterval `json:"busy"`
	Window          Window         `json:"window"`
	DurationMinutes int            `json:"duration_minutes" validate:"gte=0"`
}

// GapsResponse is the data structure for the gaps endpoint
type GapsResponse struct {
	Gaps     []Gap      `json:"gaps"`
	Level    MatchLevel `json:"level"`
	Segments []Segment  `json:"segments"`
}

// LocationsRequest asks how available each location is across the candidate dates
type LocationsRequest struct {
	AvailabilitySets []AvailabilitySet  `json:"availability_sets" validate:"required,min=1,dive"`
	Locations        []Location         `json:"locations" validate:"required,min=1,dive"`
	Schedules        []LocationSchedule `json:"schedules"`
	DurationMinutes  int                `json:"duration_minutes" validate:"gt=0"`
}

// SlotsRequest asks for the start bounds and carved slots of a window for one invitee
type SlotsRequest struct {
	Window          Window     `json:"window"`
	DurationMinutes int        `json:"duration_minutes" validate:"gt=0"`
	CommuteMinutes  int        `json:"commute_minutes" validate:"gte=0"`
	ProtectCommute  bool       `json:"protect_commute"`
	CurrentStart    *TimePoint `json:"current_start,omitempty"`
}

// SlotsResponse is the data structure for the slots endpoint
type SlotsResponse struct {
	Bounds       Bounds          `json:"bounds"`
	Effective    Window          `json:"effective_window"`
	DefaultStart TimePoint       `json:"default_start"`
	Slots        []CandidateSlot `json:"slots"`
	Infeasible   bool            `json:"infeasible"`
	ClampedStart *TimePoint      `json:"clamped_start,omitempty"`
	Adjusted     bool            `json:"adjusted"`
}

// OptionsRequest asks for the options a draft gathering would offer
type OptionsRequest struct {
	AvailabilitySets []AvailabilitySet  `json:"availability_sets" validate:"required,min=1,dive"`
	Locations        []Location         `json:"locations" validate:"dive"`
	Schedules        []LocationSchedule `json:"schedules"`
	Capacity         int                `json:"capacity" validate:"gt=0"`
	Format           Format             `json:"format" validate:"omitempty,oneof=in_person virtual"`
	DurationMinutes  int                `json:"duration_minutes" validate:"gte=0"`
}

// OptionsResponse is the data structure for the options endpoint
type OptionsResponse struct {
	TimeSlots       []TimeSlot        `json:"time_slots"`
	ViableLocations []Location        `json:"viable_locations"`
	Options         []CandidateOption `json:"options"`
	ViableCount     int               `json:"viable_count"`
	Publishable     bool              `json:"publishable"`
}

// GatheringInput is the data structure for creating a gathering
type GatheringInput struct {
	Title            string             `json:"title" validate:"required,max=200"`
	DurationMinutes  int                `json:"duration_minutes" validate:"gt=0,lte=1440"`
	Quorum           int                `json:"quorum" validate:"gte=2"`
	Capacity         int                `json:"capacity" validate:"gtefield=Quorum"`
	OverflowEnabled  bool               `json:"overflow_enabled"`
	Format           Format             `json:"format" validate:"omitempty,oneof=in_person virtual"`
	TieBreak         TieBreak           `json:"tie_break" validate:"omitempty,oneof=earliest strict"`
	TimeZone         string             `json:"time_zone" validate:"omitempty,timezone"`
	AvailabilitySets []AvailabilitySet  `json:"availability_sets" validate:"required,min=1,dive"`
	Locations        []Location         `json:"locations" validate:"dive"`
	Schedules        []LocationSchedule `json:"schedules"`
}

// ResponseInput is the data structure for an invitee's submission
type ResponseInput struct {
	InviteeID      string                 `json:"invitee_id" validate:"required,max=128"`
	PerSlotState   map[SlotID]Disposition `json:"per_slot_state"`
	Rankings       [MaxRanks]SlotID       `json:"rankings"`
	CommuteMinutes map[string]int         `json:"commute_minutes"`
	AdjustedStart  map[SlotID]*TimePoint  `json:"adjusted_start"`
}

// QuorumProgress is a slot's first-choice count against the quorum
type QuorumProgress struct {
	Count  int `json:"count"`
	Quorum int `json:"quorum"`
}

// GatheringView is the data structure returned for a gathering
type GatheringView struct {
	Gathering     Gathering                 `json:"gathering"`
	TimeSlots     []TimeSlot                `json:"time_slots"`
	Options       []CandidateOption         `json:"options"`
	Progress      map[SlotID]QuorumProgress `json:"progress"`
	ResponseCount int                       `json:"response_count"`
	ShareURL      string                    `json:"share_url,omitempty"`
}

// ResultsResponse is the data structure for the results endpoint
type ResultsResponse struct {
	GatheringID string   `json:"gathering_id"`
	Decision    Decision `json:"decision"`
	Error       string   `json:"error,omitempty"`
}
