package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arnavshah/quorum-scheduler-api/pkg/models"
)

var (
	library = models.Location{ID: "loc-lib", Name: "Library Room", Capacity: 30}
	hall    = models.Location{ID: "loc-hall", Name: "Community Hall", Capacity: 80}
)

func planningSets() []models.AvailabilitySet {
	return []models.AvailabilitySet{
		{ID: "set-1", Dates: []models.DateKey{"2025-03-14", "2025-03-10"}, Window: models.Window{Start: 9, End: 12}},
		{ID: "set-2", Dates: []models.DateKey{"2025-03-10"}, Window: models.Window{Start: 18, End: 21}},
	}
}

func TestNewSlotID(t *testing.T) {
	id := NewSlotID("2025-03-14", models.Window{Start: 9, End: 13.5})
	assert.Equal(t, models.SlotID("2025-03-14T09:00-13:30"), id)
}

func TestDeriveTimeSlots(t *testing.T) {
	slots := DeriveTimeSlots(planningSets(), []models.Location{library, hall}, models.FormatInPerson)

	require.Len(t, slots, 3)
	assert.Equal(t, models.SlotID("2025-03-10T09:00-12:00"), slots[0].ID)
	assert.Equal(t, models.SlotID("2025-03-10T18:00-21:00"), slots[1].ID)
	assert.Equal(t, models.SlotID("2025-03-14T09:00-12:00"), slots[2].ID)
	for _, s := range slots {
		assert.Len(t, s.Locations, 2)
	}
}

func TestDeriveTimeSlots_DuplicatePairsShareOneSlot(t *testing.T) {
	sets := []models.AvailabilitySet{
		{ID: "a", Dates: []models.DateKey{"2025-03-10"}, Window: models.Window{Start: 9, End: 12}},
		{ID: "b", Dates: []models.DateKey{"2025-03-10"}, Window: models.Window{Start: 9, End: 12}},
	}

	slots := DeriveTimeSlots(sets, []models.Location{library}, models.FormatInPerson)

	require.Len(t, slots, 1)
}

func TestTotalDates_CountsDistinctPairs(t *testing.T) {
	sets := []models.AvailabilitySet{
		{ID: "a", Dates: []models.DateKey{"2025-03-14", "2025-03-14"}, Window: models.Window{Start: 9, End: 17}},
		{ID: "b", Dates: []models.DateKey{"2025-03-14"}, Window: models.Window{Start: 9, End: 17}},
		{ID: "c", Dates: []models.DateKey{"2025-03-14"}, Window: models.Window{Start: 18, End: 20}},
	}
	room := models.Location{ID: "loc-room", Name: "Room", Capacity: 20}

	slots := DeriveTimeSlots(sets, []models.Location{room}, models.FormatInPerson)
	options := CandidateOptions(slots, 10, models.FormatInPerson, nil, 1)

	assert.Equal(t, 2, TotalDates(sets))
	require.Len(t, slots, 2)
	assert.Len(t, options, CountViableOptions(TotalDates(sets), 1, models.FormatInPerson))
	assert.Len(t, CandidateOptions(slots, 10, models.FormatVirtual, nil, 1), CountViableOptions(TotalDates(sets), 0, models.FormatVirtual))
}

func TestDeriveTimeSlots_Virtual(t *testing.T) {
	slots := DeriveTimeSlots(planningSets(), []models.Location{library, hall}, models.FormatVirtual)

	require.Len(t, slots, 3)
	for _, s := range slots {
		assert.Empty(t, s.Locations)
	}
}

func TestViableLocations_ExcludesSmallRooms(t *testing.T) {
	viable := ViableLocations([]models.Location{library, hall}, 40)

	require.Len(t, viable, 1)
	assert.Equal(t, "loc-hall", viable[0].ID)
}

func TestCountViableOptions(t *testing.T) {
	tests := []struct {
		name     string
		dates    int
		viable   int
		format   models.Format
		expected int
	}{
		{name: "in person cross product", dates: 3, viable: 2, format: models.FormatInPerson, expected: 6},
		{name: "in person without viable location", dates: 3, viable: 0, format: models.FormatInPerson, expected: 0},
		{name: "virtual ignores locations", dates: 3, viable: 0, format: models.FormatVirtual, expected: 3},
		{name: "virtual without dates", dates: 0, viable: 4, format: models.FormatVirtual, expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CountViableOptions(tt.dates, tt.viable, tt.format))
		})
	}
}

func TestCandidateOptions(t *testing.T) {
	sets := planningSets()
	slots := DeriveTimeSlots(sets, []models.Location{library, hall}, models.FormatInPerson)
	resolver := NewResolver([]models.LocationSchedule{{
		LocationID: hall.ID,
		OneOff: []models.DatedBusy{
			{Date: "2025-03-14", BusyInterval: models.BusyInterval{Start: 9, End: 12, Label: "Yoga"}},
		},
	}})

	options := CandidateOptions(slots, 40, models.FormatInPerson, resolver, 1)

	require.Len(t, options, CountViableOptions(TotalDates(sets), 1, models.FormatInPerson))
	for _, o := range options {
		require.NotNil(t, o.Location)
		assert.Equal(t, hall.ID, o.Location.ID)
	}
	assert.Equal(t, "2025-03-14T09:00-12:00@loc-hall", options[2].ID)
	assert.Equal(t, models.MatchRed, options[2].Level)
	assert.Equal(t, models.MatchGreen, options[0].Level)
}

func TestCandidateOptions_Virtual(t *testing.T) {
	slots := DeriveTimeSlots(planningSets(), nil, models.FormatVirtual)

	options := CandidateOptions(slots, 100, models.FormatVirtual, nil, 1)

	require.Len(t, options, 3)
	assert.Nil(t, options[0].Location)
}
