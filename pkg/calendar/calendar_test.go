package calendar

import (
	"bytes"
	"testing"
	"time"

	"github.com/emersion/go-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arnavshah/quorum-scheduler-api/pkg/models"
	"github.com/arnavshah/quorum-scheduler-api/pkg/scheduler"
)

var stamp = time.Date(2025, 3, 2, 8, 0, 0, 0, time.UTC)

func confirmed(tz string) *models.Gathering {
	window := models.Window{Start: 18.5, End: 21}
	return &models.Gathering{
		ID:              "gth-xyz",
		Title:           "Board games",
		DurationMinutes: 90,
		Quorum:          2,
		Capacity:        6,
		Format:          models.FormatInPerson,
		TimeZone:        tz,
		Status:          models.StatusConfirmed,
		ConfirmedSlot:   scheduler.NewSlotID("2025-03-14", window),
		AvailabilitySets: []models.AvailabilitySet{
			{Dates: []models.DateKey{"2025-03-14"}, Window: window},
		},
		Locations: []models.Location{
			{ID: "loc-small", Name: "Back room", Capacity: 4},
			{ID: "loc-big", Name: "Main hall", Address: "1 High St", Capacity: 40},
		},
	}
}

func decode(t *testing.T, g *models.Gathering, attendees []string) ical.Event {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, g, attendees, stamp))

	cal, err := ical.NewDecoder(&buf).Decode()
	require.NoError(t, err)
	events := cal.Events()
	require.Len(t, events, 1)
	return events[0]
}

func TestWrite_ConfirmedEvent(t *testing.T) {
	g := confirmed("")
	event := decode(t, g, []string{"ana", "ben"})

	uid, err := event.Props.Text(ical.PropUID)
	require.NoError(t, err)
	assert.Equal(t, "gth-xyz-2025-03-14T18:30-21:00", uid)

	summary, err := event.Props.Text(ical.PropSummary)
	require.NoError(t, err)
	assert.Equal(t, "Board games", summary)

	where, err := event.Props.Text(ical.PropLocation)
	require.NoError(t, err)
	assert.Equal(t, "Main hall, 1 High St", where)

	desc, err := event.Props.Text(ical.PropDescription)
	require.NoError(t, err)
	assert.Equal(t, "Attending: ana, ben", desc)

	start, err := event.DateTimeStart(time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 14, 19, 0, 0, 0, time.UTC), start.UTC())

	end, err := event.DateTimeEnd(time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 14, 20, 30, 0, 0, time.UTC), end.UTC())
}

func TestBuild_TimeZone(t *testing.T) {
	cal, err := Build(confirmed("America/New_York"), nil, stamp)
	require.NoError(t, err)

	start, err := cal.Events()[0].DateTimeStart(time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 14, 23, 0, 0, 0, time.UTC), start.UTC())
}

func TestBuild_StartsAtSuggestedStart(t *testing.T) {
	g := confirmed("")
	g.DurationMinutes = 150

	cal, err := Build(g, nil, stamp)
	require.NoError(t, err)

	start, err := cal.Events()[0].DateTimeStart(time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 14, 18, 30, 0, 0, time.UTC), start.UTC())

	g.DurationMinutes = 60
	cal, err = Build(g, nil, stamp)
	require.NoError(t, err)

	start, err = cal.Events()[0].DateTimeStart(time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 14, 19, 30, 0, 0, time.UTC), start.UTC())
}

func TestBuild_VirtualHasNoLocation(t *testing.T) {
	g := confirmed("")
	g.Format = models.FormatVirtual

	cal, err := Build(g, nil, stamp)
	require.NoError(t, err)
	assert.Nil(t, cal.Events()[0].Props.Get(ical.PropLocation))
}

func TestBuild_NotConfirmed(t *testing.T) {
	g := confirmed("")
	g.Status = models.StatusPublished
	g.ConfirmedSlot = ""

	_, err := Build(g, nil, stamp)
	assert.ErrorIs(t, err, ErrNotConfirmed)
}
