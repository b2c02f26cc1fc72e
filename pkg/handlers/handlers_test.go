package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/arnavshah/quorum-scheduler-api/pkg/config"
	"github.com/arnavshah/quorum-scheduler-api/pkg/database"
	"github.com/arnavshah/quorum-scheduler-api/pkg/gatherings"
	"github.com/arnavshah/quorum-scheduler-api/pkg/models"
	"github.com/arnavshah/quorum-scheduler-api/pkg/overflow"
	"github.com/arnavshah/quorum-scheduler-api/pkg/scheduler"
)

type testServer struct {
	h      *Handler
	router *gin.Engine
	key    string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		JWTSecret:           "jwt-test",
		APIMasterSecret:     "master-test",
		MaxAvailabilitySets: scheduler.DefaultMaxAvailabilitySets,
		DefaultRateLimit:    database.DefaultRateLimit,
		RateLimitRPS:        1000,
		RateLimitBurst:      1000,
		PublicBaseURL:       "https://meet.example.com",
	}
	db, err := database.Open("", filepath.Join(t.TempDir(), "handlers.db"))
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := gatherings.NewRegistry(cfg.MaxAvailabilitySets, overflow.NewLogDispatcher(logger), logger)

	h := New(cfg, db, registry, logger)
	t.Cleanup(h.Close)

	r := gin.New()
	h.Routes(r)
	return &testServer{h: h, router: r, key: h.Auth.GenerateHMACKey("tester")}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) api(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	return s.do(t, method, path, s.key, body)
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

var morning = models.Window{Start: 9, End: 12}

func bookClubInput() models.GatheringInput {
	return models.GatheringInput{
		Title:           "Book club",
		DurationMinutes: 60,
		Quorum:          2,
		Capacity:        2,
		OverflowEnabled: true,
		AvailabilitySets: []models.AvailabilitySet{
			{Dates: []models.DateKey{"2025-03-10", "2025-03-11"}, Window: morning},
		},
		Locations: []models.Location{{ID: "loc-cafe", Name: "Corner Cafe", Capacity: 8}},
	}
}

func picks(invitee string, slot models.SlotID) models.ResponseInput {
	return models.ResponseInput{
		InviteeID:    invitee,
		PerSlotState: map[models.SlotID]models.Disposition{slot: models.DispositionWorks},
		Rankings:     [models.MaxRanks]models.SlotID{slot},
	}
}

func TestRoot(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/", "", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Quorum Scheduler API")
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))
}

func TestRequestID_ReusesValidHeader(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "3f2b8c1e-5d6a-4b7c-8e9f-0a1b2c3d4e5f")
	w := httptest.NewRecorder()

	s.router.ServeHTTP(w, req)

	assert.Equal(t, "3f2b8c1e-5d6a-4b7c-8e9f-0a1b2c3d4e5f", w.Header().Get(requestIDHeader))
}

func TestAPIKeyRequired(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/options", "", map[string]any{})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodPost, "/api/options", "tester.deadbeef", map[string]any{})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGaps(t *testing.T) {
	s := newTestServer(t)

	w := s.api(t, http.MethodPost, "/api/availability/gaps", models.GapsRequest{
		Busy:            []models.BusyInterval{{Start: 10, End: 11, Label: "Standup"}},
		Window:          morning,
		DurationMinutes: 60,
	})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decodeBody[models.GapsResponse](t, w)
	assert.Equal(t, models.MatchAmber, resp.Level)
	assert.Len(t, resp.Gaps, 2)
	require.Len(t, resp.Segments, 3)
	assert.Equal(t, "Standup", resp.Segments[1].Label)
}

func TestGaps_InvalidWindow(t *testing.T) {
	s := newTestServer(t)

	w := s.api(t, http.MethodPost, "/api/availability/gaps", models.GapsRequest{
		Window: models.Window{Start: 12, End: 9},
	})

	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeBody[map[string]any](t, w)
	assert.Contains(t, body["details"], "window.end")
}

func TestLocationAvailability(t *testing.T) {
	s := newTestServer(t)

	w := s.api(t, http.MethodPost, "/api/availability/locations", models.LocationsRequest{
		AvailabilitySets: bookClubInput().AvailabilitySets,
		Locations:        []models.Location{{ID: "loc-cafe", Name: "Cafe", Capacity: 8}, {ID: "loc-lib", Name: "Library", Capacity: 8}},
		Schedules: []models.LocationSchedule{{
			LocationID: "loc-lib",
			OneOff:     []models.DatedBusy{{Date: "2025-03-10", BusyInterval: models.BusyInterval{Start: 9, End: 12}}},
		}},
		DurationMinutes: 60,
	})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decodeBody[struct {
		Locations []models.LocationAvailability `json:"locations"`
	}](t, w)
	require.Len(t, body.Locations, 2)
	assert.Equal(t, models.MatchGreen, body.Locations[0].Level)
	assert.Equal(t, models.MatchAmber, body.Locations[1].Level)
}

func TestSlots(t *testing.T) {
	s := newTestServer(t)
	current := models.TimePoint(11.5)

	w := s.api(t, http.MethodPost, "/api/slots", models.SlotsRequest{
		Window:          morning,
		DurationMinutes: 60,
		CurrentStart:    &current,
	})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decodeBody[models.SlotsResponse](t, w)
	assert.False(t, resp.Infeasible)
	assert.Len(t, resp.Slots, 3)
	require.NotNil(t, resp.ClampedStart)
	assert.Equal(t, models.TimePoint(11), *resp.ClampedStart)
	assert.True(t, resp.Adjusted)
}

func TestSlots_UntouchedStartInsideCommuteBounds(t *testing.T) {
	s := newTestServer(t)
	current := models.TimePoint(10.25)

	w := s.api(t, http.MethodPost, "/api/slots", models.SlotsRequest{
		Window:          models.Window{Start: 9.25, End: 12.25},
		DurationMinutes: 60,
		CommuteMinutes:  60,
		ProtectCommute:  true,
		CurrentStart:    &current,
	})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decodeBody[models.SlotsResponse](t, w)
	assert.Equal(t, models.TimePoint(10.25), resp.DefaultStart)
	require.NotNil(t, resp.ClampedStart)
	assert.Equal(t, models.TimePoint(10.25), *resp.ClampedStart)
	assert.False(t, resp.Adjusted)
}

func TestSlots_InfeasibleCommute(t *testing.T) {
	s := newTestServer(t)

	w := s.api(t, http.MethodPost, "/api/slots", models.SlotsRequest{
		Window:          morning,
		DurationMinutes: 60,
		CommuteMinutes:  90,
		ProtectCommute:  true,
	})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decodeBody[models.SlotsResponse](t, w)
	assert.True(t, resp.Infeasible)
	assert.Equal(t, models.Bounds{MinStart: 9, MaxStart: 11}, resp.Bounds)
	assert.Len(t, resp.Slots, 3)
}

func TestOptions(t *testing.T) {
	s := newTestServer(t)
	in := bookClubInput()

	w := s.api(t, http.MethodPost, "/api/options", models.OptionsRequest{
		AvailabilitySets: in.AvailabilitySets,
		Locations:        append(in.Locations, models.Location{ID: "loc-tiny", Name: "Booth", Capacity: 1}),
		Capacity:         4,
		DurationMinutes:  60,
	})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decodeBody[models.OptionsResponse](t, w)
	assert.Len(t, resp.TimeSlots, 2)
	assert.Len(t, resp.ViableLocations, 1)
	assert.Equal(t, 2, resp.ViableCount)
	assert.Len(t, resp.Options, 2)
	assert.True(t, resp.Publishable)
}

func TestValidateInput(t *testing.T) {
	s := newTestServer(t)

	w := s.api(t, http.MethodPost, "/api/validate", bookClubInput())
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody[map[string]any](t, w)
	assert.Equal(t, true, body["valid"])
	assert.Equal(t, true, body["publishable"])

	bad := bookClubInput()
	bad.Quorum = 1
	w = s.api(t, http.MethodPost, "/api/validate", bad)
	require.Equal(t, http.StatusOK, w.Code)
	body = decodeBody[map[string]any](t, w)
	assert.Equal(t, false, body["valid"])
	assert.Contains(t, body["details"], "quorum")
}

func TestCreateGathering_Validation(t *testing.T) {
	s := newTestServer(t)
	in := bookClubInput()
	in.Capacity = 1

	w := s.api(t, http.MethodPost, "/api/gatherings", in)

	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeBody[map[string]any](t, w)
	assert.Contains(t, body["details"], "capacity")
}

func TestGathering_NotFound(t *testing.T) {
	s := newTestServer(t)

	w := s.api(t, http.MethodGet, "/api/gatherings/gth-missing", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGatheringLifecycle(t *testing.T) {
	s := newTestServer(t)
	monday := scheduler.NewSlotID("2025-03-10", morning)

	w := s.api(t, http.MethodPost, "/api/gatherings", bookClubInput())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	g := decodeBody[models.Gathering](t, w)
	base := "/api/gatherings/" + g.ID

	w = s.api(t, http.MethodPost, base+"/responses", picks("ana", monday))
	assert.Equal(t, http.StatusConflict, w.Code, "drafts take no responses")

	w = s.api(t, http.MethodGet, base+"/calendar.ics", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.api(t, http.MethodPost, base+"/publish", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.api(t, http.MethodPut, base+"/quorum", map[string]int{"quorum": 3})
	assert.Equal(t, http.StatusConflict, w.Code)

	for _, name := range []string{"ana", "ben", "cam"} {
		w = s.api(t, http.MethodPost, base+"/responses", picks(name, monday))
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	w = s.api(t, http.MethodPost, base+"/responses", picks("ana", monday))
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.api(t, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, w.Code)
	view := decodeBody[models.GatheringView](t, w)
	assert.Equal(t, models.StatusConfirmed, view.Gathering.Status)
	assert.Equal(t, monday, view.Gathering.ConfirmedSlot)
	assert.Equal(t, 3, view.Progress[monday].Count)
	assert.Equal(t, "https://meet.example.com"+base, view.ShareURL)

	w = s.api(t, http.MethodGet, base+"/results", nil)
	require.Equal(t, http.StatusOK, w.Code)
	res := decodeBody[models.ResultsResponse](t, w)
	require.NotNil(t, res.Decision.Capacity)
	assert.Equal(t, []string{"ana", "ben"}, res.Decision.Capacity.Confirmed)
	assert.Equal(t, []string{"cam"}, res.Decision.Capacity.Waitlisted)
	assert.True(t, res.Decision.Capacity.CreateOverflow)

	w = s.api(t, http.MethodGet, base+"/results/csv", nil)
	require.Equal(t, http.StatusOK, w.Code)
	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "invitee_id,status,position,slot_id", lines[0])
	assert.Equal(t, "cam,waitlisted,1,"+string(monday), lines[3])

	w = s.api(t, http.MethodGet, base+"/calendar.ics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/calendar")
	assert.Contains(t, w.Body.String(), "BEGIN:VEVENT")
	assert.Contains(t, w.Body.String(), "SUMMARY:Book club")

	w = s.api(t, http.MethodGet, "/api/usage", nil)
	require.Equal(t, http.StatusOK, w.Code)
	usage := decodeBody[struct {
		Totals map[string]int64 `json:"totals"`
	}](t, w)
	assert.EqualValues(t, 1, usage.Totals["gatherings"])
	assert.EqualValues(t, 3, usage.Totals["responses"])
}

func TestDailyQuota(t *testing.T) {
	s := newTestServer(t)

	w := s.api(t, http.MethodGet, "/api/usage", nil)
	require.Equal(t, http.StatusOK, w.Code)

	require.NoError(t, s.h.DB.Model(&database.APIKey{}).Where("name = ?", "tester").Update("rate_limit", 1).Error)

	w = s.api(t, http.MethodPost, "/api/availability/gaps", models.GapsRequest{Window: morning})
	require.Equal(t, http.StatusOK, w.Code)

	w = s.api(t, http.MethodPost, "/api/availability/gaps", models.GapsRequest{Window: morning})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestAdminKeys(t *testing.T) {
	s := newTestServer(t)
	hash, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, s.h.DB.Create(&database.MasterUser{Username: "admin", PasswordHash: string(hash)}).Error)

	w := s.do(t, http.MethodPost, "/admin/login", "", map[string]string{"username": "admin", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodPost, "/admin/login", "", map[string]string{"username": "admin", "password": "pw"})
	require.Equal(t, http.StatusOK, w.Code)
	token := decodeBody[map[string]string](t, w)["access_token"]

	w = s.do(t, http.MethodGet, "/admin/keys", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodPost, "/admin/keys", token, map[string]any{"name": "partner"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	created := decodeBody[map[string]any](t, w)
	key := created["key"].(string)

	name, err := s.h.Auth.VerifyHMACKey(key)
	require.NoError(t, err)
	assert.Equal(t, "partner", name)

	w = s.do(t, http.MethodGet, "/admin/keys", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), key)
	assert.Contains(t, w.Body.String(), `"key_preview"`)

	w = s.do(t, http.MethodPut, "/admin/keys/999", token, map[string]int{"rate_limit": 5})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodDelete, "/admin/keys/abc", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminInterface(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/admin", "", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Quorum Scheduler Admin")
}
