package slot

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/booking-api/internal/config"
	"github.com/jwalitptl/booking-api/internal/middleware"
	"github.com/jwalitptl/booking-api/internal/model"
	"github.com/jwalitptl/booking-api/internal/repository/memory"
	"github.com/jwalitptl/booking-api/internal/service/slot"
	"github.com/jwalitptl/booking-api/pkg/metrics"
)

var monday = time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC)

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	middleware.UseSharedValidator()

	providers := memory.NewProviderRepository(
		model.Provider{ID: "1", Name: "Dr. Sarah Johnson", StartHour: 8, EndHour: 17},
	)
	svc := slot.NewService(slot.NewSeededEngine(7), providers, memory.NewSlotRepository(), nil, metrics.New("test"), slot.Config{
		DefaultHorizonDays: 3,
		MaxHorizonDays:     30,
		Clock:              slot.ClockFunc(func() time.Time { return monday }),
	})

	enforcer, err := middleware.NewCapabilityEnforcer(config.DefaultCapabilities)
	require.NoError(t, err)

	r := gin.New()
	r.Use(middleware.RequestID(), middleware.ErrorHandler(), middleware.Validation(middleware.DefaultValidationConfig()))
	NewHandler(svc, middleware.NewCapabilityMiddleware(enforcer)).RegisterRoutes(r.Group("/api/v1"))
	return r
}

func do(r http.Handler, method, path, role, body string) (*httptest.ResponseRecorder, envelope) {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if role != "" {
		req.Header.Set(middleware.HeaderUserRole, role)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

func decodeSlots(t *testing.T, env envelope) []*model.Slot {
	t.Helper()
	var slots []*model.Slot
	require.NoError(t, json.Unmarshal(env.Data, &slots))
	return slots
}

func TestListSlotsDefaultHorizon(t *testing.T) {
	r := setupRouter(t)

	w, env := do(r, http.MethodGet, "/api/v1/providers/1/slots", "patient", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "success", env.Status)

	slots := decodeSlots(t, env)
	// Mon, Tue, Wed at 18 slots a day
	require.Len(t, slots, 54)
	assert.Equal(t, "2024-01-15", slots[0].DateString())
	assert.Equal(t, "08:00", slots[0].Time)
	assert.Equal(t, "2024-01-17", slots[53].DateString())
}

func TestListSlotsFilters(t *testing.T) {
	r := setupRouter(t)

	w, env := do(r, http.MethodGet, "/api/v1/providers/1/slots?horizon=7&date=2024-01-16&available=true", "patient", "")
	require.Equal(t, http.StatusOK, w.Code)

	slots := decodeSlots(t, env)
	assert.GreaterOrEqual(t, len(slots), 2)
	for _, s := range slots {
		assert.Equal(t, "2024-01-16", s.DateString())
		assert.True(t, s.IsAvailable)
	}

	w, env = do(r, http.MethodGet, "/api/v1/providers/1/slots?horizon=7&date=2024-01-20", "patient", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decodeSlots(t, env))

	w, env = do(r, http.MethodGet, "/api/v1/providers/1/slots?horizon=0", "patient", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decodeSlots(t, env))
}

func TestListSlotsBadRequests(t *testing.T) {
	r := setupRouter(t)

	for _, query := range []string{
		"horizon=abc",
		"horizon=-1",
		"horizon=31",
		"date=15-01-2024",
		"available=maybe",
	} {
		w, env := do(r, http.MethodGet, "/api/v1/providers/1/slots?"+query, "patient", "")
		assert.Equal(t, http.StatusBadRequest, w.Code, query)
		assert.Equal(t, "error", env.Status, query)
	}
}

func TestListSlotsUnknownProvider(t *testing.T) {
	r := setupRouter(t)

	w, env := do(r, http.MethodGet, "/api/v1/providers/99/slots", "patient", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, env.Message, "99")
}

func TestListSlotsRequiresRole(t *testing.T) {
	r := setupRouter(t)

	w, _ := do(r, http.MethodGet, "/api/v1/providers/1/slots", "", "")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRegenerateSlots(t *testing.T) {
	r := setupRouter(t)

	w, _ := do(r, http.MethodPost, "/api/v1/providers/1/slots/regenerate?horizon=5", "patient", "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, env := do(r, http.MethodPost, "/api/v1/providers/1/slots/regenerate?horizon=5", "admin", "")
	require.Equal(t, http.StatusOK, w.Code)

	var summary struct {
		SlotCount      int `json:"slot_count"`
		AvailableCount int `json:"available_count"`
		HorizonDays    int `json:"horizon_days"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &summary))
	// Mon through Fri
	assert.Equal(t, 90, summary.SlotCount)
	assert.Equal(t, 5, summary.HorizonDays)
	assert.GreaterOrEqual(t, summary.AvailableCount, 10)
}

func TestReserveSlot(t *testing.T) {
	r := setupRouter(t)

	_, env := do(r, http.MethodGet, "/api/v1/providers/1/slots?available=true", "patient", "")
	slots := decodeSlots(t, env)
	require.NotEmpty(t, slots)
	target := slots[0]

	w, env := do(r, http.MethodPost, "/api/v1/slots/"+target.ID+"/reserve", "patient",
		`{"patient_name":"Ada","email":"ada@example.com"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var booked model.Slot
	require.NoError(t, json.Unmarshal(env.Data, &booked))
	assert.Equal(t, target.ID, booked.ID)
	assert.False(t, booked.IsAvailable)

	w, _ = do(r, http.MethodPost, "/api/v1/slots/"+target.ID+"/reserve", "patient", "")
	assert.Equal(t, http.StatusConflict, w.Code)

	w, env = do(r, http.MethodGet, "/api/v1/slots/"+target.ID, "patient", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(env.Data, &booked))
	assert.False(t, booked.IsAvailable)
}

func TestReserveSlotErrors(t *testing.T) {
	r := setupRouter(t)

	w, _ := do(r, http.MethodPost, "/api/v1/slots/2024-01-15-08:00-nobody/reserve", "patient", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	_, env := do(r, http.MethodGet, "/api/v1/providers/1/slots?available=true", "patient", "")
	id := decodeSlots(t, env)[0].ID

	w, _ = do(r, http.MethodPost, "/api/v1/slots/"+id+"/reserve", "patient", `{"email":"not-an-email"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(r, http.MethodPost, "/api/v1/slots/"+id+"/reserve", "patient", `{"email":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(r, http.MethodPost, "/api/v1/slots/"+id+"/reserve", "doctor", "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	// none of the rejected attempts booked it
	w, _ = do(r, http.MethodPost, "/api/v1/slots/"+id+"/reserve", "patient", "")
	assert.Equal(t, http.StatusOK, w.Code)
}
