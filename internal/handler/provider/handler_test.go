package provider

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/booking-api/internal/config"
	"github.com/jwalitptl/booking-api/internal/middleware"
	"github.com/jwalitptl/booking-api/internal/model"
	"github.com/jwalitptl/booking-api/internal/repository/memory"
	"github.com/jwalitptl/booking-api/internal/service/provider"
)

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	enforcer, err := middleware.NewCapabilityEnforcer(config.DefaultCapabilities)
	require.NoError(t, err)

	svc := provider.NewService(memory.NewProviderRepository(config.DefaultProviders...))
	r := gin.New()
	NewHandler(svc, middleware.NewCapabilityMiddleware(enforcer)).RegisterRoutes(r.Group("/api/v1"))
	return r
}

func get(r http.Handler, path, role string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if role != "" {
		req.Header.Set(middleware.HeaderUserRole, role)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestListProviders(t *testing.T) {
	r := setupRouter(t)

	w := get(r, "/api/v1/providers", "doctor")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Status string            `json:"status"`
		Data   []*model.Provider `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp.Status)
	require.Len(t, resp.Data, 6)
	assert.Equal(t, "1", resp.Data[0].ID)
}

func TestGetProvider(t *testing.T) {
	r := setupRouter(t)

	w := get(r, "/api/v1/providers/3", "Patient")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data model.Provider `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Dr. Emily Rodriguez", resp.Data.Name)
	assert.True(t, resp.Data.WeekendEligible)

	assert.Equal(t, http.StatusNotFound, get(r, "/api/v1/providers/42", "patient").Code)
	assert.Equal(t, http.StatusForbidden, get(r, "/api/v1/providers/3", "").Code)
	assert.Equal(t, http.StatusForbidden, get(r, "/api/v1/providers/3", "visitor").Code)
}
