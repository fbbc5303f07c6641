package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"techtrack-backend/internal/database"
	"techtrack-backend/internal/handlers"
	"techtrack-backend/internal/middleware"
	"techtrack-backend/internal/models"
	"techtrack-backend/internal/snapshot"
	"techtrack-backend/internal/tracking"
)

type broadcast struct {
	room      string
	eventType string
	data      interface{}
}

type fakeHub struct {
	mu   sync.Mutex
	sent []broadcast
}

func (h *fakeHub) BroadcastToRoom(room, eventType string, data interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sent = append(h.sent, broadcast{room, eventType, data})
}

func (h *fakeHub) types() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(h.sent))
	for _, b := range h.sent {
		out = append(out, b.eventType)
	}
	return out
}

type env struct {
	router http.Handler
	store  *database.MemoryStore
	hub    *fakeHub
	auth   *middleware.Authenticator
}

func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()
	log := zerolog.Nop()

	store := database.NewMemoryStore()
	require.NoError(t, store.CreateTechnician(ctx, &models.Technician{ID: "t1", Name: "Ana", Email: "ana@example.com"}))
	require.NoError(t, store.CreateTechnician(ctx, &models.Technician{ID: "t2", Name: "Ben", Email: "ben@example.com"}))
	require.NoError(t, store.CreateJob(ctx, &models.Job{ID: "j1", Title: "Boiler", TechID: "t1"}))

	engine := tracking.NewEngine(store, log)
	snapshots := snapshot.NewService(store)
	hub := &fakeHub{}
	auth := middleware.NewAuthenticator("handler-secret", log)

	r := chi.NewRouter()
	r.Get("/health", handlers.Health(store, log))
	r.Route("/api", func(r chi.Router) {
		r.Post("/technician/{id}/background-location", handlers.UpdateBackgroundLocation(engine, hub, log))

		r.Group(func(r chi.Router) {
			r.Use(auth.Auth)
			r.Get("/technicians/locations", handlers.GetTechniciansWithLocation(snapshots, log))
			r.Get("/technicians", handlers.GetAllTechnicians(snapshots, log))
			r.Get("/technician/{id}/location-history", handlers.GetLocationHistory(snapshots, log))
			r.Get("/routes/active", handlers.GetActiveRoutes(snapshots, log))
			r.Get("/routes/job/{jobId}", handlers.GetJobRoute(snapshots, log))
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.Auth)
			r.Use(middleware.RequireRole(models.RoleTechnician))
			r.Put("/technician/{id}/toggle-tracking", handlers.ToggleTracking(engine, hub, log))
			r.Put("/jobs/{id}/accept", handlers.AcceptJob(engine, hub, log))
			r.Put("/jobs/{id}/start", handlers.StartJob(engine, hub, log))
			r.Put("/jobs/{id}/complete", handlers.CompleteJob(engine, hub, log))
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.Auth)
			r.Use(middleware.RequireRole(models.RoleAdmin))
			r.Post("/admin/assign-job", handlers.AssignJob(engine, log))
		})
	})

	return &env{router: r, store: store, hub: hub, auth: auth}
}

func (e *env) token(t *testing.T, userID, role string) string {
	t.Helper()
	tok, err := e.auth.IssueToken(middleware.UserClaims{UserID: userID, Role: role}, time.Hour)
	require.NoError(t, err)
	return tok
}

func (e *env) do(t *testing.T, method, path, token string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec.Code, out
}

func TestHealth(t *testing.T) {
	e := newEnv(t)
	status, body := e.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
}

func TestBackgroundLocation(t *testing.T) {
	e := newEnv(t)
	path := "/api/technician/t1/background-location"

	status, body := e.do(t, http.MethodPost, path, "", map[string]interface{}{"lat": 1, "lng": 2})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, tracking.ErrTrackingDisabled.Error(), body["error"])
	assert.Empty(t, e.hub.types())

	// the tracking check comes before coordinate checks
	status, body = e.do(t, http.MethodPost, path, "", map[string]interface{}{"lat": 500})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, tracking.ErrTrackingDisabled.Error(), body["error"])

	tech := e.token(t, "t1", models.RoleTechnician)
	status, _ = e.do(t, http.MethodPut, "/api/technician/t1/toggle-tracking", tech, map[string]interface{}{"is_tracking": true})
	require.Equal(t, http.StatusOK, status)

	status, body = e.do(t, http.MethodPost, path, "", map[string]interface{}{"lat": 1, "lng": 2, "job_id": "j1"})
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, 1.0, body["lat"])
	assert.Equal(t, "j1", body["job_id"])
	assert.Equal(t, []string{"tech_gps_changed", "location_update"}, e.hub.types())

	status, _ = e.do(t, http.MethodPost, path, "", map[string]interface{}{"lat": 1})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = e.do(t, http.MethodPost, path, "", "{broken")
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = e.do(t, http.MethodPost, "/api/technician/nobody/background-location", "", map[string]interface{}{"lat": 1, "lng": 2})
	assert.Equal(t, http.StatusNotFound, status)
}

func TestReadEndpointsRequireToken(t *testing.T) {
	e := newEnv(t)

	status, body := e.do(t, http.MethodGet, "/api/technicians", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Unauthorized", body["error"])

	status, _ = e.do(t, http.MethodGet, "/api/technicians", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestReadEndpoints(t *testing.T) {
	e := newEnv(t)
	admin := e.token(t, "a1", models.RoleAdmin)

	status, body := e.do(t, http.MethodGet, "/api/technicians", admin, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["technicians"], 2)

	status, body = e.do(t, http.MethodGet, "/api/technicians/locations", admin, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["technicians"], 0)

	status, body = e.do(t, http.MethodGet, "/api/technician/t1/location-history", admin, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["location_history"], 0)

	status, _ = e.do(t, http.MethodGet, "/api/technician/t1/location-history?limit=abc", admin, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = e.do(t, http.MethodGet, "/api/routes/active", admin, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["routes"], 0)

	status, body = e.do(t, http.MethodGet, "/api/routes/job/j1", admin, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Nil(t, body["route"])
	assert.Len(t, body["location_history"], 0)
}

func TestToggleTracking(t *testing.T) {
	e := newEnv(t)
	tech := e.token(t, "t1", models.RoleTechnician)

	status, _ := e.do(t, http.MethodPut, "/api/technician/t2/toggle-tracking", tech, map[string]interface{}{"is_tracking": true})
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = e.do(t, http.MethodPut, "/api/technician/t1/toggle-tracking", tech, map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body := e.do(t, http.MethodPut, "/api/technician/t1/toggle-tracking", tech, map[string]interface{}{"is_tracking": true})
	require.Equal(t, http.StatusOK, status)
	technician := body["technician"].(map[string]interface{})
	assert.Equal(t, true, technician["is_tracking"])
	assert.Equal(t, "ONLINE", technician["status"])

	status, body = e.do(t, http.MethodPut, "/api/technician/t1/toggle-tracking", tech, map[string]interface{}{"is_tracking": false})
	require.Equal(t, http.StatusOK, status)
	technician = body["technician"].(map[string]interface{})
	assert.Equal(t, false, technician["is_tracking"])
	assert.Equal(t, "ONLINE", technician["status"])

	admin := e.token(t, "a1", models.RoleAdmin)
	status, _ = e.do(t, http.MethodPut, "/api/technician/t1/toggle-tracking", admin, map[string]interface{}{"is_tracking": true})
	assert.Equal(t, http.StatusForbidden, status)
}

func TestJobEndpoints(t *testing.T) {
	e := newEnv(t)
	tech := e.token(t, "t1", models.RoleTechnician)
	other := e.token(t, "t2", models.RoleTechnician)

	status, _ := e.do(t, http.MethodPut, "/api/jobs/j1/accept", other, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, body := e.do(t, http.MethodPut, "/api/jobs/j1/accept", tech, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ACCEPTED", body["job"].(map[string]interface{})["status"])

	status, body = e.do(t, http.MethodPut, "/api/jobs/j1/start", tech, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "IN_PROGRESS", body["job"].(map[string]interface{})["status"])

	stored, err := e.store.GetTechnician(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusOnWay, stored.Status)

	status, body = e.do(t, http.MethodPut, "/api/jobs/j1/complete", tech, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "COMPLETED", body["job"].(map[string]interface{})["status"])

	status, _ = e.do(t, http.MethodPut, "/api/jobs/j1/complete", tech, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = e.do(t, http.MethodPut, "/api/jobs/missing/start", tech, nil)
	assert.Equal(t, http.StatusNotFound, status)

	assert.Equal(t, []string{"job_status_changed", "job_status_changed", "job_status_changed"}, e.hub.types())
}

func TestAssignJob(t *testing.T) {
	e := newEnv(t)
	admin := e.token(t, "a1", models.RoleAdmin)
	tech := e.token(t, "t1", models.RoleTechnician)

	req := map[string]interface{}{"title": "Inspect valve", "tech_id": "t2", "address": "1 Main St"}

	status, _ := e.do(t, http.MethodPost, "/api/admin/assign-job", tech, req)
	assert.Equal(t, http.StatusForbidden, status)

	status, body := e.do(t, http.MethodPost, "/api/admin/assign-job", admin, req)
	require.Equal(t, http.StatusCreated, status)
	job := body["job"].(map[string]interface{})
	assert.Equal(t, "ASSIGNED", job["status"])
	assert.Equal(t, "t2", job["tech_id"])
	assert.Equal(t, "a1", job["admin_id"])

	status, _ = e.do(t, http.MethodPost, "/api/admin/assign-job", admin, map[string]interface{}{"tech_id": "t2"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = e.do(t, http.MethodPost, "/api/admin/assign-job", admin, map[string]interface{}{"title": "x", "tech_id": "nobody"})
	assert.Equal(t, http.StatusNotFound, status)
}
