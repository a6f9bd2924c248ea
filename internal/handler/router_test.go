package handler

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/cohort-admin-api/internal/dto"
	"github.com/noah-isme/cohort-admin-api/internal/models"
	"github.com/noah-isme/cohort-admin-api/internal/service"
	"github.com/noah-isme/cohort-admin-api/pkg/config"
)

func buildRouter(protectAdmin bool) (*fakeBatchService, *fakeDashboardService, http.Handler) {
	batches := &fakeBatchService{batches: []models.BatchView{{Batch: models.Batch{ID: batchID, BatchName: "Go 101"}, Status: models.BatchStatusOngoing}}}
	dashboard := &fakeDashboardService{resp: &dto.TeacherDashboardResponse{TeacherID: teacherID}}
	cfg := &config.Config{Env: config.EnvProduction, APIPrefix: "/api"}
	cfg.Auth.ProtectAdmin = protectAdmin

	router := NewRouter(RouterDeps{
		Config:  cfg,
		Metrics: service.NewMetricsService(),
		Tokens: fakeValidator{claims: map[string]*models.JWTClaims{
			"admin":   {UserID: "admin-1", Role: models.RoleAdmin},
			"teacher": {UserID: teacherID, Role: models.RoleTeacher},
		}},
		Teachers:  &fakeTeacherService{},
		Batches:   batches,
		Students:  &fakeStudentService{},
		Sales:     &fakeSaleService{},
		Auth:      &fakeAuthService{},
		Dashboard: dashboard,
	})
	return batches, dashboard, router
}

func performRequest(h http.Handler, method, path, token string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRouterAdminRoutesRequireAdmin(t *testing.T) {
	_, _, router := buildRouter(true)

	assert.Equal(t, http.StatusUnauthorized, performRequest(router, http.MethodGet, "/api/batches", "", nil).Code)
	assert.Equal(t, http.StatusForbidden, performRequest(router, http.MethodGet, "/api/batches", "teacher", nil).Code)
	assert.Equal(t, http.StatusOK, performRequest(router, http.MethodGet, "/api/batches", "admin", nil).Code)
}

func TestRouterAdminRoutesOpenWhenUnprotected(t *testing.T) {
	_, _, router := buildRouter(false)

	w := performRequest(router, http.MethodGet, "/api/batches/"+batchID, "", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ongoing"`)
}

func TestRouterDashboardUsesTokenSubject(t *testing.T) {
	_, dashboard, router := buildRouter(false)

	assert.Equal(t, http.StatusUnauthorized, performRequest(router, http.MethodGet, "/api/teachers/dashboard", "", nil).Code)
	assert.Equal(t, http.StatusForbidden, performRequest(router, http.MethodGet, "/api/teachers/dashboard", "admin", nil).Code)

	w := performRequest(router, http.MethodGet, "/api/teachers/dashboard", "teacher", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, teacherID, dashboard.teacherID)
	assert.Contains(t, w.Body.String(), `"cacheHit":false`)
}

func TestRouterExportRouteIsNotShadowedByID(t *testing.T) {
	batches, _, router := buildRouter(false)

	w := performRequest(router, http.MethodGet, "/api/batches/export?format=pdf&status=completed", "", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pdf", batches.format)
	assert.Equal(t, models.BatchStatusCompleted, batches.filter.Status)
}

func TestRouterLoginAndHealthEndpoints(t *testing.T) {
	_, _, router := buildRouter(true)

	w := performRequest(router, http.MethodPost, "/api/auth/login", "", strings.NewReader(`{"email":"ada@example.com","password":"secret1"}`))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"accessToken":"token"`)

	assert.Equal(t, http.StatusOK, performRequest(router, http.MethodGet, "/health", "", nil).Code)
	assert.Equal(t, http.StatusOK, performRequest(router, http.MethodGet, "/ready", "", nil).Code)

	metrics := performRequest(router, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, metrics.Code)
	assert.Contains(t, metrics.Body.String(), "http_requests_total")
}

func TestRouterDocsHiddenInProduction(t *testing.T) {
	_, _, router := buildRouter(false)

	assert.Equal(t, http.StatusNotFound, performRequest(router, http.MethodGet, "/docs/index.html", "", nil).Code)
}
