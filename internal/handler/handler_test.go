package handler

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/cohort-admin-api/internal/dto"
	"github.com/noah-isme/cohort-admin-api/internal/middleware"
	"github.com/noah-isme/cohort-admin-api/internal/models"
	appErrors "github.com/noah-isme/cohort-admin-api/pkg/errors"
)

const (
	teacherID = "4b2f1c9e-8d7a-4f3b-9c1e-2a6d5e8f7b10"
	batchID   = "9a8b7c6d-5e4f-4a3b-8c2d-1e0f9a8b7c6d"
	studentID = "0f1e2d3c-4b5a-4968-8776-655443322110"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestContext(method, target string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, target, bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	return c, w
}

func TestTeacherHandlerGetRejectsMalformedID(t *testing.T) {
	h := NewTeacherHandler(&fakeTeacherService{})
	c, w := newTestContext(http.MethodGet, "/api/teachers/nope", nil)
	c.Params = gin.Params{{Key: "id", Value: "nope"}}

	h.Get(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	env := decodeEnvelope(t, w)
	require.NotNil(t, env.Error)
	assert.Equal(t, appErrors.ErrValidation.Code, env.Error.Code)
}

func TestTeacherHandlerGetRejectsNonCanonicalUUID(t *testing.T) {
	svc := &fakeTeacherService{teachers: []models.Teacher{{ID: teacherID}}}
	h := NewTeacherHandler(svc)

	for _, id := range []string{"urn:uuid:" + teacherID, "{" + teacherID + "}", "4b2f1c9e8d7a4f3b9c1e2a6d5e8f7b10"} {
		c, w := newTestContext(http.MethodGet, "/api/teachers/x", nil)
		c.Params = gin.Params{{Key: "id", Value: id}}

		h.Get(c)

		assert.Equal(t, http.StatusBadRequest, w.Code, id)
	}
}

func TestTeacherHandlerGetNotFound(t *testing.T) {
	h := NewTeacherHandler(&fakeTeacherService{})
	c, w := newTestContext(http.MethodGet, "/api/teachers/"+teacherID, nil)
	c.Params = gin.Params{{Key: "id", Value: teacherID}}

	h.Get(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTeacherHandlerCreate(t *testing.T) {
	svc := &fakeTeacherService{}
	h := NewTeacherHandler(svc)
	body := []byte(`{"name":"Ada","email":"ada@example.com","password":"secret1"}`)
	c, w := newTestContext(http.MethodPost, "/api/teachers", body)

	h.Create(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, svc.createReq)
	assert.Equal(t, "ada@example.com", svc.createReq.Email)
	assert.NotContains(t, w.Body.String(), "secret1")
}

func TestTeacherHandlerCreateRejectsBrokenJSON(t *testing.T) {
	h := NewTeacherHandler(&fakeTeacherService{})
	c, w := newTestContext(http.MethodPost, "/api/teachers", []byte(`{"name":`))

	h.Create(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTeacherHandlerDeleteReturnsMessage(t *testing.T) {
	svc := &fakeTeacherService{}
	h := NewTeacherHandler(svc)
	c, w := newTestContext(http.MethodDelete, "/api/teachers/"+teacherID, nil)
	c.Params = gin.Params{{Key: "id", Value: teacherID}}

	h.Delete(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, teacherID, svc.deletedID)
	assert.JSONEq(t, `{"message":"teacher deleted"}`, string(decodeEnvelope(t, w).Data))
}

func TestTeacherHandlerListPropagatesInternalError(t *testing.T) {
	h := NewTeacherHandler(&fakeTeacherService{err: appErrors.Internal(errors.New("db down"), "failed to list teachers")})
	c, w := newTestContext(http.MethodGet, "/api/teachers", nil)

	h.List(c)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "db down")
}

func TestBatchHandlerListParsesFilters(t *testing.T) {
	svc := &fakeBatchService{batches: []models.BatchView{}}
	h := NewBatchHandler(svc)
	c, w := newTestContext(http.MethodGet, "/api/batches?teacher_id="+teacherID+"&status=Ongoing", nil)

	h.List(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, teacherID, svc.filter.TeacherID)
	assert.Equal(t, models.BatchStatusOngoing, svc.filter.Status)
}

func TestBatchHandlerListRejectsMalformedTeacher(t *testing.T) {
	h := NewBatchHandler(&fakeBatchService{})
	c, w := newTestContext(http.MethodGet, "/api/batches?teacher_id=abc", nil)

	h.List(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBatchHandlerListRejectsURNTeacher(t *testing.T) {
	svc := &fakeBatchService{}
	h := NewBatchHandler(svc)
	c, w := newTestContext(http.MethodGet, "/api/batches?teacher_id=urn:uuid:"+teacherID, nil)

	h.List(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, svc.filter.TeacherID)
}

func TestBatchHandlerCreate(t *testing.T) {
	svc := &fakeBatchService{}
	h := NewBatchHandler(svc)
	body := []byte(`{"batchName":"Go 101","teacher":"` + teacherID + `","startDate":"2024-06-01","endDate":"2024-07-01","scheduleDays":["Monday"],"revenue":100}`)
	c, w := newTestContext(http.MethodPost, "/api/batches", body)

	h.Create(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, svc.createdReq)
	require.NotNil(t, svc.createdReq.Teacher)
	assert.Equal(t, teacherID, *svc.createdReq.Teacher)
	assert.Contains(t, string(decodeEnvelope(t, w).Data), `"status":"upcoming"`)
}

func TestBatchHandlerExportStreamsAttachment(t *testing.T) {
	svc := &fakeBatchService{}
	h := NewBatchHandler(svc)
	c, w := newTestContext(http.MethodGet, "/api/batches/export?format=csv", nil)

	h.Export(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "csv", svc.format)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "batches-20240515.csv")
	assert.Equal(t, "id\n", w.Body.String())
}

func TestBatchHandlerExportUnsupportedFormat(t *testing.T) {
	svc := &fakeBatchService{err: appErrors.Clone(appErrors.ErrValidation, "unsupported export format")}
	h := NewBatchHandler(svc)
	c, w := newTestContext(http.MethodGet, "/api/batches/export?format=xlsx", nil)

	h.Export(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSaleHandlerUpdateStatus(t *testing.T) {
	svc := &fakeSaleService{}
	h := NewSaleHandler(svc)
	c, w := newTestContext(http.MethodPatch, "/api/sales/"+studentID+"/status", []byte(`{"status":"completed"}`))
	c.Params = gin.Params{{Key: "id", Value: studentID}}

	h.UpdateStatus(c)

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.statusReq)
	assert.Equal(t, models.SaleStatusCompleted, svc.statusReq.Status)
}

func TestStudentHandlerCreate(t *testing.T) {
	h := NewStudentHandler(&fakeStudentService{})
	c, w := newTestContext(http.MethodPost, "/api/students", []byte(`{"name":"Grace","teachers":["`+teacherID+`"]}`))

	h.Create(c)

	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestAuthHandlerLoginFailure(t *testing.T) {
	h := NewAuthHandler(&fakeAuthService{err: appErrors.ErrInvalidCredentials})
	c, w := newTestContext(http.MethodPost, "/api/auth/login", []byte(`{"email":"a@b.co","password":"x"}`))

	h.Login(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, decodeEnvelope(t, w).Error.Code)
}

func TestDashboardHandlerRequiresClaims(t *testing.T) {
	h := NewDashboardHandler(&fakeDashboardService{})
	c, w := newTestContext(http.MethodGet, "/api/teachers/dashboard", nil)

	h.Teacher(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestDashboardHandlerReportsCacheHit(t *testing.T) {
	svc := &fakeDashboardService{resp: &dto.TeacherDashboardResponse{TeacherID: teacherID, TotalEarnings: 37.04}, hit: true}
	h := NewDashboardHandler(svc)
	c, w := newTestContext(http.MethodGet, "/api/teachers/dashboard", nil)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: teacherID, Role: models.RoleTeacher})

	h.Teacher(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, teacherID, svc.teacherID)
	env := decodeEnvelope(t, w)
	assert.Equal(t, true, env.Meta["cacheHit"])
	assert.Contains(t, string(env.Data), `"totalEarnings":37.04`)
}

func TestReadyReportsFailingDependency(t *testing.T) {
	h := NewMetricsHandler(nil, map[string]Pinger{
		"database": PingerFunc(func(ctx context.Context) error { return nil }),
		"cache":    PingerFunc(func(ctx context.Context) error { return errors.New("connection refused") }),
	})
	c, w := newTestContext(http.MethodGet, "/ready", nil)

	h.Ready(c)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")
	assert.Contains(t, w.Body.String(), `"database":"ok"`)
}
