package handler

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/cohort-admin-api/internal/dto"
	"github.com/noah-isme/cohort-admin-api/internal/models"
	"github.com/noah-isme/cohort-admin-api/internal/service"
	appErrors "github.com/noah-isme/cohort-admin-api/pkg/errors"
)

type responseEnvelope struct {
	Data  json.RawMessage        `json:"data"`
	Error *appErrors.Error       `json:"error"`
	Meta  map[string]interface{} `json:"meta"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) responseEnvelope {
	t.Helper()
	var env responseEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

type fakeTeacherService struct {
	teachers  []models.Teacher
	err       error
	createReq *service.CreateTeacherRequest
	deletedID string
}

func (f *fakeTeacherService) List(context.Context) ([]models.Teacher, error) {
	return f.teachers, f.err
}

func (f *fakeTeacherService) Get(_ context.Context, id string) (*models.Teacher, error) {
	if f.err != nil {
		return nil, f.err
	}
	for i := range f.teachers {
		if f.teachers[i].ID == id {
			return &f.teachers[i], nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
}

func (f *fakeTeacherService) Create(_ context.Context, req service.CreateTeacherRequest) (*models.Teacher, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.createReq = &req
	return &models.Teacher{ID: "new", Name: req.Name, Email: req.Email}, nil
}

func (f *fakeTeacherService) Update(ctx context.Context, id string, req service.UpdateTeacherRequest) (*models.Teacher, error) {
	teacher, err := f.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	teacher.Name = req.Name
	return teacher, nil
}

func (f *fakeTeacherService) Delete(_ context.Context, id string) error {
	if f.err != nil {
		return f.err
	}
	f.deletedID = id
	return nil
}

type fakeBatchService struct {
	batches    []models.BatchView
	filter     models.BatchFilter
	format     string
	err        error
	createdReq *service.BatchRequest
}

func (f *fakeBatchService) List(_ context.Context, filter models.BatchFilter) ([]models.BatchView, error) {
	f.filter = filter
	return f.batches, f.err
}

func (f *fakeBatchService) Get(_ context.Context, id string) (*models.BatchView, error) {
	for i := range f.batches {
		if f.batches[i].ID == id {
			return &f.batches[i], nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "batch not found")
}

func (f *fakeBatchService) Create(_ context.Context, req service.BatchRequest) (*models.BatchView, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.createdReq = &req
	return &models.BatchView{Batch: models.Batch{ID: "b-new", BatchName: req.BatchName}, Status: models.BatchStatusUpcoming}, nil
}

func (f *fakeBatchService) Update(ctx context.Context, id string, req service.BatchRequest) (*models.BatchView, error) {
	view, err := f.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	view.BatchName = req.BatchName
	return view, nil
}

func (f *fakeBatchService) Delete(ctx context.Context, id string) error {
	_, err := f.Get(ctx, id)
	return err
}

func (f *fakeBatchService) Export(_ context.Context, filter models.BatchFilter, format string) (*service.BatchExport, error) {
	f.filter = filter
	f.format = format
	if f.err != nil {
		return nil, f.err
	}
	return &service.BatchExport{Filename: "batches-20240515.csv", ContentType: "text/csv", Body: []byte("id\n")}, nil
}

type fakeStudentService struct {
	students []models.Student
}

func (f *fakeStudentService) List(context.Context) ([]models.Student, error) {
	return f.students, nil
}

func (f *fakeStudentService) Get(_ context.Context, id string) (*models.Student, error) {
	for i := range f.students {
		if f.students[i].ID == id {
			return &f.students[i], nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
}

func (f *fakeStudentService) Create(_ context.Context, req service.CreateStudentRequest) (*models.Student, error) {
	return &models.Student{ID: "s-new", Name: req.Name}, nil
}

type fakeSaleService struct {
	filter    models.SaleFilter
	statusReq *service.UpdateSaleStatusRequest
}

func (f *fakeSaleService) List(_ context.Context, filter models.SaleFilter) ([]models.Sale, error) {
	f.filter = filter
	return []models.Sale{}, nil
}

func (f *fakeSaleService) Create(_ context.Context, req service.CreateSaleRequest) (*models.Sale, error) {
	return &models.Sale{ID: "sale-new", StudentID: req.Student, Amount: req.Amount, Status: models.SaleStatusPending}, nil
}

func (f *fakeSaleService) UpdateStatus(_ context.Context, id string, req service.UpdateSaleStatusRequest) (*models.Sale, error) {
	f.statusReq = &req
	return &models.Sale{ID: id, Status: req.Status}, nil
}

type fakeAuthService struct {
	err error
}

func (f *fakeAuthService) Login(_ context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.LoginResponse{AccessToken: "token", TokenType: "Bearer", User: models.UserInfo{Email: req.Email}}, nil
}

type fakeDashboardService struct {
	resp      *dto.TeacherDashboardResponse
	hit       bool
	err       error
	teacherID string
}

func (f *fakeDashboardService) Teacher(_ context.Context, teacherID string) (*dto.TeacherDashboardResponse, bool, error) {
	f.teacherID = teacherID
	if f.err != nil {
		return nil, false, f.err
	}
	return f.resp, f.hit, nil
}

type fakeValidator struct {
	claims map[string]*models.JWTClaims
}

func (f fakeValidator) ValidateToken(token string) (*models.JWTClaims, error) {
	if claims, ok := f.claims[token]; ok {
		return claims, nil
	}
	return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
}
