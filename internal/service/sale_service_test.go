package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/cohort-admin-api/internal/models"
	appErrors "github.com/noah-isme/cohort-admin-api/pkg/errors"
)

const studentUUID = "5f1c2d3e-4a5b-4c6d-8e7f-901a2b3c4d5e"

type recordingScheduler struct {
	students []string
}

func (r *recordingScheduler) ScheduleForStudent(ctx context.Context, studentID string) error {
	r.students = append(r.students, studentID)
	return nil
}

func newTestSaleService(sales *mockSaleRepo, scheduler *recordingScheduler) *SaleService {
	students := newMockStudentRepo(models.Student{ID: studentUUID, TeacherIDs: []string{"t-1"}})
	return NewSaleService(sales, students, scheduler, nil, zap.NewNop())
}

func TestSaleServiceCreate(t *testing.T) {
	scheduler := &recordingScheduler{}
	svc := newTestSaleService(newMockSaleRepo(), scheduler)

	pending, err := svc.Create(context.Background(), CreateSaleRequest{Student: studentUUID, Amount: 10.005})
	require.NoError(t, err)
	assert.Equal(t, models.SaleStatusPending, pending.Status)
	assert.Equal(t, 10.01, pending.Amount)
	assert.Empty(t, scheduler.students)

	_, err = svc.Create(context.Background(), CreateSaleRequest{Student: studentUUID, Amount: 50, Status: models.SaleStatusCompleted})
	require.NoError(t, err)
	assert.Equal(t, []string{studentUUID}, scheduler.students)
}

func TestSaleServiceCreateValidation(t *testing.T) {
	svc := newTestSaleService(newMockSaleRepo(), &recordingScheduler{})

	_, err := svc.Create(context.Background(), CreateSaleRequest{Student: "not-a-uuid", Amount: 1})
	require.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Create(context.Background(), CreateSaleRequest{Student: studentUUID, Amount: -1})
	require.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Create(context.Background(), CreateSaleRequest{Student: "0a0a0a0a-0b0b-4c0c-8d0d-0e0e0e0e0e0e", Amount: 1})
	require.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestSaleServiceUpdateStatusSchedulesOnCompletedTransitions(t *testing.T) {
	sales := newMockSaleRepo(models.Sale{ID: "sale-1", StudentID: studentUUID, Amount: 50, Status: models.SaleStatusPending})
	scheduler := &recordingScheduler{}
	svc := newTestSaleService(sales, scheduler)
	ctx := context.Background()

	sale, err := svc.UpdateStatus(ctx, "sale-1", UpdateSaleStatusRequest{Status: models.SaleStatusCompleted})
	require.NoError(t, err)
	assert.Equal(t, models.SaleStatusCompleted, sale.Status)
	assert.Len(t, scheduler.students, 1, "pending -> completed")

	_, err = svc.UpdateStatus(ctx, "sale-1", UpdateSaleStatusRequest{Status: models.SaleStatusCompleted})
	require.NoError(t, err)
	assert.Len(t, scheduler.students, 1, "no-op transition")
	assert.Len(t, sales.updated, 1)

	_, err = svc.UpdateStatus(ctx, "sale-1", UpdateSaleStatusRequest{Status: models.SaleStatusCancelled})
	require.NoError(t, err)
	assert.Len(t, scheduler.students, 2, "completed -> cancelled")

	_, err = svc.UpdateStatus(ctx, "sale-1", UpdateSaleStatusRequest{Status: models.SaleStatusPending})
	require.NoError(t, err)
	assert.Len(t, scheduler.students, 2, "cancelled -> pending does not touch earnings")
}

func TestSaleServiceUpdateStatusErrors(t *testing.T) {
	svc := newTestSaleService(newMockSaleRepo(), &recordingScheduler{})

	_, err := svc.UpdateStatus(context.Background(), "missing", UpdateSaleStatusRequest{Status: models.SaleStatusCompleted})
	require.ErrorIs(t, err, appErrors.ErrNotFound)

	_, err = svc.UpdateStatus(context.Background(), "missing", UpdateSaleStatusRequest{Status: "refunded"})
	require.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestSaleServiceEndToEndEarnings(t *testing.T) {
	teachers := newMockTeacherRepo(models.Teacher{ID: "t-1"})
	students := newMockStudentRepo(models.Student{ID: studentUUID, TeacherIDs: []string{"t-1"}})
	sales := newMockSaleRepo()
	earnings := NewEarningsService(teachers, students, sales, nil, nil, nil, zap.NewNop())
	svc := NewSaleService(sales, students, earnings, nil, zap.NewNop())

	sale, err := svc.Create(context.Background(), CreateSaleRequest{Student: studentUUID, Amount: 100, Status: models.SaleStatusCompleted})
	require.NoError(t, err)
	assert.Equal(t, 30.0, teachers.earnings("t-1"))

	_, err = svc.UpdateStatus(context.Background(), sale.ID, UpdateSaleStatusRequest{Status: models.SaleStatusCancelled})
	require.NoError(t, err)
	assert.Zero(t, teachers.earnings("t-1"))
}

func TestSaleServiceListRejectsUnknownStatus(t *testing.T) {
	svc := newTestSaleService(newMockSaleRepo(), &recordingScheduler{})

	_, err := svc.List(context.Background(), models.SaleFilter{Status: "refunded"})

	require.ErrorIs(t, err, appErrors.ErrValidation)
}
