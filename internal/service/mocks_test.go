package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/noah-isme/cohort-admin-api/internal/models"
	appErrors "github.com/noah-isme/cohort-admin-api/pkg/errors"
	"github.com/noah-isme/cohort-admin-api/pkg/jobs"
)

type mockTeacherRepo struct {
	mu          sync.Mutex
	items       map[string]*models.Teacher
	order       []string
	listErr     error
	earningsErr map[string]error
	createErr   error
	updateErr   error
	deleteErr   error
	sweep       models.TeacherSweep
	deleted     []string
}

func newMockTeacherRepo(teachers ...models.Teacher) *mockTeacherRepo {
	repo := &mockTeacherRepo{items: map[string]*models.Teacher{}, earningsErr: map[string]error{}}
	for i := range teachers {
		cp := teachers[i]
		repo.items[cp.ID] = &cp
		repo.order = append(repo.order, cp.ID)
	}
	return repo
}

func (m *mockTeacherRepo) List(ctx context.Context) ([]models.Teacher, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]models.Teacher, 0, len(m.order))
	for _, id := range m.order {
		if t, ok := m.items[id]; ok {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (m *mockTeacherRepo) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.items[id]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockTeacherRepo) FindByEmail(ctx context.Context, email string) (*models.Teacher, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.items {
		if strings.EqualFold(t.Email, email) {
			cp := *t
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockTeacherRepo) ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, t := range m.items {
		if strings.EqualFold(t.Email, email) && id != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockTeacherRepo) Create(ctx context.Context, teacher *models.Teacher) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	if teacher.ID == "" {
		teacher.ID = fmt.Sprintf("teacher-%d", len(m.items)+1)
	}
	now := time.Now().UTC()
	teacher.CreatedAt = now
	teacher.UpdatedAt = now
	cp := *teacher
	m.items[teacher.ID] = &cp
	m.order = append(m.order, teacher.ID)
	return nil
}

func (m *mockTeacherRepo) Update(ctx context.Context, teacher *models.Teacher) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	cp := *teacher
	m.items[teacher.ID] = &cp
	return nil
}

func (m *mockTeacherRepo) UpdateEarnings(ctx context.Context, id string, total float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.earningsErr[id]; err != nil {
		return err
	}
	if t, ok := m.items[id]; ok {
		t.TotalEarnings = total
	}
	return nil
}

func (m *mockTeacherRepo) DeleteWithReferences(ctx context.Context, id string) (models.TeacherSweep, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return models.TeacherSweep{}, m.deleteErr
	}
	if _, ok := m.items[id]; !ok {
		return models.TeacherSweep{}, sql.ErrNoRows
	}
	delete(m.items, id)
	m.deleted = append(m.deleted, id)
	return m.sweep, nil
}

func (m *mockTeacherRepo) earnings(id string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.items[id]; ok {
		return t.TotalEarnings
	}
	return -1
}

type mockStudentRepo struct {
	students map[string]*models.Student
	linkErr  error
}

func newMockStudentRepo(students ...models.Student) *mockStudentRepo {
	repo := &mockStudentRepo{students: map[string]*models.Student{}}
	for i := range students {
		cp := students[i]
		repo.students[cp.ID] = &cp
	}
	return repo
}

func (m *mockStudentRepo) List(ctx context.Context) ([]models.Student, error) {
	out := make([]models.Student, 0, len(m.students))
	for _, s := range m.students {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockStudentRepo) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if s, ok := m.students[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockStudentRepo) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = fmt.Sprintf("student-%d", len(m.students)+1)
	}
	cp := *student
	m.students[student.ID] = &cp
	return nil
}

func (m *mockStudentRepo) ListIDsByTeacher(ctx context.Context, teacherID string) ([]string, error) {
	if m.linkErr != nil {
		return nil, m.linkErr
	}
	ids := []string{}
	for id, s := range m.students {
		for _, t := range s.TeacherIDs {
			if t == teacherID {
				ids = append(ids, id)
				break
			}
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *mockStudentRepo) ListTeacherIDs(ctx context.Context, studentID string) ([]string, error) {
	if m.linkErr != nil {
		return nil, m.linkErr
	}
	s, ok := m.students[studentID]
	if !ok {
		return []string{}, nil
	}
	return append([]string{}, s.TeacherIDs...), nil
}

type mockSaleRepo struct {
	sales   map[string]*models.Sale
	updated []string
}

func newMockSaleRepo(sales ...models.Sale) *mockSaleRepo {
	repo := &mockSaleRepo{sales: map[string]*models.Sale{}}
	for i := range sales {
		cp := sales[i]
		repo.sales[cp.ID] = &cp
	}
	return repo
}

func (m *mockSaleRepo) List(ctx context.Context, filter models.SaleFilter) ([]models.Sale, error) {
	out := []models.Sale{}
	for _, s := range m.sales {
		if filter.StudentID != "" && s.StudentID != filter.StudentID {
			continue
		}
		if filter.Status != "" && s.Status != filter.Status {
			continue
		}
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockSaleRepo) FindByID(ctx context.Context, id string) (*models.Sale, error) {
	if s, ok := m.sales[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockSaleRepo) Create(ctx context.Context, sale *models.Sale) error {
	if sale.ID == "" {
		sale.ID = fmt.Sprintf("sale-%d", len(m.sales)+1)
	}
	cp := *sale
	m.sales[sale.ID] = &cp
	return nil
}

func (m *mockSaleRepo) UpdateStatus(ctx context.Context, id string, status models.SaleStatus) error {
	if s, ok := m.sales[id]; ok {
		s.Status = status
	}
	m.updated = append(m.updated, id)
	return nil
}

func (m *mockSaleRepo) ListCompletedAmounts(ctx context.Context, studentIDs []string) ([]float64, error) {
	wanted := map[string]bool{}
	for _, id := range studentIDs {
		wanted[id] = true
	}
	ids := make([]string, 0, len(m.sales))
	for id := range m.sales {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	amounts := []float64{}
	for _, id := range ids {
		s := m.sales[id]
		if wanted[s.StudentID] && s.Status == models.SaleStatusCompleted {
			amounts = append(amounts, s.Amount)
		}
	}
	return amounts, nil
}

type mockBatchRepo struct {
	batches map[string]*models.Batch
	order   []string
	listErr error
	deleted []string
}

func newMockBatchRepo(batches ...models.Batch) *mockBatchRepo {
	repo := &mockBatchRepo{batches: map[string]*models.Batch{}}
	for i := range batches {
		cp := batches[i]
		repo.batches[cp.ID] = &cp
		repo.order = append(repo.order, cp.ID)
	}
	return repo
}

func (m *mockBatchRepo) List(ctx context.Context, filter models.BatchFilter) ([]models.Batch, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := []models.Batch{}
	for _, id := range m.order {
		b, ok := m.batches[id]
		if !ok {
			continue
		}
		if filter.TeacherID != "" && (b.TeacherID == nil || *b.TeacherID != filter.TeacherID) {
			continue
		}
		out = append(out, *b)
	}
	return out, nil
}

func (m *mockBatchRepo) FindByID(ctx context.Context, id string) (*models.Batch, error) {
	if b, ok := m.batches[id]; ok {
		cp := *b
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockBatchRepo) Create(ctx context.Context, batch *models.Batch) error {
	if batch.ID == "" {
		batch.ID = fmt.Sprintf("batch-%d", len(m.batches)+1)
	}
	cp := *batch
	m.batches[batch.ID] = &cp
	m.order = append(m.order, batch.ID)
	return nil
}

func (m *mockBatchRepo) Update(ctx context.Context, batch *models.Batch) error {
	cp := *batch
	m.batches[batch.ID] = &cp
	return nil
}

func (m *mockBatchRepo) Delete(ctx context.Context, id string) error {
	delete(m.batches, id)
	m.deleted = append(m.deleted, id)
	return nil
}

type mockEnqueuer struct {
	jobs    []jobs.Job
	pending map[string]bool
	err     error
}

func (m *mockEnqueuer) Enqueue(job jobs.Job) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	if m.pending == nil {
		m.pending = map[string]bool{}
	}
	if m.pending[job.Key] {
		return false, nil
	}
	m.pending[job.Key] = true
	m.jobs = append(m.jobs, job)
	return true, nil
}

type mockCacheRepo struct {
	mu      sync.Mutex
	entries map[string][]byte
	ttls    map[string]time.Duration
	getErr  error
	deleted []string
}

func newMockCacheRepo() *mockCacheRepo {
	return &mockCacheRepo{entries: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *mockCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return m.getErr
	}
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *mockCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.entries[key] = raw
	m.ttls[key] = ttl
	return nil
}

func (m *mockCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range m.entries {
		if strings.HasPrefix(key, prefix) {
			delete(m.entries, key)
		}
	}
	m.deleted = append(m.deleted, pattern)
	return nil
}

func (m *mockCacheRepo) ttl(key string) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ttls[key]
}

func (m *mockCacheRepo) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[key]
	return ok
}

func (m *mockCacheRepo) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func strPtr(s string) *string { return &s }
